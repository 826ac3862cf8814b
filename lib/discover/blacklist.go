// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package discover

import (
	"net"

	"github.com/landrop/landrop/lib/sync"
)

// A BlackList records peer sockets that refused our handshake during this
// session, so that discovery does not dial them again.
type BlackList struct {
	addrs map[string]struct{}
	mut   sync.Mutex
}

func NewBlackList() *BlackList {
	return &BlackList{
		addrs: make(map[string]struct{}),
		mut:   sync.NewMutex(),
	}
}

func (b *BlackList) Add(addr *net.TCPAddr) {
	b.mut.Lock()
	b.addrs[addr.String()] = struct{}{}
	b.mut.Unlock()
	l.Debugln("black listed", addr)
}

func (b *BlackList) Contains(addr *net.TCPAddr) bool {
	b.mut.Lock()
	_, ok := b.addrs[addr.String()]
	b.mut.Unlock()
	return ok
}
