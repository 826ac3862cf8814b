// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "github.com/landrop/landrop/lib/sync"

// An idCounter hands out instruction ids. The first id is one and the
// sequence wraps around the zero value, which is reserved for the
// handshake.
type idCounter struct {
	id  uint16
	mut sync.Mutex
}

func newIDCounter() *idCounter {
	return &idCounter{
		mut: sync.NewMutex(),
	}
}

func (c *idCounter) next() uint16 {
	c.mut.Lock()
	defer c.mut.Unlock()
	c.id++
	if c.id == 0 {
		c.id = 1
	}
	return c.id
}
