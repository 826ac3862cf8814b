// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package beacon sends and receives small UDP broadcast datagrams.
package beacon

import (
	"context"
	"fmt"
	"net"
	stdsync "sync"

	"github.com/thejerf/suture/v4"

	"github.com/landrop/landrop/lib/svcutil"
)

type recv struct {
	data []byte
	src  net.Addr
}

type Interface interface {
	suture.Service
	fmt.Stringer
	// Send queues a datagram for transmission. It never blocks; when the
	// queue is full the datagram replaces the queued one.
	Send(data []byte)
	// Recv returns the next received datagram and its source address, or
	// the context error.
	Recv(ctx context.Context) ([]byte, net.Addr, error)
	Error() error
}

type errorHolder struct {
	err error
	mut stdsync.Mutex // uses stdlib sync as I want this to be trivially embeddable, and there is no risk of blocking
}

func (e *errorHolder) setError(err error) {
	e.mut.Lock()
	e.err = err
	e.mut.Unlock()
}

func (e *errorHolder) Error() error {
	e.mut.Lock()
	err := e.err
	e.mut.Unlock()
	return err
}

type cast struct {
	*suture.Supervisor
	errorHolder
	name   string
	inbox  chan []byte
	outbox chan recv
}

// newCast returns a cast with a name and a supervisor to hang reader and
// writer services on.
func newCast(name string) *cast {
	return &cast{
		Supervisor: suture.New(name, svcutil.SpecWithDebugLogger(l)),
		name:       name,
		inbox:      make(chan []byte),
		outbox:     make(chan recv, 16),
	}
}

func (c *cast) addReader(svc func(context.Context) error) {
	c.Add(c.createService(svc, "reader"))
}

func (c *cast) addWriter(svc func(context.Context) error) {
	c.Add(c.createService(svc, "writer"))
}

func (c *cast) createService(svc func(context.Context) error, suffix string) suture.Service {
	return svcutil.AsService(func(ctx context.Context) error {
		l.Debugln("Starting", c.name, suffix)
		err := svc(ctx)
		l.Debugf("Stopped %v %v: %v", c.name, suffix, err)
		c.setError(err)
		return err
	}, fmt.Sprintf("%s/%s", c, suffix))
}

func (c *cast) String() string {
	return fmt.Sprintf("%s@%p", c.name, c)
}

func (c *cast) Send(data []byte) {
	for {
		select {
		case c.inbox <- data:
			return
		default:
			// The queue is full; drop the queued datagram in favor of the
			// new one.
			select {
			case <-c.inbox:
			default:
			}
		}
	}
}

func (c *cast) Recv(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case r := <-c.outbox:
		return r.data, r.src, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
