// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package beacon

import (
	"context"
	"net"
	"time"
)

// NewBroadcastListener binds an IPv4 UDP socket on the given port (zero for
// OS assigned) and returns a receive-only beacon together with the bound
// port. The socket is bound here, not in the reader service, so that the
// port is known before the service runs.
func NewBroadcastListener(port int) (Interface, int, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, 0, err
	}
	c := newCast("broadcastListener")
	c.addReader(func(ctx context.Context) error {
		return readBroadcasts(ctx, c.outbox, conn)
	})
	return c, conn.LocalAddr().(*net.UDPAddr).Port, nil
}

// NewBroadcastWriter returns a send-only beacon that transmits queued
// datagrams to 255.255.255.255 on the given port.
func NewBroadcastWriter(port int) Interface {
	c := newCast("broadcastWriter")
	c.addWriter(func(ctx context.Context) error {
		return writeBroadcasts(ctx, c.inbox, port)
	})
	return c
}

func writeBroadcasts(ctx context.Context, inbox <-chan []byte, port int) error {
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		l.Debugln(err)
		return err
	}
	doneCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-doneCtx.Done()
		conn.Close()
	}()

	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: port}

	for {
		var bs []byte
		select {
		case bs = <-inbox:
		case <-doneCtx.Done():
			return doneCtx.Err()
		}

		conn.SetWriteDeadline(time.Now().Add(time.Second))
		_, err := conn.WriteTo(bs, dst)
		conn.SetWriteDeadline(time.Time{})
		if err != nil {
			l.Debugln(err, "on write to", dst)
			return err
		}
		l.Debugf("sent %d bytes to %v", len(bs), dst)

		select {
		case <-doneCtx.Done():
			return doneCtx.Err()
		default:
		}
	}
}

func readBroadcasts(ctx context.Context, outbox chan<- recv, conn *net.UDPConn) error {
	doneCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-doneCtx.Done()
		conn.Close()
	}()

	bs := make([]byte, 65536)
	for {
		select {
		case <-doneCtx.Done():
			return doneCtx.Err()
		default:
		}
		n, addr, err := conn.ReadFrom(bs)
		if err != nil {
			l.Debugln(err)
			return err
		}
		l.Debugf("recv %d bytes from %s", n, addr)

		c := make([]byte, n)
		copy(c, bs)
		select {
		case outbox <- recv{c, addr}:
		default:
			l.Debugln("dropping message")
		}
	}
}
