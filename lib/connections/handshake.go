// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package connections establishes the session TCP connection: the sender
// dials candidates and offers a Connect instruction, the receiver accepts
// and validates it.
package connections

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/landrop/landrop/lib/events"
	"github.com/landrop/landrop/lib/protocol"
)

// The handshake instruction and its reply both carry id zero; request ids
// proper start at one.
const handshakeID = 0

var (
	// ErrRefused is returned by Dial when the peer answered
	// RequestRefuse. The candidate should be black listed and discovery
	// resumed.
	ErrRefused = errors.New("connection refused by peer")
	// ErrPeerError is returned by Dial when the peer answered
	// RequestError. The candidate failed but may be retried.
	ErrPeerError = errors.New("peer reported an error")
)

const dialTimeout = 10 * time.Second

// Dial connects to the candidate address and performs the Connect
// exchange. On success the established connection is returned; on any
// error it is closed.
func Dial(ctx context.Context, addr *net.TCPAddr, password string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp4", addr.String())
	if err != nil {
		return nil, fmt.Errorf("dialing %v: %w", addr, err)
	}

	var payload []byte
	if password != "" {
		payload = []byte(password)
	}
	if err := protocol.Send(conn, handshakeID, protocol.Connect, payload); err != nil {
		conn.Close()
		return nil, err
	}

	reply, err := protocol.ReadInstruction(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	detail, err := protocol.ReadDetail(conn, reply)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if reply.ID != handshakeID {
		conn.Close()
		return nil, fmt.Errorf("wrong id in reply: %d", reply.ID)
	}

	switch reply.Op {
	case protocol.RequestSuccess:
		l.Debugln("handshake accepted by", addr)
		return conn, nil
	case protocol.RequestRefuse:
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrRefused, detail)
	case protocol.RequestError:
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrPeerError, detail)
	default:
		conn.Close()
		return nil, fmt.Errorf("unknown reply %v to handshake", reply.Op)
	}
}

// Accept takes connections from the listener until one passes the
// handshake, and returns that connection. Refused and erroring peers are
// answered and closed, and the listener keeps going. Cancelling the
// context closes the listener and aborts.
func Accept(ctx context.Context, lst net.Listener, password string, evLogger *events.Logger) (net.Conn, error) {
	doneCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-doneCtx.Done()
		lst.Close()
	}()

	for {
		conn, err := lst.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		ok, err := validate(conn, password)
		if err != nil {
			l.Infoln("Handshake with", conn.RemoteAddr(), "failed:", err)
			conn.Close()
			continue
		}
		if !ok {
			l.Infoln("Refused connection from", conn.RemoteAddr())
			conn.Close()
			continue
		}

		evLogger.Log(events.Status, "Connection established")
		return conn, nil
	}
}

// validate runs the password truth table against the first instruction on
// the connection. A non-Connect instruction or an I/O problem is an
// error; a password mismatch answers RequestRefuse and returns false.
func validate(conn net.Conn, password string) (bool, error) {
	ins, err := protocol.ReadInstruction(conn)
	if err != nil {
		return false, err
	}
	if ins.Op != protocol.Connect {
		return false, fmt.Errorf("expected Connect, got %v", ins.Op)
	}

	switch {
	case !ins.Buffer && password == "":
		return true, protocol.Send(conn, ins.ID, protocol.RequestSuccess, nil)

	case ins.Buffer && password != "":
		offered, err := protocol.ReadContent(conn, ins.Length)
		if err != nil {
			return false, err
		}
		if string(offered) == password {
			return true, protocol.Send(conn, ins.ID, protocol.RequestSuccess, nil)
		}
		protocol.Send(conn, ins.ID, protocol.RequestRefuse, []byte("Invalid password"))
		return false, nil

	default:
		// One side has a password, the other does not.
		protocol.Send(conn, ins.ID, protocol.RequestRefuse, []byte("Invalid password"))
		return false, nil
	}
}
