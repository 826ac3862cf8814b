// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package discover performs the UDP rendezvous. The sender listens for
// announcement datagrams and dials the announced TCP port; the receiver
// broadcasts announcements until the sender connects.
package discover

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/landrop/landrop/lib/beacon"
	"github.com/landrop/landrop/lib/connections"
	"github.com/landrop/landrop/lib/events"
	"github.com/landrop/landrop/lib/protocol"
	"github.com/landrop/landrop/lib/svcutil"
)

const (
	announceInterval = 5 * time.Second
	announceTries    = 10
)

// A Listener consumes announcement datagrams from the beacon, validates
// them against the session password byte, and attempts the TCP handshake
// with each acceptable candidate. The first established connection is
// delivered on Conns and the service returns.
type Listener struct {
	bc        beacon.Interface
	pass      uint8
	password  string
	blackList *BlackList
	evLogger  *events.Logger

	// Conns receives the established connection, exactly once.
	Conns chan net.Conn
}

func NewListener(bc beacon.Interface, pass uint8, password string, blackList *BlackList, evLogger *events.Logger) *Listener {
	return &Listener{
		bc:        bc,
		pass:      pass,
		password:  password,
		blackList: blackList,
		evLogger:  evLogger,
		Conns:     make(chan net.Conn, 1),
	}
}

func (s *Listener) String() string {
	return fmt.Sprintf("discover.Listener@%p", s)
}

func (s *Listener) Serve(ctx context.Context) error {
	for {
		data, src, err := s.bc.Recv(ctx)
		if err != nil {
			return err
		}

		addr, err := s.candidate(data, src)
		if err != nil {
			l.Debugln("announcement from", src, "discarded:", err)
			continue
		}
		if s.blackList.Contains(addr) {
			l.Debugln("announcement from black listed", addr)
			continue
		}

		conn, err := connections.Dial(ctx, addr, s.password)
		switch {
		case err == nil:
			s.Conns <- conn
			return svcutil.NoRestartErr(nil)
		case errors.Is(err, connections.ErrRefused):
			s.blackList.Add(addr)
			s.evLogger.Log(events.Error, err.Error())
		default:
			l.Infoln("Candidate", addr, "failed:", err)
		}
	}
}

// candidate validates an announcement datagram and resolves it to the
// peer's TCP address. The datagram is the six character code form carrying
// the peer's TCP port and our password byte.
func (s *Listener) candidate(data []byte, src net.Addr) (*net.TCPAddr, error) {
	code, err := protocol.ParseCode(string(data))
	if err != nil {
		return nil, err
	}
	if code.Pass != s.pass {
		return nil, errors.New("wrong password byte")
	}
	udpSrc, ok := src.(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected source address type %T", src)
	}
	return &net.TCPAddr{IP: udpSrc.IP, Port: int(code.Port)}, nil
}

// An Announcer broadcasts our TCP port to the sender's UDP port, up to
// announceTries times with announceInterval between them. It stops early
// when the context is cancelled (a connection was accepted); running out
// of tries terminates the session.
type Announcer struct {
	bc       beacon.Interface
	code     protocol.Code
	interval time.Duration
}

// NewAnnouncer announces the given code, which carries our TCP port and
// the password byte parsed from the sender's rendezvous code.
func NewAnnouncer(bc beacon.Interface, code protocol.Code) *Announcer {
	return &Announcer{
		bc:       bc,
		code:     code,
		interval: announceInterval,
	}
}

func (a *Announcer) String() string {
	return fmt.Sprintf("discover.Announcer@%p", a)
}

func (a *Announcer) Serve(ctx context.Context) error {
	payload := []byte(a.code.String())

	timer := time.NewTimer(0)
	defer timer.Stop()

	for tries := 0; tries < announceTries; tries++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		l.Debugln("announcing", a.code)
		a.bc.Send(payload)
		timer.Reset(a.interval)
	}

	// The last announcement gets its full window before we give up.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	return &svcutil.FatalErr{
		Err:    errors.New("no answer to announcements"),
		Status: svcutil.ExitError,
	}
}
