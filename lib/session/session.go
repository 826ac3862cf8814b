// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package session runs one complete transfer session, from rendezvous to
// disconnect, on either side of the connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/landrop/landrop/lib/beacon"
	"github.com/landrop/landrop/lib/config"
	"github.com/landrop/landrop/lib/connections"
	"github.com/landrop/landrop/lib/discover"
	"github.com/landrop/landrop/lib/events"
	"github.com/landrop/landrop/lib/model"
	"github.com/landrop/landrop/lib/protocol"
	"github.com/landrop/landrop/lib/rand"
	"github.com/landrop/landrop/lib/svcutil"
)

// Send runs a sending session: it prints the connection code, waits for a
// receiver announcement, connects and transfers. The rendezvous machinery
// is torn down before the transfer starts so the UDP socket is not held
// during it.
func Send(ctx context.Context, cfg config.SendConfig, evLogger *events.Logger) error {
	bc, udpPort, err := beacon.NewBroadcastListener(int(cfg.Port))
	if err != nil {
		return fmt.Errorf("binding rendezvous socket: %w", err)
	}

	code := protocol.Code{Port: uint16(udpPort), Pass: rand.PasswordByte()}
	evLogger.Log(events.Status, "Connection code: "+code.String())

	lst := discover.NewListener(bc, code.Pass, cfg.Password, discover.NewBlackList(), evLogger)

	sup := suture.New("session.send", svcutil.SpecWithDebugLogger(l))
	sup.Add(bc)
	sup.Add(lst)
	sup.Add(svcutil.AsService(countdown(evLogger, int(cfg.ExpireMinutes)), "session.Send"))

	supCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	supDone := sup.ServeBackground(supCtx)

	var conn net.Conn
	select {
	case conn = <-lst.Conns:
	case err := <-supDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	// Release the UDP socket before the transfer starts.
	cancel()
	<-supDone

	defer closeOnDone(ctx, conn)()
	return model.NewSender(conn, cfg, evLogger).Run(ctx)
}

// Recv runs a receiving session: it announces our TCP port to the
// sender's rendezvous port until the sender connects, then receives until
// the sender disconnects.
func Recv(ctx context.Context, cfg config.RecvConfig, evLogger *events.Logger, prompts chan<- string, replies <-chan string) error {
	var lc net.ListenConfig
	tcpLst, err := lc.Listen(ctx, "tcp4", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("binding session socket: %w", err)
	}
	defer tcpLst.Close()
	tcpPort := tcpLst.Addr().(*net.TCPAddr).Port
	l.Debugln("listening on", tcpLst.Addr())

	// The announcement carries our TCP port and echoes the password byte
	// from the sender's code.
	announced := protocol.Code{Port: uint16(tcpPort), Pass: cfg.Code.Pass}
	bc := beacon.NewBroadcastWriter(int(cfg.Code.Port))

	sup := suture.New("session.recv", svcutil.SpecWithDebugLogger(l))
	sup.Add(bc)
	sup.Add(discover.NewAnnouncer(bc, announced))
	sup.Add(svcutil.AsService(countdown(evLogger, int(cfg.ExpireMinutes)), "session.Recv"))

	supCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	supDone := sup.ServeBackground(supCtx)

	type result struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		conn, err := connections.Accept(supCtx, tcpLst, cfg.Password, evLogger)
		accepted <- result{conn, err}
	}()

	var conn net.Conn
	select {
	case res := <-accepted:
		if res.err != nil {
			return res.err
		}
		conn = res.conn
	case err := <-supDone:
		return err
	}

	// Stop announcing; the rendezvous is over.
	cancel()
	<-supDone

	defer closeOnDone(ctx, conn)()
	return model.NewReceiver(conn, cfg, evLogger, prompts, replies).Run()
}

// closeOnDone closes conn when ctx is cancelled, so that transfer loops
// blocked in reads or writes on the session connection unwind with an
// error. The returned stop function also closes the connection; the
// session is over either way.
func closeOnDone(ctx context.Context, conn net.Conn) (stop func()) {
	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-watchCtx.Done()
		conn.Close()
	}()
	return cancel
}

// countdown emits the time remaining until the rendezvous deadline, once
// per second, and terminates the session when it runs out.
func countdown(evLogger *events.Logger, expireMinutes int) func(context.Context) error {
	return func(ctx context.Context) error {
		left := time.Duration(expireMinutes) * time.Minute
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			left -= time.Second
			if left <= 0 {
				return &svcutil.FatalErr{
					Err:    errors.New("no connection in time"),
					Status: svcutil.ExitError,
				}
			}
			evLogger.Log(events.TimeLeft, int(left/time.Second))
		}
	}
}
