// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package session

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/landrop/landrop/lib/config"
	"github.com/landrop/landrop/lib/events"
	"github.com/landrop/landrop/lib/model"
	"github.com/landrop/landrop/lib/protocol"
)

func TestCountdownEmitsTimeLeft(t *testing.T) {
	evLogger := events.NewLogger()
	sub := evLogger.Subscribe(events.TimeLeft)
	defer evLogger.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- countdown(evLogger, 1)(ctx)
	}()

	ev, err := sub.Poll(5 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got := ev.Data.(int); got != 59 {
		t.Errorf("First TimeLeft == %d, expected 59", got)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("countdown returned %v after cancel", err)
	}
}

func TestCancelUnblocksStalledSender(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 1<<16), 0o644); err != nil {
		t.Fatal(err)
	}

	// The peer end is never read, so the sender blocks writing its first
	// instruction.
	sendEnd, recvEnd := net.Pipe()
	defer recvEnd.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer closeOnDone(ctx, sendEnd)()

	cfg := config.SendConfig{Paths: []string{path}, ExpireMinutes: 10}
	errc := make(chan error, 1)
	go func() {
		errc <- model.NewSender(sendEnd, cfg, events.NewLogger()).Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err == nil {
			t.Error("Sender finished cleanly against a stalled peer")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Sender did not unwind after cancellation")
	}
}

func TestCancelUnblocksStalledReceiver(t *testing.T) {
	sendEnd, recvEnd := net.Pipe()
	defer sendEnd.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer closeOnDone(ctx, recvEnd)()

	cfg := config.RecvConfig{Dir: t.TempDir(), Overwrite: config.Overwrite, ExpireMinutes: 10}
	errc := make(chan error, 1)
	go func() {
		errc <- model.NewReceiver(recvEnd, cfg, events.NewLogger(), nil, nil).Run()
	}()

	// Open a file and then go silent, leaving the receiver blocked
	// mid-session on the next instruction.
	if err := protocol.Send(sendEnd, 1, protocol.StartSendFile, []byte("size:100;name:f")); err != nil {
		t.Fatal(err)
	}
	reply, err := protocol.ReadInstruction(sendEnd)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Op != protocol.RequestSuccess {
		t.Fatalf("StartSendFile answered %v", reply.Op)
	}

	cancel()

	select {
	case err := <-errc:
		if err == nil {
			t.Error("Receiver finished cleanly against a silent peer")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Receiver did not unwind after cancellation")
	}
}
