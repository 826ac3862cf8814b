// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package discover

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/landrop/landrop/lib/events"
	"github.com/landrop/landrop/lib/protocol"
	"github.com/landrop/landrop/lib/svcutil"
)

func TestBlackList(t *testing.T) {
	bl := NewBlackList()
	a := &net.TCPAddr{IP: net.IPv4(192, 168, 0, 10), Port: 1234}
	b := &net.TCPAddr{IP: net.IPv4(192, 168, 0, 10), Port: 1235}

	if bl.Contains(a) {
		t.Error("Fresh black list contains", a)
	}
	bl.Add(a)
	if !bl.Contains(a) {
		t.Error("Black list misses", a)
	}
	if bl.Contains(b) {
		t.Error("Black list contains", b, "which differs by port")
	}
}

func TestListenerCandidate(t *testing.T) {
	s := NewListener(nil, 42, "", NewBlackList(), events.NewLogger())
	src := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 9999}

	code := protocol.Code{Port: 3000, Pass: 42}
	addr, err := s.candidate([]byte(code.String()), src)
	if err != nil {
		t.Fatal(err)
	}
	if addr.Port != 3000 || !addr.IP.Equal(src.IP) {
		t.Errorf("Bad candidate %v", addr)
	}

	// Wrong password byte
	bad := protocol.Code{Port: 3000, Pass: 43}
	if _, err := s.candidate([]byte(bad.String()), src); err == nil {
		t.Error("Candidate with wrong password byte accepted")
	}

	// Malformed datagrams
	for _, data := range [][]byte{nil, {0x0b, 0xb8}, []byte("07d0"), []byte("07d02aff")} {
		if _, err := s.candidate(data, src); err == nil {
			t.Errorf("Malformed datagram %x accepted", data)
		}
	}
}

// fakeBeacon records sent datagrams.
type fakeBeacon struct {
	sent chan []byte
}

func (f *fakeBeacon) Serve(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }
func (f *fakeBeacon) String() string                  { return "fakeBeacon" }
func (f *fakeBeacon) Error() error                    { return nil }
func (f *fakeBeacon) Send(data []byte)                { f.sent <- data }
func (f *fakeBeacon) Recv(ctx context.Context) ([]byte, net.Addr, error) {
	<-ctx.Done()
	return nil, nil, ctx.Err()
}

func TestAnnouncerStopsOnCancel(t *testing.T) {
	fb := &fakeBeacon{sent: make(chan []byte, announceTries)}
	a := NewAnnouncer(fb, protocol.Code{Port: 3000, Pass: 42})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	select {
	case data := <-fb.sent:
		if string(data) != "0bb82a" {
			t.Errorf("Bad announcement %q", data)
		}
	case <-time.After(time.Second):
		t.Fatal("No announcement sent")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Error("Expected context.Canceled, got", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Announcer did not stop")
	}
}

func TestAnnouncerExhaustsTries(t *testing.T) {
	fb := &fakeBeacon{sent: make(chan []byte, announceTries)}
	a := NewAnnouncer(fb, protocol.Code{Port: 3000, Pass: 42})
	a.interval = 10 * time.Millisecond

	start := time.Now()
	err := a.Serve(context.Background())
	elapsed := time.Since(start)

	var ferr *svcutil.FatalErr
	if !errors.As(err, &ferr) {
		t.Fatal("Expected FatalErr, got", err)
	}
	if ferr.Status != svcutil.ExitError {
		t.Error("Expected ExitError status, got", ferr.Status)
	}
	if got := len(fb.sent); got != announceTries {
		t.Errorf("Sent %d announcements, expected %d", got, announceTries)
	}
	// The first announcement goes out immediately, then one per interval,
	// and the last one is given its full window before giving up.
	if min := time.Duration(announceTries) * a.interval; elapsed < min {
		t.Errorf("Gave up after %v, expected at least %v", elapsed, min)
	}
}
