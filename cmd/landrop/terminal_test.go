// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/landrop/landrop/lib/events"
)

func TestTerminalOutput(t *testing.T) {
	evLogger := events.NewLogger()
	sub := evLogger.Subscribe(events.AllEvents)

	var stdout, stderr bytes.Buffer
	term := newTerminal(strings.NewReader(""), &stdout, &stderr)

	done := make(chan struct{})
	go func() {
		term.pump(sub)
		close(done)
	}()

	evLogger.Log(events.Status, "Connection established")
	evLogger.Log(events.Progress, `File: "a" Progress: 1.0KB/2.0KB`)
	evLogger.Log(events.Progress, `File: "a" Progress: 2.0KB/2.0KB`)
	evLogger.Log(events.FileEnd, nil)
	evLogger.Log(events.Error, "something recoverable")
	evLogger.Log(events.Fatal, "no connection in time")
	evLogger.Log(events.Done, nil)

	evLogger.Unsubscribe(sub)
	<-done

	out := stdout.String()
	if !strings.Contains(out, "Connection established\n") {
		t.Errorf("Missing status line in %q", out)
	}
	// Both progress updates rewrite the same line.
	if !strings.Contains(out, "\rFile: \"a\" Progress: 1.0KB/2.0KB\rFile: \"a\" Progress: 2.0KB/2.0KB\n") {
		t.Errorf("Bad progress rendering in %q", out)
	}
	if !strings.HasSuffix(out, "Done.\n") {
		t.Errorf("Missing final line in %q", out)
	}
	if stderr.String() != "something recoverable\nno connection in time\n" {
		t.Errorf("stderr == %q", stderr.String())
	}
}

func TestTerminalPrompt(t *testing.T) {
	evLogger := events.NewLogger()
	sub := evLogger.Subscribe(events.AllEvents)

	var stdout, stderr bytes.Buffer
	term := newTerminal(strings.NewReader("o\n"), &stdout, &stderr)

	done := make(chan struct{})
	go func() {
		term.pump(sub)
		close(done)
	}()

	term.prompts <- "Please choose: overwrite(o) | rename(r) | skip (s): "
	if got := <-term.replies; got != "o" {
		t.Errorf("Reply == %q, expected %q", got, "o")
	}

	evLogger.Unsubscribe(sub)
	<-done

	if !strings.Contains(stdout.String(), "Please choose") {
		t.Errorf("Prompt not shown: %q", stdout.String())
	}
}
