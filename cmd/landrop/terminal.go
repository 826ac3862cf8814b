// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/landrop/landrop/lib/events"
)

// A terminal turns session events into lines on stdout and stderr, and
// answers questions arriving on the prompt channel with lines read from
// stdin. Progress and countdown events rewrite the current line in place.
type terminal struct {
	stdin   *bufio.Reader
	stdout  io.Writer
	stderr  io.Writer
	prompts chan string
	replies chan string

	// lineDirty is set while the current terminal line holds a \r
	// rewritten progress or countdown line.
	lineDirty bool
}

func newTerminal(stdin io.Reader, stdout, stderr io.Writer) *terminal {
	return &terminal{
		stdin:   bufio.NewReader(stdin),
		stdout:  stdout,
		stderr:  stderr,
		prompts: make(chan string),
		replies: make(chan string),
	}
}

// pump consumes events and prompts until the subscription is closed.
// Prompts travel on their own unbuffered channel rather than the event
// bus, so a full subscription buffer cannot drop a question the session
// is waiting on.
func (t *terminal) pump(sub *events.Subscription) {
	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			t.render(ev)

		case question := <-t.prompts:
			t.freshLine()
			fmt.Fprint(t.stdout, question)
			line, err := t.stdin.ReadString('\n')
			if err != nil && line == "" {
				t.replies <- ""
				continue
			}
			t.replies <- strings.TrimSpace(line)
		}
	}
}

func (t *terminal) render(ev events.Event) {
	switch ev.Type {
	case events.Status:
		t.println(ev.Data)

	case events.Progress:
		fmt.Fprintf(t.stdout, "\r%s", ev.Data)
		t.lineDirty = true

	case events.TimeLeft:
		fmt.Fprintf(t.stdout, "\rWaiting for connection, %ds left ", ev.Data)
		t.lineDirty = true

	case events.FileEnd:
		t.freshLine()

	case events.Error:
		t.freshLine()
		fmt.Fprintln(t.stderr, ev.Data)

	case events.Fatal:
		t.freshLine()
		fmt.Fprintln(t.stderr, ev.Data)

	case events.Done:
		t.println("Done.")
	}
}

func (t *terminal) println(v interface{}) {
	t.freshLine()
	fmt.Fprintln(t.stdout, v)
}

func (t *terminal) freshLine() {
	if t.lineDirty {
		fmt.Fprintln(t.stdout)
		t.lineDirty = false
	}
}
