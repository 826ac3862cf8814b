// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config holds the per-session parameters for the sending and
// receiving endpoints.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/landrop/landrop/lib/protocol"
)

// A Strategy decides what happens when an incoming file or directory name
// collides with an existing one.
type Strategy int

const (
	Ask Strategy = iota
	Overwrite
	Rename
	Skip
)

func (s Strategy) String() string {
	switch s {
	case Ask:
		return "ask"
	case Overwrite:
		return "overwrite"
	case Rename:
		return "rename"
	case Skip:
		return "skip"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts the full strategy name or its first letter, which
// is also what the interactive prompt accepts.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "ask", "a":
		return Ask, nil
	case "overwrite", "o":
		return Overwrite, nil
	case "rename", "r":
		return Rename, nil
	case "skip", "s":
		return Skip, nil
	}
	return Ask, fmt.Errorf("unknown overwrite strategy %q", s)
}

// MaxPasswordLen bounds the handshake password; its length must fit the
// instruction header's payload length and stay sane to type.
const MaxPasswordLen = 255

// SendConfig is the sending endpoint's session configuration.
type SendConfig struct {
	// Paths holds the files and directories to send, in order.
	Paths []string
	// Message is an optional text message, sent after the files.
	Message string
	// Password is the optional handshake password.
	Password string
	// Port is the UDP port to listen for announcements on; zero means OS
	// assigned.
	Port uint16
	// ExpireMinutes is the connect deadline in minutes.
	ExpireMinutes uint8
}

func (c SendConfig) Validate() error {
	if len(c.Paths) == 0 && c.Message == "" {
		return errors.New("nothing to send: no paths and no message")
	}
	if len(c.Password) > MaxPasswordLen {
		return fmt.Errorf("password longer than %d bytes", MaxPasswordLen)
	}
	if c.ExpireMinutes == 0 {
		return errors.New("expire time must be at least one minute")
	}
	for _, p := range c.Paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("path %q: %w", p, err)
		}
	}
	return nil
}

// RecvConfig is the receiving endpoint's session configuration.
type RecvConfig struct {
	// Code is the sender's rendezvous code: its UDP port and the session
	// password byte.
	Code protocol.Code
	// Dir is the directory received items are placed under.
	Dir string
	// Overwrite is the conflict strategy.
	Overwrite Strategy
	// Password is the optional handshake password.
	Password string
	// Port is the TCP port to listen on; zero means OS assigned.
	Port uint16
	// ExpireMinutes is the connect deadline in minutes.
	ExpireMinutes uint8
}

func (c RecvConfig) Validate() error {
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("destination %q: %w", c.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination %q is not a directory", c.Dir)
	}
	if len(c.Password) > MaxPasswordLen {
		return fmt.Errorf("password longer than %d bytes", MaxPasswordLen)
	}
	if c.ExpireMinutes == 0 {
		return errors.New("expire time must be at least one minute")
	}
	return nil
}
