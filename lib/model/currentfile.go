// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// A currentFile tracks the file in flight. The receiver holds the open
// descriptor between StartSendFile and EndSendFile; the sender only uses
// the name, size and transmitted count for progress reporting.
type currentFile struct {
	fd          *os.File
	path        string
	name        string
	size        uint64
	transmitted uint64
}

// meta returns the StartSendFile payload.
func (f *currentFile) meta() string {
	return fmt.Sprintf("size:%d;name:%s", f.size, f.name)
}

// parseMeta splits a StartSendFile payload on ':' and ';' into exactly
// four tokens and returns the size and name.
func parseMeta(s string) (uint64, string, error) {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == ';'
	})
	if len(tokens) != 4 || tokens[0] != "size" || tokens[2] != "name" {
		return 0, "", fmt.Errorf("invalid meta string %q", s)
	}
	size, err := strconv.ParseUint(tokens[1], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid meta string %q: %w", s, err)
	}
	return size, tokens[3], nil
}

// progress returns the progress line for the UI.
func (f *currentFile) progress() string {
	return fmt.Sprintf("File: %q\t\tProgress: %s/%s", f.name, humanSize(f.transmitted), humanSize(f.size))
}

// reset closes the descriptor, if any, and zeroes the struct.
func (f *currentFile) reset() {
	if f.fd != nil {
		f.fd.Close()
	}
	*f = currentFile{}
}

// humanSize formats a byte count with one fractional digit and the
// largest base 1024 suffix in which the value is at least one.
func humanSize(size uint64) string {
	suffixes := []string{"B", "KB", "MB", "GB", "TB"}
	for i := len(suffixes) - 1; i > 0; i-- {
		if size>>(10*i) > 0 {
			return fmt.Sprintf("%.1f%s", float64(size)/float64(uint64(1)<<(10*i)), suffixes[i])
		}
	}
	return fmt.Sprintf("%dB", size)
}
