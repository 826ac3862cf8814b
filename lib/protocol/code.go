// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import "fmt"

// CodeLen is the length of a rendezvous code: four lowercase hex chars of
// port followed by two of password.
const CodeLen = 6

// A Code is the short rendezvous string typed by the receiving user and
// broadcast in announcement datagrams. It carries a UDP or TCP port and
// the one byte session password.
type Code struct {
	Port uint16
	Pass uint8
}

// String returns the six character lowercase hex form.
func (c Code) String() string {
	return fmt.Sprintf("%04x%02x", c.Port, c.Pass)
}

// ParseCode parses the six character lowercase hex form. Uppercase hex is
// rejected; the code is meant to be typed exactly as displayed.
func ParseCode(s string) (Code, error) {
	if len(s) != CodeLen {
		return Code{}, fmt.Errorf("%w: %d chars", errCodeFormat, len(s))
	}
	var val uint32
	for _, r := range s {
		var d uint32
		switch {
		case r >= '0' && r <= '9':
			d = uint32(r - '0')
		case r >= 'a' && r <= 'f':
			d = uint32(r-'a') + 10
		default:
			return Code{}, fmt.Errorf("%w: %q", errCodeFormat, s)
		}
		val = val<<4 | d
	}
	return Code{
		Port: uint16(val >> 8),
		Pass: uint8(val),
	}, nil
}
