// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import "errors"

var (
	ErrClosed = errors.New("connection closed")

	errHeaderSize       = errors.New("bad header size")
	errUnknownOperation = errors.New("unknown operation code")
	errHeaderMismatch   = errors.New("inconsistent header")
	errCodeFormat       = errors.New("bad rendezvous code")
)
