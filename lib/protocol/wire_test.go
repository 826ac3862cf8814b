// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestSendWithPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, 7, SendMsg, []byte("hej")); err != nil {
		t.Fatal(err)
	}

	ins, err := ReadInstruction(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if ins.ID != 7 || ins.Op != SendMsg || !ins.Buffer || ins.Length != 3 {
		t.Errorf("Bad header %v", ins)
	}

	content, err := ReadContent(&buf, ins.Length)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hej" {
		t.Errorf("Bad content %q", content)
	}
	if buf.Len() != 0 {
		t.Errorf("%d trailing bytes on the wire", buf.Len())
	}
}

func TestSendWithoutPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, 3, EndSendFile, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != HeaderSize {
		t.Fatalf("Wrote %d bytes, expected the bare header", buf.Len())
	}

	ins, err := ReadInstruction(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if ins.Buffer || ins.Length != 0 {
		t.Errorf("Bad header %v", ins)
	}
}

func TestReadInstructionShort(t *testing.T) {
	// A connection dying mid-header must surface as ErrClosed, not a
	// zero instruction.
	r := bytes.NewReader([]byte{0, 1, 10})
	if _, err := ReadInstruction(r); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on truncated header, got %v", err)
	}
}

func TestReadContentShort(t *testing.T) {
	r := bytes.NewReader([]byte("abc"))
	if _, err := ReadContent(r, 5); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on truncated content, got %v", err)
	}
}

func TestReadInstructionClosed(t *testing.T) {
	if _, err := ReadInstruction(bytes.NewReader(nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on empty stream, got %v", err)
	}
}

func TestReadDetail(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, 9, RequestRefuse, []byte("Invalid password")); err != nil {
		t.Fatal(err)
	}
	ins, err := ReadInstruction(&buf)
	if err != nil {
		t.Fatal(err)
	}
	detail, err := ReadDetail(&buf, ins)
	if err != nil {
		t.Fatal(err)
	}
	if detail != "Invalid password" {
		t.Errorf("Bad detail %q", detail)
	}

	// No payload, no read.
	detail, err = ReadDetail(iotestErrReader{}, Instruction{Op: RequestSuccess})
	if err != nil || detail != "" {
		t.Errorf("Bare reply: %q, %v", detail, err)
	}
}

type iotestErrReader struct{}

func (iotestErrReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
