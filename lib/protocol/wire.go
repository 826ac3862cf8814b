// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import (
	"errors"
	"fmt"
	"io"
)

const (
	// Shifts
	KiB = 10
	MiB = 20
)

// ChunkSize is the unit in which file content is streamed.
const ChunkSize = 8 << MiB

// Send writes one instruction header and, when payload is non-nil, the
// payload bytes directly after it. The buffer flag and length are derived
// from the payload. Writes on one connection must not be interleaved; the
// caller owns the connection until Send returns.
func Send(w io.Writer, id uint16, op Operation, payload []byte) error {
	ins := Instruction{
		ID:     id,
		Op:     op,
		Buffer: payload != nil,
		Length: uint32(len(payload)),
	}
	if _, err := w.Write(ins.Encode()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	metricSentMessages.Inc()
	metricSentBytes.Add(float64(HeaderSize))
	if payload != nil {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("writing payload: %w", err)
		}
		metricSentBytes.Add(float64(len(payload)))
	}
	l.Debugln("sent", ins)
	return nil
}

// ReadInstruction reads exactly one 8 byte header and decodes it. The
// payload, if any, is left on the wire for ReadContent.
func ReadInstruction(r io.Reader) (Instruction, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Instruction{}, fmt.Errorf("reading header: %w", closedOnEOF(err))
	}
	ins, err := DecodeInstruction(buf[:])
	if err != nil {
		return Instruction{}, err
	}
	metricRecvMessages.Inc()
	metricRecvBytes.Add(float64(HeaderSize))
	l.Debugln("received", ins)
	return ins, nil
}

// ReadContent reads exactly n payload bytes.
func ReadContent(r io.Reader, n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading %d content bytes: %w", n, closedOnEOF(err))
	}
	metricRecvBytes.Add(float64(n))
	return buf, nil
}

// closedOnEOF translates end-of-stream conditions into ErrClosed. The
// session ends with a Disconnect exchange, so running out of bytes always
// means the peer went away.
func closedOnEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrClosed
	}
	return err
}

// ReadDetail reads the optional UTF-8 detail payload of a reply.
func ReadDetail(r io.Reader, ins Instruction) (string, error) {
	if !ins.Buffer {
		return "", nil
	}
	buf, err := ReadContent(r, ins.Length)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
