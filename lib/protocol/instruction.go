// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package protocol implements the framed instruction protocol spoken over
// the session TCP connection, and the rendezvous code exchanged over UDP.
package protocol

import (
	"encoding/binary"
	"fmt"
)

type Operation uint8

const (
	// Requests, sender to receiver.
	Connect         Operation = 10  // optional password payload, needs reply
	StartSendFile   Operation = 20  // "size:<n>;name:<name>" payload, needs reply
	SendFileContent Operation = 21  // raw file bytes, fire and forget
	EndSendFile     Operation = 22  // needs reply
	StartSendDir    Operation = 30  // dir basename payload, needs reply
	EndSendDir      Operation = 31  // needs reply
	SendMsg         Operation = 40  // UTF-8 text payload, needs reply
	Disconnect      Operation = 100 // needs reply

	// Replies, receiver to sender. Optional UTF-8 detail payload.
	RequestSuccess Operation = 200
	RequestRefuse  Operation = 201
	RequestError   Operation = 202
)

func (o Operation) String() string {
	switch o {
	case Connect:
		return "Connect"
	case StartSendFile:
		return "StartSendFile"
	case SendFileContent:
		return "SendFileContent"
	case EndSendFile:
		return "EndSendFile"
	case StartSendDir:
		return "StartSendDir"
	case EndSendDir:
		return "EndSendDir"
	case SendMsg:
		return "SendMsg"
	case Disconnect:
		return "Disconnect"
	case RequestSuccess:
		return "RequestSuccess"
	case RequestRefuse:
		return "RequestRefuse"
	case RequestError:
		return "RequestError"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(o))
	}
}

// IsReply returns true for the reply operations.
func (o Operation) IsReply() bool {
	switch o {
	case RequestSuccess, RequestRefuse, RequestError:
		return true
	}
	return false
}

func validOperation(code uint8) bool {
	switch Operation(code) {
	case Connect, StartSendFile, SendFileContent, EndSendFile,
		StartSendDir, EndSendDir, SendMsg, Disconnect,
		RequestSuccess, RequestRefuse, RequestError:
		return true
	}
	return false
}

// HeaderSize is the encoded size of an Instruction.
const HeaderSize = 8

// An Instruction is the header preceding every message on the session
// connection. When Buffer is set, exactly Length payload bytes follow the
// header on the wire.
type Instruction struct {
	ID     uint16
	Op     Operation
	Buffer bool
	Length uint32
}

func (ins Instruction) String() string {
	return fmt.Sprintf("{id:%d op:%v buffer:%t length:%d}", ins.ID, ins.Op, ins.Buffer, ins.Length)
}

// Encode returns the 8 byte wire form of the instruction.
func (ins Instruction) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:], ins.ID)
	buf[2] = uint8(ins.Op)
	if ins.Buffer {
		buf[3] = 1
	}
	binary.BigEndian.PutUint32(buf[4:], ins.Length)
	return buf
}

// DecodeInstruction parses an 8 byte header. Anything else is an error:
// wrong buffer size, an unknown operation code, or a payload length
// without the buffer flag.
func DecodeInstruction(buf []byte) (Instruction, error) {
	if len(buf) != HeaderSize {
		return Instruction{}, fmt.Errorf("%w: %d bytes", errHeaderSize, len(buf))
	}
	if !validOperation(buf[2]) {
		return Instruction{}, fmt.Errorf("%w: %d", errUnknownOperation, buf[2])
	}
	ins := Instruction{
		ID:     binary.BigEndian.Uint16(buf[0:]),
		Op:     Operation(buf[2]),
		Buffer: buf[3] == 1,
		Length: binary.BigEndian.Uint32(buf[4:]),
	}
	if ins.Length > 0 && !ins.Buffer {
		return Instruction{}, fmt.Errorf("%w: length %d without buffer flag", errHeaderMismatch, ins.Length)
	}
	return ins, nil
}
