// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/landrop/landrop/lib/config"
	"github.com/landrop/landrop/lib/events"
	"github.com/landrop/landrop/lib/protocol"
)

var errSessionAborted = errors.New("session aborted")

// A Receiver runs the receiving side of an established session: a
// dispatch loop that reacts to one instruction at a time until the sender
// disconnects.
type Receiver struct {
	conn     net.Conn
	cfg      config.RecvConfig
	evLogger *events.Logger

	// prompts and replies connect the acceptance policy to the user. A
	// question on prompts is always answered by exactly one reply; the
	// channels are unbuffered on the UI side so questions cannot be
	// lost. Both may be nil unless the Ask strategy is configured.
	prompts chan<- string
	replies <-chan string

	// dirs is the working directory stack; the base destination is the
	// bottom element and StartSendDir/EndSendDir push and pop.
	dirs    []string
	current currentFile
}

func NewReceiver(conn net.Conn, cfg config.RecvConfig, evLogger *events.Logger, prompts chan<- string, replies <-chan string) *Receiver {
	return &Receiver{
		conn:     conn,
		cfg:      cfg,
		evLogger: evLogger,
		prompts:  prompts,
		replies:  replies,
		dirs:     []string{cfg.Dir},
	}
}

func (r *Receiver) dir() string {
	return r.dirs[len(r.dirs)-1]
}

// Run dispatches instructions until Disconnect or an unrecoverable error.
// The current file descriptor is released on every exit path.
func (r *Receiver) Run() error {
	defer r.current.reset()

	for {
		ins, err := protocol.ReadInstruction(r.conn)
		if err != nil {
			return err
		}

		switch ins.Op {
		case protocol.StartSendFile:
			err = r.recvFileMeta(ins)
		case protocol.SendFileContent:
			err = r.recvFileContent(ins)
		case protocol.EndSendFile:
			err = r.recvFileEnd(ins)
		case protocol.StartSendDir:
			err = r.recvDir(ins)
		case protocol.EndSendDir:
			err = r.recvDirEnd(ins)
		case protocol.SendMsg:
			err = r.recvMsg(ins)
		case protocol.Disconnect:
			if err := protocol.Send(r.conn, ins.ID, protocol.RequestSuccess, nil); err != nil {
				return err
			}
			r.evLogger.Log(events.Done, nil)
			return nil
		default:
			return r.abort(ins, fmt.Sprintf("unexpected operation %v", ins.Op))
		}
		if err != nil {
			return err
		}
	}
}

// abort answers RequestError and terminates the session. Protocol
// violations and filesystem errors are not survivable: the sender treats
// RequestError as fatal, so we mirror that and stop too.
func (r *Receiver) abort(ins protocol.Instruction, detail string) error {
	protocol.Send(r.conn, ins.ID, protocol.RequestError, []byte(detail))
	return fmt.Errorf("%w: %s", errSessionAborted, detail)
}

// refuse answers RequestRefuse; the session continues.
func (r *Receiver) refuse(ins protocol.Instruction, detail string) error {
	return protocol.Send(r.conn, ins.ID, protocol.RequestRefuse, []byte(detail))
}

// itemName validates an incoming file or directory name. Anything that
// could escape the destination directory is a protocol violation.
func itemName(payload []byte) (string, error) {
	name := string(payload)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("illegal item name %q", name)
	}
	return name, nil
}

func (r *Receiver) recvFileMeta(ins protocol.Instruction) error {
	if r.current.fd != nil {
		return r.abort(ins, "Previous file not finished")
	}

	payload, err := protocol.ReadContent(r.conn, ins.Length)
	if err != nil {
		return err
	}
	size, rawName, err := parseMeta(string(payload))
	if err != nil {
		return r.abort(ins, err.Error())
	}
	name, err := itemName([]byte(rawName))
	if err != nil {
		return r.abort(ins, err.Error())
	}

	dest, _, err := r.resolveDest(name, false)
	if err != nil {
		return r.abort(ins, err.Error())
	}
	if dest == "" {
		l.Debugln("skipping file", name)
		return r.refuse(ins, "File refused: user chose skip")
	}

	// Truncate rather than overwrite in place, so a shorter incoming
	// file does not leave stale bytes at the tail.
	fd, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return r.abort(ins, err.Error())
	}

	r.current = currentFile{
		fd:   fd,
		path: dest,
		name: name,
		size: size,
	}
	l.Debugf("receiving file %q (%d bytes) into %q", name, size, dest)
	return protocol.Send(r.conn, ins.ID, protocol.RequestSuccess, nil)
}

func (r *Receiver) recvFileContent(ins protocol.Instruction) error {
	if r.current.fd == nil {
		return r.abort(ins, "No file in progress")
	}
	// Content frames are not acknowledged, so a write error surfaces as
	// an abort on the next acknowledged instruction at the latest; here we
	// just stop reading.
	if _, err := io.CopyN(r.current.fd, r.conn, int64(ins.Length)); err != nil {
		return err
	}
	r.current.transmitted += uint64(ins.Length)
	r.evLogger.Log(events.Progress, r.current.progress())
	return nil
}

func (r *Receiver) recvFileEnd(ins protocol.Instruction) error {
	if r.current.fd == nil {
		return r.abort(ins, "No file in progress")
	}
	r.current.reset()
	r.evLogger.Log(events.FileEnd, nil)
	return protocol.Send(r.conn, ins.ID, protocol.RequestSuccess, nil)
}

func (r *Receiver) recvDir(ins protocol.Instruction) error {
	payload, err := protocol.ReadContent(r.conn, ins.Length)
	if err != nil {
		return err
	}
	name, err := itemName(payload)
	if err != nil {
		return r.abort(ins, err.Error())
	}

	dest, needsCreate, err := r.resolveDest(name, true)
	if err != nil {
		return r.abort(ins, err.Error())
	}
	if dest == "" {
		l.Debugln("skipping directory", name)
		return r.refuse(ins, "Directory refused: user chose skip")
	}
	if needsCreate {
		if err := os.Mkdir(dest, 0o755); err != nil {
			return r.abort(ins, err.Error())
		}
	}

	r.dirs = append(r.dirs, dest)
	l.Debugln("entered directory", dest)
	return protocol.Send(r.conn, ins.ID, protocol.RequestSuccess, nil)
}

func (r *Receiver) recvDirEnd(ins protocol.Instruction) error {
	if len(r.dirs) == 1 {
		return r.abort(ins, "EndSendDir without matching StartSendDir")
	}
	done := r.dir()
	r.dirs = r.dirs[:len(r.dirs)-1]
	r.evLogger.Log(events.Status, fmt.Sprintf("Finish receiving directory: %q", filepath.Base(done)))
	return protocol.Send(r.conn, ins.ID, protocol.RequestSuccess, nil)
}

func (r *Receiver) recvMsg(ins protocol.Instruction) error {
	payload, err := protocol.ReadContent(r.conn, ins.Length)
	if err != nil {
		return err
	}
	r.evLogger.Log(events.Status, fmt.Sprintf("Message received: %q", string(payload)))
	return protocol.Send(r.conn, ins.ID, protocol.RequestSuccess, nil)
}
