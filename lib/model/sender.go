// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/landrop/landrop/lib/config"
	"github.com/landrop/landrop/lib/events"
	"github.com/landrop/landrop/lib/protocol"
)

// A Sender drives an established session: it walks the configured paths,
// streams file content, sends the optional message and disconnects. It is
// the active side; every request except content frames waits for the
// correlated reply before the next step.
type Sender struct {
	conn     net.Conn
	cfg      config.SendConfig
	evLogger *events.Logger
	ids      *idCounter
}

func NewSender(conn net.Conn, cfg config.SendConfig, evLogger *events.Logger) *Sender {
	return &Sender{
		conn:     conn,
		cfg:      cfg,
		evLogger: evLogger,
		ids:      newIDCounter(),
	}
}

// Run performs the whole transfer and emits Done on success. An error
// return means the session died and the process should exit non-zero.
func (s *Sender) Run(ctx context.Context) error {
	for _, path := range s.cfg.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.sendPath(path); err != nil {
			return err
		}
	}
	if s.cfg.Message != "" {
		if err := s.sendMessage(s.cfg.Message); err != nil {
			return err
		}
	}
	if err := s.disconnect(); err != nil {
		return err
	}
	s.evLogger.Log(events.Done, nil)
	return nil
}

func (s *Sender) sendPath(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	switch {
	case info.Mode().IsRegular():
		return s.sendFile(path, uint64(info.Size()))
	case info.IsDir():
		return s.sendDir(path)
	default:
		// Symlinks and special files are not transferred.
		s.evLogger.Log(events.Error, fmt.Sprintf("Skipping %q: not a regular file or directory", path))
		return nil
	}
}

// request sends one instruction with a fresh id and waits for the
// correlated reply. It returns the accept/refuse outcome and the optional
// detail string; a RequestError or an unknown reply is an error.
func (s *Sender) request(op protocol.Operation, payload []byte) (bool, string, error) {
	id := s.ids.next()
	if err := protocol.Send(s.conn, id, op, payload); err != nil {
		return false, "", err
	}
	return s.awaitReply(id)
}

func (s *Sender) awaitReply(id uint16) (bool, string, error) {
	reply, err := protocol.ReadInstruction(s.conn)
	if err != nil {
		return false, "", err
	}
	detail, err := protocol.ReadDetail(s.conn, reply)
	if err != nil {
		return false, "", err
	}
	if reply.ID != id {
		return false, "", fmt.Errorf("wrong id in reply: got %d, expected %d", reply.ID, id)
	}

	switch reply.Op {
	case protocol.RequestSuccess:
		return true, detail, nil
	case protocol.RequestRefuse:
		return false, detail, nil
	case protocol.RequestError:
		return false, "", fmt.Errorf("request failed: %s", detail)
	default:
		return false, "", fmt.Errorf("unknown reply %v", reply.Op)
	}
}

func (s *Sender) sendFile(path string, size uint64) error {
	cf := currentFile{
		path: path,
		name: filepath.Base(path),
		size: size,
	}

	ok, detail, err := s.request(protocol.StartSendFile, []byte(cf.meta()))
	if err != nil {
		return err
	}
	if !ok {
		// The receiver skipped this file; carry on with the next one.
		s.evLogger.Log(events.Status, detail)
		return nil
	}

	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()

	buf := make([]byte, protocol.ChunkSize)
	for {
		n, err := fd.Read(buf)
		if n > 0 {
			id := s.ids.next()
			if err := protocol.Send(s.conn, id, protocol.SendFileContent, buf[:n]); err != nil {
				return err
			}
			cf.transmitted += uint64(n)
			s.evLogger.Log(events.Progress, cf.progress())
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	s.evLogger.Log(events.FileEnd, nil)

	ok, detail, err = s.request(protocol.EndSendFile, nil)
	if err != nil {
		return err
	}
	if !ok {
		s.evLogger.Log(events.Status, detail)
	}
	return nil
}

func (s *Sender) sendDir(path string) error {
	name := filepath.Base(path)
	s.evLogger.Log(events.Status, fmt.Sprintf("Start sending directory: %q", name))

	ok, detail, err := s.request(protocol.StartSendDir, []byte(name))
	if err != nil {
		return err
	}
	if !ok {
		// Whole subtree skipped.
		s.evLogger.Log(events.Status, detail)
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := s.sendPath(filepath.Join(path, entry.Name())); err != nil {
			return err
		}
	}

	ok, detail, err = s.request(protocol.EndSendDir, nil)
	if err != nil {
		return err
	}
	if !ok {
		s.evLogger.Log(events.Status, detail)
	}

	s.evLogger.Log(events.Status, fmt.Sprintf("Finish sending directory: %q", name))
	return nil
}

func (s *Sender) sendMessage(text string) error {
	ok, detail, err := s.request(protocol.SendMsg, []byte(text))
	if err != nil {
		return err
	}
	if !ok {
		s.evLogger.Log(events.Status, detail)
	}
	return nil
}

func (s *Sender) disconnect() error {
	ok, detail, err := s.request(protocol.Disconnect, nil)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("disconnect refused: " + detail)
	}
	return nil
}
