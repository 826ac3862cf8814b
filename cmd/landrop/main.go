// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/landrop/landrop/lib/config"
	"github.com/landrop/landrop/lib/events"
	"github.com/landrop/landrop/lib/protocol"
	"github.com/landrop/landrop/lib/session"
	"github.com/landrop/landrop/lib/svcutil"
)

type CLI struct {
	Send sendCommand `cmd:"" help:"Send files, directories or a message to a peer on the local network"`
	Recv recvCommand `cmd:"" help:"Receive from a peer, using the code it displays"`
}

type sendCommand struct {
	Message  string   `short:"m" placeholder:"TEXT" help:"Text message to send after the files"`
	Password string   `short:"w" help:"Session password the receiver must present"`
	Port     uint16   `help:"UDP rendezvous port (default: assigned by the OS)"`
	Expire   uint8    `default:"10" placeholder:"MINUTES" help:"Minutes to wait for a connection"`
	Paths    []string `arg:"" optional:"" type:"existingpath" help:"Files and directories to send, in order"`
}

func (c *sendCommand) Run() error {
	cfg := config.SendConfig{
		Paths:         c.Paths,
		Message:       c.Message,
		Password:      c.Password,
		Port:          c.Port,
		ExpireMinutes: c.Expire,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return runSession(func(ctx context.Context, evLogger *events.Logger, _ chan<- string, _ <-chan string) error {
		return session.Send(ctx, cfg, evLogger)
	})
}

type recvCommand struct {
	Dir       string `short:"d" default:"." type:"existingdir" help:"Directory received items are placed in"`
	Overwrite string `short:"o" default:"ask" enum:"ask,overwrite,rename,skip" help:"What to do when a received name already exists"`
	Password  string `short:"w" help:"Session password to present to the sender"`
	Port      uint16 `help:"TCP session port (default: assigned by the OS)"`
	Expire    uint8  `default:"10" placeholder:"MINUTES" help:"Minutes to wait for a connection"`
	Code      string `arg:"" help:"Six character connection code displayed by the sender"`
}

func (c *recvCommand) Run() error {
	code, err := protocol.ParseCode(c.Code)
	if err != nil {
		return err
	}
	strategy, err := config.ParseStrategy(c.Overwrite)
	if err != nil {
		return err
	}

	cfg := config.RecvConfig{
		Code:          code,
		Dir:           c.Dir,
		Overwrite:     strategy,
		Password:      c.Password,
		Port:          c.Port,
		ExpireMinutes: c.Expire,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return runSession(func(ctx context.Context, evLogger *events.Logger, prompts chan<- string, replies <-chan string) error {
		return session.Recv(ctx, cfg, evLogger, prompts, replies)
	})
}

// runSession runs one session function with a terminal attached to its
// event bus, and blocks until both are finished. Session errors are
// reported on the terminal as Fatal events and returned wrapped in a
// FatalErr carrying the exit status.
func runSession(run func(context.Context, *events.Logger, chan<- string, <-chan string) error) error {
	evLogger := events.NewLogger()
	sub := evLogger.Subscribe(events.AllEvents)

	term := newTerminal(os.Stdin, os.Stdout, os.Stderr)
	pumpDone := make(chan struct{})
	go func() {
		term.pump(sub)
		close(pumpDone)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// After the first signal has cancelled the session, restore the
		// default handlers so a second one kills the process.
		<-ctx.Done()
		stop()
	}()

	err := run(ctx, evLogger, term.prompts, term.replies)
	if err != nil {
		evLogger.Log(events.Fatal, err.Error())
	}
	evLogger.Unsubscribe(sub)
	<-pumpDone

	if err != nil {
		return svcutil.AsFatalErr(err, svcutil.ExitError)
	}
	return nil
}

func main() {
	var cli CLI
	kongCtx := kong.Parse(&cli,
		kong.Name("landrop"),
		kong.Description("Ad hoc file and message transfer over the local network."),
		kong.UsageOnError(),
	)

	if err := kongCtx.Run(); err != nil {
		var ferr *svcutil.FatalErr
		if errors.As(err, &ferr) {
			// Already reported on the terminal.
			os.Exit(ferr.Status.AsInt())
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(svcutil.ExitError.AsInt())
	}
}
