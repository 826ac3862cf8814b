// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package events provides the event bus between the transfer core and the
// user interface.
package events

import (
	"errors"
	"time"

	"github.com/landrop/landrop/lib/sync"
)

type EventType int

const (
	// Status is a human readable line describing session progress, such as
	// the connection code or an accepted connection.
	Status EventType = 1 << iota
	// Progress is the current transfer progress line for the file in
	// flight. The UI may rewrite it in place.
	Progress
	// FileEnd marks the end of the file currently in flight.
	FileEnd
	// Error is a recoverable error; the session continues.
	Error
	// Fatal terminates the session with a non-zero exit status.
	Fatal
	// TimeLeft carries the number of seconds remaining until the connect
	// deadline, emitted once per second while waiting.
	TimeLeft
	// Done marks the clean end of the session.
	Done

	AllEvents = (1 << iota) - 1
)

func (t EventType) String() string {
	switch t {
	case Status:
		return "Status"
	case Progress:
		return "Progress"
	case FileEnd:
		return "FileEnd"
	case Error:
		return "Error"
	case Fatal:
		return "Fatal"
	case TimeLeft:
		return "TimeLeft"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

const BufferSize = 64

type Event struct {
	// Per-subscription sequential event ID.
	SubscriptionID int
	// Global ID of the event across all subscriptions
	GlobalID int
	Time     time.Time
	Type     EventType
	Data     interface{}
}

type Logger struct {
	subs                []*Subscription
	nextSubscriptionIDs []int
	nextGlobalID        int
	mutex               sync.Mutex
}

type Subscription struct {
	mask    EventType
	events  chan Event
	timeout *time.Timer
}

var (
	ErrTimeout = errors.New("timeout")
	ErrClosed  = errors.New("closed")
)

func NewLogger() *Logger {
	return &Logger{
		mutex: sync.NewMutex(),
	}
}

func (l *Logger) Log(t EventType, data interface{}) {
	l.mutex.Lock()
	dl.Debugln("log", l.nextGlobalID, t, data)
	l.nextGlobalID++

	e := Event{
		GlobalID: l.nextGlobalID,
		Time:     time.Now(),
		Type:     t,
		Data:     data,
	}

	for i, s := range l.subs {
		if s.mask&t != 0 {
			e.SubscriptionID = l.nextSubscriptionIDs[i]
			l.nextSubscriptionIDs[i]++

			select {
			case s.events <- e:
			default:
				// if s.events is not ready, drop the event
			}
		}
	}
	l.mutex.Unlock()
}

func (l *Logger) Subscribe(mask EventType) *Subscription {
	l.mutex.Lock()
	dl.Debugln("subscribe", mask)

	s := &Subscription{
		mask:    mask,
		events:  make(chan Event, BufferSize),
		timeout: time.NewTimer(0),
	}

	// We need to create the timeout timer in the stopped, non-fired state so
	// that Subscription.Poll() can safely reset it and select on the timeout
	// channel. This ensures the timer is stopped and the channel drained.
	if !s.timeout.Stop() {
		<-s.timeout.C
	}

	l.subs = append(l.subs, s)
	l.nextSubscriptionIDs = append(l.nextSubscriptionIDs, 1)
	l.mutex.Unlock()
	return s
}

func (l *Logger) Unsubscribe(s *Subscription) {
	l.mutex.Lock()
	dl.Debugln("unsubscribe")
	for i, ss := range l.subs {
		if s == ss {
			last := len(l.subs) - 1

			l.subs[i] = l.subs[last]
			l.subs[last] = nil
			l.subs = l.subs[:last]

			l.nextSubscriptionIDs[i] = l.nextSubscriptionIDs[last]
			l.nextSubscriptionIDs[last] = 0
			l.nextSubscriptionIDs = l.nextSubscriptionIDs[:last]

			break
		}
	}
	close(s.events)
	l.mutex.Unlock()
}

// Poll returns an event from the subscription or an error if the poll times
// out or the event channel is closed. Poll should not be called concurrently
// from multiple goroutines for a single subscription.
func (s *Subscription) Poll(timeout time.Duration) (Event, error) {
	dl.Debugln("poll", timeout)

	s.timeout.Reset(timeout)

	select {
	case e, ok := <-s.events:
		if !ok {
			return e, ErrClosed
		}
		if !s.timeout.Stop() {
			// The timeout must be stopped and possibly drained to be ready
			// for reuse in the next call.
			<-s.timeout.C
		}
		return e, nil
	case <-s.timeout.C:
		return Event{}, ErrTimeout
	}
}

func (s *Subscription) C() <-chan Event {
	return s.events
}
