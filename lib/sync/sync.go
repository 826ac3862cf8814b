// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sync provides mutexes that can log slow lock/unlock cycles when
// debugging is enabled for the "sync" facility.
package sync

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

type Mutex interface {
	Lock()
	Unlock()
}

type RWMutex interface {
	Mutex
	RLock()
	RUnlock()
}

type WaitGroup interface {
	Add(int)
	Done()
	Wait()
}

func NewMutex() Mutex {
	if debug {
		return &loggedMutex{}
	}
	return &sync.Mutex{}
}

func NewRWMutex() RWMutex {
	if debug {
		return &loggedRWMutex{
			unlockers: make(chan holder, 1024),
		}
	}
	return &sync.RWMutex{}
}

func NewWaitGroup() WaitGroup {
	if debug {
		return &loggedWaitGroup{}
	}
	return &sync.WaitGroup{}
}

type holder struct {
	at   string
	time time.Time
	goid int
}

func (h holder) String() string {
	if h.at == "" {
		return "not held"
	}
	return fmt.Sprintf("at %s goid: %d for %s", h.at, h.goid, time.Since(h.time))
}

type loggedMutex struct {
	sync.Mutex
	holder holder
}

func (m *loggedMutex) Lock() {
	m.Mutex.Lock()
	m.holder = getHolder()
}

func (m *loggedMutex) Unlock() {
	currentHolder := m.holder
	duration := time.Since(currentHolder.time)
	if duration >= threshold {
		l.Debugf("Mutex held for %v. Locked at %s unlocked at %s", duration, currentHolder.at, getHolder().at)
	}
	m.holder = holder{}
	m.Mutex.Unlock()
}

type loggedRWMutex struct {
	sync.RWMutex
	holder    holder
	unlockers chan holder
}

func (m *loggedRWMutex) Lock() {
	start := time.Now()

	m.RWMutex.Lock()

	m.holder = getHolder()

	duration := m.holder.time.Sub(start)
	if duration > threshold {
		l.Debugf("RWMutex took %v to lock. Locked at %s. RUnlockers while locking: %s", duration, m.holder.at, holders(m.unlockers))
	}
}

func (m *loggedRWMutex) Unlock() {
	currentHolder := m.holder
	duration := time.Since(currentHolder.time)
	if duration >= threshold {
		l.Debugf("RWMutex held for %v. Locked at %s: unlocked at %s", duration, currentHolder.at, getHolder().at)
	}
	m.holder = holder{}
	m.RWMutex.Unlock()
}

func (m *loggedRWMutex) RUnlock() {
	select {
	case m.unlockers <- getHolder():
	default:
	}
	m.RWMutex.RUnlock()
}

type loggedWaitGroup struct {
	sync.WaitGroup
}

func (wg *loggedWaitGroup) Wait() {
	start := time.Now()
	wg.WaitGroup.Wait()
	duration := time.Since(start)
	if duration >= threshold {
		l.Debugf("WaitGroup took %v at %s", duration, getHolder())
	}
}

func getHolder() holder {
	_, file, line, _ := runtime.Caller(2)
	return holder{
		at:   fmt.Sprintf("%s:%d", file, line),
		goid: goid(),
		time: time.Now(),
	}
}

func holders(ch chan holder) string {
	out := ""
	for {
		select {
		case holder := <-ch:
			out += holder.String() + "\n"
		default:
			return out
		}
	}
}

func goid() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	idField := string(buf[:n])
	var id int
	if _, err := fmt.Sscanf(idField, "goroutine %d ", &id); err != nil {
		return -1
	}
	return id
}
