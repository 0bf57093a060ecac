/*
 * ia32os - PIT round-robin scheduler
 *
 * Copyright 2026, The ia32os Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package sched implements a PIT-based round-robin scheduler that
// rotates a 30 Hz tick across the three terminal-rooted process chains:
// per-process preempt_sp/bp saved on every tick, vidmap routing a
// background terminal to its backing frame, and a TSS esp0 rewrite on
// every switch.
package sched

import (
	"log/slog"
	"sync"

	"github.com/threeninetyone/ia32os/internal/event"
	"github.com/threeninetyone/ia32os/internal/terminal"
)

// TickHz is the PIT rate this scheduler runs at.
const TickHz = 30

// Host is the process-control surface the scheduler rotates between,
// implemented by internal/process.Scheduler. Kept as an interface so
// this package does not import internal/process (process already wires
// internal/sched as a caller, were it to own the event loop — this
// keeps the dependency one-directional).
type Host interface {
	SuspendCurrent(t int)
	ResumeProcess(pid int32)
	LaunchShell(t int)
}

// Scheduler owns the delta-queue tick and the terminal being rotated to.
type Scheduler struct {
	mu        sync.Mutex
	events    *event.List
	term      *terminal.Manager
	host      Host
	current   int
	running   bool
	ticksUnit int // ticks of the caller's Advance() unit per PIT tick
}

// New builds a scheduler that begins rotating from terminal 0.
// ticksPerPIT lets the caller choose its own Advance() tick granularity
// (e.g. call Advance(1) at 1920 Hz and set ticksPerPIT=64 for a 30 Hz
// PIT, matching however internal/rtc's caller paces real time).
func New(term *terminal.Manager, host Host, ticksPerPIT int) *Scheduler {
	if ticksPerPIT <= 0 {
		ticksPerPIT = 1
	}
	return &Scheduler{events: event.NewList(), term: term, host: host, ticksUnit: ticksPerPIT}
}

// Start arms the first PIT tick. The scheduler stays armed until Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.events.Add(s, s.tick, s.ticksUnit, 0)
}

// Stop disarms the scheduler; a tick already in flight still fires once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.events.Cancel(s, 0)
}

// Advance moves the scheduler's clock forward by n of the caller's
// ticks, firing a PIT tick (and rotating terminals) whenever the
// configured period elapses.
func (s *Scheduler) Advance(n int) {
	s.events.Advance(n)
}

// Current reports which terminal's process chain is presently
// scheduled.
func (s *Scheduler) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// tick performs the three scheduling steps: save the outgoing process's
// preempt state, advance to the next terminal, and either lazily spawn
// a shell or reinstall the next process's page/TSS and resume it.
func (s *Scheduler) tick(int) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	outgoing := s.current
	next := (s.current + 1) % terminal.Count
	s.current = next
	s.mu.Unlock()

	s.host.SuspendCurrent(outgoing)

	if !s.term.Launched(next) {
		slog.Debug("sched: lazily launching shell for unvisited terminal", "terminal", next)
		go s.host.LaunchShell(next)
	} else {
		pid := s.term.CurrentProcess(next)
		s.host.ResumeProcess(pid)
	}

	s.mu.Lock()
	if s.running {
		s.events.Add(s, s.tick, s.ticksUnit, 0)
	}
	s.mu.Unlock()
}
