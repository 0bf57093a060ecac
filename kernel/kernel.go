/*
 * ia32os - Kernel facade: wires process, terminal, keyboard, RTC and
 * the scheduler into one bootable state
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

// Package kernel assembles every subsystem spec.md describes into one
// bootable State: the filesystem reader, the paging manager, the
// terminal manager, the keyboard driver, the RTC, the PIT scheduler,
// and the process-control core. It plays the role emu/core.NewCPU plays
// in the teacher repo — the single constructor a CLI front end calls.
package kernel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/threeninetyone/ia32os/internal/event"
	"github.com/threeninetyone/ia32os/internal/fsimage"
	"github.com/threeninetyone/ia32os/internal/ioport"
	"github.com/threeninetyone/ia32os/internal/keyboard"
	"github.com/threeninetyone/ia32os/internal/paging"
	"github.com/threeninetyone/ia32os/internal/process"
	"github.com/threeninetyone/ia32os/internal/rtc"
	"github.com/threeninetyone/ia32os/internal/sched"
	"github.com/threeninetyone/ia32os/internal/terminal"
	"github.com/threeninetyone/ia32os/internal/videoram"
)

// SystemHz is the base simulated clock rate every periodic subsystem's
// event-list entries are scheduled against: the fastest permitted RTC
// rate (1024 Hz) divides it exactly; the 30 Hz PIT period is rounded
// down to SystemHz/PITHz = 1092 ticks (about 30.007 Hz).
const SystemHz = 32768

// PITHz is the scheduler's round-robin tick rate, per spec.md §4.9.
const PITHz = 30

// State is the live kernel: every subsystem plus the clock that drives
// their periodic ticks.
type State struct {
	FS       *fsimage.Image
	Pages    *paging.Manager
	Video    *videoram.Frame
	Terminal *terminal.Manager
	Keyboard *keyboard.Keyboard
	RTC      *rtc.RTC
	Sched    *sched.Scheduler
	Process  *process.Scheduler

	ports *ioport.Space
	pic   *ioport.PIC

	clockEvents *event.List
	rtcPeriod   int

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// New builds a kernel bound to the given filesystem image.
func New(fs *fsimage.Image) *State {
	pages := paging.NewManager()
	video := &videoram.Frame{}

	ports := ioport.NewSpace()
	pic := ioport.NewPIC()

	s := &State{FS: fs, Pages: pages, Video: video, ports: ports, pic: pic}

	s.Terminal = terminal.New(pages, video, s)
	s.Keyboard = keyboard.New(s.Terminal, ports, pic)
	s.Keyboard.SetRedrawHook(func(t int) {
		slog.Debug("ctrl+l: redraw requested", "terminal", t)
	})
	s.RTC = rtc.New(ports, pic)
	s.Process = process.New(fs, pages, s.Terminal, s.Keyboard, s.RTC.Ops())
	s.Process.Register("shell", shellProgram)
	s.Sched = sched.New(s.Terminal, s.Process, SystemHz/PITHz)

	s.clockEvents = event.NewList()
	s.armRTC()
	return s
}

// Boot launches terminal 0's root shell and starts the PIT scheduler,
// matching spec.md §2: "the system begins in the first terminal with a
// single shell process."
func (s *State) Boot() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.mu.Unlock()

	s.Sched.Start()
	go s.Process.LaunchShell(0)
}

// Stop halts the PIT scheduler's tick. It does not tear down any
// already-running process.
func (s *State) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()
	s.Sched.Stop()
}

// RunClock drives the kernel's simulated time at wall-clock speed,
// advancing one SystemHz tick every 1/SystemHz seconds until Stop is
// called. This is the hosted stand-in for the PIT and RTC actually
// firing as hardware interrupts.
func (s *State) RunClock() {
	period := time.Second / SystemHz
	if period <= 0 {
		period = time.Microsecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Advance(1)
		}
	}
}

// Advance moves the kernel's clock forward by n SystemHz ticks, firing
// any RTC tick and PIT tick events that have come due.
func (s *State) Advance(n int) {
	s.clockEvents.Advance(n)
	s.Sched.Advance(n)
}

func (s *State) armRTC() {
	period := SystemHz / int(s.RTC.Rate())
	if period < 1 {
		period = 1
	}
	s.clockEvents.Add(s, s.fireRTC, period, 0)
}

func (s *State) fireRTC(int) {
	s.RTC.Tick()
	s.armRTC()
}

// HandleScanCode is the simulated IRQ 1 entry point: a CLI front end
// reading real keystrokes calls this once per byte.
func (s *State) HandleScanCode(code byte) {
	s.Keyboard.HandleScanCode(code)
}

// SwitchTerminal is the simulated Alt+Fn entry point.
func (s *State) SwitchTerminal(t int) int {
	rc := s.Terminal.Switch(t)
	if rc == 0 {
		s.Keyboard.SetActiveTerminal(t)
	}
	return rc
}

// --- terminal.ProcessHost, satisfied by delegating to internal/process ---

func (s *State) SuspendCurrent(t int)    { s.Process.SuspendCurrent(t) }
func (s *State) ResumeProcess(pid int32) { s.Process.ResumeProcess(pid) }
func (s *State) LaunchShell(t int)       { s.Process.LaunchShell(t) }

// ProcessSnapshot is one live process's introspection row, used by the
// debug console's `ps` command.
type ProcessSnapshot struct {
	Pid       int32
	ParentPid int32
	Terminal  int
	Args      string
}

// Snapshot returns every live process's bookkeeping, grounded on
// emu/cpu's register-dump debug commands: a read-only view for
// operator tooling, never consulted by the kernel's own logic.
func (s *State) Snapshot() []ProcessSnapshot {
	var out []ProcessSnapshot
	for _, pid := range s.Process.CurrentProcessSnapshot() {
		pcb, ok := s.Process.PCB(pid)
		if !ok {
			continue
		}
		out = append(out, ProcessSnapshot{Pid: pcb.Pid, ParentPid: pcb.ParentPid, Terminal: pcb.Terminal, Args: pcb.Args})
	}
	return out
}

// ForegroundTerminal reports which terminal currently owns real video
// memory.
func (s *State) ForegroundTerminal() int {
	return s.Terminal.Foreground()
}
