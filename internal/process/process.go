/*
 * ia32os - Process control block, execute/halt, and file-descriptor wiring
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

// Package process implements the process-control core: the 8-slot PCB
// pool, Execute/Halt, and the syscall surface a registered program runs
// under. There is no ring 3 to drop to in a hosted Go binary, so "user
// mode" is simulated: Execute spawns a goroutine running a registered
// Go function standing in for the loaded ELF's behavior, and blocks
// reading a channel that Halt writes to — the channel receive is the
// `execute_return` label of the original assembly, expressed as a Go
// handshake instead of a jump target.
package process

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/threeninetyone/ia32os/internal/devops"
	"github.com/threeninetyone/ia32os/internal/fdtable"
	"github.com/threeninetyone/ia32os/internal/fsimage"
	"github.com/threeninetyone/ia32os/internal/keyboard"
	"github.com/threeninetyone/ia32os/internal/paging"
	"github.com/threeninetyone/ia32os/internal/terminal"
)

const (
	// MaxProcs is the maximum number of concurrently live processes.
	MaxProcs = 8
	// MaxArgs is the largest argument string execute will store.
	MaxArgs = 128

	// UserLoadAddr is the fixed virtual address a program's bytes load at.
	UserLoadAddr = 0x08048000
	// UserStackTop is the user stack's initial pointer: just below the
	// top of the 4 MiB user-program page.
	UserStackTop = 0x08400000

	// KernelStackSize is the per-process kernel stack reservation used
	// by the esp0 formula.
	KernelStackSize = 8 * 1024
)

// ProgramFunc is the simulated "ELF entry point": a registered Go
// function invoked under a live PCB's bookkeeping. It must eventually
// call Proc.Halt; a function that returns without halting is halted
// with status 0 on its behalf.
type ProgramFunc func(p *Proc)

// PCB is the per-process control block, holding exactly the fields a
// process's control state requires. saved_kernel_sp/bp and
// preempt_sp/bp have no literal stack to point into in a hosted
// simulation, so they are modeled as
// the bookkeeping fields below rather than raw integers; they occupy
// the same structural role and are what tests assert over.
type PCB struct {
	Pid            int32
	ParentPid      int32
	Terminal       int
	Args           string
	FD             fdtable.Table
	KernelStackTop uint32
	Preempted      bool

	haltCh chan int32
}

// ErrNoProgram is returned when the filesystem entry validates as an
// executable but no ProgramFunc is registered for its name — the
// simulation's analogue of "the CPU has nothing to fetch."
type ErrNoProgram struct{ Name string }

func (e ErrNoProgram) Error() string { return fmt.Sprintf("process: no registered program %q", e.Name) }

// Scheduler owns the process-slot pool and every subsystem Execute/Halt
// must touch: the filesystem, the paging manager, the terminal manager,
// and the keyboard driver supplying stdin. Every mutation to the pool or
// to terminal.current_process happens under mu, standing in for the
// "interrupts disabled" critical sections a real kernel would use here.
type Scheduler struct {
	mu    sync.Mutex
	procs [MaxProcs]*PCB

	fs       *fsimage.Image
	pages    *paging.Manager
	term     *terminal.Manager
	keyboard *keyboard.Keyboard

	fileOps *devops.Table
	dirOps  *devops.Table
	rtcOps  *devops.Table

	registry map[string]ProgramFunc

	exceptionLatched bool
}

// New builds a Scheduler. rtcOps is supplied by the caller (internal/rtc)
// since the RTC device is owned by the kernel façade, not this package.
func New(fs *fsimage.Image, pages *paging.Manager, term *terminal.Manager, kb *keyboard.Keyboard, rtcOps *devops.Table) *Scheduler {
	s := &Scheduler{
		fs:       fs,
		pages:    pages,
		term:     term,
		keyboard: kb,
		rtcOps:   rtcOps,
		registry: make(map[string]ProgramFunc),
	}
	s.fileOps = fileOps(fs)
	s.dirOps = dirOps(fs)
	return s
}

// Register binds name (as found by the filesystem reader) to the Go
// function standing in for its ELF behavior. Programs not registered
// here cannot be launched even if present in the filesystem image,
// mirroring "the CPU fetches and executes the loaded bytes" with
// nothing to fetch.
func (s *Scheduler) Register(name string, fn ProgramFunc) {
	s.mu.Lock()
	s.registry[name] = fn
	s.mu.Unlock()
}

// stdoutOps returns the stdout_ops table for terminal t: every write
// lands on that terminal's screen via internal/terminal.WriteOutput,
// the simulation's stand-in for the VGA putc/scroll primitives left
// unspecified here.
func stdoutOps(term *terminal.Manager, t int) *devops.Table {
	return &devops.Table{
		Kind:  devops.KindStdout,
		Open:  func(string, *devops.Slot) error { return nil },
		Read:  func(*devops.Slot, []byte) int32 { return -1 },
		Write: func(_ *devops.Slot, buf []byte) int32 { return term.WriteOutput(t, buf) },
		Close: func(*devops.Slot) int32 { return -1 },
	}
}

// fileOps binds a regular file's four operations to the filesystem
// reader: open looks the name up and requires TypeRegular, read walks
// fs.ReadData from the slot's cursor, write always fails per spec.md's
// read-only filesystem.
func fileOps(fs *fsimage.Image) *devops.Table {
	return &devops.Table{
		Kind: devops.KindFile,
		Open: func(name string, slot *devops.Slot) error {
			typ, inode, err := fs.LookupByName(name)
			if err != nil || typ != fsimage.TypeRegular {
				return fmt.Errorf("process: %q is not a regular file", name)
			}
			slot.Inode = inode
			slot.Cursor = 0
			return nil
		},
		Read: func(slot *devops.Slot, buf []byte) int32 {
			n := fs.ReadData(slot.Inode, slot.Cursor, buf)
			if n < 0 {
				return -1
			}
			slot.Cursor += uint32(n)
			return int32(n)
		},
		Write: func(*devops.Slot, []byte) int32 { return -1 },
		Close: func(*devops.Slot) int32 { return 0 },
	}
}

// dirOps binds a directory's open/read: each read call yields one
// dentry name and advances the slot's cursor by one index, per spec.md
// §4.3's "successive directory-read calls yield one name per call."
func dirOps(fs *fsimage.Image) *devops.Table {
	return &devops.Table{
		Kind: devops.KindDirectory,
		Open: func(name string, slot *devops.Slot) error {
			typ, inode, err := fs.LookupByName(name)
			if err != nil || typ != fsimage.TypeDirectory {
				return fmt.Errorf("process: %q is not a directory", name)
			}
			slot.Inode = inode
			slot.Cursor = 0
			return nil
		},
		Read: func(slot *devops.Slot, buf []byte) int32 {
			d, ok := fs.LookupByIndex(int(slot.Cursor))
			if !ok {
				return 0
			}
			slot.Cursor++
			return int32(copy(buf, d.Name))
		},
		Write:  func(*devops.Slot, []byte) int32 { return -1 },
		Close:  func(*devops.Slot) int32 { return 0 },
	}
}

// ValidateELF checks the 4-byte signature {0x7F,'E','L','F'} and
// extracts the little-endian 32-bit entry point at byte offset 24, per
// spec.md §4.7 step 3. data must hold at least the first 28 bytes of
// the candidate executable.
func ValidateELF(data []byte) (entry uint32, ok bool) {
	if len(data) < 28 {
		return 0, false
	}
	if data[0] != 0x7F || data[1] != 'E' || data[2] != 'L' || data[3] != 'F' {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data[24:28]), true
}

// splitCommand separates a command line into the program name (ending
// at the first space) and the remaining argument string with leading
// spaces stripped, per spec.md §4.7 step 1.
func splitCommand(command string) (name, args string) {
	idx := strings.IndexByte(command, ' ')
	if idx < 0 {
		return command, ""
	}
	return command[:idx], strings.TrimLeft(command[idx+1:], " ")
}

func computeKernelStackTop(pid int32) uint32 {
	return uint32(paging.UserPhysBase) - uint32(pid)*KernelStackSize - 4
}

func (s *Scheduler) allocSlot() int32 {
	for i := 0; i < MaxProcs; i++ {
		if s.procs[i] == nil {
			return int32(i)
		}
	}
	return -1
}

// Execute implements spec.md §4.7's ten steps. callerPid is -1 for a
// terminal's root shell (launched internally, not by a user process);
// term is the terminal the new process's stdin/stdout bind to and whose
// current_process this call updates.
func (s *Scheduler) Execute(callerPid int32, command string, term int) int32 {
	if command == "" {
		return -1
	}
	name, args := splitCommand(command)
	if len(args) > MaxArgs {
		args = args[:MaxArgs]
	}
	if name == "" {
		return -1
	}

	typ, inode, err := s.fs.LookupByName(name)
	if err != nil || typ != fsimage.TypeRegular {
		return -1
	}

	header := make([]byte, 28)
	n := s.fs.ReadData(inode, 0, header)
	if n < 28 {
		return -1
	}
	if _, ok := ValidateELF(header); !ok {
		return -1
	}

	s.mu.Lock()
	pid := s.allocSlot()
	if pid == -1 {
		s.mu.Unlock()
		return -1
	}
	parentPid := callerPid
	pcb := &PCB{
		Pid:       pid,
		ParentPid: parentPid,
		Terminal:  term,
		Args:      args,
		haltCh:    make(chan int32, 1),
	}
	pcb.FD.Init(s.keyboard.Ops(term), stdoutOps(s.term, term))
	pcb.KernelStackTop = computeKernelStackTop(pid)
	s.procs[pid] = pcb
	fn, registered := s.registry[name]
	s.mu.Unlock()

	if !registered {
		s.mu.Lock()
		s.procs[pid] = nil
		s.mu.Unlock()
		return -1
	}

	s.pages.InstallProcessPage(int(pid))
	s.term.SetCurrentProcess(term, pid)

	slog.Debug("process execute", "pid", pid, "parent", parentPid, "name", name, "terminal", term)

	proc := &Proc{sched: s, pid: pid}
	go func() {
		fn(proc)
		// A program that returns without calling Halt is halted on its
		// behalf so Execute's caller is never left blocked forever.
		s.Halt(pid, 0)
	}()

	status := <-pcb.haltCh
	return status
}

// Halt implements spec.md §4.7's halt algorithm. It is invoked by
// Proc.Halt from inside the halting process's own goroutine.
func (s *Scheduler) Halt(pid int32, status int32) {
	s.mu.Lock()
	pcb := s.procs[pid]
	if pcb == nil {
		s.mu.Unlock()
		return
	}
	pcb.FD.CloseAll()

	// The extended-status sentinel 256 is not OR'd onto the passed
	// status: an exception bypasses the normal 8-bit status entirely,
	// matching spec.md §8's literal "or 256 if an exception latched"
	// (a halt(255) issued by the exception handler does not become
	// 255|256=511; the parent sees exactly 256).
	extended := status & 0xFF
	if s.exceptionLatched {
		extended = 256
		s.exceptionLatched = false
	}

	isRoot := pcb.ParentPid == -1
	term := pcb.Terminal
	parent := pcb.ParentPid
	s.procs[pid] = nil
	s.mu.Unlock()

	slog.Debug("process halt", "pid", pid, "status", extended, "terminal", term)

	if isRoot {
		// spec.md: a terminal's root shell restarts itself and this call
		// never returns; the restart is a recursive Execute, exactly as
		// the original assembly's recursive call into execute("shell").
		s.Execute(-1, "shell", term)
		return
	}

	s.term.SetCurrentProcess(term, parent)
	if parent >= 0 {
		s.pages.InstallProcessPage(int(parent))
		s.mu.Lock()
		if ppcb := s.procs[parent]; ppcb != nil {
			ppcb.KernelStackTop = computeKernelStackTop(parent)
		}
		s.mu.Unlock()
	}

	pcb.haltCh <- extended
}

// Fault simulates a fatal exception (spec.md §7): latches the exception
// flag and halts the faulting process with status 255, so its parent
// observes extended status 256. No driver in this simulation raises a
// spontaneous CPU exception; this is the hook a test or an
// instrumented ProgramFunc calls to exercise the path.
func (s *Scheduler) Fault(pid int32, name string) {
	slog.Warn("fatal exception", "pid", pid, "exception", name)
	s.mu.Lock()
	s.exceptionLatched = true
	s.mu.Unlock()
	s.Halt(pid, 255)
	runtime.Goexit()
}

// CurrentProcessSnapshot returns a copy of the live PCB pids, for the
// debug console's `ps` command.
func (s *Scheduler) CurrentProcessSnapshot() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int32
	for _, p := range s.procs {
		if p != nil {
			out = append(out, p.Pid)
		}
	}
	return out
}

// PCB returns a copy of the live PCB for pid, for introspection and
// tests. ok is false if the slot is not currently in use.
func (s *Scheduler) PCB(pid int32) (PCB, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pid < 0 || int(pid) >= MaxProcs || s.procs[pid] == nil {
		return PCB{}, false
	}
	return *s.procs[pid], true
}

// --- terminal.ProcessHost implementation ---

// SuspendCurrent captures that terminal t's current process is being
// preempted by a terminal switch. There is no real kernel stack to
// save in a hosted simulation — the goroutine keeps running — so this
// call only updates the bookkeeping flag spec.md's preempt_sp/bp
// fields exist to represent.
func (s *Scheduler) SuspendCurrent(t int) {
	pid := s.term.CurrentProcess(t)
	if pid < 0 {
		return
	}
	s.mu.Lock()
	if pcb := s.procs[pid]; pcb != nil {
		pcb.Preempted = true
	}
	s.mu.Unlock()
}

// ResumeProcess reinstalls pid's page, rewrites its TSS kernel-stack
// top, and clears its preempted flag.
func (s *Scheduler) ResumeProcess(pid int32) {
	if pid < 0 {
		return
	}
	s.pages.InstallProcessPage(int(pid))
	s.mu.Lock()
	if pcb := s.procs[pid]; pcb != nil {
		pcb.KernelStackTop = computeKernelStackTop(pid)
		pcb.Preempted = false
	}
	s.mu.Unlock()
}

// LaunchShell runs execute("shell") for terminal t. Per spec.md §4.6
// step 10 this does not return: the root shell keeps restarting itself
// via Halt's recursive Execute call for as long as the kernel runs.
func (s *Scheduler) LaunchShell(t int) {
	s.Execute(-1, "shell", t)
}
