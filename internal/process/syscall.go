/*
 * ia32os - Process syscall surface and dispatch table
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

package process

import (
	"log/slog"
	"runtime"

	"github.com/threeninetyone/ia32os/internal/devops"
	"github.com/threeninetyone/ia32os/internal/fsimage"
	"github.com/threeninetyone/ia32os/internal/paging"
)

// Syscall numbers, exactly as spec.md §4.8 enumerates them.
const (
	SysHalt       = 1
	SysExecute    = 2
	SysRead       = 3
	SysWrite      = 4
	SysOpen       = 5
	SysClose      = 6
	SysGetArgs    = 7
	SysVidmap     = 8
	SysSetHandler = 9
	SysSigreturn  = 10
)

// Proc is the syscall surface a ProgramFunc runs under: the simulated
// analogue of the register-based ABI entered through interrupt vector
// 0x80 (accumulator = call number, three integer registers = args).
type Proc struct {
	sched *Scheduler
	pid   int32
}

// Pid returns the running process's own pid.
func (p *Proc) Pid() int32 { return p.pid }

func (p *Proc) pcb() *PCB {
	p.sched.mu.Lock()
	defer p.sched.mu.Unlock()
	return p.sched.procs[p.pid]
}

// Halt implements syscall 1. It never returns to its caller: it signals
// the blocked Execute() and unwinds this process's goroutine.
func (p *Proc) Halt(status int32) {
	p.sched.Halt(p.pid, status)
	runtime.Goexit()
}

// Execute implements syscall 2.
func (p *Proc) Execute(command string) int32 {
	pcb := p.pcb()
	if pcb == nil {
		return -1
	}
	return p.sched.Execute(p.pid, command, pcb.Terminal)
}

// Read implements syscall 3: validates fd/buf and dispatches to the
// bound device.
func (p *Proc) Read(fd int32, buf []byte) int32 {
	pcb := p.pcb()
	if pcb == nil {
		return -1
	}
	return pcb.FD.Read(fd, buf)
}

// Write implements syscall 4.
func (p *Proc) Write(fd int32, buf []byte) int32 {
	pcb := p.pcb()
	if pcb == nil {
		return -1
	}
	return pcb.FD.Write(fd, buf)
}

// Open implements syscall 5: looks the name up in the filesystem and
// dispatches to the type-specific open (rtc, file, or directory), per
// spec.md §4.3.
func (p *Proc) Open(name string) int32 {
	pcb := p.pcb()
	if pcb == nil {
		return -1
	}
	typ, _, err := p.sched.fs.LookupByName(name)
	if err != nil {
		return -1
	}
	var ops *devops.Table
	switch typ {
	case fsimage.TypeRTC:
		ops = p.sched.rtcOps
	case fsimage.TypeDirectory:
		ops = p.sched.dirOps
	case fsimage.TypeRegular:
		ops = p.sched.fileOps
	default:
		return -1
	}
	if ops == nil {
		return -1
	}
	return pcb.FD.Open(name, ops)
}

// Close implements syscall 6.
func (p *Proc) Close(fd int32) int32 {
	pcb := p.pcb()
	if pcb == nil {
		return -1
	}
	return pcb.FD.Close(fd)
}

// GetArgs implements syscall 7, copying the process's argument string
// plus a terminating NUL into buf. Per spec.md §9's open question, this
// resolves the ambiguous case explicitly: a copy that would consume
// every byte of buf (leaving no room for the NUL) fails with -1, even
// when buf is exactly len(args) bytes long.
func (p *Proc) GetArgs(buf []byte) int32 {
	pcb := p.pcb()
	if pcb == nil {
		return -1
	}
	if len(pcb.Args)+1 > len(buf) {
		return -1
	}
	n := copy(buf, pcb.Args)
	buf[n] = 0
	return 0
}

// Vidmap implements syscall 8: maps virt to whichever physical frame
// the process's terminal should currently expose — real video memory
// when that terminal is foreground, its own backing frame otherwise
// (so a scheduled background process never corrupts the visible
// screen) — and returns the fixed virtual address.
func (p *Proc) Vidmap() (virt uint32, status int32) {
	pcb := p.pcb()
	if pcb == nil {
		return 0, -1
	}
	phys := p.sched.term.VidmapTarget(pcb.Terminal)
	p.sched.pages.Map4K(paging.UserVideoVirt, phys)
	return paging.UserVideoVirt, 0
}

// SetHandler and Sigreturn implement syscalls 9 and 10: stubs, per
// spec.md's explicit non-goal ("the system-call numbers exist but are
// stubs").
func (p *Proc) SetHandler(int32) int32 { return -1 }
func (p *Proc) Sigreturn() int32       { return -1 }

// Args holds the syscall arguments Dispatch needs for whichever call
// number is invoked; unused fields are ignored. This stands in for the
// three integer-register arguments of the real ABI, since a hosted
// simulation has no raw pointers to decode into a filename or buffer.
type Args struct {
	Str    string
	Buf    []byte
	FD     int32
	Status int32
}

// Dispatch implements the vector-0x80 trampoline: validates num is in
// [1,10] and invokes the matching syscall, returning -1 for any other
// number. Ordinary Go callers use the Proc methods directly; Dispatch
// exists so the numbered-call-table contract itself is testable.
func Dispatch(p *Proc, num int32, a Args) int32 {
	switch num {
	case SysHalt:
		p.Halt(a.Status)
		return 0 // unreachable: Halt unwinds the goroutine
	case SysExecute:
		return p.Execute(a.Str)
	case SysRead:
		return p.Read(a.FD, a.Buf)
	case SysWrite:
		return p.Write(a.FD, a.Buf)
	case SysOpen:
		return p.Open(a.Str)
	case SysClose:
		return p.Close(a.FD)
	case SysGetArgs:
		return p.GetArgs(a.Buf)
	case SysVidmap:
		v, status := p.Vidmap()
		if status != 0 {
			return status
		}
		return int32(v)
	case SysSetHandler:
		return p.SetHandler(a.Status)
	case SysSigreturn:
		return p.Sigreturn()
	default:
		slog.Debug("syscall: out of range", "num", num)
		return -1
	}
}
