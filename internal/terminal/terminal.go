/*
 * ia32os - Virtual terminal manager
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

// Package terminal multiplexes three virtual terminals across the real
// VGA frame: a map of registered endpoints guarded by one mutex, the
// same registry/locking shape a line-multiplexer uses for remote
// connections, retargeted here onto local text consoles with no
// networking involved — see DESIGN.md for that dropped dependency.
package terminal

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/threeninetyone/ia32os/internal/paging"
	"github.com/threeninetyone/ia32os/internal/videoram"
)

const Count = 3

// ModifierMode tracks the Shift/Caps combination for one terminal's
// scancode decode, kept independently per terminal.
type ModifierMode int

const (
	ModeNone ModifierMode = iota
	ModeShift
	ModeCaps
	ModeShiftCaps
)

const lineBufSize = 128

// Terminal is one virtual terminal record.
type Terminal struct {
	mu       sync.Mutex
	fg       int32 // current foreground-process pid, or -1
	launched bool  // true once a shell has ever run on this terminal
	mode     ModifierMode
	line     [lineBufSize]byte
	lineLen  int
	backing  videoram.Frame
	output   []byte
}

// ProcessHost is the process-control surface terminal.Switch needs.
// Implemented by internal/process.Scheduler; kept as an interface here
// so terminal does not import process (process already imports
// terminal to know which terminal is foreground for vidmap).
type ProcessHost interface {
	// SuspendCurrent captures the kernel stack/frame pointers of the
	// process currently running on terminal t, the PCB's
	// saved_kernel_sp/bp.
	SuspendCurrent(t int)
	// ResumeProcess installs pid's page, rewrites the TSS esp0, and
	// restores its saved stack/frame pointers.
	ResumeProcess(pid int32)
	// LaunchShell runs execute("shell") for terminal t. This does not
	// return in the live kernel (the calling context becomes that
	// terminal's new root shell); callers that need Switch itself to
	// return must invoke this from a goroutine they do not block on.
	LaunchShell(t int)
}

// Manager owns the three terminals, the shared video frame, and the
// foreground index.
type Manager struct {
	mu         sync.Mutex
	terminals  [Count]*Terminal
	foreground int
	video      *videoram.Frame // the one real VGA frame, 0xB8000
	pages      *paging.Manager
	host       ProcessHost
}

var ErrOutOfRange = errors.New("terminal: index out of range")

// New builds the three terminals. The "reserve slots 1 and 2 at boot"
// behavior is modeled as launched=false rather than conflating it with
// "in use": no pid is ever assigned to an unlaunched terminal, but the
// terminal itself always exists.
func New(pages *paging.Manager, video *videoram.Frame, host ProcessHost) *Manager {
	m := &Manager{video: video, pages: pages, host: host}
	for i := range m.terminals {
		m.terminals[i] = &Terminal{fg: -1}
	}
	m.terminals[0].launched = true // terminal 0 boots straight into a shell
	// Real video memory starts mapped to terminal 0 (the boot foreground).
	pages.Map4K(paging.UserVideoVirt, paging.VideoPhys)
	return m
}

// Foreground returns the index of the foreground terminal.
func (m *Manager) Foreground() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.foreground
}

// CurrentProcess returns terminal t's foreground pid, or -1.
func (m *Manager) CurrentProcess(t int) int32 {
	if t < 0 || t >= Count {
		return -1
	}
	term := m.terminals[t]
	term.mu.Lock()
	defer term.mu.Unlock()
	return term.fg
}

// SetCurrentProcess records which process is now running in terminal t's
// foreground chain.
func (m *Manager) SetCurrentProcess(t int, pid int32) {
	if t < 0 || t >= Count {
		return
	}
	term := m.terminals[t]
	term.mu.Lock()
	term.fg = pid
	term.launched = true
	term.mu.Unlock()
}

// Launched reports whether terminal t has ever run a shell.
func (m *Manager) Launched(t int) bool {
	if t < 0 || t >= Count {
		return false
	}
	term := m.terminals[t]
	term.mu.Lock()
	defer term.mu.Unlock()
	return term.launched
}

// Frame returns terminal t's off-screen backing frame (the foreground
// terminal's "backing frame" is stale by definition; callers only use
// this for the two background terminals).
func (m *Manager) Frame(t int) *videoram.Frame {
	return &m.terminals[t].backing
}

// Switch implements the eleven-step terminal-switch algorithm: suspend the
// outgoing process, snapshot its screen, restore the incoming
// terminal's saved screen, retarget the video-memory alias, update the
// foreground index, then either launch a fresh shell or resume the
// incoming terminal's deepest process.
func (m *Manager) Switch(newTerm int) int {
	m.mu.Lock()
	cur := m.foreground
	if newTerm == cur {
		m.mu.Unlock()
		return 0
	}
	if newTerm < 0 || newTerm >= Count {
		m.mu.Unlock()
		return -1
	}
	m.mu.Unlock()

	// Step 4: save the outgoing process's kernel stack/frame.
	m.host.SuspendCurrent(cur)

	// Steps 5-6: remap outgoing terminal's user-video page to its
	// backing frame, then snapshot real video memory into it.
	outBacking := m.Frame(cur)
	outBacking.CopyFrom(m.video)
	m.pages.Map4K(paging.UserVideoVirt, paging.BackingFrame(cur))

	// Step 7: restore the incoming terminal's saved screen into real
	// video memory.
	inBacking := m.Frame(newTerm)
	m.video.CopyFrom(inBacking)

	// Step 8: incoming terminal's user-video page now targets real
	// video memory.
	m.pages.Map4K(paging.UserVideoVirt, paging.VideoPhys)

	// Step 9: update foreground index (cursor restore is a VGA
	// primitive out of this core's scope).
	m.mu.Lock()
	m.foreground = newTerm
	m.mu.Unlock()

	// Step 10/11: launch a fresh shell on a never-visited terminal, or
	// resume its deepest process.
	if !m.Launched(newTerm) {
		slog.Debug("terminal switch: lazily launching shell", "terminal", newTerm)
		go m.host.LaunchShell(newTerm)
		return 0
	}

	pid := m.CurrentProcess(newTerm)
	m.host.ResumeProcess(pid)
	return 0
}

// VidmapTarget returns the physical frame vidmap should expose for
// terminal t: real video memory when t is foreground, its own backing
// frame otherwise. Proc.Vidmap (internal/process) maps UserVideoVirt to
// the frame returned here.
func (m *Manager) VidmapTarget(t int) uint32 {
	if t == m.Foreground() {
		return paging.VideoPhys
	}
	return paging.BackingFrame(t)
}

// Mode returns terminal t's current Shift/Caps modifier mode.
func (t *Terminal) Mode() ModifierMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// SetMode updates terminal t's modifier mode.
func (t *Terminal) SetMode(m ModifierMode) {
	t.mu.Lock()
	t.mode = m
	t.mu.Unlock()
}

// Terminal returns terminal index t, or nil if out of range.
func (m *Manager) Terminal(t int) *Terminal {
	if t < 0 || t >= Count {
		return nil
	}
	return m.terminals[t]
}

// WriteOutput appends buf to terminal t's output log, standing in for
// the character-cell rendering (putc/scroll) left unspecified here —
// stdout_ops.write ultimately reduces to "bytes reached this terminal's
// screen," which is what tests observe.
func (m *Manager) WriteOutput(t int, buf []byte) int32 {
	term := m.Terminal(t)
	if term == nil {
		return -1
	}
	term.mu.Lock()
	term.output = append(term.output, buf...)
	term.mu.Unlock()
	return int32(len(buf))
}

// Output returns everything written to terminal t's screen so far.
func (m *Manager) Output(t int) []byte {
	term := m.Terminal(t)
	if term == nil {
		return nil
	}
	term.mu.Lock()
	defer term.mu.Unlock()
	return append([]byte(nil), term.output...)
}
