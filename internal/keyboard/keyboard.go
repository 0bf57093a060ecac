/*
 * ia32os - PS/2 keyboard driver
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

// Package keyboard decodes scan code set 1 into a per-terminal line
// buffer, the same make/break table and caps/shift mode arithmetic as
// the driver this kernel's keyboard handling was distilled from, wired
// onto internal/devops as the stdin device and onto internal/terminal
// for Alt+Fn switching.
package keyboard

import (
	"sync"

	"github.com/threeninetyone/ia32os/internal/devops"
	"github.com/threeninetyone/ia32os/internal/ioport"
	"github.com/threeninetyone/ia32os/internal/terminal"
)

// Scan codes the driver treats specially; the rest are resolved through
// the ascii tables below.
const (
	scanLShiftMake  = 0x2A
	scanLShiftBreak = 0xAA
	scanRShiftMake  = 0x36
	scanRShiftBreak = 0xB6
	scanCtrlMake    = 0x1D
	scanCtrlBreak   = 0x9D
	scanAltMake     = 0x38
	scanAltBreak    = 0xB8
	scanCaps        = 0x3A
	scanBackspace   = 0x0E
	scanEnter       = 0x1C
	scanL           = 0x26
	scanFn1         = 0x3B
	scanFn2         = 0x3C
	scanFn3         = 0x3D

	breakBit = 0x80
)

// asciiTable mirrors the four-mode (none/shift/caps/shift+caps) scancode
// decode table: row 0 holds the unshifted character for each scan code,
// row 1 the shifted one. Caps lock only affects letters, handled
// separately in decode. Index 0 is unused (no scan code 0).
var asciiTable = [2][0x3A]byte{
	{ // neither shift nor caps
		0, 0, '1', '2', '3', '4', '5', '6', '7', '8',
		'9', '0', '-', '=', 0,
		0,
		'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p', '[', ']', '\n',
		0,
		'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';', '\'', '`', 0,
		'\\', 'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', '/', 0,
		'*', 0, ' ',
	},
	{ // shift
		0, 0, '!', '@', '#', '$', '%', '^', '&', '*',
		'(', ')', '_', '+', 0,
		0,
		'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I', 'O', 'P', '{', '}', '\n',
		0,
		'A', 'S', 'D', 'F', 'G', 'H', 'J', 'K', 'L', ':', '"', '~', 0,
		'|', 'Z', 'X', 'C', 'V', 'B', 'N', 'M', '<', '>', '?', 0,
		'*', 0, ' ',
	},
}

func isLetterScan(code byte) bool {
	return (code >= 0x10 && code <= 0x19) || // q-p
		(code >= 0x1E && code <= 0x26) || // a-l
		(code >= 0x2C && code <= 0x32) // z-m
}

// TerminatorPolicy decides what keyboard_read appends to a completed
// line before handing it back to the caller. The default keeps the
// original driver's literal special case: every line except the exact
// word "exit" gets a trailing '\n'. Swappable so a future shell dialect
// need not special-case a magic word.
type TerminatorPolicy func(line []byte) []byte

// DefaultTerminatorPolicy reproduces keyboard_read's exact behavior.
func DefaultTerminatorPolicy(line []byte) []byte {
	if string(line) == "exit" {
		return line
	}
	return append(line, '\n')
}

const lineBufSize = 128

type termState struct {
	mu       sync.Mutex
	cond     *sync.Cond
	mode     terminal.ModifierMode
	line     [lineBufSize]byte
	lineLen  int
	ready    bool
	readyBuf []byte
}

// Keyboard owns per-terminal line buffers and the global modifier flags
// (Ctrl and Alt are machine-global in the original driver; Shift/Caps
// are tracked per terminal since each terminal keeps its own buffer).
type Keyboard struct {
	term  *terminal.Manager
	ports *ioport.Space
	pic   *ioport.PIC

	mu       sync.Mutex
	active   int // which terminal scancodes are currently routed to
	ctrl     bool
	alt      bool
	terms    [terminal.Count]*termState
	policy   TerminatorPolicy
	redrawCB func(t int)
}

// New creates a keyboard driver routing initial input to terminal 0.
func New(term *terminal.Manager, ports *ioport.Space, pic *ioport.PIC) *Keyboard {
	k := &Keyboard{term: term, ports: ports, pic: pic, policy: DefaultTerminatorPolicy}
	for i := range k.terms {
		ts := &termState{}
		ts.cond = sync.NewCond(&ts.mu)
		k.terms[i] = ts
	}
	pic.Unmask(ioport.IRQKeyboard)
	return k
}

// SetTerminatorPolicy overrides how completed lines are terminated.
func (k *Keyboard) SetTerminatorPolicy(p TerminatorPolicy) {
	k.mu.Lock()
	k.policy = p
	k.mu.Unlock()
}

// SetRedrawHook installs the callback Ctrl+L invokes to redraw terminal
// t's screen; terminal redraw primitives live in internal/videoram's
// unspecified putc/clear layer, so the keyboard driver only signals the
// request.
func (k *Keyboard) SetRedrawHook(cb func(t int)) {
	k.mu.Lock()
	k.redrawCB = cb
	k.mu.Unlock()
}

// ActiveTerminal reports which terminal scancodes currently target.
func (k *Keyboard) ActiveTerminal() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.active
}

// SetActiveTerminal is called by terminal.Switch's caller (the kernel
// facade) after a switch completes, so scan codes keep routing to the
// terminal now holding the keyboard's physical focus.
func (k *Keyboard) SetActiveTerminal(t int) {
	k.mu.Lock()
	k.active = t
	k.mu.Unlock()
}

// scanCodeForRune resolves the scan code (and whether the shift row is
// needed) that would produce r when decoded — the reverse of decode's
// make-code table. It backs Type, for front ends that only have
// line-buffered typed text rather than raw PS/2 scan codes.
func scanCodeForRune(r rune) (code byte, shift bool, ok bool) {
	if r == '\n' || r == '\r' {
		return scanEnter, false, true
	}
	if r == '\b' || r == 0x7F {
		return scanBackspace, false, true
	}
	if r < 0 || r > 0xFF {
		return 0, false, false
	}
	for row := 0; row < 2; row++ {
		for c := byte(2); int(c) < len(asciiTable[row]); c++ {
			if asciiTable[row][c] == byte(r) {
				return c, row == 1, true
			}
		}
	}
	return 0, false, false
}

// Type feeds s through HandleScanCode as if it had been typed on a real
// keyboard: a convenience entry point for front ends that read
// line-buffered text (a CLI over a pty) rather than raw scan codes.
// Runes with no scan code (most control characters, anything outside
// Latin-1) are silently skipped.
func (k *Keyboard) Type(s string) {
	for _, r := range s {
		code, shift, ok := scanCodeForRune(r)
		if !ok {
			continue
		}
		if shift {
			k.HandleScanCode(scanLShiftMake)
		}
		k.HandleScanCode(code)
		if shift {
			k.HandleScanCode(scanLShiftBreak)
		}
	}
}

// HandleScanCode processes one byte read from the keyboard data port
// (0x60), standing in for the IRQ 1 handler body. It returns after
// updating whichever terminal is currently active and sending EOI.
func (k *Keyboard) HandleScanCode(code byte) {
	defer k.pic.EOI(ioport.IRQKeyboard)

	switch code {
	case scanLShiftMake, scanRShiftMake:
		k.setShift(true)
		return
	case scanLShiftBreak, scanRShiftBreak:
		k.setShift(false)
		return
	case scanCtrlMake:
		k.mu.Lock()
		k.ctrl = true
		k.mu.Unlock()
		return
	case scanCtrlBreak:
		k.mu.Lock()
		k.ctrl = false
		k.mu.Unlock()
		return
	case scanAltMake:
		k.mu.Lock()
		k.alt = true
		k.mu.Unlock()
		return
	case scanAltBreak:
		k.mu.Lock()
		k.alt = false
		k.mu.Unlock()
		return
	case scanCaps:
		k.toggleCaps()
		return
	}

	k.mu.Lock()
	altDown := k.alt
	ctrlDown := k.ctrl
	k.mu.Unlock()

	if altDown && code >= scanFn1 && code <= scanFn3 {
		t := int(code - scanFn1)
		if k.term.Switch(t) == 0 {
			k.SetActiveTerminal(t)
		}
		return
	}

	if ctrlDown && code == scanL {
		k.mu.Lock()
		cb := k.redrawCB
		active := k.active
		k.mu.Unlock()
		if cb != nil {
			cb(active)
		}
		return
	}

	if code&breakBit != 0 {
		return // break code for an ordinary key: ignored
	}

	k.mu.Lock()
	active := k.active
	k.mu.Unlock()
	ts := k.terms[active]

	switch code {
	case scanBackspace:
		ts.mu.Lock()
		if ts.lineLen > 0 {
			ts.lineLen--
		}
		ts.mu.Unlock()
		return
	case scanEnter:
		ts.mu.Lock()
		line := append([]byte(nil), ts.line[:ts.lineLen]...)
		ts.lineLen = 0
		ts.mu.Unlock()

		k.mu.Lock()
		policy := k.policy
		k.mu.Unlock()
		ts.mu.Lock()
		ts.readyBuf = policy(line)
		ts.ready = true
		ts.mu.Unlock()
		ts.cond.Broadcast()
		return
	}

	ch := k.decode(active, code)
	if ch == 0 {
		return
	}
	ts.mu.Lock()
	if ts.lineLen < lineBufSize {
		ts.line[ts.lineLen] = ch
		ts.lineLen++
	}
	ts.mu.Unlock()
}

func (k *Keyboard) setShift(down bool) {
	k.mu.Lock()
	active := k.active
	k.mu.Unlock()
	ts := k.terms[active]
	ts.mu.Lock()
	switch ts.mode {
	case terminal.ModeNone, terminal.ModeShift:
		if down {
			ts.mode = terminal.ModeShift
		} else {
			ts.mode = terminal.ModeNone
		}
	case terminal.ModeCaps, terminal.ModeShiftCaps:
		if down {
			ts.mode = terminal.ModeShiftCaps
		} else {
			ts.mode = terminal.ModeCaps
		}
	}
	ts.mu.Unlock()
}

func (k *Keyboard) toggleCaps() {
	k.mu.Lock()
	active := k.active
	k.mu.Unlock()
	ts := k.terms[active]
	ts.mu.Lock()
	switch ts.mode {
	case terminal.ModeNone:
		ts.mode = terminal.ModeCaps
	case terminal.ModeCaps:
		ts.mode = terminal.ModeNone
	case terminal.ModeShift:
		ts.mode = terminal.ModeShiftCaps
	case terminal.ModeShiftCaps:
		ts.mode = terminal.ModeShift
	}
	ts.mu.Unlock()
}

// decode resolves a make code to a character given terminal t's
// current mode: caps lock flips letters only, shift flips everything
// through the shifted table row.
func (k *Keyboard) decode(t int, code byte) byte {
	if int(code) >= len(asciiTable[0]) {
		return 0
	}
	ts := k.terms[t]
	mode := ts.Mode()

	shiftRow := mode == terminal.ModeShift || mode == terminal.ModeShiftCaps
	if isLetterScan(code) && (mode == terminal.ModeCaps || mode == terminal.ModeShiftCaps) {
		shiftRow = !shiftRow
	}
	if shiftRow {
		return asciiTable[1][code]
	}
	return asciiTable[0][code]
}

func (ts *termState) Mode() terminal.ModifierMode {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.mode
}

// Read implements devops.RWFunc for the stdin device: it blocks until
// terminal t has a completed line, matching "keyboard_read blocks until
// Enter is pressed on its terminal."
func (k *Keyboard) Read(t int, buf []byte) int32 {
	if buf == nil {
		return -1
	}
	ts := k.terms[t]
	ts.mu.Lock()
	for !ts.ready {
		ts.cond.Wait()
	}
	ts.ready = false
	line := ts.readyBuf
	ts.mu.Unlock()

	n := copy(buf, line)
	return int32(n)
}

// Ops returns a devops.Table bound to terminal t's stdin, suitable for
// fdtable.Init.
func (k *Keyboard) Ops(t int) *devops.Table {
	return &devops.Table{
		Kind: devops.KindStdin,
		Open: func(string, *devops.Slot) error { return nil },
		Read: func(_ *devops.Slot, buf []byte) int32 { return k.Read(t, buf) },
		Write: func(*devops.Slot, []byte) int32 { return -1 },
		Close: func(*devops.Slot) int32 { return -1 },
	}
}
