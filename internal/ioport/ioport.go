/*
 * ia32os - Byte port I/O and PIC primitives
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

// Package ioport simulates the byte-level port space, PIC line
// mask/EOI bookkeeping, and interrupt-flag save/restore this kernel
// treats as an external collaborator ("the core assumes they exist").
// Real port I/O (IN/OUT instructions) has no meaning in a hosted Go
// process; this package gives the rest of the kernel the same
// call-shaped contract so the RTC and keyboard drivers read exactly as
// they would against real hardware.
package ioport

import "sync"

// Space is an addressable byte port space: the CMOS index/data pair
// (0x70/0x71) and the keyboard data/status pair (0x60/0x64) both live
// here, keyed by port number.
type Space struct {
	mu    sync.Mutex
	ports map[uint16]uint8
}

// NewSpace returns an empty port space.
func NewSpace() *Space {
	return &Space{ports: make(map[uint16]uint8)}
}

// Out writes a byte to a port, as the x86 OUT instruction would.
func (s *Space) Out(port uint16, value uint8) {
	s.mu.Lock()
	s.ports[port] = value
	s.mu.Unlock()
}

// In reads the last byte written to a port, as the x86 IN instruction
// would.
func (s *Space) In(port uint16) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ports[port]
}

// PIC models the 8259 cascade's mask register and end-of-interrupt
// bookkeeping used by the keyboard (IRQ 1) and RTC (IRQ 8) drivers.
type PIC struct {
	mu     sync.Mutex
	masked [16]bool
	eoiCnt [16]int
}

// NewPIC returns a PIC with every line masked, matching a freshly reset
// cascade before the boot sequence unmasks the lines it drives.
func NewPIC() *PIC {
	p := &PIC{}
	for i := range p.masked {
		p.masked[i] = true
	}
	return p
}

// Unmask enables delivery of irq.
func (p *PIC) Unmask(irq int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if irq >= 0 && irq < len(p.masked) {
		p.masked[irq] = false
	}
}

// Mask disables delivery of irq.
func (p *PIC) Mask(irq int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if irq >= 0 && irq < len(p.masked) {
		p.masked[irq] = true
	}
}

// Masked reports whether irq is currently masked.
func (p *PIC) Masked(irq int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if irq < 0 || irq >= len(p.masked) {
		return true
	}
	return p.masked[irq]
}

// EOI acknowledges irq, required before the line can fire again.
func (p *PIC) EOI(irq int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if irq >= 0 && irq < len(p.eoiCnt) {
		p.eoiCnt[irq]++
	}
}

// EOICount reports how many times EOI(irq) has been called, for tests.
func (p *PIC) EOICount(irq int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if irq < 0 || irq >= len(p.eoiCnt) {
		return 0
	}
	return p.eoiCnt[irq]
}

// IRQ line numbers the kernel core wires up.
const (
	IRQKeyboard = 1
	IRQRTC      = 8
)

// InterruptGuard models "save flags, disable interrupts, do work,
// restore flags": the only synchronization primitive the single-CPU
// kernel uses for its critical sections. It is backed by a
// real mutex since a hosted Go process cannot literally disable CPU
// interrupts, but the call shape — acquire, do the guarded work, release
// — matches cli/restore_flags exactly.
type InterruptGuard struct {
	mu sync.Mutex
}

// Disable begins a critical section, returning a function that ends it
// when called — the Go analogue of "save flags, cli".
func (g *InterruptGuard) Disable() func() {
	g.mu.Lock()
	return g.mu.Unlock
}
