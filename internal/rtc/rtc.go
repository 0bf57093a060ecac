/*
 * ia32os - Real-time clock driver
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

// Package rtc simulates the CMOS real-time clock: register A's rate
// field and the read of register C after every tick, driving the same
// frequency table and clamp rules as the original RTC driver this kernel
// was distilled from. Register B is not modeled.
package rtc

import (
	"encoding/binary"
	"sync"

	"github.com/threeninetyone/ia32os/internal/devops"
	"github.com/threeninetyone/ia32os/internal/ioport"
)

const (
	portSelect = 0x70
	portData   = 0x71

	regA = 0x0A
	regB = 0x0B
	regC = 0x0C

	// DefaultHz is the frequency rtc_open always resets to.
	DefaultHz = 2
	// ClampHighHz is the fastest rate the register-A write path will
	// ever program; anything faster in the table clamps down to it.
	ClampHighHz = 1024
)

// frequencies is the power-of-two table the original driver indexes by
// rate, highest frequency first, matching its MIN_RATE..MAX_RATE clamp.
var frequencies = []uint32{32768, 16384, 8192, 4096, 2048, 1024, 512, 256, 128, 64, 32, 16, 8, 4}

// RTC is one simulated CMOS real-time clock.
type RTC struct {
	mu        sync.Mutex
	cond      *sync.Cond
	ports     *ioport.Space
	pic       *ioport.PIC
	rate      uint32
	tickReady bool
	ticks     uint64
}

// New creates an RTC wired to the given port space and PIC, initialized
// to the open-default 2 Hz.
func New(ports *ioport.Space, pic *ioport.PIC) *RTC {
	r := &RTC{ports: ports, pic: pic}
	r.cond = sync.NewCond(&r.mu)
	r.programRate(DefaultHz)
	pic.Unmask(ioport.IRQRTC)
	return r
}

// programRate selects the closest table entry per the documented clamp:
// a frequency faster than the table's fastest real entry clamps down to
// 1024 Hz; a frequency not present in the table at all (including one
// below the slowest table entry) defaults to 2 Hz. Register A's low
// nibble is programmed with the resulting rate code.
func (r *RTC) programRate(hz uint32) {
	rate := -1
	for i, f := range frequencies {
		if f == hz {
			rate = i + 1
			break
		}
	}
	if rate == -1 {
		// Not an exact table entry: default to 2 Hz (rate 15, one past
		// the table, matching the original driver's fall-through).
		r.rate = DefaultHz
		r.writeRegA(15)
		return
	}
	const maxRate = 15 // slowest: 2 Hz is the implicit entry past the table
	const minRate = 6  // fastest permitted: 1024 Hz
	if rate > maxRate {
		rate = maxRate
	}
	if rate < minRate {
		rate = minRate
	}
	r.rate = frequencies[rate-1]
	r.writeRegA(uint8(rate))
}

func (r *RTC) writeRegA(rate uint8) {
	r.ports.Out(portSelect, regA)
	prev := r.ports.In(portData)
	r.ports.Out(portSelect, regA)
	r.ports.Out(portData, (prev&0xF0)|(rate&0x0F))
}

// Rate returns the currently programmed frequency in Hz.
func (r *RTC) Rate() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

// Tick is called by the kernel façade's clock (kernel.State, through its
// internal/event list) standing in for IRQ 8. It sets the tick-ready flag and wakes any reader blocked in
// Read, then reads register C, exactly mirroring "the RTC interrupt
// handler must read register C after each IRQ to allow further
// interrupts." EOI is sent to the PIC before returning.
func (r *RTC) Tick() {
	r.mu.Lock()
	r.tickReady = true
	r.ticks++
	r.mu.Unlock()
	r.cond.Broadcast()

	r.ports.Out(portSelect, regC)
	r.ports.In(portData)
	r.pic.EOI(ioport.IRQRTC)
}

// Ticks reports how many periodic interrupts have been delivered.
func (r *RTC) Ticks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

// Open implements devops.OpenFunc: resets the rate to the 2 Hz default
// and allocates a descriptor (inode -1, not file-backed).
func (r *RTC) Open(_ string, slot *devops.Slot) error {
	r.mu.Lock()
	r.programRate(DefaultHz)
	r.mu.Unlock()
	slot.Inode = -1
	slot.Cursor = 0
	return nil
}

// Read blocks until the next periodic tick, clears the flag, and
// returns 0, matching "read blocks until next tick."
func (r *RTC) Read(_ *devops.Slot, _ []byte) int32 {
	r.mu.Lock()
	r.tickReady = false
	for !r.tickReady {
		r.cond.Wait()
	}
	r.mu.Unlock()
	return 0
}

// Write interprets buf as a little-endian 32-bit frequency and
// reprograms the rate.
func (r *RTC) Write(_ *devops.Slot, buf []byte) int32 {
	if len(buf) < 4 {
		return -1
	}
	hz := binary.LittleEndian.Uint32(buf[:4])
	r.mu.Lock()
	r.programRate(hz)
	r.mu.Unlock()
	return 0
}

// Close frees the descriptor; there is no device-side state to release.
func (r *RTC) Close(_ *devops.Slot) int32 {
	return 0
}

// Ops returns the devops.Table binding this RTC's methods, the value
// installed as the global rtc_ops dispatch table.
func (r *RTC) Ops() *devops.Table {
	return &devops.Table{
		Kind:  devops.KindRTC,
		Open:  r.Open,
		Read:  r.Read,
		Write: r.Write,
		Close: r.Close,
	}
}
