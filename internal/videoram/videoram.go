/*
 * ia32os - VGA text-mode framebuffer simulation
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

// Package videoram stands in for the raw VGA text-mode primitives this
// kernel assumes exist (putc, clear, scroll, cursor-move) without
// reimplementing them. Only the byte-addressable 4 KiB frame and the one
// operation the kernel core needs directly — a byte-for-byte copy, used
// by terminal switching to snapshot and restore a screen — live here.
package videoram

const FrameSize = 4096

// Frame is one 80x25x2 text-mode page (character + attribute byte per
// cell, 4000 bytes used of the 4096-byte page).
type Frame struct {
	bytes [FrameSize]byte
}

// CopyFrom overwrites f with src's contents, the simulated equivalent of
// "copy 4 KiB from 0xB8000 to the backing frame."
func (f *Frame) CopyFrom(src *Frame) {
	f.bytes = src.bytes
}

// Bytes exposes the raw backing array for putc/clear/scroll primitives
// layered on top, out of scope for this kernel core.
func (f *Frame) Bytes() []byte {
	return f.bytes[:]
}

// Equal reports whether two frames hold identical contents; used by
// tests asserting the terminal-switch round-trip property.
func (f *Frame) Equal(other *Frame) bool {
	return f.bytes == other.bytes
}
