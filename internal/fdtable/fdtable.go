/*
 * ia32os - Per-process file descriptor table
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

// Package fdtable implements the 8-slot per-process file descriptor
// table: slots 0 and 1 are fixed at process creation to stdin/stdout and
// may never be closed; Open reserves the lowest free slot at or above 2.
package fdtable

import "github.com/threeninetyone/ia32os/internal/devops"

const NumSlots = 8

// Table is one process's file descriptor table.
type Table struct {
	slots [NumSlots]devops.Slot
}

// Init binds slot 0 to stdin and slot 1 to stdout, leaving the rest free.
func (t *Table) Init(stdin, stdout *devops.Table) {
	*t = Table{}
	t.slots[0] = devops.Slot{Ops: stdin, Inode: -1, InUse: true}
	t.slots[1] = devops.Slot{Ops: stdout, Inode: -1, InUse: true}
}

// Open looks up name through ops.Open and binds it to the lowest free
// slot numbered 2 or above. Returns the fd, or -1 if no slot is free or
// the device-specific open failed.
func (t *Table) Open(name string, ops *devops.Table) int32 {
	fd := -1
	for i := 2; i < NumSlots; i++ {
		if !t.slots[i].InUse {
			fd = i
			break
		}
	}
	if fd == -1 {
		return -1
	}

	slot := devops.Slot{Ops: ops, Inode: -1}
	if err := ops.Open(name, &slot); err != nil {
		return -1
	}
	slot.InUse = true
	t.slots[fd] = slot
	return int32(fd)
}

// Close releases fd. Slots 0 and 1 can never be closed.
func (t *Table) Close(fd int32) int32 {
	if fd < 2 || int(fd) >= NumSlots || !t.slots[fd].InUse {
		return -1
	}
	slot := &t.slots[fd]
	ret := slot.Ops.Close(slot)
	t.slots[fd] = devops.Slot{}
	if ret < 0 {
		return -1
	}
	return 0
}

// CloseAll tears down every closable slot; used by halt.
func (t *Table) CloseAll() {
	for i := 2; i < NumSlots; i++ {
		if t.slots[i].InUse {
			t.Close(int32(i))
		}
	}
}

// Read validates fd and buf, then dispatches to the bound device.
func (t *Table) Read(fd int32, buf []byte) int32 {
	slot, ok := t.validSlot(fd, buf)
	if !ok {
		return -1
	}
	return slot.Ops.Read(slot, buf)
}

// Write validates fd and buf, then dispatches to the bound device.
func (t *Table) Write(fd int32, buf []byte) int32 {
	slot, ok := t.validSlot(fd, buf)
	if !ok {
		return -1
	}
	return slot.Ops.Write(slot, buf)
}

func (t *Table) validSlot(fd int32, buf []byte) (*devops.Slot, bool) {
	if fd < 0 || int(fd) >= NumSlots || buf == nil {
		return nil, false
	}
	slot := &t.slots[fd]
	if !slot.InUse {
		return nil, false
	}
	return slot, true
}

// Slot exposes the raw slot for callers (the syscall layer) that need
// the device kind, e.g. to implement vidmap.
func (t *Table) Slot(fd int32) (*devops.Slot, bool) {
	if fd < 0 || int(fd) >= NumSlots || !t.slots[fd].InUse {
		return nil, false
	}
	return &t.slots[fd], true
}
