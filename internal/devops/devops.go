/*
 * ia32os - Device operations table
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

// Package devops defines the polymorphic {open, read, write, close}
// dispatch used by every file-descriptor slot, one Table per device
// kind (rtc, file, directory, stdin keyboard, stdout terminal).
package devops

// Kind enumerates the device kinds a descriptor slot may be bound to.
type Kind int

const (
	KindRTC Kind = iota
	KindFile
	KindDirectory
	KindStdin
	KindStdout
)

// OpenFunc looks up name and, on success, fills in a freshly allocated
// slot (inode index, starting cursor) and returns nil. The slot's Ops
// field is set by the caller before Open is invoked.
type OpenFunc func(name string, slot *Slot) error

// RWFunc matches the read/write signature shared by every device:
// (fd, buf, n) -> bytes transferred, or -1 on failure.
type RWFunc func(slot *Slot, buf []byte) int32

// CloseFunc releases any resource Open acquired for slot.
type CloseFunc func(slot *Slot) int32

// Table is the four-function dispatch record this kernel calls a device
// operations table: rtc_ops, file_ops, dir_ops, stdin_ops, stdout_ops.
type Table struct {
	Kind  Kind
	Open  OpenFunc
	Read  RWFunc
	Write RWFunc
	Close CloseFunc
}

// Slot is the per-descriptor state a Table's functions operate on. It is
// owned by internal/fdtable and passed by pointer so Read/Write can
// advance the cursor.
type Slot struct {
	Ops    *Table
	Inode  int32 // -1 for non-file devices (rtc, stdin, stdout)
	Cursor uint32
	InUse  bool
}
