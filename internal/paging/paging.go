/*
 * ia32os - Paging manager
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

// Package paging simulates the two-level x86 page directory this kernel
// uses to isolate user programs and remap video memory per terminal. It
// does not touch real memory: every "physical" address is just a key
// into the directory/table maps, the same way emu/memory in the teacher
// repo models RAM as a flat Go array rather than real hardware.
package paging

import "sync"

const (
	// DirUser is the page-directory index mapping the 128 MiB user
	// program region (one 4 MiB page per process).
	DirUser = 32
	// DirVideo is the page-directory index holding the 4 KiB video
	// page table (real video memory and the user-visible video alias).
	DirVideo = 0
	// DirKernel is the page-directory index mapping the 4 MiB kernel
	// region.
	DirKernel = 1

	// UserPhysBase is the start of the 8-slot, 4 MiB-per-process user
	// region: physical base for pid p is UserPhysBase + p*UserSlotSize.
	UserPhysBase = 8 * 1024 * 1024
	UserSlotSize = 4 * 1024 * 1024

	// VideoPhys is real VGA text memory.
	VideoPhys = 0xB8000
	// BackingPhysBase0/1/2 are the three off-screen 4 KiB backing
	// frames for terminals 0, 1, 2 respectively when not foreground.
	BackingPhysBase0 = 0xB9000
	BackingPhysBase1 = 0xBA000
	BackingPhysBase2 = 0xBB000

	// UserVideoVirt is the fixed virtual address vidmap maps to either
	// real video memory or a terminal's backing frame.
	UserVideoVirt = 0x08800000 // arbitrary fixed page above the user code region

	frameSize = 4096
)

// Entry is one page-table or page-directory entry's flags, modeled
// explicitly rather than packed into a raw 32-bit word so tests can
// assert on the exact bits required.
type Entry struct {
	Present  bool
	RW       bool
	User     bool // accessible from user (ring 3) code
	PageSize bool // true for a 4 MiB directory entry
	Phys     uint32
}

// Manager owns the page directory and one 4 KiB page table, the video
// table at directory index 0, which holds both the boot-time video page
// and the user-visible video alias. Directory index 32 is a single
// 4 MiB user entry, not a table; there is no separate page table for
// the user-visible alias.
type Manager struct {
	mu        sync.Mutex
	directory [1024]Entry
	videoPT   [1024]Entry // backs DirVideo
	tlbFlush  int         // counts FlushTLB calls, for tests
}

// NewManager builds the static mappings every process depends on at
// boot: real video memory present at the video page, the kernel's 4 MiB
// region present and supervisor-only, and the three backing aliases
// unmapped until a terminal switch installs them.
func NewManager() *Manager {
	m := &Manager{}
	m.videoPT[0] = Entry{Present: true, RW: true, User: true, Phys: VideoPhys}
	m.directory[DirVideo] = Entry{Present: true, RW: true, User: true}
	m.directory[DirKernel] = Entry{Present: true, RW: true, User: false, PageSize: true, Phys: UserPhysBase / 2}
	return m
}

// InstallProcessPage rewrites directory index 32 to map pid's 4 MiB user
// slot and unconditionally flushes the TLB; this call has no error
// return — it cannot fail.
func (m *Manager) InstallProcessPage(pid int) {
	m.mu.Lock()
	m.directory[DirUser] = Entry{
		Present:  true,
		RW:       true,
		User:     true,
		PageSize: true,
		Phys:     uint32(UserPhysBase + pid*UserSlotSize),
	}
	m.mu.Unlock()
	m.FlushTLB()
}

// Map4K installs a present, user-accessible, read-write 4 KiB entry in
// the video page table, used by vidmap and by terminal.Switch to
// retarget UserVideoVirt. The entry index is virt's page number modulo
// 1024, so UserVideoVirt shares entry 0 with the boot-time video page.
func (m *Manager) Map4K(virt, phys uint32) {
	idx := (virt / frameSize) % 1024
	m.mu.Lock()
	m.videoPT[idx] = Entry{Present: true, RW: true, User: true, Phys: phys}
	m.mu.Unlock()
}

// Lookup4K returns the 4 KiB alias entry installed for virt.
func (m *Manager) Lookup4K(virt uint32) (Entry, bool) {
	idx := (virt / frameSize) % 1024
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.videoPT[idx]
	return e, e.Present
}

// UserPageEntry returns the current directory[32] entry, for tests and
// introspection.
func (m *Manager) UserPageEntry() Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.directory[DirUser]
}

// FlushTLB simulates a CR3 reload. There is no real TLB to invalidate;
// the counter lets tests assert it was called on every install.
func (m *Manager) FlushTLB() {
	m.mu.Lock()
	m.tlbFlush++
	m.mu.Unlock()
}

// FlushCount reports how many times FlushTLB has run.
func (m *Manager) FlushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tlbFlush
}

// BackingFrame returns the physical backing address for terminal t
// (0, 1, 2), a fixed 0xB9000/0xBA000/0xBB000 assignment.
func BackingFrame(terminal int) uint32 {
	switch terminal {
	case 0:
		return BackingPhysBase0
	case 1:
		return BackingPhysBase1
	case 2:
		return BackingPhysBase2
	default:
		return 0
	}
}
