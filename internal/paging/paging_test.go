package paging

import "testing"

func TestInstallProcessPageMapsExpectedPhysAndFlushes(t *testing.T) {
	m := NewManager()
	before := m.FlushCount()
	m.InstallProcessPage(3)
	e := m.UserPageEntry()
	if !e.Present || !e.RW || !e.User || !e.PageSize {
		t.Fatalf("user page entry missing required flags: %+v", e)
	}
	want := uint32(UserPhysBase + 3*UserSlotSize)
	if e.Phys != want {
		t.Fatalf("phys = %#x, want %#x", e.Phys, want)
	}
	if m.FlushCount() != before+1 {
		t.Fatalf("InstallProcessPage must flush the TLB exactly once")
	}
}

func TestMap4KSetsExactFlags(t *testing.T) {
	m := NewManager()
	m.Map4K(UserVideoVirt, VideoPhys)
	e, ok := m.Lookup4K(UserVideoVirt)
	if !ok {
		t.Fatalf("expected entry to be present")
	}
	if !e.Present || !e.RW || !e.User {
		t.Fatalf("Map4K must set present+RW+user bits: %+v", e)
	}
	if e.Phys != VideoPhys {
		t.Fatalf("phys = %#x, want %#x", e.Phys, VideoPhys)
	}
}

func TestMap4KRetargetsBackingFrame(t *testing.T) {
	m := NewManager()
	m.Map4K(UserVideoVirt, VideoPhys)
	m.Map4K(UserVideoVirt, BackingFrame(1))
	e, _ := m.Lookup4K(UserVideoVirt)
	if e.Phys != BackingPhysBase1 {
		t.Fatalf("phys = %#x, want backing frame 1 %#x", e.Phys, BackingPhysBase1)
	}
}

func TestBackingFrameAssignments(t *testing.T) {
	cases := map[int]uint32{0: BackingPhysBase0, 1: BackingPhysBase1, 2: BackingPhysBase2}
	for term, want := range cases {
		if got := BackingFrame(term); got != want {
			t.Fatalf("terminal %d backing = %#x, want %#x", term, got, want)
		}
	}
	if BackingFrame(3) != 0 {
		t.Fatalf("out of range terminal should return 0")
	}
}

func TestInitialStaticMappings(t *testing.T) {
	m := NewManager()
	if !m.directory[DirVideo].Present {
		t.Fatalf("video directory entry must be present at boot")
	}
	if !m.directory[DirKernel].Present || m.directory[DirKernel].User {
		t.Fatalf("kernel directory entry must be present and supervisor-only")
	}
	if !m.videoPT[0].Present || m.videoPT[0].Phys != VideoPhys {
		t.Fatalf("video page table entry 0 must map real video memory")
	}
}
