package kernel

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/threeninetyone/ia32os/internal/fsimage"
	"github.com/threeninetyone/ia32os/internal/process"
)

type testFile struct {
	name string
	typ  fsimage.EntryType
	data []byte
}

func validELF(entry uint32) []byte {
	b := make([]byte, 32)
	b[0], b[1], b[2], b[3] = 0x7F, 'E', 'L', 'F'
	binary.LittleEndian.PutUint32(b[24:28], entry)
	return b
}

// buildTestImage lays out an arbitrary set of regular file entries as a
// single in-memory filesystem image, the same fixture shape
// internal/process's own tests use, generalized here so this package's
// integration tests need not reach into process's unexported helper.
func buildTestImage(t *testing.T, files []testFile) *fsimage.Image {
	t.Helper()
	const blockSize = 4096
	n := len(files)

	blocksPerFile := make([]int, n)
	totalData := 0
	for i, f := range files {
		nb := (len(f.data) + blockSize - 1) / blockSize
		if nb == 0 {
			nb = 1
		}
		blocksPerFile[i] = nb
		totalData += nb
	}

	total := blockSize + n*blockSize + totalData*blockSize
	raw := make([]byte, total)
	binary.LittleEndian.PutUint32(raw[0:4], uint32(n))
	binary.LittleEndian.PutUint32(raw[4:8], uint32(n))
	binary.LittleEndian.PutUint32(raw[8:12], uint32(totalData))

	dataBlockCursor := 0
	for i, f := range files {
		dentryOff := 64 + i*64
		copy(raw[dentryOff:dentryOff+len(f.name)], f.name)
		binary.LittleEndian.PutUint32(raw[dentryOff+32:dentryOff+36], uint32(f.typ))
		binary.LittleEndian.PutUint32(raw[dentryOff+36:dentryOff+40], uint32(i))

		inodeOff := blockSize + i*blockSize
		binary.LittleEndian.PutUint32(raw[inodeOff:inodeOff+4], uint32(len(f.data)))
		for b := 0; b < blocksPerFile[i]; b++ {
			binary.LittleEndian.PutUint32(raw[inodeOff+4+b*4:inodeOff+8+b*4], uint32(dataBlockCursor+b))
		}

		dataOff := blockSize + n*blockSize + dataBlockCursor*blockSize
		copy(raw[dataOff:], f.data)
		dataBlockCursor += blocksPerFile[i]
	}

	img, err := fsimage.Load(raw)
	if err != nil {
		t.Fatalf("buildTestImage: %v", err)
	}
	return img
}

func newTestKernel(t *testing.T, extra ...testFile) *State {
	t.Helper()
	files := append([]testFile{{name: "shell", typ: fsimage.TypeRegular, data: validELF(0x1000)}}, extra...)
	img := buildTestImage(t, files)
	return New(img)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

func TestBootLaunchesRootShellOnTerminalZero(t *testing.T) {
	k := newTestKernel(t)
	k.Boot()
	defer k.Stop()

	waitFor(t, func() bool {
		for _, p := range k.Snapshot() {
			if p.Terminal == 0 && p.ParentPid == -1 {
				return true
			}
		}
		return false
	})
}

func TestSwitchTerminalLazilyLaunchesShellOnUnvisitedTerminal(t *testing.T) {
	k := newTestKernel(t)
	k.Boot()
	defer k.Stop()

	waitFor(t, func() bool { return len(k.Snapshot()) > 0 })

	if rc := k.SwitchTerminal(1); rc != 0 {
		t.Fatalf("SwitchTerminal(1) = %d, want 0", rc)
	}
	if k.ForegroundTerminal() != 1 {
		t.Fatalf("foreground = %d, want 1", k.ForegroundTerminal())
	}
	waitFor(t, func() bool {
		for _, p := range k.Snapshot() {
			if p.Terminal == 1 && p.ParentPid == -1 {
				return true
			}
		}
		return false
	})
}

func TestExecuteRunsRegisteredProgramAndReturnsStatus(t *testing.T) {
	k := newTestKernel(t, testFile{name: "echo42", typ: fsimage.TypeRegular, data: validELF(0x2000)})
	k.Process.Register("echo42", func(p *process.Proc) { p.Halt(42) })

	status := k.Process.Execute(0, "echo42", 0)
	if status != 42 {
		t.Fatalf("status = %d, want 42", status)
	}
}

func TestExecuteBadExecutableFails(t *testing.T) {
	bad := validELF(0x1000)
	bad[0] = 0x00
	k := newTestKernel(t, testFile{name: "broken", typ: fsimage.TypeRegular, data: bad})
	if got := k.Process.Execute(-1, "broken", 0); got != -1 {
		t.Fatalf("execute(broken) = %d, want -1", got)
	}
}

func TestRTCFrequencyClampsOutOfRangeRequestToFastestPermitted(t *testing.T) {
	k := newTestKernel(t)
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 32768) // faster than ClampHighHz
	k.RTC.Write(nil, buf)
	if got := k.RTC.Rate(); got != 1024 {
		t.Fatalf("rate after over-fast request = %d, want 1024", got)
	}
}

func TestRTCFrequencyNotInTableDefaultsTo2Hz(t *testing.T) {
	k := newTestKernel(t)
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 777) // not a table entry
	k.RTC.Write(nil, buf)
	if got := k.RTC.Rate(); got != 2 {
		t.Fatalf("rate after non-table request = %d, want 2", got)
	}
}

func TestAdvanceFiresRTCTickAtProgrammedRate(t *testing.T) {
	k := newTestKernel(t)
	before := k.RTC.Ticks()
	period := SystemHz / int(k.RTC.Rate())
	k.Advance(period)
	if k.RTC.Ticks() != before+1 {
		t.Fatalf("ticks = %d, want %d", k.RTC.Ticks(), before+1)
	}
}

func TestHandleScanCodeAltF2SwitchesTerminal(t *testing.T) {
	k := newTestKernel(t)
	k.Boot()
	defer k.Stop()
	waitFor(t, func() bool { return len(k.Snapshot()) > 0 })

	const (
		scanAltMake = 0x38
		scanFn2     = 0x3C
	)
	k.HandleScanCode(scanAltMake)
	k.HandleScanCode(scanFn2)

	waitFor(t, func() bool { return k.ForegroundTerminal() == 1 })
}

func TestForegroundTerminalDefaultsToZero(t *testing.T) {
	k := newTestKernel(t)
	if k.ForegroundTerminal() != 0 {
		t.Fatalf("foreground = %d, want 0", k.ForegroundTerminal())
	}
}
