package rtc

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/threeninetyone/ia32os/internal/devops"
	"github.com/threeninetyone/ia32os/internal/ioport"
)

func newTestRTC() *RTC {
	return New(ioport.NewSpace(), ioport.NewPIC())
}

func TestOpenResetsToDefaultFrequency(t *testing.T) {
	r := newTestRTC()
	r.programRate(1024)
	if r.Rate() != 1024 {
		t.Fatalf("setup: rate = %d, want 1024", r.Rate())
	}
	var slot devops.Slot
	if err := r.Open("rtc", &slot); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if r.Rate() != DefaultHz {
		t.Fatalf("rate after open = %d, want %d", r.Rate(), DefaultHz)
	}
}

func TestWriteClampsAboveTableTo1024(t *testing.T) {
	r := newTestRTC()
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 32768)
	r.Write(nil, buf)
	if r.Rate() != ClampHighHz {
		t.Fatalf("rate = %d, want clamp-high %d", r.Rate(), ClampHighHz)
	}
}

func TestWriteBelowMinimumDefaultsTo2Hz(t *testing.T) {
	r := newTestRTC()
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 1) // not a power-of-two table entry
	r.Write(nil, buf)
	if r.Rate() != DefaultHz {
		t.Fatalf("rate = %d, want default %d", r.Rate(), DefaultHz)
	}
}

func TestWriteExactTableEntryIsHonored(t *testing.T) {
	r := newTestRTC()
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 256)
	r.Write(nil, buf)
	if r.Rate() != 256 {
		t.Fatalf("rate = %d, want 256", r.Rate())
	}
}

func TestReadBlocksUntilTick(t *testing.T) {
	r := newTestRTC()
	done := make(chan int32, 1)
	go func() {
		done <- r.Read(nil, nil)
	}()

	select {
	case <-done:
		t.Fatalf("Read returned before any tick")
	case <-time.After(20 * time.Millisecond):
	}

	r.Tick()

	select {
	case ret := <-done:
		if ret != 0 {
			t.Fatalf("Read returned %d, want 0", ret)
		}
	case <-time.After(time.Second):
		t.Fatalf("Read did not wake after Tick")
	}
}

func TestTickSendsEOI(t *testing.T) {
	pic := ioport.NewPIC()
	r := New(ioport.NewSpace(), pic)
	r.Tick()
	if pic.EOICount(ioport.IRQRTC) != 1 {
		t.Fatalf("expected one EOI on IRQ8, got %d", pic.EOICount(ioport.IRQRTC))
	}
}
