package keyboard

import (
	"testing"
	"time"

	"github.com/threeninetyone/ia32os/internal/ioport"
	"github.com/threeninetyone/ia32os/internal/paging"
	"github.com/threeninetyone/ia32os/internal/terminal"
	"github.com/threeninetyone/ia32os/internal/videoram"
)

type stubHost struct{}

func (stubHost) SuspendCurrent(int)     {}
func (stubHost) ResumeProcess(int32)    {}
func (stubHost) LaunchShell(int)        {}

func newTestKeyboard() *Keyboard {
	tm := terminal.New(paging.NewManager(), &videoram.Frame{}, stubHost{})
	return New(tm, ioport.NewSpace(), ioport.NewPIC())
}

func typeLine(k *Keyboard, codes ...byte) {
	for _, c := range codes {
		k.HandleScanCode(c)
	}
}

func TestLowercaseLetterTypedByDefault(t *testing.T) {
	k := newTestKeyboard()
	typeLine(k, 0x1E, scanEnter) // 'a' then Enter
	buf := make([]byte, 16)
	n := k.Read(0, buf)
	if string(buf[:n]) != "a\n" {
		t.Fatalf("got %q, want \"a\\n\"", buf[:n])
	}
}

func TestShiftUppercasesLetter(t *testing.T) {
	k := newTestKeyboard()
	typeLine(k, scanLShiftMake, 0x1E, scanLShiftBreak, scanEnter)
	buf := make([]byte, 16)
	n := k.Read(0, buf)
	if string(buf[:n]) != "A\n" {
		t.Fatalf("got %q, want \"A\\n\"", buf[:n])
	}
}

func TestCapsLockUppercasesLettersOnly(t *testing.T) {
	k := newTestKeyboard()
	typeLine(k, scanCaps, 0x1E, 0x02, scanEnter) // caps, 'a' -> 'A', '1' stays '1'
	buf := make([]byte, 16)
	n := k.Read(0, buf)
	if string(buf[:n]) != "A1\n" {
		t.Fatalf("got %q, want \"A1\\n\"", buf[:n])
	}
}

func TestExitLineIsNotNewlineTerminated(t *testing.T) {
	k := newTestKeyboard()
	// e x i t
	typeLine(k, 0x12, 0x2D, 0x17, 0x14, scanEnter)
	buf := make([]byte, 16)
	n := k.Read(0, buf)
	if string(buf[:n]) != "exit" {
		t.Fatalf("got %q, want \"exit\" (no trailing newline)", buf[:n])
	}
}

func TestBackspaceRemovesLastCharacter(t *testing.T) {
	k := newTestKeyboard()
	typeLine(k, 0x1E, 0x1F, scanBackspace, scanEnter) // a, s, backspace
	buf := make([]byte, 16)
	n := k.Read(0, buf)
	if string(buf[:n]) != "a\n" {
		t.Fatalf("got %q, want \"a\\n\"", buf[:n])
	}
}

func TestReadBlocksUntilEnter(t *testing.T) {
	k := newTestKeyboard()
	done := make(chan int32, 1)
	buf := make([]byte, 16)
	go func() { done <- k.Read(0, buf) }()

	select {
	case <-done:
		t.Fatalf("Read returned before Enter")
	case <-time.After(20 * time.Millisecond):
	}

	typeLine(k, 0x1E, scanEnter)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Read did not wake after Enter")
	}
}

func TestAltF2SwitchesActiveTerminal(t *testing.T) {
	k := newTestKeyboard()
	typeLine(k, scanAltMake, scanFn2, scanAltBreak)
	if k.term.Foreground() != 1 {
		t.Fatalf("foreground = %d, want 1 after Alt+F2", k.term.Foreground())
	}
	if k.ActiveTerminal() != 1 {
		t.Fatalf("active terminal = %d, want 1 after Alt+F2", k.ActiveTerminal())
	}
}

func TestCtrlLInvokesRedrawHook(t *testing.T) {
	k := newTestKeyboard()
	var got int = -1
	k.SetRedrawHook(func(t int) { got = t })
	typeLine(k, scanCtrlMake, scanL, scanCtrlBreak)
	if got != 0 {
		t.Fatalf("redraw hook called with terminal %d, want 0", got)
	}
}
