/*
 * ia32os - Operator debug console
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

package console

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/threeninetyone/ia32os/internal/fsimage"
	"github.com/threeninetyone/ia32os/kernel"
)

func validELF(entry uint32) []byte {
	b := make([]byte, 32)
	b[0], b[1], b[2], b[3] = 0x7F, 'E', 'L', 'F'
	binary.LittleEndian.PutUint32(b[24:28], entry)
	return b
}

// buildTestImage lays out a single-file in-memory filesystem image, the
// same fixture shape internal/process and kernel's own tests use.
func buildTestImage(t *testing.T) *fsimage.Image {
	t.Helper()
	const blockSize = 4096
	data := validELF(0x1000)

	raw := make([]byte, blockSize+blockSize+blockSize)
	binary.LittleEndian.PutUint32(raw[0:4], 1)
	binary.LittleEndian.PutUint32(raw[4:8], 1)
	binary.LittleEndian.PutUint32(raw[8:12], 1)

	copy(raw[64:64+5], "shell")
	binary.LittleEndian.PutUint32(raw[64+32:64+36], uint32(fsimage.TypeRegular))
	binary.LittleEndian.PutUint32(raw[64+36:64+40], 0)

	binary.LittleEndian.PutUint32(raw[blockSize:blockSize+4], uint32(len(data)))
	binary.LittleEndian.PutUint32(raw[blockSize+4:blockSize+8], 0)
	copy(raw[2*blockSize:], data)

	img, err := fsimage.Load(raw)
	if err != nil {
		t.Fatalf("buildTestImage: %v", err)
	}
	return img
}

func newTestKernel(t *testing.T) *kernel.State {
	t.Helper()
	return kernel.New(buildTestImage(t))
}

func TestProcessCommandUnknownVerbReturnsCommandNotFound(t *testing.T) {
	k := newTestKernel(t)
	quit, err := ProcessCommand("not-a-real-command", k)
	if quit {
		t.Fatalf("quit = true, want false")
	}
	if !errors.Is(err, ErrCommandNotFound) {
		t.Fatalf("err = %v, want ErrCommandNotFound", err)
	}
}

func TestProcessCommandBlankLineIsANoop(t *testing.T) {
	k := newTestKernel(t)
	quit, err := ProcessCommand("   ", k)
	if quit || err != nil {
		t.Fatalf("ProcessCommand(blank) = (%v, %v), want (false, nil)", quit, err)
	}
}

func TestProcessCommandQuitReturnsTrue(t *testing.T) {
	k := newTestKernel(t)
	quit, err := ProcessCommand("quit", k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !quit {
		t.Fatalf("quit = false, want true")
	}
}

func TestProcessCommandPSDoesNotError(t *testing.T) {
	k := newTestKernel(t)
	if _, err := ProcessCommand("ps", k); err != nil {
		t.Fatalf("ps: %v", err)
	}
}

func TestProcessCommandTermReportsForegroundWithNoArgs(t *testing.T) {
	k := newTestKernel(t)
	if _, err := ProcessCommand("term", k); err != nil {
		t.Fatalf("term: %v", err)
	}
}

func TestProcessCommandTermSwitchesTerminal(t *testing.T) {
	k := newTestKernel(t)
	if _, err := ProcessCommand("term 0", k); err != nil {
		t.Fatalf("term 0: %v", err)
	}
	if got := k.ForegroundTerminal(); got != 0 {
		t.Fatalf("foreground = %d, want 0", got)
	}
}

func TestProcessCommandAbbreviationMatchesUniquePrefix(t *testing.T) {
	k := newTestKernel(t)
	// "te" is a unique abbreviation of "term" among ps/term/mem/quit.
	if _, err := ProcessCommand("te 0", k); err != nil {
		t.Fatalf("te 0: %v", err)
	}
}

func TestMatchCommandRejectsBelowMinimumLength(t *testing.T) {
	// min is 1 for every command, so only the empty string falls below
	// the minimum abbreviation length.
	if matchCommand(cmd{name: "term", min: 1}, "") {
		t.Fatalf("empty string should not match (shorter than min)")
	}
}

func TestCompleteCmdListsMatchingVerbs(t *testing.T) {
	got := CompleteCmd("t")
	if len(got) != 1 || got[0] != "term" {
		t.Fatalf("CompleteCmd(%q) = %v, want [term]", "t", got)
	}
}

func TestCompleteCmdReturnsNilOnceArgsBegin(t *testing.T) {
	if got := CompleteCmd("term 0"); got != nil {
		t.Fatalf("CompleteCmd with args = %v, want nil", got)
	}
}
