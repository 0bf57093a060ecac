package fsimage

import (
	"encoding/binary"
	"testing"
)

// buildImage constructs a minimal image in memory: one directory entry
// ("frame0.txt", regular, inode 0), one inode pointing at as many data
// blocks as data needs (at least one), and the data itself.
func buildImage(t *testing.T, data []byte) []byte {
	t.Helper()
	dataBlocks := (len(data) + blockSize - 1) / blockSize
	if dataBlocks == 0 {
		dataBlocks = 1
	}
	total := blockSize /*boot*/ + blockSize /*one inode*/ + dataBlocks*blockSize
	raw := make([]byte, total)

	binary.LittleEndian.PutUint32(raw[0:4], 1)  // M
	binary.LittleEndian.PutUint32(raw[4:8], 1)  // N
	binary.LittleEndian.PutUint32(raw[8:12], uint32(dataBlocks))

	dentryOff := 64
	name := "frame0.txt"
	copy(raw[dentryOff:dentryOff+len(name)], name)
	binary.LittleEndian.PutUint32(raw[dentryOff+32:dentryOff+36], uint32(TypeRegular))
	binary.LittleEndian.PutUint32(raw[dentryOff+36:dentryOff+40], 0)

	inodeOff := blockSize
	binary.LittleEndian.PutUint32(raw[inodeOff:inodeOff+4], uint32(len(data)))
	for b := 0; b < dataBlocks; b++ {
		start := inodeOff + 4 + b*4
		binary.LittleEndian.PutUint32(raw[start:start+4], uint32(b))
	}

	dataOff := inodeOff + blockSize
	copy(raw[dataOff:], data)
	return raw
}

func TestLookupByName(t *testing.T) {
	raw := buildImage(t, []byte("hello world"))
	img, err := Load(raw)
	if err != nil {
		t.Fatal(err)
	}
	typ, inode, err := img.LookupByName("frame0.txt")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if typ != TypeRegular || inode != 0 {
		t.Fatalf("got type=%v inode=%d", typ, inode)
	}
	if _, _, err := img.LookupByName("nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupByNameClampsAtSpaceOrNUL(t *testing.T) {
	raw := buildImage(t, nil)
	img, _ := Load(raw)
	// "frame0.txt extra" should match "frame0.txt" because the space ends the query name.
	typ, inode, err := img.LookupByName("frame0.txt extra")
	if err != nil || typ != TypeRegular || inode != 0 {
		t.Fatalf("space-terminated lookup failed: typ=%v inode=%d err=%v", typ, inode, err)
	}
}

func TestLookupByIndex(t *testing.T) {
	raw := buildImage(t, nil)
	img, _ := Load(raw)
	d, ok := img.LookupByIndex(0)
	if !ok || d.Name != "frame0.txt" {
		t.Fatalf("LookupByIndex(0) = %+v, ok=%v", d, ok)
	}
	if _, ok := img.LookupByIndex(1); ok {
		t.Fatalf("LookupByIndex(1) should fail, M=1")
	}
}

func TestReadDataWholeFile(t *testing.T) {
	content := []byte("0123456789")
	raw := buildImage(t, content)
	img, _ := Load(raw)

	buf := make([]byte, 100)
	n := img.ReadData(0, 0, buf)
	if n != len(content) {
		t.Fatalf("read %d bytes, want %d", n, len(content))
	}
	if string(buf[:n]) != string(content) {
		t.Fatalf("got %q want %q", buf[:n], content)
	}

	n2 := img.ReadData(0, uint32(len(content)), buf)
	if n2 != 0 {
		t.Fatalf("second read past EOF returned %d, want 0", n2)
	}
}

func TestReadDataAcrossBlockBoundary(t *testing.T) {
	content := make([]byte, blockSize+100)
	for i := range content {
		content[i] = byte(i)
	}
	raw := buildImage(t, content)
	img, _ := Load(raw)

	buf := make([]byte, len(content))
	n := img.ReadData(0, 0, buf)
	if n != len(content) {
		t.Fatalf("read %d bytes, want %d", n, len(content))
	}
	for i := range content {
		if buf[i] != content[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, buf[i], content[i])
		}
	}
}

func TestReadDataOffsetWithinBlock(t *testing.T) {
	content := []byte("abcdefghij")
	raw := buildImage(t, content)
	img, _ := Load(raw)

	buf := make([]byte, 4)
	n := img.ReadData(0, 3, buf)
	if n != 4 || string(buf) != "defg" {
		t.Fatalf("got %q (%d), want defg (4)", buf[:n], n)
	}
}

func TestReadDataBadInode(t *testing.T) {
	raw := buildImage(t, []byte("x"))
	img, _ := Load(raw)
	if n := img.ReadData(5, 0, make([]byte, 10)); n != -1 {
		t.Fatalf("bad inode should return -1, got %d", n)
	}
}

func TestWriteDataAlwaysFails(t *testing.T) {
	raw := buildImage(t, []byte("x"))
	img, _ := Load(raw)
	if n, err := img.WriteData(0, 0, []byte("y")); n != -1 || err == nil {
		t.Fatalf("write should fail, got n=%d err=%v", n, err)
	}
}
