/*
 * ia32os - Read-only filesystem image reader
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

// Package fsimage parses the boot-block filesystem image: one boot block,
// up to 63 directory entries, N inodes, and D 4 KiB data blocks, all
// packed into a single blob the way the real hardware would see it
// mapped at a fixed physical address. The image never changes after
// Load: this filesystem is read-only by construction, per spec.md.
package fsimage

import (
	"encoding/binary"
	"errors"
	"os"
)

const (
	blockSize    = 4096
	maxDentries  = 63
	dentrySize   = 64
	nameLen      = 32
	maxBlocksPtr = 1023 // data-block indices per inode
)

// EntryType is the directory-entry type tag.
type EntryType uint32

const (
	TypeRTC       EntryType = 0
	TypeDirectory EntryType = 1
	TypeRegular   EntryType = 2
)

// Dentry is one 64-byte directory entry.
type Dentry struct {
	Name  string
	Type  EntryType
	Inode int32
}

// Image is a parsed, read-only filesystem.
type Image struct {
	raw       []byte
	dentries  int
	inodeCnt  int
	dataCnt   int
	dentryOff int
	inodeOff  int
	dataOff   int
}

var (
	// ErrNotFound is returned by LookupByName when no entry matches.
	ErrNotFound = errors.New("fsimage: name not found")
	// ErrReadOnly is returned by Write for regular files and directories.
	ErrReadOnly = errors.New("fsimage: filesystem is read-only")
)

// Load parses image data already resident in memory (or loaded from a
// file with LoadFile).
func Load(raw []byte) (*Image, error) {
	if len(raw) < blockSize {
		return nil, errors.New("fsimage: image shorter than one block")
	}
	m := binary.LittleEndian.Uint32(raw[0:4])
	n := binary.LittleEndian.Uint32(raw[4:8])
	d := binary.LittleEndian.Uint32(raw[8:12])
	if m > maxDentries {
		m = maxDentries
	}
	img := &Image{
		raw:       raw,
		dentries:  int(m),
		inodeCnt:  int(n),
		dataCnt:   int(d),
		dentryOff: 64,
		inodeOff:  blockSize,
	}
	img.dataOff = img.inodeOff + int(n)*blockSize
	return img, nil
}

// LoadFile reads a filesystem image from disk, mirroring the teacher's
// file-or-in-memory dual construction for device-backed data.
func LoadFile(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(raw)
}

// clampName applies spec.md's name-matching rule: a space or NUL in the
// query ends the name, and the comparison never looks past 32 bytes.
func clampName(name string) string {
	if len(name) > nameLen {
		name = name[:nameLen]
	}
	for i := 0; i < len(name); i++ {
		if name[i] == ' ' || name[i] == 0 {
			return name[:i]
		}
	}
	return name
}

func dentryName(raw []byte) string {
	end := nameLen
	for i := 0; i < nameLen; i++ {
		if raw[i] == 0 {
			end = i
			break
		}
	}
	return string(raw[:end])
}

func (img *Image) readDentry(i int) Dentry {
	off := img.dentryOff + i*dentrySize
	raw := img.raw[off : off+dentrySize]
	return Dentry{
		Name:  dentryName(raw[0:nameLen]),
		Type:  EntryType(binary.LittleEndian.Uint32(raw[nameLen : nameLen+4])),
		Inode: int32(binary.LittleEndian.Uint32(raw[nameLen+4 : nameLen+8])),
	}
}

// LookupByName returns the type and inode index of the first directory
// entry whose name matches, in directory order (spec.md's tie-break).
func (img *Image) LookupByName(name string) (EntryType, int32, error) {
	want := clampName(name)
	for i := 0; i < img.dentries; i++ {
		d := img.readDentry(i)
		if d.Name == want {
			return d.Type, d.Inode, nil
		}
	}
	return 0, -1, ErrNotFound
}

// LookupByIndex fills in the i-th directory entry. ok is false when
// i >= the directory-entry count.
func (img *Image) LookupByIndex(i int) (Dentry, bool) {
	if i < 0 || i >= img.dentries {
		return Dentry{}, false
	}
	return img.readDentry(i), true
}

// DentryCount returns M, the number of directory entries.
func (img *Image) DentryCount() int { return img.dentries }

type inode struct {
	size   uint32
	blocks [maxBlocksPtr]uint32
}

func (img *Image) readInode(idx int32) (inode, bool) {
	if idx < 0 || int(idx) >= img.inodeCnt {
		return inode{}, false
	}
	off := img.inodeOff + int(idx)*blockSize
	raw := img.raw[off : off+blockSize]
	var in inode
	in.size = binary.LittleEndian.Uint32(raw[0:4])
	for i := 0; i < maxBlocksPtr; i++ {
		start := 4 + i*4
		in.blocks[i] = binary.LittleEndian.Uint32(raw[start : start+4])
	}
	return in, true
}

// FileSize returns the byte size recorded in the inode, or 0 if inode is
// out of range.
func (img *Image) FileSize(idx int32) uint32 {
	in, ok := img.readInode(idx)
	if !ok {
		return 0
	}
	return in.size
}

// ReadData is the critical read path: copies up to len(buf) bytes of
// inode's data, starting at offset, walking contiguous data-block
// indices recorded in the inode. Returns the number of bytes copied, or
// -1 if no data could be read at all (an out-of-range block index was
// hit before any bytes were copied).
func (img *Image) ReadData(idx int32, offset uint32, buf []byte) int {
	in, ok := img.readInode(idx)
	if !ok {
		return -1
	}
	if offset >= in.size || len(buf) == 0 {
		return 0
	}

	end := offset + uint32(len(buf))
	if end > in.size {
		end = in.size
	}

	startBlock := int(offset / blockSize)
	startOff := offset % blockSize
	copied := 0
	remaining := int(end - offset)

	for blk := startBlock; remaining > 0; blk++ {
		if blk >= maxBlocksPtr {
			break
		}
		dataBlk := in.blocks[blk]
		if int(dataBlk) >= img.dataCnt {
			if copied == 0 {
				return -1
			}
			break
		}
		base := img.dataOff + int(dataBlk)*blockSize
		chunkOff := 0
		if blk == startBlock {
			chunkOff = int(startOff)
		}
		n := blockSize - chunkOff
		if n > remaining {
			n = remaining
		}
		copy(buf[copied:copied+n], img.raw[base+chunkOff:base+chunkOff+n])
		copied += n
		remaining -= n
	}
	return copied
}

// WriteData always fails: spec.md allows no writes to the filesystem,
// for regular files or directories.
func (img *Image) WriteData(int32, uint32, []byte) (int, error) {
	return -1, ErrReadOnly
}
