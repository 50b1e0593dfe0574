// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"encoding/binary"
)

// Signature values identify each ZIP record type; all begin with the
// two-byte marker 0x4b50 ("PK"), per APPNOTE 6.3.
const (
	sigLocalFileHeader     uint32 = 0x04034b50
	sigDataDescriptor      uint32 = 0x08074b50
	sigCentralDirHeader    uint32 = 0x02014b50
	sigEndOfCentralDir     uint32 = 0x06054b50
	sigZip64EndOfCentralDir        uint32 = 0x06064b50
	sigZip64EndOfCentralDirLocator uint32 = 0x07064b50
)

const (
	localHeaderLen          = 30
	centralDirHeaderLen     = 46
	endOfCentralDirLen      = 22
	zip64EndOfCentralDirLen = 56
	zip64LocatorLen         = 20
	dataDescriptorLen       = 16
	dataDescriptor64Len     = 24

	versionNeeded20 = 20
	versionNeeded45 = 45

	uint16max = 0xFFFF
	uint32max = 0xFFFFFFFF

	zip64ExtraID = 0x0001
)

// Method identifies a ZIP compression method. Only Store and Deflate are
// supported for both reading and writing; Non-goals exclude the rest.
type Method uint16

const (
	Store   Method = 0
	Deflate Method = 8
)

// EntryKind distinguishes the three archive member kinds pzip writes.
type EntryKind int

const (
	KindRegular EntryKind = iota
	KindDirectory
	KindSymlink
)

// FileHeader is the in-memory representation of everything a local file
// header, its data descriptor, and its central directory counterpart need
// to be written (or that a read produced). Name always uses forward
// slashes and carries a trailing slash for directories.
type FileHeader struct {
	Name              string
	VersionMadeBy     uint16
	VersionNeeded     uint16
	Flags             uint16
	Method            Method
	DOSTime           uint16
	DOSDate           uint16
	CRC32             uint32
	CompressedSize    uint64
	UncompressedSize  uint64
	ExternalAttr      uint32
	Extra             []byte
	Comment           string
}

// IsZip64 reports whether either size field requires the 64-bit extension:
// true when either size is at least 0xFFFFFFFF, since that value is the
// 32-bit field's "see ZIP64 extra" sentinel.
func (h *FileHeader) IsZip64() bool {
	return h.CompressedSize >= uint32max || h.UncompressedSize >= uint32max
}

func (h *FileHeader) hasDataDescriptor() bool {
	return h.Flags&0x8 != 0
}

// encodeLocalHeader writes the 30-byte fixed local file header plus name
// and extra. Data-descriptor entries write zero CRC/sizes; ZIP64 entries
// without a descriptor write the 0xFFFFFFFF sentinel (the real sizes live
// in the central directory's ZIP64 extra).
func (h *FileHeader) encodeLocalHeader() []byte {
	name := []byte(h.Name)
	versionNeeded := versionNeeded20
	if h.IsZip64() {
		versionNeeded = versionNeeded45
	}

	crc, comp, uncomp := h.CRC32, uint32(h.CompressedSize), uint32(h.UncompressedSize)
	if h.hasDataDescriptor() {
		crc, comp, uncomp = 0, 0, 0
	} else if h.IsZip64() {
		comp, uncomp = uint32max, uint32max
	}

	buf := make([]byte, localHeaderLen+len(name)+len(h.Extra))
	binary.LittleEndian.PutUint32(buf[0:4], sigLocalFileHeader)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(versionNeeded))
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint16(buf[8:10], uint16(h.Method))
	binary.LittleEndian.PutUint16(buf[10:12], h.DOSTime)
	binary.LittleEndian.PutUint16(buf[12:14], h.DOSDate)
	binary.LittleEndian.PutUint32(buf[14:18], crc)
	binary.LittleEndian.PutUint32(buf[18:22], comp)
	binary.LittleEndian.PutUint32(buf[22:26], uncomp)
	binary.LittleEndian.PutUint16(buf[26:28], uint16(len(name)))
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(h.Extra)))
	copy(buf[30:], name)
	copy(buf[30+len(name):], h.Extra)
	return buf
}

// encodeDataDescriptor writes the 16- or 24-byte trailer carrying CRC and
// sizes that the local header left zeroed.
func (h *FileHeader) encodeDataDescriptor() []byte {
	if h.IsZip64() {
		buf := make([]byte, dataDescriptor64Len)
		binary.LittleEndian.PutUint32(buf[0:4], sigDataDescriptor)
		binary.LittleEndian.PutUint32(buf[4:8], h.CRC32)
		binary.LittleEndian.PutUint64(buf[8:16], h.CompressedSize)
		binary.LittleEndian.PutUint64(buf[16:24], h.UncompressedSize)
		return buf
	}
	buf := make([]byte, dataDescriptorLen)
	binary.LittleEndian.PutUint32(buf[0:4], sigDataDescriptor)
	binary.LittleEndian.PutUint32(buf[4:8], h.CRC32)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.CompressedSize))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.UncompressedSize))
	return buf
}

// encodeZip64Extra builds a tag-0x0001 extra field carrying the three
// 64-bit values (uncompressed, compressed, offset) in that order, per
// spec.md 4.D step 2: always size 24, all three fields present.
func encodeZip64Extra(uncompressed, compressed, offset uint64) []byte {
	buf := make([]byte, 4+24)
	binary.LittleEndian.PutUint16(buf[0:2], zip64ExtraID)
	binary.LittleEndian.PutUint16(buf[2:4], 24)
	binary.LittleEndian.PutUint64(buf[4:12], uncompressed)
	binary.LittleEndian.PutUint64(buf[12:20], compressed)
	binary.LittleEndian.PutUint64(buf[20:28], offset)
	return buf
}

// encodeCentralDirHeader writes the 46-byte fixed central directory header
// plus name, extra, and comment. need_zip64 entries write 0xFFFFFFFF
// sentinels for any overflowing size/offset field; the caller is
// responsible for appending the ZIP64 extra to h.Extra beforehand.
func (h *FileHeader) encodeCentralDirHeader(localHeaderOffset uint64) []byte {
	name := []byte(h.Name)
	comment := []byte(h.Comment)

	comp, uncomp := uint32(h.CompressedSize), uint32(h.UncompressedSize)
	if h.CompressedSize >= uint32max {
		comp = uint32max
	}
	if h.UncompressedSize >= uint32max {
		uncomp = uint32max
	}
	offset := uint32(localHeaderOffset)
	if localHeaderOffset >= uint32max {
		offset = uint32max
	}

	buf := make([]byte, centralDirHeaderLen+len(name)+len(h.Extra)+len(comment))
	binary.LittleEndian.PutUint32(buf[0:4], sigCentralDirHeader)
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionMadeBy)
	binary.LittleEndian.PutUint16(buf[6:8], h.VersionNeeded)
	binary.LittleEndian.PutUint16(buf[8:10], h.Flags)
	binary.LittleEndian.PutUint16(buf[10:12], uint16(h.Method))
	binary.LittleEndian.PutUint16(buf[12:14], h.DOSTime)
	binary.LittleEndian.PutUint16(buf[14:16], h.DOSDate)
	binary.LittleEndian.PutUint32(buf[16:20], h.CRC32)
	binary.LittleEndian.PutUint32(buf[20:24], comp)
	binary.LittleEndian.PutUint32(buf[24:28], uncomp)
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(name)))
	binary.LittleEndian.PutUint16(buf[30:32], uint16(len(h.Extra)))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(len(comment)))
	binary.LittleEndian.PutUint16(buf[34:36], 0) // disk number start
	binary.LittleEndian.PutUint16(buf[36:38], 0) // internal attrs
	binary.LittleEndian.PutUint32(buf[38:42], h.ExternalAttr)
	binary.LittleEndian.PutUint32(buf[42:46], offset)
	copy(buf[46:], name)
	copy(buf[46+len(name):], h.Extra)
	copy(buf[46+len(name)+len(h.Extra):], comment)
	return buf
}

type endOfCentralDir struct {
	entriesOnDisk uint16
	totalEntries  uint16
	cdSize        uint32
	cdOffset      uint32
	comment       string
}

func (e endOfCentralDir) encode() []byte {
	buf := make([]byte, endOfCentralDirLen+len(e.comment))
	binary.LittleEndian.PutUint32(buf[0:4], sigEndOfCentralDir)
	binary.LittleEndian.PutUint16(buf[4:6], 0)
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	binary.LittleEndian.PutUint16(buf[8:10], e.entriesOnDisk)
	binary.LittleEndian.PutUint16(buf[10:12], e.totalEntries)
	binary.LittleEndian.PutUint32(buf[12:16], e.cdSize)
	binary.LittleEndian.PutUint32(buf[16:20], e.cdOffset)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(len(e.comment)))
	copy(buf[22:], e.comment)
	return buf
}

type zip64EndOfCentralDir struct {
	totalEntries uint64
	cdSize       uint64
	cdOffset     uint64
}

func (z zip64EndOfCentralDir) encode() []byte {
	buf := make([]byte, zip64EndOfCentralDirLen)
	binary.LittleEndian.PutUint32(buf[0:4], sigZip64EndOfCentralDir)
	binary.LittleEndian.PutUint64(buf[4:12], zip64EndOfCentralDirLen-12)
	binary.LittleEndian.PutUint16(buf[12:14], versionNeeded45)
	binary.LittleEndian.PutUint16(buf[14:16], versionNeeded45)
	binary.LittleEndian.PutUint32(buf[16:20], 0)
	binary.LittleEndian.PutUint32(buf[20:24], 0)
	binary.LittleEndian.PutUint64(buf[24:32], z.totalEntries)
	binary.LittleEndian.PutUint64(buf[32:40], z.totalEntries)
	binary.LittleEndian.PutUint64(buf[40:48], z.cdSize)
	binary.LittleEndian.PutUint64(buf[48:56], z.cdOffset)
	return buf
}

type zip64Locator struct {
	eocdOffset uint64
}

func (z zip64Locator) encode() []byte {
	buf := make([]byte, zip64LocatorLen)
	binary.LittleEndian.PutUint32(buf[0:4], sigZip64EndOfCentralDirLocator)
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint64(buf[8:16], z.eocdOffset)
	binary.LittleEndian.PutUint32(buf[16:20], 1)
	return buf
}
