// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// maxEOCDSearch bounds the backward scan for the end-of-central-directory
// signature: the EOCD is at most 22 bytes plus a 65535-byte comment.
const maxEOCDSearch = 65557

// Entry is a parsed central directory record together with the two offsets
// a reader needs to stream its payload.
type Entry struct {
	Header           FileHeader
	LocalHeaderOffset uint64
	DataOffset        uint64
}

// Reader parses an existing ZIP archive's central directory so entries can
// be decompressed in parallel without re-scanning the file per entry.
type Reader struct {
	src     io.ReaderAt
	size    int64
	Entries []Entry
}

// OpenReader parses the archive's EOCD and central directory, resolving
// each entry's local-header offset and data offset (signature and fixed
// header length plus name/extra length).
func OpenReader(src io.ReaderAt, size int64) (*Reader, error) {
	r := &Reader{src: src, size: size}

	eocdOffset, eocd, err := r.findEndOfCentralDir()
	if err != nil {
		return nil, newError(InvalidArchive, "openReader", err)
	}

	cdOffset := uint64(eocd.cdOffset)
	totalEntries := uint64(eocd.totalEntries)

	if eocd.cdOffset == uint32max || eocd.totalEntries == uint16max {
		cdOffset, totalEntries, err = r.readZip64EndOfCentralDir(eocdOffset)
		if err != nil {
			return nil, newError(InvalidArchive, "openReader", err)
		}
	}

	if err := r.readCentralDir(cdOffset, totalEntries); err != nil {
		return nil, newError(InvalidArchive, "openReader", err)
	}
	return r, nil
}

func (r *Reader) findEndOfCentralDir() (int64, endOfCentralDir, error) {
	searchLen := int64(maxEOCDSearch)
	if searchLen > r.size {
		searchLen = r.size
	}
	if searchLen < endOfCentralDirLen {
		return 0, endOfCentralDir{}, errors.New("file too small to contain end of central directory record")
	}

	buf := make([]byte, searchLen)
	if _, err := r.src.ReadAt(buf, r.size-searchLen); err != nil && err != io.EOF {
		return 0, endOfCentralDir{}, errors.Wrap(err, "read trailing bytes")
	}

	for p := len(buf) - 4; p >= 0; p-- {
		if binary.LittleEndian.Uint32(buf[p:p+4]) != sigEndOfCentralDir {
			continue
		}
		rec := buf[p:]
		if len(rec) < endOfCentralDirLen {
			continue
		}
		eocd := endOfCentralDir{
			entriesOnDisk: binary.LittleEndian.Uint16(rec[8:10]),
			totalEntries:  binary.LittleEndian.Uint16(rec[10:12]),
			cdSize:        binary.LittleEndian.Uint32(rec[12:16]),
			cdOffset:      binary.LittleEndian.Uint32(rec[16:20]),
		}
		return r.size - searchLen + int64(p), eocd, nil
	}

	return 0, endOfCentralDir{}, errors.New("end of central directory signature not found")
}

func (r *Reader) readZip64EndOfCentralDir(eocdOffset int64) (cdOffset, totalEntries uint64, err error) {
	locBuf := make([]byte, zip64LocatorLen)
	if _, err := r.src.ReadAt(locBuf, eocdOffset-zip64LocatorLen); err != nil {
		return 0, 0, errors.Wrap(err, "read zip64 locator")
	}
	if binary.LittleEndian.Uint32(locBuf[0:4]) != sigZip64EndOfCentralDirLocator {
		return 0, 0, errors.New("expected zip64 end of central directory locator signature")
	}
	zip64EOCDOffset := int64(binary.LittleEndian.Uint64(locBuf[8:16]))

	recBuf := make([]byte, zip64EndOfCentralDirLen)
	if _, err := r.src.ReadAt(recBuf, zip64EOCDOffset); err != nil {
		return 0, 0, errors.Wrap(err, "read zip64 end of central directory record")
	}
	if binary.LittleEndian.Uint32(recBuf[0:4]) != sigZip64EndOfCentralDir {
		return 0, 0, errors.New("expected zip64 end of central directory signature")
	}

	totalEntries = binary.LittleEndian.Uint64(recBuf[32:40])
	cdOffset = binary.LittleEndian.Uint64(recBuf[48:56])
	return cdOffset, totalEntries, nil
}

func (r *Reader) readCentralDir(cdOffset, totalEntries uint64) error {
	r.Entries = make([]Entry, 0, totalEntries)
	offset := int64(cdOffset)

	fixed := make([]byte, centralDirHeaderLen)
	for i := uint64(0); i < totalEntries; i++ {
		if _, err := r.src.ReadAt(fixed, offset); err != nil {
			return errors.Wrapf(err, "read central directory header %d", i)
		}
		if binary.LittleEndian.Uint32(fixed[0:4]) != sigCentralDirHeader {
			return errors.Errorf("bad central directory signature at entry %d", i)
		}

		nameLen := int(binary.LittleEndian.Uint16(fixed[28:30]))
		extraLen := int(binary.LittleEndian.Uint16(fixed[30:32]))
		commentLen := int(binary.LittleEndian.Uint16(fixed[32:34]))

		trailing := make([]byte, nameLen+extraLen+commentLen)
		if len(trailing) > 0 {
			if _, err := r.src.ReadAt(trailing, offset+centralDirHeaderLen); err != nil {
				return errors.Wrapf(err, "read central directory trailer %d", i)
			}
		}

		h := FileHeader{
			Name:             string(trailing[:nameLen]),
			VersionMadeBy:    binary.LittleEndian.Uint16(fixed[4:6]),
			VersionNeeded:    binary.LittleEndian.Uint16(fixed[6:8]),
			Flags:            binary.LittleEndian.Uint16(fixed[8:10]),
			Method:           Method(binary.LittleEndian.Uint16(fixed[10:12])),
			DOSTime:          binary.LittleEndian.Uint16(fixed[12:14]),
			DOSDate:          binary.LittleEndian.Uint16(fixed[14:16]),
			CRC32:            binary.LittleEndian.Uint32(fixed[16:20]),
			CompressedSize:   uint64(binary.LittleEndian.Uint32(fixed[20:24])),
			UncompressedSize: uint64(binary.LittleEndian.Uint32(fixed[24:28])),
			ExternalAttr:     binary.LittleEndian.Uint32(fixed[38:42]),
			Extra:            trailing[nameLen : nameLen+extraLen],
			Comment:          string(trailing[nameLen+extraLen:]),
		}
		localHeaderOffset := uint64(binary.LittleEndian.Uint32(fixed[42:46]))

		if u, c, o, ok := parseZip64Extra(h.Extra); ok {
			if h.UncompressedSize == uint32max {
				h.UncompressedSize = u
			}
			if h.CompressedSize == uint32max {
				h.CompressedSize = c
			}
			if localHeaderOffset == uint32max {
				localHeaderOffset = o
			}
		}

		dataOffset, err := r.resolveDataOffset(localHeaderOffset)
		if err != nil {
			return errors.Wrapf(err, "resolve data offset for %q", h.Name)
		}

		r.Entries = append(r.Entries, Entry{Header: h, LocalHeaderOffset: localHeaderOffset, DataOffset: dataOffset})
		offset += centralDirHeaderLen + int64(nameLen+extraLen+commentLen)
	}
	return nil
}

// parseZip64Extra scans extra for a tag-0x0001 field and returns whichever
// of (uncompressed, compressed, offset) it carries, in the fixed order
// ZIP64 requires them to appear when present.
func parseZip64Extra(extra []byte) (uncompressed, compressed, offset uint64, ok bool) {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra[0:2])
		size := binary.LittleEndian.Uint16(extra[2:4])
		if int(size) > len(extra)-4 {
			return 0, 0, 0, false
		}
		data := extra[4 : 4+size]
		if id == zip64ExtraID {
			switch {
			case len(data) >= 24:
				return binary.LittleEndian.Uint64(data[0:8]), binary.LittleEndian.Uint64(data[8:16]), binary.LittleEndian.Uint64(data[16:24]), true
			case len(data) >= 16:
				return binary.LittleEndian.Uint64(data[0:8]), binary.LittleEndian.Uint64(data[8:16]), 0, true
			case len(data) >= 8:
				return 0, 0, binary.LittleEndian.Uint64(data[0:8]), true
			}
		}
		extra = extra[4+size:]
	}
	return 0, 0, 0, false
}

func (r *Reader) resolveDataOffset(localHeaderOffset uint64) (uint64, error) {
	fixed := make([]byte, localHeaderLen)
	if _, err := r.src.ReadAt(fixed, int64(localHeaderOffset)); err != nil {
		return 0, errors.Wrap(err, "read local file header")
	}
	if binary.LittleEndian.Uint32(fixed[0:4]) != sigLocalFileHeader {
		return 0, errors.New("invalid local file header signature")
	}
	nameLen := uint64(binary.LittleEndian.Uint16(fixed[26:28]))
	extraLen := uint64(binary.LittleEndian.Uint16(fixed[28:30]))
	return localHeaderOffset + localHeaderLen + nameLen + extraLen, nil
}

// Open returns a reader that decompresses e's payload (STORE or DEFLATE,
// streamed via klauspost/compress/flate) and verifies its CRC-32 once
// fully consumed.
func (r *Reader) Open(e *Entry) (io.ReadCloser, error) {
	section := io.NewSectionReader(r.src, int64(e.DataOffset), int64(e.Header.CompressedSize))

	switch e.Header.Method {
	case Store:
		return &crcVerifyingReader{src: io.NopCloser(section), want: e.Header.CRC32, hash: crc32.NewIEEE(), name: e.Header.Name}, nil
	case Deflate:
		fr := flate.NewReader(section)
		return &crcVerifyingReader{src: fr, want: e.Header.CRC32, hash: crc32.NewIEEE(), name: e.Header.Name}, nil
	default:
		return nil, newError(DecompressionError, "open", errors.Errorf("unsupported compression method %d for %q", e.Header.Method, e.Header.Name))
	}
}

type crcVerifyingReader struct {
	src  io.ReadCloser
	hash uint32Hash
	want uint32
	name string
	done bool
}

type uint32Hash interface {
	io.Writer
	Sum32() uint32
}

func (c *crcVerifyingReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	if n > 0 {
		c.hash.Write(p[:n])
	}
	if err == io.EOF && !c.done {
		c.done = true
		if c.hash.Sum32() != c.want {
			return n, newError(DecompressionError, "read", errors.Errorf("crc32 mismatch for %q", c.name))
		}
	}
	return n, err
}

func (c *crcVerifyingReader) Close() error { return c.src.Close() }
