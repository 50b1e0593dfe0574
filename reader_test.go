// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"bytes"
	"hash/crc32"
	"io"
	"testing"
)

func buildArchive(t *testing.T, entries map[string][]byte, method Method) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)

	for name, data := range entries {
		h := &FileHeader{
			Name:             name,
			Method:           method,
			CRC32:            crc32.ChecksumIEEE(data),
			UncompressedSize: uint64(len(data)),
			CompressedSize:   uint64(len(data)),
		}
		if err := w.CreateRaw(h, func(dst io.Writer) error {
			_, err := dst.Write(data)
			return err
		}); err != nil {
			t.Fatalf("CreateRaw(%s): %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestOpenReaderParsesStoredEntries(t *testing.T) {
	entries := map[string][]byte{
		"a.txt": []byte("hello"),
		"b.txt": []byte("world, a slightly longer payload"),
	}
	data := buildArchive(t, entries, Store)

	r, err := OpenReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	if len(r.Entries) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(r.Entries), len(entries))
	}

	for _, e := range r.Entries {
		want, ok := entries[e.Header.Name]
		if !ok {
			t.Fatalf("unexpected entry %q", e.Header.Name)
		}
		rc, err := r.Open(&e)
		if err != nil {
			t.Fatalf("Open(%s): %v", e.Header.Name, err)
		}
		got, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll(%s): %v", e.Header.Name, err)
		}
		rc.Close()
		if !bytes.Equal(got, want) {
			t.Errorf("%s: got %q, want %q", e.Header.Name, got, want)
		}
	}
}

func TestOpenReaderRejectsTruncatedFile(t *testing.T) {
	_, err := OpenReader(bytes.NewReader([]byte("not a zip")), 9)
	if err == nil {
		t.Error("OpenReader on a non-archive should error")
	}
}

func TestOpenReaderDetectsCRCMismatch(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	data := []byte("payload")
	h := &FileHeader{
		Name:             "bad.txt",
		Method:           Store,
		CRC32:            crc32.ChecksumIEEE(data) ^ 0xFF, // deliberately wrong
		UncompressedSize: uint64(len(data)),
		CompressedSize:   uint64(len(data)),
	}
	if err := w.CreateRaw(h, func(dst io.Writer) error {
		_, err := dst.Write(data)
		return err
	}); err != nil {
		t.Fatalf("CreateRaw: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	rc, err := r.Open(&r.Entries[0])
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if _, err := io.ReadAll(rc); err == nil {
		t.Error("expected a CRC mismatch error on read")
	}
}

func TestParseZip64ExtraRoundTrip(t *testing.T) {
	extra := encodeZip64Extra(1<<32, 1<<33, 1<<34)

	u, c, o, ok := parseZip64Extra(extra)
	if !ok {
		t.Fatal("parseZip64Extra() ok = false, want true")
	}
	if u != 1<<32 || c != 1<<33 || o != 1<<34 {
		t.Errorf("got (%d, %d, %d), want (%d, %d, %d)", u, c, o, uint64(1)<<32, uint64(1)<<33, uint64(1)<<34)
	}
}

func TestParseZip64ExtraMissingTagReturnsNotOK(t *testing.T) {
	_, _, _, ok := parseZip64Extra(nil)
	if ok {
		t.Error("parseZip64Extra(nil) ok = true, want false")
	}
}
