// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"bytes"
	"context"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/kodepack/pzip/deflate"
)

func writeTree(t *testing.T, root string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "top.txt"), []byte("top level contents"), 0o644); err != nil {
		t.Fatalf("write top.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "nested.txt"), bytes.Repeat([]byte("nested payload "), 200), 0o644); err != nil {
		t.Fatalf("write nested.txt: %v", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Symlink("top.txt", filepath.Join(root, "link-to-top")); err != nil {
			t.Fatalf("symlink: %v", err)
		}
	}
}

func TestArchiverArchivesDirectoryTree(t *testing.T) {
	srcDir := t.TempDir()
	treeRoot := filepath.Join(srcDir, "project")
	if err := os.Mkdir(treeRoot, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTree(t, treeRoot)

	var buf bytes.Buffer
	a, err := NewArchiver(&buf, WithConcurrency(2), WithCompressionLevel(deflate.BestSpeed))
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	if err := a.Archive(context.Background(), []string{treeRoot}); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	r, err := OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}

	names := make([]string, 0, len(r.Entries))
	byName := make(map[string]Entry, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, e.Header.Name)
		byName[e.Header.Name] = e
	}
	sort.Strings(names)

	want := []string{"project/", "project/sub/", "project/sub/nested.txt", "project/top.txt"}
	if runtime.GOOS != "windows" {
		want = append(want, "project/link-to-top")
		sort.Strings(want)
	}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	topEntry := byName["project/top.txt"]
	rc, err := r.Open(&topEntry)
	if err != nil {
		t.Fatalf("Open(top.txt): %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("ReadAll(top.txt): %v", err)
	}
	if string(got) != "top level contents" {
		t.Errorf("top.txt contents = %q, want %q", got, "top level contents")
	}

	if dirEntry := byName["project/sub/"]; dirEntry.Header.Method != Store {
		t.Errorf("directory entry method = %v, want Store", dirEntry.Header.Method)
	}

	if runtime.GOOS != "windows" {
		linkEntry, ok := byName["project/link-to-top"]
		if !ok {
			t.Fatal("missing project/link-to-top entry")
		}
		target := []byte("top.txt")
		if linkEntry.Header.Method != Store {
			t.Errorf("symlink entry method = %v, want Store", linkEntry.Header.Method)
		}
		if linkEntry.Header.CompressedSize != uint64(len(target)) {
			t.Errorf("symlink entry CompressedSize = %d, want %d", linkEntry.Header.CompressedSize, len(target))
		}
		if linkEntry.Header.UncompressedSize != uint64(len(target)) {
			t.Errorf("symlink entry UncompressedSize = %d, want %d", linkEntry.Header.UncompressedSize, len(target))
		}
		if want := crc32.ChecksumIEEE(target); linkEntry.Header.CRC32 != want {
			t.Errorf("symlink entry CRC32 = %#x, want %#x", linkEntry.Header.CRC32, want)
		}
	}
}

func TestArchiverArchiveSingleFile(t *testing.T) {
	srcDir := t.TempDir()
	filePath := filepath.Join(srcDir, "solo.txt")
	if err := os.WriteFile(filePath, []byte("solo contents"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var buf bytes.Buffer
	a, err := NewArchiver(&buf)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	if err := a.Archive(context.Background(), []string{filePath}); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	r, err := OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	if len(r.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(r.Entries))
	}
	if r.Entries[0].Header.Name != "solo.txt" {
		t.Errorf("entry name = %q, want %q", r.Entries[0].Header.Name, "solo.txt")
	}
}

func TestArchiverMissingPathReturnsError(t *testing.T) {
	var buf bytes.Buffer
	a, err := NewArchiver(&buf)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	if err := a.Archive(context.Background(), []string{filepath.Join(t.TempDir(), "does-not-exist")}); err == nil {
		t.Error("Archive() with a missing path should error")
	}
}
