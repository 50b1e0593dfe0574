// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestExtractorExtractsRegularFilesAndDirectories(t *testing.T) {
	srcDir := t.TempDir()
	treeRoot := filepath.Join(srcDir, "project")
	if err := os.Mkdir(treeRoot, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTree(t, treeRoot)

	var archive bytes.Buffer
	a, err := NewArchiver(&archive)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	if err := a.Archive(context.Background(), []string{treeRoot}); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	destDir := t.TempDir()
	e, err := NewExtractor(bytes.NewReader(archive.Bytes()), int64(archive.Len()), WithConcurrency(2))
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	if err := e.Extract(context.Background(), destDir); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "project", "top.txt"))
	if err != nil {
		t.Fatalf("read extracted top.txt: %v", err)
	}
	if string(got) != "top level contents" {
		t.Errorf("top.txt contents = %q, want %q", got, "top level contents")
	}

	if info, err := os.Stat(filepath.Join(destDir, "project", "sub")); err != nil || !info.IsDir() {
		t.Errorf("expected project/sub to exist as a directory, err=%v", err)
	}

	if runtime.GOOS != "windows" {
		target, err := os.Readlink(filepath.Join(destDir, "project", "link-to-top"))
		if err != nil {
			t.Fatalf("readlink: %v", err)
		}
		if target != "top.txt" {
			t.Errorf("symlink target = %q, want %q", target, "top.txt")
		}
	}
}

func TestExtractorPreservesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits are not meaningful on windows")
	}

	srcDir := t.TempDir()
	filePath := filepath.Join(srcDir, "exec.sh")
	if err := os.WriteFile(filePath, []byte("#!/bin/sh\necho hi\n"), 0o700); err != nil {
		t.Fatalf("write: %v", err)
	}

	var archive bytes.Buffer
	a, err := NewArchiver(&archive)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	if err := a.Archive(context.Background(), []string{filePath}); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	destDir := t.TempDir()
	e, err := NewExtractor(bytes.NewReader(archive.Bytes()), int64(archive.Len()), WithPreservePermissions(true))
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	if err := e.Extract(context.Background(), destDir); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	info, err := os.Stat(filepath.Join(destDir, "exec.sh"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("extracted mode = %o, want %o", info.Mode().Perm(), 0o700)
	}
}

func TestExtractorOverwritePolicies(t *testing.T) {
	srcDir := t.TempDir()
	filePath := filepath.Join(srcDir, "file.txt")
	if err := os.WriteFile(filePath, []byte("new contents"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var archive bytes.Buffer
	a, err := NewArchiver(&archive)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	if err := a.Archive(context.Background(), []string{filePath}); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	t.Run("OverwriteNever skips existing files", func(t *testing.T) {
		destDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(destDir, "file.txt"), []byte("original contents"), 0o644); err != nil {
			t.Fatalf("seed destination: %v", err)
		}

		e, err := NewExtractor(bytes.NewReader(archive.Bytes()), int64(archive.Len()), WithOverwritePolicy(OverwriteNever))
		if err != nil {
			t.Fatalf("NewExtractor: %v", err)
		}
		if err := e.Extract(context.Background(), destDir); err != nil {
			t.Fatalf("Extract: %v", err)
		}

		got, err := os.ReadFile(filepath.Join(destDir, "file.txt"))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(got) != "original contents" {
			t.Errorf("contents = %q, want the pre-existing file left untouched", got)
		}
	})

	t.Run("OverwriteError fails when the destination exists", func(t *testing.T) {
		destDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(destDir, "file.txt"), []byte("original contents"), 0o644); err != nil {
			t.Fatalf("seed destination: %v", err)
		}

		e, err := NewExtractor(bytes.NewReader(archive.Bytes()), int64(archive.Len()), WithOverwritePolicy(OverwriteError))
		if err != nil {
			t.Fatalf("NewExtractor: %v", err)
		}
		if err := e.Extract(context.Background(), destDir); err == nil {
			t.Error("Extract() should fail when the destination file already exists")
		}
	})

	t.Run("OverwriteAlways replaces the destination", func(t *testing.T) {
		destDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(destDir, "file.txt"), []byte("original contents"), 0o644); err != nil {
			t.Fatalf("seed destination: %v", err)
		}

		e, err := NewExtractor(bytes.NewReader(archive.Bytes()), int64(archive.Len()), WithOverwritePolicy(OverwriteAlways))
		if err != nil {
			t.Fatalf("NewExtractor: %v", err)
		}
		if err := e.Extract(context.Background(), destDir); err != nil {
			t.Fatalf("Extract: %v", err)
		}

		got, err := os.ReadFile(filepath.Join(destDir, "file.txt"))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(got) != "new contents" {
			t.Errorf("contents = %q, want the archive payload to replace the original", got)
		}
	})
}

func TestExtractorRejectsZipSlip(t *testing.T) {
	if _, err := safeJoin(t.TempDir(), "../../etc/passwd"); err == nil {
		t.Error("safeJoin should reject a name that escapes the destination directory")
	}
}

func TestExtractorModTimePrefersExtendedTimestamp(t *testing.T) {
	e := &Extractor{cfg: newConfig()}
	want := time.Date(2020, time.January, 2, 3, 4, 5, 0, time.UTC)

	h := &FileHeader{Extra: newExtendedTimestampExtra(want)}
	h.DOSDate, h.DOSTime = timeToDOS(want.Add(48 * time.Hour))

	got := e.modTime(h)
	if !got.Equal(want) {
		t.Errorf("modTime() = %v, want %v (extended timestamp should win over DOS fields)", got, want)
	}
}

func TestExtractorModTimeFallsBackToDOS(t *testing.T) {
	e := &Extractor{cfg: newConfig()}
	want := time.Date(2021, time.June, 15, 10, 0, 0, 0, time.UTC)

	h := &FileHeader{}
	h.DOSDate, h.DOSTime = timeToDOS(want)

	got := e.modTime(h)
	if got.Year() != want.Year() || got.Month() != want.Month() || got.Day() != want.Day() {
		t.Errorf("modTime() = %v, want same date as %v", got, want)
	}
}
