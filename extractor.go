// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kodepack/pzip/workerpool"
)

// ExtractTask is the unit of work threaded through the extractor's worker
// pool: one archive entry, decompressed and written to destDir.
type ExtractTask struct {
	Entry   *Entry
	DestDir string
}

// Extractor opens an existing ZIP archive and expands it to a destination
// directory, decompressing entries across a bounded worker pool, per
// spec.md §4.I.
type Extractor struct {
	cfg *config
	r   *Reader
}

// NewExtractor parses src's central directory and returns an Extractor
// ready for Extract. size must be src's total length.
func NewExtractor(src io.ReaderAt, size int64, opts ...Option) (*Extractor, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	r, err := OpenReader(src, size)
	if err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg, r: r}, nil
}

// Extract decompresses every entry into destDir, restoring Unix
// permissions and modification time, and returns the first error observed
// by any worker.
func (e *Extractor) Extract(ctx context.Context, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return newError(FileWriteError, "extract", errors.Wrapf(err, "create %q", destDir))
	}

	pool, err := workerpool.New(e.extractExecutor, workerpool.Config{Concurrency: e.cfg.concurrency, Capacity: e.cfg.concurrency + 1})
	if err != nil {
		return newError(UnknownError, "extract", errors.Wrap(err, "create extract pool"))
	}
	pool.Start(ctx)

	for i := range e.r.Entries {
		task := &ExtractTask{Entry: &e.r.Entries[i], DestDir: destDir}
		if err := pool.Enqueue(task); err != nil {
			pool.Cancel()
			break
		}
	}

	if err := pool.Close(); err != nil {
		return newError(UnknownError, "extract", err)
	}
	return nil
}

func (e *Extractor) extractExecutor(ctx context.Context, task *ExtractTask) error {
	if err := e.extractEntry(task); err != nil {
		return errors.Wrapf(err, "extract %q", task.Entry.Header.Name)
	}
	return nil
}

func (e *Extractor) extractEntry(task *ExtractTask) error {
	h := &task.Entry.Header
	destPath, err := safeJoin(task.DestDir, h.Name)
	if err != nil {
		return newError(InvalidArchive, "extractEntry", err)
	}

	if strings.HasSuffix(h.Name, "/") {
		return e.restoreMetadata(destPath, h, os.MkdirAll(destPath, e.dirMode(h)))
	}

	if isSymlinkMode(externalAttrToMode(h.ExternalAttr)) {
		return e.extractSymlink(task, destPath)
	}
	return e.extractRegularFile(task, destPath)
}

func (e *Extractor) extractRegularFile(task *ExtractTask, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return newError(FileWriteError, "extractRegularFile", errors.Wrapf(err, "create parent of %q", destPath))
	}

	switch e.cfg.overwrite {
	case OverwriteNever:
		if _, err := os.Stat(destPath); err == nil {
			return nil
		}
	case OverwriteError:
		if _, err := os.Stat(destPath); err == nil {
			return newError(InvalidArchive, "extractRegularFile", errors.Errorf("destination %q already exists", destPath))
		}
	}

	rc, err := e.r.Open(task.Entry)
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, e.fileMode(&task.Entry.Header))
	if err != nil {
		return newError(FileOpenError, "extractRegularFile", errors.Wrapf(err, "create %q", destPath))
	}

	_, copyErr := io.Copy(out, rc)
	closeErr := out.Close()

	e.cfg.logger.Debug("extracted file", slog.String("name", task.Entry.Header.Name), slog.String("path", destPath))

	return e.restoreMetadata(destPath, &task.Entry.Header, firstNonNil(copyErr, closeErr))
}

func (e *Extractor) extractSymlink(task *ExtractTask, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return newError(FileWriteError, "extractSymlink", errors.Wrapf(err, "create parent of %q", destPath))
	}

	rc, err := e.r.Open(task.Entry)
	if err != nil {
		return err
	}
	defer rc.Close()

	target, err := io.ReadAll(rc)
	if err != nil {
		return newError(FileReadError, "extractSymlink", errors.Wrapf(err, "read symlink target for %q", destPath))
	}

	os.Remove(destPath)
	if err := os.Symlink(string(target), destPath); err != nil {
		return newError(FileWriteError, "extractSymlink", errors.Wrapf(err, "create symlink %q", destPath))
	}
	return nil
}

// restoreMetadata applies mode and mtime, skipping mode restoration when
// preservePerms is disabled. If firstErr is non-nil it is returned as a
// FileWriteError and no metadata is applied.
func (e *Extractor) restoreMetadata(path string, h *FileHeader, firstErr error) error {
	if firstErr != nil {
		return newError(FileWriteError, "restoreMetadata", firstErr)
	}

	if e.cfg.preservePerms {
		if mode := externalAttrToMode(h.ExternalAttr); mode != 0 {
			os.Chmod(path, fs.FileMode(mode&0o7777))
		}
	}

	os.Chtimes(path, e.modTime(h), e.modTime(h))
	return nil
}

// modTime prefers the Extended Timestamp extra's 1-second-resolution Unix
// time over the DOS fields' 2-second resolution, per SPEC_FULL.md §12.
func (e *Extractor) modTime(h *FileHeader) time.Time {
	if t, ok := parseExtendedTimestampExtra(h.Extra); ok {
		return t
	}
	return dosToTime(h.DOSDate, h.DOSTime)
}

func (e *Extractor) dirMode(h *FileHeader) fs.FileMode {
	if !e.cfg.preservePerms {
		return 0o755
	}
	if mode := externalAttrToMode(h.ExternalAttr); mode != 0 {
		return fs.FileMode(mode&0o7777) | fs.ModeDir
	}
	return 0o755
}

func (e *Extractor) fileMode(h *FileHeader) os.FileMode {
	if !e.cfg.preservePerms {
		return 0o644
	}
	if mode := externalAttrToMode(h.ExternalAttr); mode != 0 {
		return os.FileMode(mode & 0o7777)
	}
	return 0o644
}

func isSymlinkMode(mode uint32) bool {
	return mode&unixS_IFLNK == unixS_IFLNK
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// safeJoin joins dir and name, rejecting any name that would escape dir via
// ".." path segments (a zip-slip guard; spec.md's Non-goals never invite
// trusting an archive's paths literally).
func safeJoin(dir, name string) (string, error) {
	joined := filepath.Join(dir, name)
	if !strings.HasPrefix(joined, filepath.Clean(dir)+string(os.PathSeparator)) && joined != filepath.Clean(dir) {
		return "", errors.Errorf("entry %q escapes destination directory", name)
	}
	return joined, nil
}
