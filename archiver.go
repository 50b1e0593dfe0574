// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"bufio"
	"context"
	"hash/crc32"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/kodepack/pzip/deflate"
	"github.com/kodepack/pzip/workerpool"
)

const readBufferSize = 32 * 1024

var readerPool = sync.Pool{
	New: func() any { return bufio.NewReaderSize(nil, readBufferSize) },
}

// Archiver walks a set of input paths and writes them into a ZIP archive,
// fanning compression out across a bounded worker pool while a single
// writer-pool goroutine serializes output, per spec.md §4.H.
type Archiver struct {
	cfg *config

	w     *Writer
	tasks *TaskPool

	compressPool *workerpool.WorkerPool[*FileTask]
	writePool    *workerpool.WorkerPool[*FileTask]

	mu      sync.Mutex
	walkErr error
}

// NewArchiver creates an Archiver that appends a ZIP stream to dest.
func NewArchiver(dest io.Writer, opts ...Option) (*Archiver, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	a := &Archiver{
		cfg:   cfg,
		w:     NewWriter(dest),
		tasks: NewTaskPool(),
	}

	compressPool, err := workerpool.New(a.compressExecutor, workerpool.Config{Concurrency: cfg.concurrency, Capacity: cfg.concurrency + 1})
	if err != nil {
		return nil, newError(UnknownError, "newArchiver", errors.Wrap(err, "create compress pool"))
	}
	a.compressPool = compressPool

	writePool, err := workerpool.New(a.writeExecutor, workerpool.Config{Concurrency: 1, Capacity: 1})
	if err != nil {
		return nil, newError(UnknownError, "newArchiver", errors.Wrap(err, "create write pool"))
	}
	a.writePool = writePool

	return a, nil
}

// Archive enumerates every regular file, symlink, and directory under
// paths (recursing into directories) and writes a ZIP archive, returning
// the first error observed by either pool stage. If ctx has been cancelled
// by the time both stages finish, it instead returns a Cancelled error
// wrapping ctx's error and writes no central directory.
func (a *Archiver) Archive(ctx context.Context, paths []string) error {
	a.compressPool.Start(ctx)
	a.writePool.Start(ctx)

	for _, p := range paths {
		if err := a.enumerate(p); err != nil {
			a.setWalkErr(err)
			break
		}
	}

	compressErr := a.compressPool.Close()
	writeErr := a.writePool.Close()

	if err := ctx.Err(); err != nil {
		return newError(Cancelled, "archive", err)
	}
	if walkErr := a.walkError(); walkErr != nil {
		return newError(UnknownError, "archive", walkErr)
	}
	if compressErr != nil {
		return newError(UnknownError, "archive", compressErr)
	}
	if writeErr != nil {
		return newError(UnknownError, "archive", writeErr)
	}
	if err := a.w.Close(); err != nil {
		return err
	}
	return nil
}

func (a *Archiver) setWalkErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.walkErr == nil {
		a.walkErr = err
	}
}

func (a *Archiver) walkError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.walkErr
}

// enumerate resolves p (a file, symlink, or directory) into one or more
// FileTasks. Directory inputs keep their base name as the archive root, so
// archiving "/tmp/project" produces entries rooted at "project/...".
func (a *Archiver) enumerate(p string) error {
	info, err := os.Lstat(p)
	if err != nil {
		return newError(FileNotFound, "enumerate", errors.Wrapf(err, "stat %q", p))
	}

	base := filepath.Base(p)

	if !info.IsDir() {
		return a.enqueuePath(p, base, info)
	}

	root := filepath.Dir(p)
	return filepath.WalkDir(p, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walk %q", walkPath)
		}
		rel, err := filepath.Rel(root, walkPath)
		if err != nil {
			return errors.Wrapf(err, "relative path for %q", walkPath)
		}
		relName := filepath.ToSlash(rel)

		fi, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, "stat %q", walkPath)
		}
		return a.enqueuePath(walkPath, relName, fi)
	})
}

func (a *Archiver) enqueuePath(path, relativeName string, info fs.FileInfo) error {
	kind := KindRegular
	size := info.Size()
	switch {
	case info.IsDir():
		kind = KindDirectory
		size = 0
		relativeName += "/"
	case info.Mode()&fs.ModeSymlink != 0:
		kind = KindSymlink
	}

	task := a.tasks.Acquire()
	if err := task.Reset(path, relativeName, kind, size); err != nil {
		return err
	}
	task.Header.ExternalAttr = modeToExternalAttr(uint32(info.Mode().Perm()) | regularTypeBits(kind))
	task.Header.DOSDate, task.Header.DOSTime = timeToDOS(info.ModTime())
	task.Header.Extra = newExtendedTimestampExtra(info.ModTime())

	if kind == KindSymlink {
		target, err := os.Readlink(path)
		if err != nil {
			return newError(FileReadError, "enqueuePath", errors.Wrapf(err, "readlink %q", path))
		}
		task.SymlinkTarget = []byte(target)
		task.FileSize = int64(len(task.SymlinkTarget))
	}

	if err := a.compressPool.Enqueue(task); err != nil {
		return errors.Wrapf(err, "enqueue %q", path)
	}
	return nil
}

func regularTypeBits(kind EntryKind) uint32 {
	switch kind {
	case KindDirectory:
		return unixS_IFDIR
	case KindSymlink:
		return unixS_IFLNK
	default:
		return unixS_IFREG
	}
}

func (a *Archiver) compressExecutor(ctx context.Context, task *FileTask) error {
	if err := a.compressFile(task); err != nil {
		return errors.Wrapf(err, "compress %q", task.Path)
	}
	if err := a.writePool.Enqueue(task); err != nil {
		return errors.Wrapf(err, "enqueue for write %q", task.Path)
	}
	return nil
}

func (a *Archiver) compressFile(task *FileTask) error {
	switch task.Kind {
	case KindDirectory:
		a.populateHeader(task)
		return nil
	case KindSymlink:
		return a.storeBytes(task, task.SymlinkTarget)
	default:
		return a.compressRegularFile(task)
	}
}

func (a *Archiver) compressRegularFile(task *FileTask) error {
	f, err := os.Open(task.Path)
	if err != nil {
		return newError(FileOpenError, "compressRegularFile", errors.Wrapf(err, "open %q", task.Path))
	}
	defer f.Close()

	buf := readerPool.Get().(*bufio.Reader)
	buf.Reset(f)
	defer readerPool.Put(buf)

	hasher := crc32.NewIEEE()
	dw := deflate.NewWriter(task, a.cfg.compressionLevel)

	if _, err := io.Copy(io.MultiWriter(dw, hasher), buf); err != nil {
		return newError(FileReadError, "compressRegularFile", errors.Wrapf(err, "read %q", task.Path))
	}
	if err := dw.Close(); err != nil {
		return newError(CompressionError, "compressRegularFile", errors.Wrap(err, "close deflate writer"))
	}

	task.Header.CRC32 = hasher.Sum32()
	a.populateHeader(task)
	return nil
}

// storeBytes writes data into task uncompressed (STORE method), the way a
// symlink target is small enough that deflating it never pays for itself
// and spec.md §4.H requires STORE for symlink entries regardless.
func (a *Archiver) storeBytes(task *FileTask, data []byte) error {
	if _, err := task.Write(data); err != nil {
		return newError(CompressionError, "storeBytes", errors.Wrap(err, "write"))
	}

	task.Header.CRC32 = crc32.ChecksumIEEE(data)
	a.populateHeader(task)
	return nil
}

// populateHeader fills in everything about task.Header that depends on the
// compression outcome: method, flags, UTF-8 bit, and sizes, per spec.md
// §4.A/§4.C.
func (a *Archiver) populateHeader(task *FileTask) {
	h := &task.Header
	h.Name = task.RelativeName
	h.VersionMadeBy = versionNeeded20
	h.VersionNeeded = versionNeeded20

	if _, require := detectUTF8(h.Name); require {
		h.Flags |= 0x800
	}

	switch task.Kind {
	case KindDirectory:
		h.Method = Store
		h.Flags &^= 0x8
		h.CompressedSize = 0
		h.UncompressedSize = 0
	case KindSymlink:
		h.Method = Store
		h.Flags &^= 0x8
		h.CompressedSize = uint64(len(task.SymlinkTarget))
		h.UncompressedSize = uint64(task.FileSize)
	default:
		h.Method = Deflate
		h.Flags |= 0x8
		h.CompressedSize = task.Written()
		h.UncompressedSize = uint64(task.FileSize)
	}
}

func (a *Archiver) writeExecutor(ctx context.Context, task *FileTask) error {
	if err := a.archiveFile(task); err != nil {
		return errors.Wrapf(err, "archive %q", task.Path)
	}
	return a.tasks.Release(task)
}

func (a *Archiver) archiveFile(task *FileTask) error {
	a.cfg.logger.Debug("archiving file", slog.String("path", task.Path), slog.String("name", task.Header.Name))

	return a.w.CreateRaw(&task.Header, func(w io.Writer) error {
		return task.ReadCompressed(func(b []byte) error {
			_, err := w.Write(b)
			return err
		})
	})
}
