// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"log/slog"

	"github.com/kodepack/pzip/deflate"
)

// OverwritePolicy controls how Extract handles a destination path that
// already exists.
type OverwritePolicy int

const (
	// OverwriteAlways replaces any existing file.
	OverwriteAlways OverwritePolicy = iota
	// OverwriteNever skips entries whose destination already exists.
	OverwriteNever
	// OverwriteError fails extraction as soon as a collision is found.
	OverwriteError
)

// config collects the settings both Archiver and Extractor accept via
// functional options (the pattern Lemon4ksan-GoZip's zip.go uses for
// AddOption).
type config struct {
	concurrency      int
	logger           *slog.Logger
	overwrite        OverwritePolicy
	preservePerms    bool
	compressionLevel deflate.Level
}

func newConfig() *config {
	return &config{
		logger:           slog.Default(),
		overwrite:        OverwriteAlways,
		preservePerms:    true,
		compressionLevel: deflate.DefaultCompression,
	}
}

// Option configures an Archiver or Extractor.
type Option func(*config)

// WithConcurrency overrides the worker pool size used for the compress (or
// decompress) stage. 0 (the default) means GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(c *config) { c.concurrency = n }
}

// WithLogger installs a *slog.Logger; nil restores slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l == nil {
			l = slog.Default()
		}
		c.logger = l
	}
}

// WithOverwritePolicy configures Extract's behavior when a destination
// path already exists. Archivers ignore this option.
func WithOverwritePolicy(p OverwritePolicy) Option {
	return func(c *config) { c.overwrite = p }
}

// WithPreservePermissions controls whether Extract restores the Unix mode
// recorded in each entry's external file attribute. Defaults to true.
func WithPreservePermissions(preserve bool) Option {
	return func(c *config) { c.preservePerms = preserve }
}

// WithCompressionLevel selects the deflate.Level an Archiver's compress
// stage uses. Archives still always store directories and symlink targets
// losslessly; this only affects regular-file payloads.
func WithCompressionLevel(level deflate.Level) Option {
	return func(c *config) { c.compressionLevel = level }
}
