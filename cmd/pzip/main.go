// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pzip is a thin fixture binary around package pzip's Archiver.
//
// Usage: pzip [-c N] [-l 0..9] [-v] [-q] <archive.zip> <path ...>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kodepack/pzip"
	"github.com/kodepack/pzip/deflate"
)

var (
	concurrency int
	level       int
	verbose     bool
	quiet       bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pzip <archive.zip> <path ...>",
		Short: "Archive files and directories into a ZIP, compressing in parallel",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runArchive,
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "number of compression workers (0 = GOMAXPROCS)")
	cmd.Flags().IntVarP(&level, "level", "l", int(deflate.DefaultCompression), "compression level (0-9)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	return cmd
}

func runArchive(cmd *cobra.Command, args []string) error {
	archivePath, paths := args[0], args[1:]

	dest, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer dest.Close()

	a, err := pzip.NewArchiver(dest,
		pzip.WithLogger(newLogger(verbose, quiet)),
		pzip.WithConcurrency(concurrency),
		pzip.WithCompressionLevel(deflate.Level(level)),
	)
	if err != nil {
		return err
	}

	return a.Archive(context.Background(), paths)
}

func newLogger(verbose, quiet bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch {
	case quiet:
		lvl = slog.LevelError
	case verbose:
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
