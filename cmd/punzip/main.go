// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command punzip is a thin fixture binary around package pzip's Extractor.
//
// Usage: punzip [-d DIR] [-c N] [-o|-n] [-v] [-q] [-l] <archive.zip>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/kodepack/pzip"
)

var (
	destDir     string
	concurrency int
	overwrite   bool
	noOverwrite bool
	list        bool
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
		Use:   "punzip <archive.zip>",
		Short: "Extract a ZIP archive, decompressing in parallel",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	cmd.Flags().StringVarP(&destDir, "directory", "d", ".", "destination directory")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "number of decompression workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "o", true, "overwrite existing files")
	cmd.Flags().BoolVarP(&noOverwrite, "no-overwrite", "n", false, "never overwrite existing files")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list entries and exit, without extracting")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	archivePath := args[0]

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if list {
		return listEntries(f, info.Size())
	}
	return extract(f, info.Size())
}

func listEntries(f *os.File, size int64) error {
	r, err := pzip.OpenReader(f, size)
	if err != nil {
		return err
	}
	for _, e := range r.Entries {
		fmt.Printf("%10d  %s\n", e.Header.UncompressedSize, e.Header.Name)
	}
	return nil
}

func extract(f *os.File, size int64) error {
	dir, err := homedir.Expand(destDir)
	if err != nil {
		return err
	}

	policy := pzip.OverwriteAlways
	if noOverwrite {
		policy = pzip.OverwriteNever
	}

	e, err := pzip.NewExtractor(f, size,
		pzip.WithLogger(newLogger(verbose, quiet)),
		pzip.WithConcurrency(concurrency),
		pzip.WithOverwritePolicy(policy),
	)
	if err != nil {
		return err
	}

	return e.Extract(context.Background(), dir)
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
