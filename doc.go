// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pzip implements a parallel ZIP archiver and extractor.
//
// Archiver walks a set of input paths, compresses each file across a
// bounded worker pool using the sibling deflate package, and serializes
// the results into a ZIP (escalating to ZIP64 when needed) through a
// single writer stage. Extractor does the inverse: it parses an
// existing archive's central directory once and then decompresses
// entries across a worker pool, restoring permissions and modification
// times.
//
// Encryption, compression methods other than STORE and DEFLATE,
// multi-disk archives, and in-place archive editing are out of scope.
package pzip
