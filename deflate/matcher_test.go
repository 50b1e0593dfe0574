// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deflate

import "testing"

func TestMatchLen(t *testing.T) {
	tests := []struct {
		a, b   string
		maxLen int
		want   int
	}{
		{"abcdefgh", "abcdefgh", 8, 8},
		{"abcdefgh", "abcdefzz", 8, 6},
		{"aaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaa", 16, 16},
		{"ab", "ba", 8, 0},
	}
	for _, tt := range tests {
		got := matchLen([]byte(tt.a), []byte(tt.b), tt.maxLen)
		if got != tt.want {
			t.Errorf("matchLen(%q, %q, %d) = %d, want %d", tt.a, tt.b, tt.maxLen, got, tt.want)
		}
	}
}

func TestGenStateAddBlockReturnsStartPosition(t *testing.T) {
	g := newGenState()
	s1 := g.addBlock([]byte("hello"))
	if s1 != 0 {
		t.Errorf("first addBlock start = %d, want 0", s1)
	}
	s2 := g.addBlock([]byte("world"))
	if s2 != 5 {
		t.Errorf("second addBlock start = %d, want 5", s2)
	}
	if string(g.hist) != "helloworld" {
		t.Errorf("hist = %q, want %q", g.hist, "helloworld")
	}
}

func TestGenStateResetClearsHistoryKeepsCurMonotonic(t *testing.T) {
	g := newGenState()
	g.addBlock([]byte("payload"))
	curBefore := g.cur
	g.reset()

	if len(g.hist) != 0 {
		t.Errorf("hist len after reset = %d, want 0", len(g.hist))
	}
	if g.cur <= curBefore {
		t.Errorf("cur after reset = %d, want > %d (monotonic rebasing)", g.cur, curBefore)
	}
}

func TestEmitLiterals(t *testing.T) {
	var tok tokens
	data := []byte("abcdef")
	emitLiterals(&tok, data, 1, 4)

	if tok.n != 3 {
		t.Fatalf("n = %d, want 3", tok.n)
	}
	for i, want := range []byte("bcd") {
		if byte(tok.tok[i]) != want {
			t.Errorf("tok[%d] = %c, want %c", i, byte(tok.tok[i]), want)
		}
	}
}
