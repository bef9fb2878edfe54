// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/caurisai/cauris-tui/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var pdfBytes = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_PDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cours.pdf", pdfBytes)

	doc, err := Load(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "cours.pdf", doc.Name)
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, model.ContentTypePDF, doc.ContentType)
	assert.Equal(t, len(pdfBytes), doc.Size())
}

func TestLoad_RenamedTextIsNotPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fake.pdf", []byte("just some notes"))

	doc, err := Load(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", doc.ContentType)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.pdf", nil)
	big := writeFile(t, dir, "big.pdf", append(pdfBytes, make([]byte, 2048)...))

	tests := []struct {
		name string
		path string
		max  int64
		want error
	}{
		{"directory", dir, 0, ErrNotRegular},
		{"empty", empty, 0, ErrEmptyFile},
		{"too large", big, 1024, ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path, tt.max)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.pdf"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsPDFName(t *testing.T) {
	assert.True(t, IsPDFName("a.pdf"))
	assert.True(t, IsPDFName("/x/SCAN.PDF"))
	assert.False(t, IsPDFName("notes.txt"))
	assert.False(t, IsPDFName("pdf"))
}

// =============================================================================
// WATCHER
// =============================================================================

func TestNewWatcher_NotADirectory(t *testing.T) {
	file := writeFile(t, t.TempDir(), "a.pdf", pdfBytes)

	_, err := NewWatcher(file, WatchOptions{})
	assert.Error(t, err)

	_, err = NewWatcher(filepath.Join(t.TempDir(), "nope"), WatchOptions{})
	assert.Error(t, err)
}

func TestWatcher_EmitsSettledPDFs(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, WatchOptions{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	paths, err := w.Watch(ctx)
	require.NoError(t, err)

	writeFile(t, dir, "ignored.txt", []byte("x"))
	want := writeFile(t, dir, "rapport.pdf", pdfBytes)

	select {
	case got := <-paths:
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no file emitted")
	}

	// Nothing else shows up
	select {
	case got := <-paths:
		t.Fatalf("unexpected path %s", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_ClosesChannelOnCancel(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), WatchOptions{})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	paths, err := w.Watch(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-paths:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestWatcher_WatchTwice(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), WatchOptions{})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = w.Watch(ctx)
	require.NoError(t, err)

	_, err = w.Watch(ctx)
	assert.ErrorIs(t, err, ErrWatcherClosed)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestWatcher_Due(t *testing.T) {
	w := &Watcher{debounce: time.Second, pending: make(map[string]time.Time)}
	now := time.Now()
	w.pending["old.pdf"] = now.Add(-2 * time.Second)
	w.pending["fresh.pdf"] = now

	assert.Equal(t, []string{"old.pdf"}, w.due(now))
	assert.Empty(t, w.due(now))
	assert.Equal(t, []string{"fresh.pdf"}, w.due(now.Add(time.Second)))
}
