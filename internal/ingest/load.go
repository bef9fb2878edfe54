// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/caurisai/cauris-tui/internal/model"
)

// sniffLen is how many leading bytes content detection looks at.
const sniffLen = 512

var (
	// ErrNotRegular indicates the path is a directory or device.
	ErrNotRegular = errors.New("not a regular file")

	// ErrEmptyFile indicates a zero-byte file.
	ErrEmptyFile = errors.New("file is empty")

	// ErrTooLarge indicates the file exceeds the configured maximum.
	ErrTooLarge = errors.New("file too large")
)

// Load reads path into a Document. maxBytes <= 0 disables the size check.
// The content type comes from the file's bytes, not its name.
func Load(path string, maxBytes int64) (*model.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%s is %d bytes (limit %d): %w", path, info.Size(), maxBytes, ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return &model.Document{
		Name:        filepath.Base(path),
		Path:        path,
		ContentType: DetectContentType(data),
		Data:        data,
	}, nil
}

// DetectContentType returns the MIME type of data without parameters.
func DetectContentType(data []byte) string {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// IsPDFName reports whether name carries a .pdf extension, in any case.
func IsPDFName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
