// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ContentTypePDF is the only document type the ingestion service accepts.
const ContentTypePDF = "application/pdf"

// Document is a file picked for ingestion.
type Document struct {
	Name        string
	Path        string
	ContentType string
	Data        []byte
}

// Size returns the payload size in bytes.
func (d *Document) Size() int {
	if d == nil {
		return 0
	}
	return len(d.Data)
}
