// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "errors"

// Error variables returned by controller intents.
var (
	// ErrAuthMissing indicates Start was called without a bearer token.
	ErrAuthMissing = errors.New("not authenticated: no token")

	// ErrNotConnected indicates Send was called while the connection is not
	// open. Nothing was transmitted or appended.
	ErrNotConnected = errors.New("not connected")

	// ErrEmptyMessage indicates Send was called with blank text.
	ErrEmptyMessage = errors.New("empty message")

	// ErrSendBacklog indicates the outbound queue of the current connection
	// is full.
	ErrSendBacklog = errors.New("send queue full")

	// ErrUnsupportedFileType indicates a selected document is not of the
	// accepted type. The upload workflow ignores it.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrUploadInProgress indicates the upload workflow is busy.
	ErrUploadInProgress = errors.New("upload in progress")

	// ErrUploadFailed wraps the ingestion service's failure.
	ErrUploadFailed = errors.New("upload failed")

	// ErrNoSuchEntry indicates a history index out of range.
	ErrNoSuchEntry = errors.New("no such history entry")

	// ErrStopped indicates the controller has been stopped.
	ErrStopped = errors.New("session stopped")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("session already started")
)
