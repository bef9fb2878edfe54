// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/api"
	"github.com/caurisai/cauris-tui/internal/model"
)

// Uploader sends a document to the ingestion service.
type Uploader interface {
	Upload(ctx context.Context, doc *model.Document) (*api.UploadResult, error)
}

// UploadState is the upload workflow's position.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadUploading
	UploadSuccess
	UploadError
)

// String returns the state name.
func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadUploading:
		return "uploading"
	case UploadSuccess:
		return "success"
	case UploadError:
		return "error"
	default:
		return "unknown"
	}
}

// UploadStatus is the published view of the workflow.
type UploadStatus struct {
	State     UploadState
	FileName  string
	ModalOpen bool
	// Message is the server's acknowledgement after Success.
	Message string
	// Err is set in UploadError and wraps ErrUploadFailed.
	Err error
}

// =============================================================================
// UPLOAD WORKFLOW
// =============================================================================

// UploadWorkflow tracks one document upload at a time. It never touches
// the realtime connection.
type UploadWorkflow struct {
	uploader Uploader
	clock    Clock
	accepted string
	dismiss  time.Duration
	logger   *zap.Logger
	post     func(func()) bool
	ctx      context.Context

	state     UploadState
	doc       *model.Document
	modalOpen bool
	message   string
	err       error

	// attempt guards completions and the dismiss timer against a newer
	// selection or a manual dismiss.
	attempt uint64
	timer   Timer
}

func newUploadWorkflow(ctx context.Context, uploader Uploader, clock Clock, accepted string,
	dismiss time.Duration, logger *zap.Logger, post func(func()) bool) *UploadWorkflow {
	return &UploadWorkflow{
		ctx:      ctx,
		uploader: uploader,
		clock:    clock,
		accepted: accepted,
		dismiss:  dismiss,
		logger:   logger.Named("upload"),
		post:     post,
	}
}

// Status returns the current view.
func (w *UploadWorkflow) Status() UploadStatus {
	st := UploadStatus{
		State:     w.state,
		ModalOpen: w.modalOpen,
		Message:   w.message,
		Err:       w.err,
	}
	if w.doc != nil {
		st.FileName = w.doc.Name
	}
	return st
}

// Open shows the upload modal.
func (w *UploadWorkflow) Open() {
	w.modalOpen = true
}

// Select starts uploading doc. Documents of another type are ignored and
// leave the state untouched. A selection is accepted from Idle, and from
// Error where it starts a fresh attempt.
func (w *UploadWorkflow) Select(doc *model.Document) error {
	if doc == nil || doc.ContentType != w.accepted {
		ct := ""
		if doc != nil {
			ct = doc.ContentType
		}
		w.logger.Debug("ignoring document", zap.String("content_type", ct))
		return fmt.Errorf("%w: %q (want %s)", ErrUnsupportedFileType, ct, w.accepted)
	}
	if w.state == UploadUploading || w.state == UploadSuccess {
		return ErrUploadInProgress
	}
	if w.uploader == nil {
		return fmt.Errorf("%w: no uploader configured", ErrUploadFailed)
	}

	w.attempt++
	attempt := w.attempt
	w.state = UploadUploading
	w.doc = doc
	w.modalOpen = true
	w.message = ""
	w.err = nil
	w.logger.Info("uploading", zap.String("file", doc.Name), zap.Int("bytes", doc.Size()))

	go func() {
		res, err := w.uploader.Upload(w.ctx, doc)
		w.post(func() { w.complete(attempt, res, err) })
	}()
	return nil
}

func (w *UploadWorkflow) complete(attempt uint64, res *api.UploadResult, err error) {
	if attempt != w.attempt || w.state != UploadUploading {
		return
	}
	if err != nil {
		w.state = UploadError
		w.err = fmt.Errorf("%w: %w", ErrUploadFailed, err)
		w.logger.Warn("upload failed", zap.String("file", w.doc.Name), zap.Error(err))
		return
	}

	w.state = UploadSuccess
	if res != nil {
		w.message = res.Message
	}
	w.logger.Info("upload acknowledged", zap.String("file", w.doc.Name))
	w.timer = w.clock.AfterFunc(w.dismiss, func() {
		w.post(func() { w.autoDismiss(attempt) })
	})
}

func (w *UploadWorkflow) autoDismiss(attempt uint64) {
	if attempt != w.attempt || w.state != UploadSuccess {
		return
	}
	w.timer = nil
	w.reset()
}

// Dismiss closes the modal and returns to Idle. It is refused while an
// upload is running.
func (w *UploadWorkflow) Dismiss() error {
	if w.state == UploadUploading {
		return ErrUploadInProgress
	}
	w.stop()
	w.attempt++
	w.reset()
	return nil
}

func (w *UploadWorkflow) reset() {
	w.state = UploadIdle
	w.doc = nil
	w.modalOpen = false
	w.message = ""
	w.err = nil
}

func (w *UploadWorkflow) stop() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
