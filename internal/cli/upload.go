// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/ingest"
	"github.com/caurisai/cauris-tui/internal/model"
	"github.com/caurisai/cauris-tui/internal/session"
	"github.com/caurisai/cauris-tui/internal/ui/styles"
	"github.com/caurisai/cauris-tui/internal/util"
)

func (a *app) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Index a PDF so the assistant can answer from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := ingest.Load(args[0], a.cfg.MaxUploadBytes())
			if err != nil {
				return err
			}

			client, _, err := a.authedClient()
			if err != nil {
				return err
			}
			ctl, err := a.newController(client)
			if err != nil {
				return err
			}
			defer ctl.Stop()

			out := cmd.OutOrStdout()
			printf(out, "%s %s (%s)\n", styles.RenderInfo("Indexation en cours..."), doc.Name, util.HumanBytes(int64(doc.Size())))

			msg, err := uploadAndWait(cmd.Context(), ctl, doc)
			if err != nil {
				printf(out, "%s\n", styles.RenderError("Échec du traitement"))
				return err
			}
			printf(out, "%s\n", styles.RenderSuccess("Document indexé !"))
			if msg != "" {
				printf(out, "%s\n", msg)
			}
			return nil
		},
	}
}

// uploadAndWait selects doc on the session's upload workflow and blocks
// until the upload succeeds or fails. It returns the server's
// acknowledgement.
func uploadAndWait(ctx context.Context, ctl *session.Controller, doc *model.Document) (string, error) {
	// A failed previous attempt would otherwise look like this one's result
	if ctl.Snapshot().Upload.State == session.UploadError {
		if err := ctl.DismissUpload(); err != nil {
			return "", err
		}
	}

	snaps, cancel := ctl.Subscribe()
	defer cancel()

	if err := ctl.SelectDocument(doc); err != nil {
		return "", err
	}

	active := false
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return "", session.ErrStopped
			}
			up := snap.Upload
			switch up.State {
			case session.UploadUploading:
				active = true
			case session.UploadSuccess:
				return up.Message, nil
			case session.UploadError:
				if up.Err == nil {
					return "", session.ErrUploadFailed
				}
				return "", up.Err
			case session.UploadIdle:
				// The success state was auto-dismissed before we looked
				if active {
					return "", nil
				}
			}
		}
	}
}

// dismissQuietly returns the workflow to Idle after a result was shown.
func dismissQuietly(ctl *session.Controller, logger *zap.Logger) {
	if err := ctl.DismissUpload(); err != nil && !errors.Is(err, session.ErrStopped) {
		logger.Debug("dismiss upload", zap.Error(err))
	}
}
