// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caurisai/cauris-tui/internal/api"
	"github.com/caurisai/cauris-tui/internal/ingest"
	"github.com/caurisai/cauris-tui/internal/model"
	"github.com/caurisai/cauris-tui/internal/ui/styles"
)

func (a *app) watchCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Index every PDF dropped into a folder",
		Long: `Index every PDF dropped into a folder.

Files are uploaded one at a time once they stop changing. The folder
defaults to upload.watch_dir from the config. Stop with Ctrl+C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Upload.WatchDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no folder given and upload.watch_dir is not set")
			}
			return a.runWatch(cmd, dir, once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "stop after the first upload attempt")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, dir string, once bool) error {
	client, _, err := a.authedClient()
	if err != nil {
		return err
	}
	w, err := ingest.NewWatcher(dir, ingest.WatchOptions{
		RatePerSec: a.cfg.Upload.WatchRatePerSec,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	ctl, err := a.newController(client)
	if err != nil {
		return err
	}
	defer ctl.Stop()

	out := cmd.OutOrStdout()
	g, gctx := errgroup.WithContext(cmd.Context())
	ctx, stop := context.WithCancel(gctx)
	defer stop()

	paths, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	printf(out, "%s %s\n", styles.RenderInfo("Surveillance de"), w.Dir())

	// Loader: settled paths in, readable PDFs out
	docs := make(chan *model.Document)
	g.Go(func() error {
		defer close(docs)
		for path := range paths {
			doc, err := ingest.Load(path, a.cfg.MaxUploadBytes())
			if err != nil {
				a.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
				printf(out, "%s %s: %s\n", styles.RenderWarning("Ignoré"), filepath.Base(path), describe(err))
				continue
			}
			select {
			case docs <- doc:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	// Uploader: one document at a time. A rejected token ends the watch,
	// other failures are reported and the next file is tried.
	g.Go(func() error {
		for doc := range docs {
			printf(out, "%s %s\n", styles.RenderInfo("Indexation en cours..."), doc.Name)
			msg, err := uploadAndWait(ctx, ctl, doc)
			switch {
			case err == nil:
				printf(out, "%s %s\n", styles.RenderSuccess("Document indexé !"), doc.Name)
				if msg != "" {
					printf(out, "  %s\n", msg)
				}
				dismissQuietly(ctl, a.logger)
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, api.ErrUnauthorized):
				printf(out, "%s %s: %s\n", styles.RenderError("Échec du traitement"), doc.Name, describe(err))
				return fmt.Errorf("watch stopped: %w", err)
			default:
				printf(out, "%s %s: %s\n", styles.RenderError("Échec du traitement"), doc.Name, describe(err))
			}

			if once {
				stop()
				return nil
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}
