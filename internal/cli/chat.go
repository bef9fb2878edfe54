// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/caurisai/cauris-tui/internal/config"
	"github.com/caurisai/cauris-tui/internal/model"
	"github.com/caurisai/cauris-tui/internal/session"
	"github.com/caurisai/cauris-tui/internal/ui/chat"
	"github.com/caurisai/cauris-tui/internal/ui/styles"
	"github.com/caurisai/cauris-tui/internal/util"
)

func (a *app) chatCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat over the realtime connection",
		Long: `Chat over the realtime connection.

With --plain the session runs as a line-oriented prompt instead of the
full-screen view. Commands: /new, /history, /load N, /quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !plain {
				return a.runTUI(cmd)
			}
			return a.runPlainChat(cmd)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "line-oriented prompt instead of the full-screen view")
	return cmd
}

// =============================================================================
// LINE EDITOR
// =============================================================================

// lineEditor wraps liner with a persistent input history.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	return e
}

func (e *lineEditor) Prompt(p string) (string, error) {
	in, err := e.line.Prompt(p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(in) != "" {
		e.line.AppendHistory(in)
	}
	return in, nil
}

func (e *lineEditor) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = e.line.WriteHistory(f)
			_ = f.Close()
		}
	}
	_ = e.line.Close()
}

// =============================================================================
// PLAIN CHAT
// =============================================================================

// printer writes incoming messages and connection changes as they are
// published, skipping what it already printed.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	printed map[string]bool
	state   session.ConnectionState
}

func newPrinter(out io.Writer, initial session.Snapshot) *printer {
	p := &printer{out: out, printed: make(map[string]bool), state: initial.State}
	for _, msg := range initial.Messages {
		p.printed[msg.ID] = true
	}
	return p
}

func (p *printer) observe(snap session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.State != p.state {
		p.state = snap.State
		printf(p.out, "\n%s\n", styles.RenderStatus(snap.State == session.StateConnected, chat.StatusLabel(snap.State)))
	}
	for _, msg := range snap.Messages {
		if p.printed[msg.ID] {
			continue
		}
		p.printed[msg.ID] = true
		if msg.IsOutgoing() {
			continue
		}
		p.message(msg)
	}
}

// reset marks every message of snap as seen, used after the transcript
// was replaced locally.
func (p *printer) reset(snap session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printed = make(map[string]bool, len(snap.Messages))
	for _, msg := range snap.Messages {
		p.printed[msg.ID] = true
	}
}

func (p *printer) message(msg model.Message) {
	stamp := msg.Clock()
	if stamp != "" {
		stamp = " " + stamp
	}
	printf(p.out, "\n%s%s\n%s\n", styles.RenderInfo(msg.Sender.DisplayName()), stamp, msg.Content)
}

func (a *app) runPlainChat(cmd *cobra.Command) error {
	client, token, err := a.authedClient()
	if err != nil {
		return err
	}
	ctl, err := a.newController(client)
	if err != nil {
		return err
	}
	defer ctl.Stop()

	out := cmd.OutOrStdout()
	snaps, cancel := ctl.Subscribe()

	first := ctl.Snapshot()
	for _, msg := range first.Messages {
		printf(out, "%s\n", msg.Content)
	}
	p := newPrinter(out, first)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for snap := range snaps {
			p.observe(snap)
		}
	}()
	defer wg.Wait()
	defer cancel()

	if err := ctl.Start(token); err != nil {
		return err
	}

	ed := newLineEditor()
	defer ed.Close()

	for {
		if cmd.Context().Err() != nil {
			return nil
		}
		input, err := ed.Prompt("cauris> ")
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed input all end the session
			printf(out, "\n")
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := a.plainCommand(out, ctl, p, input)
			if err != nil {
				printf(out, "%s\n", styles.RenderError(describe(err)))
			}
			if quit {
				return nil
			}
			continue
		}

		if err := ctl.Send(input); err != nil {
			if errors.Is(err, session.ErrNotConnected) {
				printf(out, "%s\n", styles.RenderWarning("Non connecté, message non envoyé."))
				continue
			}
			printf(out, "%s\n", styles.RenderError(describe(err)))
		}
	}
}

// plainCommand runs a slash command and reports whether to quit.
func (a *app) plainCommand(out io.Writer, ctl *session.Controller, p *printer, input string) (bool, error) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/new":
		if err := ctl.NewConversation(); err != nil {
			return false, err
		}
		snap := ctl.Snapshot()
		p.reset(snap)
		for _, msg := range snap.Messages {
			printf(out, "%s\n", msg.Content)
		}
		return false, nil

	case "/history":
		printHistory(out, ctl.Snapshot().History, 0, GetTerminalWidth()-6)
		return false, nil

	case "/load":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /load N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("usage: /load N")
		}
		if err := ctl.LoadHistoryEntry(n - 1); err != nil {
			return false, err
		}
		snap := ctl.Snapshot()
		p.reset(snap)
		for _, msg := range snap.Messages {
			p.message(msg)
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /new, /history, /load N, /quit)", fields[0])
	}
}

// printHistory lists entries numbered from 1, most recent first. limit <= 0
// prints everything.
func printHistory(out io.Writer, entries []model.HistoryEntry, limit, width int) {
	if len(entries) == 0 {
		printf(out, "%s\n", "Aucun historique")
		return
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i, e := range entries {
		when := ""
		if !e.CreatedAt.IsZero() {
			when = e.CreatedAt.Local().Format("2006-01-02 15:04") + "  "
		}
		printf(out, "%3d. %s%s\n", i+1, when, util.Preview(e.Question, width))
	}
}
