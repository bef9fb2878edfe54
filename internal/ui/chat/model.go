// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/ingest"
	"github.com/caurisai/cauris-tui/internal/session"
	"github.com/caurisai/cauris-tui/internal/ui/styles"
)

const (
	inputPlaceholder = "Posez n'importe quelle question sur vos cours..."
	pathPlaceholder  = "chemin/vers/cours.pdf"
	maxInputLength   = 4000
)

// focusArea is where key presses go outside the modal.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a chat Model.
type Options struct {
	// Session is the realtime session the view observes (required)
	Session Session

	// Theme styles the view (default: auto-detected)
	Theme *styles.Theme

	// Email is shown in the header
	Email string

	// MaxUploadBytes caps files picked in the upload modal; <= 0 disables
	MaxUploadBytes int64

	// Prefs persists the dark-mode toggle (optional)
	Prefs Preferences

	// Logger receives view errors (default: no-op)
	Logger *zap.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	sess   Session
	snaps  <-chan session.Snapshot
	cancel func()
	snap   session.Snapshot

	// Styling
	theme *styles.Theme
	md    *markdown

	// Widgets
	keys      KeyMap
	help      help.Model
	input     textinput.Model
	pathInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model

	// Dimensions
	width  int
	height int

	focus    focusArea
	cursor   int
	lastErr  string
	showHelp bool
	// loading is set while a picked file is read from disk
	loading bool

	email     string
	maxUpload int64
	prefs     Preferences
	logger    *zap.Logger
}

// New creates the chat view and subscribes to the session.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ModeAuto)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	input := textinput.New()
	input.Placeholder = inputPlaceholder
	input.Prompt = "> "
	input.CharLimit = maxInputLength
	input.Focus()

	pathInput := textinput.New()
	pathInput.Placeholder = pathPlaceholder
	pathInput.Prompt = "PDF: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		sess:      opts.Session,
		theme:     opts.Theme,
		md:        &markdown{},
		keys:      DefaultKeyMap(),
		help:      help.New(),
		input:     input,
		pathInput: pathInput,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		email:     opts.Email,
		maxUpload: opts.MaxUploadBytes,
		prefs:     opts.Prefs,
		logger:    opts.Logger.Named("tui"),
	}
	if m.sess != nil {
		m.snaps, m.cancel = m.sess.Subscribe()
		m.snap = m.sess.Snapshot()
	}
	return m
}

// Init starts the cursor blink, the spinner and the snapshot subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForSnapshot(m.snaps))
}

// Snapshot returns the snapshot currently rendered.
func (m Model) Snapshot() session.Snapshot {
	return m.snap
}

// LastError returns the error line currently shown, if any.
func (m Model) LastError() string {
	return m.lastErr
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		return m.handleSnapshot(msg.Snapshot)

	case SessionClosedMsg:
		return m, tea.Quit

	case DocumentLoadedMsg:
		return m.handleDocumentLoaded(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)
	m.help.Width = m.width

	// Layout: header + viewport + typing line + input box + disclaimer + help
	const (
		headerHeight = 3
		footerHeight = 7
	)
	vpHeight := m.height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	vpWidth := m.mainWidth()
	if vpWidth < 1 {
		vpWidth = 1
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight

	inputWidth := vpWidth - 6
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth
	m.pathInput.Width = inputWidth / 2

	m.updateViewport(true)
	return m, nil
}

func (m Model) handleSnapshot(snap session.Snapshot) (tea.Model, tea.Cmd) {
	prev := m.snap
	m.snap = snap

	if n := len(snap.History); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if snap.Upload.ModalOpen && !prev.Upload.ModalOpen {
		m.pathInput.Reset()
		m.pathInput.Focus()
		m.input.Blur()
	}
	if !snap.Upload.ModalOpen && prev.Upload.ModalOpen {
		m.pathInput.Blur()
		m.input.Focus()
	}

	grew := len(snap.Messages) != len(prev.Messages) || snap.Typing != prev.Typing
	m.updateViewport(grew)
	return m, waitForSnapshot(m.snaps)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}

	if m.snap.Upload.ModalOpen {
		return m.handleModalKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.ToggleTheme):
		dark := m.theme.Toggle()
		if m.prefs != nil {
			if err := m.prefs.SetDarkMode(dark); err != nil {
				m.logger.Warn("saving theme preference failed", zap.Error(err))
			}
		}
		m.updateViewport(false)
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.intent(m.sess.NewConversation)
		return m, nil

	case key.Matches(msg, m.keys.Upload):
		m.intent(m.sess.OpenUpload)
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.intent(m.sess.RefreshHistory)
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput && m.theme.SidebarWidth() > 0 {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.History)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Submit):
		if len(m.snap.History) == 0 {
			return m, nil
		}
		cursor := m.cursor
		if m.intent(func() error { return m.sess.LoadHistoryEntry(cursor) }) {
			m.focus = focusInput
			m.input.Focus()
		}
	case key.Matches(msg, m.keys.Close):
		m.focus = focusInput
		m.input.Focus()
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		text := strings.TrimSpace(m.input.Value())
		if text == "" || !m.canSend() {
			return m, nil
		}
		if m.intent(func() error { return m.sess.Send(text) }) {
			m.input.Reset()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	up := m.snap.Upload
	switch {
	case key.Matches(msg, m.keys.Close):
		m.intent(m.sess.DismissUpload)
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if up.State == session.UploadUploading || up.State == session.UploadSuccess {
			return m, nil
		}
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" || m.loading {
			return m, nil
		}
		m.loading = true
		return m, loadDocument(expandHome(path), m.maxUpload)
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

// intent runs fn against the session and records its error. It reports
// whether fn succeeded.
// handleDocumentLoaded hands a file read off the UI goroutine to the
// upload workflow.
func (m Model) handleDocumentLoaded(msg DocumentLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.Err != nil {
		m.setError(msg.Err)
		return m, nil
	}
	if m.intent(func() error { return m.sess.SelectDocument(msg.Doc) }) {
		m.pathInput.Reset()
	}
	return m, nil
}

func (m *Model) intent(fn func() error) bool {
	if m.sess == nil {
		return false
	}
	if err := fn(); err != nil {
		m.setError(err)
		return false
	}
	m.lastErr = ""
	return true
}

func (m *Model) setError(err error) {
	if errors.Is(err, session.ErrUnsupportedFileType) {
		// Non-PDF selections are ignored, not reported
		m.lastErr = ""
		m.logger.Info("ignoring unsupported document", zap.Error(err))
		return
	}
	m.lastErr = describeError(err)
	m.logger.Debug("intent refused", zap.Error(err))
}

// canSend mirrors the send button: enabled only while connected and not
// waiting for an answer.
func (m Model) canSend() bool {
	return m.snap.State == session.StateConnected && !m.snap.Typing
}

// describeError turns intent errors into the short line under the input.
func describeError(err error) string {
	switch {
	case errors.Is(err, session.ErrNotConnected):
		return "Non connecté au serveur, message non envoyé."
	case errors.Is(err, session.ErrUploadInProgress):
		return "Un document est en cours d'indexation."
	case errors.Is(err, ingest.ErrTooLarge):
		return "Fichier trop volumineux."
	case errors.Is(err, session.ErrStopped):
		return "Session terminée."
	default:
		return err.Error()
	}
}
