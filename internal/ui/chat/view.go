// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/caurisai/cauris-tui/internal/model"
	"github.com/caurisai/cauris-tui/internal/session"
	"github.com/caurisai/cauris-tui/internal/util"
)

// User-facing labels, kept in the product's language.
const (
	titleAssistant = "Assistant Cauris"
	titleHistory   = "Historique"
	emptyHistory   = "Aucun historique"
	staleHistory   = "historique non synchronisé"
	typingLabel    = "Cauris AI réfléchit..."
	disclaimer     = "Cauris AI peut faire des erreurs. Vérifiez les informations importantes."

	statusConnected  = "Base de connaissance active"
	statusConnecting = "Connexion en cours..."
	statusOffline    = "Déconnecté du serveur"
	authRejected     = "session expirée, lancez `cauris login`"

	uploadTitle    = "Entraîner Cauris AI"
	uploadIntro    = "Ajoutez vos supports de cours (PDF) pour permettre à l'IA de répondre à vos questions spécifiques sur ces documents."
	uploadPick     = "Cliquez pour choisir un PDF"
	uploadBusy     = "Indexation en cours..."
	uploadDone     = "Document indexé !"
	uploadDoneHint = "Cauris AI est prêt à en discuter."
	uploadFailed   = "Échec du traitement"
	uploadRetry    = "Veuillez réessayer avec un autre fichier."
	uploadPrivacy  = "Privé & Sécurisé"
	uploadReading  = "Lecture du fichier..."
)

// StatusLabel returns the header wording for a connection state.
func StatusLabel(s session.ConnectionState) string {
	switch s {
	case session.StateConnected:
		return statusConnected
	case session.StateConnecting:
		return statusConnecting
	default:
		return statusOffline
	}
}

// View renders the current state.
func (m Model) View() string {
	if m.width == 0 {
		return "Chargement..."
	}

	header := m.renderHeader()
	var body string
	if m.snap.Upload.ModalOpen {
		body = m.renderModal()
	} else {
		body = m.renderMain()
	}

	if sw := m.theme.SidebarWidth(); sw > 0 {
		sidebar := m.renderSidebar(sw)
		right := lipgloss.JoinVertical(lipgloss.Left, header, body)
		return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, right)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// mainWidth is the width right of the sidebar.
func (m Model) mainWidth() int {
	return m.width - m.theme.SidebarWidth()
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme
	dotStyle := t.StatusOff
	switch m.snap.State {
	case session.StateConnected:
		dotStyle = t.StatusOnline
	case session.StateConnecting:
		dotStyle = t.StatusBusy
	}

	status := dotStyle.Render("● " + StatusLabel(m.snap.State))
	if m.snap.AuthRejected {
		status += " " + t.StatusOff.Render("("+authRejected+")")
	}
	left := t.HeaderTitle.Render(titleAssistant) + "  " + status

	right := ""
	if m.email != "" {
		right = t.HeaderEmail.Render(m.email)
	}

	inner := m.mainWidth() - 2
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	return t.Header.Width(m.mainWidth()).Render(line)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar(width int) string {
	t := m.theme
	inner := width - 3

	lines := []string{t.SidebarTitle.Render(strings.ToUpper(titleHistory))}
	if m.snap.HistoryStale {
		lines = append(lines, t.StaleBadge.Render(util.TruncateWidth(staleHistory, inner)))
	}

	if len(m.snap.History) == 0 {
		lines = append(lines, t.SidebarEmpty.Render(emptyHistory))
	}
	for i, e := range m.snap.History {
		title := util.Preview(e.Question, inner-2)
		if i == m.cursor && m.focus == focusSidebar {
			lines = append(lines, t.SidebarSelected.Render("› "+title))
		} else {
			lines = append(lines, t.SidebarItem.Render("  "+title))
		}
	}

	height := m.height
	if height < 1 {
		height = 1
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return t.Sidebar.Width(width - 1).Height(height).Render(strings.Join(lines, "\n"))
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m Model) renderMain() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.renderFooter(),
	)
}

// updateViewport re-renders the transcript, scrolling to the end when
// follow is set.
func (m *Model) updateViewport(follow bool) {
	m.viewport.SetContent(m.renderMessages())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderMessages() string {
	width := m.viewport.Width
	bubbleWidth := width * 3 / 4
	if bubbleWidth < 20 {
		bubbleWidth = width
	}

	var parts []string
	for _, msg := range m.snap.Messages {
		parts = append(parts, m.renderMessage(msg, width, bubbleWidth))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.Message, width, bubbleWidth int) string {
	t := m.theme
	var bubble string
	if msg.IsOutgoing() {
		bubble = t.UserBubble.MaxWidth(bubbleWidth).Render(wrap(msg.Content, bubbleWidth-8))
	} else {
		content := m.md.render(msg.Content, t.GlamourStyle(), bubbleWidth-4)
		bubble = t.AssistantBubble.MaxWidth(bubbleWidth).Render(content)
	}

	if msg.HasTimestamp() {
		bubble = lipgloss.JoinVertical(lipgloss.Left, bubble, t.Timestamp.Render(msg.Clock()))
	}

	if msg.IsOutgoing() {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
	}
	return bubble
}

func wrap(s string, width int) string {
	if width < 1 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

// =============================================================================
// FOOTER
// =============================================================================

func (m Model) renderFooter() string {
	t := m.theme
	width := m.mainWidth()

	typing := ""
	if m.snap.Typing {
		typing = t.Typing.Render(m.spinner.View() + " " + typingLabel)
	}

	box := t.InputContainer
	if !m.canSend() || m.focus != focusInput {
		box = t.InputDisabled
	}
	input := box.Width(width - 2).Render(m.input.View())

	lines := []string{typing, input}
	if m.lastErr != "" {
		lines = append(lines, t.ErrorLine.Render(util.TruncateWidth(m.lastErr, width)))
	} else {
		lines = append(lines, t.Disclaimer.Width(width).Render(util.TruncateWidth(disclaimer, width)))
	}
	lines = append(lines, t.Help.Render(m.help.View(m.keys)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// =============================================================================
// UPLOAD MODAL
// =============================================================================

func (m Model) renderModal() string {
	t := m.theme
	up := m.snap.Upload
	width := min(m.mainWidth()-4, 64)

	lines := []string{t.ModalTitle.Render(uploadTitle), ""}
	switch up.State {
	case session.UploadIdle:
		lines = append(lines,
			t.ModalBody.Width(width-8).Render(uploadIntro), "",
			t.ModalBody.Render(uploadPick),
			m.pathInput.View())
	case session.UploadUploading:
		lines = append(lines,
			m.spinner.View()+" "+t.ModalBody.Render(uploadBusy),
			t.ModalMuted.Render(up.FileName))
	case session.UploadSuccess:
		lines = append(lines,
			t.ModalOK.Render(uploadDone),
			t.ModalBody.Render(uploadDoneHint))
	case session.UploadError:
		lines = append(lines,
			t.ModalFailed.Render(uploadFailed),
			t.ModalBody.Render(uploadRetry), "",
			m.pathInput.View())
	}
	if m.loading {
		lines = append(lines, m.spinner.View()+" "+t.ModalMuted.Render(uploadReading))
	}
	if m.lastErr != "" {
		lines = append(lines, "", t.ErrorLine.Render(m.lastErr))
	}
	lines = append(lines, "", t.ModalMuted.Render(uploadPrivacy))

	modal := t.Modal.Width(width).Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
	height := m.height - 3
	if height < lipgloss.Height(modal) {
		return modal
	}
	return lipgloss.Place(m.mainWidth(), height, lipgloss.Center, lipgloss.Center, modal)
}

// expandHome resolves a leading ~/ in a typed path.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
