package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
	"docqa/internal/service"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Retrieve(ctx context.Context, req service.RetrieveRequest) (*domain.AnswerResult, error)
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service     RAGPort
	sessionID   string
	documentIDs []string
	topK        int
	input       textinput.Model
	viewport    viewport.Model
	answer      string
	results     []domain.ScoredChunk
	summary     string
	status      string
	cursor      int
	ready       bool
	lastQuery   string
}

// New creates a TUI that asks questions against documentIDs in one session.
func New(svc RAGPort, sessionID string, documentIDs []string, topK int, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:     svc,
		sessionID:   sessionID,
		documentIDs: documentIDs,
		topK:        topK,
		input:       ti,
		viewport:    vp,
		summary:     summary,
		status:      fmt.Sprintf("Loaded %d document(s). Session %s.", len(documentIDs), sessionID),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m.ask(q)
				return m, nil
			}
		case tea.KeyDown:
			if m.step(1) {
				return m, nil
			}
		case tea.KeyUp:
			if m.step(-1) {
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.ready = true
	_, rh := resultBoxStyle.GetFrameSize()
	_, qh := queryBoxStyle.GetFrameSize()
	chrome := 2 + 1 + qh + 1 // header+summary, status, spacer
	m.viewport.Width = max(20, width)
	m.viewport.Height = max(3, max(3, height-chrome)-rh)
	m.refresh()
}

func (m *Model) ask(q string) {
	res, err := m.service.Retrieve(context.Background(), service.RetrieveRequest{
		SessionID:   m.sessionID,
		DocumentIDs: m.documentIDs,
		Question:    q,
		TopK:        m.topK,
	})
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
		m.answer = ""
	} else {
		m.status = fmt.Sprintf("%d source(s) for %q, %d tokens", len(res.Chunks), q, res.Usage.TotalTokens)
		m.results = res.Chunks
		m.answer = res.Answer
		m.cursor = 0
		m.lastQuery = q
		m.input.SetValue("")
	}
	m.refresh()
}

// step moves the source cursor by delta, wrapping around. It reports whether
// there was anything to move through.
func (m *Model) step(delta int) bool {
	n := len(m.results)
	if n == 0 {
		return false
	}
	m.cursor = ((m.cursor+delta)%n + n) % n
	m.refresh()
	return true
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderCurrentResult())
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docqa")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if m.lastQuery == "" {
		return "No answer yet."
	}
	if len(m.results) == 0 {
		return "No matching chunks in the selected documents."
	}
	r := m.results[m.cursor]
	answer := answerStyle.Render("Answer: ") + m.answer
	title := fmt.Sprintf("Source %d/%d  %s #%d  score=%.3f", m.cursor+1, len(m.results), r.Filename, r.LocalIndex, r.Score)
	body := highlightBestSentence(r.Text, m.lastQuery)
	return answer + "\n\n" + title + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

