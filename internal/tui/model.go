package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dirqa/internal/domain"
)

// AssistantPort is the TUI-facing subset of the assistant service.
type AssistantPort interface {
	Ask(ctx context.Context, q domain.Question) (*domain.Answer, error)
}

// Model is the Bubble Tea model for the interactive assistant.
type Model struct {
	port      AssistantPort
	input     textinput.Model
	viewport  viewport.Model
	docs      []domain.Document
	summary   string
	status    string
	answer    *domain.Answer
	lastQuery string
	filterIdx int
	asking    bool
	ready     bool
}

type answerMsg struct {
	query  string
	answer *domain.Answer
}

type errMsg struct {
	query string
	err   error
}

// New creates a new TUI model. docs is the indexed document registry,
// in index order, used for the filter cycle; summary is a one-line
// description of the loaded index for the header.
func New(port AssistantPort, docs []domain.Document, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the directives and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		port:     port,
		input:    ti,
		viewport: vp,
		docs:     docs,
		summary:  summary,
		status:   "Index loaded. Tab cycles the document filter.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and query boxes
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 3                                    // header + summary + filter
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case answerMsg:
		m.asking = false
		m.answer = msg.answer
		m.lastQuery = msg.query
		m.status = fmt.Sprintf("Answered %q with %d sources", msg.query, len(msg.answer.Citations))
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil
	case errMsg:
		m.asking = false
		m.status = "Error: " + msg.err.Error()
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.asking {
				m.asking = true
				m.status = "Thinking..."
				return m, askCmd(m.port, q, m.filter())
			}
		case "tab":
			m.filterIdx = (m.filterIdx + 1) % (len(m.docs) + 1)
			return m, nil
		case "shift+tab":
			m.filterIdx = (m.filterIdx + len(m.docs)) % (len(m.docs) + 1)
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// askCmd runs the question off the update loop so the UI stays
// responsive while the embedding and chat calls are in flight.
func askCmd(port AssistantPort, query string, filter *domain.Filter) tea.Cmd {
	return func() tea.Msg {
		answer, err := port.Ask(context.Background(), domain.Question{Text: query, Filter: filter})
		if err != nil {
			return errMsg{query: query, err: err}
		}
		return answerMsg{query: query, answer: answer}
	}
}

func (m Model) filter() *domain.Filter {
	if m.filterIdx == 0 {
		return nil
	}
	return &domain.Filter{DocumentIDs: []string{m.docs[m.filterIdx-1].ID}}
}

func (m Model) filterLabel() string {
	if m.filterIdx == 0 {
		return "All Documents"
	}
	return m.docs[m.filterIdx-1].Name
}

// View renders the TUI layout and the current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Directive Q&A")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	filter := filterStyle.Render("Filter: " + m.filterLabel())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	answer := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + filter + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	if m.answer == nil {
		return m.renderWelcome()
	}
	w := m.viewport.Width - 2
	if w < 20 {
		w = 20
	}
	body := lipgloss.NewStyle().Width(w).Render(m.answer.Text)
	if len(m.answer.Citations) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(sourcesStyle.Render("Sources:"))
	for i, c := range m.answer.Citations {
		b.WriteString(fmt.Sprintf("\n  %d. %s  (chunk %d, relevance %.2f)", i+1, c.DocumentName, c.Ordinal, c.Score))
	}
	return b.String()
}

func (m Model) renderWelcome() string {
	var b strings.Builder
	b.WriteString("Ask a question about the indexed directives.\n")
	if len(m.docs) > 0 {
		b.WriteString("\nIndexed documents:\n")
		for _, d := range m.docs {
			if d.Category != "" {
				b.WriteString(fmt.Sprintf("  - %s [%s]\n", d.Name, d.Category))
			} else {
				b.WriteString(fmt.Sprintf("  - %s\n", d.Name))
			}
		}
	}
	b.WriteString("\nExample questions:\n")
	b.WriteString("  - What are the storage requirements for flammable liquids?\n")
	b.WriteString("  - Who is responsible for incident reporting?\n")
	b.WriteString("  - What training must new personnel complete?\n")
	return b.String()
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	filterStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sourcesStyle   = lipgloss.NewStyle().Bold(true)
)
