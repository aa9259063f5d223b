package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/docqa/docqa/internal/rag"
)

// Asker is the chat-facing subset of the pipeline.
type Asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

// exchange is one question/answer pair in the session transcript.
type exchange struct {
	question string
	answer   string
	sources  []rag.RetrievalResult
	err      error
}

// answerMsg carries a completed Ask call back into Update.
type answerMsg struct {
	question string
	answer   *rag.Answer
	err      error
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	service  Asker
	styles   Styles
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	status   string
	thinking bool
	ready    bool
	width    int
}

// NewModel creates a chat model over the given pipeline.
func NewModel(service Asker, summary string, styles Styles) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the docs"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		styles:   styles,
		input:    ti,
		viewport: vp,
		status:   summary,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, ih := m.styles.InputBox.GetFrameSize()
		reserved := 2 + ih + 1 // header + status + input frame + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case answerMsg:
		m.thinking = false
		ex := exchange{question: msg.question, err: msg.err}
		if msg.answer != nil {
			ex.answer = msg.answer.Text
			ex.sources = msg.answer.Sources
			m.status = fmt.Sprintf("Answered in %s", msg.answer.Duration.Round(10*time.Millisecond))
		} else {
			m.status = "Ask failed"
		}
		m.history = append(m.history, ex)
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.history = nil
			m.status = "History cleared"
			m.viewport.SetContent(m.renderHistory())
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.thinking {
				return m, nil
			}
			m.input.Reset()
			m.thinking = true
			m.status = "Thinking..."
			return m, m.askCmd(q)
		case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// askCmd runs the blocking Ask call off the UI loop.
func (m Model) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.service.Ask(context.Background(), question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := m.styles.Header.Render("docqa chat")
	transcript := m.viewport.View()
	input := m.styles.InputBox.Render(m.input.View())
	status := m.styles.Status.Render(m.status + "  (enter: ask, ctrl+l: clear, ctrl+c: quit)")
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return m.styles.Dim.Render("No questions yet.")
	}
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.styles.Question.Render("Q: " + ex.question))
		b.WriteString("\n")
		if ex.err != nil {
			b.WriteString(m.styles.Error.Render("Error: " + ex.err.Error()))
			continue
		}
		b.WriteString(m.styles.Answer.Render(ex.answer))
		if len(ex.sources) > 0 {
			b.WriteString("\n")
			b.WriteString(m.styles.Source.Render(formatSources(ex.sources)))
		}
	}
	return b.String()
}

// formatSources lists the unique source documents behind an answer.
func formatSources(sources []rag.RetrievalResult) string {
	seen := make(map[string]bool, len(sources))
	var paths []string
	for _, s := range sources {
		if !seen[s.SourcePath] {
			seen[s.SourcePath] = true
			paths = append(paths, s.SourcePath)
		}
	}
	return "Sources: " + strings.Join(paths, ", ")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
