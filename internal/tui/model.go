// Package tui is the interactive terminal front end for one document:
// a question box, the latest answer and a financial metrics view.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/54b3r/finrag-go/internal/finmetrics"
	"github.com/54b3r/finrag-go/internal/session"
)

// DocumentPort is the TUI-facing subset of *session.Document.
type DocumentPort interface {
	Name() string
	Ask(ctx context.Context, question string) session.Reply
	Metrics(ctx context.Context) finmetrics.Result
}

type view int

const (
	viewChat view = iota
	viewMetrics
)

type turn struct {
	question string
	reply    session.Reply
}

// answerMsg carries a finished Ask back into Update.
type answerMsg struct {
	question string
	reply    session.Reply
}

// metricsMsg carries a finished Metrics call back into Update.
type metricsMsg struct {
	result finmetrics.Result
}

// Model is the Bubble Tea model for a document chat session.
type Model struct {
	ctx      context.Context
	doc      DocumentPort
	input    textinput.Model
	viewport viewport.Model
	turns    []turn
	metrics  *finmetrics.Result
	view     view
	busy     bool
	status   string
	ready    bool
}

// New creates a model for doc. ctx bounds every call made on doc.
func New(ctx context.Context, doc DocumentPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the document and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		doc:      doc,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Tab switches between chat and metrics. Ctrl+C quits.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) askCmd(q string) tea.Cmd {
	return func() tea.Msg {
		return answerMsg{question: q, reply: m.doc.Ask(m.ctx, q)}
	}
}

func (m Model) metricsCmd() tea.Cmd {
	return func() tea.Msg {
		return metricsMsg{result: m.doc.Metrics(m.ctx)}
	}
}

// Update handles key, window and result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := bodyBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		m.turns = append(m.turns, turn{question: msg.question, reply: msg.reply})
		m.status = "Ready."
		m.view = viewChat
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case metricsMsg:
		m.busy = false
		r := msg.result
		m.metrics = &r
		m.status = "Ready."
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			if m.view == viewChat {
				m.view = viewMetrics
			} else {
				m.view = viewChat
			}
			m.refresh()
			if m.view == viewMetrics && m.metrics == nil && !m.busy {
				m.busy = true
				m.status = "Extracting financial metrics..."
				return m, m.metricsCmd()
			}
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			m.busy = true
			m.status = fmt.Sprintf("Thinking about %q...", q)
			return m, m.askCmd(q)
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	if m.view == viewMetrics {
		m.viewport.SetContent(renderMetrics(m.metrics))
		return
	}
	m.viewport.SetContent(renderTurns(m.turns))
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "Chat"
	if m.view == viewMetrics {
		title = "Financial metrics"
	}
	header := headerStyle.Render(m.doc.Name()) + "  " + subtleStyle.Render(title)
	body := bodyBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + body + "\n" + input + "\n" + status
}

func renderTurns(turns []turn) string {
	if len(turns) == 0 {
		return subtleStyle.Render("No questions yet.")
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("Q: " + t.question))
		b.WriteString("\n")
		if t.reply.Summary != "" {
			b.WriteString(t.reply.Summary)
		} else {
			b.WriteString(adviceStyle.Render(t.reply.Message))
		}
	}
	return b.String()
}

func renderMetrics(r *finmetrics.Result) string {
	if r == nil {
		return subtleStyle.Render("Loading metrics...")
	}
	if r.Message != "" {
		return adviceStyle.Render(r.Message)
	}

	var b strings.Builder
	for _, cat := range categories(r.Metrics) {
		byName := r.Metrics[cat]
		if len(byName) == 0 {
			continue
		}
		b.WriteString(questionStyle.Render(cat))
		b.WriteString("\n")
		names := make([]string, 0, len(byName))
		for n := range byName {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			met := byName[n]
			line := fmt.Sprintf("  %-32s %s", n, met.Value)
			if met.Delta != "" {
				style := upStyle
				if met.DeltaColor == "inverse" {
					style = downStyle
				}
				line += "  " + style.Render(string(met.Delta))
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// categories lists the known categories first, then any the model invented.
func categories(m finmetrics.Metrics) []string {
	out := append([]string(nil), finmetrics.Categories...)
	var extra []string
	for cat := range m {
		known := false
		for _, c := range finmetrics.Categories {
			if c == cat {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, cat)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	adviceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	upStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	bodyBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
