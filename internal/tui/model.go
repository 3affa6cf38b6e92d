package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"pdfmind/internal/session"
)

// SessionPort is the TUI-facing subset of a document session.
type SessionPort interface {
	Upload(ctx context.Context, fileName string, data []byte, opts ...session.UploadOption) error
	Ask(ctx context.Context, question string, onFragment func(string)) (session.Message, error)
	Reset()
	ClearChat()
	Snapshot() session.Snapshot
}

type (
	stageMsg      session.Stage
	uploadDoneMsg struct {
		name string
		err  error
	}
	openMsg       string
	fragmentMsg   string
	answerDoneMsg struct {
		msg session.Message
		err error
	}
)

// Model is the Bubble Tea model for the terminal chat.
type Model struct {
	sess     SessionPort
	readFile func(string) ([]byte, error)
	input    textinput.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	status   string
	ready    bool
	openPath string

	busy      bool
	streaming string
	events    <-chan tea.Msg
	cancel    context.CancelFunc
}

// New creates the chat model. When path is not empty it is uploaded on start.
func New(sess SessionPort, path string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the document, or /open <file.pdf>"
	ti.Focus()
	ti.CharLimit = 0
	m := Model{
		sess:     sess,
		readFile: os.ReadFile,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Open a PDF with /open <path>. /reset drops it, /clear empties the chat, /quit exits.",
	}
	if w := sess.Snapshot().ConfigWarning; w != "" {
		m.status = "Warning: " + w
	}
	m.openPath = path
	return m
}

func (m Model) Init() tea.Cmd {
	if m.openPath != "" {
		path := m.openPath
		return tea.Batch(textinput.Blink, func() tea.Msg { return openMsg(path) })
	}
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + summary, status, input, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		if r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(m.viewport.Width-4)); err == nil {
			m.renderer = r
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEsc && m.busy && m.cancel != nil {
			m.cancel()
			m.status = "Cancelling..."
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			return m.handleLine(line)
		}
	case openMsg:
		return m.handleLine("/open " + string(msg))
	case stageMsg:
		m.status = stageText[session.Stage(msg)]
		return m, waitFor(m.events)
	case uploadDoneMsg:
		m.finish()
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Loaded %s. Ask a question.", msg.name)
		}
		m.refresh()
		return m, nil
	case fragmentMsg:
		m.streaming += string(msg)
		m.refresh()
		return m, waitFor(m.events)
	case answerDoneMsg:
		m.finish()
		m.status = "Ready."
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		}
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLine(line string) (tea.Model, tea.Cmd) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/reset":
		m.sess.Reset()
		m.status = "Document index reset."
		m.refresh()
		return m, nil
	case "/clear":
		m.sess.ClearChat()
		m.status = "Chat history cleared."
		m.refresh()
		return m, nil
	case "/open":
		path := strings.TrimSpace(arg)
		if path == "" {
			m.status = "Usage: /open <file.pdf>"
			return m, nil
		}
		data, err := m.readFile(path)
		if err != nil {
			m.status = "Error: " + err.Error()
			return m, nil
		}
		return m.start(func(ctx context.Context, ch chan<- tea.Msg) {
			err := m.sess.Upload(ctx, path, data, session.WithProgress(func(st session.Stage) { ch <- stageMsg(st) }))
			ch <- uploadDoneMsg{name: m.sess.Snapshot().Document, err: err}
		})
	}
	if strings.HasPrefix(cmd, "/") {
		m.status = "Unknown command " + cmd
		return m, nil
	}
	m.status = "Thinking... (Esc to cancel)"
	m2, next := m.start(func(ctx context.Context, ch chan<- tea.Msg) {
		msg, err := m.sess.Ask(ctx, line, func(f string) { ch <- fragmentMsg(f) })
		ch <- answerDoneMsg{msg: msg, err: err}
	})
	m2.refresh()
	return m2, next
}

// start runs op in the background and feeds its messages back one at a time.
func (m Model) start(op func(ctx context.Context, ch chan<- tea.Msg)) (Model, tea.Cmd) {
	ch := make(chan tea.Msg, 16)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(ch)
		op(ctx, ch)
	}()
	m.busy = true
	m.streaming = ""
	m.events = ch
	m.cancel = cancel
	return m, waitFor(ch)
}

func (m *Model) finish() {
	if m.cancel != nil {
		m.cancel()
	}
	m.busy = false
	m.streaming = ""
	m.events = nil
	m.cancel = nil
}

func waitFor(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	snap := m.sess.Snapshot()
	header := headerStyle.Render("Chat with your PDF")
	doc := "No document loaded"
	if snap.Document != "" {
		doc = fmt.Sprintf("%s [%s]", snap.Document, snap.State)
		if snap.Summary != "" {
			doc += "  " + snap.Summary
		}
	}
	summary := summaryStyle.Width(m.viewport.Width).MaxHeight(1).Render(doc)
	body := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + body + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	transcript := m.sess.Snapshot().Transcript
	if len(transcript) == 0 && m.streaming == "" {
		return "No messages yet."
	}
	var b strings.Builder
	for _, msg := range transcript {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	if m.busy && m.streaming != "" {
		b.WriteString(assistantStyle.Render("Assistant") + "\n" + m.streaming + "▌\n")
	}
	return b.String()
}

func (m Model) renderMessage(msg session.Message) string {
	if msg.Role == session.RoleUser {
		return userStyle.Render("You") + "\n" + msg.Content + "\n"
	}
	content := msg.Content
	if m.renderer != nil && content != "" {
		if out, err := m.renderer.Render(content); err == nil {
			content = strings.TrimRight(out, "\n")
		}
	}
	out := assistantStyle.Render("Assistant") + "\n" + content + "\n"
	if msg.Incomplete {
		out += errorStyle.Render("[incomplete] "+msg.Error) + "\n"
	}
	return out
}

var stageText = map[session.Stage]string{
	session.StageWorkspace: "Creating temporary workspace...",
	session.StageReading:   "Reading document...",
	session.StageEmbedding: "Indexing document...",
	session.StageReady:     "Document ready",
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("105"))
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
