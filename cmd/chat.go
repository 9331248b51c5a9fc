package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/growex/quotebot/internal/application"
	"github.com/growex/quotebot/internal/ports"
)

func newChatCmd(app *app) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the interactive estimate conversation in the terminal",
		Long: "chat starts the conversational flow: pick how to describe the cargo, answer the prompts, " +
			"get an estimate, and optionally leave your contacts. Send \"/file <path>\" to upload a rate sheet (admins only).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), app, userID)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "operator", "User ID the conversation runs as")

	return cmd
}

func runChat(ctx context.Context, app *app, userID string) error {
	transport := newBufferTransport()
	conversation := app.conversation(transport)

	p := tea.NewProgram(
		newChatModel(ctx, conversation, transport, userID),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}

// bufferTransport queues outbound replies so the chat model can drain them
// after each engine call. Message editing and callbacks have no terminal
// equivalent and are accepted as no-ops.
type bufferTransport struct {
	mu    sync.Mutex
	queue []string
}

var _ ports.Transport = (*bufferTransport)(nil)

func newBufferTransport() *bufferTransport {
	return &bufferTransport{}
}

func (t *bufferTransport) SendMessage(_ context.Context, _ string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, text)
	return nil
}

func (t *bufferTransport) EditMessage(context.Context, string, string, string) error { return nil }
func (t *bufferTransport) AnswerCallback(context.Context, string, string) error { return nil }

func (t *bufferTransport) drain() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	drained := t.queue
	t.queue = nil
	return drained
}

type chatLine struct {
	fromUser bool
	text     string
}

type repliesMsg struct {
	lines []string
	err   error
}

type chatModel struct {
	ctx          context.Context
	conversation *application.Conversation
	transport    *bufferTransport
	userID       string

	input   textinput.Model
	history []chatLine
	busy    bool
	err     error

	userStyle  lipgloss.Style
	botStyle   lipgloss.Style
	faintStyle lipgloss.Style
}

func newChatModel(ctx context.Context, conversation *application.Conversation, transport *bufferTransport, userID string) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message (ctrl+c to quit)"
	input.Focus()
	input.CharLimit = 512

	return chatModel{
		ctx:          ctx,
		conversation: conversation,
		transport:    transport,
		userID:       userID,
		input:        input,
		userStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		botStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		faintStyle:   lipgloss.NewStyle().Faint(true),
	}
}

func (m chatModel) Init() tea.Cmd {
	// Greet the user the way a fresh /start would.
	return tea.Batch(textinput.Blink, m.deliver(application.KeywordStart))
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.history = append(m.history, chatLine{fromUser: true, text: text})
			m.busy = true
			return m, m.deliver(text)
		}

	case repliesMsg:
		m.busy = false
		m.err = msg.err
		for _, line := range msg.lines {
			m.history = append(m.history, chatLine{text: line})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) View() string {
	var b strings.Builder
	for _, line := range m.history {
		if line.fromUser {
			b.WriteString(m.userStyle.Render("you: ") + line.text + "\n")
		} else {
			b.WriteString(m.botStyle.Render(line.text) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString(m.faintStyle.Render("error: "+m.err.Error()) + "\n")
	}
	b.WriteString("\n" + m.input.View() + "\n")
	return b.String()
}

// deliver hands one user input to the engine off the UI loop and comes back
// with whatever replies it queued.
func (m chatModel) deliver(text string) tea.Cmd {
	return func() tea.Msg {
		in, err := m.inboundMessage(text)
		if err != nil {
			return repliesMsg{err: err}
		}

		if err := m.conversation.Handle(m.ctx, in); err != nil {
			return repliesMsg{lines: m.transport.drain(), err: err}
		}
		return repliesMsg{lines: m.transport.drain()}
	}
}

// inboundMessage interprets "/file <path>" as a document attachment; anything
// else is plain text.
func (m chatModel) inboundMessage(text string) (ports.InboundMessage, error) {
	in := ports.InboundMessage{UserID: m.userID, Text: text}

	path, ok := strings.CutPrefix(text, "/file ")
	if !ok {
		return in, nil
	}

	path = strings.TrimSpace(path)
	info, err := os.Stat(path)
	if err != nil {
		return ports.InboundMessage{}, fmt.Errorf("attach %s: %w", path, err)
	}

	in.Text = ""
	in.Document = &ports.DocumentRef{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size(),
	}
	return in, nil
}
