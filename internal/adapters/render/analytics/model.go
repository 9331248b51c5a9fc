// Package analytics renders operator views of the analytics data: aggregate
// snapshots, abandonment funnels, expiry reports, and the recent lead and
// upload logs.
package analytics

import (
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/growex/quotebot/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// Report is everything one invocation may want on screen. Absent sections are
// skipped.
type Report struct {
	Aggregates []domain.AggregateSnapshot
	Funnels    []domain.FunnelSnapshot
	Expiry     *domain.ExpiryReport
	Leads      []domain.Lead
	Uploads    []domain.UploadRecord
}

type RenderOptions struct {
	Now time.Time
}

type renderReadyMsg struct{}

type model struct {
	report Report
	opts   RenderOptions
	styles styles
	output string
}

func newModel(report Report, opts RenderOptions) model {
	return model{
		report: report,
		opts:   opts,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.report, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func Render(report Report, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(report, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
