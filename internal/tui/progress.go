package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

const recentOutcomes = 8

// Messages sent by ProgramSink and by the caller running the batch.
type (
	RunStartedMsg  struct{ Run types.RunInfo }
	OutcomeMsg     struct{ Outcome types.UpdateOutcome }
	RunFinishedMsg struct{ Summary types.Summary }

	// RunDoneMsg is sent once the runner returned. It ends the program.
	RunDoneMsg struct{ Err error }
)

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "stop after the current item"),
	),
}

// RunModel is a Bubble Tea model following a batch run.
type RunModel struct {
	run     types.RunInfo
	counts  types.Summary
	recent  []types.UpdateOutcome
	bar     progress.Model
	summary *types.Summary
	err     error

	cancel     func()
	cancelling bool
	done       bool
}

// NewRunModel creates the model. cancel is called once when the operator
// asks to stop; the run then ends after the item in flight.
func NewRunModel(cancel func()) RunModel {
	return RunModel{
		bar:    progress.New(progress.WithGradient(string(primaryColor), string(successColor)), progress.WithWidth(50)),
		cancel: cancel,
	}
}

// Init implements tea.Model.
func (m RunModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 60 {
			width = 60
		}
		if width > 10 {
			m.bar.Width = width
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) && !m.cancelling && !m.done {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case RunStartedMsg:
		m.run = msg.Run
		return m, nil

	case OutcomeMsg:
		m.counts.Record(msg.Outcome)
		m.recent = append(m.recent, msg.Outcome)
		if len(m.recent) > recentOutcomes {
			m.recent = m.recent[len(m.recent)-recentOutcomes:]
		}
		return m, nil

	case RunFinishedMsg:
		s := msg.Summary
		m.summary = &s
		return m, nil

	case RunDoneMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// Percent is the share of rows with an outcome.
func (m RunModel) Percent() float64 {
	if m.run.Rows == 0 {
		return 0
	}
	return float64(m.counts.Total) / float64(m.run.Rows)
}

// View implements tea.Model.
func (m RunModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("SAP delivery date robot"))
	b.WriteString("\n")
	if m.run.InputFile != "" {
		b.WriteString(LabelStyle.Render("Input"))
		b.WriteString(m.run.InputFile)
		b.WriteString("\n")
	}
	b.WriteString(LabelStyle.Render("Progress"))
	b.WriteString(fmt.Sprintf("%d/%d", m.counts.Total, m.run.Rows))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n\n")

	for _, o := range m.recent {
		b.WriteString(FormatOutcome(m.countOf(o), m.run.Rows, o))
		b.WriteString("\n")
	}

	switch {
	case m.summary != nil && m.done:
		b.WriteString("\n")
		b.WriteString(RenderSummary(*m.summary))
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(ErrorStyle.Render(m.err.Error()))
			b.WriteString("\n")
		}
	case m.cancelling:
		b.WriteString(HelpStyle.Render("Stopping after the current item..."))
	default:
		b.WriteString(HelpStyle.Render("Press q to " + keys.Quit.Help().Desc))
	}

	return b.String()
}

// countOf returns the 1-based position of a recent outcome in the run.
func (m RunModel) countOf(o types.UpdateOutcome) int {
	for i := len(m.recent) - 1; i >= 0; i-- {
		if m.recent[i].ID == o.ID {
			return m.counts.Total - (len(m.recent) - 1 - i)
		}
	}
	return m.counts.Total
}

// Sender is the part of tea.Program ProgramSink needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramSink forwards batch events to a running Bubble Tea program.
type ProgramSink struct {
	p Sender
}

// NewProgramSink creates a sink sending to p.
func NewProgramSink(p Sender) *ProgramSink {
	return &ProgramSink{p: p}
}

func (s *ProgramSink) Start(run types.RunInfo) error {
	s.p.Send(RunStartedMsg{Run: run})
	return nil
}

func (s *ProgramSink) Emit(o types.UpdateOutcome) error {
	s.p.Send(OutcomeMsg{Outcome: o})
	return nil
}

func (s *ProgramSink) Finish(summary types.Summary) error {
	s.p.Send(RunFinishedMsg{Summary: summary})
	return nil
}

// Run shows the progress screen while work runs on another goroutine. work
// receives the sink to hand to the batch runner. Run always waits for work to
// return: when the screen fails, cancel is called first so the batch stops
// after the item in flight.
func Run(cancel func(), work func(sink *ProgramSink) error, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(NewRunModel(cancel), opts...)
	sink := NewProgramSink(p)

	done := make(chan error, 1)
	go func() {
		err := work(sink)
		done <- err
		// Send returns without blocking once the program has stopped.
		p.Send(RunDoneMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		if cancel != nil {
			cancel()
		}
		workErr := <-done
		return errors.Join(fmt.Errorf("progress screen failed: %w", err), workErr)
	}
	return <-done
}
