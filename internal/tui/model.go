// Package tui renders the eligibility workflow as an interactive terminal
// form. The model never mutates workflow state itself; it issues commands and
// redraws from the snapshots carried by workflow events.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"shieldcare/internal/eligibility"
	"shieldcare/internal/health"
	dErrors "shieldcare/pkg/domain-errors"
)

// Workflow is what the terminal UI drives.
type Workflow interface {
	Snapshot() eligibility.Snapshot
	SetField(ctx context.Context, metric health.Metric, raw string) error
	Submit(ctx context.Context) (*eligibility.Run, error)
	Reset(ctx context.Context) eligibility.Snapshot
	Subscribe(buffer int) (<-chan eligibility.Event, func())
}

type eventMsg eligibility.Event

type streamClosedMsg struct{}

// Model is the bubbletea model for the eligibility form.
type Model struct {
	ctx         context.Context
	workflow    Workflow
	events      <-chan eligibility.Event
	unsubscribe func()

	inputs []textinput.Model
	focus  int
	snap   eligibility.Snapshot
	err    string

	keys keyMap
	help help.Model
}

// New subscribes to workflow events and builds the initial model.
func New(ctx context.Context, workflow Workflow) (*Model, error) {
	if workflow == nil {
		return nil, errors.New("workflow is required")
	}
	events, unsubscribe := workflow.Subscribe(64)
	m := &Model{
		ctx:         ctx,
		workflow:    workflow,
		events:      events,
		unsubscribe: unsubscribe,
		snap:        workflow.Snapshot(),
		keys:        defaultKeyMap(),
		help:        help.New(),
	}
	for _, metric := range health.Metrics {
		in := textinput.New()
		hint := metric.Hint()
		in.Placeholder = placeholder(hint)
		in.CharLimit = 4
		in.Width = 8
		in.Prompt = "› "
		in.SetValue(m.snap.Form.Get(metric))
		m.inputs = append(m.inputs, in)
	}
	m.inputs[0].Focus()
	return m, nil
}

// Close stops listening to workflow events.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

func waitForEvent(events <-chan eligibility.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case eventMsg:
		m.apply(eligibility.Event(msg))
		return m, waitForEvent(m.events)
	case streamClosedMsg:
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	}
	return m, m.updateFocused(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		return m, m.moveFocus(1)
	case key.Matches(msg, m.keys.Prev):
		return m, m.moveFocus(-1)
	case key.Matches(msg, m.keys.Reset):
		m.snap = m.workflow.Reset(m.ctx)
		m.err = ""
		m.syncInputs()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		m.submit()
		return m, nil
	}

	cmd := m.updateFocused(msg)
	metric := health.Metrics[m.focus]
	value := m.inputs[m.focus].Value()
	if value != m.snap.Form.Get(metric) {
		if err := m.workflow.SetField(m.ctx, metric, value); err != nil {
			m.err = dErrors.Message(err)
		} else {
			m.snap.Form, _ = m.snap.Form.Set(metric, value)
		}
	}
	return m, cmd
}

func (m *Model) submit() {
	if _, err := m.workflow.Submit(m.ctx); err != nil {
		m.err = dErrors.Message(err)
		return
	}
	m.err = ""
	m.snap = m.workflow.Snapshot()
}

func (m *Model) apply(ev eligibility.Event) {
	m.snap = ev.Snapshot
	switch ev.Kind {
	case eligibility.EventReset:
		m.err = ""
		m.syncInputs()
	case eligibility.EventFailed:
		m.err = ev.Snapshot.Failure
	}
}

func (m *Model) syncInputs() {
	for i, metric := range health.Metrics {
		m.inputs[i].SetValue(m.snap.Form.Get(metric))
	}
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	return m.inputs[m.focus].Focus()
}

func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

// Run starts the terminal UI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, workflow Workflow, opts ...tea.ProgramOption) error {
	m, err := New(ctx, workflow)
	if err != nil {
		return err
	}
	defer m.Close()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	_, err = tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
