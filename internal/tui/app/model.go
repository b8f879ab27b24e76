package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/voice"
	"github.com/zhouzirui/callcoach/backend/internal/tui/ui"

	tea "github.com/charmbracelet/bubbletea"
)

const commandTimeout = 10 * time.Second

// TranscriptEntry is a line shown in the transcript pane.
type TranscriptEntry struct {
	Speaker   practice.Speaker
	Text      string
	Timestamp time.Time
}

// Config wires the model to a running controller.
type Config struct {
	Scenario   practice.Scenario
	Difficulty practice.Difficulty
	Greeting   string
	Controller *voice.Controller
	Keyboard   *Keyboard
	Sink       *PaneSink
}

// Model is the root bubbletea model of the practice client.
type Model struct {
	cfg Config

	state   voice.State
	entries []TranscriptEntry
	input   string

	hint         string
	errorMessage string

	width  int
	height int
}

// New creates a Model for an inactive session.
func New(cfg Config) Model {
	return Model{
		cfg:  cfg,
		hint: "Press ctrl+a to start the call.",
	}
}

// Init starts listening for controller events and sink output.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitEventCmd(m.cfg.Controller), waitSpeechCmd(m.cfg.Sink))
}

func waitEventCmd(ctrl *voice.Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-ctrl.Events():
			return VoiceEventMsg{Event: ev}
		case <-ctrl.Done():
			return ControllerClosedMsg{}
		}
	}
}

func waitSpeechCmd(sink *PaneSink) tea.Cmd {
	return func() tea.Msg {
		return SpeechMsg{Text: <-sink.Lines()}
	}
}

func controllerCmd(op func(ctx context.Context) (voice.State, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		st, err := op(ctx)
		return StateMsg{State: st, Err: err}
	}
}

func clearHintCmd() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return ClearHintMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StateMsg:
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
			return m, nil
		}
		m.state = msg.State
		return m, nil

	case VoiceEventMsg:
		cmd := m.handleEvent(msg.Event)
		return m, tea.Batch(cmd, waitEventCmd(m.cfg.Controller))

	case SpeechMsg:
		m.entries = append(m.entries, TranscriptEntry{
			Speaker:   practice.SpeakerCustomer,
			Text:      msg.Text,
			Timestamp: time.Now(),
		})
		return m, waitSpeechCmd(m.cfg.Sink)

	case ControllerClosedMsg:
		return m, tea.Quit

	case ClearHintMsg:
		m.hint = ""
		return m, nil
	}

	return m, nil
}

// handleEvent applies a controller event and returns any resulting command.
func (m *Model) handleEvent(ev voice.Event) tea.Cmd {
	switch ev.Kind {
	case voice.EventState:
		m.state.Phase = ev.Phase
		return controllerCmd(m.cfg.Controller.State)

	case voice.EventUtterance:
		m.entries = append(m.entries, TranscriptEntry{
			Speaker:   practice.SpeakerRep,
			Text:      ev.Text,
			Timestamp: ev.At,
		})

	case voice.EventError:
		if ev.Err != nil {
			m.errorMessage = ev.Err.Error()
		}
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	}

	switch msg.String() {
	case KeyCtrlC:
		return m, tea.Quit

	case KeyTrigger:
		m.errorMessage = ""
		if !m.state.Active {
			m.hint = "Call not started: press ctrl+a first."
			return m, tea.Batch(controllerCmd(m.cfg.Controller.Toggle), clearHintCmd())
		}
		return m, controllerCmd(m.cfg.Controller.Toggle)

	case KeyActivate:
		m.errorMessage = ""
		if m.state.Active {
			m.hint = "Call ended."
			return m, controllerCmd(m.cfg.Controller.Deactivate)
		}
		greeting := m.cfg.Greeting
		m.hint = "Call started: press TAB to talk."
		return m, controllerCmd(func(ctx context.Context) (voice.State, error) {
			return m.cfg.Controller.Activate(ctx, greeting)
		})

	case KeyEnter:
		line := m.input
		m.input = ""
		if strings.TrimSpace(line) == "" {
			return m, nil
		}
		if !m.cfg.Keyboard.Submit(line) {
			m.hint = "Not listening, line discarded: press TAB to talk."
			return m, clearHintCmd()
		}
		return m, nil

	case KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderTranscript())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, ui.InputStyle.Render("> "+m.input))

	if m.errorMessage != "" {
		sections = append(sections, ui.ErrorStyle.Render("Error: "+m.errorMessage))
	} else if m.hint != "" {
		sections = append(sections, ui.HintStyle.Render(m.hint))
	}

	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render(strings.ToUpper(m.cfg.Scenario.Title))
	level := ui.StatusStyle.Render(" · " + m.cfg.Difficulty.Label())

	var dot, phase string
	switch m.state.Phase {
	case voice.PhaseListening:
		dot, phase = ui.ListeningDotStyle.Render("●"), "Listening"
	case voice.PhaseIdle:
		dot, phase = ui.IdleDotStyle.Render("●"), "Idle"
	default:
		dot, phase = ui.InactiveDotStyle.Render("○"), "Inactive"
	}

	left := title + level
	right := dot + " " + ui.StatusStyle.Render(phase)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderTranscript() string {
	rows := m.height - 7
	if rows < 3 {
		rows = 3
	}

	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		label := ui.RepLabelStyle.Render("You")
		if e.Speaker == practice.SpeakerCustomer {
			label = ui.CustomerLabelStyle.Render("Customer")
		}
		ts := ui.TimestampStyle.Render(e.Timestamp.Format("15:04:05"))
		lines = append(lines, fmt.Sprintf("%s %s: %s", ts, label, e.Text))
	}

	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"TAB", "talk / stop"},
		{"ENTER", "send line"},
		{"ctrl+a", "start / end call"},
		{"ctrl+c", "quit"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, ui.FooterKeyStyle.Render(k.key)+" "+ui.FooterDescStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}
