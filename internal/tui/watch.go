package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fangio/fangio/internal/schema"
	"github.com/fangio/fangio/internal/util"
)

// eventMsg carries one audit event into the update loop.
type eventMsg schema.AuditEvent

// streamClosedMsg signals that the event source has no more events.
type streamClosedMsg struct{}

// streamErrMsg reports a source failure.
type streamErrMsg struct{ err error }

// Model is the Bubble Tea model behind `fangio watch`.
type Model struct {
	planID   string
	source   <-chan schema.AuditEvent
	spinner  spinner.Model
	viewport viewport.Model
	lines    []string
	count    int
	done     bool
	closed   bool
	err      error
	ready    bool
}

// New creates a watch model following events for planID from source. The
// channel is owned by the caller; closing it marks the stream finished.
func New(planID string, source <-chan schema.AuditEvent) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleStarted
	return Model{
		planID:  planID,
		source:  source,
		spinner: sp,
	}
}

// Run renders the model until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.source))
}

// waitForEvent blocks on the source channel and converts the result into a
// message. Re-issued after every received event.
func waitForEvent(source <-chan schema.AuditEvent) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-source
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(evt)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := 1
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		return m, nil

	case eventMsg:
		evt := schema.AuditEvent(msg)
		m.count++
		m.lines = append(m.lines, renderEvent(evt))
		if evt.Type == schema.EventExecutionFinished {
			m.done = true
		}
		if m.ready {
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			m.viewport.GotoBottom()
		}
		return m, waitForEvent(m.source)

	case streamClosedMsg:
		m.closed = true
		return m, nil

	case streamErrMsg:
		m.err = msg.err
		m.closed = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := headerStyle.Render(fmt.Sprintf("fangio watch — %s", m.planID))

	var body string
	switch {
	case m.err != nil:
		body = styleError.Render(fmt.Sprintf("  %s %v", glyphError, m.err))
	case m.count == 0 && !m.closed:
		body = fmt.Sprintf("  %s waiting for events…", m.spinner.View())
	case m.ready:
		body = m.viewport.View()
	default:
		body = strings.Join(m.lines, "\n")
	}

	footer := footerStyle.Render(m.statusLine())
	return header + "\n" + body + "\n" + footer
}

func (m Model) statusLine() string {
	switch {
	case m.done:
		return fmt.Sprintf("%d events — execution finished — q to quit", m.count)
	case m.closed:
		return fmt.Sprintf("%d events — stream closed — q to quit", m.count)
	default:
		return fmt.Sprintf("%d events — streaming — q to quit", m.count)
	}
}

// renderEvent formats one audit event as a styled timeline line.
func renderEvent(evt schema.AuditEvent) string {
	step := ""
	if evt.StepID != "" {
		step = " " + styleStepID.Render(evt.StepID)
	}

	switch evt.Type {
	case schema.EventPlanCreated:
		goal, _ := evt.Data["goal"].(string)
		return styleCreated.Render(fmt.Sprintf("%s plan created", glyphCreated)) + " " + goal
	case schema.EventStepApproved:
		return styleApproved.Render(fmt.Sprintf("%s approved", glyphApproved)) + step
	case schema.EventStepStarted:
		toolName, _ := evt.Data["tool"].(string)
		return styleStarted.Render(fmt.Sprintf("%s started", glyphStarted)) + step + " " + toolName
	case schema.EventStepOutput:
		return styleOutput.Render(fmt.Sprintf("%s output", glyphOutput)) + step + " " + firstLine(evt.Data["stdout"])
	case schema.EventStepError:
		errText, _ := evt.Data["error"].(string)
		return styleError.Render(fmt.Sprintf("%s error", glyphError)) + step + " " + errText
	case schema.EventStepFinished:
		return styleFinished.Render(fmt.Sprintf("%s finished", glyphFinished)) + step
	case schema.EventExecutionFinished:
		return styleDone.Render(fmt.Sprintf("%s execution finished", glyphDone))
	default:
		return fmt.Sprintf("%s %s", string(evt.Type), evt.StepID)
	}
}

// firstLine truncates multi-line tool output to its first line for the
// timeline; full output stays available through replay.
func firstLine(v any) string {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " …"
	}
	return util.TruncateString(s, 120)
}
