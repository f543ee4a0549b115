package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"hgb/internal/buildpipeline"
)

// stageVerbs name what a file is going through while a stage runs.
var stageVerbs = map[buildpipeline.Stage]string{
	buildpipeline.StageConfigure: "reading",
	buildpipeline.StageExecute:   "working",
	buildpipeline.StageFinalize:  "writing",
}

const (
	labelQueued = "queued"
	labelDone   = "done"
	labelError  = "error"
	statusWidth = 8
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	queuedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// row tracks one input file. stage indexes buildpipeline.Stages and is -1
// until the first stage starts.
type row struct {
	path   string
	stage  int
	status buildpipeline.Status
}

func (r row) label() string {
	switch {
	case r.status == buildpipeline.StatusError:
		return labelError
	case r.stage < 0:
		return labelQueued
	case r.status == buildpipeline.StatusDone && r.stage == len(buildpipeline.Stages)-1:
		return labelDone
	default:
		return stageVerbs[buildpipeline.Stages[r.stage]]
	}
}

// fraction is the share of stages the file has completed; a running stage
// counts as half done.
func (r row) fraction() float64 {
	if r.status == buildpipeline.StatusError {
		return 1
	}
	if r.stage < 0 {
		return 0
	}
	done := float64(r.stage)
	switch r.status {
	case buildpipeline.StatusDone:
		done++
	case buildpipeline.StatusWorking:
		done += 0.5
	}
	return done / float64(len(buildpipeline.Stages))
}

type progressModel struct {
	tool    string
	events  <-chan buildpipeline.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []row
	byPath  map[string]int
	overall row
	width   int
	closed  bool
}

type eventMsg buildpipeline.Event
type closedMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders the stages of one
// toolchain invocation for the given input files.
func NewProgressModel(tool string, files []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = activeStyle

	m := &progressModel{
		tool:    tool,
		events:  events,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		rows:    make([]row, 0, len(files)),
		byPath:  make(map[string]int, len(files)),
		overall: row{stage: -1},
		width:   80,
	}
	m.bar.Width = m.width - 4
	for _, file := range files {
		m.byPath[file] = len(m.rows)
		m.rows = append(m.rows, row{path: file, stage: -1, status: buildpipeline.StatusQueued})
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(buildpipeline.Event(msg)), m.next())
	case closedMsg:
		m.closed = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.closed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// apply folds ev into the invocation row or the row of its file.
func (m *progressModel) apply(ev buildpipeline.Event) tea.Cmd {
	target := &m.overall
	if ev.File != "" {
		idx, ok := m.byPath[ev.File]
		if !ok {
			return nil
		}
		target = &m.rows[idx]
	}
	if ev.Status != buildpipeline.StatusQueued {
		if i := slices.Index(buildpipeline.Stages, ev.Stage); i >= 0 {
			target.stage = i
		}
	}
	target.status = ev.Status

	if ev.File == "" || len(m.rows) == 0 {
		return nil
	}
	var total float64
	for _, r := range m.rows {
		total += r.fraction()
	}
	return m.bar.SetPercent(total / float64(len(m.rows)))
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	header := m.tool
	if m.overall.stage >= 0 {
		header = fmt.Sprintf("%s (%s)", header, m.overall.label())
	}
	if m.closed {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(m.stageStrip())
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-4, 20)
	for _, r := range m.rows {
		label := r.label()
		fmt.Fprintf(&b, "  %s %s\n", styleFor(label).Render(fmt.Sprintf("%*s", statusWidth, label)), truncate(r.path, nameWidth))
	}

	b.WriteString("\n")
	if m.closed {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

// stageStrip renders "reading > working > writing" with finished stages in
// green, the running one highlighted and the rest dimmed.
func (m *progressModel) stageStrip() string {
	parts := make([]string, len(buildpipeline.Stages))
	for i, stage := range buildpipeline.Stages {
		style := pendingStyle
		switch {
		case i < m.overall.stage:
			style = doneStyle
		case i == m.overall.stage:
			switch m.overall.status {
			case buildpipeline.StatusDone:
				style = doneStyle
			case buildpipeline.StatusError:
				style = failedStyle
			default:
				style = activeStyle
			}
		}
		parts[i] = style.Render(stageVerbs[stage])
	}
	return "  " + strings.Join(parts, " > ")
}

func styleFor(label string) lipgloss.Style {
	switch label {
	case labelDone:
		return doneStyle
	case labelError:
		return failedStyle
	case labelQueued:
		return queuedStyle
	default:
		return activeStyle
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
