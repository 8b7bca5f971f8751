// Package tui is the interactive browser for a finished analysis: ranked
// unified anomalies, per-anomaly detail, source outcomes and margins.
package tui

import (
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type ViewState int

const (
	ViewStateList ViewState = iota
	ViewStateDetail
	ViewStateSources
	ViewStateMargins
)

type Model struct {
	Result *model.AnalysisResult

	gauge    progress.Model
	detail   viewport.Model
	state    ViewState
	quitting bool
	width    int
	height   int

	cursor int
}

// NewModel builds a browser over res.
func NewModel(res *model.AnalysisResult) Model {
	if res == nil {
		res = &model.AnalysisResult{}
	}
	return Model{
		Result: res,
		gauge:  progress.New(progress.WithGradient("#FF0055", "#00FF99"), progress.WithoutPercentage()),
		detail: viewport.New(80, 20),
		state:  ViewStateList,
		width:  100,
		height: 30,
	}
}

// Run blocks until the user quits.
func Run(res *model.AnalysisResult) error {
	_, err := tea.NewProgram(NewModel(res), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			m.state = nextView(m.state)
			return m, nil
		case "esc", "b":
			m.state = ViewStateList
			return m, nil
		case "enter", " ":
			if m.state == ViewStateDetail {
				m.state = ViewStateList
				return m, nil
			}
			if m.state == ViewStateList && len(m.Result.Unified) > 0 {
				m.state = ViewStateDetail
				m.detail.SetContent(m.detailContent())
				m.detail.GotoTop()
			}
			return m, nil
		}

		if m.state == ViewStateDetail {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.Result.Unified)-1 {
				m.cursor++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.gauge.Width = max(10, msg.Width/4)
		m.detail.Width = max(20, msg.Width-6)
		m.detail.Height = max(5, msg.Height-8)
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var body string
	switch m.state {
	case ViewStateDetail:
		body = m.viewDetails()
	case ViewStateSources:
		body = m.viewSources()
	case ViewStateMargins:
		body = m.viewMargins()
	default:
		body = m.viewList()
	}
	help := dimStyle.Render("  ↑/↓ move • enter detail • tab switch view • esc back • q quit")
	return m.viewHUD() + "\n" + body + "\n" + help
}

func nextView(s ViewState) ViewState {
	switch s {
	case ViewStateList:
		return ViewStateSources
	case ViewStateSources:
		return ViewStateMargins
	}
	return ViewStateList
}
