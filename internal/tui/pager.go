// SPDX-License-Identifier: EPL-2.0

package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)
	pagerFooterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// pagerModel shows text in a scrollable viewport until dismissed.
type pagerModel struct {
	viewport viewport.Model
	title    string
	done     bool
}

func newPagerModel(title, content string, width, height int) *pagerModel {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	vp := viewport.New(width, max(height-2, 1))
	vp.SetContent(content)
	// Run logs are read from the end.
	vp.GotoBottom()
	return &pagerModel{viewport: vp, title: title}
}

func (m *pagerModel) Init() tea.Cmd { return nil }

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-2, 1)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *pagerModel) View() string {
	if m.done {
		return ""
	}
	footer := fmt.Sprintf("%3.f%% • ↑/↓ pgup/pgdn: scroll • q: close", m.viewport.ScrollPercent()*100)
	return pagerTitleStyle.Render(m.title) + "\n" +
		m.viewport.View() + "\n" +
		pagerFooterStyle.Render(footer)
}

// Page shows content full screen, scrolled to the end, until the user
// closes it.
func Page(title, content string, cfg Config) error {
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	}
	_, err := tea.NewProgram(newPagerModel(title, content, cfg.Width, 0), opts...).Run()
	return err
}
