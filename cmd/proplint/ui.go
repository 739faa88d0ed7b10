// # cmd/proplint/ui.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"proplint/internal/app"
	"proplint/internal/report"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	findingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	data       report.Data
	lastUpdate time.Time
	rescan     func()
}

type updateMsg struct {
	data report.Data
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !m.list.SettingFilter() {
				return m, tea.Quit
			}
		case "r":
			if m.rescan != nil && !m.list.SettingFilter() {
				rescan := m.rescan
				return m, func() tea.Msg {
					rescan()
					return nil
				}
			}
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.data = msg.data
		m.lastUpdate = time.Now()

		items := []list.Item{}
		for _, rep := range m.data.Files {
			for _, d := range rep.Diagnostics {
				items = append(items, item{
					title: d.Property,
					desc:  fmt.Sprintf("%s:%d:%d %s", rep.File, d.Line, d.Column, d.Message),
				})
			}
		}
		for _, f := range m.data.Failures {
			items = append(items, item{
				title: "Analysis Failure",
				desc:  fmt.Sprintf("%s: %s", f.Path, f.Err),
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d suppressed",
		m.lastUpdate.Format("15:04:05"), m.data.Scanned, m.data.Suppressed))

	var summary string
	findings := m.data.FindingCount()
	failures := len(m.data.Failures)
	if findings == 0 && failures == 0 {
		summary = successStyle.Render("✅ All properties defined")
	} else {
		summary = fmt.Sprintf("⚠️  %s | %s",
			findingStyle.Render(fmt.Sprintf("%d Undefined", findings)),
			failureStyle.Render(fmt.Sprintf("%d Failures", failures)))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Undefined Property Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel(rescan func()) model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Undefined Properties"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
		rescan:     rescan,
	}
}

func runUI(ctx context.Context, application *app.App, initial *app.Result) error {
	m := initialModel(func() {
		if _, err := application.RunScan(ctx); err != nil {
			slog.Error("rescan failed", "error", err)
		}
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Watch updates and manual rescans both land here.
	application.SetUpdateHandler(func(u app.Update) {
		p.Send(updateMsg{data: u.Data})
	})

	// Trigger initial UI update
	go func() {
		p.Send(updateMsg{data: initial.Data})
	}()

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
