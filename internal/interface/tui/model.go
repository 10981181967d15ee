// Package tui is a live dashboard: today's sessions in a table, outbox
// backlog and capture stats below it, refreshed on a timer.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/smerrill/worktrace/internal/core/db"
	"github.com/smerrill/worktrace/internal/core/models"
	"github.com/smerrill/worktrace/internal/core/session"
)

const refreshEvery = 5 * time.Second

type refreshMsg struct {
	sessions []models.WorkSession
	stats    db.Stats
	depth    int
	lastSeen time.Time
	err      error
}

type tickMsg time.Time

type Model struct {
	db     *db.DB
	table  table.Model
	width  int
	height int

	sessions []models.WorkSession
	stats    db.Stats
	depth    int
	lastSeen time.Time
	err      error
}

func NewModel(database *db.DB) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Start", Width: 7},
			{Title: "End", Width: 7},
			{Title: "Client", Width: 12},
			{Title: "Minutes", Width: 8},
			{Title: "Captures", Width: 9},
			{Title: "Description", Width: 40},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	t.SetStyles(tableStyles())

	return Model{db: database, table: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(refresh(m.db), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func refresh(database *db.DB) tea.Cmd {
	return func() tea.Msg {
		events, err := database.EventsForDate(time.Now())
		if err != nil {
			return refreshMsg{err: err}
		}
		stats, err := database.GetStats()
		if err != nil {
			return refreshMsg{err: err}
		}
		depth, err := database.QueueDepth()
		if err != nil {
			return refreshMsg{err: err}
		}
		lastSeen, err := database.LastEventTime()
		if err != nil {
			return refreshMsg{err: err}
		}
		return refreshMsg{
			sessions: session.Aggregate(events, session.DefaultGap),
			stats:    *stats,
			depth:    depth,
			lastSeen: lastSeen,
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, refresh(m.db)
		}

	case tickMsg:
		return m, tea.Batch(refresh(m.db), tick())

	case refreshMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.sessions = msg.sessions
		m.stats = msg.stats
		m.depth = msg.depth
		m.lastSeen = msg.lastSeen
		m.table.SetRows(sessionRows(msg.sessions))
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func sessionRows(sessions []models.WorkSession) []table.Row {
	rows := make([]table.Row, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, table.Row{
			s.StartTime.Local().Format("15:04"),
			s.EndTime.Local().Format("15:04"),
			s.ClientCode,
			fmt.Sprintf("%d", s.DurationMins),
			fmt.Sprintf("%d", s.CaptureCount),
			s.Description,
		})
	}
	return rows
}

func (m Model) View() string {
	header := titleStyle.Render("worktrace") + "  " +
		metaStyle.Render(time.Now().Format("Monday, Jan 2"))

	var activity string
	if m.lastSeen.IsZero() {
		activity = "no captures yet"
	} else {
		activity = "last capture " + humanize.Time(m.lastSeen)
	}

	total := 0
	for _, s := range m.sessions {
		total += s.DurationMins
	}

	footer := metaStyle.Render(fmt.Sprintf(
		"%s · %dm recorded · %d unsynced · %d queued · r refresh · q quit",
		activity, total, m.stats.UnsyncedEvents, m.depth))

	if m.err != nil {
		footer = errStyle.Render("error: "+m.err.Error()) + "\n" + footer
	}

	return header + "\n\n" + m.table.View() + "\n\n" + footer + "\n"
}
