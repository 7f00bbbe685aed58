// Package tui renders the live message board in the terminal.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/RpGmAx/ronin-mission-5/internal/contract"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

const refreshInterval = 2 * time.Second

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
	ownerMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// Fetch loads the current board contents.
type Fetch func(ctx context.Context) ([]contract.Message, error)

type refreshMsg struct {
	msgs []contract.Message
	err  error
}

type tickMsg struct{}

// Model is the board viewer: a table of current messages refreshed on
// an interval and on demand.
type Model struct {
	ctx   context.Context
	fetch Fetch
	owner identity.Key
	table table.Model
	err   error
}

// New creates a board viewer model.
func New(ctx context.Context, fetch Fetch, owner identity.Key) Model {
	columns := []table.Column{
		{Title: "Sender", Width: 20},
		{Title: "Message", Width: 60},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(16),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return Model{ctx: ctx, fetch: fetch, owner: owner, table: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), scheduleTick())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		msgs, err := m.fetch(m.ctx)
		if errors.Is(err, contract.ErrNoMessageYet) {
			return refreshMsg{}
		}
		return refreshMsg{msgs: msgs, err: err}
	}
}

func scheduleTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.load()
		}
	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 5)
		if msg.Width > 28 {
			m.table.SetColumns([]table.Column{
				{Title: "Sender", Width: 20},
				{Title: "Message", Width: msg.Width - 26},
			})
		}
	case tickMsg:
		return m, tea.Batch(m.load(), scheduleTick())
	case refreshMsg:
		m.err = msg.err
		if msg.err == nil {
			rows := make([]table.Row, 0, len(msg.msgs))
			for _, entry := range msg.msgs {
				sender := identity.Short(entry.Sender)
				if identity.Equal(entry.Sender, m.owner) {
					sender = ownerMark.Render(sender + " *")
				}
				rows = append(rows, table.Row{sender, entry.Message})
			}
			m.table.SetRows(rows)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	out := titleStyle.Render("ronin board") + "\n"
	if m.err != nil {
		out += errStyle.Render("error: "+m.err.Error()) + "\n"
	}
	out += m.table.View() + "\n"
	out += helpStyle.Render("r: refresh | q: quit | * owner")
	return out
}

// Run starts the program and blocks until quit.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
