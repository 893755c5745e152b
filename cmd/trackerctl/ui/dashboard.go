package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type DashboardModel struct {
	Client  *Client
	Table   table.Model
	Devices []Device
	Err     error
}

type devicesLoadedMsg []Device

type DeviceSelectedMsg struct {
	DeviceID string
}

func NewDashboardModel(client *Client, width, height int) DashboardModel {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Platform", Width: 10},
		{Title: "Status", Width: 8},
		{Title: "Last Seen", Width: 20},
		{Title: "IP", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(height-10, 5)),
	)

	sStyle := table.DefaultStyles()
	sStyle.Header = sStyle.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sStyle.Selected = sStyle.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sStyle)

	return DashboardModel{Client: client, Table: t}
}

func (m DashboardModel) Init() tea.Cmd {
	return m.loadDevices
}

func (m DashboardModel) loadDevices() tea.Msg {
	devices, err := m.Client.ListDevices()
	if err != nil {
		return errMsg(err)
	}
	return devicesLoadedMsg(devices)
}

func formatSeen(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, m.loadDevices
		case "enter":
			if m.Table.Cursor() >= 0 && m.Table.Cursor() < len(m.Devices) {
				id := m.Devices[m.Table.Cursor()].ID
				return m, func() tea.Msg { return DeviceSelectedMsg{DeviceID: id} }
			}
		case "q":
			return m, tea.Quit
		}

	case devicesLoadedMsg:
		m.Err = nil
		m.Devices = msg
		rows := make([]table.Row, 0, len(msg))
		for _, d := range msg {
			status := "ok"
			if d.Lost {
				status = "LOST"
			}
			rows = append(rows, table.Row{d.DisplayName, d.Platform, status, formatSeen(d.LastSeenAt), d.LastIP})
		}
		m.Table.SetRows(rows)

	case errMsg:
		m.Err = msg
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Devices") + "\n\n")
	b.WriteString(m.Table.View())
	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("Enter: open, r: refresh, q: quit"))
	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
