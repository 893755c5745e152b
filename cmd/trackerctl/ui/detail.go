package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type BackToDashboardMsg struct{}

type OpenCommandFormMsg struct {
	DeviceID string
}

type detailLoadedMsg struct {
	device   *Device
	alerts   []Alert
	commands []Command
}

type actionDoneMsg string

type DeviceDetailModel struct {
	Client   *Client
	DeviceID string

	Device   *Device
	Alerts   []Alert
	Commands []Command

	AlertTable table.Model
	Status     string
	Err        error
}

func NewDeviceDetailModel(client *Client, deviceID string, width, height int) DeviceDetailModel {
	columns := []table.Column{
		{Title: "Type", Width: 14},
		{Title: "Severity", Width: 9},
		{Title: "Created", Width: 20},
		{Title: "Resolved", Width: 9},
		{Title: "Details", Width: 40},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(height-18, 4)),
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

	return DeviceDetailModel{Client: client, DeviceID: deviceID, AlertTable: t}
}

func (m DeviceDetailModel) Init() tea.Cmd {
	return m.load
}

func (m DeviceDetailModel) load() tea.Msg {
	device, err := m.Client.GetDevice(m.DeviceID)
	if err != nil {
		return errMsg(err)
	}
	alerts, err := m.Client.ListAlerts(m.DeviceID, false)
	if err != nil {
		return errMsg(err)
	}
	commands, err := m.Client.CommandLog(m.DeviceID)
	if err != nil {
		return errMsg(err)
	}
	return detailLoadedMsg{device: device, alerts: alerts, commands: commands}
}

func (m DeviceDetailModel) Update(msg tea.Msg) (DeviceDetailModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return BackToDashboardMsg{} }
		case "r":
			return m, m.load
		case "l":
			return m, func() tea.Msg {
				if err := m.Client.MarkLost(m.DeviceID, ""); err != nil {
					return errMsg(err)
				}
				return actionDoneMsg("device marked lost, commands queued")
			}
		case "f":
			return m, func() tea.Msg {
				if err := m.Client.MarkFound(m.DeviceID); err != nil {
					return errMsg(err)
				}
				return actionDoneMsg("device marked found")
			}
		case "c":
			id := m.DeviceID
			return m, func() tea.Msg { return OpenCommandFormMsg{DeviceID: id} }
		case "x":
			cursor := m.AlertTable.Cursor()
			if cursor >= 0 && cursor < len(m.Alerts) {
				alertID := m.Alerts[cursor].ID
				return m, func() tea.Msg {
					if err := m.Client.ResolveAlert(alertID); err != nil {
						return errMsg(err)
					}
					return actionDoneMsg("alert resolved")
				}
			}
		case "q":
			return m, tea.Quit
		}

	case detailLoadedMsg:
		m.Err = nil
		m.Device = msg.device
		m.Alerts = msg.alerts
		m.Commands = msg.commands
		rows := make([]table.Row, 0, len(msg.alerts))
		for _, a := range msg.alerts {
			resolved := "no"
			if a.ResolvedAt != nil {
				resolved = "yes"
			}
			rows = append(rows, table.Row{
				a.Type, a.Severity,
				a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				resolved,
				compactJSON(a.Details),
			})
		}
		m.AlertTable.SetRows(rows)

	case actionDoneMsg:
		m.Status = string(msg)
		return m, m.load

	case errMsg:
		m.Err = msg
	}

	m.AlertTable, cmd = m.AlertTable.Update(msg)
	return m, cmd
}

func compactJSON(s string) string {
	var v any
	if json.Unmarshal([]byte(s), &v) != nil {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func (m DeviceDetailModel) View() string {
	var b strings.Builder
	if m.Device == nil {
		b.WriteString(titleStyle.Render("Device") + "\n\nloading...")
		if m.Err != nil {
			b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
		}
		return b.String()
	}

	title := m.Device.DisplayName
	if m.Device.Lost {
		title += " " + lostBadgeStyle.Render("LOST")
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	b.WriteString(fmt.Sprintf("Platform:  %s (%s)\n", m.Device.Platform, m.Device.Hostname))
	b.WriteString(fmt.Sprintf("Last seen: %s\n", formatSeen(m.Device.LastSeenAt)))
	b.WriteString(fmt.Sprintf("Last IP:   %s", m.Device.LastIP))
	if m.Device.LastASN != 0 {
		b.WriteString(fmt.Sprintf("  (AS%d)", m.Device.LastASN))
	}
	b.WriteString("\n")
	if m.Device.LastLocation != "" {
		b.WriteString(fmt.Sprintf("Location:  %s\n", compactJSON(m.Device.LastLocation)))
	}

	b.WriteString("\n" + titleStyle.Render("Alerts") + "\n")
	b.WriteString(m.AlertTable.View() + "\n")

	if len(m.Commands) > 0 {
		b.WriteString("\n" + titleStyle.Render("Recent Commands") + "\n")
		shown := m.Commands
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, c := range shown {
			b.WriteString(fmt.Sprintf("  %s  %-20s %s\n", c.CreatedAt.Local().Format("15:04:05"), c.Type, c.Status))
		}
	}

	b.WriteString("\n")
	b.WriteString(blurredStyle.Render("l: mark lost, f: mark found, c: send command, x: resolve alert, r: refresh, esc: back"))
	if m.Status != "" {
		b.WriteString("\n" + statusMessageStyle(m.Status))
	}
	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
