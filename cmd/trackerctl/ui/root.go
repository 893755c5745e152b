package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type state int

const (
	stateLogin state = iota
	stateDashboard
	stateDeviceDetail
	stateCommandForm
)

type RootModel struct {
	State     state
	Client    *Client
	Login     LoginModel
	Dashboard DashboardModel
	Detail    DeviceDetailModel
	Form      CommandFormModel
	Quitting  bool
	width     int
	height    int
}

func NewRootModel(serverURL string) RootModel {
	client := NewClient(serverURL)
	return RootModel{
		State:  stateLogin,
		Client: client,
		Login:  NewLoginModel(client),
	}
}

func (m RootModel) Init() tea.Cmd {
	return m.Login.Init()
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.Dashboard.Table.SetHeight(max(msg.Height-10, 5))
		m.Detail.AlertTable.SetHeight(max(msg.Height-18, 4))

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Quitting = true
			return m, tea.Quit
		}
	}

	switch m.State {
	case stateLogin:
		if _, ok := msg.(loginDoneMsg); ok {
			m.State = stateDashboard
			m.Dashboard = NewDashboardModel(m.Client, m.width, m.height)
			return m, m.Dashboard.Init()
		}
		newLogin, cmd := m.Login.Update(msg)
		m.Login = newLogin
		cmds = append(cmds, cmd)

	case stateDashboard:
		if sel, ok := msg.(DeviceSelectedMsg); ok {
			m.State = stateDeviceDetail
			m.Detail = NewDeviceDetailModel(m.Client, sel.DeviceID, m.width, m.height)
			return m, m.Detail.Init()
		}
		newDash, cmd := m.Dashboard.Update(msg)
		m.Dashboard = newDash
		cmds = append(cmds, cmd)

	case stateDeviceDetail:
		switch msg := msg.(type) {
		case BackToDashboardMsg:
			m.State = stateDashboard
			return m, m.Dashboard.Init()
		case OpenCommandFormMsg:
			m.State = stateCommandForm
			m.Form = NewCommandFormModel(m.Client, msg.DeviceID, m.width, m.height)
			return m, m.Form.Init()
		}
		newDetail, cmd := m.Detail.Update(msg)
		m.Detail = newDetail
		cmds = append(cmds, cmd)

	case stateCommandForm:
		switch msg := msg.(type) {
		case DeviceSelectedMsg:
			m.State = stateDeviceDetail
			m.Detail = NewDeviceDetailModel(m.Client, msg.DeviceID, m.width, m.height)
			return m, m.Detail.Init()
		case CommandSentMsg:
			m.State = stateDeviceDetail
			m.Detail = NewDeviceDetailModel(m.Client, m.Form.DeviceID, m.width, m.height)
			m.Detail.Status = "command queued: " + msg.CommandID
			return m, m.Detail.Init()
		}
		newForm, cmd := m.Form.Update(msg)
		m.Form = newForm
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) View() string {
	if m.Quitting {
		return "Bye!\n"
	}
	switch m.State {
	case stateLogin:
		return m.Login.View()
	case stateDashboard:
		return m.Dashboard.View()
	case stateDeviceDetail:
		return m.Detail.View()
	case stateCommandForm:
		return m.Form.View()
	}
	return "Unknown state"
}
