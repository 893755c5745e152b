package ui

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type FormState int

const (
	StateSelecting FormState = iota
	StateFilling
)

type cmdItem struct {
	title, desc string
	index       int
}

func (i cmdItem) Title() string       { return i.title }
func (i cmdItem) Description() string { return i.desc }
func (i cmdItem) FilterValue() string { return i.title }

type CommandSentMsg struct {
	CommandID string
}

type FieldDef struct {
	Name        string
	Placeholder string
	Numeric     bool
	Default     string
}

type CommandDef struct {
	Name        string
	Description string
	Fields      []FieldDef
}

var availableCommands = []CommandDef{
	{
		Name:        "show_message",
		Description: "Display a message on the device",
		Fields: []FieldDef{
			{Name: "title", Placeholder: "Title (default: Tracker Alert)"},
			{Name: "body", Placeholder: "Message body"},
		},
	},
	{
		Name:        "play_chime",
		Description: "Play an audible chime",
		Fields: []FieldDef{
			{Name: "repeat", Placeholder: "Repeat count (default: 3)", Numeric: true, Default: "3"},
		},
	},
	{
		Name:        "increase_heartbeat",
		Description: "Change the telemetry interval",
		Fields: []FieldDef{
			{Name: "seconds", Placeholder: "Interval seconds (default: 30)", Numeric: true, Default: "30"},
		},
	},
	{
		Name:        "lock_screen",
		Description: "Lock the device screen",
	},
	{
		Name:        "ping",
		Description: "Round-trip liveness check",
	},
}

type CommandFormModel struct {
	Client   *Client
	DeviceID string

	State       FormState
	List        list.Model
	Inputs      []textinput.Model
	TTLInput    textinput.Model
	Focused     int
	SelectedCmd int
	Err         error
}

func NewCommandFormModel(client *Client, deviceID string, width, height int) CommandFormModel {
	items := make([]list.Item, 0, len(availableCommands))
	for i, cmd := range availableCommands {
		items = append(items, cmdItem{title: cmd.Name, desc: cmd.Description, index: i})
	}

	l := list.New(items, list.NewDefaultDelegate(), max(width-4, 40), max(height-6, 10))
	l.Title = "Select Command"
	l.SetShowHelp(false)

	return CommandFormModel{
		Client:   client,
		DeviceID: deviceID,
		State:    StateSelecting,
		List:     l,
	}
}

func (m *CommandFormModel) initInputs() {
	def := availableCommands[m.SelectedCmd]
	m.Inputs = make([]textinput.Model, len(def.Fields))
	for i, field := range def.Fields {
		ti := textinput.New()
		ti.Prompt = field.Name + ": "
		ti.Placeholder = field.Placeholder
		ti.CharLimit = 256
		if field.Default != "" {
			ti.SetValue(field.Default)
		}
		if i == 0 {
			ti.Focus()
		}
		m.Inputs[i] = ti
	}
	m.TTLInput = textinput.New()
	m.TTLInput.Prompt = "ttl_seconds: "
	m.TTLInput.Placeholder = "Expiry in seconds (empty: never)"
	if len(m.Inputs) == 0 {
		m.TTLInput.Focus()
	}
	m.Focused = 0
}

func (m CommandFormModel) Init() tea.Cmd {
	return nil
}

func (m CommandFormModel) Update(msg tea.Msg) (CommandFormModel, tea.Cmd) {
	switch m.State {
	case StateSelecting:
		return m.updateSelecting(msg)
	default:
		return m.updateFilling(msg)
	}
}

func (m CommandFormModel) updateSelecting(msg tea.Msg) (CommandFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			id := m.DeviceID
			return m, func() tea.Msg { return DeviceSelectedMsg{DeviceID: id} }
		case "enter":
			if item, ok := m.List.SelectedItem().(cmdItem); ok {
				m.SelectedCmd = item.index
				m.State = StateFilling
				m.initInputs()
				return m, textinput.Blink
			}
		}
	case errMsg:
		m.Err = msg
	}
	var cmd tea.Cmd
	m.List, cmd = m.List.Update(msg)
	return m, cmd
}

// fieldCount includes the trailing TTL input.
func (m CommandFormModel) fieldCount() int { return len(m.Inputs) + 1 }

func (m *CommandFormModel) focusField(idx int) {
	for i := range m.Inputs {
		m.Inputs[i].Blur()
	}
	m.TTLInput.Blur()
	m.Focused = idx
	if idx < len(m.Inputs) {
		m.Inputs[idx].Focus()
	} else {
		m.TTLInput.Focus()
	}
}

func (m CommandFormModel) updateFilling(msg tea.Msg) (CommandFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			m.State = StateSelecting
			m.Err = nil
			return m, nil
		case tea.KeyEnter:
			if m.Focused == m.fieldCount()-1 {
				return m, m.submit
			}
			m.focusField(m.Focused + 1)
			return m, nil
		case tea.KeyTab, tea.KeyDown:
			m.focusField((m.Focused + 1) % m.fieldCount())
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			idx := m.Focused - 1
			if idx < 0 {
				idx = m.fieldCount() - 1
			}
			m.focusField(idx)
			return m, nil
		}
	case errMsg:
		m.Err = msg
		return m, nil
	}

	cmds := make([]tea.Cmd, 0, m.fieldCount())
	for i := range m.Inputs {
		var cmd tea.Cmd
		m.Inputs[i], cmd = m.Inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.TTLInput, cmd = m.TTLInput.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m CommandFormModel) submit() tea.Msg {
	def := availableCommands[m.SelectedCmd]
	payload := map[string]any{}
	for i, field := range def.Fields {
		val := strings.TrimSpace(m.Inputs[i].Value())
		if val == "" {
			continue
		}
		if field.Numeric {
			n, err := strconv.Atoi(val)
			if err != nil {
				return errMsg(errInvalidNumber(field.Name))
			}
			payload[field.Name] = n
		} else {
			payload[field.Name] = val
		}
	}

	ttl := 0
	if val := strings.TrimSpace(m.TTLInput.Value()); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return errMsg(errInvalidNumber("ttl_seconds"))
		}
		ttl = n
	}

	var raw json.RawMessage
	if len(payload) > 0 {
		raw, _ = json.Marshal(payload)
	}
	cmd, err := m.Client.SendCommand(m.DeviceID, def.Name, raw, ttl)
	if err != nil {
		return errMsg(err)
	}
	return CommandSentMsg{CommandID: cmd.ID}
}

type errInvalidNumber string

func (e errInvalidNumber) Error() string { return string(e) + " must be a number" }

func (m CommandFormModel) View() string {
	var b strings.Builder
	switch m.State {
	case StateSelecting:
		b.WriteString(m.List.View())
		b.WriteString("\n" + blurredStyle.Render("Enter: select, esc: back"))
	default:
		def := availableCommands[m.SelectedCmd]
		b.WriteString(titleStyle.Render("Send: "+def.Name) + "\n\n")
		for i := range m.Inputs {
			b.WriteString(m.Inputs[i].View() + "\n")
		}
		b.WriteString(m.TTLInput.View() + "\n\n")
		b.WriteString(blurredStyle.Render("Tab: next field, Enter on last field: send, esc: back"))
	}
	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
