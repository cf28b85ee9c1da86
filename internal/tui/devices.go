package tui

import (
	"fmt"
	"strings"

	"scope/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Selection is the outcome of the device picker.
type Selection struct {
	DeviceIndex int
	Device      audio.DeviceDescriptor
	Mode        audio.ChannelMode
	Confirmed   bool // False when the user quit without choosing.
}

// DeviceListModel represents the Bubble Tea model for picking a capture
// device and channel mode.
type DeviceListModel struct {
	listDevices   func() ([]audio.DeviceDescriptor, error)
	devices       []audio.DeviceDescriptor
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	modes     []audio.ChannelMode
	modeIndex int

	selection Selection
}

type devicesMsg struct {
	devices []audio.DeviceDescriptor
}

type errMsg struct {
	err error
}

// Init initializes the Bubble Tea model
func (m DeviceListModel) Init() tea.Cmd {
	return m.fetchDevices
}

// fetchDevices gets the available capture devices
func (m DeviceListModel) fetchDevices() tea.Msg {
	devices, err := m.listDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
			m.refresh()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		m.selectedIndex = min(m.selectedIndex, max(len(m.devices)-1, 0))
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("r"))):
				return m, m.fetchDevices

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					m.activeScreen = ConfigScreen
				}
			}
		} else if m.activeScreen == ConfigScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.activeScreen = ListScreen

			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.modeIndex > 0 {
					m.modeIndex--
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.modeIndex < len(m.modes)-1 {
					m.modeIndex++
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				m.selection = Selection{
					DeviceIndex: m.selectedIndex,
					Device:      m.devices[m.selectedIndex],
					Mode:        m.modes[m.modeIndex],
					Confirmed:   true,
				}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
		return
	}
	m.viewport.SetContent(m.renderDevices())
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Capture Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • r: Refresh • q: Quit")
	} else {
		title = titleStyle.Render("Capture Configuration")
		help = infoStyle.Render("↑/↓: Change Value • Enter: Start • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list
func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No capture devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		line := fmt.Sprintf("[%d] %s\n", i, device.Name)
		if device.Identity == nil {
			line += "    System default\n"
		}
		if i == m.selectedIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderDeviceConfig formats the channel mode choice for the selected device
func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Configure Device: %s\n\n", device.Name)
	sb.WriteString("Channel Mode:\n")

	for i, mode := range m.modes {
		marker := " "
		if i == m.modeIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %s\n", marker, mode)
		if i == m.modeIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	return sb.String()
}

// Selection returns what the user picked.
func (m DeviceListModel) Selection() Selection {
	return m.selection
}

// NewDeviceListModel creates a picker listing devices from listDevices,
// with mode preselected.
func NewDeviceListModel(listDevices func() ([]audio.DeviceDescriptor, error), mode audio.ChannelMode) DeviceListModel {
	modes := []audio.ChannelMode{audio.ChannelStereo, audio.ChannelLeft, audio.ChannelRight}
	modeIndex := 0
	for i, m := range modes {
		if m == mode {
			modeIndex = i
		}
	}
	return DeviceListModel{
		listDevices:  listDevices,
		activeScreen: ListScreen,
		modes:        modes,
		modeIndex:    modeIndex,
	}
}

// PickDevice runs the picker full screen and returns the selection.
func PickDevice(listDevices func() ([]audio.DeviceDescriptor, error), mode audio.ChannelMode) (Selection, error) {
	p := tea.NewProgram(
		NewDeviceListModel(listDevices, mode),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return Selection{}, err
	}
	return final.(DeviceListModel).Selection(), nil
}
