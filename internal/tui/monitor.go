// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"

	"scope/internal/analysis"
	"scope/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	timeScaleStep    = 5 // ms per +/- press
	spectrumRows     = 8
	defaultWidth     = 80
	minPlotWidth     = 16
	meterPlaceholder = "─"
)

var (
	levels = []rune(" ▁▂▃▄▅▆▇█")

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	meterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F2C94C"))

	plotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#56CCF2"))
)

// Controller is the part of the engine the monitor drives.
type Controller interface {
	StartCapture(index int) bool
	StopCapture()
	IsCapturing() bool
	DeviceIndex() int
	SetChannelMode(mode audio.ChannelMode)
	ChannelMode() audio.ChannelMode
	SetTimeScaleMs(ms int)
	TimeScaleMs() int
}

type statusMsg string

type frameMsg struct {
	frame *audio.Frame
}

// captureDoneMsg reports that a start or stop command finished.
type captureDoneMsg struct {
	ok bool
}

// MonitorModel shows the live waveform, envelope and spectrum.
type MonitorModel struct {
	ctrl      Controller
	status    string
	failed    bool
	frame     *audio.Frame
	width     int
	busy      bool // A start/stop command is in flight.
	deviceIdx int
}

// NewMonitorModel returns a monitor driving ctrl.
func NewMonitorModel(ctrl Controller) MonitorModel {
	return MonitorModel{
		ctrl:      ctrl,
		status:    "Idle",
		width:     defaultWidth,
		deviceIdx: ctrl.DeviceIndex(),
	}
}

func (m MonitorModel) Init() tea.Cmd {
	return nil
}

// startCmd and stopCmd run off the event loop: stopping waits for the
// poll goroutine, which may itself be waiting to deliver a message.
func (m MonitorModel) startCmd() tea.Cmd {
	ctrl, idx := m.ctrl, m.deviceIdx
	return func() tea.Msg {
		return captureDoneMsg{ok: ctrl.StartCapture(idx)}
	}
}

func (m MonitorModel) stopCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.StopCapture()
		return captureDoneMsg{ok: true}
	}
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, minPlotWidth)

	case statusMsg:
		m.status = string(msg)
		m.failed = strings.Contains(m.status, "failed") || strings.HasPrefix(m.status, "No ")

	case frameMsg:
		m.frame = msg.frame

	case captureDoneMsg:
		m.busy = false

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys(" "))):
			if m.busy {
				break
			}
			m.busy = true
			if m.ctrl.IsCapturing() {
				return m, m.stopCmd()
			}
			return m, m.startCmd()

		case key.Matches(msg, key.NewBinding(key.WithKeys("c"))):
			m.ctrl.SetChannelMode(m.ctrl.ChannelMode().Next())

		case key.Matches(msg, key.NewBinding(key.WithKeys("+", "="))):
			m.ctrl.SetTimeScaleMs(m.ctrl.TimeScaleMs() + timeScaleStep)

		case key.Matches(msg, key.NewBinding(key.WithKeys("-", "_"))):
			m.ctrl.SetTimeScaleMs(m.ctrl.TimeScaleMs() - timeScaleStep)
		}
	}
	return m, nil
}

func (m MonitorModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Scope"))
	sb.WriteString("\n\n")

	style := statusStyle
	if m.failed {
		style = errorStyle
	}
	timeScale := "auto"
	if ms := m.ctrl.TimeScaleMs(); ms > 0 {
		timeScale = fmt.Sprintf("%d ms", ms)
	}
	fmt.Fprintf(&sb, "%s  mode: %s  time scale: %s\n\n",
		style.Render(m.status), m.ctrl.ChannelMode(), timeScale)

	plotWidth := max(m.width-2, minPlotWidth)
	if m.frame == nil {
		sb.WriteString(strings.Repeat(meterPlaceholder, plotWidth))
		sb.WriteString("\n")
	} else {
		f := m.frame
		fmt.Fprintf(&sb, "Peak %s %.3f\n", meterStyle.Render(meter(f.Peak, plotWidth-12)), f.Peak)
		sb.WriteString(plotStyle.Render(sparkline(f.Waveform, f.Peak, plotWidth)))
		sb.WriteString("\n\n")
		sb.WriteString(plotStyle.Render(spectrumBars(f.Spectrum, plotWidth, spectrumRows)))
		sb.WriteString("\n")
		if peak, _ := analysis.NewSpectrum(f.Spectrum, f.FFTSize, float64(f.SampleRate)).PeakBin(); peak >= 0 {
			fmt.Fprintf(&sb, "%d Hz  %d-point FFT  peak %.1f Hz\n",
				f.SampleRate, f.FFTSize, analysis.BinFrequency(peak, f.FFTSize, float64(f.SampleRate)))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("space: Start/Stop • c: Channel • +/-: Time scale • q: Quit"))
	return sb.String()
}

// meter draws v in [0,1] as a bar of width cells.
func meter(v float64, width int) string {
	width = max(width, 1)
	filled := int(math.Round(math.Min(math.Max(v, 0), 1) * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// sparkline draws rectified samples scaled by peak as one row of block
// characters, keeping the largest sample per column.
func sparkline(samples []float64, peak float64, width int) string {
	if len(samples) == 0 || width <= 0 {
		return ""
	}
	if peak <= 0 {
		peak = 1
	}
	cols := min(width, len(samples))
	out := make([]rune, cols)
	for c := range cols {
		lo := c * len(samples) / cols
		hi := max((c+1)*len(samples)/cols, lo+1)
		v := 0.0
		for _, s := range samples[lo:hi] {
			v = math.Max(v, math.Abs(s))
		}
		out[c] = levels[level(v/peak, len(levels)-1)]
	}
	return string(out)
}

// spectrumBars draws bins as rows of vertical bars, normalized to the
// loudest bin.
func spectrumBars(bins []float64, width, rows int) string {
	if len(bins) == 0 || width <= 0 || rows <= 0 {
		return ""
	}
	cols := min(width, len(bins))
	heights := make([]float64, cols)
	top := 0.0
	for c := range cols {
		lo := c * len(bins) / cols
		hi := max((c+1)*len(bins)/cols, lo+1)
		for _, b := range bins[lo:hi] {
			heights[c] = math.Max(heights[c], b)
		}
		top = math.Max(top, heights[c])
	}
	if top <= 0 {
		top = 1
	}

	steps := len(levels) - 1
	lines := make([]string, rows)
	for r := range rows {
		var sb strings.Builder
		floor := float64(rows-1-r) * float64(steps)
		for _, h := range heights {
			cell := float64(level(h/top, rows*steps)) - floor
			sb.WriteRune(levels[int(math.Min(math.Max(cell, 0), float64(steps)))])
		}
		lines[r] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// level maps v in [0,1] to 0..steps.
func level(v float64, steps int) int {
	return int(math.Round(math.Min(math.Max(v, 0), 1) * float64(steps)))
}

// ProgramListener forwards engine events into a running program.
type ProgramListener struct {
	Program *tea.Program
}

func (l ProgramListener) OnStatus(status string) {
	l.Program.Send(statusMsg(status))
}

func (l ProgramListener) OnFrame(frame *audio.Frame) {
	l.Program.Send(frameMsg{frame: frame})
}

var _ audio.Listener = ProgramListener{}

// Monitor is a full-screen monitor program bound to an engine.
type Monitor struct {
	program *tea.Program
}

// NewMonitor builds the program; register Listener() on the engine before
// starting capture so no early status is lost.
func NewMonitor(ctrl Controller) *Monitor {
	return &Monitor{
		program: tea.NewProgram(NewMonitorModel(ctrl), tea.WithAltScreen()),
	}
}

// Listener returns the engine listener feeding this monitor.
func (m *Monitor) Listener() audio.Listener {
	return ProgramListener{Program: m.program}
}

// Run blocks until the user quits.
func (m *Monitor) Run() error {
	_, err := m.program.Run()
	return err
}

// Quit asks the program to exit, e.g. on a termination signal.
func (m *Monitor) Quit() {
	m.program.Quit()
}
