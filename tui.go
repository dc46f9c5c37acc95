package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"handy/action"
	"handy/hotkey"
)

// TUI message types
type trayMsg struct{ State action.TrayState }
type overlayMsg struct {
	Overlay action.Overlay
	Visible bool
}
type overlayErrorMsg struct{ Text string }
type transcriptionMsg struct {
	Text string
	Err  error
}
type tickMsg time.Time

const errorLinger = 4 * time.Second

type tuiModel struct {
	state         action.TrayState
	overlay       string
	frame         int
	width, height int
	since         time.Time
	modeLine      string
	deviceLine    string
	errText       string
	errAt         time.Time
	lastText      string
	lastErr       error
	count         int
}

var (
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func newTUIModel(modeLine, deviceLine string) tuiModel {
	return tuiModel{state: action.TrayIdle, modeLine: modeLine, deviceLine: deviceLine}
}

func NewTUIProgram(modeLine, deviceLine string) *tea.Program {
	return tea.NewProgram(newTUIModel(modeLine, deviceLine), tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		if m.errText != "" && time.Time(msg).Sub(m.errAt) > errorLinger {
			m.errText = ""
		}
		return m, tuiTick()

	case trayMsg:
		if msg.State != m.state {
			m.since = time.Now()
		}
		m.state = msg.State

	case overlayMsg:
		if msg.Visible {
			m.overlay = msg.Overlay.String()
		} else {
			m.overlay = ""
		}

	case overlayErrorMsg:
		m.errText = msg.Text
		m.errAt = time.Now()

	case transcriptionMsg:
		m.count++
		m.lastText = msg.Text
		m.lastErr = msg.Err

	}
	return m, nil
}

func (m tuiModel) statusLine() string {
	elapsed := time.Since(m.since).Seconds()
	switch m.state {
	case action.TrayRecording:
		dot := "●"
		if m.frame%10 >= 5 {
			dot = "○"
		}
		return recStyle.Render(fmt.Sprintf("%s REC %.1fs", dot, elapsed))
	case action.TrayTranscribing:
		return busyStyle.Render(spinner[m.frame%len(spinner)] + " TRANSCRIBING")
	}
	return idleStyle.Render("○ STANDBY")
}

func (m tuiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	width := max(m.width-4, 20)

	var b strings.Builder
	b.WriteString(m.statusLine() + "\n")
	if m.modeLine != "" {
		b.WriteString(dimStyle.Render(m.modeLine) + "\n")
	}
	if m.deviceLine != "" {
		b.WriteString(idleStyle.Render(m.deviceLine) + "\n")
	}
	if m.errText != "" {
		b.WriteString(errStyle.Render("⚠ "+m.errText) + "\n")
	}
	b.WriteString("\n")

	if m.lastText == "" {
		b.WriteString(idleStyle.Render("No transcriptions yet") + "\n")
	} else {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.count)) + "\n\n")
		for _, line := range wrapText(m.lastText, width-4) {
			b.WriteString(textStyle.Render(line) + "\n")
		}
		if m.lastErr != nil {
			b.WriteString(errStyle.Render("paste failed: "+m.lastErr.Error()) + "\n")
		}
	}

	b.WriteString("\n" + helpKeyStyle.Render(hotkey.Shortcut) + helpStyle.Render(" to record · q to quit"))
	b.WriteString("\n" + helpStyle.Render(appName+" "+version))
	return panelStyle.Width(width).Render(b.String())
}

// tuiPresenter forwards presentation calls to the running program.
// tea.Program.Send is safe from any goroutine.
type tuiPresenter struct {
	p *tea.Program
}

func (t tuiPresenter) SetTrayState(s action.TrayState) { t.p.Send(trayMsg{State: s}) }
func (t tuiPresenter) ShowOverlay(o action.Overlay)    { t.p.Send(overlayMsg{Overlay: o, Visible: true}) }
func (t tuiPresenter) HideOverlay()                    { t.p.Send(overlayMsg{}) }
func (t tuiPresenter) EmitOverlayError(msg string)     { t.p.Send(overlayErrorMsg{Text: msg}) }

func wrapText(text string, width int) []string {
	if text == "" {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		r := []rune(para)
		for len(r) > width {
			// Find last space within width
			splitAt := width
			for i := width; i > 0; i-- {
				if r[i] == ' ' {
					splitAt = i
					break
				}
			}
			lines = append(lines, string(r[:splitAt]))
			r = []rune(strings.TrimLeft(string(r[splitAt:]), " "))
		}
		lines = append(lines, string(r))
	}
	return lines
}
