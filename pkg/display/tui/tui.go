// Package tui renders the display elements in the terminal.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"example.com/stream_viewer/client"
	"example.com/stream_viewer/pkg/display"
)

const (
	defaultWidth = 80
	boxPadding   = 1
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type elementMsg struct {
	id   string
	text string
}

// Display shows the connection status and the last final transcription
type Display struct {
	program *tea.Program
}

// New creates a terminal display. Run must be called to start rendering.
func New(title string, opts ...tea.ProgramOption) *Display {
	return &Display{program: tea.NewProgram(newModel(title), opts...)}
}

func (d *Display) SetText(id, text string) error {
	if !display.IsElement(id) {
		return fmt.Errorf("%w: %s", display.ErrMissingElement, id)
	}
	d.program.Send(elementMsg{id: id, text: text})
	return nil
}

// Run renders until the user quits or Quit is called
func (d *Display) Run() error {
	_, err := d.program.Run()
	return err
}

// Quit stops the program
func (d *Display) Quit() {
	d.program.Quit()
}

type model struct {
	title    string
	width    int
	elements map[string]string
}

func newModel(title string) model {
	elements := make(map[string]string)
	for _, id := range display.Elements() {
		elements[id] = ""
	}
	return model{title: title, width: defaultWidth, elements: elements}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case elementMsg:
		// the map is shared between copies of the model, copy before writing
		elements := make(map[string]string, len(m.elements))
		for id, text := range m.elements {
			elements[id] = text
		}
		elements[msg.id] = msg.text
		m.elements = elements
	}

	return m, nil
}

func (m model) View() string {
	contentWidth := m.width - boxPadding*2 - 2
	if contentWidth < 20 {
		contentWidth = 20
	}

	status := m.elements[display.ConnectionStatus]
	statusStyle := disconnectedStyle
	if status == client.StatusConnected {
		statusStyle = connectedStyle
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, boxPadding).
		Width(contentWidth)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s: %s\n\n", labelStyle.Render("Status"), statusStyle.Render(status)))
	b.WriteString(labelStyle.Render("Live transcription"))
	b.WriteString("\n")
	b.WriteString(box.Render(wordwrap.String(m.elements[display.LiveTranscription], contentWidth)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Cleaned transcription"))
	b.WriteString("\n")
	b.WriteString(box.Render(wordwrap.String(m.elements[display.CleanedTranscription], contentWidth)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}
