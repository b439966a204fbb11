package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	lua "github.com/yuin/gopher-lua"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type replModel struct {
	L        *lua.LState
	wasmFile string
	input    textinput.Model
	history  []string
	lines    []string
	histIdx  int
}

func newReplModel(L *lua.LState, wasmFile string) *replModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render("lua> ")
	ti.Width = 76
	ti.Focus()

	return &replModel{
		L:        L,
		wasmFile: wasmFile,
		input:    ti,
	}
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "up":
			if m.histIdx > 0 {
				m.histIdx--
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.histIdx < len(m.history) {
				m.histIdx++
				if m.histIdx == len(m.history) {
					m.input.SetValue("")
				} else {
					m.input.SetValue(m.history[m.histIdx])
					m.input.CursorEnd()
				}
			}
			return m, nil

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			m.history = append(m.history, line)
			m.histIdx = len(m.history)
			m.lines = append(m.lines, promptStyle.Render("lua> ")+line)
			m.lines = append(m.lines, m.evalLine(line)...)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// evalLine compiles the line as an expression first, so "1+2" prints 3,
// and falls back to a plain statement chunk.
func (m *replModel) evalLine(line string) []string {
	fn, err := m.L.LoadString("return " + line)
	if err != nil {
		fn, err = m.L.LoadString(line)
	}
	if err != nil {
		return []string{errorStyle.Render(err.Error())}
	}

	base := m.L.GetTop()
	m.L.Push(fn)
	if err := m.L.PCall(0, lua.MultRet, nil); err != nil {
		return []string{errorStyle.Render(err.Error())}
	}

	var out []string
	for i := base + 1; i <= m.L.GetTop(); i++ {
		out = append(out, resultStyle.Render(m.L.Get(i).String()))
	}
	m.L.SetTop(base)
	return out
}

func (m *replModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wasmlua"))
	if m.wasmFile != "" {
		b.WriteString(" ")
		b.WriteString(m.wasmFile)
	}
	b.WriteString("\n\n")

	// Keep the tail of the transcript on screen.
	lines := m.lines
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("↑/↓ history • enter eval • ctrl+c quit"))

	return b.String()
}

func runInteractive(wasmFile string, options []string, verbose bool) error {
	L, err := newState(wasmFile, options, verbose)
	if err != nil {
		return err
	}
	defer L.Close()

	p := tea.NewProgram(newReplModel(L, wasmFile), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	return nil
}
