package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	mcpextract "github.com/asklar/McpExtract"
	"github.com/asklar/McpExtract/engine"
	"github.com/asklar/McpExtract/render"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	requiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse ASSEMBLY",
		Short: "Browse the tools of an assembly interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdout) {
				return fmt.Errorf("browse needs a terminal; use extract -o - instead")
			}
			m := newBrowseModel(args[0], a.engine())
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

type browseState int

const (
	stateSelectTool browseState = iota
	stateFilter
	stateShowTool
)

type browseModel struct {
	err      error
	engine   *engine.Engine
	result   *mcpextract.AnalysisResult
	filename string
	filter   textinput.Model
	visible  []int
	selected int
	state    browseState
}

type analyzedMsg struct {
	err    error
	result *mcpextract.AnalysisResult
}

func newBrowseModel(filename string, e *engine.Engine) *browseModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter tools"
	ti.Width = 40
	return &browseModel{
		engine:   e,
		filename: filename,
		filter:   ti,
		state:    stateSelectTool,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return m.analyze
}

func (m *browseModel) analyze() tea.Msg {
	res, err := m.engine.Analyze(m.filename)
	return analyzedMsg{result: res, err: err}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectTool && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectTool && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateSelectTool {
				m.state = stateFilter
				return m, m.filter.Focus()
			}

		case "enter":
			switch m.state {
			case stateSelectTool:
				if len(m.visible) > 0 {
					m.state = stateShowTool
				}
			case stateShowTool:
				m.state = stateSelectTool
			}

		case "esc":
			switch m.state {
			case stateShowTool:
				m.state = stateSelectTool
			case stateSelectTool:
				m.filter.SetValue("")
				m.applyFilter()
			}
		}

	case analyzedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.result = msg.result
		m.applyFilter()
	}
	return m, nil
}

func (m *browseModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter", "esc":
		m.filter.Blur()
		m.state = stateSelectTool
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

// applyFilter recomputes the visible tools and keeps the cursor in range.
func (m *browseModel) applyFilter() {
	if m.result == nil {
		return
	}
	m.visible = filterTools(m.result.Tools, m.filter.Value())
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

// filterTools returns the indexes of the tools whose name, class or
// description contains query, ignoring case.
func filterTools(tools []mcpextract.ToolDescriptor, query string) []int {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]int, 0, len(tools))
	for i, t := range tools {
		if q == "" ||
			strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.ClassName), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, i)
		}
	}
	return out
}

func (m *browseModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.result == nil {
		return "Analyzing assembly..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("MCP Tools"))
	fmt.Fprintf(&b, " %s %s\n\n", m.result.ModuleName, m.result.ModuleVersion)

	switch m.state {
	case stateSelectTool, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		if len(m.visible) == 0 {
			b.WriteString("No tools.\n")
		}
		for i, idx := range m.visible {
			line := formatTool(m.result.Tools[idx])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter details • / filter • q quit"))

	case stateShowTool:
		b.WriteString(toolDetail(m.result.Tools[m.visible[m.selected]]))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}
	return b.String()
}

func formatTool(t mcpextract.ToolDescriptor) string {
	params := make([]string, 0, len(t.Parameters))
	for _, p := range t.Parameters {
		params = append(params, p.Name+": "+typeStyle.Render(typeLabel(p.Type)))
	}
	return toolStyle.Render(t.Name) + "(" + strings.Join(params, ", ") + ") → " +
		typeStyle.Render(typeLabel(t.ReturnType))
}

func toolDetail(t mcpextract.ToolDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s.%s\n", toolStyle.Render(t.Name), t.ClassName, t.MethodName)
	if t.Title != "" {
		fmt.Fprintf(&b, "%s\n", t.Title)
	}
	if t.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", t.Description)
	}
	fmt.Fprintf(&b, "\nReturns %s\n", typeStyle.Render(typeLabel(t.ReturnType)))

	if len(t.Parameters) > 0 {
		b.WriteString("\nParameters:\n")
	}
	for _, p := range t.Parameters {
		fmt.Fprintf(&b, "  %s %s", p.Name, typeStyle.Render(typeLabel(p.Type)))
		switch {
		case p.IsRequired:
			b.WriteString(" " + requiredStyle.Render("required"))
		case p.DefaultValue != nil:
			fmt.Fprintf(&b, " = %v", p.DefaultValue)
		}
		if p.Description != "" {
			fmt.Fprintf(&b, "  %s", helpStyle.Render(p.Description))
		}
		b.WriteString("\n")
	}

	if schema, err := json.MarshalIndent(render.InputSchema(t), "", "  "); err == nil {
		fmt.Fprintf(&b, "\nInput schema:\n%s\n", schema)
	}
	return b.String()
}

// typeLabel prefers the source rendering of a type over its canonical name.
func typeLabel(d mcpextract.TypeDescriptor) string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.TypeName
}
