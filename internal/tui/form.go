package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formField struct {
	label string
	input textinput.Model
}

// form is a column of labelled text inputs with tab navigation. focus is -1
// when no field is active.
type form struct {
	fields []formField
	focus  int
}

func newForm(labels ...string) *form {
	f := &form{focus: -1}
	for _, label := range labels {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 256
		f.fields = append(f.fields, formField{label: label, input: in})
	}
	return f
}

func (f *form) Value(i int) string {
	return strings.TrimSpace(f.fields[i].input.Value())
}

func (f *form) Set(i int, value string) {
	f.fields[i].input.SetValue(value)
}

func (f *form) Placeholder(i int, value string) {
	f.fields[i].input.Placeholder = value
}

func (f *form) Reset() {
	for i := range f.fields {
		f.fields[i].input.SetValue("")
	}
}

func (f *form) Focused() bool {
	return f.focus >= 0
}

func (f *form) Focus(i int) tea.Cmd {
	f.Blur()
	if i < 0 || i >= len(f.fields) {
		return nil
	}
	f.focus = i
	return f.fields[i].input.Focus()
}

func (f *form) Blur() {
	if f.focus >= 0 {
		f.fields[f.focus].input.Blur()
	}
	f.focus = -1
}

// Next moves focus forward and reports false when it ran off the end.
func (f *form) Next() (tea.Cmd, bool) {
	if f.focus+1 >= len(f.fields) {
		f.Blur()
		return nil, false
	}
	return f.Focus(f.focus + 1), true
}

func (f *form) Prev() (tea.Cmd, bool) {
	if f.focus <= 0 {
		f.Blur()
		return nil, false
	}
	return f.Focus(f.focus - 1), true
}

func (f *form) Update(msg tea.Msg) tea.Cmd {
	if f.focus < 0 {
		return nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *form) View(width int) string {
	labelWidth := 0
	for _, field := range f.fields {
		if len(field.label) > labelWidth {
			labelWidth = len(field.label)
		}
	}
	label := lipgloss.NewStyle().Width(labelWidth + 2).Foreground(colorMuted)
	active := label.Foreground(colorAccent).Bold(true)
	var rows []string
	for i, field := range f.fields {
		field.input.Width = max(10, width-labelWidth-4)
		style := label
		if i == f.focus {
			style = active
		}
		rows = append(rows, style.Render(field.label)+field.input.View())
	}
	return strings.Join(rows, "\n")
}
