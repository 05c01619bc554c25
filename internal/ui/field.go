package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Field is a labelled single-line input of the transfer form.
type Field struct {
	label   string
	input   textinput.Model
	focused bool
}

// NewField creates a blurred field.
func NewField(label, placeholder string, limit int) Field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 44
	ti.Prompt = ""

	return Field{
		label: label,
		input: ti,
	}
}

// Focus sets focus on the field
func (f *Field) Focus() tea.Cmd {
	f.focused = true
	return f.input.Focus()
}

// Blur removes focus from the field
func (f *Field) Blur() {
	f.focused = false
	f.input.Blur()
}

// Focused returns whether the field has focus
func (f *Field) Focused() bool {
	return f.focused
}

// SetWidth sets the width of the input
func (f *Field) SetWidth(w int) {
	f.input.Width = w
}

// Value returns the current input value
func (f *Field) Value() string {
	return f.input.Value()
}

// SetValue sets the input value
func (f *Field) SetValue(s string) {
	f.input.SetValue(s)
}

// Reset clears the input
func (f *Field) Reset() {
	f.input.Reset()
}

// Update handles input events
func (f *Field) Update(msg tea.Msg) (*Field, tea.Cmd) {
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the label, a focus marker and the input.
func (f *Field) View() string {
	marker := "  "
	if f.focused {
		marker = PromptStyle.Render(SymbolPrompt) + " "
	}
	return marker + LabelStyle.Render(f.label) + f.input.View()
}
