package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// SelectorItem represents an item in the selector
type SelectorItem struct {
	ID          string
	Label       string
	Description string
	Current     bool
}

// Selector is an interactive list. A modal selector closes on enter or esc;
// an embedded one stays open and only moves its cursor.
type Selector struct {
	title    string
	items    []SelectorItem
	cursor   int
	selected int
	active   bool
	embedded bool
	focused  bool
}

// NewSelector creates a modal selector with the cursor on the current item.
func NewSelector(title string, items []SelectorItem) Selector {
	s := Selector{
		title:   title,
		active:  true,
		focused: true,
	}
	s.SetItems(items)
	s.selected = s.cursor
	return s
}

// NewListSelector creates a selector that stays open inside a larger view.
func NewListSelector(title string, items []SelectorItem) Selector {
	s := NewSelector(title, items)
	s.embedded = true
	s.focused = false
	return s
}

// SetItems replaces the rows. The cursor stays on the same ID when it is
// still listed, otherwise it moves to the current item.
func (s *Selector) SetItems(items []SelectorItem) {
	prev := s.CursorID()
	s.items = items
	s.cursor = 0
	for i, item := range items {
		if item.Current {
			s.cursor = i
		}
	}
	if prev == "" {
		return
	}
	for i, item := range items {
		if item.ID == prev {
			s.cursor = i
			return
		}
	}
}

func (s *Selector) Focus() { s.focused = true }
func (s *Selector) Blur()  { s.focused = false }

// Active returns whether the selector is active
func (s *Selector) Active() bool {
	return s.active
}

// CursorID returns the ID under the cursor.
func (s *Selector) CursorID() string {
	if s.cursor >= 0 && s.cursor < len(s.items) {
		return s.items[s.cursor].ID
	}
	return ""
}

// Selected returns the selected item ID, or empty if cancelled
func (s *Selector) Selected() string {
	if s.selected >= 0 && s.selected < len(s.items) {
		return s.items[s.selected].ID
	}
	return ""
}

// Cancelled returns whether the selector was cancelled
func (s *Selector) Cancelled() bool {
	return !s.active && s.selected == -1
}

// Update handles selector input
func (s *Selector) Update(msg tea.Msg) (*Selector, tea.Cmd) {
	if !s.active {
		return s, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.items)-1 {
			s.cursor++
		}
	case "enter":
		if !s.embedded {
			s.selected = s.cursor
			s.active = false
		}
	case "esc", "q":
		if !s.embedded {
			s.selected = -1
			s.active = false
		}
	}
	return s, nil
}

// View renders the selector
func (s *Selector) View() string {
	if !s.active {
		return ""
	}

	var b strings.Builder
	if s.embedded {
		title := SelectorDim
		if s.focused {
			title = PromptStyle
		}
		b.WriteString(title.Render(s.title))
	} else {
		b.WriteString(HelpStyle.Render(s.title + " (↑/↓ navigate, enter select, esc cancel)"))
	}
	b.WriteString("\n")
	if !s.embedded {
		b.WriteString("\n")
	}

	for i, item := range s.items {
		isCursor := i == s.cursor && s.focused

		if isCursor {
			b.WriteString(SelectorCursor.Render(SymbolArrow) + " ")
		} else if item.Current {
			b.WriteString(SelectorDim.Render(SymbolBullet) + " ")
		} else {
			b.WriteString("  ")
		}

		display := item.Label
		if display == "" {
			display = item.ID
		}
		label := fmt.Sprintf("%-12s", display)
		if isCursor {
			b.WriteString(SelectorActive.Render(label))
		} else {
			b.WriteString(SelectorItemStyle.Render(label))
		}

		if item.Description != "" {
			b.WriteString(" " + SelectorDim.Render(item.Description))
		}
		b.WriteString("\n")
	}

	return b.String()
}

type selectModel struct {
	selector Selector
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyCtrlC {
		m.selector.selected = -1
		m.selector.active = false
		return m, tea.Quit
	}
	m.selector.Update(msg)
	if !m.selector.Active() {
		return m, tea.Quit
	}
	return m, nil
}

func (m selectModel) View() string {
	return m.selector.View()
}

// Select runs a modal selector on the terminal and returns the chosen ID,
// or "" when the user cancelled.
func Select(title string, items []SelectorItem) (string, error) {
	final, err := tea.NewProgram(selectModel{selector: NewSelector(title, items)}).Run()
	if err != nil {
		return "", err
	}
	m := final.(selectModel)
	if m.selector.Cancelled() {
		return "", nil
	}
	return m.selector.Selected(), nil
}
