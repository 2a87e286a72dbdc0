package console

import (
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
)

// KeyCode translates a terminal key press into the physical key code
// vocabulary the server-side presets use (browser KeyboardEvent codes).
// Unmappable keys return "".
func KeyCode(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeySpace:
		return "Space"
	case tea.KeyEnter:
		return "Enter"
	case tea.KeyTab:
		return "Tab"
	case tea.KeyBackspace:
		return "Backspace"
	case tea.KeyUp:
		return "ArrowUp"
	case tea.KeyDown:
		return "ArrowDown"
	case tea.KeyLeft:
		return "ArrowLeft"
	case tea.KeyRight:
		return "ArrowRight"
	case tea.KeyRunes:
		if len(msg.Runes) != 1 {
			return ""
		}
		r := msg.Runes[0]
		switch {
		case r >= 'a' && r <= 'z':
			return "Key" + string(unicode.ToUpper(r))
		case r >= 'A' && r <= 'Z':
			return "Key" + string(r)
		case r >= '0' && r <= '9':
			return "Digit" + string(r)
		}
	}
	return ""
}
