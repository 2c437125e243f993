package chromedpdriver

import (
	"strings"

	"github.com/chromedp/chromedp/kb"

	"github.com/cboone/lookout"
)

var keyMap = map[lookout.Key]string{
	lookout.Backspace:  kb.Backspace,
	lookout.Tab:        kb.Tab,
	lookout.Enter:      kb.Enter,
	lookout.Shift:      kb.Shift,
	lookout.Control:    kb.Control,
	lookout.Alt:        kb.Alt,
	lookout.Escape:     kb.Escape,
	lookout.Space:      " ",
	lookout.PageUp:     kb.PageUp,
	lookout.PageDown:   kb.PageDown,
	lookout.End:        kb.End,
	lookout.Home:       kb.Home,
	lookout.ArrowLeft:  kb.ArrowLeft,
	lookout.ArrowUp:    kb.ArrowUp,
	lookout.ArrowRight: kb.ArrowRight,
	lookout.ArrowDown:  kb.ArrowDown,
	lookout.Delete:     kb.Delete,
	lookout.F1:         kb.F1,
	lookout.F2:         kb.F2,
	lookout.F3:         kb.F3,
	lookout.F4:         kb.F4,
	lookout.F5:         kb.F5,
	lookout.F6:         kb.F6,
	lookout.F7:         kb.F7,
	lookout.F8:         kb.F8,
	lookout.F9:         kb.F9,
	lookout.F10:        kb.F10,
	lookout.F11:        kb.F11,
	lookout.F12:        kb.F12,
}

// translateKeys rewrites lookout special keys into chromedp key runes.
func translateKeys(text string) string {
	var b strings.Builder
	for _, part := range lookout.SplitKeys(text) {
		if k, ok := lookout.KeyByRune([]rune(part)[0]); ok && len([]rune(part)) == 1 {
			b.WriteString(keyMap[k])
			continue
		}
		b.WriteString(part)
	}
	return b.String()
}
