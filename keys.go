package lookout

import "strings"

// Key is a special key, encoded as its W3C WebDriver code point. Keys can be
// mixed with ordinary text in SendKeys.
type Key string

// Special key constants for use with Press.
const (
	Backspace  Key = "\ue003"
	Tab        Key = "\ue004"
	Enter      Key = "\ue007"
	Shift      Key = "\ue008"
	Control    Key = "\ue009"
	Alt        Key = "\ue00a"
	Escape     Key = "\ue00c"
	Space      Key = "\ue00d"
	PageUp     Key = "\ue00e"
	PageDown   Key = "\ue00f"
	End        Key = "\ue010"
	Home       Key = "\ue011"
	ArrowLeft  Key = "\ue012"
	ArrowUp    Key = "\ue013"
	ArrowRight Key = "\ue014"
	ArrowDown  Key = "\ue015"
	Delete     Key = "\ue017"

	F1  Key = "\ue031"
	F2  Key = "\ue032"
	F3  Key = "\ue033"
	F4  Key = "\ue034"
	F5  Key = "\ue035"
	F6  Key = "\ue036"
	F7  Key = "\ue037"
	F8  Key = "\ue038"
	F9  Key = "\ue039"
	F10 Key = "\ue03a"
	F11 Key = "\ue03b"
	F12 Key = "\ue03c"
)

var keyNames = map[Key]string{
	Backspace: "Backspace", Tab: "Tab", Enter: "Enter", Shift: "Shift",
	Control: "Control", Alt: "Alt", Escape: "Escape", Space: "Space",
	PageUp: "PageUp", PageDown: "PageDown", End: "End", Home: "Home",
	ArrowLeft: "ArrowLeft", ArrowUp: "ArrowUp", ArrowRight: "ArrowRight",
	ArrowDown: "ArrowDown", Delete: "Delete",
	F1: "F1", F2: "F2", F3: "F3", F4: "F4", F5: "F5", F6: "F6",
	F7: "F7", F8: "F8", F9: "F9", F10: "F10", F11: "F11", F12: "F12",
}

// Name returns the key name, e.g. "Enter". Unknown keys return themselves.
func (k Key) Name() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	return string(k)
}

// KeyByRune returns the special key encoded by r, if any. Driver adapters
// use it to translate SendKeys text.
func KeyByRune(r rune) (Key, bool) {
	k := Key(string(r))
	_, ok := keyNames[k]
	return k, ok
}

func joinKeys(keys []Key) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(string(k))
	}
	return b.String()
}

// SplitKeys splits SendKeys text into runs of plain text and single special
// keys, preserving order.
func SplitKeys(text string) []string {
	var (
		parts []string
		run   strings.Builder
	)
	for _, r := range text {
		if _, ok := KeyByRune(r); ok {
			if run.Len() > 0 {
				parts = append(parts, run.String())
				run.Reset()
			}
			parts = append(parts, string(r))
			continue
		}
		run.WriteRune(r)
	}
	if run.Len() > 0 {
		parts = append(parts, run.String())
	}
	return parts
}
