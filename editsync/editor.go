package editsync

import (
	"strings"
	"unicode/utf8"

	"github.com/tcriess/lightspeed-code/types"
)

// Editor is the text widget the synchronizer drives. Implementations call the handler registered
// with OnChange for every change of the text, including changes made through SetValue.
type Editor interface {
	Value() string
	SetValue(text string)
	Cursor() types.Cursor
	SetCursor(cursor types.Cursor)
	OnChange(handler func())
}

// Clamp moves cursor into the bounds of text. Columns count runes.
func Clamp(text string, cursor types.Cursor) types.Cursor {
	lines := strings.Split(text, "\n")
	if cursor.Line < 0 {
		cursor.Line = 0
	}
	if cursor.Line >= len(lines) {
		cursor.Line = len(lines) - 1
	}
	if cursor.Column < 0 {
		cursor.Column = 0
	}
	if n := utf8.RuneCountInString(lines[cursor.Line]); cursor.Column > n {
		cursor.Column = n
	}
	return cursor
}

// Buffer is an in-memory Editor, used by the headless client and in tests.
type Buffer struct {
	text     string
	cursor   types.Cursor
	onChange func()
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Value() string {
	return b.text
}

func (b *Buffer) SetValue(text string) {
	b.text = text
	b.cursor = Clamp(text, b.cursor)
	b.changed()
}

// Type replaces the text the way a user edit would and moves the cursor to the end.
func (b *Buffer) Type(text string) {
	b.text = text
	lines := strings.Split(text, "\n")
	b.cursor = types.Cursor{Line: len(lines) - 1, Column: utf8.RuneCountInString(lines[len(lines)-1])}
	b.changed()
}

func (b *Buffer) Cursor() types.Cursor {
	return b.cursor
}

func (b *Buffer) SetCursor(cursor types.Cursor) {
	b.cursor = Clamp(b.text, cursor)
}

func (b *Buffer) OnChange(handler func()) {
	b.onChange = handler
}

func (b *Buffer) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}
