package editsync

import (
	"github.com/hashicorp/go-hclog"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/types"
)

// Synchronizer moves document text between the local editor and the room.
//
// Outbound: every editor change notification becomes one call of emit with the whole text.
// Inbound: remote text is swapped in while the echo guard is held, so the change notification the
// editor fires for the programmatic update is not emitted again.
type Synchronizer struct {
	editor   Editor
	emit     func(content string)
	applying bool
	logger   hclog.Logger
}

func NewSynchronizer(editor Editor, emit func(content string), logger hclog.Logger) *Synchronizer {
	if logger == nil {
		logger = globals.AppLogger.Named("editsync")
	}
	s := &Synchronizer{
		editor: editor,
		emit:   emit,
		logger: logger,
	}
	editor.OnChange(s.editorChanged)
	return s
}

func (s *Synchronizer) editorChanged() {
	if s.applying {
		return
	}
	s.emit(s.editor.Value())
}

// Applying reports whether a programmatic update is in progress.
func (s *Synchronizer) Applying() bool {
	return s.applying
}

// ApplyRemote replaces the editor text with content received from the room and puts the
// cursor back where it was, clamped to the new text. It returns false if the text was already equal.
func (s *Synchronizer) ApplyRemote(content string) bool {
	if s.editor.Value() == content {
		return false
	}
	cursor := s.editor.Cursor()
	s.swap(content, Clamp(content, cursor))
	s.logger.Trace("applied remote content", "length", len(content), "cursor", cursor)
	return true
}

// Load resets the editor to a newly opened document, the cursor goes to the start.
func (s *Synchronizer) Load(content string) {
	s.swap(content, types.Cursor{})
}

// Clear empties the editor.
func (s *Synchronizer) Clear() {
	s.swap("", types.Cursor{})
}

// Value is the current local text.
func (s *Synchronizer) Value() string {
	return s.editor.Value()
}

func (s *Synchronizer) swap(content string, cursor types.Cursor) {
	s.applying = true
	defer func() { s.applying = false }()
	s.editor.SetValue(content)
	s.editor.SetCursor(cursor)
}
