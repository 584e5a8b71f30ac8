package types

import (
	"strconv"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// The different types of messages transferred between clients and the relay. Incoming fields carry
// mapstructure tags, the relay decodes them weakly.

// JoinMessage registers the connection in a room.
type JoinMessage struct {
	Room     string `json:"room" mapstructure:"room"`
	Username string `json:"username" mapstructure:"username"`
	Color    string `json:"color" mapstructure:"color"`
}

// LeaveMessage removes the connection from the room without closing it.
type LeaveMessage struct {
	Room string `json:"room" mapstructure:"room"`
}

// ContentUpdateMessage carries the entire text of a file, never a delta.
type ContentUpdateMessage struct {
	Room     string `json:"room" mapstructure:"room"`
	Filename string `json:"filename" mapstructure:"filename"`
	Content  string `json:"content" mapstructure:"content"`
	Username string `json:"username,omitempty" mapstructure:"-"` // sender, outgoing
}

// SaveFileMessage asks the relay to persist its current content of the file.
type SaveFileMessage struct {
	Room     string `json:"room" mapstructure:"room"`
	Filename string `json:"filename" mapstructure:"filename"`
}

// CreateFileMessage creates a file. An empty language is derived from the extension.
type CreateFileMessage struct {
	Room     string   `json:"room" mapstructure:"room"`
	Filename string   `json:"filename" mapstructure:"filename"`
	Language Language `json:"language,omitempty" mapstructure:"language"`
	Content  string   `json:"content,omitempty" mapstructure:"content"`
}

// RenameFileMessage is both the rename intent and its broadcast acknowledgement.
type RenameFileMessage struct {
	Room         string `json:"room" mapstructure:"room"`
	Filename     string `json:"filename" mapstructure:"filename"`
	NewFilename  string `json:"new_filename" mapstructure:"new_filename"`
	ConnectionId string `json:"connection_id,omitempty" mapstructure:"-"` // originator, outgoing
}

// DeleteFileMessage is both the delete intent and its broadcast acknowledgement.
type DeleteFileMessage struct {
	Room         string `json:"room" mapstructure:"room"`
	Filename     string `json:"filename" mapstructure:"filename"`
	ConnectionId string `json:"connection_id,omitempty" mapstructure:"-"` // originator, outgoing
}

// SetActiveFileMessage moves the room's active file pointer. An empty filename clears it.
type SetActiveFileMessage struct {
	Room     string `json:"room" mapstructure:"room"`
	Filename string `json:"filename" mapstructure:"filename"`
}

// SetLanguageMessage explicitly overrides the language of a file.
type SetLanguageMessage struct {
	Room     string   `json:"room" mapstructure:"room"`
	Filename string   `json:"filename" mapstructure:"filename"`
	Language Language `json:"language" mapstructure:"language"`
}

// UpdateSettingsMessage replaces the settings of a room.
type UpdateSettingsMessage struct {
	Room     string       `json:"room" mapstructure:"room"`
	Settings RoomSettings `json:"settings" mapstructure:"settings"`
}

// CursorMoveMessage reports the local caret position.
type CursorMoveMessage struct {
	Room   string `json:"room" mapstructure:"room"`
	Line   int    `json:"line" mapstructure:"line"`
	Column int    `json:"column" mapstructure:"column"`
}

// Selection is a text range, Start and End are ordered as the editor reports them.
type Selection struct {
	Start Cursor `json:"start" mapstructure:"start"`
	End   Cursor `json:"end" mapstructure:"end"`
}

// SelectionMessage reports the local text selection, an empty range clears it.
type SelectionMessage struct {
	Room      string    `json:"room" mapstructure:"room"`
	Filename  string    `json:"filename" mapstructure:"filename"`
	Selection Selection `json:"selection" mapstructure:"selection"`
}

// AnalyzeCodeMessage asks for metrics and suggestions. An empty code means the relay's content of the file.
type AnalyzeCodeMessage struct {
	Room      string   `json:"room" mapstructure:"room"`
	Filename  string   `json:"filename" mapstructure:"filename"`
	Language  Language `json:"language,omitempty" mapstructure:"language"`
	Code      string   `json:"code,omitempty" mapstructure:"code"`
	RequestId string   `json:"request_id" mapstructure:"request_id"`
}

// ExecuteCodeMessage runs the relay's current content of a file.
type ExecuteCodeMessage struct {
	Room      string `json:"room" mapstructure:"room"`
	Filename  string `json:"filename" mapstructure:"filename"`
	Stdin     string `json:"stdin,omitempty" mapstructure:"stdin"`
	RequestId string `json:"request_id" mapstructure:"request_id"`
}

const (
	AIKindSuggestion = "suggestion"
	AIKindReview     = "review"
	AIKindExplain    = "explain"
)

// AIRequestMessage is sent as ai_suggestion, ai_review or ai_explain, the kind is the event name.
type AIRequestMessage struct {
	Room      string   `json:"room" mapstructure:"room"`
	Filename  string   `json:"filename" mapstructure:"filename"`
	Language  Language `json:"language" mapstructure:"language"`
	Code      string   `json:"code" mapstructure:"code"`
	RequestId string   `json:"request_id" mapstructure:"request_id"`
}

// ChatMessage is a basic chat message, contains the sender username
type ChatMessage struct {
	Id        string    `json:"id" hash:"ignore" mapstructure:"-"`      // hash of the message, outgoing
	Room      string    `json:"room" mapstructure:"room"`               // incoming + outgoing
	Username  string    `json:"username" mapstructure:"-"`              // sender, outgoing
	Message   string    `json:"message" mapstructure:"message"`         // actual message, incoming + outgoing
	Timestamp time.Time `json:"timestamp" mapstructure:"-"`             // sent time, outgoing
	Filter    string    `json:"filter,omitempty" mapstructure:"filter"` // recipient filter expression, incoming
}

// CreateId sets the id of the message to the hash of its contents.
func (m *ChatMessage) CreateId() error {
	key := struct {
		Room     string
		Username string
		Message  string
		Sent     int64
	}{m.Room, m.Username, m.Message, m.Timestamp.UnixNano()}
	h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return err
	}
	m.Id = strconv.FormatUint(h, 16)
	return nil
}

// ChatHistoryMessage replays the recent chat to a joining client.
type ChatHistoryMessage struct {
	Room     string        `json:"room"`
	Messages []ChatMessage `json:"messages"`
}

const (
	PresenceActionJoin  = "join"
	PresenceActionLeave = "leave"
)

// PresenceMessage always carries the full roster; Username/Action describe the change that caused it.
type PresenceMessage struct {
	Room     string   `json:"room"`
	Users    []Member `json:"users"`
	Username string   `json:"username"`
	Action   string   `json:"action"`
}

// FileCreatedMessage acknowledges a file creation to every member of the room.
type FileCreatedMessage struct {
	Room         string `json:"room"`
	File         File   `json:"file"`
	ConnectionId string `json:"connection_id"` // originator
}

// RemoteCursorMessage is the caret of another member.
type RemoteCursorMessage struct {
	Room         string `json:"room"`
	ConnectionId string `json:"connection_id"`
	Username     string `json:"username"`
	Color        string `json:"color"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
}

// RemoteSelectionMessage is the selection of another member.
type RemoteSelectionMessage struct {
	Room         string    `json:"room"`
	ConnectionId string    `json:"connection_id"`
	Username     string    `json:"username"`
	Color        string    `json:"color"`
	Filename     string    `json:"filename"`
	Selection    Selection `json:"selection"`
}

// CodeMetrics are counted per line, Complexity is 1 plus the number of decision points.
type CodeMetrics struct {
	TotalLines       int    `json:"total_lines"`
	CodeLines        int    `json:"code_lines"`
	BlankLines       int    `json:"blank_lines"`
	CommentLines     int    `json:"comment_lines"`
	Complexity       int    `json:"cyclomatic_complexity"`
	ComplexityRating string `json:"complexity_rating"`
}

const (
	SuggestionWarning  = "warning"
	SuggestionSecurity = "security"
	SuggestionInfo     = "info"
	SuggestionStyle    = "style"
)

type Suggestion struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnalysisResultMessage is the result of an analyze_code intent.
type AnalysisResultMessage struct {
	Room        string       `json:"room"`
	Filename    string       `json:"filename"`
	RequestId   string       `json:"request_id"`
	Analysis    CodeMetrics  `json:"analysis"`
	Suggestions []Suggestion `json:"suggestions"`
}

// FileSavedMessage is the outcome of a save_file intent.
type FileSavedMessage struct {
	Room     string `json:"room"`
	Filename string `json:"filename"`
	Ok       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// CodeOutputMessage is the result of an execute_code intent.
type CodeOutputMessage struct {
	Room      string `json:"room"`
	Filename  string `json:"filename"`
	RequestId string `json:"request_id"`
	Output    string `json:"output"`
	Error     bool   `json:"error"`
	ExitCode  int    `json:"exit_code"`
}

// AIResponseMessage is the result of an ai_* intent.
type AIResponseMessage struct {
	Room      string `json:"room"`
	Filename  string `json:"filename"`
	RequestId string `json:"request_id"`
	Kind      string `json:"kind"`
	Content   string `json:"content"`
	Error     bool   `json:"error"`
}

// Error codes of ErrorMessage.
const (
	ErrorCodeNameConflict = "name_conflict"
	ErrorCodeNotFound     = "not_found"
	ErrorCodeInvalidName  = "invalid_name"
	ErrorCodeTooLarge     = "too_large"
	ErrorCodeNotJoined    = "not_joined"
	ErrorCodeBadRequest   = "bad_request"
	ErrorCodeUnavailable  = "unavailable"
)

// ErrorMessage rejects an intent. Op is the event name of the rejected intent.
type ErrorMessage struct {
	Room     string `json:"room"`
	Code     string `json:"code"`
	Op       string `json:"op"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message"`
}
