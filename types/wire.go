package types

import (
	"bytes"
	"encoding/json"
)

// Client -> relay intents.
const (
	WireMessageTypeJoin           = "join"
	WireMessageTypeLeave          = "leave"
	WireMessageTypeSaveFile       = "save_file"
	WireMessageTypeCreateFile     = "create_file"
	WireMessageTypeRenameFile     = "rename_file"
	WireMessageTypeDeleteFile     = "delete_file"
	WireMessageTypeSetActiveFile  = "set_active_file"
	WireMessageTypeSetLanguage    = "set_language"
	WireMessageTypeUpdateSettings = "update_settings"
	WireMessageTypeCursorMove     = "cursor_move"
	WireMessageTypeExecuteCode    = "execute_code"
	WireMessageTypeAISuggestion   = "ai_suggestion"
	WireMessageTypeAIReview       = "ai_review"
	WireMessageTypeAIExplain      = "ai_explain"
	WireMessageTypeSelection      = "selection_change"
	WireMessageTypeAnalyzeCode    = "analyze_code"
)

// Used in both directions.
const (
	WireMessageTypeContentUpdate = "content_update"
	WireMessageTypeChat          = "chat_message"
)

// Relay -> client events.
const (
	WireMessageTypeRoomSnapshot      = "room_snapshot"
	WireMessageTypeChatHistory       = "chat_history"
	WireMessageTypePresenceChanged   = "presence_changed"
	WireMessageTypeFileCreated       = "file_created"
	WireMessageTypeFileRenamed       = "file_renamed"
	WireMessageTypeFileDeleted       = "file_deleted"
	WireMessageTypeActiveFileChanged = "active_file_changed"
	WireMessageTypeLanguageChanged   = "language_changed"
	WireMessageTypeSettingsChanged   = "settings_changed"
	WireMessageTypeRemoteCursor      = "remote_cursor"
	WireMessageTypeRemoteSelection   = "remote_selection"
	WireMessageTypeAnalysisResult    = "analysis_result"
	WireMessageTypeFileSaved         = "file_saved"
	WireMessageTypeCodeOutput        = "code_output"
	WireMessageTypeAIResponse        = "ai_response"
	WireMessageTypeError             = "error_message"
)

// JSON-serialized WebsocketMessage is what is actually sent via the Websocket connection
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeMessage wraps payload into a WebsocketMessage envelope and serializes it. HTML characters are not
// escaped, a file full of '<' must not grow on the wire.
func EncodeMessage(event string, payload interface{}) ([]byte, error) {
	data, err := marshal(payload)
	if err != nil {
		return nil, err
	}
	return marshal(WebsocketMessage{Event: event, Data: data})
}

func marshal(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MaxEncodedSize is an upper bound for the encoded size of a string of n bytes: every byte may become a
// \u00XX escape.
func MaxEncodedSize(n int) int {
	return 6*n + 2
}
