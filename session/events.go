package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tcriess/lightspeed-code/transport"
	"github.com/tcriess/lightspeed-code/types"
)

var ErrUnknownEvent = errors.New("unknown event")

// Event is an inbound event of a session: a relay message or a transport lifecycle change.
// The set of implementations is closed, Session.Handle has one case per type.
type Event interface {
	eventRoom() string
}

type ConnectedEvent struct{}

type DisconnectedEvent struct {
	Err error
}

type SnapshotEvent struct{ types.RoomSnapshot }

type ChatHistoryEvent struct{ types.ChatHistoryMessage }

type PresenceEvent struct{ types.PresenceMessage }

type ContentUpdateEvent struct{ types.ContentUpdateMessage }

type FileCreatedEvent struct{ types.FileCreatedMessage }

type FileRenamedEvent struct{ types.RenameFileMessage }

type FileDeletedEvent struct{ types.DeleteFileMessage }

type ActiveFileEvent struct{ types.SetActiveFileMessage }

type LanguageEvent struct{ types.SetLanguageMessage }

type SettingsEvent struct{ types.UpdateSettingsMessage }

type ChatEvent struct{ types.ChatMessage }

type RemoteCursorEvent struct{ types.RemoteCursorMessage }

type RemoteSelectionEvent struct{ types.RemoteSelectionMessage }

type AnalysisResultEvent struct{ types.AnalysisResultMessage }

type FileSavedEvent struct{ types.FileSavedMessage }

type CodeOutputEvent struct{ types.CodeOutputMessage }

type AIResponseEvent struct{ types.AIResponseMessage }

type ErrorEvent struct{ types.ErrorMessage }

func (ConnectedEvent) eventRoom() string { return "" }
func (DisconnectedEvent) eventRoom() string { return "" }
func (e SnapshotEvent) eventRoom() string { return e.Room }
func (e ChatHistoryEvent) eventRoom() string { return e.Room }
func (e PresenceEvent) eventRoom() string { return e.Room }
func (e ContentUpdateEvent) eventRoom() string { return e.Room }
func (e FileCreatedEvent) eventRoom() string { return e.Room }
func (e FileRenamedEvent) eventRoom() string { return e.Room }
func (e FileDeletedEvent) eventRoom() string { return e.Room }
func (e ActiveFileEvent) eventRoom() string { return e.Room }
func (e LanguageEvent) eventRoom() string { return e.Room }
func (e SettingsEvent) eventRoom() string { return e.Room }
func (e ChatEvent) eventRoom() string { return e.Room }
func (e RemoteCursorEvent) eventRoom() string { return e.Room }
func (e RemoteSelectionEvent) eventRoom() string { return e.Room }
func (e AnalysisResultEvent) eventRoom() string { return e.Room }
func (e FileSavedEvent) eventRoom() string { return e.Room }
func (e CodeOutputEvent) eventRoom() string { return e.Room }
func (e AIResponseEvent) eventRoom() string { return e.Room }
func (e ErrorEvent) eventRoom() string { return e.Room }

// DecodeEvent turns a relay message into its Event.
func DecodeEvent(msg types.WebsocketMessage) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch msg.Event {
	case types.WireMessageTypeRoomSnapshot:
		e := SnapshotEvent{}
		err = json.Unmarshal(msg.Data, &e.RoomSnapshot)
		ev = e
	case types.WireMessageTypeChatHistory:
		e := ChatHistoryEvent{}
		err = json.Unmarshal(msg.Data, &e.ChatHistoryMessage)
		ev = e
	case types.WireMessageTypePresenceChanged:
		e := PresenceEvent{}
		err = json.Unmarshal(msg.Data, &e.PresenceMessage)
		ev = e
	case types.WireMessageTypeContentUpdate:
		e := ContentUpdateEvent{}
		err = json.Unmarshal(msg.Data, &e.ContentUpdateMessage)
		ev = e
	case types.WireMessageTypeFileCreated:
		e := FileCreatedEvent{}
		err = json.Unmarshal(msg.Data, &e.FileCreatedMessage)
		ev = e
	case types.WireMessageTypeFileRenamed:
		e := FileRenamedEvent{}
		err = json.Unmarshal(msg.Data, &e.RenameFileMessage)
		ev = e
	case types.WireMessageTypeFileDeleted:
		e := FileDeletedEvent{}
		err = json.Unmarshal(msg.Data, &e.DeleteFileMessage)
		ev = e
	case types.WireMessageTypeActiveFileChanged:
		e := ActiveFileEvent{}
		err = json.Unmarshal(msg.Data, &e.SetActiveFileMessage)
		ev = e
	case types.WireMessageTypeLanguageChanged:
		e := LanguageEvent{}
		err = json.Unmarshal(msg.Data, &e.SetLanguageMessage)
		ev = e
	case types.WireMessageTypeSettingsChanged:
		e := SettingsEvent{}
		err = json.Unmarshal(msg.Data, &e.UpdateSettingsMessage)
		ev = e
	case types.WireMessageTypeChat:
		e := ChatEvent{}
		err = json.Unmarshal(msg.Data, &e.ChatMessage)
		ev = e
	case types.WireMessageTypeRemoteCursor:
		e := RemoteCursorEvent{}
		err = json.Unmarshal(msg.Data, &e.RemoteCursorMessage)
		ev = e
	case types.WireMessageTypeRemoteSelection:
		e := RemoteSelectionEvent{}
		err = json.Unmarshal(msg.Data, &e.RemoteSelectionMessage)
		ev = e
	case types.WireMessageTypeAnalysisResult:
		e := AnalysisResultEvent{}
		err = json.Unmarshal(msg.Data, &e.AnalysisResultMessage)
		ev = e
	case types.WireMessageTypeFileSaved:
		e := FileSavedEvent{}
		err = json.Unmarshal(msg.Data, &e.FileSavedMessage)
		ev = e
	case types.WireMessageTypeCodeOutput:
		e := CodeOutputEvent{}
		err = json.Unmarshal(msg.Data, &e.CodeOutputMessage)
		ev = e
	case types.WireMessageTypeAIResponse:
		e := AIResponseEvent{}
		err = json.Unmarshal(msg.Data, &e.AIResponseMessage)
		ev = e
	case types.WireMessageTypeError:
		e := ErrorEvent{}
		err = json.Unmarshal(msg.Data, &e.ErrorMessage)
		ev = e
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, msg.Event)
	}
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", msg.Event, err)
	}
	return ev, nil
}

// FromTransport maps a transport event to the session Event.
func FromTransport(ev transport.Event) (Event, error) {
	switch ev.Kind {
	case transport.EventConnected:
		return ConnectedEvent{}, nil
	case transport.EventDisconnected:
		return DisconnectedEvent{Err: ev.Err}, nil
	case transport.EventMessage:
		return DecodeEvent(ev.Message)
	}
	return nil, fmt.Errorf("%w: transport %s", ErrUnknownEvent, ev.Kind)
}
