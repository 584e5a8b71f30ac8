package session

import "github.com/tcriess/lightspeed-code/types"

type Status int

const (
	StatusDisconnected Status = iota
	StatusJoining
	StatusJoined
	StatusLeft
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusJoining:
		return "joining"
	case StatusJoined:
		return "joined"
	case StatusLeft:
		return "left"
	}
	return "unknown"
}

// View is the user interface of a session. All calls happen on the session goroutine.
type View interface {
	StatusChanged(status Status)
	// FilesChanged is called after every change of the file set or the room's active file.
	FilesChanged(files []types.File, activeFile string)
	// CurrentFileChanged reports the file shown in the editor, ok is false when the editor was cleared.
	CurrentFileChanged(file types.File, ok bool)
	UsersChanged(users []types.Member, change types.PresenceMessage)
	SettingsChanged(settings types.RoomSettings)
	ChatReceived(msg types.ChatMessage)
	RemoteCursor(msg types.RemoteCursorMessage)
	RemoteSelection(msg types.RemoteSelectionMessage)
	CodeOutput(msg types.CodeOutputMessage)
	AIResponse(msg types.AIResponseMessage)
	AnalysisResult(msg types.AnalysisResultMessage)
	// Notify shows a transient message: saves, rejected operations, joins and leaves.
	Notify(message string)
}

// NopView ignores everything. Embed it to implement only some of View.
type NopView struct{}

func (NopView) StatusChanged(Status) {}
func (NopView) FilesChanged([]types.File, string) {}
func (NopView) CurrentFileChanged(types.File, bool) {}
func (NopView) UsersChanged([]types.Member, types.PresenceMessage) {}
func (NopView) SettingsChanged(types.RoomSettings) {}
func (NopView) ChatReceived(types.ChatMessage) {}
func (NopView) RemoteCursor(types.RemoteCursorMessage) {}
func (NopView) RemoteSelection(types.RemoteSelectionMessage) {}
func (NopView) CodeOutput(types.CodeOutputMessage) {}
func (NopView) AIResponse(types.AIResponseMessage) {}
func (NopView) AnalysisResult(types.AnalysisResultMessage) {}
func (NopView) Notify(string) {}
