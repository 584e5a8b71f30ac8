package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/tcriess/lightspeed-code/editsync"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/presence"
	"github.com/tcriess/lightspeed-code/room"
	"github.com/tcriess/lightspeed-code/transport"
	"github.com/tcriess/lightspeed-code/types"
	"golang.org/x/time/rate"
)

const (
	DefaultAutosaveDelay = 1500 * time.Millisecond
	queueSize            = 256
)

var (
	ErrNotJoined = errors.New("session is not joined")
	ErrNoFile    = errors.New("no file open")
	ErrAIKind    = errors.New("unknown ai kind")
)

// Transport is the outbound half of the channel to the relay. *transport.Channel implements it.
type Transport interface {
	Send(event string, payload interface{}) error
}

type Options struct {
	Room     string
	Username string
	Color    string

	Transport Transport
	Editor    editsync.Editor // defaults to an editsync.Buffer
	View      View

	// Scheduler runs the autosave and trailing edit timers, nil means wall-clock timers.
	Scheduler     editsync.Scheduler
	AutosaveDelay time.Duration

	// EditRate limits outbound content updates per second, 0 means unlimited. A denied update is
	// sent once the limiter allows it again, carrying the latest text.
	EditRate  float64
	EditBurst int

	NewId  func() string
	Logger hclog.Logger
}

type pendingOp struct {
	op         string
	filename   string
	newName    string
	previous   types.File
	wasActive  bool
	wasCurrent bool
	// another member touched the same name before the relay answered
	superseded bool
}

type request struct {
	op       string
	filename string
}

// Session is one client in one room. It owns the room mirror, the roster, the editor binding and
// the pointer to the file shown in the editor.
//
// A Session is not safe for concurrent use. Run is its event loop, every other method must be
// called from the loop goroutine, either before Run starts or through Post.
type Session struct {
	roomId   string
	username string
	color    string
	you      types.Member

	transport Transport
	editor    editsync.Editor
	view      View
	logger    hclog.Logger
	newId     func() string

	state  *room.State
	roster *presence.Roster
	sync   *editsync.Synchronizer
	chat   []types.ChatMessage

	status  Status
	left    bool
	current string

	pending  map[string]*pendingOp
	requests map[string]request

	autosave *editsync.Debouncer
	limiter  *rate.Limiter
	trailing *editsync.Debouncer
	unsent   *types.ContentUpdateMessage

	queue chan func()
}

func New(opts Options) *Session {
	if opts.Editor == nil {
		opts.Editor = editsync.NewBuffer()
	}
	if opts.View == nil {
		opts.View = NopView{}
	}
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = DefaultAutosaveDelay
	}
	if opts.NewId == nil {
		opts.NewId = func() string { return uuid.New().String() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = globals.AppLogger.Named("session")
	}
	s := &Session{
		roomId:    opts.Room,
		username:  opts.Username,
		color:     opts.Color,
		transport: opts.Transport,
		editor:    opts.Editor,
		view:      opts.View,
		logger:    logger.With("room", opts.Room),
		newId:     opts.NewId,
		state:     room.New(opts.Room),
		roster:    presence.NewRoster(),
		pending:   make(map[string]*pendingOp),
		requests:  make(map[string]request),
		autosave:  editsync.NewDebouncer(opts.AutosaveDelay, opts.Scheduler),
		queue:     make(chan func(), queueSize),
	}
	if opts.EditRate > 0 {
		burst := opts.EditBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.EditRate), burst)
		s.trailing = editsync.NewDebouncer(time.Duration(float64(time.Second)/opts.EditRate), opts.Scheduler)
	}
	s.sync = editsync.NewSynchronizer(opts.Editor, s.localEdit, s.logger)
	return s
}

// Run processes transport events and posted functions until ctx is done.
func (s *Session) Run(ctx context.Context, events <-chan transport.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tev := <-events:
			ev, err := FromTransport(tev)
			if err != nil {
				s.logger.Error("could not decode event", "error", err)
				continue
			}
			s.Handle(ev)
		case f := <-s.queue:
			f()
		}
	}
}

// Post queues f for the loop goroutine. It is safe to call from any goroutine.
func (s *Session) Post(f func()) {
	select {
	case s.queue <- f:
	default:
		s.logger.Warn("session queue full, dropping task")
	}
}

// Handle applies one inbound event. Events of other rooms, room events before the snapshot and
// everything after Leave are ignored.
func (s *Session) Handle(ev Event) {
	if s.left {
		s.logger.Trace("ignoring event after leave")
		return
	}
	if r := ev.eventRoom(); r != "" {
		if r != s.roomId {
			s.logger.Debug("ignoring event of another room", "event_room", r)
			return
		}
		if _, ok := ev.(SnapshotEvent); !ok && s.status != StatusJoined {
			s.logger.Debug("ignoring room event before snapshot")
			return
		}
	}
	switch e := ev.(type) {
	case ConnectedEvent:
		s.connected()
	case DisconnectedEvent:
		s.disconnected(e.Err)
	case SnapshotEvent:
		s.applySnapshot(e.RoomSnapshot)
	case ChatHistoryEvent:
		s.chat = append([]types.ChatMessage(nil), e.Messages...)
		for _, m := range s.chat {
			s.view.ChatReceived(m)
		}
	case PresenceEvent:
		s.presenceChanged(e.PresenceMessage)
	case ContentUpdateEvent:
		s.remoteContent(e.Filename, e.Content)
	case FileCreatedEvent:
		s.fileCreated(e.FileCreatedMessage)
	case FileRenamedEvent:
		s.fileRenamed(e.RenameFileMessage)
	case FileDeletedEvent:
		s.fileDeleted(e.DeleteFileMessage)
	case ActiveFileEvent:
		if err := s.state.SetActiveFile(e.Filename); err != nil {
			s.logger.Debug("ignoring active file change", "file", e.Filename, "error", err)
			return
		}
		s.filesChanged()
	case LanguageEvent:
		s.languageChanged(e.Filename, e.Language)
	case SettingsEvent:
		s.state.ApplySettings(e.Settings)
		if !e.Settings.AutoSave {
			s.autosave.Cancel()
		}
		s.view.SettingsChanged(e.Settings)
	case ChatEvent:
		s.chat = append(s.chat, e.ChatMessage)
		s.view.ChatReceived(e.ChatMessage)
	case RemoteCursorEvent:
		if e.ConnectionId == s.you.ConnectionId {
			return
		}
		s.roster.SetCursor(e.ConnectionId, types.Cursor{Line: e.Line, Column: e.Column})
		s.view.RemoteCursor(e.RemoteCursorMessage)
	case RemoteSelectionEvent:
		if e.ConnectionId == s.you.ConnectionId {
			return
		}
		s.view.RemoteSelection(e.RemoteSelectionMessage)
	case AnalysisResultEvent:
		if s.takeRequest(e.RequestId, e.Filename) {
			s.view.AnalysisResult(e.AnalysisResultMessage)
		}
	case FileSavedEvent:
		if e.Ok {
			s.view.Notify(fmt.Sprintf("saved %s", e.Filename))
		} else {
			s.view.Notify(fmt.Sprintf("could not save %s: %s", e.Filename, e.Error))
		}
	case CodeOutputEvent:
		if s.takeRequest(e.RequestId, e.Filename) {
			s.view.CodeOutput(e.CodeOutputMessage)
		}
	case AIResponseEvent:
		if s.takeRequest(e.RequestId, e.Filename) {
			s.view.AIResponse(e.AIResponseMessage)
		}
	case ErrorEvent:
		s.rejected(e.ErrorMessage)
	default:
		s.logger.Error("unhandled event", "type", fmt.Sprintf("%T", ev))
	}
}

func (s *Session) connected() {
	s.logger.Info("connected, joining", "username", s.username)
	if err := s.Join(); err != nil {
		s.logger.Warn("could not send join", "error", err)
	}
}

func (s *Session) disconnected(err error) {
	s.logger.Info("disconnected", "error", err)
	s.status = StatusDisconnected
	// responses to requests would be addressed to the dead connection
	s.requests = make(map[string]request)
	s.autosave.Cancel()
	s.dropUnsent()
	s.view.StatusChanged(s.status)
}

func (s *Session) applySnapshot(snap types.RoomSnapshot) {
	s.dropUnsent()
	s.state.ApplyFullState(snap)
	s.roster.Replace(snap.Users)
	if snap.You.ConnectionId != "" {
		s.you = snap.You
	}
	if snap.You.Username != "" {
		s.username = snap.You.Username
	}
	s.pending = make(map[string]*pendingOp)
	wasJoined := s.status == StatusJoined
	s.status = StatusJoined

	if f, ok := s.state.File(s.current); ok && s.current != "" {
		s.sync.ApplyRemote(f.Content)
		s.view.CurrentFileChanged(f, true)
	} else if f, ok := s.state.File(s.state.ActiveFile()); ok {
		s.open(f)
	} else if s.current != "" {
		s.closeCurrent()
	}

	if !wasJoined {
		s.view.StatusChanged(s.status)
	}
	s.filesChanged()
	s.view.UsersChanged(s.roster.Members(), types.PresenceMessage{Room: s.roomId, Users: s.roster.Members()})
	s.view.SettingsChanged(s.state.Settings())
	s.logger.Debug("applied snapshot", "files", s.state.NoFiles(), "users", s.roster.Len(), "current", s.current)
}

func (s *Session) presenceChanged(msg types.PresenceMessage) {
	s.roster.Replace(msg.Users)
	s.view.UsersChanged(s.roster.Members(), msg)
	switch msg.Action {
	case types.PresenceActionJoin:
		s.view.Notify(fmt.Sprintf("%s joined", msg.Username))
	case types.PresenceActionLeave:
		s.view.Notify(fmt.Sprintf("%s left", msg.Username))
	}
}

func (s *Session) remoteContent(filename, content string) {
	if !s.state.HasFile(filename) {
		if p, ok := s.pending[opKey(types.WireMessageTypeDeleteFile, filename)]; ok {
			p.previous.Content = content
			return
		}
		// the relay applies the edit before our rename, so it belongs to the new name
		if p, ok := s.pending[opKey(types.WireMessageTypeRenameFile, filename)]; ok && s.state.HasFile(p.newName) {
			filename = p.newName
		} else {
			s.logger.Debug("ignoring content of unknown file", "file", filename)
			return
		}
	}
	_ = s.state.ApplyContentUpdate(filename, content)
	if s.unsent != nil && s.unsent.Filename == filename {
		s.dropUnsent()
	}
	if filename == s.current {
		s.sync.ApplyRemote(content)
	}
}

func (s *Session) fileCreated(msg types.FileCreatedMessage) {
	f := msg.File
	name := f.Name
	if s.own(msg.ConnectionId) {
		if p, ok := s.confirm(opKey(types.WireMessageTypeCreateFile, name)); ok {
			local, ok := s.state.File(name)
			if !ok {
				// deleted again while the create was in flight
				return
			}
			if local.Content != p.previous.Content {
				// local edits were sent after the create, the relay applies them on top
				f.Content = local.Content
			}
			s.state.PutFile(f)
			if s.current == name {
				s.sync.ApplyRemote(f.Content)
				got, _ := s.state.File(name)
				s.view.CurrentFileChanged(got, true)
			}
			s.filesChanged()
			return
		}
	}
	s.supersede(name)
	s.state.PutFile(f)
	if s.current == name {
		s.sync.ApplyRemote(f.Content)
		got, _ := s.state.File(name)
		s.view.CurrentFileChanged(got, true)
	}
	s.filesChanged()
}

func (s *Session) fileRenamed(msg types.RenameFileMessage) {
	if s.own(msg.ConnectionId) {
		if _, ok := s.confirm(opKey(types.WireMessageTypeRenameFile, msg.Filename)); ok {
			return
		}
	}
	s.supersede(msg.Filename, msg.NewFilename)
	if err := s.state.ApplyFileRename(msg.Filename, msg.NewFilename); err != nil {
		s.logger.Warn("could not apply rename", "file", msg.Filename, "new_file", msg.NewFilename, "error", err)
		return
	}
	if s.current == msg.Filename {
		s.current = msg.NewFilename
		f, _ := s.state.File(s.current)
		s.view.CurrentFileChanged(f, true)
	}
	s.filesChanged()
}

func (s *Session) fileDeleted(msg types.DeleteFileMessage) {
	if s.own(msg.ConnectionId) {
		if _, ok := s.confirm(opKey(types.WireMessageTypeDeleteFile, msg.Filename)); ok {
			return
		}
	}
	s.supersede(msg.Filename)
	if _, err := s.state.ApplyFileDelete(msg.Filename); err != nil {
		s.logger.Debug("ignoring delete of unknown file", "file", msg.Filename)
		return
	}
	if s.current == msg.Filename {
		s.closeCurrent()
	}
	s.filesChanged()
}

func (s *Session) languageChanged(filename string, language types.Language) {
	if err := s.state.ApplyLanguageChange(filename, language); err != nil {
		s.logger.Debug("ignoring language change", "file", filename, "error", err)
		return
	}
	if s.current == filename {
		f, _ := s.state.File(filename)
		s.view.CurrentFileChanged(f, true)
	}
	s.filesChanged()
}

func (s *Session) rejected(msg types.ErrorMessage) {
	s.logger.Info("relay rejected operation", "op", msg.Op, "file", msg.Filename, "code", msg.Code, "message", msg.Message)
	switch msg.Op {
	case types.WireMessageTypeCreateFile, types.WireMessageTypeRenameFile, types.WireMessageTypeDeleteFile:
		if s.rollback(opKey(msg.Op, msg.Filename), msg.Message) {
			return
		}
	}
	s.view.Notify(fmt.Sprintf("%s failed: %s", msg.Op, msg.Message))
}

// rollback undoes a provisional operation. It returns false if nothing was pending under key.
func (s *Session) rollback(key, reason string) bool {
	p, ok := s.pending[key]
	if !ok {
		return false
	}
	delete(s.pending, key)
	s.view.Notify(fmt.Sprintf("%s %s rejected: %s", p.op, p.filename, reason))
	if p.superseded {
		s.resync()
		return true
	}
	switch p.op {
	case types.WireMessageTypeCreateFile:
		_, _ = s.state.ApplyFileDelete(p.filename)
		if s.current == p.filename {
			s.closeCurrent()
		}
	case types.WireMessageTypeRenameFile:
		if err := s.state.ApplyFileRename(p.newName, p.filename); err != nil {
			s.resync()
			return true
		}
		if s.current == p.newName {
			s.current = p.filename
			f, _ := s.state.File(p.filename)
			s.view.CurrentFileChanged(f, true)
		}
	case types.WireMessageTypeDeleteFile:
		s.state.PutFile(p.previous)
		if p.wasActive {
			_ = s.state.SetActiveFile(p.filename)
		}
		if p.wasCurrent && s.current == "" {
			s.open(p.previous)
		}
	}
	s.filesChanged()
	return true
}

// resync asks the relay for a new snapshot by joining again.
func (s *Session) resync() {
	s.logger.Info("local state diverged, requesting snapshot")
	_ = s.send(types.WireMessageTypeJoin, types.JoinMessage{Room: s.roomId, Username: s.username, Color: s.color})
}

func (s *Session) supersede(names ...string) {
	for _, p := range s.pending {
		for _, name := range names {
			if p.filename == name || p.newName == name {
				p.superseded = true
			}
		}
	}
}

func (s *Session) confirm(key string) (*pendingOp, bool) {
	p, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	return p, ok
}

func (s *Session) own(connectionId string) bool {
	return connectionId != "" && connectionId == s.you.ConnectionId
}

// takeRequest matches a response to an outstanding request. Responses for a file that is no longer
// in the editor are stale and dropped.
func (s *Session) takeRequest(id, filename string) bool {
	r, ok := s.requests[id]
	if !ok {
		s.logger.Debug("dropping response to unknown request", "request_id", id)
		return false
	}
	delete(s.requests, id)
	if r.filename != filename || r.filename != s.current {
		s.logger.Debug("dropping stale response", "request_id", id, "file", filename, "current", s.current)
		return false
	}
	return true
}

func opKey(op, filename string) string {
	return op + ":" + filename
}

// localEdit is the outbound path of the synchronizer.
func (s *Session) localEdit(content string) {
	if s.left || s.current == "" {
		return
	}
	if err := s.state.ApplyContentUpdate(s.current, content); err != nil {
		s.logger.Warn("local edit of unknown file", "file", s.current, "error", err)
		return
	}
	s.sendContent(types.ContentUpdateMessage{Room: s.roomId, Filename: s.current, Content: content})
	s.scheduleAutosave()
}

func (s *Session) sendContent(msg types.ContentUpdateMessage) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.unsent = &msg
		s.trailing.Schedule(func() { s.Post(s.sendUnsent) })
		return
	}
	if s.unsent != nil && s.unsent.Filename == msg.Filename {
		s.dropUnsent()
	}
	_ = s.send(types.WireMessageTypeContentUpdate, msg)
}

func (s *Session) sendUnsent() {
	if s.left || s.unsent == nil {
		return
	}
	msg := *s.unsent
	s.unsent = nil
	if s.trailing != nil {
		s.trailing.Cancel()
	}
	if s.limiter != nil {
		// the trailing send spends a token like any other update
		s.limiter.Reserve()
	}
	_ = s.send(types.WireMessageTypeContentUpdate, msg)
}

func (s *Session) dropUnsent() {
	s.unsent = nil
	if s.trailing != nil {
		s.trailing.Cancel()
	}
}

func (s *Session) scheduleAutosave() {
	if !s.state.Settings().AutoSave {
		return
	}
	filename := s.current
	s.autosave.Schedule(func() {
		s.Post(func() { s.autosaveFired(filename) })
	})
}

func (s *Session) autosaveFired(filename string) {
	if s.left || filename != s.current || !s.state.Settings().AutoSave {
		return
	}
	s.logger.Debug("autosave", "file", filename)
	_ = s.send(types.WireMessageTypeSaveFile, types.SaveFileMessage{Room: s.roomId, Filename: filename})
}

func (s *Session) open(f types.File) {
	s.sendUnsent()
	s.autosave.Cancel()
	s.current = f.Name
	s.sync.Load(f.Content)
	s.view.CurrentFileChanged(f, true)
}

func (s *Session) closeCurrent() {
	s.autosave.Cancel()
	s.current = ""
	s.sync.Clear()
	s.view.CurrentFileChanged(types.File{}, false)
}

func (s *Session) filesChanged() {
	s.view.FilesChanged(s.state.Files(), s.state.ActiveFile())
}

func (s *Session) send(event string, payload interface{}) error {
	err := s.transport.Send(event, payload)
	if err != nil {
		s.logger.Debug("message dropped", "event", event, "error", err)
	}
	return err
}

func (s *Session) joined() error {
	if s.left || s.status != StatusJoined {
		return ErrNotJoined
	}
	return nil
}

// Join sends the join intent. Run calls it on every (re)connect.
func (s *Session) Join() error {
	if s.left {
		return ErrNotJoined
	}
	s.status = StatusJoining
	s.view.StatusChanged(s.status)
	return s.send(types.WireMessageTypeJoin, types.JoinMessage{Room: s.roomId, Username: s.username, Color: s.color})
}

// Leave sends the leave intent and stops the session, later events are ignored.
func (s *Session) Leave() error {
	if s.left {
		return nil
	}
	s.left = true
	s.autosave.Cancel()
	s.dropUnsent()
	err := s.send(types.WireMessageTypeLeave, types.LeaveMessage{Room: s.roomId})
	s.status = StatusLeft
	s.view.StatusChanged(s.status)
	return err
}

// CreateFile adds the file locally, opens it and asks the relay to create it. The file is
// removed again if the relay rejects the name.
func (s *Session) CreateFile(filename string, language types.Language) error {
	if err := s.joined(); err != nil {
		return err
	}
	if err := room.ValidateName(filename); err != nil {
		return err
	}
	f, err := s.state.ApplyFileCreate(filename, language, "")
	if err != nil {
		s.view.Notify(err.Error())
		return err
	}
	key := opKey(types.WireMessageTypeCreateFile, filename)
	s.pending[key] = &pendingOp{op: types.WireMessageTypeCreateFile, filename: filename, previous: f}
	s.open(f)
	s.filesChanged()
	err = s.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: s.roomId, Filename: filename, Language: language})
	if err != nil {
		s.rollback(key, err.Error())
		return err
	}
	return nil
}

// RenameFile renames locally and asks the relay to do the same.
func (s *Session) RenameFile(filename, newFilename string) error {
	if err := s.joined(); err != nil {
		return err
	}
	if err := room.ValidateName(newFilename); err != nil {
		return err
	}
	key := opKey(types.WireMessageTypeRenameFile, filename)
	if _, ok := s.pending[key]; ok {
		return fmt.Errorf("rename of %s already in flight", filename)
	}
	if err := s.state.ApplyFileRename(filename, newFilename); err != nil {
		s.view.Notify(err.Error())
		return err
	}
	s.pending[key] = &pendingOp{
		op:         types.WireMessageTypeRenameFile,
		filename:   filename,
		newName:    newFilename,
		wasCurrent: s.current == filename,
	}
	if s.current == filename {
		s.current = newFilename
		f, _ := s.state.File(newFilename)
		s.view.CurrentFileChanged(f, true)
	}
	s.filesChanged()
	err := s.send(types.WireMessageTypeRenameFile, types.RenameFileMessage{Room: s.roomId, Filename: filename, NewFilename: newFilename})
	if err != nil {
		s.rollback(key, err.Error())
		return err
	}
	return nil
}

// DeleteFile removes the file locally, clearing the editor if it was open, and asks the relay to delete it.
func (s *Session) DeleteFile(filename string) error {
	if err := s.joined(); err != nil {
		return err
	}
	wasActive := s.state.ActiveFile() == filename
	f, err := s.state.ApplyFileDelete(filename)
	if err != nil {
		s.view.Notify(err.Error())
		return err
	}
	key := opKey(types.WireMessageTypeDeleteFile, filename)
	s.pending[key] = &pendingOp{
		op:         types.WireMessageTypeDeleteFile,
		filename:   filename,
		previous:   f,
		wasActive:  wasActive,
		wasCurrent: s.current == filename,
	}
	if s.current == filename {
		s.closeCurrent()
	}
	s.filesChanged()
	err = s.send(types.WireMessageTypeDeleteFile, types.DeleteFileMessage{Room: s.roomId, Filename: filename})
	if err != nil {
		s.rollback(key, err.Error())
		return err
	}
	return nil
}

// OpenFile switches the editor to a file and makes it the room's active file.
func (s *Session) OpenFile(filename string) error {
	if err := s.joined(); err != nil {
		return err
	}
	f, ok := s.state.File(filename)
	if !ok {
		return fmt.Errorf("%w: %s", room.ErrFileNotFound, filename)
	}
	s.open(f)
	return s.send(types.WireMessageTypeSetActiveFile, types.SetActiveFileMessage{Room: s.roomId, Filename: filename})
}

func (s *Session) SaveFile() error {
	if err := s.joined(); err != nil {
		return err
	}
	if s.current == "" {
		return ErrNoFile
	}
	s.autosave.Cancel()
	return s.send(types.WireMessageTypeSaveFile, types.SaveFileMessage{Room: s.roomId, Filename: s.current})
}

// SetLanguage overrides the language of the current file. It is applied when the relay broadcasts it.
func (s *Session) SetLanguage(language types.Language) error {
	if err := s.joined(); err != nil {
		return err
	}
	if s.current == "" {
		return ErrNoFile
	}
	lang, ok := types.ParseLanguage(string(language))
	if !ok {
		return fmt.Errorf("unknown language %q", language)
	}
	return s.send(types.WireMessageTypeSetLanguage, types.SetLanguageMessage{Room: s.roomId, Filename: s.current, Language: lang})
}

func (s *Session) UpdateSettings(settings types.RoomSettings) error {
	if err := s.joined(); err != nil {
		return err
	}
	return s.send(types.WireMessageTypeUpdateSettings, types.UpdateSettingsMessage{Room: s.roomId, Settings: settings})
}

// SendChat sends a chat message. filter is an optional expression selecting the recipients.
func (s *Session) SendChat(message, filter string) error {
	if err := s.joined(); err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return nil
	}
	return s.send(types.WireMessageTypeChat, types.ChatMessage{Room: s.roomId, Message: message, Filter: filter})
}

// MoveCursor places the local caret and reports it to the room, best effort.
func (s *Session) MoveCursor(cursor types.Cursor) error {
	s.editor.SetCursor(cursor)
	if err := s.joined(); err != nil {
		return err
	}
	c := s.editor.Cursor()
	return s.send(types.WireMessageTypeCursorMove, types.CursorMoveMessage{Room: s.roomId, Line: c.Line, Column: c.Column})
}

// SetSelection reports the selected range of the current file, best effort.
func (s *Session) SetSelection(selection types.Selection) error {
	if err := s.joined(); err != nil {
		return err
	}
	if s.current == "" {
		return ErrNoFile
	}
	return s.send(types.WireMessageTypeSelection, types.SelectionMessage{Room: s.roomId, Filename: s.current, Selection: selection})
}

// ExecuteCode runs the relay's content of the current file. The result arrives as CodeOutput on
// the view unless the editor has switched files in the meantime.
func (s *Session) ExecuteCode(stdin string) (string, error) {
	if err := s.joined(); err != nil {
		return "", err
	}
	if s.current == "" {
		return "", ErrNoFile
	}
	id := s.newId()
	s.requests[id] = request{op: types.WireMessageTypeExecuteCode, filename: s.current}
	err := s.send(types.WireMessageTypeExecuteCode, types.ExecuteCodeMessage{Room: s.roomId, Filename: s.current, Stdin: stdin, RequestId: id})
	if err != nil {
		delete(s.requests, id)
		return "", err
	}
	return id, nil
}

// AskAI sends the editor text of the current file to the assistant. kind is one of the types.AIKind* constants.
func (s *Session) AskAI(kind string) (string, error) {
	var event string
	switch kind {
	case types.AIKindSuggestion:
		event = types.WireMessageTypeAISuggestion
	case types.AIKindReview:
		event = types.WireMessageTypeAIReview
	case types.AIKindExplain:
		event = types.WireMessageTypeAIExplain
	default:
		return "", fmt.Errorf("%w: %s", ErrAIKind, kind)
	}
	if err := s.joined(); err != nil {
		return "", err
	}
	f, ok := s.state.File(s.current)
	if !ok || s.current == "" {
		return "", ErrNoFile
	}
	id := s.newId()
	s.requests[id] = request{op: event, filename: s.current}
	err := s.send(event, types.AIRequestMessage{Room: s.roomId, Filename: s.current, Language: f.Language, Code: s.sync.Value(), RequestId: id})
	if err != nil {
		delete(s.requests, id)
		return "", err
	}
	return id, nil
}

// AnalyzeCode asks for metrics and suggestions on the editor text of the current file. The result arrives as
// AnalysisResult on the view.
func (s *Session) AnalyzeCode() (string, error) {
	if err := s.joined(); err != nil {
		return "", err
	}
	f, ok := s.state.File(s.current)
	if !ok || s.current == "" {
		return "", ErrNoFile
	}
	id := s.newId()
	s.requests[id] = request{op: types.WireMessageTypeAnalyzeCode, filename: s.current}
	err := s.send(types.WireMessageTypeAnalyzeCode, types.AnalyzeCodeMessage{Room: s.roomId, Filename: s.current, Language: f.Language, Code: s.sync.Value(), RequestId: id})
	if err != nil {
		delete(s.requests, id)
		return "", err
	}
	return id, nil
}

func (s *Session) Room() string {
	return s.roomId
}

func (s *Session) Status() Status {
	return s.status
}

// You is the own member entry as assigned by the relay.
func (s *Session) You() types.Member {
	return s.you
}

func (s *Session) CurrentFile() string {
	return s.current
}

func (s *Session) ActiveFile() string {
	return s.state.ActiveFile()
}

func (s *Session) File(filename string) (types.File, bool) {
	return s.state.File(filename)
}

func (s *Session) Files() []types.File {
	return s.state.Files()
}

func (s *Session) Settings() types.RoomSettings {
	return s.state.Settings()
}

func (s *Session) Users() []types.Member {
	return s.roster.Members()
}

func (s *Session) Chat() []types.ChatMessage {
	return append([]types.ChatMessage(nil), s.chat...)
}

func (s *Session) Editor() editsync.Editor {
	return s.editor
}

// Pending is the number of provisional file operations awaiting the relay.
func (s *Session) Pending() int {
	return len(s.pending)
}
