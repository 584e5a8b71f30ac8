package ws

import (
	"container/ring"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/folkengine/goname"
	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
	"github.com/tcriess/lightspeed-code/analysis"
	"github.com/tcriess/lightspeed-code/config"
	"github.com/tcriess/lightspeed-code/filter"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/persistence"
	"github.com/tcriess/lightspeed-code/plugins"
	"github.com/tcriess/lightspeed-code/presence"
	"github.com/tcriess/lightspeed-code/room"
	"github.com/tcriess/lightspeed-code/types"
)

const (
	defaultChatHistorySize = 50
	incomingChannelSize    = 1000
)

// internal events, never sent by clients
const (
	eventDisconnect = "disconnect"
	eventFlush      = "flush"
	eventFiles      = "files"
	eventStop       = "stop"
)

// inbound is one unit of work for the hub loop. Everything for a room, including membership changes, timers and
// shutdown, goes through the same channel, so it is applied in arrival order.
type inbound struct {
	client  *Client
	event   string
	payload interface{}
	reply   chan interface{}
}

// Hub is the sequencer of one room: it owns the authoritative room.State and presence.Roster.
type Hub struct {
	// there is one hub per room
	roomId    string
	createdAt time.Time

	state  *room.State
	roster *presence.Roster

	// members of the room by connection id
	clients map[string]*Client

	// files modified since they were last written to the persister
	dirty map[string]struct{}

	// keep the chat history in a ring buffer
	chatHistoryStart, chatHistoryEnd *ring.Ring

	incoming chan inbound
	done     chan struct{}

	// global configuration
	Cfg *config.Config

	// persistence, may be nil
	Persister persistence.Persister

	// execution and AI collaborators, fields may be nil
	collaborators *plugins.Collaborators

	logger hclog.Logger
}

func NewHub(roomId string, cfg *config.Config, persister persistence.Persister, collaborators *plugins.Collaborators) *Hub {
	chatHistorySize := defaultChatHistorySize
	if cfg.HistoryConfig.HistorySize > 0 {
		chatHistorySize = cfg.HistoryConfig.HistorySize
	}
	if collaborators == nil {
		collaborators = &plugins.Collaborators{}
	}
	chatHistory := ring.New(chatHistorySize)
	hub := &Hub{
		roomId:           roomId,
		createdAt:        time.Now(),
		state:            room.New(roomId),
		roster:           presence.NewRoster(),
		clients:          make(map[string]*Client),
		dirty:            make(map[string]struct{}),
		chatHistoryStart: chatHistory,
		chatHistoryEnd:   chatHistory,
		incoming:         make(chan inbound, incomingChannelSize),
		done:             make(chan struct{}),
		Cfg:              cfg,
		Persister:        persister,
		collaborators:    collaborators,
		logger:           globals.AppLogger.Named("hub").With("room", roomId),
	}
	if persister != nil {
		hub.load(chatHistorySize)
	}
	return hub
}

// load restores the room from the persister. A room that is not stored yet is created.
func (h *Hub) load(chatHistorySize int) {
	r := types.Room{Id: h.roomId}
	err := h.Persister.GetRoom(&r)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		h.storeRoom()
	case err != nil:
		h.logger.Error("could not load room", "error", err)
	default:
		h.createdAt = r.CreatedAt
		h.state.ApplySettings(r.Settings)
	}
	files, err := h.Persister.LoadFiles(h.roomId)
	if err != nil {
		h.logger.Error("could not load files", "error", err)
	}
	for _, f := range files {
		h.state.PutFile(f)
	}
	if r.ActiveFile != "" {
		if err := h.state.SetActiveFile(r.ActiveFile); err != nil {
			h.logger.Warn("stored active file is missing", "file", r.ActiveFile)
		}
	}
	chatMessages, err := h.Persister.GetChatHistory(h.roomId, chatHistorySize)
	if err != nil {
		h.logger.Error("could not load persisted chat messages", "error", err)
	}
	for _, cm := range chatMessages {
		h.appendHistory(cm)
	}
	h.logger.Debug("loaded room", "files", len(files), "chat", len(chatMessages))
}

func (h *Hub) RoomId() string {
	return h.roomId
}

// submit queues work for the hub loop. It returns false if the hub is stopped.
func (h *Hub) submit(in inbound) bool {
	select {
	case h.incoming <- in:
		return true
	case <-h.done:
		return false
	}
}

// query runs an internal event and waits for its result.
func (h *Hub) query(event string) (interface{}, bool) {
	reply := make(chan interface{}, 1)
	if !h.submit(inbound{event: event, reply: reply}) {
		return nil, false
	}
	select {
	case res := <-reply:
		return res, true
	case <-h.done:
		return nil, false
	}
}

// Files returns the current files of the room.
func (h *Hub) Files() ([]types.File, bool) {
	res, ok := h.query(eventFiles)
	if !ok {
		return nil, false
	}
	return res.([]types.File), true
}

// Flush writes all modified files to the persister.
func (h *Hub) Flush() error {
	res, ok := h.query(eventFlush)
	if !ok {
		return fmt.Errorf("hub %s is stopped", h.roomId)
	}
	if err, ok := res.(error); ok {
		return err
	}
	return nil
}

// Stop flushes the room and ends the loop. It is safe to call Stop more than once.
func (h *Hub) Stop() {
	_, _ = h.query(eventStop)
}

// Run is the main hub event loop, it returns after Stop.
func (h *Hub) Run() {
	cronRunner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if h.Persister != nil && h.Cfg.RoomsConfig.FlushSpec != "" {
		_, err := cronRunner.AddFunc(h.Cfg.RoomsConfig.FlushSpec, func() {
			h.submit(inbound{event: eventFlush})
		})
		if err != nil {
			h.logger.Error("invalid flush spec, modified files are only written on save and eviction", "spec", h.Cfg.RoomsConfig.FlushSpec, "error", err)
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	h.logger.Debug("start hub run loop")
	for in := range h.incoming {
		switch in.event {
		case eventFlush:
			err := h.flush()
			if in.reply != nil {
				in.reply <- err
			}

		case eventFiles:
			in.reply <- h.state.Files()

		case eventStop:
			if err := h.flush(); err != nil {
				h.logger.Error("could not flush room on stop", "error", err)
			}
			h.storeRoom()
			close(h.done)
			in.reply <- nil
			h.logger.Debug("hub stopped")
			return

		default:
			h.handle(in)
		}
	}
}

func (h *Hub) handle(in inbound) {
	c := in.client
	switch in.event {
	case types.WireMessageTypeJoin:
		h.join(c, in.payload.(types.JoinMessage))
		return
	case types.WireMessageTypeLeave, eventDisconnect:
		h.leave(c)
		return
	}
	if _, ok := h.clients[c.id]; !ok {
		h.reject(c, in.event, "", types.ErrorCodeNotJoined, "not a member of room "+h.roomId)
		return
	}
	switch msg := in.payload.(type) {
	case types.ContentUpdateMessage:
		h.contentUpdate(c, msg)
	case types.SaveFileMessage:
		h.saveFile(c, msg)
	case types.CreateFileMessage:
		h.createFile(c, msg)
	case types.RenameFileMessage:
		h.renameFile(c, msg)
	case types.DeleteFileMessage:
		h.deleteFile(c, msg)
	case types.SetActiveFileMessage:
		if err := h.state.SetActiveFile(msg.Filename); err != nil {
			h.rejectErr(c, in.event, msg.Filename, err)
			return
		}
		h.storeRoom()
		h.broadcast(types.WireMessageTypeActiveFileChanged, msg, "")
	case types.SetLanguageMessage:
		h.setLanguage(c, msg)
	case types.UpdateSettingsMessage:
		h.state.ApplySettings(msg.Settings)
		h.storeRoom()
		h.broadcast(types.WireMessageTypeSettingsChanged, types.UpdateSettingsMessage{Room: h.roomId, Settings: h.state.Settings()}, "")
	case types.ChatMessage:
		h.chat(c, msg)
	case types.CursorMoveMessage:
		m, ok := h.roster.SetCursor(c.id, types.Cursor{Line: msg.Line, Column: msg.Column})
		if !ok {
			return
		}
		h.broadcast(types.WireMessageTypeRemoteCursor, types.RemoteCursorMessage{
			Room:         h.roomId,
			ConnectionId: m.ConnectionId,
			Username:     m.Username,
			Color:        m.Color,
			Line:         msg.Line,
			Column:       msg.Column,
		}, c.id)
	case types.SelectionMessage:
		m, ok := h.roster.Get(c.id)
		if !ok {
			return
		}
		h.broadcast(types.WireMessageTypeRemoteSelection, types.RemoteSelectionMessage{
			Room:         h.roomId,
			ConnectionId: m.ConnectionId,
			Username:     m.Username,
			Color:        m.Color,
			Filename:     msg.Filename,
			Selection:    msg.Selection,
		}, c.id)
	case types.AnalyzeCodeMessage:
		h.analyze(c, msg)
	case types.ExecuteCodeMessage:
		h.executeCode(c, msg)
	case types.AIRequestMessage:
		h.askAI(c, in.event, msg)
	default:
		h.logger.Warn("unhandled intent", "event", in.event)
	}
}

func (h *Hub) join(c *Client, msg types.JoinMessage) {
	username := strings.TrimSpace(msg.Username)
	if username == "" {
		username = goname.New(goname.FantasyMap).FirstLast() + " (guest)"
	}
	_, rejoin := h.clients[c.id]
	h.clients[c.id] = c
	users := h.roster.Join(types.Member{ConnectionId: c.id, Username: username, Color: msg.Color})
	you, _ := h.roster.Get(c.id)
	h.logger.Info("member joined", "connection", c.id, "username", username, "rejoin", rejoin)

	h.sendTo(c, types.WireMessageTypeRoomSnapshot, h.state.Snapshot(users, you))
	h.sendTo(c, types.WireMessageTypeChatHistory, types.ChatHistoryMessage{Room: h.roomId, Messages: h.history(c)})
	h.broadcast(types.WireMessageTypePresenceChanged, types.PresenceMessage{
		Room:     h.roomId,
		Users:    users,
		Username: username,
		Action:   types.PresenceActionJoin,
	}, "")
}

func (h *Hub) leave(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	m, ok := h.roster.Leave(c.id)
	if !ok {
		return
	}
	h.logger.Info("member left", "connection", c.id, "username", m.Username)
	h.broadcast(types.WireMessageTypePresenceChanged, types.PresenceMessage{
		Room:     h.roomId,
		Users:    h.roster.Members(),
		Username: m.Username,
		Action:   types.PresenceActionLeave,
	}, "")
}

// tooLarge checks content as the new content of filename against the file and the room limits. It returns the
// rejection message, "" if the content fits.
func (h *Hub) tooLarge(filename, content string) string {
	cfg := h.Cfg.RoomsConfig
	if cfg.MaxFileSize > 0 && len(content) > cfg.MaxFileSize {
		return fmt.Sprintf("content of %s exceeds %d bytes", filename, cfg.MaxFileSize)
	}
	if cfg.MaxRoomSize > 0 {
		size := h.state.Size() + len(content)
		if f, ok := h.state.File(filename); ok {
			size -= len(f.Content)
		}
		if size > cfg.MaxRoomSize {
			return fmt.Sprintf("files of room %s would exceed %d bytes", h.roomId, cfg.MaxRoomSize)
		}
	}
	return ""
}

func (h *Hub) contentUpdate(c *Client, msg types.ContentUpdateMessage) {
	if reason := h.tooLarge(msg.Filename, msg.Content); reason != "" {
		h.reject(c, types.WireMessageTypeContentUpdate, msg.Filename, types.ErrorCodeTooLarge, reason)
		return
	}
	if err := h.state.ApplyContentUpdate(msg.Filename, msg.Content); err != nil {
		h.rejectErr(c, types.WireMessageTypeContentUpdate, msg.Filename, err)
		return
	}
	h.dirty[msg.Filename] = struct{}{}
	msg.Room = h.roomId
	msg.Username = h.username(c)
	h.broadcast(types.WireMessageTypeContentUpdate, msg, c.id)
}

func (h *Hub) saveFile(c *Client, msg types.SaveFileMessage) {
	res := types.FileSavedMessage{Room: h.roomId, Filename: msg.Filename}
	f, ok := h.state.File(msg.Filename)
	if !ok {
		res.Error = room.ErrFileNotFound.Error()
		h.sendTo(c, types.WireMessageTypeFileSaved, res)
		return
	}
	if h.Persister != nil {
		if err := h.Persister.SaveFile(h.roomId, f); err != nil {
			h.logger.Error("could not save file", "file", f.Name, "error", err)
			res.Error = err.Error()
			h.sendTo(c, types.WireMessageTypeFileSaved, res)
			return
		}
	}
	delete(h.dirty, f.Name)
	res.Ok = true
	h.sendTo(c, types.WireMessageTypeFileSaved, res)
}

func (h *Hub) createFile(c *Client, msg types.CreateFileMessage) {
	if err := room.ValidateName(msg.Filename); err != nil {
		h.rejectErr(c, types.WireMessageTypeCreateFile, msg.Filename, err)
		return
	}
	content := msg.Content
	if content == "" && h.Cfg.RoomsConfig.UseTemplates {
		content = types.Template(types.ResolveLanguage(msg.Filename, msg.Language))
	}
	if h.state.HasFile(msg.Filename) {
		h.rejectErr(c, types.WireMessageTypeCreateFile, msg.Filename, fmt.Errorf("%w: %s", room.ErrFileExists, msg.Filename))
		return
	}
	if reason := h.tooLarge(msg.Filename, content); reason != "" {
		h.reject(c, types.WireMessageTypeCreateFile, msg.Filename, types.ErrorCodeTooLarge, reason)
		return
	}
	f, err := h.state.ApplyFileCreate(msg.Filename, msg.Language, content)
	if err != nil {
		h.rejectErr(c, types.WireMessageTypeCreateFile, msg.Filename, err)
		return
	}
	h.persistFile(f)
	h.broadcast(types.WireMessageTypeFileCreated, types.FileCreatedMessage{Room: h.roomId, File: f, ConnectionId: c.id}, "")
}

func (h *Hub) renameFile(c *Client, msg types.RenameFileMessage) {
	if err := room.ValidateName(msg.NewFilename); err != nil {
		h.rejectErr(c, types.WireMessageTypeRenameFile, msg.Filename, err)
		return
	}
	wasActive := h.state.ActiveFile() == msg.Filename
	if err := h.state.ApplyFileRename(msg.Filename, msg.NewFilename); err != nil {
		h.rejectErr(c, types.WireMessageTypeRenameFile, msg.Filename, err)
		return
	}
	if _, ok := h.dirty[msg.Filename]; ok {
		delete(h.dirty, msg.Filename)
		h.dirty[msg.NewFilename] = struct{}{}
	}
	if h.Persister != nil && msg.Filename != msg.NewFilename {
		err := h.Persister.RenameFile(h.roomId, msg.Filename, msg.NewFilename)
		if errors.Is(err, persistence.ErrNotFound) {
			f, _ := h.state.File(msg.NewFilename)
			h.persistFile(f)
		} else if err != nil {
			h.logger.Error("could not rename persisted file", "file", msg.Filename, "new_file", msg.NewFilename, "error", err)
			h.dirty[msg.NewFilename] = struct{}{}
		}
	}
	if wasActive {
		h.storeRoom()
	}
	h.broadcast(types.WireMessageTypeFileRenamed, types.RenameFileMessage{
		Room:         h.roomId,
		Filename:     msg.Filename,
		NewFilename:  msg.NewFilename,
		ConnectionId: c.id,
	}, "")
}

func (h *Hub) deleteFile(c *Client, msg types.DeleteFileMessage) {
	wasActive := h.state.ActiveFile() == msg.Filename
	if _, err := h.state.ApplyFileDelete(msg.Filename); err != nil {
		h.rejectErr(c, types.WireMessageTypeDeleteFile, msg.Filename, err)
		return
	}
	delete(h.dirty, msg.Filename)
	if h.Persister != nil {
		err := h.Persister.DeleteFile(h.roomId, msg.Filename)
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			h.logger.Error("could not delete persisted file", "file", msg.Filename, "error", err)
		}
	}
	if wasActive {
		h.storeRoom()
	}
	h.broadcast(types.WireMessageTypeFileDeleted, types.DeleteFileMessage{Room: h.roomId, Filename: msg.Filename, ConnectionId: c.id}, "")
}

func (h *Hub) setLanguage(c *Client, msg types.SetLanguageMessage) {
	lang, ok := types.ParseLanguage(string(msg.Language))
	if !ok {
		h.reject(c, types.WireMessageTypeSetLanguage, msg.Filename, types.ErrorCodeBadRequest, fmt.Sprintf("unknown language %q", msg.Language))
		return
	}
	if err := h.state.ApplyLanguageChange(msg.Filename, lang); err != nil {
		h.rejectErr(c, types.WireMessageTypeSetLanguage, msg.Filename, err)
		return
	}
	h.dirty[msg.Filename] = struct{}{}
	f, _ := h.state.File(msg.Filename)
	h.broadcast(types.WireMessageTypeLanguageChanged, types.SetLanguageMessage{Room: h.roomId, Filename: f.Name, Language: f.Language}, "")
}

// analyze reports metrics of the given code, or of the relay's content of the file.
func (h *Hub) analyze(c *Client, msg types.AnalyzeCodeMessage) {
	code, language := msg.Code, msg.Language
	if code == "" || language == "" {
		f, ok := h.state.File(msg.Filename)
		if !ok && code == "" {
			h.rejectErr(c, types.WireMessageTypeAnalyzeCode, msg.Filename, fmt.Errorf("%w: %s", room.ErrFileNotFound, msg.Filename))
			return
		}
		if code == "" {
			code = f.Content
		}
		if language == "" {
			language = f.Language
		}
	}
	language = types.ResolveLanguage(msg.Filename, language)
	metrics, suggestions := analysis.Analyze(code, language)
	h.sendTo(c, types.WireMessageTypeAnalysisResult, types.AnalysisResultMessage{
		Room:        h.roomId,
		Filename:    msg.Filename,
		RequestId:   msg.RequestId,
		Analysis:    metrics,
		Suggestions: suggestions,
	})
}

func (h *Hub) executeCode(c *Client, msg types.ExecuteCodeMessage) {
	res := types.CodeOutputMessage{Room: h.roomId, Filename: msg.Filename, RequestId: msg.RequestId}
	f, ok := h.state.File(msg.Filename)
	if !ok {
		res.Output = fmt.Sprintf("file %s not found", msg.Filename)
		res.Error = true
		h.sendTo(c, types.WireMessageTypeCodeOutput, res)
		return
	}
	executor := h.collaborators.Executor
	if executor == nil {
		res.Output = "code execution is not configured"
		res.Error = true
		h.sendTo(c, types.WireMessageTypeCodeOutput, res)
		return
	}
	req := plugins.ExecutionRequest{Language: f.Language, Filename: f.Name, Code: f.Content, Stdin: msg.Stdin}
	timeout := h.Cfg.ExecutionConfig.Timeout
	go func() {
		ctx, cancel := timeoutContext(timeout)
		defer cancel()
		out, err := executor.Run(ctx, req)
		if err != nil {
			h.logger.Warn("execution failed", "file", req.Filename, "error", err)
			out = plugins.ExecutionResult{Output: "Execution Error: " + err.Error(), Error: true, ExitCode: -1}
		}
		res.Output = out.Output
		res.Error = out.Error
		res.ExitCode = out.ExitCode
		c.Emit(types.WireMessageTypeCodeOutput, res)
	}()
}

func (h *Hub) askAI(c *Client, event string, msg types.AIRequestMessage) {
	kind := strings.TrimPrefix(event, "ai_")
	res := types.AIResponseMessage{Room: h.roomId, Filename: msg.Filename, RequestId: msg.RequestId, Kind: kind}
	if msg.Code == "" {
		if f, ok := h.state.File(msg.Filename); ok {
			msg.Code = f.Content
			if msg.Language == "" {
				msg.Language = f.Language
			}
		}
	}
	req, err := plugins.BuildCompletion(kind, msg)
	if err != nil {
		res.Content = err.Error()
		res.Error = true
		h.sendTo(c, types.WireMessageTypeAIResponse, res)
		return
	}
	assistant := h.collaborators.Assistant
	if assistant == nil {
		res.Content = "AI assistant is not configured"
		res.Error = true
		h.sendTo(c, types.WireMessageTypeAIResponse, res)
		return
	}
	timeout := h.Cfg.AIConfig.Timeout
	go func() {
		ctx, cancel := timeoutContext(timeout)
		defer cancel()
		content, err := assistant.Chat(ctx, req)
		if err != nil {
			h.logger.Warn("ai request failed", "kind", kind, "error", err)
			res.Content = "Error: " + err.Error()
			res.Error = true
		} else {
			res.Content = content
		}
		c.Emit(types.WireMessageTypeAIResponse, res)
	}()
}

func timeoutContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

func (h *Hub) username(c *Client) string {
	m, _ := h.roster.Get(c.id)
	return m.Username
}

func (h *Hub) persistFile(f types.File) {
	if h.Persister == nil {
		return
	}
	if err := h.Persister.SaveFile(h.roomId, f); err != nil {
		h.logger.Error("could not persist file", "file", f.Name, "error", err)
		h.dirty[f.Name] = struct{}{}
		return
	}
	delete(h.dirty, f.Name)
}

// flush writes all dirty files, files that fail stay dirty.
func (h *Hub) flush() error {
	if h.Persister == nil || len(h.dirty) == 0 {
		return nil
	}
	var firstErr error
	for name := range h.dirty {
		f, ok := h.state.File(name)
		if !ok {
			delete(h.dirty, name)
			continue
		}
		if err := h.Persister.SaveFile(h.roomId, f); err != nil {
			h.logger.Error("could not flush file", "file", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delete(h.dirty, name)
	}
	h.logger.Debug("flushed room", "remaining", len(h.dirty))
	return firstErr
}

func (h *Hub) storeRoom() {
	if h.Persister == nil {
		return
	}
	r := types.Room{Id: h.roomId, ActiveFile: h.state.ActiveFile(), Settings: h.state.Settings(), CreatedAt: h.createdAt}
	if err := h.Persister.StoreRoom(r); err != nil {
		h.logger.Error("could not store room", "error", err)
	}
}

func (h *Hub) appendHistory(msg types.ChatMessage) {
	h.chatHistoryEnd.Value = msg
	h.chatHistoryEnd = h.chatHistoryEnd.Next()
	if h.chatHistoryEnd == h.chatHistoryStart {
		h.chatHistoryStart = h.chatHistoryStart.Next()
	}
}

// reject sends an error_message for a rejected intent to its sender.
func (h *Hub) reject(c *Client, op, filename, code, message string) {
	h.logger.Debug("reject intent", "connection", c.id, "op", op, "file", filename, "code", code)
	h.sendTo(c, types.WireMessageTypeError, types.ErrorMessage{Room: h.roomId, Code: code, Op: op, Filename: filename, Message: message})
}

func (h *Hub) rejectErr(c *Client, op, filename string, err error) {
	h.reject(c, op, filename, errorCode(err), err.Error())
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrFileExists):
		return types.ErrorCodeNameConflict
	case errors.Is(err, room.ErrFileNotFound):
		return types.ErrorCodeNotFound
	case errors.Is(err, room.ErrInvalidName):
		return types.ErrorCodeInvalidName
	default:
		return types.ErrorCodeBadRequest
	}
}

func (h *Hub) sendTo(c *Client, event string, payload interface{}) {
	c.Emit(event, payload)
}

// broadcast sends to all members of the room except the connection except ("" for none).
func (h *Hub) broadcast(event string, payload interface{}, except string) {
	data, err := types.EncodeMessage(event, payload)
	if err != nil {
		h.logger.Error("could not marshal message", "event", event, "error", err)
		return
	}
	for id, c := range h.clients {
		if id == except {
			continue
		}
		c.Queue(data)
	}
}

func (h *Hub) filterRoom() filter.Room {
	return filter.Room{Id: h.roomId, ActiveFile: h.state.ActiveFile(), Members: h.roster.Len()}
}
