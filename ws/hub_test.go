package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcriess/lightspeed-code/config"
	"github.com/tcriess/lightspeed-code/persistence"
	"github.com/tcriess/lightspeed-code/plugins"
	"github.com/tcriess/lightspeed-code/room"
	"github.com/tcriess/lightspeed-code/types"
)

const readTimeout = 5 * time.Second

func testConfig() *config.Config {
	return &config.Config{
		HistoryConfig:   config.HistoryConfig{HistorySize: 10},
		RoomsConfig:     config.RoomsConfig{IdleRooms: 4, MaxFileSize: 1024, UseTemplates: true},
		ExecutionConfig: config.TimeoutConfig{Timeout: time.Second},
		AIConfig:        config.TimeoutConfig{Timeout: time.Second},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, persister persistence.Persister, collaborators *plugins.Collaborators) (*Registry, string) {
	t.Helper()
	registry, err := NewRegistry(cfg, persister, collaborators)
	require.NoError(t, err)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		registry.Serve(conn)
	}))
	t.Cleanup(func() {
		server.Close()
		registry.Close()
	})
	return registry, "ws" + strings.TrimPrefix(server.URL, "http")
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, url string) *testConn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testConn{t: t, conn: conn}
}

func (c *testConn) send(event string, payload interface{}) {
	c.t.Helper()
	data, err := types.EncodeMessage(event, payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, data))
}

// next returns the next event, whatever it is.
func (c *testConn) next() types.WebsocketMessage {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, raw, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	msg := types.WebsocketMessage{}
	require.NoError(c.t, json.Unmarshal(raw, &msg))
	return msg
}

// expect requires the next event to be event and decodes it into v.
func (c *testConn) expect(event string, v interface{}) {
	c.t.Helper()
	msg := c.next()
	require.Equal(c.t, event, msg.Event, "unexpected event %s: %s", msg.Event, string(msg.Data))
	if v != nil {
		require.NoError(c.t, json.Unmarshal(msg.Data, v))
	}
}

// join joins roomId and consumes the snapshot, the history and the own presence broadcast.
func (c *testConn) join(roomId, username string) types.RoomSnapshot {
	c.t.Helper()
	c.send(types.WireMessageTypeJoin, types.JoinMessage{Room: roomId, Username: username})
	snap := types.RoomSnapshot{}
	c.expect(types.WireMessageTypeRoomSnapshot, &snap)
	c.expect(types.WireMessageTypeChatHistory, nil)
	c.expect(types.WireMessageTypePresenceChanged, nil)
	return snap
}

func (c *testConn) expectError(code, op, filename string) {
	c.t.Helper()
	e := types.ErrorMessage{}
	c.expect(types.WireMessageTypeError, &e)
	assert.Equal(c.t, code, e.Code)
	assert.Equal(c.t, op, e.Op)
	assert.Equal(c.t, filename, e.Filename)
}

func TestJoinSnapshotAndPresence(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)
	a.send(types.WireMessageTypeJoin, types.JoinMessage{Room: "r1"})
	snap := types.RoomSnapshot{}
	a.expect(types.WireMessageTypeRoomSnapshot, &snap)
	assert.Equal(t, "r1", snap.Room)
	assert.Empty(t, snap.Files)
	assert.NotEmpty(t, snap.You.ConnectionId)
	assert.True(t, strings.HasSuffix(snap.You.Username, "(guest)"))
	assert.NotEmpty(t, snap.You.Color)
	history := types.ChatHistoryMessage{}
	a.expect(types.WireMessageTypeChatHistory, &history)
	assert.Empty(t, history.Messages)
	p := types.PresenceMessage{}
	a.expect(types.WireMessageTypePresenceChanged, &p)
	assert.Len(t, p.Users, 1)

	b := dial(t, url)
	bSnap := b.join("r1", "bob")
	assert.Len(t, bSnap.Users, 2)
	assert.Equal(t, "bob", bSnap.You.Username)
	a.expect(types.WireMessageTypePresenceChanged, &p)
	assert.Equal(t, types.PresenceActionJoin, p.Action)
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, []string{snap.You.Username, "bob"}, types.Usernames(p.Users))

	require.NoError(t, b.conn.Close())
	a.expect(types.WireMessageTypePresenceChanged, &p)
	assert.Equal(t, types.PresenceActionLeave, p.Action)
	assert.Equal(t, "bob", p.Username)
	assert.Len(t, p.Users, 1)
}

func TestRejoinResendsSnapshot(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)
	first := a.join("r1", "alice")
	second := a.join("r1", "alice")
	assert.Equal(t, first.You.ConnectionId, second.You.ConnectionId)
	assert.Len(t, second.Users, 1)
}

func TestJoinOtherRoomLeavesFirst(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)
	b := dial(t, url)
	a.join("r1", "alice")
	b.join("r1", "bob")
	a.expect(types.WireMessageTypePresenceChanged, nil)

	a.join("r2", "alice")
	p := types.PresenceMessage{}
	b.expect(types.WireMessageTypePresenceChanged, &p)
	assert.Equal(t, types.PresenceActionLeave, p.Action)
	assert.Equal(t, []string{"bob"}, types.Usernames(p.Users))

	// intents for the old room are rejected
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "x.py"})
	a.expectError(types.ErrorCodeNotJoined, types.WireMessageTypeCreateFile, "x.py")
}

func TestCreateAndEdit(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)
	b := dial(t, url)
	aSnap := a.join("r1", "alice")
	b.join("r1", "bob")
	a.expect(types.WireMessageTypePresenceChanged, nil)

	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "main.py"})
	for _, c := range []*testConn{a, b} {
		created := types.FileCreatedMessage{}
		c.expect(types.WireMessageTypeFileCreated, &created)
		assert.Equal(t, "main.py", created.File.Name)
		assert.Equal(t, types.LanguagePython, created.File.Language)
		assert.Equal(t, types.Template(types.LanguagePython), created.File.Content)
		assert.Equal(t, aSnap.You.ConnectionId, created.ConnectionId)
	}

	a.send(types.WireMessageTypeContentUpdate, types.ContentUpdateMessage{Room: "r1", Filename: "main.py", Content: "print(1)"})
	update := types.ContentUpdateMessage{}
	b.expect(types.WireMessageTypeContentUpdate, &update)
	assert.Equal(t, types.ContentUpdateMessage{Room: "r1", Filename: "main.py", Content: "print(1)", Username: "alice"}, update)

	// the sender does not get its own update back
	a.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "done"})
	a.expect(types.WireMessageTypeChat, nil)

	c := dial(t, url)
	cSnap := c.join("r1", "carol")
	assert.Equal(t, "print(1)", cSnap.Files["main.py"].Content)
}

func TestExplicitContentSkipsTemplate(t *testing.T) {
	cfg := testConfig()
	cfg.RoomsConfig.UseTemplates = false
	_, url := newTestServer(t, cfg, nil, nil)
	a := dial(t, url)
	a.join("r1", "alice")
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "notes", Language: types.LanguageGo})
	created := types.FileCreatedMessage{}
	a.expect(types.WireMessageTypeFileCreated, &created)
	assert.Equal(t, "", created.File.Content)
	assert.Equal(t, types.LanguageGo, created.File.Language)
}

func TestRejections(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)

	a.send(types.WireMessageTypeContentUpdate, types.ContentUpdateMessage{Room: "r1", Filename: "main.py", Content: "x"})
	a.expectError(types.ErrorCodeNotJoined, types.WireMessageTypeContentUpdate, "main.py")

	a.join("r1", "alice")
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "../etc/passwd"})
	a.expectError(types.ErrorCodeInvalidName, types.WireMessageTypeCreateFile, "../etc/passwd")

	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "main.py"})
	a.expect(types.WireMessageTypeFileCreated, nil)
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "main.py"})
	a.expectError(types.ErrorCodeNameConflict, types.WireMessageTypeCreateFile, "main.py")

	a.send(types.WireMessageTypeRenameFile, types.RenameFileMessage{Room: "r1", Filename: "missing.py", NewFilename: "x.py"})
	a.expectError(types.ErrorCodeNotFound, types.WireMessageTypeRenameFile, "missing.py")

	a.send(types.WireMessageTypeRenameFile, types.RenameFileMessage{Room: "r1", Filename: "main.py", NewFilename: "/abs.py"})
	a.expectError(types.ErrorCodeInvalidName, types.WireMessageTypeRenameFile, "main.py")

	a.send(types.WireMessageTypeDeleteFile, types.DeleteFileMessage{Room: "r1", Filename: "missing.py"})
	a.expectError(types.ErrorCodeNotFound, types.WireMessageTypeDeleteFile, "missing.py")

	a.send(types.WireMessageTypeContentUpdate, types.ContentUpdateMessage{Room: "r1", Filename: "missing.py", Content: "x"})
	a.expectError(types.ErrorCodeNotFound, types.WireMessageTypeContentUpdate, "missing.py")

	a.send(types.WireMessageTypeContentUpdate, types.ContentUpdateMessage{Room: "r1", Filename: "main.py", Content: strings.Repeat("x", 2048)})
	a.expectError(types.ErrorCodeTooLarge, types.WireMessageTypeContentUpdate, "main.py")

	a.send(types.WireMessageTypeSetLanguage, types.SetLanguageMessage{Room: "r1", Filename: "main.py", Language: "cobol"})
	a.expectError(types.ErrorCodeBadRequest, types.WireMessageTypeSetLanguage, "main.py")

	a.send(types.WireMessageTypeSetActiveFile, types.SetActiveFileMessage{Room: "r1", Filename: "missing.py"})
	a.expectError(types.ErrorCodeNotFound, types.WireMessageTypeSetActiveFile, "missing.py")

	a.send("make_coffee", map[string]string{"room": "r1"})
	a.expectError(types.ErrorCodeBadRequest, "make_coffee", "")

	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	a.expectError(types.ErrorCodeBadRequest, "", "")

	// the connection survives all of the above
	a.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "still here"})
	a.expect(types.WireMessageTypeChat, nil)
}

func TestRoomSizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RoomsConfig.MaxRoomSize = 1500
	_, url := newTestServer(t, cfg, nil, nil)
	a := dial(t, url)
	a.join("r1", "alice")

	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "a.txt", Content: strings.Repeat("a", 1000)})
	a.expect(types.WireMessageTypeFileCreated, nil)
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "b.txt", Content: strings.Repeat("b", 600)})
	a.expectError(types.ErrorCodeTooLarge, types.WireMessageTypeCreateFile, "b.txt")
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "b.txt", Content: strings.Repeat("b", 400)})
	a.expect(types.WireMessageTypeFileCreated, nil)

	a.send(types.WireMessageTypeContentUpdate, types.ContentUpdateMessage{Room: "r1", Filename: "b.txt", Content: strings.Repeat("b", 600)})
	a.expectError(types.ErrorCodeTooLarge, types.WireMessageTypeContentUpdate, "b.txt")

	// replacing content only counts the difference
	a.send(types.WireMessageTypeContentUpdate, types.ContentUpdateMessage{Room: "r1", Filename: "a.txt", Content: strings.Repeat("a", 900)})
	a.send(types.WireMessageTypeContentUpdate, types.ContentUpdateMessage{Room: "r1", Filename: "b.txt", Content: strings.Repeat("b", 600)})
	a.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "sync"})
	a.expect(types.WireMessageTypeChat, nil)

	b := dial(t, url)
	snap := b.join("r1", "bob")
	assert.Len(t, snap.Files["a.txt"].Content, 900)
	assert.Len(t, snap.Files["b.txt"].Content, 600)
}

func TestEscapedContentWithinReadLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RoomsConfig.MaxFileSize = 128 * 1024
	_, url := newTestServer(t, cfg, nil, nil)
	a := dial(t, url)
	b := dial(t, url)
	a.join("r1", "alice")
	b.join("r1", "bob")
	a.expect(types.WireMessageTypePresenceChanged, nil)
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "index.html"})
	a.expect(types.WireMessageTypeFileCreated, nil)
	b.expect(types.WireMessageTypeFileCreated, nil)

	// encoding/json defaults escape every '<' to six bytes
	sendEscaped := func(content string) int {
		data, err := json.Marshal(types.ContentUpdateMessage{Room: "r1", Filename: "index.html", Content: content})
		require.NoError(t, err)
		frame, err := json.Marshal(types.WebsocketMessage{Event: types.WireMessageTypeContentUpdate, Data: data})
		require.NoError(t, err)
		require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, frame))
		return len(frame)
	}
	content := strings.Repeat("<", 120*1024)
	n := sendEscaped(content)
	require.Greater(t, n, cfg.RoomsConfig.MaxFileSize+messageOverhead)
	update := types.ContentUpdateMessage{}
	b.expect(types.WireMessageTypeContentUpdate, &update)
	assert.Equal(t, content, update.Content)

	// over the cap is a rejection, not a reset
	sendEscaped(strings.Repeat("<", 129*1024))
	a.expectError(types.ErrorCodeTooLarge, types.WireMessageTypeContentUpdate, "index.html")
	a.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "still here"})
	a.expect(types.WireMessageTypeChat, nil)
}

func TestReadLimit(t *testing.T) {
	assert.Equal(t, int64(0), readLimit(0))
	assert.Equal(t, int64(0), readLimit(-1))
	assert.Equal(t, int64(6*1024+2+messageOverhead), readLimit(1024))
}

func TestSelectionAndAnalysis(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)
	b := dial(t, url)
	aSnap := a.join("r1", "alice")
	b.join("r1", "bob")
	a.expect(types.WireMessageTypePresenceChanged, nil)

	selection := types.Selection{Start: types.Cursor{Line: 1, Column: 0}, End: types.Cursor{Line: 2, Column: 4}}
	a.send(types.WireMessageTypeSelection, types.SelectionMessage{Room: "r1", Filename: "main.py", Selection: selection})
	remote := types.RemoteSelectionMessage{}
	b.expect(types.WireMessageTypeRemoteSelection, &remote)
	assert.Equal(t, aSnap.You.ConnectionId, remote.ConnectionId)
	assert.Equal(t, "alice", remote.Username)
	assert.Equal(t, aSnap.You.Color, remote.Color)
	assert.Equal(t, "main.py", remote.Filename)
	assert.Equal(t, selection, remote.Selection)

	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "main.py", Content: "if x:\n    pass\n"})
	a.expect(types.WireMessageTypeFileCreated, nil)
	a.send(types.WireMessageTypeAnalyzeCode, types.AnalyzeCodeMessage{Room: "r1", Filename: "main.py", RequestId: "q1"})
	res := types.AnalysisResultMessage{}
	a.expect(types.WireMessageTypeAnalysisResult, &res)
	assert.Equal(t, "q1", res.RequestId)
	assert.Equal(t, "main.py", res.Filename)
	assert.Equal(t, types.CodeMetrics{TotalLines: 3, CodeLines: 2, BlankLines: 1, Complexity: 2, ComplexityRating: "Low"}, res.Analysis)
	assert.Empty(t, res.Suggestions)

	a.send(types.WireMessageTypeAnalyzeCode, types.AnalyzeCodeMessage{Room: "r1", Language: types.LanguageJavaScript, Code: "var a = 1", RequestId: "q2"})
	a.expect(types.WireMessageTypeAnalysisResult, &res)
	assert.Equal(t, "q2", res.RequestId)
	assert.Equal(t, []types.Suggestion{{Type: types.SuggestionInfo, Message: "Consider using let/const instead of var"}}, res.Suggestions)

	a.send(types.WireMessageTypeAnalyzeCode, types.AnalyzeCodeMessage{Room: "r1", Filename: "missing.py", RequestId: "q3"})
	a.expectError(types.ErrorCodeNotFound, types.WireMessageTypeAnalyzeCode, "missing.py")

	// the analysis goes to the requester only, b sees the create next
	b.expect(types.WireMessageTypeFileCreated, nil)
	b.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "done"})
	b.expect(types.WireMessageTypeChat, nil)
}

func TestRenameDeleteAndActiveFile(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)
	b := dial(t, url)
	aSnap := a.join("r1", "alice")
	b.join("r1", "bob")
	a.expect(types.WireMessageTypePresenceChanged, nil)

	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "a.py", Content: "x = 1"})
	a.send(types.WireMessageTypeSetActiveFile, types.SetActiveFileMessage{Room: "r1", Filename: "a.py"})
	a.send(types.WireMessageTypeRenameFile, types.RenameFileMessage{Room: "r1", Filename: "a.py", NewFilename: "b.py"})
	a.send(types.WireMessageTypeSetLanguage, types.SetLanguageMessage{Room: "r1", Filename: "b.py", Language: "text"})
	for _, c := range []*testConn{a, b} {
		c.expect(types.WireMessageTypeFileCreated, nil)
		active := types.SetActiveFileMessage{}
		c.expect(types.WireMessageTypeActiveFileChanged, &active)
		assert.Equal(t, "a.py", active.Filename)
		renamed := types.RenameFileMessage{}
		c.expect(types.WireMessageTypeFileRenamed, &renamed)
		assert.Equal(t, types.RenameFileMessage{Room: "r1", Filename: "a.py", NewFilename: "b.py", ConnectionId: aSnap.You.ConnectionId}, renamed)
		lang := types.SetLanguageMessage{}
		c.expect(types.WireMessageTypeLanguageChanged, &lang)
		assert.Equal(t, types.LanguageText, lang.Language)
	}

	c := dial(t, url)
	snap := c.join("r1", "carol")
	assert.Equal(t, "b.py", snap.ActiveFile)
	assert.Equal(t, types.File{Name: "b.py", Content: "x = 1", Language: types.LanguageText}, snap.Files["b.py"])
	a.expect(types.WireMessageTypePresenceChanged, nil)

	a.send(types.WireMessageTypeDeleteFile, types.DeleteFileMessage{Room: "r1", Filename: "b.py"})
	deleted := types.DeleteFileMessage{}
	c.expect(types.WireMessageTypeFileDeleted, &deleted)
	assert.Equal(t, "b.py", deleted.Filename)
	assert.Equal(t, aSnap.You.ConnectionId, deleted.ConnectionId)

	d := dial(t, url)
	snap = d.join("r1", "dave")
	assert.Empty(t, snap.Files)
	assert.Equal(t, "", snap.ActiveFile)
}

func TestSettingsAndCursor(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)
	b := dial(t, url)
	aSnap := a.join("r1", "alice")
	b.join("r1", "bob")
	a.expect(types.WireMessageTypePresenceChanged, nil)

	settings := types.DefaultRoomSettings()
	settings.Theme = "github"
	settings.AutoSave = false
	a.send(types.WireMessageTypeUpdateSettings, types.UpdateSettingsMessage{Room: "r1", Settings: settings})
	got := types.UpdateSettingsMessage{}
	b.expect(types.WireMessageTypeSettingsChanged, &got)
	assert.Equal(t, settings, got.Settings)
	a.expect(types.WireMessageTypeSettingsChanged, nil)

	a.send(types.WireMessageTypeCursorMove, types.CursorMoveMessage{Room: "r1", Line: 3, Column: 7})
	cursor := types.RemoteCursorMessage{}
	b.expect(types.WireMessageTypeRemoteCursor, &cursor)
	assert.Equal(t, aSnap.You.ConnectionId, cursor.ConnectionId)
	assert.Equal(t, "alice", cursor.Username)
	assert.Equal(t, 3, cursor.Line)
	assert.Equal(t, 7, cursor.Column)
}

func TestChatFilterAndHistory(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)
	b := dial(t, url)
	c := dial(t, url)
	a.join("r1", "alice")
	b.join("r1", "bob")
	a.expect(types.WireMessageTypePresenceChanged, nil)
	c.join("r1", "carol")
	a.expect(types.WireMessageTypePresenceChanged, nil)
	b.expect(types.WireMessageTypePresenceChanged, nil)

	a.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "psst bob", Filter: `Target.Username == "bob"`})
	a.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "hello all"})
	a.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "broken", Filter: `Target.Nick ==`})
	a.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "   "})

	msg := types.ChatMessage{}
	a.expect(types.WireMessageTypeChat, &msg)
	assert.Equal(t, "psst bob", msg.Message)
	assert.Equal(t, "alice", msg.Username)
	assert.NotEmpty(t, msg.Id)
	assert.False(t, msg.Timestamp.IsZero())
	a.expect(types.WireMessageTypeChat, &msg)
	assert.Equal(t, "hello all", msg.Message)
	a.expectError(types.ErrorCodeBadRequest, types.WireMessageTypeChat, "")

	b.expect(types.WireMessageTypeChat, &msg)
	assert.Equal(t, "psst bob", msg.Message)
	b.expect(types.WireMessageTypeChat, &msg)
	assert.Equal(t, "hello all", msg.Message)

	c.expect(types.WireMessageTypeChat, &msg)
	assert.Equal(t, "hello all", msg.Message)

	d := dial(t, url)
	d.send(types.WireMessageTypeJoin, types.JoinMessage{Room: "r1", Username: "dave"})
	d.expect(types.WireMessageTypeRoomSnapshot, nil)
	history := types.ChatHistoryMessage{}
	d.expect(types.WireMessageTypeChatHistory, &history)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "hello all", history.Messages[0].Message)

	e := dial(t, url)
	e.send(types.WireMessageTypeJoin, types.JoinMessage{Room: "r1", Username: "bob"})
	e.expect(types.WireMessageTypeRoomSnapshot, nil)
	e.expect(types.WireMessageTypeChatHistory, &history)
	assert.Len(t, history.Messages, 2)
}

type fakeExecutor struct{}

func (fakeExecutor) Run(ctx context.Context, req plugins.ExecutionRequest) (plugins.ExecutionResult, error) {
	return plugins.ExecutionResult{Output: "ran " + req.Filename + ": " + req.Code + req.Stdin, ExitCode: 0}, nil
}

type fakeAssistant struct{}

func (fakeAssistant) Chat(ctx context.Context, req plugins.CompletionRequest) (string, error) {
	return "looks good: " + req.Prompt, nil
}

func TestExecuteAndAI(t *testing.T) {
	collaborators := &plugins.Collaborators{Executor: fakeExecutor{}, Assistant: fakeAssistant{}}
	_, url := newTestServer(t, testConfig(), nil, collaborators)
	a := dial(t, url)
	a.join("r1", "alice")
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "main.py", Content: "print(1)"})
	a.expect(types.WireMessageTypeFileCreated, nil)

	a.send(types.WireMessageTypeExecuteCode, types.ExecuteCodeMessage{Room: "r1", Filename: "main.py", Stdin: "!", RequestId: "req-1"})
	out := types.CodeOutputMessage{}
	a.expect(types.WireMessageTypeCodeOutput, &out)
	assert.Equal(t, types.CodeOutputMessage{Room: "r1", Filename: "main.py", RequestId: "req-1", Output: "ran main.py: print(1)!"}, out)

	a.send(types.WireMessageTypeAIReview, types.AIRequestMessage{Room: "r1", Filename: "main.py", RequestId: "req-2"})
	res := types.AIResponseMessage{}
	a.expect(types.WireMessageTypeAIResponse, &res)
	assert.Equal(t, "req-2", res.RequestId)
	assert.Equal(t, types.AIKindReview, res.Kind)
	assert.False(t, res.Error)
	assert.Contains(t, res.Content, "print(1)")

	a.send(types.WireMessageTypeExecuteCode, types.ExecuteCodeMessage{Room: "r1", Filename: "missing.py", RequestId: "req-3"})
	a.expect(types.WireMessageTypeCodeOutput, &out)
	assert.True(t, out.Error)
	assert.Equal(t, "req-3", out.RequestId)
}

func TestCollaboratorsNotConfigured(t *testing.T) {
	_, url := newTestServer(t, testConfig(), nil, nil)
	a := dial(t, url)
	a.join("r1", "alice")
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "main.py"})
	a.expect(types.WireMessageTypeFileCreated, nil)

	a.send(types.WireMessageTypeExecuteCode, types.ExecuteCodeMessage{Room: "r1", Filename: "main.py", RequestId: "req-1"})
	out := types.CodeOutputMessage{}
	a.expect(types.WireMessageTypeCodeOutput, &out)
	assert.True(t, out.Error)
	assert.Equal(t, "code execution is not configured", out.Output)

	a.send(types.WireMessageTypeAIExplain, types.AIRequestMessage{Room: "r1", Filename: "main.py", Code: "x", RequestId: "req-2"})
	res := types.AIResponseMessage{}
	a.expect(types.WireMessageTypeAIResponse, &res)
	assert.True(t, res.Error)
	assert.Equal(t, types.AIKindExplain, res.Kind)
}

func newMemoryPersister(t *testing.T) persistence.Persister {
	t.Helper()
	p, err := persistence.NewPersister(&config.Config{PersistenceConfig: config.PersistenceConfig{Type: "buntdb", DSN: ":memory:"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestSaveFile(t *testing.T) {
	persister := newMemoryPersister(t)
	_, url := newTestServer(t, testConfig(), persister, nil)
	a := dial(t, url)
	a.join("r1", "alice")
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "main.py", Content: "v1"})
	a.expect(types.WireMessageTypeFileCreated, nil)
	a.send(types.WireMessageTypeContentUpdate, types.ContentUpdateMessage{Room: "r1", Filename: "main.py", Content: "v2"})
	a.send(types.WireMessageTypeSaveFile, types.SaveFileMessage{Room: "r1", Filename: "main.py"})
	saved := types.FileSavedMessage{}
	a.expect(types.WireMessageTypeFileSaved, &saved)
	assert.True(t, saved.Ok)

	f, err := persister.LoadFile("r1", "main.py")
	require.NoError(t, err)
	assert.Equal(t, "v2", f.Content)

	a.send(types.WireMessageTypeSaveFile, types.SaveFileMessage{Room: "r1", Filename: "missing.py"})
	a.expect(types.WireMessageTypeFileSaved, &saved)
	assert.False(t, saved.Ok)
	assert.NotEmpty(t, saved.Error)
}

func TestIdleRoomEvictionFlushes(t *testing.T) {
	persister := newMemoryPersister(t)
	cfg := testConfig()
	cfg.RoomsConfig.IdleRooms = 1
	registry, url := newTestServer(t, cfg, persister, nil)

	a := dial(t, url)
	a.join("r1", "alice")
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "main.py", Content: "v1"})
	a.expect(types.WireMessageTypeFileCreated, nil)
	a.send(types.WireMessageTypeContentUpdate, types.ContentUpdateMessage{Room: "r1", Filename: "main.py", Content: "unsaved"})
	a.send(types.WireMessageTypeChat, types.ChatMessage{Room: "r1", Message: "bye"})
	a.expect(types.WireMessageTypeChat, nil)

	files, err := registry.Files("r1")
	require.NoError(t, err)
	assert.Equal(t, "unsaved", files[0].Content)

	require.NoError(t, a.conn.Close())
	require.Eventually(t, func() bool {
		registry.Lock()
		defer registry.Unlock()
		return registry.idle.Contains("r1")
	}, readTimeout, 10*time.Millisecond)

	// a second idle room pushes r1 out of the cache
	b := dial(t, url)
	b.join("r2", "bob")
	require.NoError(t, b.conn.Close())
	require.Eventually(t, func() bool {
		rooms := registry.Rooms()
		return len(rooms) == 1 && rooms[0] == "r2"
	}, readTimeout, 10*time.Millisecond)

	f, err := persister.LoadFile("r1", "main.py")
	require.NoError(t, err)
	assert.Equal(t, "unsaved", f.Content)

	// the next join loads the room again, chat history included
	c := dial(t, url)
	c.send(types.WireMessageTypeJoin, types.JoinMessage{Room: "r1", Username: "carol"})
	snap := types.RoomSnapshot{}
	c.expect(types.WireMessageTypeRoomSnapshot, &snap)
	assert.Equal(t, "unsaved", snap.Files["main.py"].Content)
	history := types.ChatHistoryMessage{}
	c.expect(types.WireMessageTypeChatHistory, &history)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "bye", history.Messages[0].Message)

	files, err = registry.Files("r9")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRegistryFile(t *testing.T) {
	persister := newMemoryPersister(t)
	require.NoError(t, persister.SaveFile("stored", types.File{Name: "old.go", Content: "package old", Language: types.LanguageGo}))
	registry, url := newTestServer(t, testConfig(), persister, nil)
	a := dial(t, url)
	a.join("r1", "alice")
	a.send(types.WireMessageTypeCreateFile, types.CreateFileMessage{Room: "r1", Filename: "src/main.py", Content: "print(1)"})
	a.expect(types.WireMessageTypeFileCreated, nil)

	f, err := registry.File("r1", "src/main.py")
	require.NoError(t, err)
	assert.Equal(t, types.File{Name: "src/main.py", Content: "print(1)", Language: types.LanguagePython}, f)
	_, err = registry.File("r1", "missing.py")
	assert.True(t, errors.Is(err, room.ErrFileNotFound))

	// rooms that are not running are read from the persister
	f, err = registry.File("stored", "old.go")
	require.NoError(t, err)
	assert.Equal(t, "package old", f.Content)
	_, err = registry.File("stored", "missing.go")
	assert.True(t, errors.Is(err, room.ErrFileNotFound))
}
