package plugins

import (
	"context"
	"net"
	"net/rpc"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcriess/lightspeed-code/types"
)

type fakeExecutor struct {
	block       chan struct{}
	hadDeadline bool
}

func (f *fakeExecutor) Run(ctx context.Context, req ExecutionRequest) (ExecutionResult, error) {
	_, f.hadDeadline = ctx.Deadline()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return ExecutionResult{Output: strings.ToUpper(req.Code) + req.Stdin, ExitCode: 3, Error: true}, nil
}

type fakeAssistant struct{}

func (fakeAssistant) Chat(ctx context.Context, req CompletionRequest) (string, error) {
	return req.System + "|" + req.Prompt, nil
}

// connect serves impl the way the plugin side does and returns a client for it.
func connect(t *testing.T, impl interface{}) *rpc.Client {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("Plugin", impl))
	serverConn, clientConn := net.Pipe()
	go server.ServeConn(serverConn)
	client := rpc.NewClient(clientConn)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestExecutorRPC(t *testing.T) {
	impl := &fakeExecutor{}
	executor := &ExecutorRPC{client: connect(t, &ExecutorRPCServer{Impl: impl})}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := executor.Run(ctx, ExecutionRequest{Language: types.LanguagePython, Filename: "main.py", Code: "print", Stdin: "!"})
	require.NoError(t, err)
	assert.Equal(t, ExecutionResult{Output: "PRINT!", Error: true, ExitCode: 3}, res)
	assert.True(t, impl.hadDeadline)
}

func TestExecutorRPCCancelled(t *testing.T) {
	impl := &fakeExecutor{block: make(chan struct{})}
	defer close(impl.block)
	executor := &ExecutorRPC{client: connect(t, &ExecutorRPCServer{Impl: impl})}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := executor.Run(ctx, ExecutionRequest{Code: "loop", Timeout: time.Minute})
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestAssistantRPC(t *testing.T) {
	assistant := &AssistantRPC{client: connect(t, &AssistantRPCServer{Impl: fakeAssistant{}})}
	res, err := assistant.Chat(context.Background(), CompletionRequest{System: "sys", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "sys|hello", res)
}

func TestBuildCompletion(t *testing.T) {
	req := types.AIRequestMessage{Room: "r1", Filename: "main.py", Language: types.LanguagePython, Code: "print(1)"}
	c, err := BuildCompletion(types.AIKindReview, req)
	require.NoError(t, err)
	assert.Equal(t, systemPrompts[types.AIKindReview], c.System)
	assert.Contains(t, c.Prompt, "Review this file. (main.py)")
	assert.Contains(t, c.Prompt, "Code (python):\n```\nprint(1)\n```\n")

	req.Language = ""
	c, err = BuildCompletion(types.AIKindExplain, req)
	require.NoError(t, err)
	assert.Contains(t, c.Prompt, "Code (text):")

	_, err = BuildCompletion("translate", req)
	assert.Error(t, err)
	assert.False(t, IsAIKind("translate"))
	assert.True(t, IsAIKind(types.AIKindSuggestion))
}

func TestSplitCompletion(t *testing.T) {
	code := "def f():\n    return \"```\"\n"
	req := types.AIRequestMessage{Filename: "main.py", Language: types.LanguagePython, Code: code}
	c, err := BuildCompletion(types.AIKindReview, req)
	require.NoError(t, err)
	kind, language, got, ok := SplitCompletion(c)
	require.True(t, ok)
	assert.Equal(t, types.AIKindReview, kind)
	assert.Equal(t, types.LanguagePython, language)
	assert.Equal(t, code, got)

	_, _, _, ok = SplitCompletion(CompletionRequest{System: "sys", Prompt: "hello"})
	assert.False(t, ok)
	_, _, _, ok = SplitCompletion(CompletionRequest{System: c.System, Prompt: "hello"})
	assert.False(t, ok)
}
