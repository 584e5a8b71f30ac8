package plugins

import (
	"context"
	"time"

	"github.com/hashicorp/go-plugin"
	"github.com/tcriess/lightspeed-code/types"
)

/*
Collaborators shared by all room hubs: the code execution sandbox and the AI assistant.
*/

// Handshake is a common handshake that is shared by plugin and host.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "LIGHTSPEED_CODE_PLUGIN",
	MagicCookieValue: "5b1c07d2a4e94c1f0f7a3d6a2e31c8b9d0472ea61f53b8c2e7d9a4f01c6b3e85",
}

const (
	ExecutorPluginName  = "executor"
	AssistantPluginName = "assistant"
)

// PluginMap is the map of plugins we can dispense.
var PluginMap = map[string]plugin.Plugin{
	ExecutorPluginName:  &ExecutorPlugin{},
	AssistantPluginName: &AssistantPlugin{},
}

// ExecutionRequest is the code of one file to run. Timeout is filled in from the caller's context deadline when
// the request crosses the plugin boundary.
type ExecutionRequest struct {
	Language types.Language
	Filename string
	Code     string
	Stdin    string
	Timeout  time.Duration
}

// ExecutionResult is the combined stdout/stderr of a run. Error is set for compile errors, non-zero exit codes and
// timeouts.
type ExecutionResult struct {
	Output   string
	Error    bool
	ExitCode int
}

// Executor runs code in a sandbox.
type Executor interface {
	Run(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)
}

// CompletionRequest is a single prompt with its system instruction.
type CompletionRequest struct {
	System string
	Prompt string
}

// Assistant answers a prompt.
type Assistant interface {
	Chat(ctx context.Context, req CompletionRequest) (string, error)
}
