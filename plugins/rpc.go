package plugins

import (
	"context"
	"net/rpc"
	"time"

	"github.com/hashicorp/go-plugin"
)

// ExecutorPlugin is the implementation of plugin.Plugin so we can serve/consume an Executor over net/rpc.
type ExecutorPlugin struct {
	// Concrete implementation, only used on the plugin side.
	Impl Executor
}

func (p *ExecutorPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &ExecutorRPCServer{Impl: p.Impl}, nil
}

func (*ExecutorPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &ExecutorRPC{client: c}, nil
}

var _ plugin.Plugin = &ExecutorPlugin{}

// ExecutorRPC is the host side of the executor plugin.
type ExecutorRPC struct {
	client *rpc.Client
}

func (e *ExecutorRPC) Run(ctx context.Context, req ExecutionRequest) (ExecutionResult, error) {
	if deadline, ok := ctx.Deadline(); ok && req.Timeout == 0 {
		req.Timeout = time.Until(deadline)
	}
	resp := ExecutionResult{}
	call := e.client.Go("Plugin.Run", req, &resp, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		return resp, call.Error
	case <-ctx.Done():
		return ExecutionResult{}, ctx.Err()
	}
}

var _ Executor = &ExecutorRPC{}

// ExecutorRPCServer is the plugin side of the executor plugin.
type ExecutorRPCServer struct {
	Impl Executor
}

func (s *ExecutorRPCServer) Run(req ExecutionRequest, resp *ExecutionResult) error {
	ctx, cancel := requestContext(req.Timeout)
	defer cancel()
	res, err := s.Impl.Run(ctx, req)
	*resp = res
	return err
}

// AssistantPlugin is the implementation of plugin.Plugin so we can serve/consume an Assistant over net/rpc.
type AssistantPlugin struct {
	Impl Assistant
}

func (p *AssistantPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &AssistantRPCServer{Impl: p.Impl}, nil
}

func (*AssistantPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &AssistantRPC{client: c}, nil
}

var _ plugin.Plugin = &AssistantPlugin{}

type AssistantRPC struct {
	client *rpc.Client
}

// AssistantArgs adds the deadline to the request, net/rpc does not carry contexts.
type AssistantArgs struct {
	Request CompletionRequest
	Timeout time.Duration
}

func (a *AssistantRPC) Chat(ctx context.Context, req CompletionRequest) (string, error) {
	args := AssistantArgs{Request: req}
	if deadline, ok := ctx.Deadline(); ok {
		args.Timeout = time.Until(deadline)
	}
	var resp string
	call := a.client.Go("Plugin.Chat", args, &resp, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		return resp, call.Error
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var _ Assistant = &AssistantRPC{}

type AssistantRPCServer struct {
	Impl Assistant
}

func (s *AssistantRPCServer) Chat(args AssistantArgs, resp *string) error {
	ctx, cancel := requestContext(args.Timeout)
	defer cancel()
	res, err := s.Impl.Chat(ctx, args.Request)
	*resp = res
	return err
}

func requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}
