package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/mitchellh/mapstructure"
	"github.com/tcriess/lightspeed-code/plugins"
	"github.com/tcriess/lightspeed-code/types"
)

const (
	pluginName       = "exec"
	envPrefix        = "LSCODE_EXEC_"
	defaultMaxOutput = 64 * 1024
)

type config struct {
	LogLevel  string `mapstructure:"log_level"`
	MaxOutput int    `mapstructure:"max_output"`
	WorkDir   string `mapstructure:"work_dir"`
}

var (
	pluginConfig = config{LogLevel: "INFO", MaxOutput: defaultMaxOutput}
)

var appLogger = hclog.New(&hclog.LoggerOptions{
	Name:  pluginName,
	Level: hclog.LevelFromString("DEBUG"),
})

// readConfig picks up LSCODE_EXEC_* variables, e.g. LSCODE_EXEC_MAX_OUTPUT=1024.
func readConfig(environ []string) error {
	val := make(map[string]interface{})
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(kv, envPrefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		val[strings.ToLower(parts[0])] = parts[1]
	}
	return mapstructure.WeakDecode(val, &pluginConfig)
}

// Executor runs code with the local compilers and interpreters, one temporary directory per run.
type Executor struct{}

func (e *Executor) Run(ctx context.Context, req plugins.ExecutionRequest) (plugins.ExecutionResult, error) {
	appLogger.Debug("in Run", "language", req.Language, "filename", req.Filename)
	if req.Language == types.LanguageHTML || req.Language == types.LanguageCSS {
		return plugins.ExecutionResult{Output: "HTML/CSS files are rendered in preview, not executed."}, nil
	}
	dir, err := ioutil.TempDir(pluginConfig.WorkDir, "lscode-")
	if err != nil {
		return plugins.ExecutionResult{}, err
	}
	defer os.RemoveAll(dir)

	prog, ok := newProgram(req.Language, dir, req.Code)
	if !ok {
		return plugins.ExecutionResult{Output: fmt.Sprintf("Language '%s' not supported", req.Language), Error: true}, nil
	}
	if err := ioutil.WriteFile(prog.file, []byte(req.Code), 0o600); err != nil {
		return plugins.ExecutionResult{}, err
	}
	if prog.compile != nil {
		res := execute(ctx, prog.dir, prog.compile, "")
		if res.Error {
			res.Output = "Compilation Error:\n" + res.Output
			return res, nil
		}
	}
	return execute(ctx, prog.dir, prog.run, req.Stdin), nil
}

// execute never fails, all problems end up in the output.
func execute(ctx context.Context, dir string, args []string, stdin string) plugins.ExecutionResult {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(stdin)
	stdout := bytes.Buffer{}
	stderr := bytes.Buffer{}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return plugins.ExecutionResult{Output: "Error: Execution timed out", Error: true, ExitCode: -1}
	}
	exitCode := 0
	if err != nil {
		exitErr := &exec.ExitError{}
		if !errors.As(err, &exitErr) {
			return plugins.ExecutionResult{Output: fmt.Sprintf("Error: Compiler/Interpreter not found via PATH. (%s)", err), Error: true, ExitCode: -1}
		}
		exitCode = exitErr.ExitCode()
	}
	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\n[stderr]:\n" + stderr.String()
	}
	if output == "" {
		output = "[No output]"
	}
	if pluginConfig.MaxOutput > 0 && len(output) > pluginConfig.MaxOutput {
		output = output[:pluginConfig.MaxOutput] + "\n[output truncated]"
	}
	return plugins.ExecutionResult{Output: output, Error: exitCode != 0, ExitCode: exitCode}
}

func main() {
	if err := readConfig(os.Environ()); err != nil {
		appLogger.Error("could not read configuration", "error", err)
	}
	appLogger.SetLevel(hclog.LevelFromString(pluginConfig.LogLevel))
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: plugins.Handshake,
		Plugins: map[string]plugin.Plugin{
			plugins.ExecutorPluginName: &plugins.ExecutorPlugin{Impl: &Executor{}},
		},
	})
}
