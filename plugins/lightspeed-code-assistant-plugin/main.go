package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/mitchellh/mapstructure"
	"github.com/tcriess/lightspeed-code/analysis"
	"github.com/tcriess/lightspeed-code/plugins"
	"github.com/tcriess/lightspeed-code/types"
)

const (
	pluginName = "assistant"
	envPrefix  = "LSCODE_ASSISTANT_"
)

type config struct {
	LogLevel string `mapstructure:"log_level"`
	// MaxFindings caps the number of findings in a review, 0 means no cap.
	MaxFindings int `mapstructure:"max_findings"`
}

var (
	pluginConfig = config{LogLevel: "INFO"}
)

var appLogger = hclog.New(&hclog.LoggerOptions{
	Name:  pluginName,
	Level: hclog.LevelFromString("DEBUG"),
})

// readConfig picks up LSCODE_ASSISTANT_* variables, e.g. LSCODE_ASSISTANT_MAX_FINDINGS=3.
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

// Assistant answers ai_* requests offline from the static code analysis.
type Assistant struct{}

func (a *Assistant) Chat(ctx context.Context, req plugins.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind, language, code, ok := plugins.SplitCompletion(req)
	if !ok {
		appLogger.Debug("unrecognized prompt", "system", req.System)
		return "", fmt.Errorf("unsupported prompt")
	}
	appLogger.Debug("in Chat", "kind", kind, "language", language)
	switch kind {
	case types.AIKindReview:
		return review(language, code), nil
	case types.AIKindExplain:
		return explain(language, code), nil
	default:
		return suggest(language, code), nil
	}
}

func review(language types.Language, code string) string {
	_, suggestions := analysis.Analyze(code, language)
	if len(suggestions) == 0 {
		return "No issues found."
	}
	if pluginConfig.MaxFindings > 0 && len(suggestions) > pluginConfig.MaxFindings {
		suggestions = suggestions[:pluginConfig.MaxFindings]
	}
	sb := strings.Builder{}
	for _, s := range suggestions {
		fmt.Fprintf(&sb, "- [%s] %s\n", s.Type, s.Message)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func explain(language types.Language, code string) string {
	metrics, _ := analysis.Analyze(code, language)
	return fmt.Sprintf("This %s code has %d lines (%d code, %d comment, %d blank). Cyclomatic complexity is %d (%s).",
		language, metrics.TotalLines, metrics.CodeLines, metrics.CommentLines, metrics.BlankLines,
		metrics.Complexity, metrics.ComplexityRating)
}

// suggest starts empty files from the language template, anything else is returned unchanged.
func suggest(language types.Language, code string) string {
	if strings.TrimSpace(code) == "" {
		return types.Template(language)
	}
	return code
}

func main() {
	if err := readConfig(os.Environ()); err != nil {
		appLogger.Error("could not read configuration", "error", err)
	}
	appLogger.SetLevel(hclog.LevelFromString(pluginConfig.LogLevel))
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: plugins.Handshake,
		Plugins: map[string]plugin.Plugin{
			plugins.AssistantPluginName: &plugins.AssistantPlugin{Impl: &Assistant{}},
		},
	})
}
