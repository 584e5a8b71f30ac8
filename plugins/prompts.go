package plugins

import (
	"fmt"
	"strings"

	"github.com/tcriess/lightspeed-code/types"
)

var systemPrompts = map[string]string{
	types.AIKindSuggestion: "You are an intelligent coding assistant. Complete or improve the code intelligently. Return only code.",
	types.AIKindReview:     "Analyze the code for bugs, errors, or issues. Provide specific fixes.",
	types.AIKindExplain:    "Explain the following code clearly and concisely. Break down complex logic.",
}

var taskPrompts = map[string]string{
	types.AIKindSuggestion: "Suggest the next lines for this file.",
	types.AIKindReview:     "Review this file.",
	types.AIKindExplain:    "Explain this file.",
}

// IsAIKind reports whether kind is one of the supported ai_* request kinds.
func IsAIKind(kind string) bool {
	_, ok := systemPrompts[kind]
	return ok
}

// BuildCompletion turns an ai_* request into the prompt for the assistant, the code is appended as a fenced block.
func BuildCompletion(kind string, req types.AIRequestMessage) (CompletionRequest, error) {
	system, ok := systemPrompts[kind]
	if !ok {
		return CompletionRequest{}, fmt.Errorf("unknown ai request kind %q", kind)
	}
	language := req.Language
	if language == "" {
		language = types.LanguageText
	}
	sb := strings.Builder{}
	sb.WriteString(taskPrompts[kind])
	if req.Filename != "" {
		sb.WriteString(" (")
		sb.WriteString(req.Filename)
		sb.WriteString(")")
	}
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Code (%s):\n```\n%s\n```\n", language, req.Code)
	return CompletionRequest{System: system, Prompt: sb.String()}, nil
}

// SplitCompletion recovers the request kind, language and code from a prompt built by BuildCompletion.
// ok is false for prompts of any other shape.
func SplitCompletion(req CompletionRequest) (kind string, language types.Language, code string, ok bool) {
	for k, system := range systemPrompts {
		if system == req.System {
			kind = k
		}
	}
	if kind == "" {
		return "", "", "", false
	}
	idx := strings.Index(req.Prompt, "Code (")
	if idx < 0 {
		return "", "", "", false
	}
	rest := req.Prompt[idx+len("Code ("):]
	end := strings.Index(rest, "):\n```\n")
	if end < 0 {
		return "", "", "", false
	}
	language = types.Language(rest[:end])
	rest = rest[end+len("):\n```\n"):]
	fence := strings.LastIndex(rest, "\n```\n")
	if fence < 0 {
		return "", "", "", false
	}
	return kind, language, rest[:fence], true
}
