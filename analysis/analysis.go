package analysis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tcriess/lightspeed-code/types"
)

const (
	longLine        = 100
	maxReportedLine = 5
)

var decisionKeywords = map[string]struct{}{
	"if":     {},
	"else":   {},
	"elif":   {},
	"for":    {},
	"while":  {},
	"switch": {},
	"case":   {},
	"catch":  {},
}

var (
	wordRegexp     = regexp.MustCompile(`[A-Za-z_]\w*`)
	operatorRegexp = regexp.MustCompile(`&&|\|\||\?`)
	evalRegexp     = regexp.MustCompile(`\bexec\b|\beval\b`)
)

// Analyze counts lines and decision points of code and collects simple suggestions for it.
func Analyze(code string, language types.Language) (types.CodeMetrics, []types.Suggestion) {
	return Metrics(code, language), Suggestions(code, language)
}

// Metrics classifies every line as blank, comment or code. A line counts as comment if it starts with the
// line comment marker of the language.
func Metrics(code string, language types.Language) types.CodeMetrics {
	lines := strings.Split(code, "\n")
	m := types.CodeMetrics{TotalLines: len(lines)}
	marker := types.CommentMarker(language)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			m.BlankLines++
		case marker != "" && strings.HasPrefix(trimmed, marker):
			m.CommentLines++
		default:
			m.CodeLines++
		}
	}
	m.Complexity = 1
	for _, word := range wordRegexp.FindAllString(strings.ToLower(code), -1) {
		if _, ok := decisionKeywords[word]; ok {
			m.Complexity++
		}
	}
	m.Complexity += len(operatorRegexp.FindAllString(code, -1))
	m.ComplexityRating = Rating(m.Complexity)
	return m
}

func Rating(complexity int) string {
	switch {
	case complexity < 10:
		return "Low"
	case complexity < 20:
		return "Medium"
	}
	return "High"
}

func Suggestions(code string, language types.Language) []types.Suggestion {
	res := make([]types.Suggestion, 0)
	switch language {
	case types.LanguagePython:
		if strings.Contains(code, "import *") {
			res = append(res, types.Suggestion{Type: types.SuggestionWarning, Message: "Avoid wildcard imports (import *)"})
		}
		if evalRegexp.MatchString(code) {
			res = append(res, types.Suggestion{Type: types.SuggestionSecurity, Message: "Avoid using exec() or eval() - security risk"})
		}
		if strings.Contains(code, "TODO") || strings.Contains(code, "FIXME") {
			res = append(res, types.Suggestion{Type: types.SuggestionInfo, Message: "Contains TODO/FIXME comments"})
		}
	case types.LanguageJavaScript:
		if strings.Contains(code, "var ") {
			res = append(res, types.Suggestion{Type: types.SuggestionInfo, Message: "Consider using let/const instead of var"})
		}
		if strings.Contains(code, "==") && !strings.Contains(code, "===") {
			res = append(res, types.Suggestion{Type: types.SuggestionWarning, Message: "Use === for strict equality comparison"})
		}
	}
	long := make([]string, 0, maxReportedLine)
	for i, line := range strings.Split(code, "\n") {
		if len(line) > longLine {
			long = append(long, strconv.Itoa(i+1))
			if len(long) == maxReportedLine {
				break
			}
		}
	}
	if len(long) > 0 {
		res = append(res, types.Suggestion{Type: types.SuggestionStyle, Message: fmt.Sprintf("Long lines detected: [%s]", strings.Join(long, ", "))})
	}
	return res
}
