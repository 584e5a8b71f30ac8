package analysis

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcriess/lightspeed-code/types"
)

func TestMetrics(t *testing.T) {
	code := "# add numbers\ndef add(a, b):\n\n    if a and b:\n        return a + b\n    elif a:\n        return a\n    # done\n    return b"
	m := Metrics(code, types.LanguagePython)
	assert.Equal(t, types.CodeMetrics{
		TotalLines:       9,
		CodeLines:        6,
		BlankLines:       1,
		CommentLines:     2,
		Complexity:       3,
		ComplexityRating: "Low",
	}, m)
}

func TestMetricsCountsWordsAndOperators(t *testing.T) {
	// identifiers that merely contain a keyword do not count
	code := "const verify = x => x == 1 && y || z ? notify() : elsewhere;\nif (a) { for (;;) {} } else { while (b) {} }"
	m := Metrics(code, types.LanguageJavaScript)
	assert.Equal(t, 1+3+4, m.Complexity)
	assert.Equal(t, 2, m.CodeLines)
}

func TestMetricsText(t *testing.T) {
	m := Metrics("# heading\n\nsome text", types.LanguageText)
	assert.Equal(t, 2, m.CodeLines)
	assert.Equal(t, 0, m.CommentLines)
}

func TestRating(t *testing.T) {
	assert.Equal(t, "Low", Rating(9))
	assert.Equal(t, "Medium", Rating(10))
	assert.Equal(t, "Medium", Rating(19))
	assert.Equal(t, "High", Rating(20))
}

func TestSuggestions(t *testing.T) {
	py := Suggestions("from os import *\nresult = eval(x)  # TODO remove", types.LanguagePython)
	assert.Equal(t, []types.Suggestion{
		{Type: types.SuggestionWarning, Message: "Avoid wildcard imports (import *)"},
		{Type: types.SuggestionSecurity, Message: "Avoid using exec() or eval() - security risk"},
		{Type: types.SuggestionInfo, Message: "Contains TODO/FIXME comments"},
	}, py)

	js := Suggestions("var a = 1;\nif (a == 1) {}", types.LanguageJavaScript)
	assert.Equal(t, []types.Suggestion{
		{Type: types.SuggestionInfo, Message: "Consider using let/const instead of var"},
		{Type: types.SuggestionWarning, Message: "Use === for strict equality comparison"},
	}, js)
	assert.Empty(t, Suggestions("let a = 1;\nif (a === 1) {}", types.LanguageJavaScript))
	assert.Empty(t, Suggestions("evaluate()", types.LanguagePython))
}

func TestSuggestionsLongLines(t *testing.T) {
	long := strings.Repeat("x", 101)
	lines := []string{"short", long, long, "short", long, long, long, long}
	res := Suggestions(strings.Join(lines, "\n"), types.LanguageGo)
	require.Len(t, res, 1)
	assert.Equal(t, types.Suggestion{Type: types.SuggestionStyle, Message: "Long lines detected: [2, 3, 5, 6, 7]"}, res[0])
}

func TestSnippets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "go.json"), []byte(`[{"name":"main","code":"func main() {}\n"}]`), 0o600))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "rust.json"), []byte(`not json`), 0o600))
	s, err := NewSnippets(dir, hclog.NewNullLogger())
	require.NoError(t, err)

	assert.Equal(t, []Snippet{{Name: "main", Code: "func main() {}\n"}}, s.Get(types.LanguageGo))
	assert.Len(t, s.Get(types.LanguagePython), 4)
	assert.Equal(t, []Snippet{}, s.Get(types.LanguageRust))
	assert.Equal(t, []Snippet{}, s.Get(types.LanguageCSS))

	// cached after the first read
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "go.json"), []byte(`[]`), 0o600))
	assert.Len(t, s.Get(types.LanguageGo), 1)
}

func TestSnippetsWithoutDir(t *testing.T) {
	s, err := NewSnippets("", hclog.NewNullLogger())
	require.NoError(t, err)
	assert.Equal(t, "function", s.Get(types.LanguageJavaScript)[0].Name)
}
