package analysis

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tcriess/lightspeed-code/types"
)

const snippetCacheSize = 32

type Snippet struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

var defaultSnippets = map[types.Language][]Snippet{
	types.LanguagePython: {
		{Name: "function", Code: "def function_name(param):\n    pass\n"},
		{Name: "class", Code: "class ClassName:\n    def __init__(self):\n        pass\n"},
		{Name: "for loop", Code: "for item in items:\n    pass\n"},
		{Name: "if-else", Code: "if condition:\n    pass\nelse:\n    pass\n"},
	},
	types.LanguageJavaScript: {
		{Name: "function", Code: "function functionName(param) {\n    \n}\n"},
		{Name: "arrow function", Code: "const functionName = (param) => {\n    \n};\n"},
		{Name: "class", Code: "class ClassName {\n    constructor() {\n        \n    }\n}\n"},
		{Name: "for loop", Code: "for (let i = 0; i < array.length; i++) {\n    \n}\n"},
	},
}

// Snippets serves code snippets per language. A file <dir>/<language>.json replaces the built-in snippets of
// that language, parsed files are cached.
type Snippets struct {
	dir    string
	cache  *lru.Cache
	logger hclog.Logger
}

func NewSnippets(dir string, logger hclog.Logger) (*Snippets, error) {
	cache, err := lru.New(snippetCacheSize)
	if err != nil {
		return nil, err
	}
	return &Snippets{dir: dir, cache: cache, logger: logger}, nil
}

// Get returns the snippets of lang, an empty list for languages without snippets.
func (s *Snippets) Get(lang types.Language) []Snippet {
	if s.dir != "" {
		if cached, ok := s.cache.Get(lang); ok {
			return cached.([]Snippet)
		}
		if snippets, ok := s.load(lang); ok {
			s.cache.Add(lang, snippets)
			return snippets
		}
	}
	if snippets, ok := defaultSnippets[lang]; ok {
		return snippets
	}
	return []Snippet{}
}

func (s *Snippets) load(lang types.Language) ([]Snippet, bool) {
	raw, err := ioutil.ReadFile(filepath.Join(s.dir, string(lang)+".json"))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read snippets", "language", lang, "error", err)
		}
		return nil, false
	}
	snippets := make([]Snippet, 0)
	if err := json.Unmarshal(raw, &snippets); err != nil {
		s.logger.Warn("invalid snippets file", "language", lang, "error", err)
		return nil, false
	}
	return snippets, true
}
