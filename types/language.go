package types

import (
	"path"
	"strings"
)

// Language is the syntax/runtime of a file. The set is closed, anything unknown is LanguageText.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageHTML       Language = "html"
	LanguageCSS        Language = "css"
	LanguageText       Language = "text"
)

var languages = []Language{
	LanguagePython,
	LanguageJavaScript,
	LanguageJava,
	LanguageC,
	LanguageCPP,
	LanguageGo,
	LanguageRust,
	LanguageHTML,
	LanguageCSS,
	LanguageText,
}

var extensionMap = map[string]Language{
	".py":   LanguagePython,
	".js":   LanguageJavaScript,
	".mjs":  LanguageJavaScript,
	".java": LanguageJava,
	".c":    LanguageC,
	".h":    LanguageC,
	".cpp":  LanguageCPP,
	".cc":   LanguageCPP,
	".hpp":  LanguageCPP,
	".go":   LanguageGo,
	".rs":   LanguageRust,
	".html": LanguageHTML,
	".htm":  LanguageHTML,
	".css":  LanguageCSS,
	".txt":  LanguageText,
}

var templates = map[Language]string{
	LanguagePython:     "# Python code\nprint(\"Hello, World!\")\n",
	LanguageJavaScript: "// JavaScript code\nconsole.log(\"Hello, World!\");\n",
	LanguageJava:       "public class Main {\n    public static void main(String[] args) {\n        System.out.println(\"Hello, World!\");\n    }\n}\n",
	LanguageC:          "#include <stdio.h>\n\nint main() {\n    printf(\"Hello, World!\\n\");\n    return 0;\n}\n",
	LanguageCPP:        "#include <iostream>\nusing namespace std;\n\nint main() {\n    cout << \"Hello, World!\" << endl;\n    return 0;\n}\n",
	LanguageGo:         "package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, World!\")\n}\n",
	LanguageRust:       "fn main() {\n    println!(\"Hello, World!\");\n}\n",
	LanguageHTML:       "<!DOCTYPE html>\n<html>\n<head>\n    <title>Document</title>\n</head>\n<body>\n    <h1>Hello, World!</h1>\n</body>\n</html>\n",
	LanguageCSS:        "/* CSS code */\nbody {\n    font-family: Arial, sans-serif;\n}\n",
}

// Languages returns all supported languages.
func Languages() []Language {
	res := make([]Language, len(languages))
	copy(res, languages)
	return res
}

// DetectLanguage derives the language from the extension of filename (case-insensitive).
func DetectLanguage(filename string) Language {
	ext := strings.ToLower(path.Ext(filename))
	if lang, ok := extensionMap[ext]; ok {
		return lang
	}
	return LanguageText
}

// ParseLanguage returns the Language named by s; ok is false if s is not one of the supported languages.
func ParseLanguage(s string) (Language, bool) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, lang := range languages {
		if lang == l {
			return lang, true
		}
	}
	return "", false
}

// ResolveLanguage returns the explicit language if it is valid, the language inferred from filename otherwise.
func ResolveLanguage(filename string, explicit Language) Language {
	if lang, ok := ParseLanguage(string(explicit)); ok {
		return lang
	}
	return DetectLanguage(filename)
}

// Template is the initial content of a new, empty file in the given language ("" for text).
func Template(lang Language) string {
	return templates[lang]
}

var commentMarkers = map[Language]string{
	LanguagePython:     "#",
	LanguageJavaScript: "//",
	LanguageJava:       "//",
	LanguageC:          "//",
	LanguageCPP:        "//",
	LanguageGo:         "//",
	LanguageRust:       "//",
	LanguageHTML:       "<!--",
	LanguageCSS:        "/*",
}

var extensions = map[Language]string{
	LanguagePython:     ".py",
	LanguageJavaScript: ".js",
	LanguageJava:       ".java",
	LanguageC:          ".c",
	LanguageCPP:        ".cpp",
	LanguageGo:         ".go",
	LanguageRust:       ".rs",
	LanguageHTML:       ".html",
	LanguageCSS:        ".css",
	LanguageText:       ".txt",
}

var editorModes = map[Language]string{
	LanguageC:   "c_cpp",
	LanguageCPP: "c_cpp",
	LanguageGo:  "golang",
}

// CommentMarker is the token that starts a line comment, "" for text.
func CommentMarker(lang Language) string {
	return commentMarkers[lang]
}

// LanguageInfo describes a language for editors.
type LanguageInfo struct {
	Name       Language `json:"name"`
	Extension  string   `json:"extension"`
	EditorMode string   `json:"ace_mode"`
	Executable bool     `json:"executable"`
}

// Runnable reports whether code in lang can be executed at all, markup is only rendered.
func Runnable(lang Language) bool {
	switch lang {
	case LanguageHTML, LanguageCSS, LanguageText:
		return false
	}
	return true
}

// LanguageInfos lists all languages. Executable is only set if executable is true, i.e. an executor is available.
func LanguageInfos(executable bool) []LanguageInfo {
	res := make([]LanguageInfo, 0, len(languages))
	for _, lang := range languages {
		info := LanguageInfo{Name: lang, Extension: extensions[lang], EditorMode: string(lang), Executable: executable && Runnable(lang)}
		if mode, ok := editorModes[lang]; ok {
			info.EditorMode = mode
		}
		res = append(res, info)
	}
	return res
}
