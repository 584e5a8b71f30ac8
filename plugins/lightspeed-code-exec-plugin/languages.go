package main

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tcriess/lightspeed-code/types"
)

// languageConfig describes how to run one language. Arguments may contain the placeholders {file}, {dir},
// {executable} and {classname}.
type languageConfig struct {
	extension string
	compile   []string
	run       []string
}

var languageConfigs = map[types.Language]languageConfig{
	types.LanguagePython: {
		extension: ".py",
		run:       []string{"python3", "{file}"},
	},
	types.LanguageJavaScript: {
		extension: ".js",
		run:       []string{"node", "{file}"},
	},
	types.LanguageJava: {
		extension: ".java",
		compile:   []string{"javac", "{file}"},
		run:       []string{"java", "-cp", "{dir}", "{classname}"},
	},
	types.LanguageC: {
		extension: ".c",
		compile:   []string{"gcc", "{file}", "-o", "{executable}"},
		run:       []string{"{executable}"},
	},
	types.LanguageCPP: {
		extension: ".cpp",
		compile:   []string{"g++", "{file}", "-o", "{executable}"},
		run:       []string{"{executable}"},
	},
	types.LanguageGo: {
		extension: ".go",
		run:       []string{"go", "run", "{file}"},
	},
	types.LanguageRust: {
		extension: ".rs",
		compile:   []string{"rustc", "{file}", "-o", "{executable}"},
		run:       []string{"{executable}"},
	},
}

var javaClassRegexp = regexp.MustCompile(`public\s+class\s+(\w+)`)

// program is a prepared run of one source file inside dir.
type program struct {
	dir     string
	file    string
	compile []string
	run     []string
}

func newProgram(lang types.Language, dir, code string) (program, bool) {
	cfg, ok := languageConfigs[lang]
	if !ok {
		return program{}, false
	}
	base := "code"
	classname := "program"
	if lang == types.LanguageJava {
		classname = "Main"
		if m := javaClassRegexp.FindStringSubmatch(code); m != nil {
			classname = m[1]
		}
		base = classname
	}
	p := program{dir: dir, file: filepath.Join(dir, base+cfg.extension)}
	r := strings.NewReplacer(
		"{file}", p.file,
		"{dir}", dir,
		"{executable}", filepath.Join(dir, "program"),
		"{classname}", classname,
	)
	expand := func(args []string) []string {
		if len(args) == 0 {
			return nil
		}
		res := make([]string, len(args))
		for i, arg := range args {
			res[i] = r.Replace(arg)
		}
		return res
	}
	p.compile = expand(cfg.compile)
	p.run = expand(cfg.run)
	return p, true
}
