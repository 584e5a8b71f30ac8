package room

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcriess/lightspeed-code/types"
)

func TestApplyFileCreate(t *testing.T) {
	s := New("r1")
	f, err := s.ApplyFileCreate("app.rs", "", "")
	require.NoError(t, err)
	assert.Equal(t, types.LanguageRust, f.Language)

	f, err = s.ApplyFileCreate("notes.txt", "", "")
	require.NoError(t, err)
	assert.Equal(t, types.LanguageText, f.Language)

	f, err = s.ApplyFileCreate("script", types.LanguagePython, "print(1)")
	require.NoError(t, err)
	assert.Equal(t, types.LanguagePython, f.Language)

	_, err = s.ApplyFileCreate("app.rs", "", "other")
	assert.True(t, errors.Is(err, ErrFileExists))
	got, _ := s.File("app.rs")
	assert.Equal(t, "", got.Content)
}

func TestApplyFileRenamePreservesContentAndLanguage(t *testing.T) {
	s := New("r1")
	_, err := s.ApplyFileCreate("a.py", "", "print(1)")
	require.NoError(t, err)
	require.NoError(t, s.SetActiveFile("a.py"))

	require.NoError(t, s.ApplyFileRename("a.py", "b.py"))
	_, ok := s.File("a.py")
	assert.False(t, ok)
	b, ok := s.File("b.py")
	require.True(t, ok)
	assert.Equal(t, types.File{Name: "b.py", Content: "print(1)", Language: types.LanguagePython}, b)
	assert.Equal(t, "b.py", s.ActiveFile())

	// the language follows the file, not the new extension
	require.NoError(t, s.ApplyFileRename("b.py", "b.rs"))
	b, _ = s.File("b.rs")
	assert.Equal(t, types.LanguagePython, b.Language)
}

func TestApplyFileRenameErrors(t *testing.T) {
	s := New("r1")
	_, _ = s.ApplyFileCreate("a.py", "", "")
	_, _ = s.ApplyFileCreate("b.py", "", "")
	assert.True(t, errors.Is(s.ApplyFileRename("a.py", "b.py"), ErrFileExists))
	assert.True(t, errors.Is(s.ApplyFileRename("x.py", "y.py"), ErrFileNotFound))
	assert.Equal(t, 2, s.NoFiles())
}

func TestApplyFileDeleteClearsActive(t *testing.T) {
	s := New("r1")
	_, _ = s.ApplyFileCreate("main.py", "", "x")
	_, _ = s.ApplyFileCreate("other.py", "", "y")
	require.NoError(t, s.SetActiveFile("main.py"))

	removed, err := s.ApplyFileDelete("other.py")
	require.NoError(t, err)
	assert.Equal(t, "y", removed.Content)
	assert.Equal(t, "main.py", s.ActiveFile())

	_, err = s.ApplyFileDelete("main.py")
	require.NoError(t, err)
	assert.Equal(t, "", s.ActiveFile())

	_, err = s.ApplyFileDelete("main.py")
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestApplyContentUpdateLastWriterWins(t *testing.T) {
	s := New("r1")
	_, _ = s.ApplyFileCreate("main.py", "", "")
	for _, c := range []string{"a", "ab", "x=1", "x=2"} {
		require.NoError(t, s.ApplyContentUpdate("main.py", c))
	}
	f, _ := s.File("main.py")
	assert.Equal(t, "x=2", f.Content)
	assert.True(t, errors.Is(s.ApplyContentUpdate("gone.py", "z"), ErrFileNotFound))
}

func TestApplyLanguageChange(t *testing.T) {
	s := New("r1")
	_, _ = s.ApplyFileCreate("main.txt", "", "")
	require.NoError(t, s.ApplyLanguageChange("main.txt", types.LanguageGo))
	f, _ := s.File("main.txt")
	assert.Equal(t, types.LanguageGo, f.Language)
}

func TestApplyFullStateIdempotent(t *testing.T) {
	snap := types.RoomSnapshot{
		Room: "r1",
		Files: map[string]types.File{
			"main.py": {Content: "print(1)"},
			"app.rs":  {Content: "fn main() {}", Language: types.LanguageRust},
		},
		ActiveFile: "main.py",
		Settings:   types.DefaultRoomSettings(),
	}
	s := New("r1")
	_, _ = s.ApplyFileCreate("stale.py", "", "")
	s.ApplyFullState(snap)
	first := s.Files()
	s.ApplyFullState(snap)
	assert.Equal(t, first, s.Files())
	assert.Len(t, first, 2)
	assert.Equal(t, "main.py", s.ActiveFile())
	main, _ := s.File("main.py")
	assert.Equal(t, types.LanguagePython, main.Language)
	assert.Equal(t, "main.py", main.Name)
	assert.False(t, s.HasFile("stale.py"))
}

func TestApplyFullStateUnknownActiveFile(t *testing.T) {
	s := New("r1")
	s.ApplyFullState(types.RoomSnapshot{Files: map[string]types.File{}, ActiveFile: "missing.py"})
	assert.Equal(t, "", s.ActiveFile())
}

// The mirror fed the relay's events in order must equal the relay's state.
func TestMirrorConvergesWithAuthority(t *testing.T) {
	relay := New("r1")
	mirror := New("r1")
	apply := func(s *State) {
		_, _ = s.ApplyFileCreate("a.py", "", "")
		_ = s.ApplyContentUpdate("a.py", "x=1")
		_, _ = s.ApplyFileCreate("b.go", "", "package main")
		_ = s.ApplyFileRename("a.py", "c.py")
		_ = s.ApplyContentUpdate("c.py", "x=2")
		_ = s.SetActiveFile("b.go")
		_, _ = s.ApplyFileDelete("b.go")
	}
	apply(relay)
	mirror.ApplyFullState(New("r1").Snapshot(nil, types.Member{}))
	apply(mirror)
	assert.Equal(t, relay.Snapshot(nil, types.Member{}), mirror.Snapshot(nil, types.Member{}))
}

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"main.py", "src/app.rs", "a-b_c.txt"} {
		assert.NoError(t, ValidateName(ok), ok)
	}
	for _, bad := range []string{"", "  ", "/etc/passwd", "../x.py", "a/../../x", "a//b", ".", "a\\b"} {
		assert.True(t, errors.Is(ValidateName(bad), ErrInvalidName), bad)
	}
}

func TestSize(t *testing.T) {
	s := New("r1")
	assert.Equal(t, 0, s.Size())
	_, _ = s.ApplyFileCreate("a.py", "", "12345")
	_, _ = s.ApplyFileCreate("b.py", "", "123")
	assert.Equal(t, 8, s.Size())
	_ = s.ApplyContentUpdate("a.py", "1")
	assert.Equal(t, 4, s.Size())
	_, _ = s.ApplyFileDelete("b.py")
	assert.Equal(t, 1, s.Size())
}
