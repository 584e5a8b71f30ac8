package room

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/tcriess/lightspeed-code/types"
)

var (
	ErrFileExists   = errors.New("file already exists")
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidName  = errors.New("invalid file name")
)

// State holds the files, active file and settings of one room. The relay keeps the authoritative State,
// every client keeps a mirror that is fed the same operations in the same order.
//
// State is not safe for concurrent use, it is owned by exactly one goroutine (the hub or the session loop).
type State struct {
	Id         string
	files      map[string]*types.File
	activeFile string
	settings   types.RoomSettings
}

func New(id string) *State {
	return &State{
		Id:       id,
		files:    make(map[string]*types.File),
		settings: types.DefaultRoomSettings(),
	}
}

// ValidateName checks that name is a relative, clean path inside the room.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	clean := path.Clean(name)
	if clean != name || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	return nil
}

// ApplyFullState replaces everything with the snapshot. Idempotent.
func (s *State) ApplyFullState(snapshot types.RoomSnapshot) {
	s.files = make(map[string]*types.File, len(snapshot.Files))
	for name, f := range snapshot.Files {
		file := f
		file.Name = name
		if file.Language == "" {
			file.Language = types.DetectLanguage(name)
		}
		s.files[name] = &file
	}
	s.activeFile = ""
	if _, ok := s.files[snapshot.ActiveFile]; ok {
		s.activeFile = snapshot.ActiveFile
	}
	s.settings = snapshot.Settings
}

// ApplyFileCreate adds a file. An empty or unknown language is derived from the name.
func (s *State) ApplyFileCreate(name string, language types.Language, content string) (types.File, error) {
	if _, ok := s.files[name]; ok {
		return types.File{}, fmt.Errorf("%w: %s", ErrFileExists, name)
	}
	f := &types.File{
		Name:     name,
		Content:  content,
		Language: types.ResolveLanguage(name, language),
	}
	s.files[name] = f
	return *f, nil
}

// PutFile stores f under f.Name, replacing any entry of that name. Used to confirm or restore provisional entries.
func (s *State) PutFile(f types.File) {
	file := f
	if file.Language == "" {
		file.Language = types.DetectLanguage(file.Name)
	}
	s.files[file.Name] = &file
}

// ApplyFileDelete removes a file and clears the active file if it pointed there.
func (s *State) ApplyFileDelete(name string) (types.File, error) {
	f, ok := s.files[name]
	if !ok {
		return types.File{}, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	delete(s.files, name)
	if s.activeFile == name {
		s.activeFile = ""
	}
	return *f, nil
}

// ApplyFileRename moves a file to a new key, content and language are kept.
func (s *State) ApplyFileRename(oldName, newName string) error {
	f, ok := s.files[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, ok := s.files[newName]; ok {
		return fmt.Errorf("%w: %s", ErrFileExists, newName)
	}
	delete(s.files, oldName)
	f.Name = newName
	s.files[newName] = f
	if s.activeFile == oldName {
		s.activeFile = newName
	}
	return nil
}

// ApplyContentUpdate overwrites the content of a file (last writer wins).
func (s *State) ApplyContentUpdate(name, content string) error {
	f, ok := s.files[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	f.Content = content
	return nil
}

// ApplyLanguageChange explicitly overrides the language of a file.
func (s *State) ApplyLanguageChange(name string, language types.Language) error {
	f, ok := s.files[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	f.Language = types.ResolveLanguage(name, language)
	return nil
}

// SetActiveFile points the room at a file, "" clears the pointer.
func (s *State) SetActiveFile(name string) error {
	if name == "" {
		s.activeFile = ""
		return nil
	}
	if _, ok := s.files[name]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	s.activeFile = name
	return nil
}

func (s *State) ApplySettings(settings types.RoomSettings) {
	s.settings = settings
}

func (s *State) Settings() types.RoomSettings {
	return s.settings
}

func (s *State) ActiveFile() string {
	return s.activeFile
}

func (s *State) File(name string) (types.File, bool) {
	f, ok := s.files[name]
	if !ok {
		return types.File{}, false
	}
	return *f, true
}

func (s *State) HasFile(name string) bool {
	_, ok := s.files[name]
	return ok
}

// Size is the total content length of all files in bytes.
func (s *State) Size() int {
	n := 0
	for _, f := range s.files {
		n += len(f.Content)
	}
	return n
}

func (s *State) NoFiles() int {
	return len(s.files)
}

// Files returns copies of all files sorted by name.
func (s *State) Files() []types.File {
	res := make([]types.File, 0, len(s.files))
	for _, f := range s.files {
		res = append(res, *f)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Snapshot builds the full state message for a joining client.
func (s *State) Snapshot(users []types.Member, you types.Member) types.RoomSnapshot {
	files := make(map[string]types.File, len(s.files))
	for name, f := range s.files {
		files[name] = *f
	}
	if users == nil {
		users = []types.Member{}
	}
	return types.RoomSnapshot{
		Room:       s.Id,
		Files:      files,
		Users:      users,
		ActiveFile: s.activeFile,
		Settings:   s.settings,
		You:        you,
	}
}
