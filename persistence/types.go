package persistence

import (
	"errors"
	"fmt"

	"github.com/tcriess/lightspeed-code/config"
	"github.com/tcriess/lightspeed-code/types"
)

var ErrNotFound = errors.New("not found")

// Persister stores rooms, their files and the chat of a room. File names are unique per room.
type Persister interface {
	SaveFile(roomId string, file types.File) error
	LoadFile(roomId, name string) (types.File, error)
	LoadFiles(roomId string) ([]types.File, error)
	RenameFile(roomId, oldName, newName string) error
	DeleteFile(roomId, name string) error
	StoreRoom(room types.Room) error
	GetRoom(room *types.Room) error
	GetRooms() ([]*types.Room, error)
	// DeleteRoom removes the room with its files and chat.
	DeleteRoom(room *types.Room) error
	StoreChatMessage(msg types.ChatMessage) error
	// GetChatHistory returns the last maxCount messages of a room, oldest first.
	GetChatHistory(roomId string, maxCount int) ([]types.ChatMessage, error)
	Close() error
}

// NewPersister returns the configured persister, nil if persistence is switched off.
func NewPersister(cfg *config.Config) (Persister, error) {
	switch cfg.PersistenceConfig.Type {
	case "":
		return nil, nil
	case "buntdb":
		return NewBuntPersister(cfg)
	case "sqlite", "postgres":
		return NewGormPersister(cfg)
	}
	return nil, fmt.Errorf("invalid persistence type %q", cfg.PersistenceConfig.Type)
}
