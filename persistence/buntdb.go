package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/tcriess/lightspeed-code/config"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/types"
	"github.com/tidwall/buntdb"
)

const memoryDSN = ":memory:"

// BuntDBPersist keeps everything in one buntdb file:
//
//	room:<room>                          JSON types.Room
//	file:<room>:<name>                   JSON types.File
//	chat:<room>:<unix nanos>:<id>        JSON types.ChatMessage
type BuntDBPersist struct {
	db   *buntdb.DB
	lock *flock.Flock
}

func NewBuntPersister(cfg *config.Config) (Persister, error) {
	p, err := setupBuntDB(cfg)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	return p, nil
}

func setupBuntDB(cfg *config.Config) (*BuntDBPersist, error) {
	fileName := cfg.PersistenceConfig.DSN
	if fileName == "" {
		return nil, nil
	}
	p := &BuntDBPersist{}
	if fileName != memoryDSN {
		lockPath := cfg.PersistenceConfig.FlockPath
		if lockPath == "" {
			lockPath = fileName + ".lock"
		}
		p.lock = flock.New(lockPath)
		locked, err := p.lock.TryLock()
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, fmt.Errorf("database %s is in use by another process", fileName)
		}
	}
	db, err := buntdb.Open(fileName)
	if err != nil {
		p.unlock()
		return nil, err
	}
	p.db = db
	return p, nil
}

func roomKey(roomId string) string {
	return "room:" + roomId
}

func fileKey(roomId, name string) string {
	return "file:" + roomId + ":" + name
}

func chatKey(msg types.ChatMessage) string {
	return fmt.Sprintf("chat:%s:%020d:%s", msg.Room, msg.Timestamp.UnixNano(), msg.Id)
}

func notFound(err error) error {
	if errors.Is(err, buntdb.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (p *BuntDBPersist) SaveFile(roomId string, file types.File) error {
	f, err := json.Marshal(file)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(fileKey(roomId, file.Name), string(f), nil)
		return err
	})
}

func (p *BuntDBPersist) LoadFile(roomId, name string) (types.File, error) {
	file := types.File{}
	err := p.db.View(func(tx *buntdb.Tx) error {
		f, err := tx.Get(fileKey(roomId, name))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(f), &file)
	})
	if err != nil {
		return types.File{}, notFound(err)
	}
	return file, nil
}

func (p *BuntDBPersist) LoadFiles(roomId string) ([]types.File, error) {
	files := make([]types.File, 0)
	prefix := fileKey(roomId, "")
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, val string) bool {
			if !strings.HasPrefix(key, prefix) {
				return true
			}
			file := types.File{}
			if err := json.Unmarshal([]byte(val), &file); err != nil {
				globals.AppLogger.Error("could not unmarshal file", "key", key, "error", err)
				return true
			}
			files = append(files, file)
			return true
		})
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, err
}

func (p *BuntDBPersist) RenameFile(roomId, oldName, newName string) error {
	return notFound(p.db.Update(func(tx *buntdb.Tx) error {
		val, err := tx.Delete(fileKey(roomId, oldName))
		if err != nil {
			return err
		}
		file := types.File{}
		if err := json.Unmarshal([]byte(val), &file); err != nil {
			return err
		}
		file.Name = newName
		f, err := json.Marshal(file)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(fileKey(roomId, newName), string(f), nil)
		return err
	}))
}

func (p *BuntDBPersist) DeleteFile(roomId, name string) error {
	return notFound(p.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(fileKey(roomId, name))
		return err
	}))
}

func (p *BuntDBPersist) StoreRoom(room types.Room) error {
	u, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(roomKey(room.Id), string(u), nil)
		return err
	})
}

func (p *BuntDBPersist) GetRoom(room *types.Room) error {
	if room.Id == "" {
		return fmt.Errorf("no room id")
	}
	err := p.db.View(func(tx *buntdb.Tx) error {
		u, err := tx.Get(roomKey(room.Id))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(u), room)
	})
	return notFound(err)
}

func (p *BuntDBPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("room:*", func(key, val string) bool {
			room := &types.Room{}
			if err := json.Unmarshal([]byte(val), room); err != nil {
				globals.AppLogger.Error("could not unmarshal room", "key", key, "error", err)
				return true
			}
			rooms = append(rooms, room)
			return true
		})
	})
	return rooms, err
}

func (p *BuntDBPersist) DeleteRoom(room *types.Room) error {
	return notFound(p.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(roomKey(room.Id)); err != nil {
			return err
		}
		keys := make([]string, 0)
		for _, prefix := range []string{fileKey(room.Id, ""), "chat:" + room.Id + ":"} {
			pfx := prefix
			err := tx.AscendKeys(pfx+"*", func(key, _ string) bool {
				if strings.HasPrefix(key, pfx) {
					keys = append(keys, key)
				}
				return true
			})
			if err != nil {
				return err
			}
		}
		for _, key := range keys {
			if _, err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (p *BuntDBPersist) StoreChatMessage(msg types.ChatMessage) error {
	m, err := json.Marshal(msg)
	if err != nil {
		globals.AppLogger.Error("could not marshal chat message", "error", err)
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(chatKey(msg), string(m), nil)
		return err
	})
}

func (p *BuntDBPersist) GetChatHistory(roomId string, maxCount int) ([]types.ChatMessage, error) {
	messages := make([]types.ChatMessage, 0)
	prefix := "chat:" + roomId + ":"
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.DescendKeys(prefix+"*", func(key, val string) bool {
			if !strings.HasPrefix(key, prefix) {
				return true
			}
			msg := types.ChatMessage{}
			if err := json.Unmarshal([]byte(val), &msg); err == nil {
				messages = append(messages, msg)
			}
			return maxCount <= 0 || len(messages) < maxCount
		})
	})
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, err
}

func (p *BuntDBPersist) Close() error {
	err := p.db.Close()
	p.unlock()
	return err
}

func (p *BuntDBPersist) unlock() {
	if p.lock != nil {
		if err := p.lock.Unlock(); err != nil {
			globals.AppLogger.Error("could not release database lock", "error", err)
		}
	}
}
