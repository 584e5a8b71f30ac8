package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tcriess/lightspeed-code/config"
	"github.com/tcriess/lightspeed-code/types"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ driver.Valuer = &datatypes.JSON{}

type roomModel struct {
	Id         string `gorm:"primaryKey"`
	ActiveFile string
	Settings   datatypes.JSON
	CreatedAt  time.Time
}

func (roomModel) TableName() string {
	return "rooms"
}

type fileModel struct {
	RoomId    string `gorm:"primaryKey"`
	Name      string `gorm:"primaryKey"`
	Content   string
	Language  string
	UpdatedAt time.Time
}

func (fileModel) TableName() string {
	return "files"
}

type chatModel struct {
	Id        string `gorm:"primaryKey"`
	RoomId    string `gorm:"index"`
	Username  string
	Message   string
	Filter    string
	SentAt    time.Time `gorm:"index"`
}

func (chatModel) TableName() string {
	return "chat_messages"
}

type GormPersist struct {
	db *gorm.DB
}

func NewGormPersister(cfg *config.Config) (Persister, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	p := GormPersist{db: db}
	return &p, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	err = db.Migrator().AutoMigrate(&roomModel{}, &fileModel{}, &chatModel{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func gormNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func toFile(m fileModel) types.File {
	return types.File{Name: m.Name, Content: m.Content, Language: types.Language(m.Language)}
}

func (p *GormPersist) SaveFile(roomId string, file types.File) error {
	m := fileModel{RoomId: roomId, Name: file.Name, Content: file.Content, Language: string(file.Language)}
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (p *GormPersist) LoadFile(roomId, name string) (types.File, error) {
	m := fileModel{}
	err := p.db.Where("room_id = ? AND name = ?", roomId, name).First(&m).Error
	if err != nil {
		return types.File{}, gormNotFound(err)
	}
	return toFile(m), nil
}

func (p *GormPersist) LoadFiles(roomId string) ([]types.File, error) {
	models := make([]fileModel, 0)
	err := p.db.Where("room_id = ?", roomId).Order("name").Find(&models).Error
	if err != nil {
		return nil, err
	}
	files := make([]types.File, 0, len(models))
	for _, m := range models {
		files = append(files, toFile(m))
	}
	return files, nil
}

func (p *GormPersist) RenameFile(roomId, oldName, newName string) error {
	res := p.db.Model(&fileModel{}).Where("room_id = ? AND name = ?", roomId, oldName).Update("name", newName)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *GormPersist) DeleteFile(roomId, name string) error {
	res := p.db.Where("room_id = ? AND name = ?", roomId, name).Delete(&fileModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *GormPersist) StoreRoom(room types.Room) error {
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return err
	}
	m := roomModel{Id: room.Id, ActiveFile: room.ActiveFile, Settings: datatypes.JSON(settings), CreatedAt: room.CreatedAt}
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (p *GormPersist) GetRoom(room *types.Room) error {
	if room.Id == "" {
		return fmt.Errorf("no room id")
	}
	m := roomModel{}
	if err := p.db.First(&m, "id = ?", room.Id).Error; err != nil {
		return gormNotFound(err)
	}
	return fromRoomModel(m, room)
}

func fromRoomModel(m roomModel, room *types.Room) error {
	room.Id = m.Id
	room.ActiveFile = m.ActiveFile
	room.CreatedAt = m.CreatedAt
	room.Settings = types.DefaultRoomSettings()
	if len(m.Settings) > 0 {
		return json.Unmarshal(m.Settings, &room.Settings)
	}
	return nil
}

func (p *GormPersist) GetRooms() ([]*types.Room, error) {
	models := make([]roomModel, 0)
	if err := p.db.Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	rooms := make([]*types.Room, 0, len(models))
	for _, m := range models {
		room := &types.Room{}
		if err := fromRoomModel(m, room); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (p *GormPersist) DeleteRoom(room *types.Room) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&roomModel{}, "id = ?", room.Id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("room_id = ?", room.Id).Delete(&fileModel{}).Error; err != nil {
			return err
		}
		return tx.Where("room_id = ?", room.Id).Delete(&chatModel{}).Error
	})
}

func (p *GormPersist) StoreChatMessage(msg types.ChatMessage) error {
	m := chatModel{Id: msg.Id, RoomId: msg.Room, Username: msg.Username, Message: msg.Message, Filter: msg.Filter, SentAt: msg.Timestamp}
	return p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error
}

func (p *GormPersist) GetChatHistory(roomId string, maxCount int) ([]types.ChatMessage, error) {
	models := make([]chatModel, 0)
	q := p.db.Where("room_id = ?", roomId).Order("sent_at DESC")
	if maxCount > 0 {
		q = q.Limit(maxCount)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	messages := make([]types.ChatMessage, len(models))
	for i, m := range models {
		messages[len(models)-1-i] = types.ChatMessage{
			Id:        m.Id,
			Room:      m.RoomId,
			Username:  m.Username,
			Message:   m.Message,
			Timestamp: m.SentAt,
			Filter:    m.Filter,
		}
	}
	return messages, nil
}

func (p *GormPersist) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
