package types

import "time"

// File is one document of a room. The name is the primary key within the room.
type File struct {
	Name     string   `json:"name" mapstructure:"name"`
	Content  string   `json:"content" mapstructure:"content"`
	Language Language `json:"language" mapstructure:"language"`
}

// RoomSettings are the editor preferences shared by everybody in a room.
type RoomSettings struct {
	Theme    string `json:"theme" mapstructure:"theme"`
	FontSize int    `json:"font_size" mapstructure:"font_size"`
	TabSize  int    `json:"tab_size" mapstructure:"tab_size"`
	AutoSave bool   `json:"auto_save" mapstructure:"auto_save"`
}

// DefaultRoomSettings is used for rooms without stored settings.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		Theme:    "monokai",
		FontSize: 14,
		TabSize:  4,
		AutoSave: true,
	}
}

// Room is the persisted part of a room; files are stored separately.
type Room struct {
	Id         string       `json:"id"`
	ActiveFile string       `json:"active_file"`
	Settings   RoomSettings `json:"settings"`
	CreatedAt  time.Time    `json:"created_at"`
}

// RoomSnapshot is the full room state sent to a client on join.
type RoomSnapshot struct {
	Room       string          `json:"room"`
	Files      map[string]File `json:"files"`
	Users      []Member        `json:"users"`
	ActiveFile string          `json:"active_file"`
	Settings   RoomSettings    `json:"settings"`
	You        Member          `json:"you"`
}
