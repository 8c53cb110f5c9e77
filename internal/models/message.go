package models

import (
	"time"
)

const (
	MessageKindText = "text"
	MessageKindMeme = "meme"
)

// MainRoom is the only room the service currently runs.
const MainRoom = "main_room"

type Message struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	RoomID      string `gorm:"not null;default:'main_room';index"`
	Text        string
	Sender      string `gorm:"not null"`
	IsAnonymous bool   `gorm:"default:false"`
	Kind        string `gorm:"not null;default:'text';check:kind IN ('text','meme')"`
	ImageURL    string `gorm:"size:1024"`
	Caption     string
	CreatedAt   time.Time
}
