// Package session persists chat sessions, reading positions, the
// recent-sessions index and chapter completion over a string key-value
// store.
package session

import (
	"time"

	"github.com/qurani-maai/quranchat/core/quran"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
	SenderQuran  Sender = "quran"
)

// Message is one entry of a session's history.
type Message struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	IsMarkup  bool      `json:"isHtml"`
	Timestamp time.Time `json:"timestamp"`

	// Refs lists the verses a quran message displays, in display order.
	Refs []quran.VerseRef `json:"refs,omitempty"`
}

// Session is a chat with its history and reading position.
type Session struct {
	ID       string          `json:"id"`
	Messages []Message       `json:"messages"`
	LastRead *quran.VerseRef `json:"lastRead,omitempty"`
}

// RecentEntry is one row of the recent-sessions index.
type RecentEntry struct {
	SessionID    string    `json:"id"`
	LastActivity time.Time `json:"timestamp"`
	Preview      string    `json:"preview"`
}

// Completion summarizes which chapters have been viewed in full.
type Completion struct {
	Chapters []string `json:"chapters"`
	Percent  float64  `json:"percent"`
}
