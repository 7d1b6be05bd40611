// Package domain contains entity without logic, just meta-data
package domain

import "time"

const (
	MaxUsernameLen = 36
	MaxMessageLen  = 1000
	HistoryLimit   = 100
)

type MessageID string

type Message struct {
	ID     MessageID `json:"id"`
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}
