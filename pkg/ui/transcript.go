package ui

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Message is one transcript entry. Transcripts live in memory only.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

type Transcript struct {
	mu       sync.Mutex
	messages []Message
	now      func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

func (t *Transcript) Add(sender Sender, text string) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := Message{ID: uuid.NewString(), Text: text, Sender: sender, Timestamp: t.now()}
	t.messages = append(t.messages, m)
	return m
}

func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.messages...)
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// LastReply returns the most recent bot message.
func (t *Transcript) LastReply() (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Sender == SenderBot {
			return t.messages[i], true
		}
	}
	return Message{}, false
}
