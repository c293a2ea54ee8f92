// Package history keeps the bounded in-memory buffer of recently broadcast
// messages. The buffer is a fixed-capacity ring: appends past capacity evict
// the oldest entry, one per append. Nothing is ever persisted.
package history

import (
	"strings"
	"sync"
	"time"

	"onionchat/internal/content"
	"onionchat/internal/models"
)

// DefaultMaxMessages matches the original cap on retained messages.
const DefaultMaxMessages = 1000

type Log struct {
	messages []models.Message
	max      int

	// index of the newest entry, -1 while empty
	lastIndex int

	// floor for message ids so they never go backwards even if the
	// wall clock does
	lastID int64

	now func() time.Time

	mux sync.RWMutex
}

func New(maxMessages int) *Log {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Log{
		max:       maxMessages,
		lastIndex: -1,
		now:       time.Now,
	}
}

// Append validates, sanitizes and stores a message, evicting the oldest
// entry when the buffer is at capacity. It returns the stored message,
// which is what gets broadcast. The text and the sender name are both
// escaped; the sender does not have to be a registered user.
func (l *Log) Append(username, rawText string) (models.Message, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return models.Message{}, models.ErrEmptyMessage
	}

	l.mux.Lock()
	defer l.mux.Unlock()

	now := l.now()
	id := now.UnixMilli()
	if id < l.lastID {
		id = l.lastID
	}
	l.lastID = id

	msg := models.Message{
		ID:        id,
		Username:  content.Escape(username),
		Text:      content.Escape(text),
		Timestamp: models.FormatTime(now),
	}

	switch {
	case len(l.messages) < l.max:
		l.messages = append(l.messages, msg)
		l.lastIndex++
	default:
		i := (l.lastIndex + 1) % l.max
		l.messages[i] = msg
		l.lastIndex = i
	}

	return msg, nil
}

// Recent returns the buffer contents, oldest first.
func (l *Log) Recent() []models.Message {
	l.mux.RLock()
	defer l.mux.RUnlock()

	if len(l.messages) == 0 {
		return []models.Message{}
	}

	result := make([]models.Message, len(l.messages))

	head := 0
	if len(l.messages) == l.max {
		head = (l.lastIndex + 1) % l.max
	}

	n1 := copy(result, l.messages[head:])
	copy(result[n1:], l.messages[:head])

	return result
}

// Len returns the number of buffered messages.
func (l *Log) Len() int {
	l.mux.RLock()
	defer l.mux.RUnlock()
	return len(l.messages)
}
