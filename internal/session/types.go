package session

import (
	"time"
)

// Message is a single chat message inside a session transcript
type Message struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"` // user or assistant
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Files       []string  `json:"files,omitempty"`
	Model       string    `json:"model,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
}

// ChatSession is one stored transcript, persisted as <id>.json
type ChatSession struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	SessionID   string `json:"session_id,omitempty"` // wrapper continuation id
	WorkspaceID string `json:"workspace_id,omitempty"`

	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MessageCount        int    `json:"message_count"`
	FirstMessagePreview string `json:"first_message_preview"`

	// Task ids of wrapper runs that produced assistant turns, keyed by backend
	TaskIDs map[string]string `json:"code_cli_task_ids,omitempty"`
}

// Summary is a lightweight listing view of a session
type Summary struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name,omitempty"`
	WorkspaceID         string    `json:"workspace_id,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
	MessageCount        int       `json:"message_count"`
	FirstMessagePreview string    `json:"first_message_preview"`
}

// ToSummary converts a ChatSession to its listing view
func (s *ChatSession) ToSummary() *Summary {
	return &Summary{
		ID:                  s.ID,
		Name:                s.Name,
		WorkspaceID:         s.WorkspaceID,
		UpdatedAt:           s.UpdatedAt,
		MessageCount:        s.MessageCount,
		FirstMessagePreview: s.FirstMessagePreview,
	}
}
