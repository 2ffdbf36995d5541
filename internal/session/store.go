// Package session stores chat transcripts as JSON files.
//
// store.go - Append-only chat session store
//
// Each session lives in its own <id>.json file under the store directory.
// Append creates the session if it does not exist yet, otherwise extends it
// and bumps updated_at. The store is the orchestrator's persistence
// collaborator: it receives (message, continuation id) pairs after a task
// completes and owns the on-disk layout entirely.

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sableworks/codeagentd/internal/logger"
)

// ErrNotFound is returned for operations on sessions that do not exist
var ErrNotFound = errors.New("session not found")

// previewRunes caps the first-message preview length
const previewRunes = 100

// Store persists chat sessions under a single directory
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir, creating it if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes a full session, preserving created_at and the continuation id
// of any existing file with the same id
func (s *Store) Save(id, name, workspaceID string, messages []Message, taskIDs map[string]string) (*ChatSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	createdAt := now
	agentSessionID := id
	if existing, err := s.load(id); err == nil {
		createdAt = existing.CreatedAt
		if existing.SessionID != "" {
			agentSessionID = existing.SessionID
		}
	}

	sess := &ChatSession{
		ID:                  id,
		Name:                name,
		SessionID:           agentSessionID,
		WorkspaceID:         workspaceID,
		Messages:            messages,
		CreatedAt:           createdAt,
		UpdatedAt:           now,
		MessageCount:        len(messages),
		FirstMessagePreview: firstMessagePreview(messages),
		TaskIDs:             taskIDs,
	}

	if err := s.write(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Append adds messages to a session, creating it first when absent. backend
// and taskID record which wrapper run produced the appended turn; either may
// be empty.
func (s *Store) Append(id string, messages []Message, backend, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess, err := s.load(id)
	if err != nil {
		logger.Info("session %s not found when appending, creating", id)
		workspaceID := ""
		if len(messages) > 0 {
			workspaceID = messages[0].WorkspaceID
		}
		sess = &ChatSession{
			ID:          id,
			SessionID:   id,
			WorkspaceID: workspaceID,
			CreatedAt:   now,
		}
	}

	sess.Messages = append(sess.Messages, messages...)
	sess.MessageCount = len(sess.Messages)
	sess.UpdatedAt = now
	sess.FirstMessagePreview = firstMessagePreview(sess.Messages)
	if backend != "" && taskID != "" {
		if sess.TaskIDs == nil {
			sess.TaskIDs = make(map[string]string)
		}
		sess.TaskIDs[backend] = taskID
	}

	return s.write(sess)
}

// AppendExchange records one completed task as a user/assistant message
// pair. agentSessionID, when recovered from the wrapper trailer, becomes the
// session's continuation id for subsequent resume requests.
func (s *Store) AppendExchange(sessionID, backend, task, message, agentSessionID, taskID string) error {
	now := time.Now()
	msgs := []Message{
		{
			ID:        uuid.New().String(),
			Role:      "user",
			Content:   task,
			Timestamp: now,
		},
		{
			ID:        uuid.New().String(),
			Role:      "assistant",
			Content:   message,
			Timestamp: now,
			SessionID: agentSessionID,
		},
	}

	if err := s.Append(sessionID, msgs, backend, taskID); err != nil {
		return err
	}

	if agentSessionID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.load(sessionID)
	if err != nil {
		return err
	}
	sess.SessionID = agentSessionID
	return s.write(sess)
}

// Load reads one session by id
func (s *Store) Load(id string) (*ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// List returns sessions sorted newest-first by updated_at. A non-empty
// workspaceID filters to that workspace; limit 0 means no limit. Unparseable
// files are skipped, not fatal.
func (s *Store) List(workspaceID string, limit int) ([]*ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var sessions []*ChatSession
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			logger.Error("reading session file %s: %v", entry.Name(), err)
			continue
		}
		var sess ChatSession
		if err := json.Unmarshal(data, &sess); err != nil {
			logger.Error("parsing session file %s: %v", entry.Name(), err)
			continue
		}
		if workspaceID != "" && sess.WorkspaceID != workspaceID {
			continue
		}
		sessions = append(sessions, &sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// Delete removes a session file
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.sessionPath(id)
	if _, err := os.Stat(path); err != nil {
		return ErrNotFound
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting session file: %w", err)
	}
	return nil
}

// Rename updates a session's display name
func (s *Store) Rename(id, name string) (*ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load(id)
	if err != nil {
		return nil, err
	}
	sess.Name = name
	sess.UpdatedAt = time.Now()
	if err := s.write(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) load(id string) (*ChatSession, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	var sess ChatSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return &sess, nil
}

func (s *Store) write(sess *ChatSession) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing session: %w", err)
	}
	if err := os.WriteFile(s.sessionPath(sess.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// firstMessagePreview truncates the first message to a short listing preview
func firstMessagePreview(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	runes := []rune(messages[0].Content)
	if len(runes) <= previewRunes {
		return string(runes)
	}
	return string(runes[:previewRunes]) + "..."
}
