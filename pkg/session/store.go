package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/junchih/strand/pkg/agent"
)

// Meta contains metadata about a stored session.
type Meta struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

// Record is a session as persisted on disk.
type Record struct {
	Meta     Meta                 `json:"meta"`
	System   string               `json:"system"`
	Messages []agent.AgentMessage `json:"messages"`
}

// Store persists chat sessions as JSON files under a directory,
// one file per session named by session ID.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory sessions are stored in.
func (st *Store) Dir() string {
	return st.dir
}

// Save writes the session's messages to disk, creating or overwriting
// its record. CreatedAt is preserved across saves.
func (st *Store) Save(sess *agent.Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("session has no ID")
	}
	if err := os.MkdirAll(st.dir, 0755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}

	now := time.Now()
	rec := Record{
		Meta: Meta{
			ID:           sess.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
			MessageCount: len(sess.Messages),
		},
		System:   sess.SystemPrompt,
		Messages: sess.Messages,
	}
	if prev, err := st.loadRecord(sess.ID); err == nil {
		rec.Meta.CreatedAt = prev.Meta.CreatedAt
	}

	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	// Write to a temp file first so a crash mid-write cannot corrupt
	// an existing session record.
	path := st.path(sess.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load reads a stored session by ID and restores its messages.
// Tools are not persisted; the caller re-attaches them.
func (st *Store) Load(id string) (*agent.Session, error) {
	rec, err := st.loadRecord(id)
	if err != nil {
		return nil, err
	}
	sess := agent.NewSession(rec.System)
	sess.ID = rec.Meta.ID
	sess.Messages = rec.Messages
	return sess, nil
}

// List returns metadata for all stored sessions, most recently
// updated first.
func (st *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var metas []Meta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		rec, err := st.loadRecord(id)
		if err != nil {
			continue
		}
		metas = append(metas, rec.Meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes a stored session.
func (st *Store) Delete(id string) error {
	if err := os.Remove(st.path(id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (st *Store) loadRecord(id string) (*Record, error) {
	data, err := os.ReadFile(st.path(id))
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &rec, nil
}

func (st *Store) path(id string) string {
	return filepath.Join(st.dir, id+".json")
}
