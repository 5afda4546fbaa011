// Package store implements the durable, file-backed conversation store:
// one JSON file per conversation plus a metadata.json index, both under a
// conversations/ directory inside the resolved appdir.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fieldnotes/relay/internal/model"
)

const (
	conversationsDirName = "conversations"
	metadataFileName     = "metadata.json"
)

// ErrNotFound is returned by Load when no conversation file exists for id.
var ErrNotFound = errors.New("conversation not found")

// ErrCorrupt is returned by Load when the conversation file exists but
// fails to parse.
var ErrCorrupt = errors.New("conversation file is corrupt")

// Store is a single-writer-safe conversation store rooted at a directory
// (typically the resolved .relay/ appdir).
type Store struct {
	dir string
}

// New returns a Store rooted at root/conversations, creating the directory
// if necessary.
func New(root string) (*Store, error) {
	dir := filepath.Join(root, conversationsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating conversations directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) conversationPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) metadataPath() string {
	return filepath.Join(s.dir, metadataFileName)
}

// List returns every conversation's metadata, sorted descending by
// UpdatedAt. If metadata.json is missing, it is lazily synthesized by
// scanning every conversation file.
func (s *Store) List() ([]model.ConversationMetadata, error) {
	data, err := os.ReadFile(s.metadataPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.rebuildMetadata()
		}
		return nil, fmt.Errorf("reading metadata index: %w", err)
	}

	var index model.MetadataIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return s.rebuildMetadata()
	}

	sortMetadataDescending(index.Conversations)
	return index.Conversations, nil
}

func (s *Store) rebuildMetadata() ([]model.ConversationMetadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scanning conversations directory: %w", err)
	}

	var metas []model.ConversationMetadata
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == metadataFileName || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".json")]
		conv, err := s.Load(id)
		if err != nil {
			continue
		}
		metas = append(metas, conv.Metadata())
	}

	sortMetadataDescending(metas)

	if err := s.writeMetadata(metas); err != nil {
		return nil, err
	}
	return metas, nil
}

func sortMetadataDescending(metas []model.ConversationMetadata) {
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt > metas[j].UpdatedAt
	})
}

// Load reads and parses the conversation file for id.
func (s *Store) Load(id string) (*model.Conversation, error) {
	data, err := os.ReadFile(s.conversationPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading conversation %s: %w", id, err)
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, ErrCorrupt
	}
	return &conv, nil
}

// Save writes conv's file, then rewrites the metadata index to include or
// replace its projection. The conversation file is written first; metadata
// is only updated once that write has succeeded.
func (s *Store) Save(conv *model.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling conversation: %w", err)
	}

	if err := os.WriteFile(s.conversationPath(conv.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing conversation %s: %w", conv.ID, err)
	}

	metas, err := s.List()
	if err != nil {
		return fmt.Errorf("loading metadata index: %w", err)
	}

	replaced := false
	for i, m := range metas {
		if m.ID == conv.ID {
			metas[i] = conv.Metadata()
			replaced = true
			break
		}
	}
	if !replaced {
		metas = append(metas, conv.Metadata())
	}
	sortMetadataDescending(metas)

	return s.writeMetadata(metas)
}

// Delete removes the conversation file for id (tolerating absence) and its
// metadata entry.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.conversationPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}

	metas, err := s.List()
	if err != nil {
		return err
	}

	kept := metas[:0]
	for _, m := range metas {
		if m.ID != id {
			kept = append(kept, m)
		}
	}

	return s.writeMetadata(kept)
}

func (s *Store) writeMetadata(metas []model.ConversationMetadata) error {
	index := model.MetadataIndex{Conversations: metas}
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata index: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing metadata index: %w", err)
	}
	return nil
}
