// Package store persists RuleDocuments as one JSON file per scheme.
// Documents are schema-validated on every read.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/schema"
)

// ErrNotFound means no document is stored under the id
var ErrNotFound = errors.New("rule document not found")

// ErrInvalidID means the id cannot be used as a file name
var ErrInvalidID = errors.New("invalid scheme id")

// FileStore keeps RuleDocuments under dir as <schemeId>.json
type FileStore struct {
	dir       string
	validator *schema.Validator
}

// NewFileStore creates a new file store. A nil validator skips schema checks.
func NewFileStore(dir string, validator *schema.Validator) *FileStore {
	return &FileStore{dir: dir, validator: validator}
}

// Open builds a store from config, compiling the RuleDocument schema
// when validation is enabled
func Open(cfg model.StoreConfig) (*FileStore, error) {
	var validator *schema.Validator
	if cfg.Validate {
		v, err := schema.NewRuleValidator()
		if err != nil {
			return nil, fmt.Errorf("rule schema: %w", err)
		}
		validator = v
	}
	return NewFileStore(cfg.Directory, validator), nil
}

// Dir returns the store directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Put writes doc atomically, replacing any previous version
func (s *FileStore) Put(doc *model.RuleDocument) error {
	path, err := s.path(doc.SchemeID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", doc.SchemeID, err)
	}
	if s.validator != nil {
		if err := s.validator.ValidateJSON(data); err != nil {
			return fmt.Errorf("store %s: %w", doc.SchemeID, err)
		}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+doc.SchemeID+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", doc.SchemeID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", doc.SchemeID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit %s: %w", doc.SchemeID, err)
	}
	return nil
}

// Get reads and validates the document stored under id
func (s *FileStore) Get(id string) (*model.RuleDocument, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}

	return s.decode(id, data)
}

// List returns every stored document ordered by scheme id.
// Unreadable or invalid files are returned as errors alongside the rest.
func (s *FileStore) List() ([]*model.RuleDocument, []error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, []error{fmt.Errorf("read store dir: %w", err)}
	}

	var (
		docs []*model.RuleDocument
		errs []error
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		doc, err := s.Get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].SchemeID < docs[j].SchemeID
	})
	return docs, errs
}

// Delete removes the document stored under id
func (s *FileStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

func (s *FileStore) decode(id string, data []byte) (*model.RuleDocument, error) {
	if s.validator != nil {
		if err := s.validator.ValidateJSON(data); err != nil {
			return nil, fmt.Errorf("validate %s: %w", id, err)
		}
	}

	var doc model.RuleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	if doc.SchemeID != id {
		return nil, fmt.Errorf("decode %s: file holds scheme %q", id, doc.SchemeID)
	}
	return &doc, nil
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}
