// internal/presets/presets.go
package presets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for an unknown name or an out-of-range index.
	ErrNotFound = errors.New("preset not found")
	// ErrDuplicateName is returned when a name is already taken by another preset.
	ErrDuplicateName = errors.New("preset name already exists")
	// ErrInvalidPreset is returned for a preset without a name or without messages.
	ErrInvalidPreset = errors.New("invalid preset")
)

// DefaultDescription is stored when a preset is saved without one.
const DefaultDescription = "User-created preset"

var codec = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Preset is a named, reusable set of messages. The file holds either a single
// "message" or a "messages" list per entry; both shapes are accepted.
type Preset struct {
	Name        string   `json:"name"`
	Message     string   `json:"message,omitempty"`
	Messages    []string `json:"messages,omitempty"`
	Description string   `json:"description,omitempty"`
}

// List returns the preset's messages in the list form regardless of how it was stored.
func (p Preset) List() []string {
	if len(p.Messages) > 0 {
		return append([]string(nil), p.Messages...)
	}
	if p.Message != "" {
		return []string{p.Message}
	}
	return nil
}

// New builds a preset from msgs, storing a single message in the "message" form.
func New(name string, msgs []string, description string) Preset {
	p := Preset{Name: name, Description: description}
	if p.Description == "" {
		p.Description = DefaultDescription
	}
	if len(msgs) == 1 {
		p.Message = msgs[0]
	} else {
		p.Messages = append([]string(nil), msgs...)
	}
	return p
}

func (p Preset) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}
	if len(p.List()) == 0 {
		return fmt.Errorf("%w: %q has no messages", ErrInvalidPreset, p.Name)
	}
	return nil
}

func (p Preset) clone() Preset {
	p.Messages = append([]string(nil), p.Messages...)
	if len(p.Messages) == 0 {
		p.Messages = nil
	}
	return p
}

// Store is the preset collection backed by a JSON file. Mutations are saved
// immediately; a failed save is returned but the in-memory change stays.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	items []Preset
}

// Open loads the presets at path. A missing or empty file is seeded with the defaults
// and written back. An unreadable file is logged and replaced by the defaults in memory
// only, so the user's file is left alone.
func Open(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expanded, err := homedir.Expand(path); err == nil {
		path = expanded
	}
	s := &Store{path: path, logger: logger.Named("presets")}

	items, err := s.load()
	switch {
	case err != nil:
		s.logger.Warn("Could not load presets, using defaults.", zap.String("path", path), zap.Error(err))
		s.items = Defaults()
	case len(items) == 0:
		s.items = Defaults()
		if err := s.save(); err != nil {
			s.logger.Warn("Could not save default presets.", zap.String("path", path), zap.Error(err))
		}
	default:
		s.items = items
	}
	return s
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// List returns a copy of all presets in file order.
func (s *Store) List() []Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Preset, len(s.items))
	for i, p := range s.items {
		out[i] = p.clone()
	}
	return out
}

// Get returns the preset at the zero-based index.
func (s *Store) Get(index int) (Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.items) {
		return Preset{}, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return s.items[index].clone(), nil
}

// GetByName returns the first preset with the exact name.
func (s *Store) GetByName(name string) (Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(name); i >= 0 {
		return s.items[i].clone(), nil
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Resolve finds a preset by exact name, or else by its 1-based position as shown in listings.
func (s *Store) Resolve(ref string) (Preset, error) {
	i, err := s.Index(ref)
	if err != nil {
		return Preset{}, err
	}
	return s.Get(i)
}

// Index returns the zero-based index of the preset ref names or numbers.
func (s *Store) Index(ref string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(ref); i >= 0 {
		return i, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil && n >= 1 && n <= len(s.items) {
		return n - 1, nil
	}
	return -1, fmt.Errorf("%w: %q", ErrNotFound, ref)
}

// Messages returns the messages of the preset named or numbered by ref.
func (s *Store) Messages(ref string) ([]string, error) {
	p, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return p.List(), nil
}

// Add appends p and saves the collection.
func (s *Store) Add(p Preset) error {
	if err := p.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(p.Name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}
	s.items = append(s.items, p.clone())
	return s.save()
}

// Update replaces the preset at the zero-based index and saves the collection.
func (s *Store) Update(index int, p Preset) error {
	if err := p.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	if i := s.indexOf(p.Name); i >= 0 && i != index {
		return fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}
	s.items[index] = p.clone()
	return s.save()
}

// Delete removes the preset at the zero-based index and saves the collection.
func (s *Store) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	return s.save()
}

// Reset restores the built-in defaults and saves them.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = Defaults()
	return s.save()
}

func (s *Store) indexOf(name string) int {
	for i, p := range s.items {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (s *Store) load() ([]Preset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var items []Preset
	if err := codec.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode presets: %w", err)
	}
	return items, nil
}

// save must be called with s.mu held.
func (s *Store) save() error {
	data, err := codec.MarshalIndent(s.items, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create presets directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".presets-*.json")
	if err != nil {
		return fmt.Errorf("failed to save presets: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save presets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save presets: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save presets: %w", err)
	}
	return nil
}
