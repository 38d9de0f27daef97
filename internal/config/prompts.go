package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// PromptStore holds prompt templates overriding the built-in ones, keyed by
// operation. It is safe for concurrent use; the prompt watcher reloads
// entries while requests read them.
type PromptStore struct {
	mu      sync.RWMutex
	prompts map[Operation]string
	files   map[Operation]string
}

func NewPromptStore() *PromptStore {
	return &PromptStore{
		prompts: make(map[Operation]string),
		files:   make(map[Operation]string),
	}
}

// LoadPromptStore collects inline prompts and prompt files from c.
// A configured file that is missing or empty is an error.
func LoadPromptStore(c *Config) (*PromptStore, error) {
	store := NewPromptStore()
	var validationErrors []string

	for _, op := range Operations {
		raw := c.rawOperationConfig(op)

		if raw.Prompt != "" {
			store.Set(op, raw.Prompt)
		}
		if raw.PromptFile == "" {
			continue
		}

		absPath, err := filepath.Abs(raw.PromptFile)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s prompt: %s", op, raw.PromptFile))
			continue
		}
		store.mu.Lock()
		store.files[op] = absPath
		store.mu.Unlock()

		if err := store.Reload(op); err != nil {
			validationErrors = append(validationErrors, err.Error())
		}
	}

	if len(validationErrors) > 0 {
		return nil, fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	if n := store.Len(); n == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", n)
	}
	return store, nil
}

// Get returns the custom template for op, or "" when none is configured
func (s *PromptStore) Get(op Operation) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts[op]
}

func (s *PromptStore) Set(op Operation, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[op] = prompt
}

func (s *PromptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prompts)
}

// Files returns the absolute prompt file path per operation
func (s *PromptStore) Files() map[Operation]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Operation]string, len(s.files))
	for op, path := range s.files {
		out[op] = path
	}
	return out
}

// Reload re-reads the prompt file of op. The previous template is kept when
// the file cannot be read or is empty.
func (s *PromptStore) Reload(op Operation) error {
	s.mu.RLock()
	path, ok := s.files[op]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no prompt file configured for %s", op)
	}

	content, err := loadPromptFromFile(path, op)
	if err != nil {
		return err
	}
	s.Set(op, content)
	return nil
}

func loadPromptFromFile(absPath string, op Operation) (string, error) {
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s prompt file not found: %s", op, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s prompt file '%s': %w", op, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s prompt file '%s' is empty", op, absPath)
	}

	log.Printf("[CONFIG] Loaded %s prompt from file: %s (%d characters)", op, absPath, len(trimmed))
	return trimmed, nil
}
