package memory

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Save writes the full ledger to path as a JSON array of records, embeddings
// included, so a reloaded stream retrieves with identical scores without
// re-embedding. The write goes through a temporary file in the same directory
// followed by a rename, so a crash never leaves a truncated snapshot behind.
func (s *Stream) Save(path string) error {
	s.mu.RLock()
	records := make([]Record, len(s.records))
	copy(records, s.records)
	s.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write memory snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close memory snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit memory snapshot: %w", err)
	}

	s.logger.Info("Saved memory snapshot", zap.String("path", path), zap.Int("records", len(records)))
	return nil
}

// LoadStream reads a snapshot written by Save and returns a stream over it.
// The embedder only embeds future appends and retrieval queries; stored
// records keep their persisted vectors.
func LoadStream(path string, embedder schemas.Embedder, logger *zap.Logger, opts ...Option) (*Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory snapshot: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse memory snapshot %s: %w", path, err)
	}

	s := NewStream(embedder, logger, opts...)
	s.records = records
	s.logger.Info("Loaded memory snapshot", zap.String("path", path), zap.Int("records", len(s.records)))
	return s, nil
}
