package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
)

// FileLedgerStore keeps the portfolio as one JSON document on disk. Every
// Save rewrites the whole file through a temp file and a rename.
type FileLedgerStore struct {
	mu   sync.Mutex
	path string
}

var _ drepo.LedgerStore = (*FileLedgerStore)(nil)

func NewFileLedgerStore(path string) *FileLedgerStore {
	return &FileLedgerStore{path: path}
}

// Load returns a fresh ledger when the file does not exist. A file that
// exists but cannot be decoded is an error.
func (s *FileLedgerStore) Load(_ context.Context) (*models.LedgerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.NewLedgerState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", s.path, err)
	}

	var st models.LedgerState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", s.path, err)
	}
	if st.Balance < 0 || !finite(st.Balance) {
		return nil, fmt.Errorf("decode ledger %s: invalid balance %v", s.path, st.Balance)
	}
	for i, p := range st.Positions {
		if p.EntryPrice <= 0 || !finite(p.EntryPrice) || p.Units <= 0 || !finite(p.Units) {
			return nil, fmt.Errorf("decode ledger %s: position %d (%s): entry price %v, units %v",
				s.path, i, p.Asset, p.EntryPrice, p.Units)
		}
	}
	if st.Positions == nil {
		st.Positions = []models.Position{}
	}
	if st.History == nil {
		st.History = []models.ClosedTrade{}
	}
	return &st, nil
}

func (s *FileLedgerStore) Save(_ context.Context, st *models.LedgerState) error {
	b, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
