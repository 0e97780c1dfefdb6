package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hafeezhmha/substack-watcher/internal/models"
)

// lockStaleAfter bounds how long a crashed run can block the next one.
const lockStaleAfter = 30 * time.Minute

// Store persists the last-seen marker as a single JSON record on disk.
type Store struct {
	path string
	log  *slog.Logger
}

func New(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load returns the persisted state. A missing or malformed record is
// treated as absent, not fatal.
func (s *Store) Load(ctx context.Context) (*models.State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &models.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st models.State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.WarnContext(ctx, "State file is malformed so it is treated as absent",
			"error", err,
			"path", s.path)

		return &models.State{}, nil
	}

	return &st, nil
}

// Save replaces the record through a temp file in the same directory so a
// crash mid-write leaves the previous record intact.
func (s *Store) Save(ctx context.Context, st *models.State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.removeTemp(ctx, tmpPath)

		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		s.removeTemp(ctx, tmpPath)

		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

// Lock takes an advisory lock next to the state file so double-fired
// invocations do not interleave load and save. A lock older than
// lockStaleAfter is assumed to belong to a dead run and is broken.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	lockPath := s.path + ".lock"

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			if closeErr := f.Close(); closeErr != nil {
				s.log.WarnContext(ctx, "Failed to close lock file",
					"error", closeErr,
					"path", lockPath)
			}

			return func() {
				if removeErr := os.Remove(lockPath); removeErr != nil &&
					!errors.Is(removeErr, os.ErrNotExist) {
					s.log.ErrorContext(ctx, "Failed to remove lock file",
						"error", removeErr,
						"path", lockPath)
				}
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		info, statErr := os.Stat(lockPath)
		if statErr != nil {
			if errors.Is(statErr, os.ErrNotExist) {
				// Holder released between open and stat.
				continue
			}

			return nil, fmt.Errorf("stat lock file: %w", statErr)
		}

		age := time.Since(info.ModTime())
		if age < lockStaleAfter {
			return nil, fmt.Errorf("another run holds the lock since %s",
				info.ModTime().UTC().Format(time.RFC3339))
		}

		s.log.WarnContext(ctx, "Breaking stale lock",
			"path", lockPath,
			"age", age.String())

		if removeErr := os.Remove(lockPath); removeErr != nil &&
			!errors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock file: %w", removeErr)
		}
	}

	return nil, errors.New("failed to acquire lock")
}

func (s *Store) removeTemp(ctx context.Context, tmpPath string) {
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.WarnContext(ctx, "Failed to remove temp state file",
			"error", err,
			"path", tmpPath)
	}
}
