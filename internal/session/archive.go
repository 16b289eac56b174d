package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mau-cards/maud/internal/game"
)

// FileArchiver persists finished games as JSON files in a directory,
// one file per game named by room ID. Each record is written to a temp
// file and renamed into place, so a reader sees either no file or a
// complete record, never a partial one.
type FileArchiver struct {
	dir    string
	logger zerolog.Logger
}

// NewFileArchiver creates an archiver writing into dir
func NewFileArchiver(dir string, logger zerolog.Logger) *FileArchiver {
	return &FileArchiver{
		dir:    dir,
		logger: logger.With().Str("component", "archive").Logger(),
	}
}

// Archive writes the finished-game record
func (a *FileArchiver) Archive(_ context.Context, record game.Record) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode game record: %w", err)
	}

	path := filepath.Join(a.dir, record.RoomID+".json")
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write game record: %w", err)
	}

	a.logger.Info().Str("room_id", record.RoomID).Str("path", path).Msg("game record written")
	return nil
}

// writeFileAtomic writes via a temp file in the same directory followed
// by a rename. Cross-filesystem renames are not atomic, so the temp
// file must live next to the target.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp.*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	tmp = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, filename)
}
