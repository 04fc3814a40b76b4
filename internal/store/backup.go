package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// sqliteMagic is the 16-byte header of every sqlite database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// Backup writes a consistent copy of the database to path as a single
// portable sqlite file. Only the sqlite driver supports it.
func (s *Store) Backup(ctx context.Context, path string) error {
	if s.driver != "sqlite" {
		return fmt.Errorf("store: backup is not supported for the %s driver", s.driver)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: backup: %w", err)
	}
	// VACUUM INTO refuses to overwrite.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: backup: %w", err)
	}
	if err := s.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("store: backup to %s: %w: %w", path, ErrUnavailable, err)
	}
	return nil
}

// Import replaces the sqlite file at dst with src. The current file, if
// any, is first copied aside to dst.pre_import_backup_<timestamp>, whose
// path is returned. The store must be closed and the process restarted
// afterwards.
func Import(src, dst string, now time.Time) (string, error) {
	if err := checkSQLiteFile(src); err != nil {
		return "", err
	}

	var saved string
	if _, err := os.Stat(dst); err == nil {
		saved = fmt.Sprintf("%s.pre_import_backup_%s", dst, now.Format("20060102150405"))
		if err := copyFile(dst, saved); err != nil {
			return "", fmt.Errorf("store: import: save current database: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("store: import: %w", err)
	}

	tmp := dst + ".importing"
	if err := copyFile(src, tmp); err != nil {
		return saved, fmt.Errorf("store: import: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return saved, fmt.Errorf("store: import: %w", err)
	}
	return saved, nil
}

func checkSQLiteFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("store: import: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, sqliteMagic) {
		return fmt.Errorf("store: import: %s is not a sqlite database", path)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
