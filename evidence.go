package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	uploadsDirName        = "uploads"
	stagingDirName        = "staging"
	maxEvidenceNameLength = 128
	fallbackEvidenceName  = "evidence"
)

// evidenceFile is one uploaded attachment, opened lazily so the multipart
// buffer is only read while staging.
type evidenceFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

type evidenceStore struct {
	root string
}

func newEvidenceStore(dataRoot string) *evidenceStore {
	return &evidenceStore{root: dataRoot}
}

func (s *evidenceStore) uploadsDir() string { return filepath.Join(s.root, uploadsDirName) }
func (s *evidenceStore) stagingDir() string { return filepath.Join(s.root, stagingDirName) }

// evidenceBatch tracks the files of one submission from staging until the
// report record is committed.
type evidenceBatch struct {
	store    *evidenceStore
	names    []string
	promoted int
}

// stage streams files into the staging directory in attachment order. On
// failure every file already written for this batch is removed.
func (s *evidenceStore) stage(files []evidenceFile) (*evidenceBatch, error) {
	batch := &evidenceBatch{store: s, names: make([]string, 0, len(files))}
	if len(files) == 0 {
		return batch, nil
	}
	if err := os.MkdirAll(s.stagingDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	for _, file := range files {
		name := uuid.NewString() + "_" + sanitizeEvidenceName(file.Name)
		if err := s.writeStaged(name, file); err != nil {
			_ = batch.discard()
			return nil, fmt.Errorf("stage %s: %w", file.Name, err)
		}
		batch.names = append(batch.names, name)
	}
	return batch, nil
}

func (s *evidenceStore) writeStaged(name string, file evidenceFile) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	target := filepath.Join(s.stagingDir(), name)
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return err
	}
	return nil
}

// promote moves the staged files into the uploads directory.
func (b *evidenceBatch) promote() error {
	if len(b.names) == 0 {
		return nil
	}
	if err := os.MkdirAll(b.store.uploadsDir(), 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	for _, name := range b.names[b.promoted:] {
		from := filepath.Join(b.store.stagingDir(), name)
		to := filepath.Join(b.store.uploadsDir(), name)
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("promote %s: %w", name, err)
		}
		b.promoted++
	}
	return nil
}

// discard removes every file of the batch from staging and uploads.
func (b *evidenceBatch) discard() error {
	var errs []error
	for _, name := range b.names {
		for _, dir := range []string{b.store.stagingDir(), b.store.uploadsDir()} {
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// paths returns the stored paths, relative to the data root, in attachment order.
func (b *evidenceBatch) paths() []string {
	out := make([]string, 0, len(b.names))
	for _, name := range b.names {
		out = append(out, path.Join(uploadsDirName, name))
	}
	return out
}

// sanitizeEvidenceName reduces a client filename to a safe base name.
func sanitizeEvidenceName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == ':' {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	if name == "" || name == "." || name == ".." {
		return fallbackEvidenceName
	}
	if len(name) > maxEvidenceNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = strings.ToValidUTF8(name[:maxEvidenceNameLength-len(ext)], "") + ext
	}
	return name
}
