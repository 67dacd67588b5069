package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"
)

type reconcileResult struct {
	StagingRemoved int `json:"stagingRemoved"`
	UploadsRemoved int `json:"uploadsRemoved"`
}

// reconcile deletes staged files older than grace and uploaded files that no
// report references and that are older than grace. Young files are kept so a
// submission between promote and insert is never touched.
func (s *evidenceStore) reconcile(ctx context.Context, referenced map[string]struct{}, grace time.Duration, now time.Time) (reconcileResult, error) {
	var result reconcileResult
	cutoff := now.Add(-grace)

	removed, err := removeOlderThan(ctx, s.stagingDir(), cutoff, func(string) bool { return true })
	result.StagingRemoved = removed
	if err != nil {
		return result, err
	}

	removed, err = removeOlderThan(ctx, s.uploadsDir(), cutoff, func(name string) bool {
		_, ok := referenced[path.Join(uploadsDirName, name)]
		return !ok
	})
	result.UploadsRemoved = removed
	return result, err
}

func removeOlderThan(ctx context.Context, dir string, cutoff time.Time, eligible func(name string) bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() || !eligible(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, err
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (a *App) reconcileEvidence(ctx context.Context, now time.Time) (reconcileResult, error) {
	referenced, err := a.store.EvidencePaths(ctx)
	if err != nil {
		return reconcileResult{}, fmt.Errorf("load evidence references: %w", err)
	}
	result, err := a.evidence.reconcile(ctx, referenced, a.cfg.OrphanGracePeriod, now)
	a.metrics.orphanFilesRemoved.WithLabelValues(stagingDirName).Add(float64(result.StagingRemoved))
	a.metrics.orphanFilesRemoved.WithLabelValues(uploadsDirName).Add(float64(result.UploadsRemoved))
	if err != nil {
		return result, err
	}
	if result.StagingRemoved > 0 || result.UploadsRemoved > 0 {
		a.log.Info("evidence reconciled", "staging_removed", result.StagingRemoved, "uploads_removed", result.UploadsRemoved)
	}
	return result, nil
}

// startEvidenceReconciler runs reconcileEvidence on every tick until ctx is
// cancelled. The returned channel is closed once the loop has exited.
func (a *App) startEvidenceReconciler(ctx context.Context, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = time.Hour
	}

	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := a.reconcileEvidence(ctx, now); err != nil && ctx.Err() == nil {
					a.log.Error("evidence reconciliation failed", "err", err)
				}
			}
		}
	}()
	return done
}
