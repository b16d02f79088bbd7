package worker

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Pruner deletes certificate artifacts past their retention period.
type Pruner struct {
	root      string
	retention time.Duration
	log       *slog.Logger
}

// NewPruner creates a pruner over the certificate storage root.
func NewPruner(root string, retention time.Duration, log *slog.Logger) *Pruner {
	return &Pruner{root: root, retention: retention, log: log}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check interval: 10% of retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, time.Hour)
	interval = max(interval, time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune()
		}
	}
}

func (p *Pruner) prune() {
	cutoff := time.Now().Add(-p.retention)
	removed := 0

	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			p.log.Warn("failed to prune certificate artifact", "path", path, "error", err)
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		p.log.Warn("certificate prune walk failed", "root", p.root, "error", err)
		return
	}

	if removed > 0 {
		p.log.Info("pruned expired certificate artifacts", "count", removed, "retention", p.retention)
	}
}
