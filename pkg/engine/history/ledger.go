// Package history keeps a per-system ledger of health snapshots and derives
// how fast the health score is moving between runs.
package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/storage"
)

// DefaultKey is the ledger object name inside a store.
const DefaultKey = "history/ledger.jsonl"

// Snapshot is the headline of one analysis run.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	SystemName  string    `json:"system_name"`
	SystemType  string    `json:"system_type"`
	HealthScore float64   `json:"health_score"`
	Anomalies   int       `json:"anomalies"`
	Critical    int       `json:"critical"`
	High        int       `json:"high"`
}

// SnapshotOf condenses an analysis result.
func SnapshotOf(res *model.AnalysisResult) Snapshot {
	s := Snapshot{
		Timestamp:   res.Timestamp,
		RunID:       res.ID,
		SystemName:  res.SystemName,
		SystemType:  res.SystemType,
		HealthScore: res.HealthScore,
		Anomalies:   len(res.Anomalies),
	}
	for _, a := range res.Anomalies {
		switch a.Severity {
		case model.SeverityCritical:
			s.Critical++
		case model.SeverityHigh:
			s.High++
		}
	}
	return s
}

// Ledger is an append-only JSONL log of snapshots stored as one blob.
type Ledger struct {
	mu    sync.Mutex
	store storage.BlobStore
	key   string
}

// NewLedger initializes a ledger at key in store.
func NewLedger(store storage.BlobStore, key string) *Ledger {
	if key == "" {
		key = DefaultKey
	}
	return &Ledger{store: store, key: key}
}

// Append records a new snapshot. Blob stores have no append, so the whole
// ledger is rewritten.
func (l *Ledger) Append(ctx context.Context, s Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.readAll(ctx)
	if err != nil {
		return err
	}
	existing = append(existing, s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, snap := range existing {
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("history: encode snapshot: %w", err)
		}
	}
	if err := l.store.Put(ctx, l.key, buf.Bytes()); err != nil {
		return fmt.Errorf("history: write ledger: %w", err)
	}
	return nil
}

// Load returns the last n snapshots of systemName, oldest first. An empty
// systemName matches every snapshot.
func (l *Ledger) Load(ctx context.Context, systemName string, n int) ([]Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.readAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Snapshot
	for _, s := range all {
		if systemName == "" || s.SystemName == systemName {
			out = append(out, s)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (l *Ledger) readAll(ctx context.Context) ([]Snapshot, error) {
	data, err := l.store.Get(ctx, l.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read ledger: %w", err)
	}

	var out []Snapshot
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var s Snapshot
		// Corrupt lines are skipped.
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, scanner.Err()
}
