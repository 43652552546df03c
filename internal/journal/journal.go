// Package journal is the append-only observability sink: one JSONL line
// per consensus decision and per order outcome, partitioned by UTC day.
// Writes are best-effort; callers ignore errors because losing a journal
// line must never affect trading correctness.
package journal

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var mu sync.Mutex

// DecisionEntry records one consensus and what the engine did with it.
type DecisionEntry struct {
	Time          string  `json:"time"`
	ObservationID string  `json:"observation_id"`
	ContractID    string  `json:"contract_id"`
	OutcomeID     string  `json:"outcome_id"`
	Score         int     `json:"score"`
	Agreement     float64 `json:"agreement"`
	Dissent       int     `json:"dissent"`
	LowConfidence bool    `json:"low_confidence"`
	State         string  `json:"state"`
	Reason        string  `json:"reason"`
}

// OrderEntry records one order leg outcome.
type OrderEntry struct {
	Time       string  `json:"time"`
	ContractID string  `json:"contract_id"`
	OutcomeID  string  `json:"outcome_id"`
	Side       string  `json:"side"`
	Qty        int     `json:"qty"`
	Price      float64 `json:"price"`
	OrderID    string  `json:"order_id"`
	IntentID   string  `json:"intent_id"`
	Status     string  `json:"status"`
	Reason     string  `json:"reason,omitempty"`
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func ordersFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), d+".txt")
}

func decisionsFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), "decisions", d+".txt")
}

// AppendOrder appends an order outcome to today's order journal.
func AppendOrder(e OrderEntry) error {
	now := time.Now().UTC()
	e.Time = now.Format("2006-01-02 15:04:05")
	return appendLine(ordersFilepath(now), e)
}

// AppendDecision appends a decision to today's decision journal.
func AppendDecision(e DecisionEntry) error {
	now := time.Now().UTC()
	e.Time = now.Format("2006-01-02 15:04:05")
	return appendLine(decisionsFilepath(now), e)
}

func appendLine(path string, v any) error {
	mu.Lock()
	defer mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(v)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files older than retentionDays.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		return compressFile(p)
	})
}

func compressFile(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return nil
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		return nil
	}
	_ = gw.Close()
	_ = out.Close()
	return os.Remove(p)
}
