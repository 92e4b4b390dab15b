// Package audit provides the append-only operation log written during a
// deployment run.
//
// Every externally visible action the orchestrator takes produces exactly
// one record, written before the outcome is acted upon. The log is the
// authoritative account of what the orchestrator observed and decided, and
// is the primary input for post-mortem diagnosis of a failed run.
package audit

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Status classifies the outcome of a recorded operation.
type Status string

const (
	// StatusInfo marks a neutral progress record.
	StatusInfo Status = "INFO"
	// StatusSuccess marks a completed operation.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed marks a fatal operation failure.
	StatusFailed Status = "FAILED"
	// StatusWarning marks a degraded but non-fatal condition.
	StatusWarning Status = "WARNING"
)

// header is written exactly once when the log file is opened.
var header = []string{"Timestamp", "Operation", "Status", "Details"}

// Record is a single audit log entry.
type Record struct {
	Timestamp time.Time
	Operation string
	Status    Status
	Details   string
}

// Log is an append-only CSV sink for operation records.
//
// A Log is opened once per run and passed explicitly to every stage;
// there is no package-level default.
type Log struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	count  int
	now    func() time.Time
}

// Open creates (or truncates) the audit log at path and writes the
// column header.
func Open(path string) (*Log, error) {
	// #nosec G304
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write audit log header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to flush audit log header: %w", err)
	}

	return &Log{
		file:   file,
		writer: w,
		now:    time.Now,
	}, nil
}

// Record appends one row to the log and mirrors it to the console.
// Append failures are reported but never abort the run: a deployment
// must not fail because its audit trail could not be written.
func (l *Log) Record(operation string, status Status, details string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().Format(time.RFC3339)
	if err := l.writer.Write([]string{ts, operation, string(status), details}); err != nil {
		log.Printf("audit: failed to append record for %s: %v", operation, err)
		return
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		log.Printf("audit: failed to flush record for %s: %v", operation, err)
		return
	}

	l.count++
	log.Printf("[%s] %s: %s", status, operation, details)
}

// Count returns the number of records appended so far, excluding the header.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}
