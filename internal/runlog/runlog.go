package runlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/homeledger/homeledger/internal/model"
	"github.com/homeledger/homeledger/internal/reconcile"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp   time.Time
	UserID      string
	Operation   string
	AccountID   string
	WindowStart string
	WindowEnd   string
	Deleted     int
	Created     int
	Restored    int
	Skipped     int
	Message     string
}

// Header is the CSV header of the run log.
const Header = "timestamp,user,operation,account,window_start,window_end,deleted,created,restored,skipped,message"

const (
	numFields      = 11
	colTimestamp   = 0
	colUser        = 1
	colOperation   = 2
	colAccount     = 3
	colWindowStart = 4
	colWindowEnd   = 5
	colDeleted     = 6
	colCreated     = 7
	colRestored    = 8
	colSkipped     = 9
	colMessage     = 10
)

// FromRun converts a completed reconcile run to a log entry.
func FromRun(run reconcile.Run) Entry {
	e := Entry{
		Timestamp: run.Time,
		UserID:    run.UserID,
		Operation: string(run.Operation),
		AccountID: run.Window.AccountID,
		Deleted:   run.Deleted,
		Created:   run.Created,
		Restored:  run.Restored,
		Skipped:   run.Skipped,
		Message:   run.Message,
	}
	if !run.Window.Start.IsZero() {
		e.WindowStart = run.Window.Start.Format(model.DateFormat)
	}
	if !run.Window.End.IsZero() {
		e.WindowEnd = run.Window.End.Format(model.DateFormat)
	}
	return e
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colUser] = e.UserID
	row[colOperation] = e.Operation
	row[colAccount] = e.AccountID
	row[colWindowStart] = e.WindowStart
	row[colWindowEnd] = e.WindowEnd
	row[colDeleted] = strconv.Itoa(e.Deleted)
	row[colCreated] = strconv.Itoa(e.Created)
	row[colRestored] = strconv.Itoa(e.Restored)
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colMessage] = e.Message
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	counts := make([]int, 4)
	for i, col := range []int{colDeleted, colCreated, colRestored, colSkipped} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
		counts[i] = n
	}

	return Entry{
		Timestamp:   ts,
		UserID:      record[colUser],
		Operation:   record[colOperation],
		AccountID:   record[colAccount],
		WindowStart: record[colWindowStart],
		WindowEnd:   record[colWindowEnd],
		Deleted:     counts[0],
		Created:     counts[1],
		Restored:    counts[2],
		Skipped:     counts[3],
		Message:     record[colMessage],
	}, nil
}

// Append writes entries to the log at path, creating the file and header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating run log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from the log at path.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Recorder appends every completed reconcile run to a log file.
type Recorder struct {
	path string
	mu   sync.Mutex
}

// NewRecorder creates a Recorder writing to path.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Record implements reconcile.Recorder.
func (r *Recorder) Record(_ context.Context, run reconcile.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Append(r.path, []Entry{FromRun(run)})
}
