// Package history records the operation history of a run as an append-only
// CSV file for an external consistency checker. Every operation appears as
// an invoke record followed by ok, fail or info; info means the outcome is
// unknown and the checker must assume the operation may have applied.
package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Type tags one history record.
type Type int

const (
	Invoke Type = iota
	Ok
	Fail
	Info
)

func (t Type) String() string {
	switch t {
	case Invoke:
		return "invoke"
	case Ok:
		return "ok"
	case Fail:
		return "fail"
	case Info:
		return "info"
	default:
		panic("unhandled default case")
	}
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	switch s {
	case "invoke":
		return Invoke, nil
	case "ok":
		return Ok, nil
	case "fail":
		return Fail, nil
	case "info":
		return Info, nil
	default:
		return 0, fmt.Errorf("history: unknown record type %q", s)
	}
}

// Record is one history entry. Elapsed is measured from the start of the
// run so records from different workers share a clock. Kind carries the
// error kind on fail and info records, empty otherwise.
type Record struct {
	Index   int64
	Elapsed time.Duration
	Worker  int
	Type    Type
	Op      string
	Key     string
	Value   string
	Kind    string
}

// Log is an append-only history writer. A single goroutine serializes
// appends, so any number of workers may record concurrently.
type Log struct {
	RunID string

	path      string
	file      *os.File
	csvWriter *csv.Writer
	start     time.Time
	nextIndex int64
	requests  chan appendRequest
	closed    chan struct{}
}

type appendRequest struct {
	rec  Record
	done chan int64
}

// NewLog creates (or truncates) the history file at logPath. The first
// record is an info entry carrying a fresh run ID.
func NewLog(logPath string) (*Log, error) {
	if dir := path.Dir(logPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
	}
	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	l := &Log{
		RunID:     uuid.New().String(),
		path:      logPath,
		file:      file,
		csvWriter: csv.NewWriter(file),
		start:     time.Now(),
		requests:  make(chan appendRequest),
		closed:    make(chan struct{}),
	}
	go l.loop()

	l.append(Record{Type: Info, Op: "run", Value: l.RunID})
	return l, nil
}

func (l *Log) loop() {
	for req := range l.requests {
		rec := req.rec
		rec.Index = l.nextIndex
		l.nextIndex++
		rec.Elapsed = time.Since(l.start)

		err := l.csvWriter.Write([]string{
			strconv.FormatInt(rec.Index, 10),
			strconv.FormatInt(rec.Elapsed.Nanoseconds(), 10),
			strconv.Itoa(rec.Worker),
			rec.Type.String(),
			rec.Op,
			rec.Key,
			rec.Value,
			rec.Kind,
		})
		if err == nil {
			l.csvWriter.Flush()
			err = l.file.Sync()
		}
		if err != nil {
			// A half-written history is worthless to a checker.
			panic(fmt.Sprintf("history: append failed: %v", err))
		}

		req.done <- rec.Index
	}
	close(l.closed)
}

func (l *Log) append(rec Record) int64 {
	done := make(chan int64)
	l.requests <- appendRequest{rec: rec, done: done}
	return <-done
}

// Invoke records the start of an operation and returns its index.
func (l *Log) Invoke(worker int, op, key, value string) int64 {
	return l.append(Record{Worker: worker, Type: Invoke, Op: op, Key: key, Value: value})
}

// Ok records a completed operation.
func (l *Log) Ok(worker int, op, key, value string) {
	l.append(Record{Worker: worker, Type: Ok, Op: op, Key: key, Value: value})
}

// Fail records an operation that definitely did not apply.
func (l *Log) Fail(worker int, op, key, kind string) {
	l.append(Record{Worker: worker, Type: Fail, Op: op, Key: key, Kind: kind})
}

// Unknown records an operation whose effect is unknown.
func (l *Log) Unknown(worker int, op, key, kind string) {
	l.append(Record{Worker: worker, Type: Info, Op: op, Key: key, Kind: kind})
}

// Name returns the path of the history file.
func (l *Log) Name() string {
	return l.path
}

// Close flushes and closes the history file. No records may be appended
// after Close.
func (l *Log) Close() error {
	close(l.requests)
	<-l.closed
	return l.file.Close()
}

// Read loads a history file back, for tests and for handing to a checker.
func Read(logPath string) ([]Record, error) {
	file, err := os.Open(logPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if len(row) != 8 {
			return nil, fmt.Errorf("history: row has %d fields, want 8", len(row))
		}
		index, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("history: bad index %q", row[0])
		}
		elapsed, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("history: bad elapsed %q", row[1])
		}
		worker, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("history: bad worker %q", row[2])
		}
		typ, err := ParseType(row[3])
		if err != nil {
			return nil, err
		}

		records = append(records, Record{
			Index:   index,
			Elapsed: time.Duration(elapsed),
			Worker:  worker,
			Type:    typ,
			Op:      row[4],
			Key:     row[5],
			Value:   row[6],
			Kind:    row[7],
		})
	}
	return records, nil
}
