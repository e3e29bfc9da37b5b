// Package convlog implements the append-only conversation log and the
// per-agent prompt reconstruction rules derived from it.
package convlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

// Log is an append-only JSONL sequence of core.Message entries. Reads are
// full replays; there is no indexing beyond linear scan since logs are
// bounded by turn limits.
type Log struct {
	path string
}

// New creates a Log backed by the JSONL file at path.
func New(path string) *Log {
	return &Log{path: path}
}

// Append writes one message as a new line, creating the file if needed.
func (l *Log) Append(msg core.Message) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("convlog: opening %s: %w", l.path, err)
	}
	defer f.Close()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("convlog: marshaling message: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("convlog: writing %s: %w", l.path, err)
	}
	return nil
}

// ReadAll replays the entire log in append order.
func (l *Log) ReadAll() ([]core.Message, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("convlog: opening %s: %w", l.path, err)
	}
	defer f.Close()

	var messages []core.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg core.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("convlog: parsing line: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("convlog: scanning %s: %w", l.path, err)
	}
	return messages, nil
}

// CurrentPhaseSegment returns only the messages after the last
// phase-boundary marker, or the entire log if none exists.
func CurrentPhaseSegment(messages []core.Message) []core.Message {
	last := -1
	for i, m := range messages {
		if m.PhaseBoundary {
			last = i
		}
	}
	return messages[last+1:]
}

// DebugLog is a separate append-only sink for prompt/response dumps, kept
// apart from the conversation log since it is excluded from checkpoints.
type DebugLog struct {
	path string
}

// NewDebugLog creates a debug log backed by the JSONL file at path.
func NewDebugLog(path string) *DebugLog {
	return &DebugLog{path: path}
}

// Append writes one diagnostic record as a new line.
func (d *DebugLog) Append(record interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("convlog: marshaling debug record: %w", err)
	}
	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("convlog: opening debug log %s: %w", d.path, err)
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}
