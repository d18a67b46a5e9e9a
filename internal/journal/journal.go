// Package journal fetches and follows the managed unit's journald logs
// through journalctl's JSON output.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Entry is one journal record for the managed unit.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Priority  int       `json:"priority"`
	Unit      string    `json:"unit,omitempty"`
	PID       string    `json:"pid,omitempty"`
}

// rawEntry mirrors the journald JSON fields the panel reads. MESSAGE is a
// raw value because journald emits a byte array for non-UTF-8 payloads.
type rawEntry struct {
	RealtimeTimestamp string          `json:"__REALTIME_TIMESTAMP"`
	Message           json.RawMessage `json:"MESSAGE"`
	Priority          string          `json:"PRIORITY"`
	Unit              string          `json:"_SYSTEMD_UNIT"`
	PID               string          `json:"_PID"`
}

// Runner executes journalctl and returns its whole standard output.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// StreamStarter launches journalctl in follow mode and returns its live
// standard output. Closing the reader reaps the process.
type StreamStarter func(ctx context.Context, args ...string) (io.ReadCloser, error)

func execRunner(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "journalctl", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("journalctl: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, err
	}
	return out, nil
}

func execStream(ctx context.Context, args ...string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, "journalctl", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &processPipe{ReadCloser: stdout, cmd: cmd}, nil
}

// processPipe ties a stdout pipe to its process so the child is always
// reaped.
type processPipe struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (p *processPipe) Close() error {
	p.ReadCloser.Close()
	return p.cmd.Wait()
}

// Reader reads the journal of one unit.
type Reader struct {
	unit   string
	run    Runner
	stream StreamStarter
}

// NewReader creates a journal reader for the named unit. A .service suffix
// on the name is accepted and trimmed. It fails when journalctl is not on
// PATH.
func NewReader(unit string) (*Reader, error) {
	if _, err := exec.LookPath("journalctl"); err != nil {
		return nil, fmt.Errorf("journalctl not found: %w", err)
	}
	return &Reader{unit: strings.TrimSuffix(unit, ".service"), run: execRunner, stream: execStream}, nil
}

// NewReaderWith creates a reader backed by custom command runners.
func NewReaderWith(unit string, run Runner, stream StreamStarter) *Reader {
	return &Reader{unit: unit, run: run, stream: stream}
}

// Recent returns up to n of the newest entries for the unit, oldest first.
// A non-empty since filter is handed to journalctl's --since.
func (r *Reader) Recent(ctx context.Context, n int, since string) ([]Entry, error) {
	args := []string{"-u", r.unit + ".service", "-n", strconv.Itoa(n), "-o", "json", "--no-pager"}
	if since != "" {
		args = append(args, "--since", since)
	}

	output, err := r.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return parseEntries(output), nil
}

// Follow streams entries appended to the unit's journal from now on. The
// returned channel closes when ctx is cancelled or journalctl exits.
func (r *Reader) Follow(ctx context.Context) (<-chan Entry, error) {
	args := []string{"-u", r.unit + ".service", "-f", "-n", "0", "-o", "json", "--no-pager"}
	pipe, err := r.stream(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to follow journal: %w", err)
	}

	entries := make(chan Entry, 64)
	go func() {
		defer close(entries)
		defer pipe.Close()

		scanner := bufio.NewScanner(pipe)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			entry, ok := parseEntry(scanner.Bytes())
			if !ok {
				continue
			}
			select {
			case entries <- entry:
			case <-ctx.Done():
				return
			}
		}
	}()
	return entries, nil
}

func parseEntries(output []byte) []Entry {
	var entries []Entry
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if entry, ok := parseEntry(scanner.Bytes()); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func parseEntry(line []byte) (Entry, bool) {
	if len(line) == 0 {
		return Entry{}, false
	}

	var raw rawEntry
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, false
	}

	entry := Entry{
		Message:  decodeMessage(raw.Message),
		Priority: 6,
		Unit:     raw.Unit,
		PID:      raw.PID,
	}
	if p, err := strconv.Atoi(raw.Priority); err == nil {
		entry.Priority = p
	}
	if usec, err := strconv.ParseInt(raw.RealtimeTimestamp, 10, 64); err == nil {
		entry.Timestamp = time.UnixMicro(usec).UTC()
	}
	return entry, true
}

// decodeMessage handles journald's two MESSAGE encodings: a plain string,
// or an array of bytes when the payload is not valid UTF-8.
func decodeMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var b []byte
	if err := json.Unmarshal(raw, &b); err == nil {
		return string(b)
	}
	return string(raw)
}
