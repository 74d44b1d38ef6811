// Package report provides the JSON envelope written by --save and the
// functionality for writing it to a timestamped file.
//
// The envelope standardizes the common fields (timestamp, network, query,
// elapsed_ms, error) while the command-specific result is carried as-is.
// Reports are saved to a "reports" directory with timestamped filenames
// to allow tracking results over time.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultDir is where reports are written unless a caller says otherwise.
const DefaultDir = "reports"

// MillisDuration marshals a time.Duration as an integer millisecond count.
type MillisDuration time.Duration

func (d MillisDuration) MarshalJSON() ([]byte, error) {
	ms := time.Duration(d).Milliseconds()
	return json.Marshal(ms)
}

// Error is the failure of a query that produced no result.
type Error struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Report is the JSON-serializable envelope of one query.
type Report struct {
	Timestamp time.Time      `json:"timestamp"`
	Command   string         `json:"command"`
	Network   string         `json:"network"`
	Query     []string       `json:"query"`
	ElapsedMS MillisDuration `json:"elapsed_ms"`
	Result    any            `json:"result,omitempty"`
	Error     *Error         `json:"error,omitempty"`
}

// New starts a report for command run against network with the given
// arguments.
func New(command, network string, query ...string) *Report {
	return &Report{
		Timestamp: time.Now().UTC(),
		Command:   command,
		Network:   network,
		Query:     query,
	}
}

// Finish records the result (or failure) and the time since Timestamp.
func (r *Report) Finish(result any, category string, err error) *Report {
	r.ElapsedMS = MillisDuration(time.Since(r.Timestamp))
	if err != nil {
		r.Error = &Error{Category: category, Message: err.Error()}
		return r
	}
	r.Result = result
	return r
}

// WriteJSON writes the given data structure to a JSON file in dir.
// The file is created with a timestamped filename to prevent overwrites and
// enable historical tracking of command outputs.
//
// Filename format:
//
//	{prefix}-{timestamp}.json
//	Example: "account-20260120-124236.json"
//
// dir is created (0755) if it does not exist. The returned string is the
// path of the written file.
func WriteJSON(dir string, data any, prefix string) (string, error) {
	if prefix == "" {
		prefix = "report"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.json", prefix, timestamp))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return path, nil
}
