package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

var (
	// ErrRepositoryUnavailable is returned when the message directory is
	// missing or unreadable.
	ErrRepositoryUnavailable = errors.New("message repository unavailable")

	// ErrMalformedRecord marks a record that could not be parsed or lacks a
	// required field. It is never returned from Load; such files are skipped.
	ErrMalformedRecord = errors.New("malformed message record")
)

// DefaultExtensions are the record file extensions recognized by default.
var DefaultExtensions = []string{".json", ".yaml", ".yml"}

// SkipError records a repository file that was skipped during a load.
type SkipError struct {
	Path string
	Err  error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }

// LoadResult is the outcome of scanning the repository once.
type LoadResult struct {
	// Messages in directory scan order (lexical by file name).
	Messages []Message
	// Skipped lists every candidate file that did not yield a message.
	Skipped []*SkipError
}

// Reader scans a repository directory for message records.
type Reader struct {
	dir        string
	extensions []string
	logger     *slog.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithExtensions overrides the recognized record extensions.
func WithExtensions(exts ...string) ReaderOption {
	return func(r *Reader) {
		if len(exts) == 0 {
			return
		}
		r.extensions = make([]string, 0, len(exts))
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			r.extensions = append(r.extensions, e)
		}
	}
}

// WithLogger sets the logger used to report skipped records.
func WithLogger(l *slog.Logger) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReader creates a Reader for dir.
func NewReader(dir string, opts ...ReaderOption) *Reader {
	r := &Reader{
		dir:        dir,
		extensions: DefaultExtensions,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the repository directory.
func (r *Reader) Dir() string {
	return r.dir
}

// Load reads every record in the repository directory (non-recursively).
// Only an inaccessible directory is an error; individual files that vanish,
// fail to parse, or lack required fields are reported in Skipped.
func (r *Reader) Load() (*LoadResult, error) {
	info, err := os.Stat(r.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRepositoryUnavailable, r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	result := &LoadResult{Messages: make([]Message, 0, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() || !r.recognized(entry.Name()) {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		if !entry.Type().IsRegular() {
			// Symlinks are followed; pipes and devices would block the read.
			fi, err := os.Stat(path)
			if err != nil || !fi.Mode().IsRegular() {
				r.logger.Debug("ignoring non-regular file", "file", entry.Name())
				continue
			}
		}
		msg, err := ParseFile(path)
		if err != nil {
			skip := &SkipError{Path: path, Err: err}
			result.Skipped = append(result.Skipped, skip)
			r.logger.Warn("skipping message record", "file", entry.Name(), "error", err)
			continue
		}
		result.Messages = append(result.Messages, msg)
	}

	r.logger.Debug("loaded message repository",
		"dir", r.dir, "messages", len(result.Messages), "skipped", len(result.Skipped))
	return result, nil
}

func (r *Reader) recognized(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range r.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseFile reads and parses a single record file. The format is chosen by
// extension: YAML for .yaml/.yml, JSON (comments allowed) otherwise.
func ParseFile(path string) (Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Message{}, err
	}
	var msg Message
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		msg, err = ParseYAML(data)
	default:
		msg, err = ParseJSON(data)
	}
	if err != nil {
		return Message{}, err
	}
	msg.Source = path
	return msg, nil
}

// ParseJSON parses a JSON record. Comments and trailing commas are tolerated
// for hand-written files.
func ParseJSON(data []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return fromRecord(record)
}

// ParseYAML parses a YAML record.
func ParseYAML(data []byte) (Message, error) {
	var record map[string]any
	if err := yaml.Unmarshal(data, &record); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return fromRecord(record)
}

// fromRecord maps a decoded document onto a Message. id, sender and
// timestamp are required; everything else has a default.
func fromRecord(record map[string]any) (Message, error) {
	if record == nil {
		return Message{}, fmt.Errorf("%w: empty document", ErrMalformedRecord)
	}

	id := firstString(record, "id", "msg_id", "message_id")
	if id == "" {
		return Message{}, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	from := firstString(record, "from", "from_agent")
	if from == "" {
		return Message{}, fmt.Errorf("%w: missing sender", ErrMalformedRecord)
	}
	ts, err := recordTimestamp(record["timestamp"])
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	msg := Message{
		ID:        id,
		From:      from,
		To:        recipients(record["to"]),
		Subject:   scalarString(record["subject"]),
		Priority:  PriorityNormal,
		Timestamp: ts,
	}
	if p, ok := record["priority"].(string); ok {
		msg.Priority, _ = ParsePriority(p)
	}
	if body, ok := record["body"]; ok && body != nil {
		msg.Body = NewBody(body)
	} else {
		msg.Body = NewBody(map[string]any{})
	}
	return msg, nil
}

func firstString(record map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(scalarString(record[k])); s != "" {
			return s
		}
	}
	return ""
}

func recordTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return ParseTimestamp(t)
	case nil:
		return time.Time{}, fmt.Errorf("missing timestamp")
	default:
		return time.Time{}, fmt.Errorf("timestamp has unsupported type %T", v)
	}
}

// recipients accepts a single recipient string or a sequence of them.
func recipients(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(scalarString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// scalarString renders primitive values; containers and nil yield "".
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(t)
	default:
		return ""
	}
}
