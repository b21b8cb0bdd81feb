// Package audit records security events (registrations, logins, logouts and
// denied access) and keeps them in a dedicated append-only log file
package audit

import (
	"bufio"   // Line reading for Tail
	"bytes"   // Line assembly
	"errors"  // EOF checks
	"fmt"     // Error wrapping and value formatting
	"io"      // Hook output
	"os"      // Log file access
	"sort"    // Stable field order
	"strconv" // Quoting field values
	"strings" // Tag matching
	"sync"    // Serialised writes

	"github.com/sirupsen/logrus" // Structured logging
)

const (
	Tag        = "SECURITY"               // Prefix of every security event message
	MaxLineLen = 1024                     // Longest line Tail hands back, longer lines are cut
	timeLayout = "01/02/2006 03:04:05 PM" // Month/day/year 12 hour clock
)

// Logger emits security events through a logrus logger
type Logger struct {
	log logrus.FieldLogger // Destination logger
}

// New wraps log. Events are written at warning level
func New(log logrus.FieldLogger) *Logger {
	return &Logger{log: log}
}

// Event logs "SECURITY - action" with the given fields
func (l *Logger) Event(action string, fields logrus.Fields) {
	l.log.WithFields(fields).Warnf("%s - %s", Tag, action)
}

// LineFormatter writes one event per line as
// "<timestamp> : SECURITY - action key=value ..." with keys sorted
type LineFormatter struct{}

func (LineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(e.Time.Format(timeLayout))
	b.WriteString(" : ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data)) // Field names in output order
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fieldValue(e.Data[k]))
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// fieldValue renders v, quoting it when it would break the line apart
func fieldValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// FileHook appends security events, and only those, to a writer
type FileHook struct {
	mu        sync.Mutex       // Guards w
	w         io.Writer        // Security log
	formatter logrus.Formatter // Line layout
}

// NewFileHook returns a hook writing to w
func NewFileHook(w io.Writer) *FileHook {
	return &FileHook{w: w, formatter: LineFormatter{}}
}

func (h *FileHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (h *FileHook) Fire(e *logrus.Entry) error {
	if !strings.HasPrefix(e.Message, Tag) {
		return nil // Ordinary warnings stay in the application log
	}
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

// AttachFile opens path for appending and hooks it into log.
// The returned file must be closed on shutdown
func AttachFile(log *logrus.Logger, path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open security log: %w", err)
	}
	log.AddHook(NewFileHook(f))
	return f, nil
}

// Tail returns up to n of the last lines of the log at path, newest first.
// A missing file or a non-positive n yields no lines. Lines longer than
// MaxLineLen are cut short
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n) // Last n lines, oldest first
	r := bufio.NewReader(f)
	for {
		line, err := readLine(r)
		if line != "" || err == nil {
			if len(ring) == n {
				ring = ring[1:]
			}
			ring = append(ring, line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
	return ring, nil
}

// readLine reads one line of any length, keeping at most MaxLineLen bytes of it
func readLine(r *bufio.Reader) (string, error) {
	var kept []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if room := MaxLineLen - len(kept); room > 0 {
			kept = append(kept, chunk[:min(room, len(chunk))]...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue // Rest of an overlong line
		}
		return strings.TrimRight(string(kept), "\r\n"), err
	}
}
