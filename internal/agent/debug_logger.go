package agent

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugRetention is how long transcript files are kept before NewDebugLogger
// removes them.
const DebugRetention = 7 * 24 * time.Hour

// DebugLogger writes a JSONL transcript of one run: requests, responses,
// frames and tool results. A nil *DebugLogger is valid and logs nothing.
type DebugLogger struct {
	path      string
	runID     string
	mu        sync.Mutex
	file      *os.File
	writer    *bufio.Writer
	closeOnce sync.Once
	closed    bool
}

type debugEntry struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id"`
	Type      string `json:"type"`
	Iteration int    `json:"iteration,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type debugRunStart struct {
	Mode  string   `json:"mode"`
	Agent string   `json:"agent"`
	Args  []string `json:"args,omitempty"`
}

// NewDebugLogger opens <baseDir>/<runID>.jsonl for appending. Transcripts
// older than DebugRetention are removed first.
func NewDebugLogger(baseDir, runID string) (*DebugLogger, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	_ = CleanupOldLogs(baseDir, DebugRetention)

	path := filepath.Join(baseDir, runID+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &DebugLogger{
		path:   path,
		runID:  runID,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Path returns the transcript file path.
func (l *DebugLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// LogRunStart records how the run was started.
func (l *DebugLogger) LogRunStart(mode, agentName string, args []string) {
	l.write("run_start", 0, debugRunStart{Mode: mode, Agent: agentName, Args: args})
	l.Flush()
}

func (l *DebugLogger) LogRequest(iteration int, req *Request) {
	l.write("request", iteration, req)
}

func (l *DebugLogger) LogResponse(iteration int, resp *InvokeResponse) {
	l.write("response", iteration, resp)
	l.Flush()
}

func (l *DebugLogger) LogFrame(iteration int, frame Frame) {
	l.write("frame", iteration, frame)
	if frame.Event == FrameEnd || frame.Event == FrameError {
		l.Flush()
	}
}

func (l *DebugLogger) LogToolResults(iteration int, results []Message) {
	l.write("tool_result", iteration, SerializeMessages(results))
	l.Flush()
}

// LogError records the error a run ended with.
func (l *DebugLogger) LogError(err error) {
	if err == nil {
		return
	}
	l.write("error", 0, map[string]string{"error": err.Error()})
	l.Flush()
}

func (l *DebugLogger) write(kind string, iteration int, data any) {
	if l == nil {
		return
	}
	entry := debugEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     l.runID,
		Type:      kind,
		Iteration: iteration,
		Data:      data,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.writer.Write(line)
	l.writer.WriteByte('\n')
}

// Flush writes buffered entries to disk.
func (l *DebugLogger) Flush() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.writer.Flush()
	}
}

// Close flushes and closes the transcript. It is idempotent.
func (l *DebugLogger) Close() error {
	if l == nil {
		return nil
	}
	var closeErr error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if err := l.writer.Flush(); err != nil {
			closeErr = err
		}
		if err := l.file.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
		l.closed = true
	})
	return closeErr
}

// CleanupOldLogs removes .jsonl files in baseDir last modified before maxAge ago.
func CleanupOldLogs(baseDir string, maxAge time.Duration) error {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(baseDir, entry.Name()))
		}
	}
	return nil
}
