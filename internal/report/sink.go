package report

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LogSink appends screening reports to a JSONL file, one record per line.
// It keeps a running log across cases next to the per-case directories.
type LogSink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

func NewLogSink(path string) (*LogSink, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return &LogSink{
		path:   path,
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

func (s *LogSink) Name() string { return "file_jsonl:" + s.path }

func (s *LogSink) Save(_ context.Context, r *Report) (string, error) {
	if r == nil {
		return "", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return "", fmt.Errorf("write newline: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return "", fmt.Errorf("flush: %w", err)
	}
	return s.path, nil
}

func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		_ = s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
