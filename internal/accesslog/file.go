package accesslog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mixelka/tempinbox/pkg/models"
)

// FileStore appends visits to a plain text file, one per line
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store writing to path. The file is created on
// the first Append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes one line for v
func (s *FileStore) Append(_ context.Context, v models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if _, err := f.WriteString(Format(v) + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to write log line: %w", err)
	}
	return f.Close()
}

// Recent returns the last n well-formed lines, newest first
func (s *FileStore) Recent(ctx context.Context, n int) ([]models.Visit, error) {
	if n <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	// ring of the last n lines
	ring := make([]models.Visit, n)
	count := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := Parse(scanner.Text())
		if err != nil {
			continue
		}
		ring[count%n] = v
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	size := min(count, n)
	out := make([]models.Visit, 0, size)
	for i := 1; i <= size; i++ {
		out = append(out, ring[(count-i)%n])
	}
	return out, nil
}
