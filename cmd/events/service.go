package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service records and lists control events, newest last.
type Service interface {
	Record(at time.Time, kind Kind, message string) (Event, error)
	List() []Event
}

// DefaultLimit bounds how many events are retained in memory.
const DefaultLimit = 500

var _ Service = (*memoryService)(nil)
var _ Service = (*fileService)(nil)

// memoryService keeps the most recent events only. HTTP handlers may read
// it while the loop writes, hence the mutex.
type memoryService struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

func NewMemoryService(limit int) Service {
	return newMemoryService(limit)
}

func newMemoryService(limit int) *memoryService {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &memoryService{limit: limit}
}

func (s *memoryService) Record(at time.Time, kind Kind, message string) (Event, error) {
	e := Event{ID: uuid.NewString(), At: at, Kind: kind, Message: message}
	s.append(e)
	return e, nil
}

func (s *memoryService) append(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if over := len(s.events) - s.limit; over > 0 {
		s.events = append(s.events[:0:0], s.events[over:]...)
	}
}

func (s *memoryService) List() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// fileService appends each event as a JSON line under dir and mirrors
// the tail in memory. Once the file holds twice the limit it is rewritten
// down to the retained tail.
type fileService struct {
	*memoryService
	path  string
	lines int
}

// NewFileService opens (or creates) dir/events.jsonl and loads its tail.
// Corrupt lines are skipped.
func NewFileService(dir string, limit int) (Service, error) {
	if dir == "" {
		return nil, errors.New("empty events dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &fileService{memoryService: newMemoryService(limit), path: filepath.Join(dir, "events.jsonl")}

	f, err := os.Open(s.path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if f != nil {
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			var e Event
			if err := json.Unmarshal([]byte(line), &e); err != nil || e.ID == "" {
				continue
			}
			s.memoryService.append(e)
			s.lines++
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	if s.lines > 2*s.limit {
		if err := s.compact(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *fileService) Record(at time.Time, kind Kind, message string) (Event, error) {
	e, _ := s.memoryService.Record(at, kind, message)
	data, err := json.Marshal(e)
	if err != nil {
		return e, err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return e, err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return e, err
	}
	s.lines++
	if s.lines > 2*s.limit {
		if err := s.compact(); err != nil {
			return e, fmt.Errorf("compact %s: %w", s.path, err)
		}
	}
	return e, nil
}

// compact replaces the file with the in-memory tail.
func (s *fileService) compact() error {
	evs := s.List()
	var buf bytes.Buffer
	for _, e := range evs {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	s.lines = len(evs)
	return nil
}
