// Package journal appends trading events to a JSON-lines file so a live
// session leaves an auditable trail.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aliirezaaa/trade-bot/internal/broker"
	"github.com/aliirezaaa/trade-bot/internal/strategy"
)

// Event is one journaled record.
type Event struct {
	Time time.Time `json:"time"`
	Type string    `json:"type"` // "signal", "trade", "error"
	Data any       `json:"data"`
}

// FileJournal writes events to a single append-only file.
type FileJournal struct {
	mu   sync.Mutex
	file *os.File
}

func NewFileJournal(path string) (*FileJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	return &FileJournal{file: f}, nil
}

func (j *FileJournal) Close() error { return j.file.Close() }

func (j *FileJournal) write(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal journal event: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journal event: %w", err)
	}
	return nil
}

// LogSignal records an emitted signal.
func (j *FileJournal) LogSignal(sig strategy.Signal) error {
	return j.write(Event{Time: time.Now().UTC(), Type: "signal", Data: sig})
}

// LogTrade records a closed position.
func (j *FileJournal) LogTrade(p broker.Position) error {
	return j.write(Event{Time: time.Now().UTC(), Type: "trade", Data: p})
}

// LogError records a recoverable runtime error.
func (j *FileJournal) LogError(context string, err error) error {
	return j.write(Event{
		Time: time.Now().UTC(),
		Type: "error",
		Data: map[string]string{"context": context, "error": err.Error()},
	})
}
