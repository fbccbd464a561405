package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Replay is the recorded event log of one match with a playback cursor.
// Recording captures every notification the engine publishes, so a replay
// can drive any view the live game could.
type Replay struct {
	GameID string

	mu     sync.RWMutex
	events []rules.Event
	cursor int
}

// NewReplay creates an empty replay for the given match.
func NewReplay(gameID string) *Replay {
	return &Replay{GameID: gameID}
}

// Record appends one event to the log.
func (r *Replay) Record(evt rules.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Rewind resets the playback cursor to the beginning.
func (r *Replay) Rewind() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = 0
}

// Next returns the event at the cursor and advances it. The second return
// is false once playback reaches the end of the log.
func (r *Replay) Next() (rules.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor >= len(r.events) {
		return rules.Event{}, false
	}
	evt := r.events[r.cursor]
	r.cursor++
	return evt, true
}

// Previous steps the cursor back one event and returns it.
func (r *Replay) Previous() (rules.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor == 0 {
		return rules.Event{}, false
	}
	r.cursor--
	return r.events[r.cursor], true
}

// Skip moves the cursor forward by count events, clamping at the ends.
func (r *Replay) Skip(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor += count
	if r.cursor > len(r.events) {
		r.cursor = len(r.events)
	}
	if r.cursor < 0 {
		r.cursor = 0
	}
}

// Size returns the number of recorded events.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// EventAt returns the event at a specific index.
func (r *Replay) EventAt(index int) (rules.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.events) {
		return rules.Event{}, false
	}
	return r.events[index], true
}

// PlayInto republishes the whole log, in order, onto a bus.
func (r *Replay) PlayInto(bus *rules.EventBus) {
	r.mu.RLock()
	events := make([]rules.Event, len(r.events))
	copy(events, r.events)
	r.mu.RUnlock()
	bus.PublishBatch(events)
}

type replayMetadata struct {
	GameID     string
	Timestamp  time.Time
	Version    int
	EventCount int
}

const replayVersion = 1

// SaveToFile writes the replay to <directory>/<gameID>.replay as a gzipped
// gob stream.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := gob.NewEncoder(gzipWriter)
	metadata := replayMetadata{
		GameID:     r.GameID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		EventCount: len(r.events),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range r.events {
		if err := encoder.Encode(&r.events[i]); err != nil {
			return fmt.Errorf("failed to encode event %d: %w", i, err)
		}
	}
	return nil
}

// LoadReplayFromFile reads a replay previously saved with SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)
	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.GameID)
	for i := 0; i < metadata.EventCount; i++ {
		var evt rules.Event
		if err := decoder.Decode(&evt); err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", i, err)
		}
		replay.events = append(replay.events, evt)
	}
	return replay, nil
}

// Recorder captures event logs for running games.
type Recorder struct {
	logger  *zap.Logger
	saveDir string

	mu      sync.RWMutex
	replays map[string]*Replay
	handles map[string]int
}

// NewRecorder creates a recorder that saves finished replays under saveDir.
func NewRecorder(logger *zap.Logger, saveDir string) *Recorder {
	return &Recorder{
		logger:  logger,
		saveDir: saveDir,
		replays: make(map[string]*Replay),
		handles: make(map[string]int),
	}
}

// Attach starts recording a game's event stream. Must be called before the
// game starts to capture the full log.
func (rec *Recorder) Attach(g *Game) *Replay {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if existing, ok := rec.replays[g.ID]; ok {
		return existing
	}
	replay := NewReplay(g.ID)
	handle := g.Bus().Subscribe(func(evt rules.Event) {
		replay.Record(evt)
	})
	rec.replays[g.ID] = replay
	rec.handles[g.ID] = handle
	rec.logger.Debug("recording game", zap.String("game_id", g.ID))
	return replay
}

// Detach stops recording, saves the replay to disk, and returns it.
func (rec *Recorder) Detach(g *Game) (*Replay, error) {
	rec.mu.Lock()
	replay, ok := rec.replays[g.ID]
	handle := rec.handles[g.ID]
	delete(rec.replays, g.ID)
	delete(rec.handles, g.ID)
	rec.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("game %s is not being recorded", g.ID)
	}
	g.Bus().Unsubscribe(handle)

	if rec.saveDir != "" {
		if err := replay.SaveToFile(rec.saveDir); err != nil {
			return replay, err
		}
		rec.logger.Info("replay saved",
			zap.String("game_id", g.ID),
			zap.Int("events", replay.Size()),
		)
	}
	return replay, nil
}

// Replay returns the in-memory replay for a game, if one is recording.
func (rec *Recorder) Replay(gameID string) (*Replay, bool) {
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	r, ok := rec.replays[gameID]
	return r, ok
}
