package game

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StrategistFactory builds a computer opponent for a freshly created game.
// The factory receives the game's grid and battle engine so the strategist
// can simulate placements on the real board.
type StrategistFactory func(playerID string, grid *Grid, battle *BattleEngine) (Strategist, error)

// Manager owns the registry of concurrent matches.
type Manager struct {
	mu     sync.RWMutex
	games  map[string]*Game
	logger *zap.Logger
}

// NewManager creates an empty match registry.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		games:  make(map[string]*Game),
		logger: logger,
	}
}

// CreateGame wires a new human-versus-AI match and registers it. The
// returned game is not started; callers subscribe listeners first, then
// call Start.
func (m *Manager) CreateGame(cfg Config, humanName string, factory StrategistFactory) (*Game, error) {
	human := NewPlayer(humanName, PlayerHuman)
	opponent := NewPlayer("Computer", PlayerAI)

	gameID := uuid.NewString()
	deal := RandomDeal{Rand: rand.New(rand.NewSource(rand.Int63()))}
	g, err := NewGame(gameID, cfg, human, opponent, TimerScheduler{}, deal, rules.NewEventBus(), m.logger)
	if err != nil {
		return nil, err
	}

	strategist, err := factory(opponent.ID, g.Grid(), g.battle)
	if err != nil {
		return nil, fmt.Errorf("failed to build strategist: %w", err)
	}
	if err := g.AttachStrategist(opponent.ID, strategist); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.games[gameID] = g
	m.mu.Unlock()

	m.logger.Info("game created",
		zap.String("game_id", gameID),
		zap.String("human", humanName),
	)
	return g, nil
}

// GetGame returns the registered game with the given ID.
func (m *Manager) GetGame(gameID string) (*Game, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	return g, ok
}

// RemoveGame drops a finished game from the registry.
func (m *Manager) RemoveGame(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
}

// Count returns the number of registered games.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}
