// Package server exposes the engine over WebSocket: inbound commands map
// 1:1 onto orchestrator actions, outbound frames mirror the notification
// channel.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game"
	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"github.com/bluffgrid/bluffgrid-server-go/internal/repository"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Options configures the gateway listener.
type Options struct {
	Address         string
	ReadBufferSize  int
	WriteBufferSize int
	WriteTimeout    time.Duration
	ReplayDir       string // empty disables replay recording
}

// Server is the WebSocket gateway in front of the match manager.
type Server struct {
	opts     Options
	upgrader websocket.Upgrader
	manager  *game.Manager
	gameCfg  game.Config
	factory  game.StrategistFactory
	matches  *repository.MatchRepository
	recorder *game.Recorder
	logger   *zap.Logger
}

// New creates the gateway.
func New(opts Options, manager *game.Manager, gameCfg game.Config, factory game.StrategistFactory, matches *repository.MatchRepository, logger *zap.Logger) *Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	var recorder *game.Recorder
	if opts.ReplayDir != "" {
		recorder = game.NewRecorder(logger, opts.ReplayDir)
	}
	return &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		manager:  manager,
		gameCfg:  gameCfg,
		factory:  factory,
		matches:  matches,
		recorder: recorder,
		logger:   logger,
	}
}

// Start blocks serving WebSocket connections on /ws.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.logger.Info("websocket gateway listening", zap.String("address", s.opts.Address))
	return http.ListenAndServe(s.opts.Address, mux)
}

// session is one connected client and, at most, one running game.
type session struct {
	server   *Server
	conn     *websocket.Conn
	send     chan outboundFrame
	sendOnce sync.Once
	logger   *zap.Logger

	mu        sync.Mutex
	game      *game.Game
	humanID   string
	busHandle int
	startedAt time.Time
	persisted bool
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sess := &session{
		server: s,
		conn:   conn,
		send:   make(chan outboundFrame, 64),
		logger: s.logger.With(zap.String("remote", conn.RemoteAddr().String())),
	}
	go sess.writePump()
	sess.readLoop()
}

func (sess *session) readLoop() {
	defer sess.close()
	for {
		var cmd Command
		if err := sess.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		sess.dispatch(cmd)
	}
}

func (sess *session) writePump() {
	for frame := range sess.send {
		sess.conn.SetWriteDeadline(time.Now().Add(sess.server.opts.WriteTimeout))
		if err := sess.conn.WriteJSON(frame); err != nil {
			sess.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (sess *session) close() {
	sess.mu.Lock()
	if sess.game != nil && sess.busHandle >= 0 {
		sess.game.Bus().Unsubscribe(sess.busHandle)
	}
	sess.mu.Unlock()
	sess.sendOnce.Do(func() { close(sess.send) })
	sess.conn.Close()
}

// enqueue drops frames rather than blocking the engine: delivery to the
// presentation layer is best-effort.
func (sess *session) enqueue(frame outboundFrame) {
	select {
	case sess.send <- frame:
	default:
		sess.logger.Warn("outbound frame dropped", zap.String("type", frame.Type))
	}
}

// attachGame subscribes the session to a game's notification channel and
// arranges persistence when the match ends.
func (sess *session) attachGame(g *game.Game, humanID string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.game = g
	sess.humanID = humanID
	sess.startedAt = time.Now()
	sess.busHandle = g.Bus().Subscribe(func(evt rules.Event) {
		sess.enqueue(frameFromEvent(evt))
		if evt.Type == rules.EventGameOver {
			go sess.persistMatch(g)
		}
	})
}

func (sess *session) persistMatch(g *game.Game) {
	sess.mu.Lock()
	if sess.persisted {
		sess.mu.Unlock()
		return
	}
	sess.persisted = true
	sess.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap := g.Snapshot()
	summary := repository.MatchSummary{
		MatchID:    g.ID,
		WinnerID:   g.Winner(),
		Rounds:     snap.Round,
		StartedAt:  sess.startedAt,
		FinishedAt: time.Now(),
		Challenges: g.Challenge().History(),
	}
	for _, id := range snap.PlayerOrder {
		p := g.PlayerByID(id)
		if p == nil {
			continue
		}
		summary.Players = append(summary.Players, repository.PlayerSummary{
			PlayerID: p.ID,
			Name:     p.Name,
			Kind:     p.Kind,
			Score:    p.Score,
			Stats:    p.Stats,
		})
	}
	if err := sess.server.matches.SaveMatch(ctx, summary); err != nil {
		sess.logger.Error("failed to persist match", zap.Error(err))
	}
	if sess.server.recorder != nil {
		if _, err := sess.server.recorder.Detach(g); err != nil {
			sess.logger.Error("failed to save replay", zap.Error(err))
		}
	}
	sess.server.manager.RemoveGame(g.ID)
}
