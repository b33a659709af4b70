/*
Package session contains the core logic for tracking live voice sessions.

This file defines the Manager struct, the central registry of active
sessions. It creates sessions, pairs the egress start with each successful
start, tracks sessions until their teardown reports back on the cleanup
channel, and drains everything on shutdown.
*/
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/randx"
)

// CleanupMsg is sent by a session after teardown so the Manager can drop it.
type CleanupMsg struct {
	SessionID string
}

// StartInput describes one session to start.
type StartInput struct {
	RoomName  string
	UserID    string
	FeatureID string
	AgentName string

	// TrialDeadline, when set, bounds the session by the user's remaining
	// free-trial budget. Zero means no trial constraint.
	TrialDeadline time.Time
}

// Deps are the teardown collaborators shared by all sessions.
type Deps struct {
	Rooms    RoomTerminator
	Recorder Recorder
	Debiter  Debiter
}

// Manager coordinates all active sessions.
type Manager struct {
	sessions map[string]*Session

	idleTimeout time.Duration
	deps        Deps

	// mu protects concurrent access to the sessions map.
	mu sync.RWMutex

	// cleanup receives teardown notifications from sessions.
	cleanup chan CleanupMsg

	// wg waits for the cleanup loop during shutdown.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager constructs a Manager and starts its cleanup loop.
func NewManager(idleTimeout time.Duration, deps Deps) *Manager {
	managerLogger := logx.Logger().With().Str("component", "session_manager").Logger()

	m := &Manager{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		deps:        deps,
		cleanup:     make(chan CleanupMsg, 16),
		logger:      managerLogger,
	}

	m.wg.Add(1)

	go m.runCleanupLoop()

	return m
}

// runCleanupLoop removes sessions from the registry as they finish.
func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	m.logger.Info().Msg("Cleanup loop started.")

	for msg := range m.cleanup {
		m.deleteSession(msg.SessionID)
	}

	m.logger.Info().Msg("Cleanup loop stopped.")
}

// deleteSession drops the session from the registry.
func (m *Manager) deleteSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; ok {
		delete(m.sessions, sessionID)
		m.logger.Info().Str("session_id", sessionID).Msg("Session removed from registry.")
	}
}

// StartSession registers a new session and starts its run loop. Exactly one
// egress start is paired with each successful start; its recording ID is
// tracked on the session for later cleanup. The egress call is
// fire-and-forget so a slow or failing recorder never delays session start.
func (m *Manager) StartSession(in StartInput) *Session {
	id := randx.SessionID()

	sess := newSession(id, in, m.idleTimeout, m.cleanup, m.deps.Rooms, m.deps.Recorder, m.deps.Debiter)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	go sess.run()

	if m.deps.Recorder != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			res, err := m.deps.Recorder.Start(ctx, in.RoomName, in.UserID)
			if err != nil {
				m.logger.Warn().Err(err).
					Str("session_id", id).
					Str("room_name", in.RoomName).
					Msg("Egress start failed; session continues without recording.")
				return
			}

			sess.trackEgress(res.EgressID)
		}()
	}

	m.logger.Info().
		Str("session_id", id).
		Str("room_name", in.RoomName).
		Str("feature_id", in.FeatureID).
		Msg("Session started.")

	return sess
}

// GetSession returns the session by ID, or nil when unknown.
func (m *Manager) GetSession(sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	return sess
}

// ActiveCount returns the number of sessions still in the registry.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops every session's run loop, then drains the cleanup loop.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down session manager...")

	m.mu.Lock()

	for _, sess := range m.sessions {
		select {
		case <-sess.stopChan:
		default:
			close(sess.stopChan)
		}
	}
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}

	m.mu.Unlock()

	for _, sess := range sessions {
		<-sess.Done()
	}

	close(m.cleanup)
	m.wg.Wait()

	m.logger.Info().Msg("Session manager shutdown complete.")
}
