/*
Package session contains the core logic for tracking live voice sessions.

This file defines the Session struct, the server-side owner of one room's
lifecycle: it aggregates activity signals into a rolling idle timer, honors
the agent sleep state as an explicit per-session signal, ticks the free-trial
countdown, and converges every end path (explicit leave, idle timeout, trial
expiry, connection drop, shutdown) onto a single teardown that sweeps
recordings, deletes the room at the provider, and posts the ledger debit.
*/
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"guruvani/internal/app/egress"
	"guruvani/internal/app/ledger"
	"guruvani/internal/pkg/logx"
)

const (
	// AudioActivityThreshold is the minimum reported microphone energy that
	// counts as the user speaking.
	AudioActivityThreshold = 10.0

	// AudioRetriggerWindow suppresses timer resets from continuous background
	// noise: audio activity only resets the idle timer when the previous
	// audio activity is at least this old.
	AudioRetriggerWindow = time.Second

	activityChannelBuffer = 64
	teardownTimeout       = 15 * time.Second
)

// Session status values.
type Status string

const (
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusTimedOut Status = "timed_out"
)

// End reasons recorded on teardown.
const (
	EndReasonClient       = "client_leave"
	EndReasonIdle         = "idle_timeout"
	EndReasonTrial        = "trial_expired"
	EndReasonDisconnected = "client_disconnected"
	EndReasonShutdown     = "server_shutdown"
)

// RoomTerminator deletes a room at the media provider, disconnecting every
// participant.
type RoomTerminator interface {
	DeleteRoom(ctx context.Context, roomName string) error
}

// Recorder pairs recordings with the session lifecycle.
type Recorder interface {
	Start(ctx context.Context, roomName, userID string) (*egress.StartResult, error)
	Stop(ctx context.Context, roomName string, trackedIDs []string) (*egress.StopResult, error)
}

// Debiter posts the per-session ledger debit.
type Debiter interface {
	Deduct(ctx context.Context, userID, featureID string, metadata map[string]any) (*ledger.DeductResult, error)
}

// Session represents one tracked voice session.
type Session struct {
	ID        string
	RoomName  string
	UserID    string
	FeatureID string
	AgentName string
	StartedAt time.Time

	idleTimeout   time.Duration
	trialDeadline time.Time

	activity chan Signal
	control  chan controlMsg
	attach   chan *Client
	stopChan chan struct{}

	// done is closed once teardown has run; senders use it to avoid
	// blocking on a loop that has already returned.
	done chan struct{}

	cleanupChan chan<- CleanupMsg

	rooms    RoomTerminator
	recorder Recorder
	debiter  Debiter

	// client is the attached activity-channel connection.
	// Only the run loop touches it.
	client *Client

	// mu protects status, endReason, and egressIDs, which are read by
	// handlers while the run loop is live.
	mu        sync.RWMutex
	status    Status
	endReason string
	egressIDs []string

	logger zerolog.Logger
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID        string    `json:"sessionId"`
	RoomName  string    `json:"roomName"`
	UserID    string    `json:"userId,omitempty"`
	AgentName string    `json:"agentName,omitempty"`
	Status    Status    `json:"status"`
	EndReason string    `json:"endReason,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	EgressIDs []string  `json:"egressIds"`
}

// Snapshot returns a copy of the session's externally visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.egressIDs))
	copy(ids, s.egressIDs)

	return Snapshot{
		ID:        s.ID,
		RoomName:  s.RoomName,
		UserID:    s.UserID,
		AgentName: s.AgentName,
		Status:    s.status,
		EndReason: s.endReason,
		StartedAt: s.StartedAt,
		EgressIDs: ids,
	}
}

// Done returns a channel closed once the session's teardown has completed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// IsActive reports whether the session has not yet been torn down.
func (s *Session) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusActive
}

// trackEgress appends a started recording ID for later cleanup.
func (s *Session) trackEgress(egressID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.egressIDs = append(s.egressIDs, egressID)
}

// Activity submits one activity signal to the run loop. Signals arriving
// faster than the loop drains them are dropped; activity is level-triggered,
// so losing individual reports is harmless.
func (s *Session) Activity(sig Signal) {
	select {
	case s.activity <- sig:
	default:
	}
}

// Sleep marks the agent as intentionally sleeping (e.g. while it plays a
// long-form audio track on the user's behalf). While sleeping, idle expiry
// restarts the timer instead of disconnecting.
func (s *Session) Sleep(reason string) {
	s.sendControl(controlMsg{action: actionSleep, reason: reason})
}

// Wake clears the sleeping state; the idle countdown resumes immediately.
func (s *Session) Wake(reason string) {
	s.sendControl(controlMsg{action: actionWake, reason: reason})
}

// End requests teardown with the given reason. Safe to call multiple times
// and after the session has already ended.
func (s *Session) End(reason string) {
	s.sendControl(controlMsg{action: actionEnd, reason: reason})
}

func (s *Session) sendControl(msg controlMsg) {
	select {
	case s.control <- msg:
	case <-s.done:
	}
}

// Attach hands an activity-channel connection to the run loop. A second
// connection replaces the first (multiple tabs), closing the old one.
func (s *Session) Attach(client *Client) {
	select {
	case s.attach <- client:
	case <-s.done:
		client.Close()
	}
}

// run is the session's event loop. It owns the idle timer and the trial
// ticker, and is the only goroutine that ends the session.
func (s *Session) run() {
	idleTimer := time.NewTimer(s.idleTimeout)
	defer idleTimer.Stop()

	var trialC <-chan time.Time
	if !s.trialDeadline.IsZero() {
		trialTicker := time.NewTicker(time.Second)
		defer trialTicker.Stop()
		trialC = trialTicker.C
	}

	resetIdle := func() {
		if !idleTimer.Stop() {
			select {
			case <-idleTimer.C:
			default:
			}
		}
		idleTimer.Reset(s.idleTimeout)
	}

	var lastAudio time.Time
	prevChatCount := 0
	sleeping := false

	for {
		select {
		case sig := <-s.activity:
			switch sig.Source {
			case SourceAudio:
				if sig.Level > AudioActivityThreshold {
					now := time.Now()
					if lastAudio.IsZero() || now.Sub(lastAudio) > AudioRetriggerWindow {
						resetIdle()
					}
					lastAudio = now
				}

			case SourceChat:
				if sig.Count > prevChatCount {
					prevChatCount = sig.Count
					resetIdle()
				}

			case SourceInteraction:
				resetIdle()
			}

		case ctl := <-s.control:
			switch ctl.action {
			case actionSleep:
				sleeping = true
				s.logger.Info().Str("reason", ctl.reason).Msg("Agent sleeping; idle disconnect suppressed.")

			case actionWake:
				sleeping = false
				resetIdle()
				s.logger.Info().Str("reason", ctl.reason).Msg("Agent awake; idle countdown resumed.")

			case actionEnd:
				reason := ctl.reason
				if reason == "" {
					reason = EndReasonClient
				}
				s.finish(reason)
				return
			}

		case <-idleTimer.C:
			if sleeping {
				// Long-form passive listening must never be cut off.
				idleTimer.Reset(s.idleTimeout)
				continue
			}

			s.logger.Info().Dur("idle_timeout", s.idleTimeout).Msg("Idle timeout reached. Ending session.")
			s.finish(EndReasonIdle)
			return

		case <-trialC:
			remaining := time.Until(s.trialDeadline)
			if remaining <= 0 {
				s.notifyTrialRemaining(0)
				s.finish(EndReasonTrial)
				return
			}
			s.notifyTrialRemaining(remaining)

		case client := <-s.attach:
			if s.client != nil {
				s.client.replaced.Store(true)
				s.client.Close()
			}
			s.client = client

		case <-s.stopChan:
			s.finish(EndReasonShutdown)
			return
		}
	}
}

// notifyTrialRemaining pushes the countdown to the attached client.
func (s *Session) notifyTrialRemaining(remaining time.Duration) {
	if s.client == nil {
		return
	}

	seconds := int(remaining / time.Second)
	s.client.SendEvent(outboundEvent{
		Type:             eventTrialRemaining,
		RemainingSeconds: &seconds,
	})
}

// finish executes the single teardown path. It runs at most once: the run
// loop returns immediately after calling it, and every end trigger funnels
// through the loop.
func (s *Session) finish(reason string) {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return
	}
	if reason == EndReasonIdle {
		s.status = StatusTimedOut
	} else {
		s.status = StatusEnded
	}
	s.endReason = reason
	trackedIDs := make([]string, len(s.egressIDs))
	copy(trackedIDs, s.egressIDs)
	s.mu.Unlock()

	duration := time.Since(s.StartedAt)

	s.logger.Info().
		Str("reason", reason).
		Dur("duration", duration).
		Int("tracked_egresses", len(trackedIDs)).
		Msg("Session ending.")

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	// Sweep recordings before deleting the room so the provider still lists
	// them as active for this room name. Both calls are best-effort.
	if s.recorder != nil {
		if _, err := s.recorder.Stop(ctx, s.RoomName, trackedIDs); err != nil {
			s.logger.Warn().Err(err).Msg("Egress stop sweep failed during teardown.")
		}
	}

	if s.rooms != nil {
		if err := s.rooms.DeleteRoom(ctx, s.RoomName); err != nil {
			s.logger.Warn().Err(err).Msg("Room delete failed during teardown.")
		}
	}

	if s.debiter != nil && s.UserID != "" {
		_, err := s.debiter.Deduct(ctx, s.UserID, s.FeatureID, map[string]any{
			"sessionId":       s.ID,
			"roomName":        s.RoomName,
			"durationSeconds": int(duration / time.Second),
			"endReason":       reason,
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("Ledger debit failed during teardown.")
		}
	}

	if s.client != nil {
		s.client.SendEvent(outboundEvent{Type: eventSessionEnded, Reason: reason})
		s.client.Close()
		s.client = nil
	}

	select {
	case s.cleanupChan <- CleanupMsg{SessionID: s.ID}:
	default:
		s.logger.Warn().Msg("Manager cleanup channel blocked. Skipping cleanup notification.")
	}

	close(s.done)
}

// newSession wires a Session; callers start the run loop.
func newSession(id string, in StartInput, idleTimeout time.Duration, cleanupChan chan<- CleanupMsg, rooms RoomTerminator, recorder Recorder, debiter Debiter) *Session {
	sessionLogger := logx.Logger().With().
		Str("component", "session").
		Str("session_id", id).
		Str("room_name", in.RoomName).
		Logger()

	return &Session{
		ID:            id,
		RoomName:      in.RoomName,
		UserID:        in.UserID,
		FeatureID:     in.FeatureID,
		AgentName:     in.AgentName,
		StartedAt:     time.Now(),
		idleTimeout:   idleTimeout,
		trialDeadline: in.TrialDeadline,
		activity:      make(chan Signal, activityChannelBuffer),
		control:       make(chan controlMsg),
		attach:        make(chan *Client),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
		cleanupChan:   cleanupChan,
		rooms:         rooms,
		recorder:      recorder,
		debiter:       debiter,
		status:        StatusActive,
		logger:        sessionLogger,
	}
}
