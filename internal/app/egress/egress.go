/*
Package egress pairs server-side room recordings with session lifecycles.

Start composes the storage destination and asks the media provider to begin a
room-composite capture; Stop sweeps every egress the provider reports as
active for the room rather than trusting the caller's remembered ID list,
which can be stale when multiple tabs or retries created extra recordings. Recording is best-effort throughout: a disabled or failing egress
never blocks the call itself.
*/
package egress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"guruvani/internal/app/db"
	"guruvani/internal/app/provider"
	"guruvani/internal/pkg/logx"
	"guruvani/internal/pkg/randx"
)

// Provider is the slice of the media provider API the service needs.
type Provider interface {
	StartRoomCompositeEgress(ctx context.Context, roomName string, output provider.FileOutput, audioOnly bool) (*provider.EgressInfo, error)
	ListEgress(ctx context.Context, roomName string) ([]provider.EgressInfo, error)
	StopEgress(ctx context.Context, egressID string) error
}

// Store persists recording catalog rows.
type Store interface {
	CreateRecording(ctx context.Context, rec db.Recording) error
	MarkRecordingStopped(ctx context.Context, egressID string) error
}

// Config holds the recording settings.
type Config struct {
	// Enabled turns server-side recording on. When false, Start returns a
	// synthetic placeholder ID without contacting the provider.
	Enabled bool

	// S3 destination for encoded files.
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string

	// Object layout.
	PathPrefix string
	Basename   string
	AudioOnly  bool
}

// StartResult reports one started (or skipped) recording.
type StartResult struct {
	EgressID  string `json:"egressId"`
	FilePath  string `json:"file,omitempty"`
	PublicURL string `json:"publicUrl,omitempty"`
	Disabled  bool   `json:"disabled,omitempty"`
}

// StopResult reports the outcome of a stop sweep. Total is the number of
// egresses the provider reported active; Stopped lists the ones that were
// actually stopped (failures are simply omitted).
type StopResult struct {
	Stopped []string `json:"stopped"`
	Total   int      `json:"total"`
}

// Service implements egress start/stop pairing.
type Service struct {
	cfg      Config
	provider Provider
	store    Store
	logger   zerolog.Logger
}

// NewService constructs the egress service.
func NewService(cfg Config, p Provider, store Store) *Service {
	return &Service{
		cfg:      cfg,
		provider: p,
		store:    store,
		logger:   logx.Logger().With().Str("component", "egress").Logger(),
	}
}

// Start begins a recording of the named room and persists a started catalog
// row keyed by the provider's egress ID.
func (s *Service) Start(ctx context.Context, roomName, userID string) (*StartResult, error) {
	if !s.cfg.Enabled {
		return &StartResult{EgressID: randx.DisabledEgressID(), Disabled: true}, nil
	}

	ext := "mp4"
	fileType := "MP4"
	if s.cfg.AudioOnly {
		ext = "ogg"
		fileType = "OGG"
	}

	timestamp := sanitizeTimestamp(time.Now().UTC())
	filePath := fmt.Sprintf("%s/%s/%s/%s.%s", s.cfg.PathPrefix, roomName, timestamp, s.cfg.Basename, ext)

	output := provider.FileOutput{
		FileType: fileType,
		Filepath: filePath,
		S3: &provider.S3Output{
			AccessKey: s.cfg.AccessKey,
			Secret:    s.cfg.SecretKey,
			Endpoint:  s.cfg.Endpoint,
			Bucket:    s.cfg.Bucket,
		},
	}

	info, err := s.provider.StartRoomCompositeEgress(ctx, roomName, output, s.cfg.AudioOnly)
	if err != nil {
		s.logger.Error().Err(err).Str("room_name", roomName).Msg("Egress start failed.")
		return nil, err
	}

	publicURL := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.Bucket, filePath)

	rec := db.Recording{
		EgressID:  info.EgressID,
		RoomName:  roomName,
		FilePath:  filePath,
		PublicURL: publicURL,
		Bucket:    s.cfg.Bucket,
		Status:    db.RecordingStatusStarted,
	}
	if userID != "" {
		rec.UserID = &userID
	}

	if err := s.store.CreateRecording(ctx, rec); err != nil {
		// catalog write is best-effort; the recording itself is running
		s.logger.Warn().Err(err).Str("egress_id", info.EgressID).Msg("Failed to persist recording row.")
	}

	s.logger.Info().
		Str("room_name", roomName).
		Str("egress_id", info.EgressID).
		Str("file_path", filePath).
		Msg("Egress started.")

	return &StartResult{
		EgressID:  info.EgressID,
		FilePath:  filePath,
		PublicURL: publicURL,
	}, nil
}

// Stop sweeps every active egress in the named room. trackedIDs is the
// caller's remembered list; it is used only to surface untracked recordings
// in the logs, never to narrow the sweep.
func (s *Service) Stop(ctx context.Context, roomName string, trackedIDs []string) (*StopResult, error) {
	tracked := filterSynthetic(trackedIDs)

	if !s.cfg.Enabled {
		return &StopResult{Stopped: tracked, Total: len(tracked)}, nil
	}

	active, err := s.provider.ListEgress(ctx, roomName)
	if err != nil {
		s.logger.Error().Err(err).Str("room_name", roomName).Msg("Failed to list active egresses.")
		return nil, err
	}

	trackedSet := make(map[string]struct{}, len(tracked))
	for _, id := range tracked {
		trackedSet[id] = struct{}{}
	}

	for _, info := range active {
		if _, ok := trackedSet[info.EgressID]; !ok && len(tracked) > 0 {
			s.logger.Warn().
				Str("room_name", roomName).
				Str("egress_id", info.EgressID).
				Msg("Discovered untracked active egress; stopping it as well.")
		}
	}

	stopped := make([]string, 0, len(active))
	for _, info := range active {
		if err := s.provider.StopEgress(ctx, info.EgressID); err != nil {
			s.logger.Warn().Err(err).Str("egress_id", info.EgressID).Msg("Failed to stop egress.")
			continue
		}

		stopped = append(stopped, info.EgressID)

		if err := s.store.MarkRecordingStopped(ctx, info.EgressID); err != nil {
			s.logger.Warn().Err(err).Str("egress_id", info.EgressID).Msg("Failed to mark recording stopped.")
		}
	}

	s.logger.Info().
		Str("room_name", roomName).
		Int("active", len(active)).
		Int("stopped", len(stopped)).
		Msg("Egress stop sweep finished.")

	return &StopResult{Stopped: stopped, Total: len(active)}, nil
}

// filterSynthetic drops placeholder IDs produced while recording is disabled.
func filterSynthetic(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if randx.IsDisabledEgressID(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// sanitizeTimestamp renders t in RFC 3339 form with colons and dots replaced
// so the value is safe inside an object key.
func sanitizeTimestamp(t time.Time) string {
	raw := t.Format("2006-01-02T15:04:05.000Z")
	raw = strings.ReplaceAll(raw, ":", "-")
	return strings.ReplaceAll(raw, ".", "-")
}
