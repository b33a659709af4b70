package egress

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"guruvani/internal/app/db"
	"guruvani/internal/app/provider"
)

type fakeProvider struct {
	active    []provider.EgressInfo
	listErr   error
	stopErr   map[string]error
	started   []string
	stoppedID []string
}

func (f *fakeProvider) StartRoomCompositeEgress(_ context.Context, roomName string, output provider.FileOutput, _ bool) (*provider.EgressInfo, error) {
	f.started = append(f.started, output.Filepath)
	return &provider.EgressInfo{EgressID: "EG_" + roomName, RoomName: roomName, Status: "EGRESS_ACTIVE"}, nil
}

func (f *fakeProvider) ListEgress(_ context.Context, _ string) ([]provider.EgressInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.active, nil
}

func (f *fakeProvider) StopEgress(_ context.Context, egressID string) error {
	if err, ok := f.stopErr[egressID]; ok {
		return err
	}
	f.stoppedID = append(f.stoppedID, egressID)
	return nil
}

type fakeStore struct {
	created []db.Recording
	stopped []string
}

func (f *fakeStore) CreateRecording(_ context.Context, rec db.Recording) error {
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeStore) MarkRecordingStopped(_ context.Context, egressID string) error {
	f.stopped = append(f.stopped, egressID)
	return nil
}

func testConfig(enabled bool) Config {
	return Config{
		Enabled:    enabled,
		Bucket:     "recordings-bucket",
		Endpoint:   "https://s3.example.com",
		AccessKey:  "AK",
		SecretKey:  "SK",
		PathPrefix: "recordings",
		Basename:   "audio",
		AudioOnly:  true,
	}
}

func TestStartDisabledShortCircuits(t *testing.T) {
	p := &fakeProvider{}
	store := &fakeStore{}
	svc := NewService(testConfig(false), p, store)

	res, err := svc.Start(context.Background(), "room_x", "u1")
	if err != nil {
		t.Fatal(err)
	}

	if !res.Disabled {
		t.Fatal("expected disabled result")
	}
	if !strings.HasPrefix(res.EgressID, "dev-") {
		t.Fatalf("expected synthetic dev- ID, got %q", res.EgressID)
	}
	if len(p.started) != 0 {
		t.Fatal("disabled start must not contact the provider")
	}
	if len(store.created) != 0 {
		t.Fatal("disabled start must not persist a row")
	}
}

func TestStartComposesPathAndPersistsRow(t *testing.T) {
	p := &fakeProvider{}
	store := &fakeStore{}
	svc := NewService(testConfig(true), p, store)

	res, err := svc.Start(context.Background(), "room_y", "u1")
	if err != nil {
		t.Fatal(err)
	}

	if res.EgressID != "EG_room_y" {
		t.Fatalf("unexpected egress ID %q", res.EgressID)
	}
	if !strings.HasPrefix(res.FilePath, "recordings/room_y/") || !strings.HasSuffix(res.FilePath, "/audio.ogg") {
		t.Fatalf("unexpected file path %q", res.FilePath)
	}
	if !strings.HasPrefix(res.PublicURL, "https://s3.example.com/recordings-bucket/recordings/room_y/") {
		t.Fatalf("unexpected public URL %q", res.PublicURL)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected one persisted row, got %d", len(store.created))
	}
	rec := store.created[0]
	if rec.EgressID != "EG_room_y" || rec.Status != db.RecordingStatusStarted {
		t.Fatalf("bad persisted row: %+v", rec)
	}
	if rec.UserID == nil || *rec.UserID != "u1" {
		t.Fatalf("user not recorded: %+v", rec.UserID)
	}
}

func TestStopSweepsAllActiveNotJustTracked(t *testing.T) {
	p := &fakeProvider{
		active: []provider.EgressInfo{
			{EgressID: "EG_a", RoomName: "room_z"},
			{EgressID: "EG_b", RoomName: "room_z"},
		},
	}
	store := &fakeStore{}
	svc := NewService(testConfig(true), p, store)

	// The caller only remembers one of the two active recordings.
	res, err := svc.Stop(context.Background(), "room_z", []string{"EG_a"})
	if err != nil {
		t.Fatal(err)
	}

	if res.Total != 2 {
		t.Fatalf("total = %d, want the provider's active count 2", res.Total)
	}
	if len(res.Stopped) != 2 {
		t.Fatalf("stopped = %v, want both active egresses", res.Stopped)
	}
	if len(store.stopped) != 2 {
		t.Fatalf("rows marked stopped = %d, want 2", len(store.stopped))
	}
}

func TestStopIsBestEffortPerEgress(t *testing.T) {
	p := &fakeProvider{
		active: []provider.EgressInfo{
			{EgressID: "EG_ok"},
			{EgressID: "EG_bad"},
		},
		stopErr: map[string]error{"EG_bad": errors.New("egress not reachable")},
	}
	svc := NewService(testConfig(true), p, &fakeStore{})

	res, err := svc.Stop(context.Background(), "room_w", nil)
	if err != nil {
		t.Fatal(err)
	}

	if res.Total != 2 {
		t.Fatalf("total = %d, want 2", res.Total)
	}
	if len(res.Stopped) != 1 || res.Stopped[0] != "EG_ok" {
		t.Fatalf("stopped = %v, want only the healthy egress", res.Stopped)
	}
}

func TestStopFiltersSyntheticIDs(t *testing.T) {
	p := &fakeProvider{}
	svc := NewService(testConfig(false), p, &fakeStore{})

	res, err := svc.Stop(context.Background(), "room_v", []string{"dev-1712000000", "EG_real"})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Stopped) != 1 || res.Stopped[0] != "EG_real" {
		t.Fatalf("synthetic IDs must be filtered, got %v", res.Stopped)
	}
}

func TestStopPropagatesListFailure(t *testing.T) {
	p := &fakeProvider{listErr: errors.New("provider down")}
	svc := NewService(testConfig(true), p, &fakeStore{})

	if _, err := svc.Stop(context.Background(), "room_u", nil); err == nil {
		t.Fatal("expected error when the provider list fails")
	}
}

func TestSanitizeTimestampHasNoReservedChars(t *testing.T) {
	ts, err := time.Parse(time.RFC3339, "2026-01-02T15:04:05Z")
	if err != nil {
		t.Fatal(err)
	}

	got := sanitizeTimestamp(ts)
	if strings.ContainsAny(got, ":.") {
		t.Fatalf("timestamp still contains reserved characters: %q", got)
	}
}
