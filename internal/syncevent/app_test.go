package syncevent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"spyroom/internal/models"
)

type fakeEventsRepo struct {
	armed *models.SyncEvent
}

func (f *fakeEventsRepo) ArmSyncEvent(ctx context.Context, roomID uuid.UUID, endTime time.Time) (*models.SyncEvent, error) {
	f.armed = &models.SyncEvent{Active: true, EndTime: endTime}
	return f.armed, nil
}

func TestTriggerDefaultDuration(t *testing.T) {
	repo := &fakeEventsRepo{}
	app := NewApp(repo)

	before := time.Now()
	ev, err := app.Trigger(context.Background(), uuid.New(), 0)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	after := time.Now()

	if !ev.Active {
		t.Fatal("armed event not active")
	}
	if ev.EndTime.Before(before.Add(DefaultDuration)) || ev.EndTime.After(after.Add(DefaultDuration)) {
		t.Fatalf("end time = %v, want ~%v from now", ev.EndTime, DefaultDuration)
	}
}

func TestTriggerOverwritesPriorEvent(t *testing.T) {
	repo := &fakeEventsRepo{}
	app := NewApp(repo)
	ctx := context.Background()
	roomID := uuid.New()

	first, err := app.Trigger(ctx, roomID, 2*time.Second)
	if err != nil {
		t.Fatalf("first Trigger: %v", err)
	}
	second, err := app.Trigger(ctx, roomID, 30*time.Second)
	if err != nil {
		t.Fatalf("second Trigger: %v", err)
	}
	if !second.EndTime.After(first.EndTime) {
		t.Fatalf("second end time %v not after first %v", second.EndTime, first.EndTime)
	}
	if repo.armed.EndTime != second.EndTime {
		t.Fatal("store kept the earlier event instead of the overwrite")
	}
}

func TestLive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if Live(nil, now) {
		t.Fatal("nil event reported live")
	}
	if !Live(&models.SyncEvent{Active: true, EndTime: now.Add(5 * time.Second)}, now) {
		t.Fatal("event inside its window reported dead")
	}
	if Live(&models.SyncEvent{Active: true, EndTime: now}, now) {
		t.Fatal("event live at its exact end instant")
	}
	// The store never clears Active; a stale flag past EndTime must read dead.
	if Live(&models.SyncEvent{Active: true, EndTime: now.Add(-time.Second)}, now) {
		t.Fatal("expired event with stale active flag reported live")
	}
	if Live(&models.SyncEvent{Active: false, EndTime: now.Add(5 * time.Second)}, now) {
		t.Fatal("inactive event reported live")
	}
}
