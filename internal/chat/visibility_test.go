package chat

import (
	"testing"
	"time"

	"spyroom/internal/models"
)

func TestVisible(t *testing.T) {
	release := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &models.Message{VisibleAfter: release}

	if Visible(m, release.Add(-time.Millisecond)) {
		t.Fatal("message visible before its release instant")
	}
	if !Visible(m, release) {
		t.Fatal("message hidden at its exact release instant")
	}
	if !Visible(m, release.Add(time.Millisecond)) {
		t.Fatal("message hidden after its release instant")
	}
}
