package chat

import (
	"sort"
	"time"

	"spyroom/internal/models"
)

// Visible reports whether a message may be shown at the given instant. Every
// observer applies this to its own clock — the sender gets no preview, and a
// late-arriving change notification cannot reveal a message early.
func Visible(m *models.Message, now time.Time) bool {
	return !now.Before(m.VisibleAfter)
}

// SortByCreated orders messages by their server-assigned creation time.
// Delivery order off the bus carries no guarantee; the sort key does.
func SortByCreated(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
