package pipeline

import (
	"time"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
)

// SplitWindows cuts [start, end) into consecutive windows of at most
// `days` days. Every window's end is exclusive and equals the next
// window's start, so no instant belongs to two windows and an order
// created exactly on a boundary lands in exactly one of them. The
// final window is clipped to end.
func SplitWindows(start, end time.Time, days int) []domain.DateWindow {
	if days <= 0 || !end.After(start) {
		return nil
	}

	var windows []domain.DateWindow
	cursor := start
	for cursor.Before(end) {
		next := cursor.AddDate(0, 0, days)
		if next.After(end) {
			next = end
		}
		windows = append(windows, domain.DateWindow{Start: cursor, End: next})
		cursor = next
	}
	return windows
}
