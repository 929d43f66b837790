// Package classify maps an inventory snapshot onto expiry alerts. It is a
// pure function of the snapshot and the current date: no I/O, no clock
// reads, no side effects. All delivery policy lives in the dispatcher.
package classify

import (
	"fmt"
	"time"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
)

// Expiry thresholds, in days left.
const (
	urgentWithin  = 3
	warningWithin = 7
)

// Classify evaluates every item against the expiry threshold table:
//
//	daysLeft < 0      → expired  (high)
//	daysLeft = 0      → today    (high)
//	1 ≤ daysLeft ≤ 3  → urgent   (high)
//	4 ≤ daysLeft ≤ 7  → warning  (medium)
//	daysLeft > 7      → no record
//
// Items without an expiry date produce no record. Output preserves input
// order for items with equal daysLeft; no other ordering is guaranteed.
func Classify(items []domain.InventoryItem, today time.Time) []domain.NotificationRecord {
	var records []domain.NotificationRecord
	for _, item := range items {
		if rec, ok := classifyItem(item, today); ok {
			records = append(records, rec)
		}
	}
	return records
}

func classifyItem(item domain.InventoryItem, today time.Time) (domain.NotificationRecord, bool) {
	if item.ExpiryDate.IsZero() {
		return domain.NotificationRecord{}, false
	}

	daysLeft := item.ExpiryDate.DaysUntil(today)
	rec := domain.NotificationRecord{
		ItemID:   item.ID,
		ItemName: item.Name,
		DaysLeft: daysLeft,
	}

	switch {
	case daysLeft < 0:
		rec.Type = domain.TypeExpired
		rec.Urgency = domain.UrgencyHigh
		rec.Title = "Product Expired!"
		rec.Body = fmt.Sprintf("%s expired %s ago", item.Name, days(-daysLeft))
	case daysLeft == 0:
		rec.Type = domain.TypeToday
		rec.Urgency = domain.UrgencyHigh
		rec.Title = "Expires Today!"
		rec.Body = fmt.Sprintf("%s expires today", item.Name)
	case daysLeft <= urgentWithin:
		rec.Type = domain.TypeUrgent
		rec.Urgency = domain.UrgencyHigh
		rec.Title = "Expiring Soon!"
		rec.Body = fmt.Sprintf("%s expires in %s", item.Name, days(daysLeft))
	case daysLeft <= warningWithin:
		rec.Type = domain.TypeWarning
		rec.Urgency = domain.UrgencyMedium
		rec.Title = "Expiring This Week"
		rec.Body = fmt.Sprintf("%s expires in %s", item.Name, days(daysLeft))
	default:
		return domain.NotificationRecord{}, false
	}
	return rec, true
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
