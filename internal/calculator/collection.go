package calculator

import "github.com/mmynk/rollcall/internal/models"

// Collection summarizes how much of an activity's cost has been collected.
type Collection struct {
	TotalDue       models.Cents
	TotalCollected models.Cents
	Outstanding    models.Cents

	Paid     int
	InReview int
	Unpaid   int
}

// Collect aggregates payments over the confirmed participants.
//
// Algorithm:
//   - totalDue: sum of AmountOwed over confirmed participants
//   - totalCollected: sum of AmountOwed over those whose payment is paid
//   - outstanding: totalDue - totalCollected
func Collect(participants []*models.Participant) Collection {
	var c Collection
	for _, p := range participants {
		if p.Status != models.StatusConfirmed {
			continue
		}
		c.TotalDue += p.AmountOwed
		switch p.PaymentStatus {
		case models.PaymentPaid:
			c.TotalCollected += p.AmountOwed
			c.Paid++
		case models.PaymentInReview:
			c.InReview++
		default:
			c.Unpaid++
		}
	}
	c.Outstanding = c.TotalDue - c.TotalCollected
	return c
}
