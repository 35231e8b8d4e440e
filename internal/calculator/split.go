package calculator

import (
	"fmt"
	"sort"

	"github.com/mmynk/rollcall/internal/models"
)

// Share is one participant's slice of a split.
type Share struct {
	ParticipantID string
	Amount        models.Cents
}

// SplitEvenly divides total among participantIDs in whole cents.
// Everyone gets total/n truncated; the remaining total%n cents go one each to
// the first participants in the given order, so the shares always sum to total.
// Callers pass the ids already in residue order (see ResidueOrder).
func SplitEvenly(total models.Cents, participantIDs []string) ([]Share, error) {
	if total < 0 {
		return nil, fmt.Errorf("total cannot be negative: %s", total)
	}
	n := int64(len(participantIDs))
	if n == 0 {
		if total != 0 {
			return nil, fmt.Errorf("must have at least one participant to split %s", total)
		}
		return nil, nil
	}

	base := int64(total) / n
	residue := int64(total) % n

	shares := make([]Share, n)
	for i, id := range participantIDs {
		amount := base
		if int64(i) < residue {
			amount++
		}
		shares[i] = Share{ParticipantID: id, Amount: models.Cents(amount)}
	}
	return shares, nil
}

// PerPersonShare is the base (truncated) share reported to callers.
func PerPersonShare(total models.Cents, n int) models.Cents {
	if n <= 0 {
		return 0
	}
	return total / models.Cents(n)
}

// ResidueOrder returns the confirmed participants in the order that receives
// leftover cents: the organizer first (when confirmed), then by the time they
// reached their current status, then by participant ID.
func ResidueOrder(participants []*models.Participant, organizerID string) []*models.Participant {
	confirmed := make([]*models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Status == models.StatusConfirmed {
			confirmed = append(confirmed, p)
		}
	}

	sort.SliceStable(confirmed, func(i, j int) bool {
		a, b := confirmed[i], confirmed[j]
		aOrg, bOrg := a.PersonID == organizerID, b.PersonID == organizerID
		if aOrg != bOrg {
			return aOrg
		}
		if a.StatusChangedAt != b.StatusChangedAt {
			return a.StatusChangedAt < b.StatusChangedAt
		}
		return a.ID < b.ID
	})
	return confirmed
}

// Assign sets AmountOwed on every participant so that the confirmed ones
// share total in residue order and everyone else owes nothing. It returns the
// participants whose amount changed. With no confirmed participants nobody
// owes anything.
func Assign(total models.Cents, participants []*models.Participant, organizerID string) ([]*models.Participant, error) {
	ordered := ResidueOrder(participants, organizerID)

	owed := make(map[string]models.Cents, len(ordered))
	if len(ordered) > 0 {
		ids := make([]string, len(ordered))
		for i, p := range ordered {
			ids[i] = p.ID
		}
		shares, err := SplitEvenly(total, ids)
		if err != nil {
			return nil, err
		}
		for _, s := range shares {
			owed[s.ParticipantID] = s.Amount
		}
	}

	var changed []*models.Participant
	for _, p := range participants {
		amount := owed[p.ID]
		if p.Status != models.StatusConfirmed {
			amount = 0
		}
		if p.AmountOwed != amount {
			p.AmountOwed = amount
			changed = append(changed, p)
		}
	}
	return changed, nil
}
