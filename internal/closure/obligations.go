// Package closure decides when an activity may be marked settled. Every
// activity kind reduces to a list of obligations; settlement is granted only
// when none of them blocks.
package closure

import (
	"sort"

	"github.com/mmynk/rollcall/internal/models"
)

// CostUnlockedRef is the pseudo-obligation blocking events whose final cost
// has not been locked.
const CostUnlockedRef = "cost:unlocked"

// PaymentObligations returns one obligation per confirmed participant who
// owes money. The organizer's own share is internal.
func PaymentObligations(activity *models.Activity, participants []*models.Participant) []models.Obligation {
	var out []models.Obligation
	for _, p := range participants {
		if p.Status != models.StatusConfirmed || p.AmountOwed <= 0 {
			continue
		}
		out = append(out, models.Obligation{
			Kind:     models.ObligationPayment,
			Ref:      "payment:" + p.PersonID,
			Internal: p.PersonID == activity.OrganizerID,
			Linked:   true,
			Resolved: p.PaymentStatus == models.PaymentPaid,
		})
	}
	return out
}

// TicketObligations returns one obligation per attached ticket. A ticket the
// ticket system never reported on is unlinked.
func TicketObligations(links []*models.TicketLink) []models.Obligation {
	out := make([]models.Obligation, 0, len(links))
	for _, l := range links {
		out = append(out, models.Obligation{
			Kind:     models.ObligationTicket,
			Ref:      "ticket:" + l.TicketRef,
			Internal: l.Internal,
			Linked:   l.Ticket != nil,
			Resolved: l.Ticket != nil && l.Ticket.Status == models.TicketClosed,
		})
	}
	return out
}

// Obligations collects everything that gates settlement for the activity's kind.
func Obligations(activity *models.Activity, participants []*models.Participant, links []*models.TicketLink) []models.Obligation {
	switch activity.Kind {
	case models.KindMeeting:
		return TicketObligations(links)
	default:
		obligations := PaymentObligations(activity, participants)
		if !activity.CostLocked {
			obligations = append(obligations, models.Obligation{
				Kind:   models.ObligationCost,
				Ref:    CostUnlockedRef,
				Linked: true,
			})
		}
		return obligations
	}
}

// Blocking returns the sorted refs of the obligations that block.
func Blocking(obligations []models.Obligation) []string {
	var refs []string
	for _, o := range obligations {
		if o.Blocks() {
			refs = append(refs, o.Ref)
		}
	}
	sort.Strings(refs)
	return refs
}
