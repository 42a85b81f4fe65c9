package registration

import (
	"context"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/qr"
)

// TicketDecoder reads the text of a scanned QR ticket.
type TicketDecoder interface {
	Decode(text string) (qr.Payload, error)
}

// TicketCheck is what the check-in desk sees for a scanned ticket.
type TicketCheck struct {
	Kind              string                    `json:"kind"`
	HolderID          string                    `json:"holder_id"`
	FestRegistration  *models.FestRegistration  `json:"fest_registration,omitempty"`
	EventRegistration *models.EventRegistration `json:"event_registration,omitempty"`
}

// VerifyTicket resolves scanned QR text to a live registration. The caller
// needs CanViewParticipants in the registration's festival. Cancelled seats
// and tickets that no longer match their registration are rejected.
func (s *Service) VerifyTicket(ctx context.Context, p auth.Principal, text string) (*TicketCheck, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if s.Tickets == nil {
		return nil, apperr.Internal(nil, "ticket scanning is not configured")
	}
	payload, err := s.Tickets.Decode(text)
	if err != nil {
		return nil, apperr.Validation("ticket could not be read")
	}
	kind, err := models.ParseRegistrationID(payload.RegistrationID)
	if err != nil {
		return nil, apperr.Validation("ticket could not be read")
	}

	check := &TicketCheck{}
	var (
		festID string
		ticket string
		active bool
	)
	if kind == models.KindFestRegistration {
		reg, err := s.Store.GetFestRegistration(ctx, payload.RegistrationID)
		if err != nil {
			return nil, db.AppError(err, "registration not found", "")
		}
		check.Kind, check.FestRegistration, check.HolderID = "fest", reg, reg.UserID
		festID, ticket, active = reg.FestID, reg.Ticket, reg.Status.Active()
	} else {
		reg, err := s.Store.GetEventRegistration(ctx, payload.RegistrationID)
		if err != nil {
			return nil, db.AppError(err, "registration not found", "")
		}
		check.Kind, check.EventRegistration, check.HolderID = "event", reg, reg.HolderID
		festID, ticket, active = reg.FestID, reg.Ticket, reg.IsActive()
	}

	access, err := s.Roles.Resolve(ctx, p, festID)
	if err != nil {
		return nil, err
	}
	if !access.Can(auth.CanViewParticipants) {
		return nil, apperr.Forbidden("missing permission %s", auth.CanViewParticipants)
	}
	if ticket != payload.Ticket {
		return nil, apperr.Validation("ticket does not match its registration")
	}
	if !active {
		return nil, apperr.Conflict("registration is no longer active")
	}
	s.logf("TICKET_VERIFIED", payload.RegistrationID, "scanned by %s", p.UserID)
	return check, nil
}
