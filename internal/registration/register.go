package registration

import (
	"context"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/qr"
)

type FestInput struct {
	PersonalInfo models.PersonalInfo `json:"personal_info"`
	Answers      []string            `json:"answers,omitempty"`
}

type EventInput struct {
	PersonalInfo  models.PersonalInfo `json:"personal_info"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	Answers       []string            `json:"answers,omitempty"`
}

func festPayload(reg *models.FestRegistration) qr.Payload {
	return qr.Payload{
		Ticket:         reg.Ticket,
		RegistrationID: reg.ID,
		Kind:           "fest",
		UserID:         reg.UserID,
		FestID:         reg.FestID,
		IssuedAt:       reg.CreatedAt,
	}
}

func eventPayload(reg *models.EventRegistration) qr.Payload {
	return qr.Payload{
		Ticket:         reg.Ticket,
		RegistrationID: reg.ID,
		Kind:           "event",
		UserID:         reg.HolderID,
		TeamID:         reg.TeamID,
		FestID:         reg.FestID,
		EventID:        reg.EventID,
		IssuedAt:       reg.CreatedAt,
	}
}

// updateProfile copies info onto the caller's user record.
func (s *Service) updateProfile(ctx context.Context, userID string, info models.PersonalInfo) error {
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return db.AppError(err, "user not found", "")
	}
	user.ApplyPersonalInfo(info, s.Now())
	return db.AppError(s.Store.UpdatePersonalInfo(ctx, user), "user not found", "")
}

// newFestRegistration builds a fest registration with its QR code.
func (s *Service) newFestRegistration(userID, festID string, answers []string) (*models.FestRegistration, error) {
	reg := models.NewFestRegistration(userID, festID, s.Now())
	reg.Answers = answers
	img, err := s.qrCode(festPayload(reg))
	if err != nil {
		return nil, err
	}
	reg.QRCode = img
	return reg, nil
}

// RegisterForFest registers the caller for festID and records their personal
// information on their profile.
func (s *Service) RegisterForFest(ctx context.Context, p auth.Principal, festID string, in FestInput) (*models.FestRegistration, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if err := in.PersonalInfo.Validate(); err != nil {
		return nil, err
	}

	fest, err := s.Store.GetFestival(ctx, festID)
	if err != nil {
		return nil, db.AppError(err, "festival not found", "")
	}
	if fest.RegistrationClosed {
		return nil, apperr.Validation("registration for this festival is closed")
	}

	unlock, err := s.acquire(ctx, p.UserID, festScope(festID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Step 1: reject duplicates early; the unique index settles races
	if _, err := s.Store.FindFestRegistration(ctx, p.UserID, festID); err == nil {
		return nil, apperr.Conflict("already registered for this festival")
	} else if !isNotFound(err) {
		return nil, db.AppError(err, "", "")
	}

	// Step 2: ticket and QR before any write
	reg, err := s.newFestRegistration(p.UserID, festID, in.Answers)
	if err != nil {
		return nil, err
	}

	// Step 3: profile and registration commit together
	err = s.Store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.updateProfile(ctx, p.UserID, in.PersonalInfo); err != nil {
			return err
		}
		return db.AppError(s.Store.CreateFestRegistration(ctx, reg), "", "already registered for this festival")
	})
	if err != nil {
		return nil, err
	}

	s.logf("FEST_REGISTERED", reg.ID, "user %s registered for festival %s", p.UserID, festID)
	s.publish(ctx, models.DomainEvent{
		Type:           models.FestRegistrationCreated,
		UserID:         p.UserID,
		FestID:         festID,
		RegistrationID: reg.ID,
		OccurredAt:     reg.CreatedAt,
	})
	return reg, nil
}

// RegisterForEvent registers the caller for a published solo event.
func (s *Service) RegisterForEvent(ctx context.Context, p auth.Principal, eventID string, in EventInput) (*models.EventRegistration, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if err := in.PersonalInfo.Validate(); err != nil {
		return nil, err
	}

	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, db.AppError(err, "event not found", "")
	}
	if event.Status != models.EventPublished {
		return nil, apperr.Validation("event is not open for registration")
	}
	if event.IsTeamEvent {
		return nil, apperr.Validation("this is a team event; create or join a team to register")
	}
	fest, err := s.Store.GetFestival(ctx, event.FestID)
	if err != nil {
		return nil, db.AppError(err, "festival not found", "")
	}
	if fest.RegistrationClosed {
		return nil, apperr.Validation("registration for this festival is closed")
	}

	unlock, err := s.acquire(ctx, p.UserID, eventScope(eventID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Step 1: fest registration, or plan one when the policy allows it
	var newFestReg *models.FestRegistration
	festReg, err := s.Store.FindFestRegistration(ctx, p.UserID, event.FestID)
	switch {
	case err == nil:
	case !isNotFound(err):
		return nil, db.AppError(err, "", "")
	case s.Options.RequireFestRegistration:
		return nil, apperr.Forbidden("register for the festival before registering for its events")
	default:
		newFestReg, err = s.newFestRegistration(p.UserID, event.FestID, nil)
		if err != nil {
			return nil, err
		}
		festReg = newFestReg
	}

	// Step 2: reject a second seat early
	if _, err := s.Store.FindActiveEventRegistration(ctx, p.UserID, eventID); err == nil {
		return nil, apperr.Conflict("already registered for this event")
	} else if !isNotFound(err) {
		return nil, db.AppError(err, "", "")
	}

	// Step 3: ticket and QR before any write
	reg := models.NewEventRegistration(event, festReg.ID, models.Solo{UserID: p.UserID}, s.Now())
	reg.PaymentMethod = in.PaymentMethod
	reg.Answers = in.Answers
	if reg.QRCode, err = s.qrCode(eventPayload(reg)); err != nil {
		return nil, err
	}

	// Step 4: capacity check and insert under the event row lock
	err = s.Store.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.Store.LockEvent(ctx, eventID)
		if err != nil {
			return db.AppError(err, "event not found", "")
		}
		if locked.Status != models.EventPublished {
			return apperr.Validation("event is not open for registration")
		}
		if locked.Capacity > 0 {
			n, err := s.Store.CountActiveEventRegistrations(ctx, eventID)
			if err != nil {
				return db.AppError(err, "", "")
			}
			if n >= locked.Capacity {
				return apperr.Conflict("event is full")
			}
		}
		if newFestReg != nil {
			if err := s.Store.CreateFestRegistration(ctx, newFestReg); err != nil {
				return db.AppError(err, "", "festival registration changed concurrently, please retry")
			}
		}
		if err := s.updateProfile(ctx, p.UserID, in.PersonalInfo); err != nil {
			return err
		}
		return db.AppError(s.Store.CreateEventRegistration(ctx, reg), "", "already registered for this event")
	})
	if err != nil {
		return nil, err
	}

	s.logf("EVENT_REGISTERED", reg.ID, "user %s registered for event %s", p.UserID, eventID)
	var events []models.DomainEvent
	if newFestReg != nil {
		events = append(events, models.DomainEvent{
			Type:           models.FestRegistrationCreated,
			UserID:         p.UserID,
			FestID:         event.FestID,
			RegistrationID: newFestReg.ID,
			OccurredAt:     newFestReg.CreatedAt,
		})
	}
	events = append(events, models.DomainEvent{
		Type:           models.EventRegistrationCreated,
		UserID:         p.UserID,
		FestID:         event.FestID,
		EventID:        eventID,
		RegistrationID: reg.ID,
		OccurredAt:     reg.CreatedAt,
	})
	s.publish(ctx, events...)
	return reg, nil
}
