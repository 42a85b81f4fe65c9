package registration

import (
	"context"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/models"
)

type FestStatus struct {
	Registered         bool                       `json:"registered"`
	Registration       *models.FestRegistration   `json:"registration,omitempty"`
	EventRegistrations []models.EventRegistration `json:"event_registrations"`
}

// FestRegistrationStatus reports whether the caller is registered for festID
// and which of its events they hold seats in.
func (s *Service) FestRegistrationStatus(ctx context.Context, p auth.Principal, festID string) (*FestStatus, error) {
	if _, err := s.Store.GetFestival(ctx, festID); err != nil {
		return nil, db.AppError(err, "festival not found", "")
	}
	status := &FestStatus{EventRegistrations: []models.EventRegistration{}}

	reg, err := s.Store.FindFestRegistration(ctx, p.UserID, festID)
	switch {
	case isNotFound(err):
		return status, nil
	case err != nil:
		return nil, db.AppError(err, "", "")
	}
	status.Registered = true
	status.Registration = reg

	regs, err := s.Store.ListEventRegistrationsByHolder(ctx, p.UserID)
	if err != nil {
		return nil, db.AppError(err, "", "")
	}
	for _, r := range regs {
		if r.FestID == festID && r.IsActive() {
			status.EventRegistrations = append(status.EventRegistrations, r)
		}
	}
	return status, nil
}

func (s *Service) MyFestRegistrations(ctx context.Context, p auth.Principal) ([]models.FestRegistration, error) {
	regs, err := s.Store.ListFestRegistrationsByUser(ctx, p.UserID)
	return regs, db.AppError(err, "", "")
}

func (s *Service) MyEventRegistrations(ctx context.Context, p auth.Principal) ([]models.EventRegistration, error) {
	regs, err := s.Store.ListEventRegistrationsByHolder(ctx, p.UserID)
	return regs, db.AppError(err, "", "")
}

// RegistrationQR returns the QR image of one of the caller's registrations.
// Other users' registrations read as missing.
func (s *Service) RegistrationQR(ctx context.Context, p auth.Principal, registrationID string) ([]byte, error) {
	kind, err := models.ParseRegistrationID(registrationID)
	if err != nil {
		return nil, err
	}

	var (
		owner string
		img   []byte
	)
	if kind == models.KindFestRegistration {
		reg, err := s.Store.GetFestRegistration(ctx, registrationID)
		if err != nil {
			return nil, db.AppError(err, "registration not found", "")
		}
		owner, img = reg.UserID, reg.QRCode
		if len(img) == 0 {
			img, err = s.qrCode(festPayload(reg))
		}
		if err != nil {
			return nil, err
		}
	} else {
		reg, err := s.Store.GetEventRegistration(ctx, registrationID)
		if err != nil {
			return nil, db.AppError(err, "registration not found", "")
		}
		owner, img = reg.HolderID, reg.QRCode
		if len(img) == 0 {
			img, err = s.qrCode(eventPayload(reg))
		}
		if err != nil {
			return nil, err
		}
	}

	if owner != p.UserID {
		return nil, apperr.NotFound("registration not found")
	}
	return img, nil
}

func (s *Service) FestCounts(ctx context.Context, festID string) (models.RegistrationCounts, error) {
	if _, err := s.Store.GetFestival(ctx, festID); err != nil {
		return models.RegistrationCounts{}, db.AppError(err, "festival not found", "")
	}
	counts, err := s.Store.CountFestRegistrations(ctx, festID)
	return counts, db.AppError(err, "", "")
}

func (s *Service) EventCounts(ctx context.Context, eventID string) (models.RegistrationCounts, error) {
	if _, err := s.Store.GetEvent(ctx, eventID); err != nil {
		return models.RegistrationCounts{}, db.AppError(err, "event not found", "")
	}
	counts, err := s.Store.CountEventRegistrations(ctx, eventID)
	return counts, db.AppError(err, "", "")
}

// Candidate is a registration with the registrant's contact details.
type Candidate struct {
	Registration  any    `json:"registration"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	InstituteName string `json:"institute_name,omitempty"`
}

type CandidatePage struct {
	Candidates []Candidate       `json:"candidates"`
	Pagination models.Pagination `json:"pagination"`
}

func (s *Service) canViewCandidates(ctx context.Context, p auth.Principal, festID string) error {
	access, err := s.Roles.Resolve(ctx, p, festID)
	if err != nil {
		return err
	}
	if !access.IsFestivalAdmin() && !access.Can(auth.CanViewParticipants) {
		return apperr.Forbidden("not allowed to view registrations for this festival")
	}
	return nil
}

func (s *Service) candidates(ctx context.Context, holders []string, regs []any, page models.Page, total int) (*CandidatePage, error) {
	users, err := s.Store.GetUsers(ctx, holders)
	if err != nil {
		return nil, db.AppError(err, "", "")
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := &CandidatePage{Candidates: make([]Candidate, 0, len(regs)), Pagination: models.NewPagination(page, total)}
	for i, reg := range regs {
		u := byID[holders[i]]
		out.Candidates = append(out.Candidates, Candidate{
			Registration:  reg,
			Name:          u.Name,
			Email:         u.Email,
			Phone:         u.Phone,
			InstituteName: u.InstituteName,
		})
	}
	return out, nil
}

// FestCandidates lists a festival's registrations for its organisers.
func (s *Service) FestCandidates(ctx context.Context, p auth.Principal, festID string, f models.CandidateFilter) (*CandidatePage, error) {
	if _, err := s.Store.GetFestival(ctx, festID); err != nil {
		return nil, db.AppError(err, "festival not found", "")
	}
	if err := s.canViewCandidates(ctx, p, festID); err != nil {
		return nil, err
	}

	regs, total, err := s.Store.ListFestRegistrations(ctx, festID, f)
	if err != nil {
		return nil, db.AppError(err, "", "")
	}
	holders := make([]string, len(regs))
	rows := make([]any, len(regs))
	for i := range regs {
		holders[i] = regs[i].UserID
		rows[i] = &regs[i]
	}
	return s.candidates(ctx, holders, rows, f.Page, total)
}

// EventCandidates lists an event's registrations for its organisers.
func (s *Service) EventCandidates(ctx context.Context, p auth.Principal, eventID string, f models.CandidateFilter) (*CandidatePage, error) {
	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, db.AppError(err, "event not found", "")
	}
	if err := s.canViewCandidates(ctx, p, event.FestID); err != nil {
		return nil, err
	}

	regs, total, err := s.Store.ListEventRegistrations(ctx, eventID, f)
	if err != nil {
		return nil, db.AppError(err, "", "")
	}
	holders := make([]string, len(regs))
	rows := make([]any, len(regs))
	for i := range regs {
		holders[i] = regs[i].HolderID
		rows[i] = &regs[i]
	}
	return s.candidates(ctx, holders, rows, f.Page, total)
}
