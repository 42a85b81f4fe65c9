// Package certificates manages per-event certificate templates, issues them
// to participants and winners, and serves them back to recipients.
package certificates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/models"

	"github.com/google/uuid"
)

type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetEvent(ctx context.Context, id string) (*models.Event, error)
	FindActiveEventRegistration(ctx context.Context, userID, eventID string) (*models.EventRegistration, error)

	CreateCertificate(ctx context.Context, cert *models.Certificate) error
	UpdateCertificate(ctx context.Context, cert *models.Certificate) error
	GetCertificateByEvent(ctx context.Context, eventID string) (*models.Certificate, error)
	ReplaceCertificateRecipients(ctx context.Context, certID string, recipients []models.CertificateRecipient) error
	ListCertificatesForUser(ctx context.Context, userID string) ([]models.Certificate, error)
}

type AccessResolver interface {
	Resolve(ctx context.Context, p auth.Principal, festID string) (auth.Access, error)
}

type Publisher interface {
	Publish(ctx context.Context, events ...models.DomainEvent)
}

type Service struct {
	Store     Store
	Roles     AccessResolver
	Publisher Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

// NewService wires the service. pub may be nil.
func NewService(store Store, roles AccessResolver, pub Publisher, log *logger.Logger) *Service {
	return &Service{
		Store:     store,
		Roles:     roles,
		Publisher: pub,
		Logger:    log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// TemplateInput is the certificate design. Empty strings clear a field.
type TemplateInput struct {
	Template     string `json:"template"`
	Logo1        string `json:"logo1"`
	Logo2        string `json:"logo2"`
	Name1        string `json:"name1"`
	Designation1 string `json:"designation1"`
	Name2        string `json:"name2"`
	Designation2 string `json:"designation2"`
}

func (in TemplateInput) apply(c *models.Certificate) {
	c.Template = strings.TrimSpace(in.Template)
	c.Logo1 = strings.TrimSpace(in.Logo1)
	c.Logo2 = strings.TrimSpace(in.Logo2)
	c.Name1 = strings.TrimSpace(in.Name1)
	c.Designation1 = strings.TrimSpace(in.Designation1)
	c.Name2 = strings.TrimSpace(in.Name2)
	c.Designation2 = strings.TrimSpace(in.Designation2)
}

type Winner struct {
	UserID   string `json:"user_id"`
	Position string `json:"position"`
}

type IssueInput struct {
	Participants []string `json:"participants"`
	Winners      []Winner `json:"winners"`
}

// event loads eventID and checks perm in its festival.
func (s *Service) event(ctx context.Context, p auth.Principal, eventID string, perms ...auth.Permission) (*models.Event, error) {
	if p.UserID == "" {
		return nil, apperr.Unauthenticated("authentication required")
	}
	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, db.AppError(err, "event not found", "")
	}
	access, err := s.Roles.Resolve(ctx, p, event.FestID)
	if err != nil {
		return nil, err
	}
	for _, perm := range perms {
		if !access.Can(perm) {
			return nil, apperr.Forbidden("missing permission %s", perm)
		}
	}
	return event, nil
}

// SaveTemplate creates or replaces the certificate design of an event.
// Recipients and the issue stamp are kept.
func (s *Service) SaveTemplate(ctx context.Context, p auth.Principal, eventID string, in TemplateInput) (*models.Certificate, error) {
	event, err := s.event(ctx, p, eventID, auth.CanSendCertificates)
	if err != nil {
		return nil, err
	}

	var cert *models.Certificate
	err = s.Store.RunInTx(ctx, func(ctx context.Context) error {
		now := s.Now()
		existing, err := s.Store.GetCertificateByEvent(ctx, eventID)
		switch {
		case err == nil:
			cert = existing
			in.apply(cert)
			cert.UpdatedAt = now
			return db.AppError(s.Store.UpdateCertificate(ctx, cert), "certificate not found", "")
		case !isNotFound(err):
			return db.AppError(err, "", "")
		}
		cert = &models.Certificate{
			ID:        uuid.NewString(),
			FestID:    event.FestID,
			EventID:   event.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		in.apply(cert)
		return db.AppError(s.Store.CreateCertificate(ctx, cert), "", "certificate template already exists")
	})
	if err != nil {
		return nil, err
	}
	s.logf("template for event %s saved by %s", eventID, p.UserID)
	return cert, nil
}

// GetTemplate returns the certificate with every recipient, for organisers.
func (s *Service) GetTemplate(ctx context.Context, p auth.Principal, eventID string) (*models.Certificate, error) {
	if _, err := s.event(ctx, p, eventID, auth.CanSendCertificates); err != nil {
		return nil, err
	}
	cert, err := s.Store.GetCertificateByEvent(ctx, eventID)
	if err != nil {
		return nil, db.AppError(err, "certificate template not found", "")
	}
	return cert, nil
}

// recipients merges participants and winners. A winner listed as a
// participant too is recorded once, as a winner.
func (in IssueInput) recipients(certID string) ([]models.CertificateRecipient, error) {
	byUser := map[string]int{}
	var out []models.CertificateRecipient
	add := func(userID string) (int, error) {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			return 0, apperr.Validation("recipient user id is required")
		}
		if i, ok := byUser[userID]; ok {
			return i, nil
		}
		byUser[userID] = len(out)
		out = append(out, models.CertificateRecipient{ID: uuid.NewString(), CertificateID: certID, UserID: userID})
		return len(out) - 1, nil
	}
	for _, id := range in.Participants {
		if _, err := add(id); err != nil {
			return nil, err
		}
	}
	for _, w := range in.Winners {
		i, err := add(w.UserID)
		if err != nil {
			return nil, err
		}
		out[i].IsWinner = true
		out[i].Position = strings.TrimSpace(w.Position)
	}
	if len(out) == 0 {
		return nil, apperr.Validation("at least one participant or winner is required")
	}
	return out, nil
}

// Issue attaches recipients to the event's certificate and stamps it issued.
// Every recipient must hold an active registration for the event. Naming
// winners also needs the results permission.
func (s *Service) Issue(ctx context.Context, p auth.Principal, eventID string, in IssueInput) (*models.Certificate, error) {
	perms := []auth.Permission{auth.CanSendCertificates}
	if len(in.Winners) > 0 {
		perms = append(perms, auth.CanPublishResults)
	}
	event, err := s.event(ctx, p, eventID, perms...)
	if err != nil {
		return nil, err
	}

	var cert *models.Certificate
	err = s.Store.RunInTx(ctx, func(ctx context.Context) error {
		found, err := s.Store.GetCertificateByEvent(ctx, eventID)
		if err != nil {
			return db.AppError(err, "certificate template not found, save one first", "")
		}
		cert = found
		recipients, err := in.recipients(cert.ID)
		if err != nil {
			return err
		}
		for _, r := range recipients {
			if _, err := s.Store.FindActiveEventRegistration(ctx, r.UserID, eventID); err != nil {
				if isNotFound(err) {
					return apperr.Validation("user %s is not registered for %s", r.UserID, event.Name)
				}
				return db.AppError(err, "", "")
			}
		}
		if err := s.Store.ReplaceCertificateRecipients(ctx, cert.ID, recipients); err != nil {
			return db.AppError(err, "", "duplicate certificate recipient")
		}
		now := s.Now()
		cert.Recipients = recipients
		cert.IssuedAt = now
		cert.IssuedBy = p.UserID
		cert.UpdatedAt = now
		return db.AppError(s.Store.UpdateCertificate(ctx, cert), "certificate not found", "")
	})
	if err != nil {
		return nil, err
	}

	winners := 0
	for _, r := range cert.Recipients {
		if r.IsWinner {
			winners++
		}
	}
	s.logf("event %s certificates issued by %s to %d recipients (%d winners)", eventID, p.UserID, len(cert.Recipients), winners)
	if s.Publisher != nil {
		s.Publisher.Publish(ctx, models.DomainEvent{
			Type:       models.CertificatesIssued,
			UserID:     p.UserID,
			FestID:     event.FestID,
			EventID:    event.ID,
			OccurredAt: cert.IssuedAt,
			Data:       map[string]any{"recipients": len(cert.Recipients), "winners": winners},
		})
	}
	return cert, nil
}

// ForUser returns the caller's certificate for eventID. Callers who are not
// among its recipients are refused.
func (s *Service) ForUser(ctx context.Context, p auth.Principal, eventID string) (*models.UserCertificate, error) {
	if p.UserID == "" {
		return nil, apperr.Unauthenticated("authentication required")
	}
	cert, err := s.Store.GetCertificateByEvent(ctx, eventID)
	if err != nil {
		return nil, db.AppError(err, "certificate not found", "")
	}
	if !cert.Issued() {
		return nil, apperr.NotFound("certificate has not been issued yet")
	}
	r, ok := cert.Recipient(p.UserID)
	if !ok {
		return nil, apperr.Forbidden("you are not a participant or winner of this event")
	}
	cert.Recipients = []models.CertificateRecipient{r}
	return &models.UserCertificate{Certificate: cert, IsWinner: r.IsWinner, Position: r.Position}, nil
}

// Mine lists every issued certificate naming the caller, newest first.
func (s *Service) Mine(ctx context.Context, p auth.Principal) ([]models.UserCertificate, error) {
	if p.UserID == "" {
		return nil, apperr.Unauthenticated("authentication required")
	}
	certs, err := s.Store.ListCertificatesForUser(ctx, p.UserID)
	if err != nil {
		return nil, db.AppError(err, "", "")
	}
	out := make([]models.UserCertificate, 0, len(certs))
	for i := range certs {
		cert := &certs[i]
		r, _ := cert.Recipient(p.UserID)
		out = append(out, models.UserCertificate{Certificate: cert, IsWinner: r.IsWinner, Position: r.Position})
	}
	return out, nil
}

func (s *Service) logf(format string, args ...any) {
	s.Logger.Info("CERTIFICATE", fmt.Sprintf(format, args...))
}

func isNotFound(err error) bool {
	return apperr.Is(err, apperr.KindNotFound) || errors.Is(err, db.ErrNotFound)
}
