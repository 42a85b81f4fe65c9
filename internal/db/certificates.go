package db

import (
	"context"

	"ms-festbuzz/internal/models"

	"github.com/uptrace/bun"
)

func (d *DB) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	_, err := d.conn(ctx).NewInsert().Model(cert).Exec(ctx)
	return translate(err)
}

func (d *DB) UpdateCertificate(ctx context.Context, cert *models.Certificate) error {
	res, err := d.conn(ctx).NewUpdate().
		Model(cert).
		ExcludeColumn("id", "fest_id", "event_id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCertificateByEvent loads the event's certificate with its recipients.
func (d *DB) GetCertificateByEvent(ctx context.Context, eventID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := d.conn(ctx).NewSelect().
		Model(&cert).
		Relation("Recipients", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("user_id ASC")
		}).
		Where("certificate.event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &cert, nil
}

// ReplaceCertificateRecipients swaps the recipient list of a certificate.
func (d *DB) ReplaceCertificateRecipients(ctx context.Context, certID string, recipients []models.CertificateRecipient) error {
	return d.RunInTx(ctx, func(ctx context.Context) error {
		_, err := d.conn(ctx).NewDelete().
			Model((*models.CertificateRecipient)(nil)).
			Where("certificate_id = ?", certID).
			Exec(ctx)
		if err != nil {
			return translate(err)
		}
		if len(recipients) == 0 {
			return nil
		}
		_, err = d.conn(ctx).NewInsert().Model(&recipients).Exec(ctx)
		return translate(err)
	})
}

// ListCertificatesForUser returns issued certificates naming userID. Each
// carries only that user's recipient entry.
func (d *DB) ListCertificatesForUser(ctx context.Context, userID string) ([]models.Certificate, error) {
	certs := []models.Certificate{}
	held := d.conn(ctx).NewSelect().
		Model((*models.CertificateRecipient)(nil)).
		Column("certificate_id").
		Where("user_id = ?", userID)

	err := d.conn(ctx).NewSelect().
		Model(&certs).
		Relation("Recipients", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("user_id = ?", userID)
		}).
		Where("certificate.id IN (?)", held).
		Where("certificate.issued_at IS NOT NULL").
		Order("certificate.issued_at DESC").
		Scan(ctx)
	return certs, translate(err)
}
