package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Certificate is the per-event certificate template. It is issued once the
// organisers attach its recipients.
type Certificate struct {
	bun.BaseModel `bun:"table:certificates"`

	ID           string    `bun:"id,pk" json:"id"`
	FestID       string    `bun:"fest_id,notnull" json:"fest_id"`
	EventID      string    `bun:"event_id,notnull,unique" json:"event_id"`
	Template     string    `bun:"template" json:"template,omitempty"`
	Logo1        string    `bun:"logo1" json:"logo1,omitempty"`
	Logo2        string    `bun:"logo2" json:"logo2,omitempty"`
	Name1        string    `bun:"name1" json:"name1,omitempty"`
	Designation1 string    `bun:"designation1" json:"designation1,omitempty"`
	Name2        string    `bun:"name2" json:"name2,omitempty"`
	Designation2 string    `bun:"designation2" json:"designation2,omitempty"`
	IssuedAt     time.Time `bun:"issued_at,nullzero" json:"issued_at,omitempty"`
	IssuedBy     string    `bun:"issued_by,nullzero" json:"issued_by,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`

	Recipients []CertificateRecipient `bun:"rel:has-many,join:id=certificate_id" json:"recipients,omitempty"`
}

func (c *Certificate) Issued() bool {
	return !c.IssuedAt.IsZero()
}

// Recipient returns userID's entry, if any.
func (c *Certificate) Recipient(userID string) (CertificateRecipient, bool) {
	for _, r := range c.Recipients {
		if r.UserID == userID {
			return r, true
		}
	}
	return CertificateRecipient{}, false
}

type CertificateRecipient struct {
	bun.BaseModel `bun:"table:certificate_recipients"`

	ID            string `bun:"id,pk" json:"id"`
	CertificateID string `bun:"certificate_id,notnull,unique:certificate_recipients_cert_user" json:"certificate_id"`
	UserID        string `bun:"user_id,notnull,unique:certificate_recipients_cert_user" json:"user_id"`
	IsWinner      bool   `bun:"is_winner,notnull" json:"is_winner"`
	Position      string `bun:"position" json:"position,omitempty"`
}

// UserCertificate is one certificate as its recipient sees it.
type UserCertificate struct {
	Certificate *Certificate `json:"certificate"`
	IsWinner    bool         `json:"is_winner"`
	Position    string       `json:"position,omitempty"`
}
