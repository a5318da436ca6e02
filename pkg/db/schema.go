package db

import (
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/model"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email string `gorm:"uniqueIndex"`
	// AccountID is the opaque identifier stamped on every record the user owns
	AccountID string `gorm:"uniqueIndex"`
	// TokenID is the public half of the bearer token, used to look the user up
	TokenID   string `gorm:"uniqueIndex"`
	TokenHash string
}

type Record struct {
	ID         uint   `gorm:"primarykey"`
	OwnerToken string `gorm:"index;not null" validate:"required"`
	Hostname   string `gorm:"uniqueIndex;not null" validate:"required,dns_label"`
	IPAddress  string `gorm:"not null" validate:"required,ipv4_addr"`
	// PreviousHostname is only set while a rename waits for the old name to be deleted
	PreviousHostname string            `gorm:"index" validate:"omitempty,dns_label,nefield=Hostname"`
	State            model.RecordState `gorm:"index;not null" validate:"record_state"`
	LastRefreshedAt  time.Time         `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Touch bumps LastRefreshedAt without ever moving it backwards. Timestamps are stored in UTC
// so that they compare correctly as text in sqlite.
func (r *Record) Touch(now time.Time) {
	if now.After(r.LastRefreshedAt) {
		r.LastRefreshedAt = now.UTC()
	}
}

func (r Record) ToResponse() model.RecordResponse {
	return model.RecordResponse{
		ID:               r.ID,
		Hostname:         r.Hostname,
		IPAddress:        r.IPAddress,
		PreviousHostname: r.PreviousHostname,
		State:            r.State,
		LastRefreshedAt:  r.LastRefreshedAt,
	}
}
