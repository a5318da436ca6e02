package db

import (
	"context"
	"errors"
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/model"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrHostnameTaken  = errors.New("hostname is already taken")
)

type Database interface {
	CreateUser(ctx context.Context, email, accountID, tokenID, tokenHash string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByTokenID(ctx context.Context, tokenID string) (User, error)

	CreateRecord(ctx context.Context, record Record) (Record, error)
	GetRecord(ctx context.Context, id uint) (Record, error)
	GetOwnedRecord(ctx context.Context, owner string, id uint) (Record, error)
	GetOwnedRecordByHostname(ctx context.Context, owner, hostname string) (Record, error)
	ListOwnerRecords(ctx context.Context, owner string) ([]Record, error)
	HostnameInUse(ctx context.Context, hostname string, excludeID uint) (bool, error)

	ListRecordsByState(ctx context.Context, states ...model.RecordState) ([]Record, error)
	ListExpiredRecords(ctx context.Context, cutoff time.Time) ([]Record, error)
	ListRenamesInFlight(ctx context.Context) ([]Record, error)
	SaveRecord(ctx context.Context, record Record) error
	DeleteRecord(ctx context.Context, id uint) error
}
