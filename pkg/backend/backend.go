package backend

import (
	"context"
	"errors"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
)

var (
	ErrForbidden      = errors.New("forbidden to use")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrEmailTaken     = errors.New("email is already registered")
	ErrRecordRemoving = errors.New("record is being removed")
	// ErrRenameInFlight is returned when a record's last rename still has an old hostname to clean up
	ErrRenameInFlight = errors.New("previous rename is still being cleaned up")
)

type Backend interface {
	Signup(ctx context.Context, input model.SignupRequest) (model.SignupResponse, error)
	Login(ctx context.Context, input model.LoginRequest) (model.UserResponse, error)
	Authenticate(ctx context.Context, token string) (db.User, error)

	CreateRecord(ctx context.Context, owner string, input model.RecordRequest) (model.RecordResponse, error)
	ListRecords(ctx context.Context, owner string) ([]model.RecordResponse, error)
	UpdateRecord(ctx context.Context, owner string, id uint, input model.UpdateRecordRequest) (model.RecordResponse, error)
	DeleteRecord(ctx context.Context, owner string, id uint) error
	Refresh(ctx context.Context, owner string, input model.RefreshRequest) (model.RecordResponse, error)
}
