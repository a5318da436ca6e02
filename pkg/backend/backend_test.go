package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestBackend(t *testing.T) (*backend, db.Database) {
	dbFile := filepath.Join(t.TempDir(), fmt.Sprintf("acorn_ut_%s.db", ulid.Make().String()))
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbFile)
	database, err := db.New(context.Background(), "sqlite", dsn, &gorm.Config{Logger: db.NewLogger("error")})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return NewBackend(database).(*backend), database
}

// setState forces a record into a state the reconciler would normally put it in.
func setState(t *testing.T, database db.Database, id uint, state model.RecordState, refreshed time.Time) {
	rec, err := database.GetRecord(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load record %d: %v", id, err)
	}
	rec.State = state
	rec.LastRefreshedAt = refreshed.UTC()
	if err := database.SaveRecord(context.Background(), rec); err != nil {
		t.Fatalf("failed to save record %d: %v", id, err)
	}
}

func TestSignupAndAuthenticate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut, _ := newTestBackend(t)

	_, err := uut.Signup(ctx, model.SignupRequest{Email: "not-an-email"})
	assert.ErrorIs(err, ErrInvalidInput)

	resp, err := uut.Signup(ctx, model.SignupRequest{Email: "Alice@Example.com"})
	assert.Nil(err)
	assert.Equal("alice@example.com", resp.Email)
	tokenID, secret, ok := strings.Cut(resp.Token, ".")
	assert.True(ok)
	assert.Len(tokenID, tokenIDLength)
	assert.Len(secret, tokenSecretLength)

	_, err = uut.Signup(ctx, model.SignupRequest{Email: "alice@example.com"})
	assert.ErrorIs(err, ErrEmailTaken)

	user, err := uut.Authenticate(ctx, resp.Token)
	assert.Nil(err)
	assert.Equal("alice@example.com", user.Email)
	assert.NotEmpty(user.AccountID)
	assert.NotContains(user.TokenHash, secret)

	for _, bad := range []string{"", "nodot", tokenID + ".", "." + secret, tokenID + ".wrong", "unknown." + secret} {
		_, err = uut.Authenticate(ctx, bad)
		assert.ErrorIs(err, ErrForbidden, "token %q", bad)
	}

	login, err := uut.Login(ctx, model.LoginRequest{Email: "alice@example.com", Token: resp.Token})
	assert.Nil(err)
	assert.Equal(user.AccountID, login.AccountID)

	other, err := uut.Signup(ctx, model.SignupRequest{Email: "bob@example.com"})
	assert.Nil(err)
	_, err = uut.Login(ctx, model.LoginRequest{Email: "alice@example.com", Token: other.Token})
	assert.ErrorIs(err, ErrForbidden)
}

func TestCreateAndListRecords(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut, _ := newTestBackend(t)

	rec, err := uut.CreateRecord(ctx, "alice", model.RecordRequest{Hostname: "home", IPAddress: "1.2.3.4"})
	assert.Nil(err)
	assert.Equal(model.RecordStatePendingCreate, rec.State)
	assert.WithinDuration(time.Now(), rec.LastRefreshedAt, time.Minute)

	_, err = uut.CreateRecord(ctx, "bob", model.RecordRequest{Hostname: "home", IPAddress: "5.6.7.8"})
	assert.ErrorIs(err, db.ErrHostnameTaken)

	_, err = uut.CreateRecord(ctx, "alice", model.RecordRequest{Hostname: "Not_A_Label", IPAddress: "1.2.3.4"})
	assert.ErrorIs(err, ErrInvalidInput)
	_, err = uut.CreateRecord(ctx, "alice", model.RecordRequest{Hostname: "lab", IPAddress: "::1"})
	assert.ErrorIs(err, ErrInvalidInput)

	_, err = uut.CreateRecord(ctx, "alice", model.RecordRequest{Hostname: "cabin", IPAddress: "1.2.3.5"})
	assert.Nil(err)

	records, err := uut.ListRecords(ctx, "alice")
	assert.Nil(err)
	assert.Len(records, 2)

	records, err = uut.ListRecords(ctx, "bob")
	assert.Nil(err)
	assert.Empty(records)
}

func TestRefresh(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut, database := newTestBackend(t)
	now := time.Now().UTC()
	uut.now = func() time.Time { return now }

	rec, err := uut.CreateRecord(ctx, "alice", model.RecordRequest{Hostname: "home", IPAddress: "1.2.3.4"})
	assert.Nil(err)

	// Not converged yet: the timestamp moves but the state stays
	uut.now = func() time.Time { return now.Add(time.Minute) }
	resp, err := uut.Refresh(ctx, "alice", model.RefreshRequest{Hostname: "home", IPAddress: "1.2.3.4"})
	assert.Nil(err)
	assert.Equal(model.RecordStatePendingCreate, resp.State)
	assert.WithinDuration(now.Add(time.Minute), resp.LastRefreshedAt, time.Millisecond)

	setState(t, database, rec.ID, model.RecordStateActive, now.Add(-30*time.Minute))

	resp, err = uut.Refresh(ctx, "alice", model.RefreshRequest{Hostname: "home", IPAddress: "1.2.3.4"})
	assert.Nil(err)
	assert.Equal(model.RecordStateRefreshed, resp.State)
	assert.WithinDuration(now.Add(time.Minute), resp.LastRefreshedAt, time.Millisecond)

	// A new address is queued for the provider
	uut.now = func() time.Time { return now.Add(2 * time.Minute) }
	resp, err = uut.Refresh(ctx, "alice", model.RefreshRequest{Hostname: "home", IPAddress: "9.9.9.9"})
	assert.Nil(err)
	assert.Equal(model.RecordStatePendingUpdate, resp.State)
	assert.Equal("9.9.9.9", resp.IPAddress)
	assert.WithinDuration(now.Add(2*time.Minute), resp.LastRefreshedAt, time.Millisecond)

	stored, err := database.GetRecord(ctx, rec.ID)
	assert.Nil(err)
	assert.Equal(model.RecordStatePendingUpdate, stored.State)
	assert.Equal("9.9.9.9", stored.IPAddress)

	_, err = uut.Refresh(ctx, "bob", model.RefreshRequest{Hostname: "home", IPAddress: "9.9.9.9"})
	assert.ErrorIs(err, ErrNotFound)
	_, err = uut.Refresh(ctx, "alice", model.RefreshRequest{Hostname: "nowhere", IPAddress: "9.9.9.9"})
	assert.ErrorIs(err, ErrNotFound)
	_, err = uut.Refresh(ctx, "alice", model.RefreshRequest{Hostname: "home"})
	assert.ErrorIs(err, ErrInvalidInput)

	assert.Nil(uut.DeleteRecord(ctx, "alice", rec.ID))
	_, err = uut.Refresh(ctx, "alice", model.RefreshRequest{Hostname: "home", IPAddress: "9.9.9.9"})
	assert.ErrorIs(err, ErrNotFound)
}

func TestUpdateRecord(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut, database := newTestBackend(t)
	now := time.Now().UTC()

	fresh, err := uut.CreateRecord(ctx, "alice", model.RecordRequest{Hostname: "fresh", IPAddress: "1.2.3.4"})
	assert.Nil(err)

	// Never reached the provider, so there is nothing to clean up
	resp, err := uut.UpdateRecord(ctx, "alice", fresh.ID, model.UpdateRecordRequest{Hostname: "renamed"})
	assert.Nil(err)
	assert.Equal("renamed", resp.Hostname)
	assert.Empty(resp.PreviousHostname)
	assert.Equal(model.RecordStatePendingCreate, resp.State)

	live, err := uut.CreateRecord(ctx, "alice", model.RecordRequest{Hostname: "b", IPAddress: "1.2.3.4"})
	assert.Nil(err)
	setState(t, database, live.ID, model.RecordStateActive, now)

	resp, err = uut.UpdateRecord(ctx, "alice", live.ID, model.UpdateRecordRequest{Hostname: "a"})
	assert.Nil(err)
	assert.Equal("a", resp.Hostname)
	assert.Equal("b", resp.PreviousHostname)
	assert.Equal(model.RecordStatePendingUpdate, resp.State)

	// The old name stays reserved until the reconciler deletes it
	_, err = uut.CreateRecord(ctx, "bob", model.RecordRequest{Hostname: "b", IPAddress: "5.6.7.8"})
	assert.ErrorIs(err, db.ErrHostnameTaken)

	// A second rename keeps the original old name
	resp, err = uut.UpdateRecord(ctx, "alice", live.ID, model.UpdateRecordRequest{Hostname: "c"})
	assert.Nil(err)
	assert.Equal("c", resp.Hostname)
	assert.Equal("b", resp.PreviousHostname)

	// Renaming back drops the pending cleanup
	resp, err = uut.UpdateRecord(ctx, "alice", live.ID, model.UpdateRecordRequest{Hostname: "b"})
	assert.Nil(err)
	assert.Equal("b", resp.Hostname)
	assert.Empty(resp.PreviousHostname)

	_, err = uut.UpdateRecord(ctx, "alice", live.ID, model.UpdateRecordRequest{Hostname: "renamed"})
	assert.ErrorIs(err, db.ErrHostnameTaken)

	resp, err = uut.UpdateRecord(ctx, "alice", live.ID, model.UpdateRecordRequest{IPAddress: "4.3.2.1"})
	assert.Nil(err)
	assert.Equal("4.3.2.1", resp.IPAddress)
	assert.Equal(model.RecordStatePendingUpdate, resp.State)

	_, err = uut.UpdateRecord(ctx, "alice", live.ID, model.UpdateRecordRequest{})
	assert.ErrorIs(err, ErrInvalidInput)
	_, err = uut.UpdateRecord(ctx, "bob", live.ID, model.UpdateRecordRequest{IPAddress: "4.3.2.1"})
	assert.ErrorIs(err, ErrNotFound)

	assert.Nil(uut.DeleteRecord(ctx, "alice", live.ID))
	_, err = uut.UpdateRecord(ctx, "alice", live.ID, model.UpdateRecordRequest{IPAddress: "8.8.8.8"})
	assert.ErrorIs(err, ErrRecordRemoving)
}

func TestUpdateRecordWithRenameInFlight(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut, database := newTestBackend(t)

	rec, err := uut.CreateRecord(ctx, "alice", model.RecordRequest{Hostname: "a", IPAddress: "1.2.3.4"})
	assert.Nil(err)

	// What strict rename cleanup leaves behind when the old name could not be deleted
	stored, err := database.GetRecord(ctx, rec.ID)
	assert.Nil(err)
	stored.PreviousHostname = "b"
	stored.State = model.RecordStateActive
	assert.Nil(database.SaveRecord(ctx, stored))

	_, err = uut.UpdateRecord(ctx, "alice", rec.ID, model.UpdateRecordRequest{Hostname: "c"})
	assert.ErrorIs(err, ErrRenameInFlight)

	resp, err := uut.UpdateRecord(ctx, "alice", rec.ID, model.UpdateRecordRequest{IPAddress: "4.3.2.1"})
	assert.Nil(err)
	assert.Equal("b", resp.PreviousHostname)
	assert.Equal(model.RecordStatePendingUpdate, resp.State)
}

func TestDeleteRecord(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut, database := newTestBackend(t)

	rec, err := uut.CreateRecord(ctx, "alice", model.RecordRequest{Hostname: "home", IPAddress: "1.2.3.4"})
	assert.Nil(err)

	assert.ErrorIs(uut.DeleteRecord(ctx, "bob", rec.ID), ErrNotFound)
	assert.Nil(uut.DeleteRecord(ctx, "alice", rec.ID))
	assert.Nil(uut.DeleteRecord(ctx, "alice", rec.ID))

	stored, err := database.GetRecord(ctx, rec.ID)
	assert.Nil(err)
	assert.Equal(model.RecordStatePendingRemoval, stored.State)

	assert.Nil(database.DeleteRecord(ctx, rec.ID))
	assert.ErrorIs(uut.DeleteRecord(ctx, "alice", rec.ID), ErrNotFound)
}
