package db_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestDatabase(t *testing.T) db.Database {
	dbFile := filepath.Join(t.TempDir(), fmt.Sprintf("acorn_ut_%s.db", ulid.Make().String()))
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbFile)
	database, err := db.New(context.Background(), "sqlite", dsn, &gorm.Config{Logger: db.NewLogger("error")})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return database
}

func newRecord(owner, hostname, ip string, state model.RecordState, refreshed time.Time) db.Record {
	return db.Record{
		OwnerToken:      owner,
		Hostname:        hostname,
		IPAddress:       ip,
		State:           state,
		LastRefreshedAt: refreshed.UTC(),
	}
}

func TestDBUsers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut := newTestDatabase(t)

	user, err := uut.CreateUser(ctx, "someone@example.com", "account-1", "tokenid1", "hash")
	assert.Nil(err)
	assert.NotZero(user.ID)

	byEmail, err := uut.GetUserByEmail(ctx, "someone@example.com")
	assert.Nil(err)
	assert.Equal(user.ID, byEmail.ID)

	byToken, err := uut.GetUserByTokenID(ctx, "tokenid1")
	assert.Nil(err)
	assert.Equal("account-1", byToken.AccountID)

	_, err = uut.GetUserByTokenID(ctx, "missing")
	assert.ErrorIs(err, db.ErrRecordNotFound)

	// Emails are unique
	_, err = uut.CreateUser(ctx, "someone@example.com", "account-2", "tokenid2", "hash")
	assert.Error(err)
}

func TestDBRecordLifecycle(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut := newTestDatabase(t)
	now := time.Now()

	rec, err := uut.CreateRecord(ctx, newRecord("owner-a", "home", "1.2.3.4", model.RecordStatePendingCreate, now))
	assert.Nil(err)
	assert.NotZero(rec.ID)

	// Hostnames are unique across owners
	_, err = uut.CreateRecord(ctx, newRecord("owner-b", "home", "5.6.7.8", model.RecordStatePendingCreate, now))
	assert.ErrorIs(err, db.ErrHostnameTaken)

	// Invalid records are rejected before reaching the table
	_, err = uut.CreateRecord(ctx, newRecord("owner-b", "not.a.label", "5.6.7.8", model.RecordStatePendingCreate, now))
	assert.Error(err)
	_, err = uut.CreateRecord(ctx, newRecord("owner-b", "office", "5.6.7.8", model.RecordState("added"), now))
	assert.Error(err)
	_, err = uut.CreateRecord(ctx, newRecord("owner-b", "office", "::ffff:5.6.7.8", model.RecordStatePendingCreate, now))
	assert.Error(err)

	got, err := uut.GetOwnedRecord(ctx, "owner-a", rec.ID)
	assert.Nil(err)
	assert.Equal("home", got.Hostname)

	_, err = uut.GetOwnedRecord(ctx, "owner-b", rec.ID)
	assert.ErrorIs(err, db.ErrRecordNotFound)

	got, err = uut.GetOwnedRecordByHostname(ctx, "owner-a", "home")
	assert.Nil(err)
	assert.Equal(rec.ID, got.ID)

	// Rename in flight keeps the old name reserved
	got.Hostname = "cabin"
	got.PreviousHostname = "home"
	got.State = model.RecordStatePendingUpdate
	assert.Nil(uut.SaveRecord(ctx, got))

	inUse, err := uut.HostnameInUse(ctx, "home", 0)
	assert.Nil(err)
	assert.True(inUse)
	inUse, err = uut.HostnameInUse(ctx, "cabin", rec.ID)
	assert.Nil(err)
	assert.False(inUse)

	// A record's previous hostname must differ from its hostname
	got.PreviousHostname = "cabin"
	assert.Error(uut.SaveRecord(ctx, got))

	listed, err := uut.ListOwnerRecords(ctx, "owner-a")
	assert.Nil(err)
	assert.Len(listed, 1)

	assert.Nil(uut.DeleteRecord(ctx, rec.ID))
	_, err = uut.GetRecord(ctx, rec.ID)
	assert.ErrorIs(err, db.ErrRecordNotFound)

	// Deleting twice is fine, saving a deleted record is not
	assert.Nil(uut.DeleteRecord(ctx, rec.ID))
	got.PreviousHostname = ""
	assert.ErrorIs(uut.SaveRecord(ctx, got), db.ErrRecordNotFound)
}

func TestDBRecordQueries(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut := newTestDatabase(t)
	now := time.Now()

	fixtures := []db.Record{
		newRecord("owner", "fresh-active", "1.1.1.1", model.RecordStateActive, now),
		newRecord("owner", "stale-active", "1.1.1.2", model.RecordStateActive, now.Add(-2*time.Hour)),
		newRecord("owner", "stale-refreshed", "1.1.1.3", model.RecordStateRefreshed, now.Add(-2*time.Hour)),
		newRecord("owner", "stale-pending", "1.1.1.4", model.RecordStatePendingUpdate, now.Add(-2*time.Hour)),
		newRecord("owner", "new", "1.1.1.5", model.RecordStatePendingCreate, now),
		newRecord("owner", "doomed", "1.1.1.6", model.RecordStatePendingRemoval, now.Add(-2*time.Hour)),
	}
	for _, f := range fixtures {
		_, err := uut.CreateRecord(ctx, f)
		assert.Nil(err)
	}

	expired, err := uut.ListExpiredRecords(ctx, now.Add(-time.Hour))
	assert.Nil(err)
	assert.ElementsMatch([]string{"stale-active", "stale-refreshed"}, hostnames(expired))

	pending, err := uut.ListRecordsByState(ctx, model.PendingStates()...)
	assert.Nil(err)
	assert.ElementsMatch([]string{"stale-pending", "new"}, hostnames(pending))

	removal, err := uut.ListRecordsByState(ctx, model.RecordStatePendingRemoval)
	assert.Nil(err)
	assert.ElementsMatch([]string{"doomed"}, hostnames(removal))

	none, err := uut.ListRecordsByState(ctx)
	assert.Nil(err)
	assert.Empty(none)

	renames, err := uut.ListRenamesInFlight(ctx)
	assert.Nil(err)
	assert.Empty(renames)

	active, err := uut.GetOwnedRecordByHostname(ctx, "owner", "fresh-active")
	assert.Nil(err)
	active.Hostname = "renamed"
	active.PreviousHostname = "fresh-active"
	assert.Nil(uut.SaveRecord(ctx, active))

	renames, err = uut.ListRenamesInFlight(ctx)
	assert.Nil(err)
	assert.ElementsMatch([]string{"renamed"}, hostnames(renames))
}

func TestRecordTouchNeverGoesBackwards(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	rec := db.Record{LastRefreshedAt: now}
	rec.Touch(now.Add(-time.Minute))
	assert.True(rec.LastRefreshedAt.Equal(now))

	rec.Touch(now.Add(time.Minute))
	assert.True(rec.LastRefreshedAt.Equal(now.Add(time.Minute)))
}

func hostnames(records []db.Record) []string {
	var names []string
	for _, r := range records {
		names = append(names, r.Hostname)
	}
	return names
}
