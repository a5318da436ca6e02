package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/model"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type database struct {
	db        *gorm.DB
	validator *validator.Validate
}

// New creates a new database connection
func New(ctx context.Context, dialect string, dsn string, config *gorm.Config) (Database, error) {
	if config == nil {
		config = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	}

	var db *gorm.DB
	var err error

	switch dialect {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(dsn), config)
		if err == nil {
			err = db.Exec("PRAGMA foreign_keys = ON").Error
		}
	case "mysql":
		db, err = gorm.Open(mysql.Open(dsn), config)
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if err != nil {
		return nil, err
	}

	db = db.WithContext(ctx)

	if err := db.AutoMigrate(
		&User{},
		&Record{},
	); err != nil {
		return nil, err
	}

	v := validator.New()
	if err := model.RegisterWithValidator(v); err != nil {
		return nil, err
	}

	d := &database{
		db:        db,
		validator: v,
	}
	return d, nil
}

func (d *database) CreateUser(ctx context.Context, email, accountID, tokenID, tokenHash string) (User, error) {
	user := User{
		Email:     email,
		AccountID: accountID,
		TokenID:   tokenID,
		TokenHash: tokenHash,
	}

	if err := d.db.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	return user, nil
}

func (d *database) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := d.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	return user, translateError(err)
}

func (d *database) GetUserByTokenID(ctx context.Context, tokenID string) (User, error) {
	var user User
	err := d.db.WithContext(ctx).Where("token_id = ?", tokenID).Take(&user).Error
	return user, translateError(err)
}

// CreateRecord inserts a new record once its hostname is confirmed free. The check and the
// insert share a transaction; the unique index on hostname catches anything that slips past.
func (d *database) CreateRecord(ctx context.Context, record Record) (Record, error) {
	if err := d.validator.Struct(&record); err != nil {
		return Record{}, fmt.Errorf("record %q is not valid: %w", record.Hostname, err)
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := hostnameInUse(tx, record.Hostname, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrHostnameTaken
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return Record{}, translateError(err)
	}

	return record, nil
}

func (d *database) GetRecord(ctx context.Context, id uint) (Record, error) {
	var record Record
	err := d.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	return record, translateError(err)
}

func (d *database) GetOwnedRecord(ctx context.Context, owner string, id uint) (Record, error) {
	var record Record
	err := d.db.WithContext(ctx).Where("id = ? and owner_token = ?", id, owner).Take(&record).Error
	return record, translateError(err)
}

func (d *database) GetOwnedRecordByHostname(ctx context.Context, owner, hostname string) (Record, error) {
	var record Record
	err := d.db.WithContext(ctx).Where("owner_token = ? and hostname = ?", owner, hostname).Take(&record).Error
	return record, translateError(err)
}

func (d *database) ListOwnerRecords(ctx context.Context, owner string) ([]Record, error) {
	var records []Record
	err := d.db.WithContext(ctx).Where("owner_token = ?", owner).Order("id").Find(&records).Error
	return records, err
}

// HostnameInUse reports whether another record holds the hostname, either as its current name
// or as the old name of a rename that hasn't been cleaned up yet.
func (d *database) HostnameInUse(ctx context.Context, hostname string, excludeID uint) (bool, error) {
	return hostnameInUse(d.db.WithContext(ctx), hostname, excludeID)
}

func hostnameInUse(tx *gorm.DB, hostname string, excludeID uint) (bool, error) {
	var count int64
	err := tx.Model(&Record{}).
		Where("(hostname = ? or previous_hostname = ?) and id <> ?", hostname, hostname, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *database) ListRecordsByState(ctx context.Context, states ...model.RecordState) ([]Record, error) {
	var records []Record
	if len(states) == 0 {
		return records, nil
	}
	err := d.db.WithContext(ctx).Where("state IN ?", states).Order("id").Find(&records).Error
	return records, err
}

func (d *database) ListExpiredRecords(ctx context.Context, cutoff time.Time) ([]Record, error) {
	var records []Record
	err := d.db.WithContext(ctx).
		Where("state IN ? and last_refreshed_at < ?", model.ConvergedStates(), cutoff.UTC()).
		Order("id").
		Find(&records).Error
	return records, err
}

func (d *database) ListRenamesInFlight(ctx context.Context) ([]Record, error) {
	var records []Record
	err := d.db.WithContext(ctx).
		Where("state IN ? and previous_hostname <> ''", model.ConvergedStates()).
		Order("id").
		Find(&records).Error
	return records, err
}

// SaveRecord writes the mutable fields of an existing record. It never re-creates a record
// that was deleted in the meantime.
func (d *database) SaveRecord(ctx context.Context, record Record) error {
	if err := d.validator.Struct(&record); err != nil {
		return fmt.Errorf("record %d is not valid: %w", record.ID, err)
	}

	sql := d.db.WithContext(ctx).Model(&Record{ID: record.ID}).Updates(map[string]interface{}{
		"hostname":          record.Hostname,
		"ip_address":        record.IPAddress,
		"previous_hostname": record.PreviousHostname,
		"state":             record.State,
		"last_refreshed_at": record.LastRefreshedAt,
	})
	if sql.Error != nil {
		return translateError(sql.Error)
	}
	if sql.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteRecord removes a record for good. Deleting a record that is already gone is not an error.
func (d *database) DeleteRecord(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Delete(&Record{}, id).Error
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, ErrHostnameTaken), isUniqueViolation(err):
		return ErrHostnameTaken
	}
	return err
}

// isUniqueViolation matches the unique constraint errors of the supported dialects.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
