package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
	"github.com/sirupsen/logrus"
)

type backend struct {
	db  db.Database
	log *logrus.Entry
	now func() time.Time
}

func NewBackend(database db.Database) Backend {
	return &backend{
		db:  database,
		log: logrus.WithField("component", "backend"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func validate(input interface{}) error {
	if err := model.Validate(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// notFound turns a missing row into ErrNotFound so callers never see db errors for lookups.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, db.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
