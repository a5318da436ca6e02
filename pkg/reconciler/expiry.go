package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
)

// expire demotes active and refreshed records that haven't been refreshed within the max age
// to pending_removal. It never talks to the provider.
func (r *Reconciler) expire(ctx context.Context) (Result, error) {
	cutoff := r.now().Add(-r.cfg.RecordMaxAge)

	records, err := r.store.ListExpiredRecords(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired records: %w", err)
	}
	r.log.Debugf("found %v expired records", len(records))

	return r.forEach(ctx, records, func(ctx context.Context, rec db.Record) Outcome {
		return r.expireRecord(ctx, rec, cutoff)
	}), nil
}

func (r *Reconciler) expireRecord(ctx context.Context, rec db.Record, cutoff time.Time) Outcome {
	log := r.log.WithFields(recordFields(rec))

	// A refresh may have landed since the listing
	current, err := r.store.GetRecord(ctx, rec.ID)
	if errors.Is(err, db.ErrRecordNotFound) {
		return OutcomeSkipped
	}
	if err != nil {
		log.WithError(err).Error("failed to load record for expiry")
		return OutcomeStoreFailed
	}
	if !isExpired(current, cutoff) {
		return OutcomeSkipped
	}

	current.State = model.RecordStatePendingRemoval
	if err := r.store.SaveRecord(ctx, current); err != nil {
		log.WithError(err).Error("failed to mark expired record for removal")
		return OutcomeStoreFailed
	}

	log.WithField("lastRefreshedAt", current.LastRefreshedAt).Info("record expired, marked for removal")
	return OutcomeExpired
}

func isExpired(rec db.Record, cutoff time.Time) bool {
	return rec.State.IsConverged() && rec.LastRefreshedAt.Before(cutoff)
}
