package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
)

// remove deletes every pending_removal record from the provider and, once the provider has let
// go of it, from the database. Failed deletes are left alone and retried every cycle.
func (r *Reconciler) remove(ctx context.Context) (Result, error) {
	records, err := r.store.ListRecordsByState(ctx, model.RecordStatePendingRemoval)
	if err != nil {
		return nil, fmt.Errorf("failed to list records pending removal: %w", err)
	}
	r.log.Debugf("found %v records to remove", len(records))

	return r.forEach(ctx, records, r.removeRecord), nil
}

func (r *Reconciler) removeRecord(ctx context.Context, rec db.Record) Outcome {
	log := r.log.WithFields(recordFields(rec))

	if err := r.deleteHostname(ctx, rec.Hostname); err != nil {
		log.WithError(err).Warn("failed to delete dns record, will retry")
		return OutcomeProviderFailed
	}

	// A record deleted mid-rename may still have its old name at the provider
	if rec.PreviousHostname != "" {
		err := r.cleanupPreviousHostname(ctx, rec)
		if errors.Is(err, errHostnameCheck) {
			return OutcomeStoreFailed
		}
		if err != nil && r.cfg.StrictRenameCleanup {
			return OutcomeProviderFailed
		}
	}

	if err := r.store.DeleteRecord(ctx, rec.ID); err != nil {
		log.WithError(err).Error("failed to delete record after removing it from dns")
		return OutcomeStoreFailed
	}

	log.Info("removed dns record")
	return OutcomeRemoved
}
