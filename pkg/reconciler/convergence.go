package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
)

// converge pushes pending_create and pending_update records to the provider and marks them
// active. In strict rename mode it then retries old hostname deletes left over from earlier
// cycles.
func (r *Reconciler) converge(ctx context.Context) (Result, error) {
	records, err := r.store.ListRecordsByState(ctx, model.PendingStates()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending records: %w", err)
	}
	r.log.Debugf("found %v records to converge", len(records))

	result := r.forEach(ctx, records, r.convergeRecord)
	if !r.cfg.StrictRenameCleanup || ctx.Err() != nil {
		return result, nil
	}

	renames, err := r.store.ListRenamesInFlight(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list renames in flight: %w", err)
	}
	result.Add(r.forEach(ctx, renames, r.retryRenameCleanup))
	return result, nil
}

func (r *Reconciler) convergeRecord(ctx context.Context, rec db.Record) Outcome {
	log := r.log.WithFields(recordFields(rec))

	if err := r.provider.UpsertRecord(ctx, rec.Hostname, rec.IPAddress); err != nil {
		log.WithError(err).Warn("failed to upsert dns record, will retry")
		return OutcomeProviderFailed
	}

	// The record may have been edited or deleted while the provider call was in flight
	current, err := r.store.GetRecord(ctx, rec.ID)
	if errors.Is(err, db.ErrRecordNotFound) {
		log.Info("record vanished while converging")
		return OutcomeSkipped
	}
	if err != nil {
		log.WithError(err).Error("failed to reload record after upsert")
		return OutcomeStoreFailed
	}
	if !current.State.NeedsConvergence() || current.Hostname != rec.Hostname || current.IPAddress != rec.IPAddress {
		log.Info("record changed while converging, leaving it for the next cycle")
		if current.Hostname != rec.Hostname {
			r.discardStaleHostname(ctx, rec)
		}
		return OutcomeSkipped
	}

	if current.PreviousHostname != "" {
		err := r.cleanupPreviousHostname(ctx, current)
		switch {
		case errors.Is(err, errHostnameCheck):
			// Nothing was attempted, keep the record pending so the old name isn't forgotten
			return OutcomeStoreFailed
		case err == nil || !r.cfg.StrictRenameCleanup:
			current.PreviousHostname = ""
		}
	}

	current.State = model.RecordStateActive
	current.Touch(r.now())
	if err := r.store.SaveRecord(ctx, current); err != nil {
		log.WithError(err).Error("failed to mark record active")
		return OutcomeStoreFailed
	}

	log.Info("dns record converged")
	return OutcomeConverged
}

// errHostnameCheck means the store couldn't say whether an old hostname is still claimed, so
// no delete was attempted.
var errHostnameCheck = errors.New("unable to check whether hostname is in use")

// cleanupPreviousHostname deletes the old name of a renamed record. A nil error means the old
// name is confirmed gone. The name is left alone if another record has claimed it since.
func (r *Reconciler) cleanupPreviousHostname(ctx context.Context, rec db.Record) error {
	log := r.log.WithFields(recordFields(rec)).WithField("previousHostname", rec.PreviousHostname)

	inUse, err := r.store.HostnameInUse(ctx, rec.PreviousHostname, rec.ID)
	if err != nil {
		log.WithError(err).Error("failed to check previous hostname, skipping cleanup")
		return fmt.Errorf("%w %s: %v", errHostnameCheck, rec.PreviousHostname, err)
	}
	if inUse {
		log.Info("previous hostname belongs to another record, not deleting it")
		return nil
	}

	if err := r.deleteHostname(ctx, rec.PreviousHostname); err != nil {
		log.WithError(err).Warn("failed to delete previous hostname")
		return err
	}

	log.Info("deleted previous hostname")
	return nil
}

// retryRenameCleanup is the strict mode follow-up for converged records whose old hostname
// could not be deleted earlier.
func (r *Reconciler) retryRenameCleanup(ctx context.Context, rec db.Record) Outcome {
	if err := r.cleanupPreviousHostname(ctx, rec); errors.Is(err, errHostnameCheck) {
		return OutcomeStoreFailed
	} else if err != nil {
		return OutcomeProviderFailed
	}

	current, err := r.store.GetRecord(ctx, rec.ID)
	if errors.Is(err, db.ErrRecordNotFound) {
		return OutcomeSkipped
	}
	if err != nil {
		return OutcomeStoreFailed
	}
	if current.PreviousHostname != rec.PreviousHostname {
		return OutcomeSkipped
	}

	current.PreviousHostname = ""
	if err := r.store.SaveRecord(ctx, current); err != nil {
		r.log.WithFields(recordFields(current)).WithError(err).Error("failed to clear previous hostname")
		return OutcomeStoreFailed
	}
	return OutcomeRenameCleaned
}

// discardStaleHostname removes a name that was upserted just before the record was renamed
// away from it, unless some record still uses it.
func (r *Reconciler) discardStaleHostname(ctx context.Context, rec db.Record) {
	log := r.log.WithFields(recordFields(rec))

	inUse, err := r.store.HostnameInUse(ctx, rec.Hostname, 0)
	if err != nil || inUse {
		return
	}
	if err := r.deleteHostname(ctx, rec.Hostname); err != nil {
		log.WithError(err).Warn("failed to delete stale hostname")
	}
}
