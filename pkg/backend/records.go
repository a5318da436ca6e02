package backend

import (
	"context"
	"fmt"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
	"github.com/sirupsen/logrus"
)

// CreateRecord stores a new record as pending_create. The reconciler pushes it to the provider.
func (b *backend) CreateRecord(ctx context.Context, owner string, input model.RecordRequest) (model.RecordResponse, error) {
	if err := validate(input); err != nil {
		return model.RecordResponse{}, err
	}

	record, err := b.db.CreateRecord(ctx, db.Record{
		OwnerToken:      owner,
		Hostname:        input.Hostname,
		IPAddress:       input.IPAddress,
		State:           model.RecordStatePendingCreate,
		LastRefreshedAt: b.now(),
	})
	if err != nil {
		return model.RecordResponse{}, err
	}

	b.log.WithFields(logrus.Fields{"recordID": record.ID, "hostname": record.Hostname}).Debug("created record")
	return record.ToResponse(), nil
}

func (b *backend) ListRecords(ctx context.Context, owner string) ([]model.RecordResponse, error) {
	records, err := b.db.ListOwnerRecords(ctx, owner)
	if err != nil {
		return nil, err
	}

	resp := make([]model.RecordResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, r.ToResponse())
	}
	return resp, nil
}

// UpdateRecord renames a record and/or changes its address. A rename of a record the provider
// already knows about remembers the old hostname so the reconciler can delete it.
func (b *backend) UpdateRecord(ctx context.Context, owner string, id uint, input model.UpdateRecordRequest) (model.RecordResponse, error) {
	if err := validate(input); err != nil {
		return model.RecordResponse{}, err
	}
	if input.Hostname == "" && input.IPAddress == "" {
		return model.RecordResponse{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	record, err := b.db.GetOwnedRecord(ctx, owner, id)
	if err != nil {
		return model.RecordResponse{}, notFound(err, "record %d", id)
	}
	if record.State == model.RecordStatePendingRemoval {
		return model.RecordResponse{}, ErrRecordRemoving
	}

	changed := false
	if input.Hostname != "" && input.Hostname != record.Hostname {
		if err := b.rename(ctx, &record, input.Hostname); err != nil {
			return model.RecordResponse{}, err
		}
		changed = true
	}
	if input.IPAddress != "" && input.IPAddress != record.IPAddress {
		record.IPAddress = input.IPAddress
		changed = true
	}
	if !changed {
		return record.ToResponse(), nil
	}

	if record.State != model.RecordStatePendingCreate {
		record.State = model.RecordStatePendingUpdate
	}
	record.Touch(b.now())

	if err := b.db.SaveRecord(ctx, record); err != nil {
		return model.RecordResponse{}, notFound(err, "record %d", id)
	}
	return record.ToResponse(), nil
}

func (b *backend) rename(ctx context.Context, record *db.Record, hostname string) error {
	inUse, err := b.db.HostnameInUse(ctx, hostname, record.ID)
	if err != nil {
		return err
	}
	if inUse {
		return db.ErrHostnameTaken
	}

	switch {
	case hostname == record.PreviousHostname:
		// Renamed back before the old name was cleaned up; it must survive
		record.PreviousHostname = ""
	case record.PreviousHostname != "" && record.State.IsConverged():
		return ErrRenameInFlight
	case record.PreviousHostname == "" && record.State.HasReachedProvider():
		record.PreviousHostname = record.Hostname
	}

	record.Hostname = hostname
	return nil
}

// DeleteRecord only marks the record for removal. The reconciler deletes it from the provider
// and then from the database.
func (b *backend) DeleteRecord(ctx context.Context, owner string, id uint) error {
	record, err := b.db.GetOwnedRecord(ctx, owner, id)
	if err != nil {
		return notFound(err, "record %d", id)
	}
	if record.State == model.RecordStatePendingRemoval {
		return nil
	}

	record.State = model.RecordStatePendingRemoval
	return notFound(b.db.SaveRecord(ctx, record), "record %d", id)
}

// Refresh is the client keep-alive. An unchanged address marks a converged record refreshed; a
// new address is queued for the provider as an update. Either way the record's clock restarts.
func (b *backend) Refresh(ctx context.Context, owner string, input model.RefreshRequest) (model.RecordResponse, error) {
	if err := validate(input); err != nil {
		return model.RecordResponse{}, err
	}
	if input.IPAddress == "" {
		return model.RecordResponse{}, fmt.Errorf("%w: ip address is required", ErrInvalidInput)
	}

	record, err := b.db.GetOwnedRecordByHostname(ctx, owner, input.Hostname)
	if err != nil {
		return model.RecordResponse{}, notFound(err, "record %v", input.Hostname)
	}
	if record.State == model.RecordStatePendingRemoval {
		return model.RecordResponse{}, fmt.Errorf("%w: record %v", ErrNotFound, input.Hostname)
	}

	switch {
	case record.IPAddress != input.IPAddress:
		record.IPAddress = input.IPAddress
		if record.State != model.RecordStatePendingCreate {
			record.State = model.RecordStatePendingUpdate
		}
	case record.State.IsConverged():
		record.State = model.RecordStateRefreshed
	}
	record.Touch(b.now())

	if err := b.db.SaveRecord(ctx, record); err != nil {
		return model.RecordResponse{}, notFound(err, "record %v", input.Hostname)
	}
	return record.ToResponse(), nil
}
