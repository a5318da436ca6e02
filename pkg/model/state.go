package model

import (
	"fmt"
)

const (
	RecordStatePendingCreate  RecordState = "pending_create"
	RecordStatePendingUpdate  RecordState = "pending_update"
	RecordStateActive         RecordState = "active"
	RecordStateRefreshed      RecordState = "refreshed"
	RecordStatePendingRemoval RecordState = "pending_removal"
)

// RecordState is where a record sits in its lifecycle between the desired state held in the
// database and the live state held by the DNS provider.
type RecordState string

// ParseRecordState converts a stored or user supplied value into a RecordState, rejecting
// anything that isn't one of the known states.
func ParseRecordState(s string) (RecordState, error) {
	rs := RecordState(s)
	if err := rs.IsValid(); err != nil {
		return "", err
	}
	return rs, nil
}

func (rs RecordState) IsValid() error {
	switch rs {
	case RecordStatePendingCreate, RecordStatePendingUpdate, RecordStateActive, RecordStateRefreshed,
		RecordStatePendingRemoval:
		return nil
	}

	return fmt.Errorf("invalid record state %q", string(rs))
}

// IsConverged reports whether the provider is known to hold the record's current values.
func (rs RecordState) IsConverged() bool {
	switch rs {
	case RecordStateActive, RecordStateRefreshed:
		return true
	case RecordStatePendingCreate, RecordStatePendingUpdate, RecordStatePendingRemoval:
		return false
	}
	return false
}

// NeedsConvergence reports whether the record still has to be pushed to the provider.
func (rs RecordState) NeedsConvergence() bool {
	switch rs {
	case RecordStatePendingCreate, RecordStatePendingUpdate:
		return true
	case RecordStateActive, RecordStateRefreshed, RecordStatePendingRemoval:
		return false
	}
	return false
}

// HasReachedProvider reports whether a provider-side record may exist under the record's
// hostname. A record that never left pending_create has nothing to clean up on rename.
func (rs RecordState) HasReachedProvider() bool {
	switch rs {
	case RecordStatePendingCreate:
		return false
	case RecordStatePendingUpdate, RecordStateActive, RecordStateRefreshed, RecordStatePendingRemoval:
		return true
	}
	return false
}

// ConvergedStates are the states the expiry scanner and the refresh path operate on.
func ConvergedStates() []RecordState {
	return []RecordState{RecordStateActive, RecordStateRefreshed}
}

// PendingStates are the states the convergence applier pushes to the provider.
func PendingStates() []RecordState {
	return []RecordState{RecordStatePendingCreate, RecordStatePendingUpdate}
}
