package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
	"github.com/acorn-io/acorn-ddns/pkg/provider"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	DefaultRecordMaxAge  = time.Hour
	DefaultInterval      = 5 * time.Minute
	DefaultRecordTimeout = 30 * time.Second
)

// Store is the slice of the database the reconciler reads and writes.
type Store interface {
	ListRecordsByState(ctx context.Context, states ...model.RecordState) ([]db.Record, error)
	ListExpiredRecords(ctx context.Context, cutoff time.Time) ([]db.Record, error)
	ListRenamesInFlight(ctx context.Context) ([]db.Record, error)
	HostnameInUse(ctx context.Context, hostname string, excludeID uint) (bool, error)
	GetRecord(ctx context.Context, id uint) (db.Record, error)
	SaveRecord(ctx context.Context, record db.Record) error
	DeleteRecord(ctx context.Context, id uint) error
}

type Config struct {
	// RecordMaxAge is how long an active record lives without a refresh
	RecordMaxAge time.Duration
	// Interval is the pause between the end of one cycle and the start of the next
	Interval time.Duration
	// Concurrency bounds the records processed in parallel within a phase
	Concurrency int
	// RecordTimeout bounds the provider and store calls made for a single record
	RecordTimeout time.Duration
	// StrictRenameCleanup keeps retrying the delete of a renamed record's old hostname
	// instead of giving up after the first attempt
	StrictRenameCleanup bool
}

// Reconciler converges the records in the database with the DNS provider. A cycle runs the
// expiry scanner, the removal applier and the convergence applier, strictly in that order.
type Reconciler struct {
	cfg      Config
	store    Store
	provider provider.Provider
	log      *logrus.Entry
	now      func() time.Time

	cycle int64
}

func New(store Store, p provider.Provider, cfg Config) *Reconciler {
	if cfg.RecordMaxAge <= 0 {
		cfg.RecordMaxAge = DefaultRecordMaxAge
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = DefaultRecordTimeout
	}

	return &Reconciler{
		cfg:      cfg,
		store:    store,
		provider: p,
		log:      logrus.WithFields(logrus.Fields{"component": "reconciler", "provider": p.Name()}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start runs reconciliation cycles until ctx is cancelled. The first cycle starts right away and
// the interval is measured from the end of each cycle, so cycles never overlap.
func (r *Reconciler) Start(ctx context.Context) {
	r.log.Infof("starting reconciler. Interval: %v, record max age: %v, concurrency: %v, strict rename cleanup: %v",
		r.cfg.Interval, r.cfg.RecordMaxAge, r.cfg.Concurrency, r.cfg.StrictRenameCleanup)

	wait.JitterUntilWithContext(ctx, func(ctx context.Context) {
		_, _ = r.RunCycle(ctx)
	}, r.cfg.Interval, .002, true)

	r.log.Info("reconciler stopped")
}

// RunCycle runs one full reconciliation cycle. The returned error is only set when a phase
// could not list its records at all; per-record failures are counted in the Result and
// retried on the next cycle.
func (r *Reconciler) RunCycle(ctx context.Context) (Result, error) {
	r.cycle++
	log := r.log.WithField("cycle", r.cycle)
	start := time.Now()
	result := Result{}

	log.Debug("beginning reconciliation cycle")

	phases := []struct {
		name string
		run  func(ctx context.Context) (Result, error)
	}{
		{"expiry", r.expire},
		{"removal", r.remove},
		{"convergence", r.converge},
	}

	for _, phase := range phases {
		if ctx.Err() != nil {
			log.Info("shutting down, skipping the rest of the cycle")
			break
		}

		phaseResult, err := phase.run(ctx)
		result.Add(phaseResult)
		if err != nil {
			log.WithError(err).Errorf("%v phase failed, ending cycle early", phase.name)
			return result, fmt.Errorf("%v phase: %w", phase.name, err)
		}
	}

	log.WithFields(result.Fields()).WithField("duration", time.Since(start)).Info("reconciliation cycle complete")
	return result, nil
}

// forEach runs fn for every record with at most Concurrency records in flight. Once ctx is
// cancelled no further records are started, but records already started run to completion on
// a context detached from ctx so that no record is left half written.
func (r *Reconciler) forEach(ctx context.Context, records []db.Record, fn func(ctx context.Context, rec db.Record) Outcome) Result {
	result := Result{}
	var lock sync.Mutex

	g := errgroup.Group{}
	g.SetLimit(r.cfg.Concurrency)

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			// Shutdown may have arrived while this record waited for a free slot
			if ctx.Err() != nil {
				return nil
			}

			recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.RecordTimeout)
			defer cancel()

			outcome := r.safely(recordCtx, rec, fn)

			lock.Lock()
			result[outcome]++
			lock.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return result
}

// safely keeps a panicking provider client from taking down the loop.
func (r *Reconciler) safely(ctx context.Context, rec db.Record, fn func(ctx context.Context, rec db.Record) Outcome) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			r.log.WithFields(recordFields(rec)).Errorf("recovered panic while reconciling record: %v", p)
			outcome = OutcomeFailed
		}
	}()
	return fn(ctx, rec)
}

// deleteHostname removes hostname from the provider. A record that is already gone counts as
// deleted.
func (r *Reconciler) deleteHostname(ctx context.Context, hostname string) error {
	err := r.provider.DeleteRecord(ctx, hostname)
	if errors.Is(err, provider.ErrRecordNotFound) {
		r.log.WithField("hostname", hostname).Debug("dns record already absent")
		return nil
	}
	return err
}

func recordFields(rec db.Record) logrus.Fields {
	return logrus.Fields{
		"recordID":  rec.ID,
		"hostname":  rec.Hostname,
		"ipAddress": rec.IPAddress,
		"state":     rec.State,
	}
}
