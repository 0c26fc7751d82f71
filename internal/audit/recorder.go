package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mora-fusion/server/internal/metrics"
)

const (
	// DefaultPageSize bounds a query when the caller does not pick a limit.
	DefaultPageSize = 50
	// MaxPageSize is the hard ceiling for a single trail page.
	MaxPageSize = 100

	writeTimeout = 5 * time.Second
)

// Recorder writes audit entries and serves bounded trail queries.
//
// Record never surfaces storage failures to the caller: a denial that has
// already been decided must not change outcome because the trail write
// failed. Failures are reported through the logger and a metric instead.
type Recorder struct {
	store  Store
	logger zerolog.Logger
}

func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Record appends one entry to the trail. The write is detached from the
// request's cancellation: a client dropping the connection mid-request
// does not roll back an audit write already issued.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.store.Insert(writeCtx, entry); err != nil {
		metrics.AuditWriteFailures.Inc()
		r.logger.Error().
			Err(err).
			Str("action", string(entry.Action)).
			Str("outcome", string(entry.Outcome)).
			Msg("audit write failed")
		return
	}

	r.logger.Debug().
		Str("action", string(entry.Action)).
		Str("outcome", string(entry.Outcome)).
		Msg("audit entry recorded")
}

// Query returns trail entries newest first, with the page size clamped to
// MaxPageSize.
func (r *Recorder) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	return r.store.List(ctx, filter)
}
