package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"possync/m/domain"
	"possync/m/internal/auth"
	"possync/m/internal/localstore"
	"possync/m/internal/remote"
)

// ParentRule says rows of Table must not be uploaded before the row of
// ParentTable referenced by Column exists remotely.
type ParentRule struct {
	Table       string
	Column      string
	ParentTable string
}

var DefaultParentRules = []ParentRule{
	{Table: "order_items", Column: "order_id", ParentTable: "orders"},
}

// CredentialsProvider hands out a valid access token, or auth.ErrNoSession.
type CredentialsProvider interface {
	Credentials(ctx context.Context) (auth.Credentials, error)
}

type Options struct {
	ParentRules []ParentRule
	// DeferAlertAfter is the deferral count at which a stalled batch is
	// reported. Zero disables the alert.
	DeferAlertAfter int
	Interval        time.Duration
	Registerer      prometheus.Registerer
}

// Result summarizes one drain.
type Result struct {
	Completed int  `json:"completed"`
	Discarded int  `json:"discarded"`
	Deferred  int  `json:"deferred"`
	Skipped   int  `json:"skipped"`
	Blocked   bool `json:"blocked,omitempty"`
	Busy      bool `json:"busy,omitempty"`
}

// Status is a snapshot for the status endpoint.
type Status struct {
	Pending    int     `json:"pending"`
	Running    bool    `json:"running"`
	LastSyncAt string  `json:"last_sync_at,omitempty"`
	LastError  string  `json:"last_error,omitempty"`
	LastResult *Result `json:"last_result,omitempty"`
}

// Connector drains the local upload queue to the remote backend, one batch
// at a time, in queue order.
type Connector struct {
	store  *localstore.Store
	remote remote.Remote
	creds  CredentialsProvider
	log    *zap.Logger

	parents    map[string][]ParentRule
	alertAfter int
	interval   time.Duration
	metrics    *metrics

	running atomic.Bool
	trigger chan struct{}

	mu         sync.Mutex
	lastSyncAt string
	lastErr    error
	lastResult *Result
}

func New(store *localstore.Store, rmt remote.Remote, creds CredentialsProvider, log *zap.Logger, opts Options) *Connector {
	rules := opts.ParentRules
	if rules == nil {
		rules = DefaultParentRules
	}
	parents := make(map[string][]ParentRule)
	for _, r := range rules {
		parents[r.Table] = append(parents[r.Table], r)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Connector{
		store:      store,
		remote:     rmt,
		creds:      creds,
		log:        log,
		parents:    parents,
		alertAfter: opts.DeferAlertAfter,
		interval:   interval,
		metrics:    newMetrics(opts.Registerer),
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger asks the Run loop to drain soon. It never blocks.
func (c *Connector) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Run drains on every tick and trigger until ctx is cancelled.
func (c *Connector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Info("connector started", zap.Duration("interval", c.interval))
	for {
		if _, err := c.UploadData(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("upload halted, will retry", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			c.log.Info("connector stopped")
			return
		case <-ticker.C:
		case <-c.trigger:
		}
	}
}

// Flush drains synchronously and reports what happened.
func (c *Connector) Flush(ctx context.Context) (Result, error) {
	return c.UploadData(ctx)
}

// Status reports the queue size and the outcome of the last drain.
func (c *Connector) Status(ctx context.Context) (Status, error) {
	pending, err := c.store.PendingCount(ctx)
	if err != nil {
		return Status{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		Pending:    pending,
		Running:    c.running.Load(),
		LastSyncAt: c.lastSyncAt,
		LastResult: c.lastResult,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s, nil
}

// UploadData drains the queue once. A drain already in progress makes this
// a no-op; a missing session blocks it without error. A transient failure
// stops the drain and is returned, leaving the failing batch queued.
func (c *Connector) UploadData(ctx context.Context) (Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return Result{Busy: true}, nil
	}
	defer c.running.Store(false)

	res, err := c.drain(ctx)

	if pending, countErr := c.store.PendingCount(ctx); countErr == nil {
		c.metrics.pending.Set(float64(pending))
	}
	c.mu.Lock()
	c.lastSyncAt = domain.Now()
	c.lastErr = err
	c.lastResult = &res
	c.mu.Unlock()
	return res, err
}

type batchOutcome int

const (
	batchCompleted batchOutcome = iota
	batchDiscarded
	batchDeferred
)

func (c *Connector) drain(ctx context.Context) (Result, error) {
	var res Result

	creds, err := c.creds.Credentials(ctx)
	if errors.Is(err, auth.ErrNoSession) {
		c.log.Info("upload blocked: no session")
		res.Blocked = true
		return res, nil
	}
	if err != nil {
		c.metrics.batches.WithLabelValues(outcomeTransient).Inc()
		return res, fmt.Errorf("credentials: %w", err)
	}
	ctx = auth.ContextWithToken(ctx, creds.Token)

	// Rows touched by batches left behind this cycle. Later batches touching
	// them wait too, so no row is ever written out of order.
	held := make(map[localstore.RowKey]bool)
	// Rows upserted during this drain, so parents written moments ago are
	// not looked up again.
	confirmed := make(map[localstore.RowKey]bool)

	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		batch, err := c.store.NextPendingTransactionAfter(ctx, after)
		if err != nil {
			return res, err
		}
		if batch == nil {
			return res, nil
		}
		after = batch.ID

		if touchesAny(batch, held) {
			hold(batch, held)
			res.Skipped++
			c.metrics.batches.WithLabelValues(outcomeSkipped).Inc()
			c.log.Debug("batch waits behind an earlier batch", zap.Int64("tx_id", batch.ID))
			continue
		}

		outcome, err := c.uploadBatch(ctx, batch, confirmed)
		if err != nil {
			c.metrics.batches.WithLabelValues(outcomeTransient).Inc()
			return res, err
		}

		switch outcome {
		case batchCompleted, batchDiscarded:
			if err := c.store.MarkTransactionComplete(ctx, batch.ID); err != nil {
				return res, err
			}
			if outcome == batchCompleted {
				res.Completed++
				c.metrics.batches.WithLabelValues(outcomeCompleted).Inc()
			} else {
				res.Discarded++
				c.metrics.batches.WithLabelValues(outcomeDiscarded).Inc()
			}
		case batchDeferred:
			res.Deferred++
			c.metrics.batches.WithLabelValues(outcomeDeferred).Inc()
			hold(batch, held)
			if err := c.recordDeferral(ctx, batch); err != nil {
				return res, err
			}
		}
	}
}

// uploadBatch applies the entries of batch in order. A non-nil error is
// transient and the batch must stay queued.
func (c *Connector) uploadBatch(ctx context.Context, batch *localstore.CrudTransaction, confirmed map[localstore.RowKey]bool) (batchOutcome, error) {
	for _, entry := range batch.Entries {
		data, err := entry.OpData()
		if err != nil {
			c.log.Error("discarding batch with unreadable entry",
				zap.Int64("tx_id", batch.ID), zap.Int64("entry_id", entry.ID), zap.Error(err))
			return batchDiscarded, nil
		}

		missing, err := c.missingParent(ctx, entry, data, confirmed)
		if err != nil {
			return 0, fmt.Errorf("check parent of %s/%s: %w", entry.Table, entry.RowID, err)
		}
		if missing != nil {
			c.log.Warn("deferring batch until parent is uploaded",
				zap.Int64("tx_id", batch.ID),
				zap.String("table", entry.Table),
				zap.String("row_id", entry.RowID),
				zap.String("parent_table", missing.Table),
				zap.String("parent_id", missing.ID))
			return batchDeferred, nil
		}

		if err := c.apply(ctx, entry, data); err != nil {
			if remote.IsFatal(err) {
				c.log.Error("discarding batch rejected by backend",
					zap.Int64("tx_id", batch.ID),
					zap.String("op", string(entry.Op)),
					zap.String("table", entry.Table),
					zap.String("row_id", entry.RowID),
					zap.String("code", remote.Code(err)),
					zap.Error(err))
				return batchDiscarded, nil
			}
			return 0, fmt.Errorf("%s %s/%s: %w", entry.Op, entry.Table, entry.RowID, err)
		}
		if entry.Op == localstore.OpPut {
			confirmed[entry.Key()] = true
		}
	}
	return batchCompleted, nil
}

func (c *Connector) apply(ctx context.Context, entry localstore.CrudEntry, data map[string]any) error {
	switch entry.Op {
	case localstore.OpPut:
		return c.remote.Upsert(ctx, entry.Table, entry.RowID, data)
	case localstore.OpPatch:
		return c.remote.Update(ctx, entry.Table, entry.RowID, data)
	case localstore.OpDelete:
		return c.remote.Delete(ctx, entry.Table, entry.RowID)
	default:
		return fmt.Errorf("unknown op %q", entry.Op)
	}
}

// missingParent returns the parent row entry depends on when that row is not
// known to exist remotely.
func (c *Connector) missingParent(ctx context.Context, entry localstore.CrudEntry, data map[string]any, confirmed map[localstore.RowKey]bool) (*localstore.RowKey, error) {
	if entry.Op == localstore.OpDelete {
		return nil, nil
	}
	for _, rule := range c.parents[entry.Table] {
		value, ok := data[rule.Column]
		if !ok || value == nil {
			continue
		}
		parent := localstore.RowKey{Table: rule.ParentTable, ID: fmt.Sprint(value)}
		if parent.ID == "" || confirmed[parent] {
			continue
		}
		exists, err := c.remote.Exists(ctx, rule.ParentTable, "id", parent.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return &parent, nil
		}
		confirmed[parent] = true
	}
	return nil, nil
}

func (c *Connector) recordDeferral(ctx context.Context, batch *localstore.CrudTransaction) error {
	count, err := c.store.RecordDeferral(ctx, batch.ID)
	if err != nil {
		return err
	}
	if c.alertAfter > 0 && count == c.alertAfter {
		c.metrics.stalled.Inc()
		c.log.Error("batch stalled waiting for parent",
			zap.Int64("tx_id", batch.ID),
			zap.Int("deferrals", count),
			zap.String("created_at", batch.CreatedAt))
	}
	return nil
}

func touchesAny(batch *localstore.CrudTransaction, held map[localstore.RowKey]bool) bool {
	for _, e := range batch.Entries {
		if held[e.Key()] {
			return true
		}
	}
	return false
}

func hold(batch *localstore.CrudTransaction, held map[localstore.RowKey]bool) {
	for _, e := range batch.Entries {
		held[e.Key()] = true
	}
}
