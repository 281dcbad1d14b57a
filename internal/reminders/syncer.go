package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EwwwzhI/ActionPlus/internal/clock"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

type OutcomeKind string

const (
	OutcomeApplied    OutcomeKind = "applied"
	OutcomeUnchanged  OutcomeKind = "unchanged"
	OutcomeSkipped    OutcomeKind = "skipped"
	OutcomeSuperseded OutcomeKind = "superseded"
	OutcomeEmpty      OutcomeKind = "empty"
)

const (
	ReasonPermissionDenied = "permission_denied"
	ReasonDeliveryError    = "delivery_error"
)

const (
	permissionAdvisory = "通知权限未开启，提醒未能安排"
	emptyAdvisory      = "当前没有需要安排的提醒"
)

// SyncOutcome reports what one Sync call did. Message is only set when the
// request asked for user-facing feedback.
type SyncOutcome struct {
	Category    Category
	Kind        OutcomeKind
	Reason      string
	Scheduled   int
	Failed      int
	Fingerprint string
	Message     string
}

type SyncRequest struct {
	State  state.State
	Force  bool
	Notify bool
}

type Planner func(s state.State, now time.Time) Plan

type Options struct {
	Clock            clock.Clock
	Logger           *slog.Logger
	Metrics          *Metrics
	ShortHorizonDays int
	LongHorizonDays  int
	// RepeatingDaily schedules the global daily rule as one repeating
	// reminder instead of a horizon of one-shot reminders.
	RepeatingDaily bool
}

// Syncer replaces the reminders of one category whenever the plan's
// fingerprint changes. Each run takes a new generation number and abandons
// itself after any backend call if a newer run has started since.
type Syncer struct {
	category Category
	planner  Planner
	delivery Delivery
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *Metrics

	generation atomic.Uint64

	mu      sync.Mutex
	applied string
	// settled is the generation of the newest run that finished. A run is
	// in flight while it trails generation.
	settled uint64
}

func NewSyncer(category Category, planner Planner, delivery Delivery, opts Options) *Syncer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		category: category,
		planner:  planner,
		delivery: delivery,
		clock:    clock.OrSystem(opts.Clock),
		logger:   logger.With("category", string(category)),
		metrics:  opts.Metrics,
	}
}

// NewPeriodicSyncer syncs the short-term task reminders.
func NewPeriodicSyncer(delivery Delivery, opts Options) *Syncer {
	horizon := opts.ShortHorizonDays
	if horizon <= 0 {
		horizon = ShortHorizonDays
	}
	repeating := opts.RepeatingDaily
	return NewSyncer(CategoryTask, func(s state.State, now time.Time) Plan {
		return PlanPeriodic(s, now, horizon, repeating)
	}, delivery, opts)
}

// NewLongtermSyncer syncs deadline and review reminders.
func NewLongtermSyncer(delivery Delivery, opts Options) *Syncer {
	horizon := opts.LongHorizonDays
	if horizon <= 0 {
		horizon = LongHorizonDays
	}
	return NewSyncer(CategoryLongterm, func(s state.State, now time.Time) Plan {
		return PlanLongterm(s, now, horizon)
	}, delivery, opts)
}

func (s *Syncer) Category() Category { return s.category }

// Applied returns the fingerprint of the last completed run.
func (s *Syncer) Applied() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Reset forgets the applied fingerprint so the next Sync reschedules.
func (s *Syncer) Reset() {
	s.mu.Lock()
	s.applied = ""
	s.mu.Unlock()
}

var errSuperseded = errors.New("reminders: superseded")

// Sync brings the backend in line with req.State. Backend failures become
// Skipped outcomes; the only error returned is ctx's.
func (s *Syncer) Sync(ctx context.Context, req SyncRequest) (SyncOutcome, error) {
	now := s.clock.Now()
	plan := s.planner(req.State, now)
	out := SyncOutcome{Category: s.category, Fingerprint: plan.Fingerprint}

	gen, unchanged := s.begin(plan.Fingerprint, req.Force)
	if unchanged {
		out.Kind = OutcomeUnchanged
		s.metrics.observeSync(s.category, out.Kind)
		return out, nil
	}

	out, err := s.run(ctx, gen, plan, req, out)
	s.finish(gen)
	if errors.Is(err, errSuperseded) {
		s.logger.Debug("reminder sync superseded", "generation", gen)
		out.Kind = OutcomeSuperseded
		err = nil
	}
	if err != nil {
		return out, err
	}
	s.metrics.observeSync(s.category, out.Kind)
	return out, nil
}

// begin reports a fingerprint match as unchanged only when no older run is
// still in flight; otherwise it takes a new generation, which supersedes
// that run.
func (s *Syncer) begin(fingerprint string, force bool) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force && fingerprint == s.applied && s.generation.Load() == s.settled {
		return 0, true
	}
	return s.generation.Add(1), false
}

func (s *Syncer) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() == gen {
		s.settled = gen
	}
}

// forget clears the applied fingerprint once a run has touched the backend,
// so a run that fails after cancelling is retried.
func (s *Syncer) forget(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() == gen {
		s.applied = ""
	}
}

func (s *Syncer) run(ctx context.Context, gen uint64, plan Plan, req SyncRequest, out SyncOutcome) (SyncOutcome, error) {
	check := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.generation.Load() != gen {
			return errSuperseded
		}
		return nil
	}
	skip := func(reason, message string, cause error) (SyncOutcome, error) {
		s.logger.Warn("reminder sync skipped", "reason", reason, "err", cause)
		out.Kind = OutcomeSkipped
		out.Reason = reason
		if req.Notify {
			out.Message = message
		}
		return out, nil
	}

	status, err := s.delivery.PermissionStatus(ctx)
	if err != nil {
		return skip(ReasonDeliveryError, permissionAdvisory, err)
	}
	if err := check(); err != nil {
		return out, err
	}
	if status != PermissionGranted {
		status, err = s.delivery.RequestPermission(ctx)
		if err != nil {
			return skip(ReasonDeliveryError, permissionAdvisory, err)
		}
		if err := check(); err != nil {
			return out, err
		}
		if status != PermissionGranted {
			return skip(ReasonPermissionDenied, permissionAdvisory, nil)
		}
	}

	if err := s.delivery.EnsureChannel(ctx, ChannelID, ChannelName); err != nil {
		return skip(ReasonDeliveryError, permissionAdvisory, err)
	}
	if err := check(); err != nil {
		return out, err
	}

	s.forget(gen)
	if err := s.cancelAll(ctx); err != nil {
		return skip(ReasonDeliveryError, permissionAdvisory, err)
	}
	if err := check(); err != nil {
		return out, err
	}

	if !plan.Enabled || len(plan.Tasks) == 0 || len(plan.Triggers) == 0 {
		s.record(gen, plan.Fingerprint)
		out.Kind = OutcomeEmpty
		if req.Notify && plan.Enabled {
			out.Message = emptyAdvisory
		}
		return out, nil
	}

	for _, trig := range plan.Triggers {
		if err := check(); err != nil {
			return out, err
		}
		var schedErr error
		if trig.Repeating {
			_, schedErr = s.delivery.ScheduleRepeating(ctx, trig.Payload, trig.Hour, trig.Minute)
		} else {
			_, schedErr = s.delivery.ScheduleAt(ctx, trig.At, trig.Payload)
		}
		if schedErr != nil {
			out.Failed++
			s.logger.Warn("schedule reminder failed", "at", trig.At, "err", schedErr)
			continue
		}
		out.Scheduled++
	}
	if err := check(); err != nil {
		return out, err
	}
	s.metrics.observeScheduled(s.category, out.Scheduled)
	if out.Scheduled == 0 {
		return skip(ReasonDeliveryError, permissionAdvisory, fmt.Errorf("all %d reminders failed", out.Failed))
	}
	s.record(gen, plan.Fingerprint)
	out.Kind = OutcomeApplied
	s.logger.Info("reminders scheduled", "count", out.Scheduled, "failed", out.Failed)
	return out, nil
}

// cancelAll cancels every reminder tagged with this category in parallel.
func (s *Syncer) cancelAll(ctx context.Context) error {
	existing, err := s.delivery.ListScheduled(ctx, s.category)
	if err != nil {
		return fmt.Errorf("list scheduled: %w", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, item := range existing {
		if item.Category != s.category {
			continue
		}
		handle := item.Handle
		g.Go(func() error {
			if err := s.delivery.Cancel(gctx, handle); err != nil {
				return fmt.Errorf("cancel %s: %w", handle, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Syncer) record(gen uint64, fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen {
		return
	}
	s.applied = fingerprint
}

// SyncAll runs every syncer against the same state and collects outcomes.
func SyncAll(ctx context.Context, syncers []*Syncer, req SyncRequest) ([]SyncOutcome, error) {
	out := make([]SyncOutcome, 0, len(syncers))
	for _, s := range syncers {
		if s == nil {
			continue
		}
		res, err := s.Sync(ctx, req)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}
