// Package service wires scoring, milestone tracking and notification delivery
// into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/artype/internal/adapters/mq/inbox"
	eventqueue "github.com/okian/artype/internal/adapters/mq/queue"
	workerpool "github.com/okian/artype/internal/adapters/mq/worker"
	repository "github.com/okian/artype/internal/adapters/repository"
	"github.com/okian/artype/internal/config"
	"github.com/okian/artype/internal/domain/dedupe"
	"github.com/okian/artype/internal/domain/dimension"
	"github.com/okian/artype/internal/domain/milestone"
	"github.com/okian/artype/internal/domain/model"
	"github.com/okian/artype/internal/domain/scoring"
	"github.com/okian/artype/pkg/logger"
	"github.com/okian/artype/pkg/metrics"
)

// Service implements the API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine  *scoring.Engine
	store   repository.Store
	deduper dedupe.Deduper
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool
	inbox   *inbox.Inbox
	tracker *milestone.Tracker

	// Configuration
	notifierCount  int
	queueSize      int
	dedupeSize     int
	inboxSize      int
	guestStore     string
	guestDataDir   string
	defaultVariant string
	thresholds     scoring.Thresholds
	maximums       map[string]map[string]float64

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithNotifierCount sets the number of notification workers.
func WithNotifierCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.notifierCount = count
		}
	}
}

// WithQueueSize sets the capacity of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the emitted-key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithInboxSize caps undrained notifications per guest.
func WithInboxSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.inboxSize = size
		}
	}
}

// WithMemoryStore keeps guest records in memory.
func WithMemoryStore() Option {
	return func(s *Service) {
		s.guestStore = config.StoreMemory
	}
}

// WithFileStore keeps one JSON document per guest under dir.
func WithFileStore(dir string) Option {
	return func(s *Service) {
		s.guestStore = config.StoreFile
		s.guestDataDir = dir
	}
}

// WithStore injects a ready guest store; it takes precedence over
// WithMemoryStore and WithFileStore.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDefaultVariant names the variant used when a submission names none.
func WithDefaultVariant(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultVariant = name
		}
	}
}

// WithThresholds sets the confidence thresholds.
func WithThresholds(t scoring.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = t
	}
}

// WithMaximumOverrides replaces per-letter maximums of the named variants.
func WithMaximumOverrides(overrides map[string]map[string]float64) Option {
	return func(s *Service) {
		s.maximums = overrides
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OptionsFromConfig translates loaded configuration into options.
func OptionsFromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithNotifierCount(cfg.NotifierCount),
		WithQueueSize(cfg.NotificationQueueSize),
		WithDedupeSize(cfg.NotificationDedupeSize),
		WithInboxSize(cfg.InboxSize),
		WithDefaultVariant(cfg.DefaultVariant),
		WithThresholds(scoring.Thresholds{High: cfg.HighConfidenceThreshold, Medium: cfg.MediumConfidenceThreshold}),
		WithMaximumOverrides(cfg.Maximums),
	}
	if cfg.GuestStore == config.StoreFile {
		opts = append(opts, WithFileStore(cfg.GuestDataDir))
	} else {
		opts = append(opts, WithMemoryStore())
	}
	return opts
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		notifierCount:  runtime.NumCPU(),
		queueSize:      1024,
		dedupeSize:     100_000,
		inboxSize:      64,
		guestStore:     config.StoreMemory,
		defaultVariant: scoring.VariantEnhanced,
		thresholds:     scoring.DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildRegistry registers the built-in variants with overrides applied.
// Override keys name variants case-insensitively.
func BuildRegistry(defaultName string, overrides map[string]map[string]float64) (*scoring.Registry, error) {
	builtins := map[string]scoring.Variant{
		scoring.VariantEnhanced: scoring.EnhancedVariant(),
		scoring.VariantBalanced: scoring.BalancedVariant(),
	}
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		v, ok := builtins[key]
		if !ok {
			return nil, fmt.Errorf("%w: maximum overrides for %q", scoring.ErrUnknownVariant, name)
		}
		v, err := v.WithMaximums(overrides[name])
		if err != nil {
			return nil, err
		}
		builtins[key] = v
	}
	return scoring.NewRegistry(defaultName, builtins[scoring.VariantEnhanced], builtins[scoring.VariantBalanced])
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting artype service...")

	registry, err := BuildRegistry(s.defaultVariant, s.maximums)
	if err != nil {
		return fmt.Errorf("build variant registry: %w", err)
	}
	engine, err := scoring.NewEngine(scoring.WithRegistry(registry), scoring.WithThresholds(s.thresholds))
	if err != nil {
		return fmt.Errorf("build scoring engine: %w", err)
	}

	if s.store == nil {
		switch s.guestStore {
		case config.StoreFile:
			fs, err := repository.NewFileStore(s.guestDataDir)
			if err != nil {
				return err
			}
			s.store = fs
			s.logger.Info(ctx, "using file guest store", logger.String("dir", s.guestDataDir))
		default:
			s.store = repository.NewMemoryStore()
			s.logger.Info(ctx, "using memory guest store")
		}
	}
	metrics.UpdateGuestRecordsTotal(s.store.Count(ctx))

	s.engine = engine
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.inbox = inbox.New(inbox.WithPerGuestLimit(s.inboxSize))
	s.pool = workerpool.NewPool(s.notifierCount, s.queue,
		workerpool.NewLogSubscriber(s.logger.Named("milestones")),
		workerpool.MetricsSubscriber{},
		s.inbox,
	)
	s.tracker = milestone.NewTracker(s.store,
		milestone.WithPublisher(newNotifier(s.deduper, s.queue, s.inbox, s.logger.Named("notifier"))),
		milestone.WithLogger(s.logger.Named("milestone")),
	)

	// Notifier goroutines outlive the start request; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "artype service started",
		logger.String("defaultVariant", registry.Default()),
		logger.Int("notifiers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains pending notifications and stops the notifiers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping artype service...")

	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "artype service stopped", logger.Int64("delivered", s.pool.Processed()))
	return err
}

func (s *Service) ready() error {
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Score runs one submission through the engine.
func (s *Service) Score(ctx context.Context, sub scoring.Submission) (scoring.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(); err != nil {
		return scoring.Result{}, err
	}

	start := time.Now()
	res, err := s.engine.Score(ctx, sub)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		reason := scoringFailure(err)
		metrics.RecordScoringError(reason)
		metrics.RecordErrorByComponent("scoring", reason)
		s.logger.Debug(ctx, "submission rejected", logger.String("reason", reason), logger.Error(err))
		return scoring.Result{}, err
	}
	metrics.RecordScore(res.Variant, res.TypeCode.String(), string(res.Strength.Confidence))
	return res, nil
}

func scoringFailure(err error) string {
	switch {
	case errors.Is(err, scoring.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, scoring.ErrUnknownVariant):
		return "unknown_variant"
	case errors.Is(err, scoring.ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, scoring.ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "unknown"
}

// Variants returns the configured variants.
func (s *Service) Variants() []scoring.Variant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ready() != nil {
		return nil
	}
	return s.engine.Variants()
}

// DefaultVariant returns the default variant name.
func (s *Service) DefaultVariant() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ready() != nil {
		return ""
	}
	return s.engine.DefaultVariant()
}

// Thresholds returns the confidence thresholds in use.
func (s *Service) Thresholds() scoring.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

// CreateGuest stores a new guest record.
func (s *Service) CreateGuest(ctx context.Context) (model.GuestRecord, error) {
	t, err := s.trackerRef()
	if err != nil {
		return model.GuestRecord{}, err
	}
	return t.Create(ctx)
}

// Guest returns a guest record.
func (s *Service) Guest(ctx context.Context, guestID string) (model.GuestRecord, error) {
	t, err := s.trackerRef()
	if err != nil {
		return model.GuestRecord{}, err
	}
	return t.Get(ctx, guestID)
}

// ClearGuest deletes the guest record and any undrained notifications.
func (s *Service) ClearGuest(ctx context.Context, guestID string) error {
	t, err := s.trackerRef()
	if err != nil {
		return err
	}
	return t.Clear(ctx, guestID)
}

// CompleteQuiz records a finished quiz for the guest.
func (s *Service) CompleteQuiz(ctx context.Context, guestID string, code dimension.TypeCode) (milestone.Update, error) {
	t, err := s.trackerRef()
	if err != nil {
		return milestone.Update{}, err
	}
	return t.CompleteQuiz(ctx, guestID, code)
}

// SaveArtwork adds an artwork to the guest's saved set.
func (s *Service) SaveArtwork(ctx context.Context, guestID, artworkID string) (milestone.Update, error) {
	t, err := s.trackerRef()
	if err != nil {
		return milestone.Update{}, err
	}
	return t.SaveArtwork(ctx, guestID, artworkID)
}

// RemoveArtwork removes an artwork from the guest's saved set.
func (s *Service) RemoveArtwork(ctx context.Context, guestID, artworkID string) (milestone.Update, error) {
	t, err := s.trackerRef()
	if err != nil {
		return milestone.Update{}, err
	}
	return t.RemoveArtwork(ctx, guestID, artworkID)
}

// StartProfile marks the guest's profile as started.
func (s *Service) StartProfile(ctx context.Context, guestID string) (milestone.Update, error) {
	t, err := s.trackerRef()
	if err != nil {
		return milestone.Update{}, err
	}
	return t.StartProfile(ctx, guestID)
}

// DrainNotifications returns and clears the guest's delivered notifications.
func (s *Service) DrainNotifications(ctx context.Context, guestID string) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.inbox.Drain(strings.TrimSpace(guestID)), nil
}

func (s *Service) trackerRef() (*milestone.Tracker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.tracker, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"notifierCount": s.notifierCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"guestStore":    s.guestStore,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		guests := s.store.Count(ctx)

		stats["defaultVariant"] = s.engine.DefaultVariant()
		stats["queueLength"] = queueLen
		stats["totalGuests"] = guests
		stats["dedupeEntries"] = s.deduper.Size()
		stats["notificationsDelivered"] = s.pool.Processed()
		stats["pendingInbox"] = s.inbox.Pending()
		stats["staleNotifications"] = s.inbox.Stale()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateGuestRecordsTotal(guests)
		metrics.UpdateWorkerActiveCount(s.pool.Size())
	}
	return stats
}
