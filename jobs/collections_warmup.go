package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/odyssey-crm/internal/jobs"
	"github.com/odyssey-erp/odyssey-crm/internal/remote"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	warmupFanout        = 3
	warmupEntityTimeout = 20 * time.Second
)

// SourceResolver returns the remote source of an entity.
type SourceResolver interface {
	Source(entity string) (*remote.Source, error)
}

// CollectionsWarmupJob loads list collections through the collection cache so
// the first page view of each entity is served from Redis.
type CollectionsWarmupJob struct {
	Sources  SourceResolver
	Entities []string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewCollectionsWarmupJob wires dependencies for the warmup handler.
func NewCollectionsWarmupJob(sources SourceResolver, entities []string, logger *slog.Logger, metrics *jobmetrics.Metrics) *CollectionsWarmupJob {
	return &CollectionsWarmupJob{
		Sources:  sources,
		Entities: entities,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes collection warmup tasks.
func (j *CollectionsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sources == nil {
		return errors.New("collections warmup: handler not configured")
	}
	var payload CollectionsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	entities := payload.Entities
	if len(entities) == 0 {
		entities = j.Entities
	}
	for _, entity := range entities {
		if !slices.Contains(j.Entities, entity) {
			j.logger().Warn("skip unknown entity", slog.String("entity", entity))
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskCollectionsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("entities", len(entities)), slog.Bool("force", payload.Force))
	logger.Info("starting collections warmup")
	start := j.now()

	var warmed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupFanout)
	for _, entity := range entities {
		g.Go(func() error {
			rows, err := j.warm(gctx, entity, payload.Force)
			if err != nil {
				logger.Error("warm collection", slog.String("entity", entity), slog.Any("error", err))
				return fmt.Errorf("warm %s: %w", entity, err)
			}
			j.metrics().AddWarmed(entity, rows)
			warmed.Add(1)
			return nil
		})
	}
	resultErr = g.Wait()
	if resultErr != nil {
		return resultErr
	}

	logger.Info("completed collections warmup", slog.Int64("warmed", warmed.Load()), slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *CollectionsWarmupJob) warm(ctx context.Context, entity string, force bool) (int, error) {
	src, err := j.Sources.Source(entity)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, warmupEntityTimeout)
	defer cancel()
	if force {
		if err := src.Cache.Bump(ctx, entity); err != nil {
			return 0, err
		}
	}
	rows, err := src.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// HandleInvalidate processes collection invalidation tasks.
func (j *CollectionsWarmupJob) HandleInvalidate(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sources == nil {
		return errors.New("collection invalidate: handler not configured")
	}
	var payload CollectionInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Entity == "" {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskCollectionInvalidate)
	src, err := j.Sources.Source(payload.Entity)
	if err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	err = src.Cache.Bump(ctx, payload.Entity)
	if err == nil {
		j.logger().Info("collection invalidated", slog.String("entity", payload.Entity))
	}
	return tracker.End(err)
}

// Registrations returns the worker handlers of the job.
func (j *CollectionsWarmupJob) Registrations() []TaskHandler {
	return []TaskHandler{
		{Type: TaskCollectionsWarmup, Handler: j.Handle},
		{Type: TaskCollectionInvalidate, Handler: j.HandleInvalidate},
	}
}

func (j *CollectionsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCollectionsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCollectionsWarmup))
}

func (j *CollectionsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CollectionsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
