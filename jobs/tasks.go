package jobs

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCollectionsWarmup prefetches list collections into the cache.
	TaskCollectionsWarmup = "listview:collections_warmup"
	// TaskCollectionInvalidate drops the cached collection of one entity.
	TaskCollectionInvalidate = "listview:collection_invalidate"
)

// CollectionsWarmupPayload selects the entities to warm. An empty list warms
// every known entity; Force invalidates before fetching.
type CollectionsWarmupPayload struct {
	Entities []string `json:"entities,omitempty"`
	Force    bool     `json:"force"`
}

// NewCollectionsWarmupTask constructs an Asynq task.
func NewCollectionsWarmupTask(payload CollectionsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCollectionsWarmup, data, asynq.Queue(QueueDefault)), nil
}

// CollectionInvalidatePayload names the entity whose cache is dropped.
type CollectionInvalidatePayload struct {
	Entity string `json:"entity"`
}

// NewCollectionInvalidateTask constructs an Asynq task.
func NewCollectionInvalidateTask(entity string) (*asynq.Task, error) {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return nil, errors.New("jobs: entity required")
	}
	data, err := json.Marshal(CollectionInvalidatePayload{Entity: entity})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCollectionInvalidate, data, asynq.Queue(QueueDefault)), nil
}
