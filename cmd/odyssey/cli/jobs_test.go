package cli

import (
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/jobs"
)

func TestBuildTask(t *testing.T) {
	task, err := BuildTask(jobs.TaskCollectionsWarmup, TriggerOptions{Entities: []string{"roles"}, Force: true})
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskCollectionsWarmup, task.Type())
	var warm jobs.CollectionsWarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &warm))
	assert.Equal(t, jobs.CollectionsWarmupPayload{Entities: []string{"roles"}, Force: true}, warm)

	task, err = BuildTask(jobs.TaskCollectionInvalidate, TriggerOptions{Entities: []string{"teams"}})
	require.NoError(t, err)
	var inv jobs.CollectionInvalidatePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &inv))
	assert.Equal(t, "teams", inv.Entity)

	_, err = BuildTask(jobs.TaskCollectionInvalidate, TriggerOptions{})
	assert.Error(t, err)
	_, err = BuildTask("finance:gl_integrity", TriggerOptions{})
	assert.Error(t, err)
}

func TestJobsCLIRequiresRedis(t *testing.T) {
	_, err := NewJobsCLI(asynq.RedisClientOpt{})
	assert.Error(t, err)

	var c *JobsCLI
	_, err = c.InspectQueue(t.Context())
	assert.Error(t, err)
}
