package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/pkg/queue"
)

func TestPublisherEnqueuesLessonEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := queue.NewQueue(client, zap.NewNop())

	ev := models.LessonEvent{
		Type:      models.LessonEventCompleted,
		SessionID: uuid.New(),
		CourseID:  "ai-fundamentals",
		LessonID:  "lesson-3",
		At:        time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	NewPublisher(q, zap.NewNop()).Publish(ev)

	job, key, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queue.QueueLessonEvents, key)

	var p queue.LessonEventPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, ev, FromPayload(p))
}

func TestPublisherSwallowsQueueErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	NewPublisher(queue.NewQueue(client, nil), nil).Publish(models.LessonEvent{Type: models.LessonEventStarted})
}
