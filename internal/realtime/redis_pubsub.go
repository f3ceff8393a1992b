package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "playback:"
	publishTimeout = 5 * time.Second
)

// sessionEnvelope is the message published to Redis for cross-instance broadcast.
type sessionEnvelope struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin"`
	At     int64           `json:"at"`
}

type sessionHandler func(event string, payload []byte)

// RedisPubSub implements RedisPublisher and RedisSubscriber. One pattern subscription on
// playback:* per instance feeds every session handler registered here.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
	origin string

	mu       sync.Mutex
	handlers map[uuid.UUID]map[uint64]sessionHandler
	nextID   uint64
	stop     context.CancelFunc
	stopped  chan struct{}
}

// NewRedisPubSub creates a Redis pub/sub bridge for session events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{
		client:   client,
		logger:   logger,
		origin:   uuid.NewString(),
		handlers: make(map[uuid.UUID]map[uint64]sessionHandler),
	}
}

func channelFor(sessionID uuid.UUID) string {
	return channelPrefix + sessionID.String()
}

// PublishSessionEvent publishes an event to the session's Redis channel.
func (r *RedisPubSub) PublishSessionEvent(sessionID uuid.UUID, event string, payload []byte) error {
	body, err := json.Marshal(sessionEnvelope{Event: event, Data: payload, Origin: r.origin, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, channelFor(sessionID), body).Err()
}

// SubscribeSession registers handler for a session's events. The returned cancel removes it.
func (r *RedisPubSub) SubscribeSession(sessionID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == nil {
		if err := r.startLocked(); err != nil {
			return nil, err
		}
	}
	r.nextID++
	id := r.nextID
	if r.handlers[sessionID] == nil {
		r.handlers[sessionID] = make(map[uint64]sessionHandler)
	}
	r.handlers[sessionID][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.handlers[sessionID], id)
			if len(r.handlers[sessionID]) == 0 {
				delete(r.handlers, sessionID)
			}
		})
	}, nil
}

// Close stops the pattern subscription.
func (r *RedisPubSub) Close() {
	r.mu.Lock()
	stop, stopped := r.stop, r.stopped
	r.stop, r.stopped = nil, nil
	r.mu.Unlock()
	if stop != nil {
		stop()
		<-stopped
	}
}

func (r *RedisPubSub) startLocked() error {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	r.stop = cancel
	r.stopped = make(chan struct{})
	go r.loop(ctx, pubsub, r.stopped)
	return nil
}

func (r *RedisPubSub) loop(ctx context.Context, pubsub *redis.PubSub, stopped chan struct{}) {
	defer close(stopped)
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.dispatch(msg)
		}
	}
}

func (r *RedisPubSub) dispatch(msg *redis.Message) {
	sessionID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelPrefix))
	if err != nil {
		r.logger.Debug("drop event on unknown channel", zap.String("channel", msg.Channel))
		return
	}
	var env sessionEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		r.logger.Debug("drop malformed session event", zap.String("channel", msg.Channel), zap.Error(err))
		return
	}
	r.mu.Lock()
	handlers := make([]sessionHandler, 0, len(r.handlers[sessionID]))
	for _, h := range r.handlers[sessionID] {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()
	for _, h := range handlers {
		h(env.Event, env.Data)
	}
}
