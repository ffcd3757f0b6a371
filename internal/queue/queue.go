// Package queue wraps the asynq task queue used to move notification
// fan-out off the reconciler's critical path.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"flashmeet/internal/config"
	"flashmeet/internal/logger"
)

// TaskChatOpenNotify is the task type enqueued by the window-opener
// for every meetup it transitions into chatOpen.
const TaskChatOpenNotify = "notify:chat_open"

// ChatOpenPayload is the JSON payload of a TaskChatOpenNotify task.
type ChatOpenPayload struct {
	MeetupID string `json:"meetupId"`
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// Client enqueues background tasks.
type Client struct {
	inner *asynq.Client
}

// NewClient creates a queue client backed by the configured redis.
func NewClient(cfg *config.Config) *Client {
	return &Client{inner: asynq.NewClient(redisOpt(cfg))}
}

// EnqueueChatOpenNotify schedules the fan-out for a just-opened
// meetup. Uniqueness over the chat window keeps overlapping opener
// ticks from producing duplicate notifications.
func (c *Client) EnqueueChatOpenNotify(meetupID string) error {
	payload, err := json.Marshal(ChatOpenPayload{MeetupID: meetupID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskChatOpenNotify, payload)
	_, err = c.inner.Enqueue(task,
		asynq.Queue("notify"),
		asynq.MaxRetry(3),
		asynq.Unique(20*time.Minute),
	)
	return err
}

// Close releases the underlying redis connections.
func (c *Client) Close() error {
	return c.inner.Close()
}

// Handler processes one task.
type Handler func(ctx context.Context, payload []byte) error

// Server runs the background worker.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewServer creates a worker consuming the notify queue.
func NewServer(cfg *config.Config) *Server {
	srv := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
		Queues:      map[string]int{"notify": 1, "default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warningf("task %s failed: %v", task.Type(), err)
		}),
	})
	return &Server{server: srv, mux: asynq.NewServeMux()}
}

// Register binds a handler to a task type.
func (s *Server) Register(taskType string, h Handler) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return h(ctx, t.Payload())
	})
}

// Start launches the worker in the background.
func (s *Server) Start() error {
	return s.server.Start(s.mux)
}

// Shutdown drains in-flight tasks and stops the worker.
func (s *Server) Shutdown() {
	s.server.Shutdown()
}
