// Package queue consumes trigger messages from a Redis list. External
// systems push JSON payloads; each message becomes one dispatch. A
// message may name its trigger and entity type, anything else arrives
// as manual.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/protocol"
)

const (
	popTimeout     = 1 * time.Second
	connectTimeout = 5 * time.Second
	retryBackoff   = 1 * time.Second
)

type Source struct {
	Addr     string
	Password string
	DB       int
	Queue    string

	client   redis.UniversalClient
	callback protocol.SourceCallback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewSource(config map[string]any, logger *slog.Logger) (*Source, error) {
	addr, _ := config["addr"].(string)
	if addr == "" {
		addr = "localhost:6379"
	}

	password, _ := config["password"].(string)
	queue, _ := config["queue"].(string)

	db := 0
	if raw, ok := config["db"].(string); ok && raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &db); err != nil {
			return nil, fmt.Errorf("invalid db value '%s': %w", raw, err)
		}
	}

	source := &Source{
		Addr:     addr,
		Password: password,
		DB:       db,
		Queue:    queue,
		stopCh:   make(chan struct{}),
		logger:   logger.With("module", "queue_source", "queue", queue),
	}

	if err := source.Validate(); err != nil {
		return nil, err
	}

	return source, nil
}

func (s *Source) Validate() error {
	if s.Queue == "" {
		return errors.New("queue source requires a queue name")
	}

	return nil
}

func (s *Source) Start(ctx context.Context, callback protocol.SourceCallback) error {
	s.callback = callback

	s.client = redis.NewClient(&redis.Options{
		Addr:     s.Addr,
		Password: s.Password,
		DB:       s.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := s.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	s.logger.InfoContext(ctx, "Queue source started", "addr", s.Addr, "db", s.DB)

	s.wg.Add(1)

	go s.consume(ctx)

	return nil
}

func (s *Source) consume(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
			if err := s.processMessage(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Error processing queue message", "error", err)
				time.Sleep(retryBackoff)
			}
		}
	}
}

func (s *Source) processMessage(ctx context.Context) error {
	result, err := s.client.BLPop(ctx, popTimeout, s.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop message: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	triggerType, entityType, payload := decodeMessage(result[1])

	if err := s.callback(ctx, triggerType, entityType, payload); err != nil {
		s.logger.ErrorContext(ctx, "Dispatch failed for queue message", "error", err)
	}

	return nil
}

// decodeMessage interprets one queue entry. Non-JSON messages become a
// manual trigger with the raw text under "message".
func decodeMessage(message string) (models.TriggerType, models.EntityType, map[string]any) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		return models.TriggerManual, "", map[string]any{
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
	}

	triggerType := models.TriggerManual
	if raw, ok := payload["trigger_type"].(string); ok && raw != "" {
		triggerType = models.TriggerType(raw)
	}

	entityType := models.EntityType("")
	if raw, ok := payload["entity_type"].(string); ok {
		entityType = models.EntityType(raw)
	}

	if payload["timestamp"] == nil {
		payload["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	return triggerType, entityType, payload
}

func (s *Source) Stop(ctx context.Context) error {
	close(s.stopCh)
	s.wg.Wait()

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.ErrorContext(ctx, "Error closing redis client", "error", err)
		}
	}

	s.logger.InfoContext(ctx, "Queue source stopped")

	return nil
}
