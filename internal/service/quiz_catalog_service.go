package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// QuizSource loads quiz definitions from the catalog of record.
type QuizSource interface {
	GetDefinition(ctx context.Context, id uuid.UUID) (*model.QuizDefinition, error)
}

// QuizCatalogService serves quiz definitions through a Redis read-through
// cache. It is only consulted at session start; running sessions read their
// own frozen snapshot.
type QuizCatalogService struct {
	source QuizSource
	rdb    redis.UniversalClient
	ttl    time.Duration
	log    zerolog.Logger
}

// NewQuizCatalogService creates a new QuizCatalogService. A nil rdb disables caching.
func NewQuizCatalogService(source QuizSource, rdb redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *QuizCatalogService {
	return &QuizCatalogService{
		source: source,
		rdb:    rdb,
		ttl:    ttl,
		log:    log.With().Str("component", "quiz_catalog").Logger(),
	}
}

// Get returns the definition of quiz id, questions and correct answers included.
func (s *QuizCatalogService) Get(ctx context.Context, id uuid.UUID) (*model.QuizDefinition, error) {
	if s.rdb != nil {
		if q, err := s.cached(ctx, id); err == nil {
			metrics.QuizCacheLookups.WithLabelValues("hit").Inc()
			return q, nil
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("Quiz cache read failed, falling back to database")
		}
		metrics.QuizCacheLookups.WithLabelValues("miss").Inc()
	}

	q, err := s.source.GetDefinition(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if err := s.Warm(ctx, q); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("Quiz cache write failed")
		}
	}
	return q, nil
}

func (s *QuizCatalogService) cached(ctx context.Context, id uuid.UUID) (*model.QuizDefinition, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.QuizDefinitionKey(id.String())).Bytes()
	if err != nil {
		return nil, err
	}
	q := &model.QuizDefinition{}
	if err := json.Unmarshal(raw, q); err != nil {
		return nil, fmt.Errorf("decode cached quiz: %w", err)
	}
	return q, nil
}

// Warm stores q in the cache.
func (s *QuizCatalogService) Warm(ctx context.Context, q *model.QuizDefinition) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.QuizDefinitionKey(q.ID.String()), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("quiz_id", q.ID.String()).
		Int("questions", len(q.Questions)).
		Msg("Cache warmed")
	return nil
}
