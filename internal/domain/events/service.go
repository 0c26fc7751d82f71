package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/auth"
)

// Service is deliberately thin: the access decisions happen in the gate
// middleware before these methods run. The service's remaining security
// duty is recording RESOURCE_MUTATED audit entries with before/after
// snapshots.
type Service struct {
	repo     Repository
	recorder *audit.Recorder
	logger   zerolog.Logger
}

func NewService(repo Repository, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		logger:   logger.With().Str("component", "events").Logger(),
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int32) ([]Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) Create(ctx context.Context, actor auth.Identity, params UpdateParams, ip string) (*Event, error) {
	event, err := s.repo.Create(ctx, actor.ID, params)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	newValues, _ := json.Marshal(event)
	s.recorder.Record(ctx, audit.Entry{
		ActorID:      &actor.ID,
		ActorRole:    actor.Role,
		Action:       audit.ActionResourceMutated,
		ResourceType: "event",
		ResourceID:   &event.ID,
		ResourceName: event.Name,
		Outcome:      audit.OutcomeSuccess,
		IPAddress:    ip,
		NewValues:    newValues,
		Details:      "event created",
	})
	return event, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Identity, id int64, params UpdateParams, ip string) (*Event, error) {
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	oldValues, _ := json.Marshal(before)
	newValues, _ := json.Marshal(updated)
	s.recorder.Record(ctx, audit.Entry{
		ActorID:      &actor.ID,
		ActorRole:    actor.Role,
		Action:       audit.ActionResourceMutated,
		ResourceType: "event",
		ResourceID:   &updated.ID,
		ResourceName: updated.Name,
		Outcome:      audit.OutcomeSuccess,
		IPAddress:    ip,
		OldValues:    oldValues,
		NewValues:    newValues,
		Details:      "event updated",
	})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Identity, id int64, ip string) error {
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	oldValues, _ := json.Marshal(before)
	s.recorder.Record(ctx, audit.Entry{
		ActorID:      &actor.ID,
		ActorRole:    actor.Role,
		Action:       audit.ActionResourceMutated,
		ResourceType: "event",
		ResourceID:   &before.ID,
		ResourceName: before.Name,
		Outcome:      audit.OutcomeSuccess,
		IPAddress:    ip,
		OldValues:    oldValues,
		Details:      "event deleted",
	})
	return nil
}
