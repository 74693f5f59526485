package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/repositories"
)

type EventService interface {
	CreateEvent(ctx context.Context, input EventInput) (*models.Event, error)
	GetEventByID(ctx context.Context, id int) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEvent(ctx context.Context, id int, input EventInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, id int) error
}

type EventInput struct {
	Title    string    `json:"title"`
	Location *string   `json:"location"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type eventService struct {
	eventRepo repositories.EventRepository
}

func NewEventService(eventRepo repositories.EventRepository) EventService {
	return &eventService{eventRepo: eventRepo}
}

func (s *eventService) validate(input EventInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return ErrEventTitleRequired
	}
	if input.EndsAt.Before(input.StartsAt) {
		return ErrEventInvalidDateRange
	}
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, input EventInput) (*models.Event, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	event := &models.Event{
		Title:    strings.TrimSpace(input.Title),
		Location: input.Location,
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetEventByID(ctx context.Context, id int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event by id %d: %w", id, err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, id int, input EventInput) (*models.Event, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:       id,
		Title:    strings.TrimSpace(input.Title),
		Location: input.Location,
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
	}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id int) error {
	err := s.eventRepo.Delete(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrEventNotFound):
			return ErrEventNotFound
		case errors.Is(err, repositories.ErrEventInUse):
			return ErrEventInUse
		default:
			return err
		}
	}
	return nil
}
