// Package metrics implements behavioral event ingest and the derived stats
// computation: totals, per-type and per-variant counts, the variant×type
// cross-tab, funnel conversion rates and the trailing-24h hourly timeline.
package metrics

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/splitlab/internal/domain"
	"github.com/rpattn/splitlab/internal/repository"
)

// timelineWindow is the trailing window for the hourly timeline.
const timelineWindow = 24 * time.Hour

// Service ingests events and computes aggregate stats.
type Service struct {
	events repository.EventRepository
}

// NewService wires the metrics service.
func NewService(events repository.EventRepository) *Service {
	return &Service{events: events}
}

// RecordRequest carries one event to ingest. Only visitor_id and event_type
// are required; everything else is free-form context.
type RecordRequest struct {
	VisitorID    string         `json:"visitor_id"`
	ExperimentID *uuid.UUID     `json:"experiment_id"`
	Variant      *string        `json:"variant"`
	EventType    string         `json:"event_type"`
	EventName    *string        `json:"event_name"`
	Metadata     map[string]any `json:"metadata"`
	PageURL      *string        `json:"page_url"`
	UserAgent    *string        `json:"user_agent"`
}

func (r RecordRequest) toEvent() domain.Event {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return domain.Event{
		ID:           uuid.New(),
		VisitorID:    r.VisitorID,
		ExperimentID: r.ExperimentID,
		Variant:      r.Variant,
		EventType:    r.EventType,
		EventName:    r.EventName,
		Metadata:     metadata,
		PageURL:      r.PageURL,
		UserAgent:    r.UserAgent,
		CreatedAt:    time.Now().UTC(),
	}
}

// Record validates and appends a single event.
func (s *Service) Record(ctx context.Context, req RecordRequest) (domain.Event, error) {
	event := req.toEvent()
	if err := event.Validate(); err != nil {
		return domain.Event{}, err
	}

	created, err := s.events.Create(ctx, event)
	if err != nil {
		return domain.Event{}, err
	}

	log.Printf("[METRICS] event recorded: %s visitor=%s variant=%v", created.EventType, created.VisitorID, created.Variant)
	return created, nil
}

// RecordBatch validates every event before any write, then appends them all
// in a single transaction. Returns the number of rows written.
func (s *Service) RecordBatch(ctx context.Context, reqs []RecordRequest) (int, error) {
	events := make([]domain.Event, len(reqs))
	for i, req := range reqs {
		event := req.toEvent()
		if err := event.Validate(); err != nil {
			return 0, err
		}
		events[i] = event
	}

	count, err := s.events.CreateBatch(ctx, events)
	if err != nil {
		return 0, err
	}

	log.Printf("[METRICS] batch recorded: %d events", count)
	return count, nil
}

// List returns stored events matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter domain.EventFilter, limit, offset int) ([]domain.Event, error) {
	return s.events.List(ctx, filter, limit, offset)
}

// Stats computes the full aggregate view, optionally scoped to one
// experiment. The sub-queries are independent reads: the numbers are not
// guaranteed to observe a single snapshot while writes are in flight. Any
// store error fails the whole call; no partial response is returned.
func (s *Service) Stats(ctx context.Context, experimentID *uuid.UUID) (domain.StatsResponse, error) {
	base := domain.EventFilter{ExperimentID: experimentID}

	totalEvents, err := s.events.CountEvents(ctx, base)
	if err != nil {
		return domain.StatsResponse{}, err
	}

	uniqueVisitors, err := s.events.CountDistinctVisitors(ctx, base)
	if err != nil {
		return domain.StatsResponse{}, err
	}

	eventsByType, err := s.events.CountByType(ctx, base)
	if err != nil {
		return domain.StatsResponse{}, err
	}

	eventsByVariant, err := s.events.CountByVariant(ctx, base)
	if err != nil {
		return domain.StatsResponse{}, err
	}

	breakdown, err := s.events.VariantBreakdown(ctx, base)
	if err != nil {
		return domain.StatsResponse{}, err
	}

	conversion := make(map[string]domain.ConversionStats, len(eventsByVariant))
	for variant := range eventsByVariant {
		stats, convErr := s.conversionFor(ctx, base.WithVariant(variant))
		if convErr != nil {
			return domain.StatsResponse{}, convErr
		}
		conversion[variant] = stats
	}

	// The timeline is a fixed global view over the trailing window; it does
	// not honor the experiment filter.
	timeline, err := s.events.Timeline(ctx, timelineWindow)
	if err != nil {
		return domain.StatsResponse{}, err
	}

	return domain.StatsResponse{
		TotalEvents:         totalEvents,
		UniqueVisitors:      uniqueVisitors,
		EventsByType:        eventsByType,
		EventsByVariant:     eventsByVariant,
		VariantBreakdown:    breakdown,
		ConversionByVariant: conversion,
		Timeline:            timeline,
	}, nil
}

// conversionFor counts distinct visitors per funnel step for one variant and
// derives the rates.
func (s *Service) conversionFor(ctx context.Context, filter domain.EventFilter) (domain.ConversionStats, error) {
	views, err := s.events.CountDistinctVisitors(ctx, filter.WithEventType(domain.EventTypePageView))
	if err != nil {
		return domain.ConversionStats{}, err
	}
	clicks, err := s.events.CountDistinctVisitors(ctx, filter.WithEventType(domain.EventTypeClick))
	if err != nil {
		return domain.ConversionStats{}, err
	}
	submits, err := s.events.CountDistinctVisitors(ctx, filter.WithEventType(domain.EventTypeFormSubmit))
	if err != nil {
		return domain.ConversionStats{}, err
	}

	return domain.ConversionStats{
		Views:      views,
		Clicks:     clicks,
		Submits:    submits,
		ClickRate:  rate(clicks, views),
		SubmitRate: rate(submits, views),
	}, nil
}

// rate is numerator/views as a percentage rounded to one decimal; 0 when
// there are no views.
func rate(numerator, views int64) float64 {
	if views == 0 {
		return 0
	}
	return math.Round(float64(numerator)/float64(views)*1000) / 10
}
