package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/splitlab/internal/domain"
)

// funnelKey identifies one distinct-visitor count in the stub.
type funnelKey struct {
	variant   string
	eventType string
}

// stubEventRepo serves canned aggregates and records what it was asked.
type stubEventRepo struct {
	created      []domain.Event
	batchCalls   int
	listFilter   domain.EventFilter
	statsErr     error
	totalEvents  int64
	visitors     int64
	byType       map[string]int64
	byVariant    map[string]int64
	breakdown    []domain.BreakdownRow
	funnelCounts map[funnelKey]int64
	timeline     []domain.TimelineRow
	window       time.Duration
}

func (s *stubEventRepo) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	s.created = append(s.created, event)
	return event, nil
}

func (s *stubEventRepo) CreateBatch(ctx context.Context, events []domain.Event) (int, error) {
	s.batchCalls++
	s.created = append(s.created, events...)
	return len(events), nil
}

func (s *stubEventRepo) List(ctx context.Context, filter domain.EventFilter, limit, offset int) ([]domain.Event, error) {
	s.listFilter = filter
	return s.created, nil
}

func (s *stubEventRepo) CountEvents(ctx context.Context, filter domain.EventFilter) (int64, error) {
	if s.statsErr != nil {
		return 0, s.statsErr
	}
	return s.totalEvents, nil
}

func (s *stubEventRepo) CountDistinctVisitors(ctx context.Context, filter domain.EventFilter) (int64, error) {
	if s.statsErr != nil {
		return 0, s.statsErr
	}
	if filter.Variant == nil && filter.EventType == nil {
		return s.visitors, nil
	}
	key := funnelKey{}
	if filter.Variant != nil {
		key.variant = *filter.Variant
	}
	if filter.EventType != nil {
		key.eventType = *filter.EventType
	}
	return s.funnelCounts[key], nil
}

func (s *stubEventRepo) CountByType(ctx context.Context, filter domain.EventFilter) (map[string]int64, error) {
	return s.byType, nil
}

func (s *stubEventRepo) CountByVariant(ctx context.Context, filter domain.EventFilter) (map[string]int64, error) {
	return s.byVariant, nil
}

func (s *stubEventRepo) VariantBreakdown(ctx context.Context, filter domain.EventFilter) ([]domain.BreakdownRow, error) {
	return s.breakdown, nil
}

func (s *stubEventRepo) Timeline(ctx context.Context, window time.Duration) ([]domain.TimelineRow, error) {
	s.window = window
	return s.timeline, nil
}

func TestRecordRequiresVisitorAndType(t *testing.T) {
	repo := &stubEventRepo{}
	service := NewService(repo)

	_, err := service.Record(context.Background(), RecordRequest{EventType: "click"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing visitor_id: expected ErrValidation, got %v", err)
	}

	_, err = service.Record(context.Background(), RecordRequest{VisitorID: "v1"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing event_type: expected ErrValidation, got %v", err)
	}

	if len(repo.created) != 0 {
		t.Fatalf("invalid events must not be written, got %d rows", len(repo.created))
	}
}

func TestRecordFillsDefaults(t *testing.T) {
	repo := &stubEventRepo{}
	service := NewService(repo)

	created, err := service.Record(context.Background(), RecordRequest{VisitorID: "v1", EventType: "page_view"})
	if err != nil {
		t.Fatalf("record returned error: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("record must assign an id")
	}
	if created.Metadata == nil {
		t.Fatalf("record must default metadata to an empty map")
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("record must stamp created_at")
	}
}

func TestRecordBatchValidatesBeforeAnyWrite(t *testing.T) {
	repo := &stubEventRepo{}
	service := NewService(repo)

	reqs := []RecordRequest{
		{VisitorID: "v1", EventType: "click"},
		{VisitorID: "", EventType: "click"},
	}

	if _, err := service.RecordBatch(context.Background(), reqs); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if repo.batchCalls != 0 {
		t.Fatalf("batch with an invalid event must not reach the store")
	}
}

func TestRecordBatchReportsWrittenCount(t *testing.T) {
	repo := &stubEventRepo{}
	service := NewService(repo)

	reqs := []RecordRequest{
		{VisitorID: "v1", EventType: "click"},
		{VisitorID: "v2", EventType: "page_view"},
		{VisitorID: "v3", EventType: "form_submit"},
	}

	count, err := service.RecordBatch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("batch returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows written, got %d", count)
	}
	if repo.batchCalls != 1 {
		t.Fatalf("expected a single batch call, got %d", repo.batchCalls)
	}
}

func TestStatsFunnelArithmetic(t *testing.T) {
	repo := &stubEventRepo{
		totalEvents: 19,
		visitors:    12,
		byType:      map[string]int64{"page_view": 15, "click": 3, "form_submit": 1},
		byVariant:   map[string]int64{"A": 13, "B": 6},
		funnelCounts: map[funnelKey]int64{
			{"A", domain.EventTypePageView}:   10,
			{"A", domain.EventTypeClick}:      3,
			{"B", domain.EventTypePageView}:   5,
			{"B", domain.EventTypeFormSubmit}: 1,
		},
	}
	service := NewService(repo)

	stats, err := service.Stats(context.Background(), nil)
	if err != nil {
		t.Fatalf("stats returned error: %v", err)
	}

	a := stats.ConversionByVariant["A"]
	if a.Views != 10 || a.Clicks != 3 || a.Submits != 0 {
		t.Fatalf("variant A counts wrong: %+v", a)
	}
	if a.ClickRate != 30.0 {
		t.Fatalf("variant A click_rate = %v, want 30.0", a.ClickRate)
	}
	if a.SubmitRate != 0.0 {
		t.Fatalf("variant A submit_rate = %v, want 0.0", a.SubmitRate)
	}

	b := stats.ConversionByVariant["B"]
	if b.Views != 5 {
		t.Fatalf("variant B views = %d, want 5", b.Views)
	}
	if b.SubmitRate != 20.0 {
		t.Fatalf("variant B submit_rate = %v, want 20.0", b.SubmitRate)
	}

	if stats.TotalEvents != 19 || stats.UniqueVisitors != 12 {
		t.Fatalf("totals wrong: %+v", stats)
	}
}

func TestStatsZeroViewsYieldsZeroRates(t *testing.T) {
	repo := &stubEventRepo{
		byVariant: map[string]int64{"C": 4},
		funnelCounts: map[funnelKey]int64{
			{"C", domain.EventTypeClick}: 4,
		},
	}
	service := NewService(repo)

	stats, err := service.Stats(context.Background(), nil)
	if err != nil {
		t.Fatalf("stats returned error: %v", err)
	}

	c := stats.ConversionByVariant["C"]
	if c.ClickRate != 0 || c.SubmitRate != 0 {
		t.Fatalf("zero views must yield zero rates, got %+v", c)
	}
}

func TestStatsFailsWholeCallOnStoreError(t *testing.T) {
	repo := &stubEventRepo{statsErr: errors.New("connection reset")}
	service := NewService(repo)

	if _, err := service.Stats(context.Background(), nil); err == nil {
		t.Fatalf("expected stats to fail when the store fails")
	}
}

func TestStatsTimelineUsesTrailingDayWindow(t *testing.T) {
	repo := &stubEventRepo{}
	service := NewService(repo)

	if _, err := service.Stats(context.Background(), nil); err != nil {
		t.Fatalf("stats returned error: %v", err)
	}
	if repo.window != 24*time.Hour {
		t.Fatalf("timeline window = %v, want 24h", repo.window)
	}
}

func TestRateRounding(t *testing.T) {
	cases := []struct {
		numerator int64
		views     int64
		want      float64
	}{
		{3, 10, 30.0},
		{1, 5, 20.0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{0, 10, 0.0},
		{5, 0, 0.0},
	}
	for _, tc := range cases {
		if got := rate(tc.numerator, tc.views); got != tc.want {
			t.Fatalf("rate(%d, %d) = %v, want %v", tc.numerator, tc.views, got, tc.want)
		}
	}
}
