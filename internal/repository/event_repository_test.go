package repository

import (
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/splitlab/internal/domain"
)

func TestWhereClauseEmptyFilter(t *testing.T) {
	where, args := whereClause(domain.EventFilter{})
	if where != "" {
		t.Fatalf("empty filter produced clause %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("empty filter produced args %v", args)
	}
}

func TestWhereClauseCombinesByConjunction(t *testing.T) {
	id := uuid.New()
	variant := "control"
	eventType := "click"
	filter := domain.EventFilter{
		ExperimentID: &id,
		Variant:      &variant,
		EventType:    &eventType,
	}

	where, args := whereClause(filter)
	if where != " WHERE experiment_id = $1 AND variant = $2 AND event_type = $3" {
		t.Fatalf("unexpected clause %q", where)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}
	if args[0] != id || args[1] != "control" || args[2] != "click" {
		t.Fatalf("args out of order: %v", args)
	}
}

func TestWhereClauseSkipsUnsetFields(t *testing.T) {
	eventType := "page_view"
	where, args := whereClause(domain.EventFilter{EventType: &eventType})
	if where != " WHERE event_type = $1" {
		t.Fatalf("unexpected clause %q", where)
	}
	if len(args) != 1 || args[0] != "page_view" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestWhereClauseAppendsExtraConditions(t *testing.T) {
	variant := "control"
	where, args := whereClause(domain.EventFilter{Variant: &variant}, "variant IS NOT NULL")
	if where != " WHERE variant = $1 AND variant IS NOT NULL" {
		t.Fatalf("unexpected clause %q", where)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args %v", args)
	}

	where, args = whereClause(domain.EventFilter{}, "variant IS NOT NULL")
	if where != " WHERE variant IS NOT NULL" {
		t.Fatalf("unexpected clause %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("extra conditions must not add args, got %v", args)
	}
}
