package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ExportStats renders the stats response as an xlsx workbook, one sheet per
// aggregate. Map-backed sheets are written in sorted key order so repeated
// exports of the same data are identical.
func (s *Service) ExportStats(ctx context.Context, experimentID *uuid.UUID) (*excelize.File, error) {
	stats, err := s.Stats(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Overview")

	if err := writeRows(f, "Overview", [][]any{
		{"metric", "value"},
		{"total_events", stats.TotalEvents},
		{"unique_visitors", stats.UniqueVisitors},
	}); err != nil {
		return nil, err
	}

	if err := writeCountSheet(f, "ByType", "event_type", stats.EventsByType); err != nil {
		return nil, err
	}
	if err := writeCountSheet(f, "ByVariant", "variant", stats.EventsByVariant); err != nil {
		return nil, err
	}

	breakdownRows := [][]any{{"variant", "event_type", "count"}}
	for _, row := range stats.VariantBreakdown {
		breakdownRows = append(breakdownRows, []any{row.Variant, row.EventType, row.Count})
	}
	if err := addSheet(f, "Breakdown", breakdownRows); err != nil {
		return nil, err
	}

	conversionRows := [][]any{{"variant", "views", "clicks", "submissions", "click_rate", "submit_rate"}}
	for _, variant := range sortedKeys(stats.ConversionByVariant) {
		c := stats.ConversionByVariant[variant]
		conversionRows = append(conversionRows, []any{variant, c.Views, c.Clicks, c.Submits, c.ClickRate, c.SubmitRate})
	}
	if err := addSheet(f, "Conversion", conversionRows); err != nil {
		return nil, err
	}

	timelineRows := [][]any{{"hour", "variant", "event_type", "count"}}
	for _, row := range stats.Timeline {
		variant := ""
		if row.Variant != nil {
			variant = *row.Variant
		}
		timelineRows = append(timelineRows, []any{row.Hour.Format(time.RFC3339), variant, row.EventType, row.Count})
	}
	if err := addSheet(f, "Timeline", timelineRows); err != nil {
		return nil, err
	}

	return f, nil
}

func writeCountSheet(f *excelize.File, sheet, label string, counts map[string]int64) error {
	rows := [][]any{{label, "count"}}
	for _, key := range sortedKeys(counts) {
		rows = append(rows, []any{key, counts[key]})
	}
	return addSheet(f, sheet, rows)
}

func addSheet(f *excelize.File, sheet string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", sheet, err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
