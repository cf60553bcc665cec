package metrics

import (
	"context"
	"testing"

	"github.com/rpattn/splitlab/internal/domain"
)

func TestExportStatsSheets(t *testing.T) {
	repo := &stubEventRepo{
		totalEvents: 2,
		visitors:    2,
		byType:      map[string]int64{"page_view": 2},
		byVariant:   map[string]int64{"control": 2},
		funnelCounts: map[funnelKey]int64{
			{"control", domain.EventTypePageView}: 2,
		},
	}
	service := NewService(repo)

	workbook, err := service.ExportStats(context.Background(), nil)
	if err != nil {
		t.Fatalf("export returned error: %v", err)
	}
	defer workbook.Close()

	for _, sheet := range []string{"Overview", "ByType", "ByVariant", "Breakdown", "Conversion", "Timeline"} {
		idx, err := workbook.GetSheetIndex(sheet)
		if err != nil || idx == -1 {
			t.Fatalf("missing sheet %s (index %d): %v", sheet, idx, err)
		}
	}

	value, err := workbook.GetCellValue("Overview", "B2")
	if err != nil {
		t.Fatalf("failed to read overview cell: %v", err)
	}
	if value != "2" {
		t.Fatalf("total_events cell = %q, want 2", value)
	}
}
