package projections

import (
	"context"
	"testing"
	"time"

	"tutorbook/internal/domain/stats"
)

// TestQueryGetReport verifies the report holds only in-window data.
func TestQueryGetReport(t *testing.T) {
	deps, _ := statsDeps(10)

	r, err := QueryGetReport(context.Background(), GetReportQuery{Window: stats.Month(2024, time.May)}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Lessons) != 4 {
		t.Errorf("Lessons = %d, want 4", len(r.Lessons))
	}
	if r.Stats.NetIncome != 315 {
		t.Errorf("NetIncome = %v, want 315", r.Stats.NetIncome)
	}
	if len(r.Students) != 3 || r.Students[0].Name != "Bob" {
		t.Errorf("Students = %+v", r.Students)
	}
	if r.Yearly != nil {
		t.Error("Yearly should only be set for year windows")
	}
}

// TestQueryGetReport_Year verifies the yearly breakdown is attached.
func TestQueryGetReport_Year(t *testing.T) {
	deps, _ := statsDeps(10)

	r, err := QueryGetReport(context.Background(), GetReportQuery{Window: stats.Year(2024)}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Yearly == nil || len(r.Yearly.Months) != 12 {
		t.Fatalf("Yearly = %+v", r.Yearly)
	}
	if r.Yearly.Total != r.Stats {
		t.Errorf("yearly total %+v differs from report stats %+v", r.Yearly.Total, r.Stats)
	}
	if len(r.Lessons) != 6 {
		t.Errorf("Lessons = %d, want 6", len(r.Lessons))
	}
}
