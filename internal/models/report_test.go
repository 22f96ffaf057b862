package models

import (
	"testing"
	"time"
)

func TestLocationValid(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want bool
	}{
		{"valid point", Location{Latitude: 17.385, Longitude: 78.4867}, true},
		{"null island is unset", Location{}, false},
		{"latitude out of range", Location{Latitude: 91, Longitude: 10}, false},
		{"longitude out of range", Location{Latitude: 10, Longitude: 181}, false},
		{"negative bounds ok", Location{Latitude: -89.9, Longitude: -179.9}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportStatus(t *testing.T) {
	if !StatusCleared.Terminal() || !StatusRejected.Terminal() {
		t.Error("expected cleared and rejected to be terminal")
	}
	if StatusPending.Terminal() || StatusWorking.Terminal() {
		t.Error("expected pending and working to be non-terminal")
	}
	if !StatusPending.Valid() || ReportStatus("DONE").Valid() {
		t.Error("unexpected status validity")
	}
	active := ActiveStatuses()
	if len(active) != 2 || active[0] != StatusPending || active[1] != StatusWorking {
		t.Errorf("unexpected active statuses: %v", active)
	}
}

func TestReportTypeValid(t *testing.T) {
	for _, rt := range []ReportType{TypePothole, TypeGarbage, TypeStreetLight, TypeWaterLeak, TypeOther} {
		if !rt.Valid() {
			t.Errorf("expected %q valid", rt)
		}
	}
	if ReportType("UFO Sighting").Valid() {
		t.Error("expected unknown type invalid")
	}
}

func TestReportQueryMatches(t *testing.T) {
	created := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	report := Report{
		ID:                "r1",
		ReportType:        TypePothole,
		Status:            StatusPending,
		AssignedWorkforce: 2,
		AssignedBudget:    5000,
		CreatedAt:         created,
	}

	tests := []struct {
		name  string
		query ReportQuery
		want  bool
	}{
		{"empty query matches", ReportQuery{}, true},
		{"matching id", ReportQuery{IDs: []string{"r1", "r2"}}, true},
		{"non-matching id", ReportQuery{IDs: []string{"r2"}}, false},
		{"excluded id", ReportQuery{ExcludeID: "r1"}, false},
		{"matching status", ReportQuery{Statuses: []ReportStatus{StatusPending}}, true},
		{"non-matching status", ReportQuery{Statuses: []ReportStatus{StatusCleared}}, false},
		{"matching type", ReportQuery{Types: []ReportType{TypePothole, TypeGarbage}}, true},
		{"non-matching type", ReportQuery{Types: []ReportType{TypeGarbage}}, false},
		{"assigned only passes", ReportQuery{AssignedOnly: true}, true},
		{"since before creation", ReportQuery{Since: created.Add(-time.Hour)}, true},
		{"since after creation", ReportQuery{Since: created.Add(time.Hour)}, false},
		{"until after creation", ReportQuery{Until: created.Add(time.Hour)}, true},
		{"until before creation", ReportQuery{Until: created.Add(-time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(report); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("assigned only rejects unassigned", func(t *testing.T) {
		unassigned := report
		unassigned.AssignedWorkforce = 0
		if (ReportQuery{AssignedOnly: true}).Matches(unassigned) {
			t.Error("expected unassigned report rejected")
		}
	})
}

func TestLikeCount(t *testing.T) {
	r := Report{Likes: []string{"a", "b", "c"}}
	if r.LikeCount() != 3 {
		t.Errorf("LikeCount() = %d, want 3", r.LikeCount())
	}
}
