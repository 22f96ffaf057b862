package geo

import (
	"math"
	"testing"

	"github.com/civicpulse/civicpulse/internal/models"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name      string
		a, b      models.Location
		want      float64
		tolerance float64
	}{
		{
			name: "same point",
			a:    models.Location{Latitude: 17.385, Longitude: 78.4867},
			b:    models.Location{Latitude: 17.385, Longitude: 78.4867},
			want: 0, tolerance: 0.001,
		},
		{
			name: "one degree of latitude",
			a:    models.Location{Latitude: 17, Longitude: 78},
			b:    models.Location{Latitude: 18, Longitude: 78},
			want: 111195, tolerance: 100,
		},
		{
			name: "hyderabad to secunderabad",
			a:    models.Location{Latitude: 17.385, Longitude: 78.4867},
			b:    models.Location{Latitude: 17.4399, Longitude: 78.4983},
			want: 6230, tolerance: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceMeters() = %v, want %v ± %v", got, tt.want, tt.tolerance)
			}
			// Distance is symmetric
			if rev := DistanceMeters(tt.b, tt.a); math.Abs(rev-got) > 1e-9 {
				t.Errorf("asymmetric distance: %v vs %v", got, rev)
			}
		})
	}
}

func TestGridCell(t *testing.T) {
	tests := []struct {
		name string
		loc  models.Location
		want models.GridCell
	}{
		{"rounds half up", models.Location{Latitude: 17.385, Longitude: 78.4867}, models.GridCell{Lat: 17.39, Lng: 78.49}},
		{"rounds down", models.Location{Latitude: 17.384, Longitude: 78.4849}, models.GridCell{Lat: 17.38, Lng: 78.48}},
		{"negative coordinates", models.Location{Latitude: -33.8688, Longitude: -70.6693}, models.GridCell{Lat: -33.87, Lng: -70.67}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GridCell(tt.loc); got != tt.want {
				t.Errorf("GridCell() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(12.3449); got != 12.34 {
		t.Errorf("Round2(12.3449) = %v", got)
	}
	if got := Round2(12.345); got != 12.35 {
		t.Errorf("Round2(12.345) = %v", got)
	}
}
