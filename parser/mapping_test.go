package parser

import (
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-geometry/models"
	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

func TestVariantToRowColumnCorrespondence(t *testing.T) {
	variants, err := ParseVariants(loadFixture(t))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	row, err := VariantToRow(&variants[0])
	if err != nil {
		t.Fatalf("VariantToRow: %v", err)
	}

	want := &models.Row{
		VariantID:               4453,
		URL:                     ptr("https://geometrics.mtb-news.de/bikes/commencal-meta-sx-v5-2023"),
		Brand:                   ptr("Commencal"),
		Model:                   ptr("Meta SX V5"),
		Year:                    ptr(int32(2023)),
		Category:                "Mountain",
		Motorized:               ptr(false),
		FrameSize:               ptr("S"),
		FrameConfig:             ptr("Mullet"),
		WheelSize:               ptr("29/27.5"),
		Reach:                   ptr(float32(440)),
		Stack:                   ptr(float32(624.5)),
		StackToReach:            ptr(float32(1.42)),
		FrontCenter:             ptr(float32(790)),
		HeadTubeAngle:           ptr(float32(64.5)),
		SeatTubeAngleEffective:  ptr(float32(77.5)),
		SeatTubeAngleReal:       ptr(float32(73.1)),
		TopTubeLength:           ptr(float32(585)),
		TopTubeLengthHorizontal: ptr(float32(590.5)),
		HeadTubeLength:          ptr(float32(105)),
		SeatTubeLength:          ptr(float32(400)),
		StandoverHeight:         ptr(float32(720)),
		ChainstayLength:         ptr(float32(443)),
		Wheelbase:               ptr(float32(1229)),
		BottomBracketOffset:     ptr(float32(-20)),
		BottomBracketHeight:     ptr(float32(345)),
		ForkInstallationHeight:  ptr(float32(583)),
		ForkOffset:              ptr(float32(44)),
		ForkTrail:               ptr(float32(131.2)),
		TravelRear:              ptr(float32(165)),
		TravelFront:             ptr(float32(170)),
	}

	if diff := cmp.Diff(want, row); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}

	cells := row.Cells()
	if len(cells) != len(models.Schema) {
		t.Fatalf("cells=%d, want %d", len(cells), len(models.Schema))
	}
	if cells[4] != "Mountain" || cells[11] != float32(1.42) || cells[29] != float32(170) {
		t.Fatalf("unexpected cell order: category=%v str=%v travel_front=%v", cells[4], cells[11], cells[29])
	}
}

func TestVariantToRowNulls(t *testing.T) {
	variants, err := ParseVariants(loadFixture(t))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	row, err := VariantToRow(&variants[2])
	if err != nil {
		t.Fatalf("VariantToRow: %v", err)
	}
	if row.Year != nil || row.Motorized != nil || row.FrameConfig != nil || row.Reach != nil {
		t.Fatalf("expected nulls to pass through, got %+v", row)
	}
	if row.FrameSize == nil || *row.FrameSize != "54" {
		t.Fatalf("frame size = %v, want 54", row.FrameSize)
	}
}

func TestVariantToRowUnknownCategory(t *testing.T) {
	variants, err := ParseVariants(loadFixture(t))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	v := variants[0]
	v.Model.Type = "E-Mountainbike"
	row, err := VariantToRow(&v)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if row != nil {
		t.Fatalf("expected no row for unknown category")
	}
}

func TestVariantToRowPassesIdentityThrough(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v map[string]any)
		check  func(t *testing.T, row *models.Row)
	}{
		{
			name:   "relative url",
			mutate: func(v map[string]any) { v["model"].(map[string]any)["url"] = "/bikes/commencal-meta-sx-v5-2023" },
			check: func(t *testing.T, row *models.Row) {
				if row.URL == nil || *row.URL != "/bikes/commencal-meta-sx-v5-2023" {
					t.Fatalf("url = %v, want relative url kept", row.URL)
				}
			},
		},
		{
			name:   "empty model name",
			mutate: func(v map[string]any) { v["model"].(map[string]any)["model_name"] = "" },
			check: func(t *testing.T, row *models.Row) {
				if row.Model == nil || *row.Model != "" {
					t.Fatalf("model = %v, want empty string kept", row.Model)
				}
			},
		},
		{
			name: "null identity fields",
			mutate: func(v map[string]any) {
				model := v["model"].(map[string]any)
				model["url"] = nil
				model["model_name"] = nil
				model["brand"].(map[string]any)["name"] = nil
			},
			check: func(t *testing.T, row *models.Row) {
				if row.URL != nil || row.Model != nil || row.Brand != nil {
					t.Fatalf("expected null url/model/brand, got %v %v %v", row.URL, row.Model, row.Brand)
				}
				cells := row.Cells()
				if cells[0] != nil || cells[1] != nil || cells[2] != nil {
					t.Fatalf("expected null cells, got %v", cells[:3])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variants, err := ParseVariants(mutateFirstVariant(t, tt.mutate))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			row, err := VariantToRow(&variants[0])
			if err != nil {
				t.Fatalf("VariantToRow: %v", err)
			}
			if err := ValidateRow(row); err != nil {
				t.Fatalf("ValidateRow: %v", err)
			}
			tt.check(t, row)
		})
	}
}

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name    string
		row     *models.Row
		wantErr bool
	}{
		{
			name:    "valid row",
			row:     &models.Row{URL: ptr("https://example.test/bike"), Brand: ptr("Canyon"), Model: ptr("Spectral"), Category: "Mountain"},
			wantErr: false,
		},
		{
			name:    "null identity fields",
			row:     &models.Row{Category: "Other"},
			wantErr: false,
		},
		{
			name:    "missing category",
			row:     &models.Row{URL: ptr("https://example.test/bike"), Brand: ptr("Canyon"), Model: ptr("Spectral")},
			wantErr: true,
		},
		{
			name:    "nil row",
			row:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRow(tt.row)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRow() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
