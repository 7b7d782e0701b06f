package parser

import (
	"fmt"

	"github.com/aluiziolira/go-scrape-geometry/models"
)

// VariantToRow flattens a variant into the output schema. Values pass through
// unchanged apart from the category translation and float32 narrowing.
func VariantToRow(v *models.Variant) (*models.Row, error) {
	if v == nil {
		return nil, fmt.Errorf("variant is nil")
	}

	category, err := TranslateCategory(v.Model.Type)
	if err != nil {
		return nil, fmt.Errorf("variant %d (%s): %w", v.ID, stringOr(v.Model.URL, "no url"), err)
	}

	return &models.Row{
		VariantID:               v.ID,
		URL:                     v.Model.URL,
		Brand:                   v.Model.Brand.Name,
		Model:                   v.Model.ModelName,
		Year:                    v.Model.Year,
		Category:                category,
		Motorized:               v.Model.HasMotor,
		FrameSize:               textPtr(v.FrameSize),
		FrameConfig:             textPtr(v.FrameConfig),
		WheelSize:               textPtr(v.WheelSize),
		Reach:                   f32(v.Reach),
		Stack:                   f32(v.Stack),
		StackToReach:            f32(v.StackToReach),
		FrontCenter:             f32(v.FrontCenter),
		HeadTubeAngle:           f32(v.HeadAngle),
		SeatTubeAngleEffective:  f32(v.SeatAngleEffective),
		SeatTubeAngleReal:       f32(v.SeatAngleReal),
		TopTubeLength:           f32(v.TopTubeLength),
		TopTubeLengthHorizontal: f32(v.TopTubeHorizontalLength),
		HeadTubeLength:          f32(v.HeadTubeLength),
		SeatTubeLength:          f32(v.SeatTubeLength),
		StandoverHeight:         f32(v.StandoverHeight),
		ChainstayLength:         f32(v.ChainstayLength),
		Wheelbase:               f32(v.WheelBase),
		BottomBracketOffset:     f32(v.BottomBracketOffset),
		BottomBracketHeight:     f32(v.BottomBracketHeight),
		ForkInstallationHeight:  f32(v.ForkInstallationHeight),
		ForkOffset:              f32(v.ForkOffset),
		ForkTrail:               f32(v.ForkTrail),
		TravelRear:              f32(v.TravelRear),
		TravelFront:             f32(v.TravelFront),
	}, nil
}

// ValidateRow ensures the mapped row carries a category.
func ValidateRow(r *models.Row) error {
	if r == nil {
		return fmt.Errorf("row is nil")
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid row for variant %d: %w", r.VariantID, err)
	}
	return nil
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func textPtr(t *models.Text) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func f32(v *float64) *float32 {
	if v == nil {
		return nil
	}
	f := float32(*v)
	return &f
}
