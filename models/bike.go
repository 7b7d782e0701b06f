// Package models defines data structures for the scraper.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// BikeListing is a link to a bike model's detail page found on the index.
type BikeListing struct {
	Name string
	URL  string
}

// Brand is the manufacturer block nested in a variant's model.
type Brand struct {
	Name *string `json:"name"`
}

// BikeModel holds the model metadata shared by all variants of a bike.
// Only Type is checked; everything else passes through as sent.
type BikeModel struct {
	URL       *string `json:"url"`
	Brand     Brand   `json:"brand"`
	ModelName *string `json:"model_name"`
	Year      *int32  `json:"year"`
	Type      string  `json:"type" validate:"required"`
	HasMotor  *bool   `json:"has_motor"`
}

// Variant is one frame-size/configuration record returned by the comparison API.
type Variant struct {
	ID    int64     `json:"id"`
	Model BikeModel `json:"model"`

	FrameSize   *Text `json:"frame_size"`
	FrameConfig *Text `json:"frame_config"`
	WheelSize   *Text `json:"wheelsize"`

	Reach                   *float64 `json:"reach"`
	Stack                   *float64 `json:"stack"`
	StackToReach            *float64 `json:"stack_to_reach"`
	FrontCenter             *float64 `json:"front_center"`
	HeadAngle               *float64 `json:"head_angle"`
	SeatAngleEffective      *float64 `json:"seat_angle_effective"`
	SeatAngleReal           *float64 `json:"seat_angle_real"`
	TopTubeLength           *float64 `json:"top_tube_length"`
	TopTubeHorizontalLength *float64 `json:"top_tube_horizontal_length"`
	HeadTubeLength          *float64 `json:"head_tube_length"`
	SeatTubeLength          *float64 `json:"seat_tube_length"`
	StandoverHeight         *float64 `json:"standover_height"`
	ChainstayLength         *float64 `json:"chainstay_length"`
	WheelBase               *float64 `json:"wheel_base"`
	BottomBracketOffset     *float64 `json:"bottom_bracket_offset"`
	BottomBracketHeight     *float64 `json:"bottom_bracket_height"`
	ForkInstallationHeight  *float64 `json:"fork_installation_height"`
	ForkOffset              *float64 `json:"fork_offset"`
	ForkTrail               *float64 `json:"fork_trail"`
	TravelRear              *float64 `json:"travel_rear"`
	TravelFront             *float64 `json:"travel_front"`
}

// Text is a label the API sends either as a JSON string or as a bare number
// (frame sizes like "L" or 54, wheel sizes like "29" or 29).
type Text string

// UnmarshalJSON accepts strings and numbers.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("text value %s: %w", data, err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("text value %s: %w", data, err)
	}
	*t = Text(n.String())
	return nil
}

// ScrapeResult holds the overall result of a crawl.
type ScrapeResult struct {
	StartTime     time.Time
	EndTime       time.Time
	ListingCount  int
	VariantCount  int
	RowCount      int
	SkippedCount  int
	SkipsByReason map[string]int
	ErrorCount    int
	ErrorsByType  map[string]int
	FailedURLs    []string
	RequestCount  int
}
