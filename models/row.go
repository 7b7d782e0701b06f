package models

// ColumnType is the logical type of an output column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInt32
	TypeBool
	TypeFloat32
)

func (t ColumnType) String() string {
	switch t {
	case TypeText:
		return "str"
	case TypeInt32:
		return "i32"
	case TypeBool:
		return "bool"
	case TypeFloat32:
		return "f32"
	default:
		return "unknown"
	}
}

// Column names one output column and its type.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the fixed output schema shared by every output format.
var Schema = []Column{
	{"URL", TypeText},
	{"Brand", TypeText},
	{"Model", TypeText},
	{"Year", TypeInt32},
	{"Category", TypeText},
	{"Motorized", TypeBool},
	{"Frame Size", TypeText},
	{"Frame Config", TypeText},
	{"Wheel Size", TypeText},
	{"Reach", TypeFloat32},
	{"Stack", TypeFloat32},
	{"STR", TypeFloat32},
	{"Front Center", TypeFloat32},
	{"Head Tube Angle", TypeFloat32},
	{"Seat Tube Angle Effective", TypeFloat32},
	{"Seat Tube Angle Real", TypeFloat32},
	{"Top Tube Length", TypeFloat32},
	{"Top Tube Length Horizontal", TypeFloat32},
	{"Head Tube Length", TypeFloat32},
	{"Seat Tube Length", TypeFloat32},
	{"Standover Height", TypeFloat32},
	{"Chainstay Length", TypeFloat32},
	{"Wheelbase", TypeFloat32},
	{"Bottom Bracket Offset", TypeFloat32},
	{"Bottom Bracket Height", TypeFloat32},
	{"Fork Installation Height", TypeFloat32},
	{"Fork Offset", TypeFloat32},
	{"Fork Trail", TypeFloat32},
	{"Suspension Travel (rear)", TypeFloat32},
	{"Suspension Travel (front)", TypeFloat32},
}

// ColumnNames returns the schema's column names in order.
func ColumnNames() []string {
	names := make([]string, len(Schema))
	for i, c := range Schema {
		names[i] = c.Name
	}
	return names
}

// Row is one variant flattened into the output schema. Nil pointers are nulls.
type Row struct {
	VariantID int64 `json:"-"`

	URL         *string `json:"url"`
	Brand       *string `json:"brand"`
	Model       *string `json:"model"`
	Year        *int32  `json:"year"`
	Category    string  `json:"category" validate:"required"`
	Motorized   *bool   `json:"motorized"`
	FrameSize   *string `json:"frame_size"`
	FrameConfig *string `json:"frame_config"`
	WheelSize   *string `json:"wheel_size"`

	Reach                   *float32 `json:"reach"`
	Stack                   *float32 `json:"stack"`
	StackToReach            *float32 `json:"str"`
	FrontCenter             *float32 `json:"front_center"`
	HeadTubeAngle           *float32 `json:"head_tube_angle"`
	SeatTubeAngleEffective  *float32 `json:"seat_tube_angle_effective"`
	SeatTubeAngleReal       *float32 `json:"seat_tube_angle_real"`
	TopTubeLength           *float32 `json:"top_tube_length"`
	TopTubeLengthHorizontal *float32 `json:"top_tube_length_horizontal"`
	HeadTubeLength          *float32 `json:"head_tube_length"`
	SeatTubeLength          *float32 `json:"seat_tube_length"`
	StandoverHeight         *float32 `json:"standover_height"`
	ChainstayLength         *float32 `json:"chainstay_length"`
	Wheelbase               *float32 `json:"wheelbase"`
	BottomBracketOffset     *float32 `json:"bottom_bracket_offset"`
	BottomBracketHeight     *float32 `json:"bottom_bracket_height"`
	ForkInstallationHeight  *float32 `json:"fork_installation_height"`
	ForkOffset              *float32 `json:"fork_offset"`
	ForkTrail               *float32 `json:"fork_trail"`
	TravelRear              *float32 `json:"travel_rear"`
	TravelFront             *float32 `json:"travel_front"`
}

// Cells returns the row's values in Schema order. Each cell is nil or one of
// string, int32, bool, float32 matching the column type.
func (r *Row) Cells() []any {
	return []any{
		deref(r.URL),
		deref(r.Brand),
		deref(r.Model),
		deref(r.Year),
		r.Category,
		deref(r.Motorized),
		deref(r.FrameSize),
		deref(r.FrameConfig),
		deref(r.WheelSize),
		deref(r.Reach),
		deref(r.Stack),
		deref(r.StackToReach),
		deref(r.FrontCenter),
		deref(r.HeadTubeAngle),
		deref(r.SeatTubeAngleEffective),
		deref(r.SeatTubeAngleReal),
		deref(r.TopTubeLength),
		deref(r.TopTubeLengthHorizontal),
		deref(r.HeadTubeLength),
		deref(r.SeatTubeLength),
		deref(r.StandoverHeight),
		deref(r.ChainstayLength),
		deref(r.Wheelbase),
		deref(r.BottomBracketOffset),
		deref(r.BottomBracketHeight),
		deref(r.ForkInstallationHeight),
		deref(r.ForkOffset),
		deref(r.ForkTrail),
		deref(r.TravelRear),
		deref(r.TravelFront),
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
