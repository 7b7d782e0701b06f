package models

import (
	"encoding/json"
	"testing"
)

func TestSchemaShape(t *testing.T) {
	if len(Schema) != 30 {
		t.Fatalf("schema has %d columns, want 30", len(Schema))
	}
	seen := make(map[string]bool, len(Schema))
	for _, col := range Schema {
		if seen[col.Name] {
			t.Fatalf("duplicate column %q", col.Name)
		}
		seen[col.Name] = true
	}
	if Schema[0].Name != "URL" || Schema[29].Name != "Suspension Travel (front)" {
		t.Fatalf("unexpected schema bounds: %q .. %q", Schema[0].Name, Schema[29].Name)
	}
}

func TestRowCellsMatchSchema(t *testing.T) {
	year := int32(2021)
	motor := true
	reach := float32(470)
	travel := float32(160)
	url, brand, model := "https://geometrics.mtb-news.de/bikes/x", "Specialized", "Levo"
	row := &Row{
		URL:         &url,
		Brand:       &brand,
		Model:       &model,
		Year:        &year,
		Category:    "Mountain",
		Motorized:   &motor,
		Reach:       &reach,
		TravelFront: &travel,
	}

	cells := row.Cells()
	if len(cells) != len(Schema) {
		t.Fatalf("cells = %d, want %d", len(cells), len(Schema))
	}
	for i, cell := range cells {
		if cell == nil {
			continue
		}
		var ok bool
		switch Schema[i].Type {
		case TypeText:
			_, ok = cell.(string)
		case TypeInt32:
			_, ok = cell.(int32)
		case TypeBool:
			_, ok = cell.(bool)
		case TypeFloat32:
			_, ok = cell.(float32)
		}
		if !ok {
			t.Fatalf("column %q holds %T, want %s", Schema[i].Name, cell, Schema[i].Type)
		}
	}
	if cells[9] != reach || cells[29] != travel {
		t.Fatalf("measurements out of place: reach=%v travel=%v", cells[9], cells[29])
	}
	if cells[6] != nil || cells[10] != nil {
		t.Fatalf("unset fields must be nil, got %v %v", cells[6], cells[10])
	}
}

func TestRowCellsNullIdentity(t *testing.T) {
	cells := (&Row{Category: "Other"}).Cells()
	if cells[0] != nil || cells[1] != nil || cells[2] != nil {
		t.Fatalf("null url/brand/model must stay nil, got %v", cells[:3])
	}
	if cells[4] != "Other" {
		t.Fatalf("category = %v, want Other", cells[4])
	}
}

func TestTextUnmarshal(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: `"L"`, want: "L"},
		{input: `54`, want: "54"},
		{input: `27.5`, want: "27.5"},
		{input: `"29/27.5"`, want: "29/27.5"},
		{input: `true`, wantErr: true},
		{input: `{"a":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got Text
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal %s: %v", tt.input, err)
			}
			if string(got) != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextNullLeavesPointerNil(t *testing.T) {
	var v struct {
		Size *Text `json:"frame_size"`
	}
	if err := json.Unmarshal([]byte(`{"frame_size":null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Size != nil {
		t.Fatalf("expected nil, got %q", *v.Size)
	}
}
