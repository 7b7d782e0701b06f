package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCategory is returned for a category code outside the category map.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNoVariantIDs is returned when a comparison link carries no usable variant IDs.
	ErrNoVariantIDs = errors.New("no variant ids in comparison link")
)

// categoryMap translates the site's German category labels to English.
var categoryMap = map[string]string{
	"Mountainbike":                "Mountain",
	"Rennrad":                     "Road",
	"Gravel-Bike/CycloCross-Bike": "Gravel/CX",
	"Sonstiges":                   "Other",
}

// TranslateCategory maps a source category code to its English label.
// There is no fallback: unknown codes are an error.
func TranslateCategory(code string) (string, error) {
	label, ok := categoryMap[code]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, code)
	}
	return label, nil
}

// NormalizeText collapses all whitespace runs into single spaces and trims the ends.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// VariantIDs extracts the API variants fragment from a comparison link.
// The link ends in "<id>_<id>_...[@suffix]"; the result is "<id>,<id>,...".
func VariantIDs(tableURL string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(tableURL), "/")
	segment := trimmed[strings.LastIndex(trimmed, "/")+1:]
	segment, _, _ = strings.Cut(segment, "@")
	if segment == "" {
		return "", fmt.Errorf("%w: %q", ErrNoVariantIDs, tableURL)
	}

	ids := strings.Split(segment, "_")
	for _, id := range ids {
		if id == "" || strings.Trim(id, "0123456789") != "" {
			return "", fmt.Errorf("%w: %q", ErrNoVariantIDs, tableURL)
		}
	}
	return strings.Join(ids, ","), nil
}
