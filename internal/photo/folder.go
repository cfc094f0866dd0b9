package photo

import (
	"strings"

	"github.com/bwise1/campus_safety/internal/model"
)

// FolderOther holds photos of every type outside the canonical three.
const FolderOther = "other"

// FolderFor maps a report type to the folder its photo lives in. The match is
// case sensitive: "Road", "Accessible Ramp" and "Street Light" become
// "road", "accessible_ramp" and "street_light"; everything else, including
// "Other", custom text and the empty string, is "other".
func FolderFor(reportType string) string {
	switch reportType {
	case model.TypeRoad, model.TypeAccessibleRamp, model.TypeStreetLight:
		return strings.ReplaceAll(strings.ToLower(reportType), " ", "_")
	default:
		return FolderOther
	}
}
