package model

import (
	"time"

	"github.com/google/uuid"
)

// Canonical report types. Anything else a client sends is a free-text
// "Other" category.
const (
	TypeRoad           = "Road"
	TypeAccessibleRamp = "Accessible Ramp"
	TypeStreetLight    = "Street Light"
	TypeOther          = "Other"
)

const (
	UrgencyLow    = "Low"
	UrgencyMedium = "Medium"
	UrgencyHigh   = "High"
)

// DefaultStatus is used when a report is submitted without a defect
// classification.
const DefaultStatus = "Pending"

type Report struct {
	ID          uuid.UUID `json:"id"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Type        string    `json:"type"`
	Time        time.Time `json:"time"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Urgency     string    `json:"urgency"`
	Photo       string    `json:"photo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateReportRequest is a validated submission. Lat and Lng are pointers so
// a missing coordinate is told apart from 0.
type CreateReportRequest struct {
	Lat         *float64  `json:"lat" validate:"required,latitude"`
	Lng         *float64  `json:"lng" validate:"required,longitude"`
	Type        string    `json:"type" validate:"required"`
	Time        time.Time `json:"time"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Urgency     string    `json:"urgency" validate:"required,oneof=Low Medium High"`
}

// UpdateReportRequest carries only the fields the client sent.
type UpdateReportRequest struct {
	Lat         *float64   `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng         *float64   `json:"lng,omitempty" validate:"omitempty,longitude"`
	Type        *string    `json:"type,omitempty" validate:"omitempty,min=1"`
	Time        *time.Time `json:"time,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Description *string    `json:"description,omitempty"`
	Urgency     *string    `json:"urgency,omitempty" validate:"omitempty,oneof=Low Medium High"`
}

// ReportPatch is a partial update. Nil fields keep their stored value; Photo
// is only ever filled from the photo lifecycle decision.
type ReportPatch struct {
	Lat         *float64
	Lng         *float64
	Type        *string
	Time        *time.Time
	Status      *string
	Description *string
	Urgency     *string
	Photo       *string
}

// Patch converts an update request into a repository patch.
func (r UpdateReportRequest) Patch() ReportPatch {
	return ReportPatch{
		Lat:         r.Lat,
		Lng:         r.Lng,
		Type:        r.Type,
		Time:        r.Time,
		Status:      r.Status,
		Description: r.Description,
		Urgency:     r.Urgency,
	}
}

// ReportEvent is pushed to live map clients after every successful write.
type ReportEvent struct {
	Type     string    `json:"type"`
	ReportID uuid.UUID `json:"report_id"`
	Report   *Report   `json:"report,omitempty"`
}

const (
	EventReportCreated = "report_created"
	EventReportUpdated = "report_updated"
	EventReportDeleted = "report_deleted"
)
