package rest

import (
	"context"

	"github.com/bwise1/campus_safety/internal/model"
	"github.com/bwise1/campus_safety/internal/photo"
	"github.com/bwise1/campus_safety/util"
	"github.com/bwise1/campus_safety/util/values"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// storeFailure picks the status and message for a repository error.
func storeFailure(err error, failMsg string) (string, string) {
	switch {
	case errors.Is(err, ErrReportNotFound):
		return values.NotFound, "Report not found"
	case errors.Is(err, ErrDatabaseUnavailable):
		return values.Unavailable, "Database unavailable"
	default:
		return values.Error, failMsg
	}
}

// photoFailure picks the status and message for a failed photo write. A
// storage call that ran out of time is reported as retryable.
func photoFailure(ctx context.Context, err error) (string, string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return values.Unavailable, "Photo storage unavailable"
	}
	return values.Error, "Failed to upload photo"
}

func (api *API) ListReportsHelper(ctx context.Context) ([]model.Report, string, string, error) {
	ctx, cancel := api.withTimeout(ctx)
	defer cancel()

	reports, err := api.Reports.List(ctx)
	if err != nil {
		status, message := storeFailure(err, "Failed to fetch reports")
		return nil, status, message, err
	}
	return reports, values.Success, "Reports fetched successfully", nil
}

func (api *API) GetReportByIDHelper(ctx context.Context, id uuid.UUID) (model.Report, string, string, error) {
	ctx, cancel := api.withTimeout(ctx)
	defer cancel()

	report, err := api.Reports.Get(ctx, id)
	if err != nil {
		status, message := storeFailure(err, "Failed to fetch report")
		return model.Report{}, status, message, err
	}
	return report, values.Success, "Report fetched successfully", nil
}

// CreateReportHelper stores the photo, then persists the report. A photo
// stored for a report that fails to persist is removed again.
func (api *API) CreateReportHelper(ctx context.Context, req model.CreateReportRequest, upload *photo.Upload) (model.Report, string, string, error) {
	if api.Config.EnforceCampusBoundary && !api.Campus.Contains(*req.Lat, *req.Lng) {
		return model.Report{}, values.BadRequestBody, "Location outside campus",
			invalid("location %.6f,%.6f is outside the %s boundary", *req.Lat, *req.Lng, api.Campus.Name)
	}

	ctx, cancel := api.withTimeout(ctx)
	defer cancel()

	out, err := api.Photos.Create(ctx, req.Type, upload)
	if err != nil {
		status, message := photoFailure(ctx, err)
		return model.Report{}, status, message, err
	}

	report := model.Report{
		ID:          util.GenerateUUID(),
		Lat:         *req.Lat,
		Lng:         *req.Lng,
		Type:        req.Type,
		Time:        req.Time,
		Status:      req.Status,
		Description: req.Description,
		Urgency:     req.Urgency,
		Photo:       out.Photo,
	}

	created, err := api.Reports.Create(ctx, report)
	if err != nil {
		api.rollbackPhoto(out.Photo)
		status, message := storeFailure(err, "Failed to create report")
		return model.Report{}, status, message, err
	}

	api.publish(model.EventReportCreated, created.ID, &created)
	return created, values.Created, "Report created successfully", nil
}

// UpdateReportHelper applies an edit. The existing record is looked up before
// any file is touched, and the new photo reference is only persisted after
// the store or relocation succeeded.
func (api *API) UpdateReportHelper(ctx context.Context, id uuid.UUID, req model.UpdateReportRequest, upload *photo.Upload) (model.Report, photo.Outcome, string, string, error) {
	ctx, cancel := api.withTimeout(ctx)
	defer cancel()

	current, err := api.Reports.Get(ctx, id)
	if err != nil {
		status, message := storeFailure(err, "Failed to update report")
		return model.Report{}, photo.Outcome{}, status, message, err
	}

	newType := current.Type
	if req.Type != nil {
		newType = *req.Type
	}

	out, err := api.Photos.Update(ctx, current, newType, upload)
	if err != nil {
		status, message := photoFailure(ctx, err)
		return model.Report{}, photo.Outcome{}, status, message, err
	}

	patch := req.Patch()
	ref := out.Photo
	patch.Photo = &ref

	updated, err := api.Reports.Update(ctx, id, patch)
	if err != nil {
		switch out.Action {
		case photo.ActionStored, photo.ActionReplaced:
			api.rollbackPhoto(out.Photo)
		case photo.ActionRelocated:
			api.rollbackRelocation(model.Report{ID: id, Type: newType, Photo: out.Photo}, current.Type)
		}
		status, message := storeFailure(err, "Failed to update report")
		return model.Report{}, photo.Outcome{}, status, message, err
	}

	if out.Superseded != "" {
		discard := api.Photos.Discard(ctx, out.Superseded)
		if discard.CleanupFailed() {
			out.CleanupErr = discard.CleanupErr
		}
	}

	api.publish(model.EventReportUpdated, updated.ID, &updated)
	return updated, out, values.Success, "Report updated successfully", nil
}

// DeleteReportHelper removes the record first and then its photo, so a
// failed photo delete can never leave a record pointing at nothing.
func (api *API) DeleteReportHelper(ctx context.Context, id uuid.UUID) (photo.Outcome, string, string, error) {
	ctx, cancel := api.withTimeout(ctx)
	defer cancel()

	current, err := api.Reports.Get(ctx, id)
	if err != nil {
		status, message := storeFailure(err, "Failed to delete report")
		return photo.Outcome{}, status, message, err
	}

	if err := api.Reports.Delete(ctx, id); err != nil {
		status, message := storeFailure(err, "Failed to delete report")
		return photo.Outcome{}, status, message, err
	}

	out := api.Photos.Delete(ctx, current.Photo)

	api.publish(model.EventReportDeleted, id, nil)
	return out, values.Success, "Report deleted successfully", nil
}

// rollbackPhoto runs on a fresh context: the request's may already be spent.
func (api *API) rollbackPhoto(ref string) {
	if ref == "" {
		return
	}
	ctx, cancel := api.withTimeout(context.Background())
	defer cancel()

	if out := api.Photos.Discard(ctx, ref); out.CleanupFailed() {
		api.Logger.Warn("orphaned photo after failed save", zap.String("photo", ref), zap.Error(out.CleanupErr))
	}
}

func (api *API) rollbackRelocation(moved model.Report, originalType string) {
	ctx, cancel := api.withTimeout(context.Background())
	defer cancel()

	out, err := api.Photos.Update(ctx, moved, originalType, nil)
	if err != nil || out.Action != photo.ActionRelocated {
		api.Logger.Warn("photo left in new folder after failed save",
			zap.String("report_id", moved.ID.String()), zap.String("photo", moved.Photo))
	}
}

func (api *API) publish(eventType string, id uuid.UUID, report *model.Report) {
	if api.WebSocket == nil {
		return
	}
	api.WebSocket.Publish(model.ReportEvent{Type: eventType, ReportID: id, Report: report})
}
