package rest

import (
	"net/http"
	"time"

	"github.com/bwise1/campus_safety/util"
	"github.com/bwise1/campus_safety/util/tracing"
	"github.com/bwise1/campus_safety/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (api *API) ReportRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Method(http.MethodGet, "/", Handler(api.ListReports))
		r.Method(http.MethodPost, "/", Handler(api.CreateReport))
		r.Method(http.MethodGet, "/export.xlsx", Handler(api.ExportReports))

		r.Method(http.MethodGet, "/{id}", Handler(api.GetReportByID))
		r.Method(http.MethodPut, "/{id}", Handler(api.UpdateReport))
		r.Method(http.MethodDelete, "/{id}", Handler(api.DeleteReport))
	})

	return mux
}

func (api *API) ListReports(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	reports, status, message, err := api.ListReportsHelper(r.Context())
	if err != nil {
		api.Logger.Error("listing reports", zap.String("request_id", tc.RequestID), zap.Error(err))
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       reports,
	}
}

func (api *API) GetReportByID(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	id, err := util.StringToUUID(chi.URLParam(r, "id"))
	if err != nil {
		return respondWithError(ErrReportNotFound, "Report not found", values.NotFound, &tc)
	}

	report, status, message, err := api.GetReportByIDHelper(r.Context(), id)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       report,
	}
}

func (api *API) CreateReport(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	in, err := api.parseReportInput(w, r)
	if err != nil {
		return api.inputError(err, &tc)
	}

	req, err := buildCreateRequest(in, time.Now().UTC())
	if err != nil {
		return api.inputError(err, &tc)
	}

	report, status, message, err := api.CreateReportHelper(r.Context(), req, in.upload)
	if err != nil {
		api.logFailure("creating report", status, err, &tc)
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       report,
	}
}

func (api *API) UpdateReport(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	id, err := util.StringToUUID(chi.URLParam(r, "id"))
	if err != nil {
		return respondWithError(ErrReportNotFound, "Report not found", values.NotFound, &tc)
	}

	in, err := api.parseReportInput(w, r)
	if err != nil {
		return api.inputError(err, &tc)
	}

	req, err := buildUpdateRequest(in)
	if err != nil {
		return api.inputError(err, &tc)
	}

	report, outcome, status, message, err := api.UpdateReportHelper(r.Context(), id, req, in.upload)
	if err != nil {
		api.logFailure("updating report", status, err, &tc)
		return respondWithError(err, message, status, &tc)
	}
	if outcome.CleanupFailed() {
		api.Logger.Warn("report updated, photo cleanup failed",
			zap.String("request_id", tc.RequestID),
			zap.String("report_id", id.String()),
			zap.String("action", string(outcome.Action)),
			zap.Error(outcome.CleanupErr))
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       report,
	}
}

func (api *API) DeleteReport(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	id, err := util.StringToUUID(chi.URLParam(r, "id"))
	if err != nil {
		return respondWithError(ErrReportNotFound, "Report not found", values.NotFound, &tc)
	}

	outcome, status, message, err := api.DeleteReportHelper(r.Context(), id)
	if err != nil {
		api.logFailure("deleting report", status, err, &tc)
		return respondWithError(err, message, status, &tc)
	}
	if outcome.CleanupFailed() {
		api.Logger.Warn("report deleted, photo cleanup failed",
			zap.String("request_id", tc.RequestID),
			zap.String("report_id", id.String()),
			zap.Error(outcome.CleanupErr))
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

// inputError maps request parsing failures onto client-fault responses.
func (api *API) inputError(err error, tc *tracing.Context) *ServerResponse {
	var verr *ValidationError
	switch {
	case errors.Is(err, errUploadTooLarge):
		return respondWithError(invalid("photo must be at most %d bytes", api.maxUploadBytes()), "Photo too large", values.TooLarge, tc)
	case errors.As(err, &verr):
		return respondWithError(err, "Invalid report", values.BadRequestBody, tc)
	default:
		return respondWithError(err, "Invalid request", values.BadRequestBody, tc)
	}
}

func (api *API) logFailure(what, status string, err error, tc *tracing.Context) {
	fields := []zap.Field{zap.String("request_id", tc.RequestID), zap.String("status", status), zap.Error(err)}
	switch status {
	case values.Error:
		api.Logger.Error(what, fields...)
	case values.Unavailable:
		api.Logger.Warn(what, fields...)
	}
}
