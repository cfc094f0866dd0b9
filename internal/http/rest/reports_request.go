package rest

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwise1/campus_safety/internal/model"
	"github.com/bwise1/campus_safety/internal/photo"
	"github.com/bwise1/campus_safety/util"
	"github.com/bwise1/campus_safety/util/storage"
	"github.com/pkg/errors"
)

const (
	defaultMaxUploadBytes = 5 << 20
	photoField            = "photo"
)

var reportFields = []string{"lat", "lng", "type", "time", "status", "description", "urgency"}

var errUploadTooLarge = errors.New("upload too large")

// reportInput is a submission reduced to the fields the client actually sent
// plus the optional photo.
type reportInput struct {
	fields map[string]string
	upload *photo.Upload
}

func (in reportInput) get(key string) (string, bool) {
	v, ok := in.fields[key]
	return v, ok
}

func (api *API) maxUploadBytes() int64 {
	if api.Config.MaxUploadBytes > 0 {
		return api.Config.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

// parseReportInput accepts multipart forms (the only way to attach a photo),
// JSON bodies and urlencoded forms.
func (api *API) parseReportInput(w http.ResponseWriter, r *http.Request) (reportInput, error) {
	in := reportInput{fields: map[string]string{}}
	maxBytes := api.maxUploadBytes()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		// room for the photo plus the text fields
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return in, errUploadTooLarge
			}
			return in, invalid("malformed multipart form: %v", err)
		}
		for _, key := range reportFields {
			if vals, ok := r.MultipartForm.Value[key]; ok && len(vals) > 0 {
				in.fields[key] = vals[0]
			}
		}

		upload, err := readUpload(r, maxBytes)
		if err != nil {
			return in, err
		}
		in.upload = upload

	case "application/json":
		var raw map[string]json.RawMessage
		tc := tracingFrom(r)
		if err := util.DecodeJSONBody(&tc, r.Body, &raw); err != nil {
			return in, invalid("malformed JSON body")
		}
		for _, key := range reportFields {
			msg, ok := raw[key]
			if !ok || string(msg) == "null" {
				continue
			}
			var s string
			if err := json.Unmarshal(msg, &s); err == nil {
				in.fields[key] = s
				continue
			}
			// numbers keep their literal text
			in.fields[key] = strings.TrimSpace(string(msg))
		}

	default:
		if err := r.ParseForm(); err != nil {
			return in, invalid("malformed form body: %v", err)
		}
		for _, key := range reportFields {
			if vals, ok := r.PostForm[key]; ok && len(vals) > 0 {
				in.fields[key] = vals[0]
			}
		}
	}

	return in, nil
}

func readUpload(r *http.Request, maxBytes int64) (*photo.Upload, error) {
	file, header, err := r.FormFile(photoField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, invalid("unreadable photo: %v", err)
	}
	defer file.Close()

	if header.Size > maxBytes {
		return nil, errUploadTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, invalid("unreadable photo: %v", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, errUploadTooLarge
	}
	if len(data) == 0 {
		return nil, nil
	}

	contentType, err := storage.DetectImage(data, header.Header.Get("Content-Type"))
	if err != nil {
		return nil, invalid("photo must be an image (jpeg, png, gif, webp)")
	}

	return &photo.Upload{Data: data, Filename: header.Filename, ContentType: contentType}, nil
}

func parseCoordinate(key, raw string) (*float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, invalid("%s must be a number", key)
	}
	return &v, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseReportTime accepts RFC3339, the browser's datetime-local format and
// unix milliseconds.
func parseReportTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("time %q is not a recognised timestamp", raw)
}

// buildCreateRequest coerces and validates a new submission. Time defaults to
// now and status to "Pending".
func buildCreateRequest(in reportInput, now time.Time) (model.CreateReportRequest, error) {
	var req model.CreateReportRequest

	for _, key := range []string{"lat", "lng"} {
		raw, ok := in.get(key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := parseCoordinate(key, raw)
		if err != nil {
			return req, err
		}
		if key == "lat" {
			req.Lat = v
		} else {
			req.Lng = v
		}
	}

	req.Type = strings.TrimSpace(in.fields["type"])
	req.Urgency = strings.TrimSpace(in.fields["urgency"])
	req.Description = in.fields["description"]

	req.Status = strings.TrimSpace(in.fields["status"])
	if req.Status == "" {
		req.Status = model.DefaultStatus
	}

	req.Time = now
	if raw := in.fields["time"]; strings.TrimSpace(raw) != "" {
		t, err := parseReportTime(raw)
		if err != nil {
			return req, err
		}
		req.Time = t
	}

	if err := util.ValidateStruct(req); err != nil {
		return req, invalid("%s", util.ValidationMessage(err))
	}
	return req, nil
}

// buildUpdateRequest keeps only the fields that were sent. Blank values of
// coordinate, type, time, urgency and status are treated as not sent;
// a blank description clears it.
func buildUpdateRequest(in reportInput) (model.UpdateReportRequest, error) {
	var req model.UpdateReportRequest

	nonBlank := func(key string) (string, bool) {
		raw, ok := in.get(key)
		raw = strings.TrimSpace(raw)
		return raw, ok && raw != ""
	}

	if raw, ok := nonBlank("lat"); ok {
		v, err := parseCoordinate("lat", raw)
		if err != nil {
			return req, err
		}
		req.Lat = v
	}
	if raw, ok := nonBlank("lng"); ok {
		v, err := parseCoordinate("lng", raw)
		if err != nil {
			return req, err
		}
		req.Lng = v
	}
	if raw, ok := nonBlank("type"); ok {
		req.Type = &raw
	}
	if raw, ok := nonBlank("urgency"); ok {
		req.Urgency = &raw
	}
	if raw, ok := nonBlank("status"); ok {
		req.Status = &raw
	}
	if raw, ok := nonBlank("time"); ok {
		t, err := parseReportTime(raw)
		if err != nil {
			return req, err
		}
		req.Time = &t
	}
	if raw, ok := in.get("description"); ok {
		req.Description = &raw
	}

	if err := util.ValidateStruct(req); err != nil {
		return req, invalid("%s", util.ValidationMessage(err))
	}
	return req, nil
}
