package rest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bwise1/campus_safety/config"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportTime(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"1714552200000", time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)},
		{"2024-05-01T08:30:00Z", time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)},
		{"2024-05-01T16:30:00+08:00", time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)},
		{"2024-05-01T08:30", time.Date(2024, 5, 1, 8, 30, 0, 0, time.Local)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseReportTime(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := parseReportTime("last tuesday")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestBuildCreateRequestDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	in := reportInput{fields: map[string]string{
		"lat": " 22.99 ", "lng": "120.21", "type": "Road", "urgency": "Medium",
	}}

	req, err := buildCreateRequest(in, now)

	require.NoError(t, err)
	assert.Equal(t, "Pending", req.Status)
	assert.Equal(t, now, req.Time)
	require.NotNil(t, req.Lat)
	assert.InDelta(t, 22.99, *req.Lat, 1e-9)
}

func TestBuildCreateRequestAcceptsZeroCoordinates(t *testing.T) {
	in := reportInput{fields: map[string]string{"lat": "0", "lng": "0", "type": "Road", "urgency": "Low"}}

	req, err := buildCreateRequest(in, time.Now())

	require.NoError(t, err)
	assert.Zero(t, *req.Lat)
}

func TestBuildCreateRequestRejectsNonNumericCoordinate(t *testing.T) {
	in := reportInput{fields: map[string]string{"lat": "north", "lng": "120.21", "type": "Road", "urgency": "Low"}}

	_, err := buildCreateRequest(in, time.Now())

	require.Error(t, err)
	assert.Equal(t, "lat must be a number", err.Error())
}

func TestBuildUpdateRequestKeepsOnlySentFields(t *testing.T) {
	in := reportInput{fields: map[string]string{
		"type":        "",
		"status":      "Fixed",
		"description": "",
		"lat":         "  ",
	}}

	req, err := buildUpdateRequest(in)

	require.NoError(t, err)
	assert.Nil(t, req.Type)
	assert.Nil(t, req.Lat)
	assert.Nil(t, req.Urgency)
	assert.Nil(t, req.Time)
	require.NotNil(t, req.Status)
	assert.Equal(t, "Fixed", *req.Status)
	require.NotNil(t, req.Description)
	assert.Equal(t, "", *req.Description)
}

func TestBuildUpdateRequestValidates(t *testing.T) {
	_, err := buildUpdateRequest(reportInput{fields: map[string]string{"urgency": "Someday"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "urgency must be one of")

	_, err = buildUpdateRequest(reportInput{fields: map[string]string{"lng": "200"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lng is out of range")
}

func TestParseReportInputJSON(t *testing.T) {
	a := &API{Config: &config.Config{}}
	body := `{"lat": 22.99, "lng": "120.21", "type": "Road", "description": null, "ignored": true}`
	r := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	in, err := a.parseReportInput(httptest.NewRecorder(), r)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"lat": "22.99", "lng": "120.21", "type": "Road"}, in.fields)
	assert.Nil(t, in.upload)
}

func TestParseReportInputMalformedJSON(t *testing.T) {
	a := &API{Config: &config.Config{}}
	r := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(`{"lat":`))
	r.Header.Set("Content-Type", "application/json")

	_, err := a.parseReportInput(httptest.NewRecorder(), r)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestParseReportInputURLEncoded(t *testing.T) {
	a := &API{Config: &config.Config{}}
	form := url.Values{"type": {"Street Light"}, "urgency": {"High"}}
	r := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	in, err := a.parseReportInput(httptest.NewRecorder(), r)

	require.NoError(t, err)
	assert.Equal(t, "Street Light", in.fields["type"])
	assert.Equal(t, "High", in.fields["urgency"])
}

func TestParseReportInputMultipartPhoto(t *testing.T) {
	a := &API{Config: &config.Config{}}
	body, contentType := multipartBody(t, map[string]string{"type": "Road"}, "pothole.png", pngBytes)
	r := httptest.NewRequest(http.MethodPost, "/reports", body)
	r.Header.Set("Content-Type", contentType)

	in, err := a.parseReportInput(httptest.NewRecorder(), r)

	require.NoError(t, err)
	require.NotNil(t, in.upload)
	assert.Equal(t, "pothole.png", in.upload.Filename)
	assert.Equal(t, "image/png", in.upload.ContentType)
	assert.Equal(t, pngBytes, in.upload.Data)
}

func TestParseReportInputEmptyPhotoPart(t *testing.T) {
	a := &API{Config: &config.Config{}}
	body, contentType := multipartBody(t, map[string]string{"type": "Road"}, "empty.png", []byte{})
	r := httptest.NewRequest(http.MethodPost, "/reports", body)
	r.Header.Set("Content-Type", contentType)

	in, err := a.parseReportInput(httptest.NewRecorder(), r)

	require.NoError(t, err)
	assert.Nil(t, in.upload)
}
