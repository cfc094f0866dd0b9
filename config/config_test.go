package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, "/uploads", cfg.UploadURLPrefix)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.EnforceCampusBoundary)
}

func TestStorageBackend(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"nothing set", map[string]string{}, "local"},
		{"cloudinary", map[string]string{"CLOUDINARY_CLOUD_NAME": "campus"}, "cloudinary"},
		{"bucket", map[string]string{"GCS_BUCKET": "campus-photos"}, "gcs"},
		{"bucket wins", map[string]string{"GCS_BUCKET": "campus-photos", "CLOUDINARY_CLOUD_NAME": "campus"}, "gcs"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: tc.env}))
			assert.Equal(t, tc.want, cfg.StorageBackend())
		})
	}
}
