package deps

import (
	"context"

	"github.com/bwise1/campus_safety/config"
	"github.com/bwise1/campus_safety/internal/campus"
	"github.com/bwise1/campus_safety/internal/db"
	"github.com/bwise1/campus_safety/internal/photo"
	"github.com/bwise1/campus_safety/util/storage"
	"github.com/bwise1/campus_safety/util/websockets"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Dependencies struct {
	DB        *db.DB
	Storage   storage.Backend
	Photos    *photo.Manager
	Campus    *campus.Boundary
	WebSocket *websockets.WebSocketManager
	Logger    *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	database, err := db.New(cfg.Dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := database.Ping(ctx); err != nil {
		logger.Warn("database not reachable yet, serving 503s until it is", zap.Error(err))
	}

	backend, err := NewStorage(ctx, cfg, logger)
	if err != nil {
		database.Close()
		return nil, err
	}

	boundary := campus.Default()
	if cfg.CampusBoundaryFile != "" {
		boundary, err = campus.Load(cfg.CampusBoundaryFile)
		if err != nil {
			database.Close()
			return nil, err
		}
	}

	logger.Info("dependencies ready",
		zap.String("storage", cfg.StorageBackend()),
		zap.String("campus", boundary.Name),
		zap.Bool("enforce_campus_boundary", cfg.EnforceCampusBoundary))

	deps := Dependencies{
		DB:        database,
		Storage:   backend,
		Photos:    photo.NewManager(backend, logger),
		Campus:    boundary,
		WebSocket: websockets.NewWebSocketManager(logger),
		Logger:    logger,
	}
	return &deps, nil
}

// NewStorage builds the single photo backend the configuration selects.
func NewStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Backend, error) {
	switch cfg.StorageBackend() {
	case "gcs":
		return storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile, logger)
	case "cloudinary":
		return storage.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	default:
		return storage.NewLocal(cfg.UploadDir, cfg.UploadURLPrefix), nil
	}
}

func (d *Dependencies) Pool() *pgxpool.Pool {
	return d.DB.Pool()
}

func (d *Dependencies) Close() {
	if closer, ok := d.Storage.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			d.Logger.Warn("closing storage backend", zap.Error(err))
		}
	}
	d.DB.Close()
}
