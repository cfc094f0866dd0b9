package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/bwise1/campus_safety/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportStore persists reports. Update applies a partial patch: nil fields
// keep their stored values.
type ReportStore interface {
	Create(ctx context.Context, report model.Report) (model.Report, error)
	Get(ctx context.Context, id uuid.UUID) (model.Report, error)
	List(ctx context.Context) ([]model.Report, error)
	Update(ctx context.Context, id uuid.UUID, patch model.ReportPatch) (model.Report, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
}

type ReportRepo struct {
	DB *pgxpool.Pool
}

var (
	ErrReportNotFound      = errors.New("report not found")
	ErrDatabaseUnavailable = errors.New("database unavailable")
)

const reportColumns = `id, lat, lng, type, time, status, description, urgency, photo, created_at, updated_at`

func scanReport(row pgx.Row) (model.Report, error) {
	var report model.Report
	err := row.Scan(
		&report.ID, &report.Lat, &report.Lng, &report.Type, &report.Time,
		&report.Status, &report.Description, &report.Urgency, &report.Photo,
		&report.CreatedAt, &report.UpdatedAt,
	)
	return report, err
}

// Create inserts a new report
func (repo *ReportRepo) Create(ctx context.Context, report model.Report) (model.Report, error) {
	query := `
        INSERT INTO reports (
            id, lat, lng, type, time, status, description, urgency, photo
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING ` + reportColumns

	created, err := scanReport(repo.DB.QueryRow(ctx, query,
		report.ID, report.Lat, report.Lng, report.Type, report.Time,
		report.Status, report.Description, report.Urgency, report.Photo,
	))
	if err != nil {
		return model.Report{}, classifyDBError(err)
	}
	return created, nil
}

// Get retrieves a report by ID
func (repo *ReportRepo) Get(ctx context.Context, id uuid.UUID) (model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	report, err := scanReport(repo.DB.QueryRow(ctx, query, id))
	if err != nil {
		return model.Report{}, classifyDBError(err)
	}
	return report, nil
}

// List returns every report, newest first.
func (repo *ReportRepo) List(ctx context.Context) ([]model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports ORDER BY created_at DESC`

	rows, err := repo.DB.Query(ctx, query)
	if err != nil {
		return nil, classifyDBError(err)
	}
	defer rows.Close()

	reports := []model.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, classifyDBError(err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDBError(err)
	}
	return reports, nil
}

// Update applies a partial update and returns the stored result.
func (repo *ReportRepo) Update(ctx context.Context, id uuid.UUID, patch model.ReportPatch) (model.Report, error) {
	query := `
        UPDATE reports
        SET
            lat = COALESCE($2, lat),
            lng = COALESCE($3, lng),
            type = COALESCE($4, type),
            time = COALESCE($5, time),
            status = COALESCE($6, status),
            description = COALESCE($7, description),
            urgency = COALESCE($8, urgency),
            photo = COALESCE($9, photo),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + reportColumns

	updated, err := scanReport(repo.DB.QueryRow(ctx, query, id,
		patch.Lat, patch.Lng, patch.Type, patch.Time,
		patch.Status, patch.Description, patch.Urgency, patch.Photo,
	))
	if err != nil {
		return model.Report{}, classifyDBError(err)
	}
	return updated, nil
}

// Delete removes a report row.
func (repo *ReportRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := repo.DB.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return classifyDBError(err)
	}
	if result.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (repo *ReportRepo) Ping(ctx context.Context) error {
	return classifyDBError(repo.DB.Ping(ctx))
}

// classifyDBError maps driver errors onto ErrReportNotFound and
// ErrDatabaseUnavailable, keeping the original error in the chain.
func classifyDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrReportNotFound), errors.Is(err, ErrDatabaseUnavailable):
		return err
	case errors.Is(err, pgx.ErrNoRows):
		return ErrReportNotFound
	case isUnavailable(err):
		return fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	default:
		return err
	}
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// connection_exception, admin/crash shutdown, cannot_connect_now,
		// too_many_connections
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			return true
		case pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03", pgErr.Code == "53300":
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
