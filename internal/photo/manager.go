// Package photo decides what happens to a report's stored photo on create,
// update and delete, and keeps the persisted reference in step with the file
// that actually exists in the active storage backend.
package photo

import (
	"context"

	"github.com/bwise1/campus_safety/internal/model"
	"github.com/bwise1/campus_safety/util/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Action string

const (
	ActionNone      Action = "none"
	ActionStored    Action = "stored"
	ActionReplaced  Action = "replaced"
	ActionKept      Action = "kept"
	ActionRelocated Action = "relocated"
	ActionDeleted   Action = "deleted"
	ActionSkipped   Action = "skipped"
)

// ErrBackendMismatch is recorded when a reference was written by a backend
// other than the active one, so it cannot be acted on.
var ErrBackendMismatch = errors.New("photo reference belongs to an inactive backend")

// Upload is a validated image attached to a request.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Outcome is the result of a lifecycle decision. A non-nil error returned
// alongside an Outcome is a hard failure; CleanupErr is a best-effort step
// that failed while the primary operation still succeeded.
type Outcome struct {
	// Photo is the reference to persist on the report.
	Photo  string
	Action Action
	// Superseded is a reference replaced by this decision. Callers discard it
	// once the new reference has been saved.
	Superseded string
	CleanupErr error
}

func (o Outcome) CleanupFailed() bool {
	return o.CleanupErr != nil
}

type Manager struct {
	backend storage.Backend
	logger  *zap.Logger
}

func NewManager(backend storage.Backend, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{backend: backend, logger: logger.Named("photo")}
}

func (m *Manager) Backend() storage.Backend {
	return m.backend
}

// Create stores the upload, if any, under the folder of the submitted type.
func (m *Manager) Create(ctx context.Context, reportType string, up *Upload) (Outcome, error) {
	if up == nil {
		return m.record(Outcome{Action: ActionNone}), nil
	}

	ref, err := m.store(ctx, reportType, up)
	if err != nil {
		return Outcome{}, err
	}
	return m.record(Outcome{Photo: ref, Action: ActionStored}), nil
}

// Update decides the photo of an edited report. current is the stored record
// before the edit and newType the type it will have afterwards.
//
// With an upload the new file is stored under the new type's folder. Under
// the local backend the previous file is returned as Superseded; cloud
// objects are left in place. Without an upload the photo is only touched
// when the folder changes, the backend can relocate and the reference is
// one of its own. A relocation that fails keeps the old reference.
func (m *Manager) Update(ctx context.Context, current model.Report, newType string, up *Upload) (Outcome, error) {
	if up != nil {
		ref, err := m.store(ctx, newType, up)
		if err != nil {
			return Outcome{}, err
		}

		out := Outcome{Photo: ref, Action: ActionStored}
		if current.Photo != "" {
			out.Action = ActionReplaced
			// a same-second upload of the same name overwrote the old file in place
			if m.backend.Kind() == storage.KindLocal && storage.KindOf(current.Photo) == storage.KindLocal && current.Photo != ref {
				out.Superseded = current.Photo
			}
		}
		return m.record(out), nil
	}

	out := Outcome{Photo: current.Photo, Action: ActionKept}
	if current.Photo == "" {
		out.Action = ActionNone
		return m.record(out), nil
	}

	from, to := FolderFor(current.Type), FolderFor(newType)
	if from == to {
		return m.record(out), nil
	}

	relocator, ok := m.backend.(storage.Relocator)
	if !ok || storage.KindOf(current.Photo) != m.backend.Kind() {
		return m.record(out), nil
	}

	newRef, err := relocator.Relocate(ctx, current.Photo, to)
	if err != nil {
		m.logger.Warn("photo relocation failed, keeping previous reference",
			zap.String("report_id", current.ID.String()),
			zap.String("photo", current.Photo),
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
		out.CleanupErr = err
		return m.record(out), nil
	}

	m.logger.Info("photo relocated",
		zap.String("report_id", current.ID.String()),
		zap.String("from", current.Photo),
		zap.String("to", newRef))
	return m.record(Outcome{Photo: newRef, Action: ActionRelocated}), nil
}

// Delete removes the photo of a deleted report. The backend is inferred from
// the shape of the reference and failures never surface as errors.
func (m *Manager) Delete(ctx context.Context, ref string) Outcome {
	if ref == "" {
		return m.record(Outcome{Action: ActionNone})
	}

	if kind := storage.KindOf(ref); kind != m.backend.Kind() {
		m.logger.Warn("not deleting photo written by another backend",
			zap.String("photo", ref),
			zap.String("reference_kind", string(kind)),
			zap.String("active_kind", string(m.backend.Kind())))
		return m.record(Outcome{Action: ActionSkipped, CleanupErr: ErrBackendMismatch})
	}

	return m.Discard(ctx, ref)
}

// Discard deletes a reference through the active backend on a best-effort
// basis. It is used for superseded photos and to roll back a photo stored for
// a write that then failed to persist.
func (m *Manager) Discard(ctx context.Context, ref string) Outcome {
	if ref == "" {
		return m.record(Outcome{Action: ActionNone})
	}

	err := m.backend.Delete(ctx, ref)
	switch {
	case err == nil:
		return m.record(Outcome{Action: ActionDeleted})
	case errors.Is(err, storage.ErrObjectNotFound):
		m.logger.Info("photo already gone", zap.String("photo", ref))
		return m.record(Outcome{Action: ActionDeleted})
	default:
		m.logger.Warn("photo cleanup failed", zap.String("photo", ref), zap.Error(err))
		return m.record(Outcome{Action: ActionDeleted, CleanupErr: err})
	}
}

func (m *Manager) store(ctx context.Context, reportType string, up *Upload) (string, error) {
	folder := FolderFor(reportType)
	ref, err := m.backend.Store(ctx, storage.Object{
		Data:        up.Data,
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Folder:      folder,
	})
	if err != nil {
		return "", errors.Wrapf(err, "storing photo in %s", folder)
	}

	m.logger.Info("photo stored", zap.String("folder", folder), zap.String("photo", ref))
	return ref, nil
}

func (m *Manager) record(out Outcome) Outcome {
	actionsTotal.WithLabelValues(string(out.Action)).Inc()
	if out.CleanupErr != nil {
		cleanupFailuresTotal.Inc()
	}
	return out
}
