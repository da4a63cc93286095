package documents

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/auralabs/aura-backend/internal/domain"
	"github.com/auralabs/aura-backend/internal/platform/apperr"
	"github.com/auralabs/aura-backend/internal/platform/dbctx"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

// Repo is the metadata store for uploaded documents. Status writes go
// through UpdateStatus so updated_at always moves with the transition.
type Repo interface {
	Create(dbc dbctx.Context, doc *domain.Document) (*domain.Document, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status domain.DocumentStatus) (*domain.Document, error)
	SetFailure(dbc dbctx.Context, id uuid.UUID, step, message string) error
}

// FailureDiagnostics is the JSON written to document.diagnostics when a
// processing run fails.
type FailureDiagnostics struct {
	Step     string    `json:"step"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepo(db *gorm.DB, baseLog *logger.Logger) Repo {
	return &repo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *repo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *repo) Create(dbc dbctx.Context, doc *domain.Document) (*domain.Document, error) {
	if doc == nil {
		return nil, apperr.ErrInvalidArgument
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *repo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status domain.DocumentStatus) (*domain.Document, error) {
	if !status.Valid() {
		return nil, apperr.ErrInvalidArgument
	}
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrNotFound
	}
	return r.GetByID(dbc, id)
}

func (r *repo) SetFailure(dbc dbctx.Context, id uuid.UUID, step, message string) error {
	now := time.Now().UTC()
	diag, err := json.Marshal(FailureDiagnostics{Step: step, Error: message, FailedAt: now})
	if err != nil {
		return err
	}
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           domain.StatusFailed,
			"processing_error": message,
			"diagnostics":      datatypes.JSON(diag),
			"updated_at":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
