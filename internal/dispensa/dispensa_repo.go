package dispensa

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	dispensaerrors "go-dispensa/internal/dispensa/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Visibility restricts which requests a caller may list or read.
type Visibility struct {
	All         bool
	RequesterID string
	Units       []string
}

type ListFilter struct {
	Query  string
	Bucket DisplayStatus
	Order  string
}

const (
	OrderRecent = "recent"
	OrderOldest = "oldest"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, r *Request) error
	FindByID(ctx context.Context, id string) (*Request, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Request, error)
	FindAll(ctx context.Context, vis Visibility, filter ListFilter) ([]Request, error)
	CountByStatus(ctx context.Context, vis Visibility) (map[Stage]int64, error)
	// Update persists a decision only if the stored version still equals
	// expectedVersion.
	Update(ctx context.Context, r *Request, expectedVersion int64) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// conn binds queries to the caller's transaction when one is attached.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	if r.tx == nil {
		return r.db.WithContext(ctx)
	}
	db := r.db.Session(&gorm.Session{NewDB: true, SkipDefaultTransaction: true, Context: ctx})
	db.Statement.ConnPool = r.tx
	return db
}

func (r *repository) Create(ctx context.Context, req *Request) error {
	return r.conn(ctx).Create(req).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Request, error) {
	var req Request
	err := r.conn(ctx).First(&req, "id = ?", id).Error
	return &req, err
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*Request, error) {
	var req Request
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error
	return &req, err
}

func (r *repository) FindAll(ctx context.Context, vis Visibility, filter ListFilter) ([]Request, error) {
	db := r.conn(ctx).Model(&Request{}).Scopes(visible(vis))

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(requester_name) LIKE ? OR LOWER(matricula) LIKE ?", like, like)
	}
	if stages := bucketStages(filter.Bucket); len(stages) > 0 {
		db = db.Where("status IN ?", stages)
	}

	order := "created_at DESC"
	if filter.Order == OrderOldest {
		order = "created_at ASC"
	}

	var out []Request
	err := db.Order(order).Find(&out).Error
	return out, err
}

func (r *repository) CountByStatus(ctx context.Context, vis Visibility) (map[Stage]int64, error) {
	var rows []struct {
		Status Stage
		Total  int64
	}
	err := r.conn(ctx).
		Model(&Request{}).
		Scopes(visible(vis)).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[Stage]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] += row.Total
	}
	return counts, nil
}

func (r *repository) Update(ctx context.Context, req *Request, expectedVersion int64) error {
	res := r.conn(ctx).
		Model(&Request{}).
		Where("id = ? AND version = ?", req.ID, expectedVersion).
		Updates(map[string]any{
			"status":                req.Status,
			"version":               req.Version,
			"manager_name":          req.ManagerSignature.Name,
			"manager_signed_at":     req.ManagerSignature.SignedAt,
			"coordinator_name":      req.CoordSignature.Name,
			"coordinator_signed_at": req.CoordSignature.SignedAt,
			"admin_name":            req.AdminSignature.Name,
			"admin_signed_at":       req.AdminSignature.SignedAt,
			"rejected_by":           req.Rejection.By,
			"rejected_stage":        req.Rejection.Stage,
			"rejected_at":           req.Rejection.At,
			"rejected_reason":       req.Rejection.Reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return dispensaerrors.ErrConcurrentDecision
	}
	return nil
}

// visible is a gorm scope limiting rows to what vis allows.
func visible(vis Visibility) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if vis.All {
			return db
		}
		if len(vis.Units) == 0 {
			return db.Where("requester_id = ?", vis.RequesterID)
		}
		return db.Where("(requester_id = ? OR unit IN ?)", vis.RequesterID, vis.Units)
	}
}

func bucketStages(b DisplayStatus) []Stage {
	switch b {
	case DisplayPending:
		return []Stage{StagePendingManager, StagePendingCoordinator, StagePendingAdmin}
	case DisplayApproved:
		return []Stage{StageApproved}
	case DisplayRejected:
		return []Stage{StageRejected}
	}
	return nil
}

// MigrateLegacyStages rewrites rows still stored with a legacy status literal
// to the canonical stage and returns how many rows changed.
func MigrateLegacyStages(db *gorm.DB) (int64, error) {
	legacy := make([]string, 0, len(stageAliases))
	for k := range stageAliases {
		legacy = append(legacy, k)
	}
	sort.Strings(legacy)

	var b strings.Builder
	args := make([]any, 0, 2*len(legacy)+1)
	b.WriteString("UPDATE dispensa_requests SET status = CASE status")
	for _, k := range legacy {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, k, string(stageAliases[k]))
	}
	b.WriteString(" END WHERE status IN ?")
	args = append(args, legacy)

	res := db.Exec(b.String(), args...)
	return res.RowsAffected, res.Error
}
