package department

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// SectorRow is a sector joined with its department name.
type SectorRow struct {
	Sector
	DepartmentName string
}

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindAllSectors(ctx context.Context) ([]SectorRow, error)
	FindSectorsManagedBy(ctx context.Context, userID string) ([]Sector, error)
	FindSectorsCoordinatedBy(ctx context.Context, userID string) ([]Sector, error)
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

func (r *repository) conn(ctx context.Context) *gorm.DB {
	if r.tx == nil {
		return r.db.WithContext(ctx)
	}
	db := r.db.Session(&gorm.Session{NewDB: true, SkipDefaultTransaction: true, Context: ctx})
	db.Statement.ConnPool = r.tx
	return db
}

func (r *repository) FindAllSectors(ctx context.Context) ([]SectorRow, error) {
	var rows []SectorRow
	err := r.conn(ctx).
		Model(&Sector{}).
		Select("sectors.*, departments.name AS department_name").
		Joins("JOIN departments ON departments.id = sectors.department_id AND departments.deleted_at IS NULL").
		Order("sectors.name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) FindSectorsManagedBy(ctx context.Context, userID string) ([]Sector, error) {
	var sectors []Sector
	err := r.conn(ctx).
		Where("manager_id = ?", userID).
		Order("name ASC").
		Find(&sectors).Error
	return sectors, err
}

func (r *repository) FindSectorsCoordinatedBy(ctx context.Context, userID string) ([]Sector, error) {
	var sectors []Sector
	err := r.conn(ctx).
		Joins("JOIN departments ON departments.id = sectors.department_id AND departments.deleted_at IS NULL").
		Where("departments.coordinator_id = ?", userID).
		Order("sectors.name ASC").
		Find(&sectors).Error
	return sectors, err
}
