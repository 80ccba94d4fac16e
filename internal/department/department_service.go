package department

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	departmenterrors "go-dispensa/internal/department/errors"
	"go-dispensa/internal/shared/apperror"
	"go-dispensa/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	SectorListKey         = "units:sectors:all"
	DefaultSectorCacheTTL = 30 * time.Minute
)

type Service interface {
	ListSectors(ctx context.Context, query string) ([]SectorResponse, error)
	// UnitsVisibleTo lists the sector names whose requests the user may see
	// beyond their own. all is true for roles that see everything.
	UnitsVisibleTo(ctx context.Context, userID, role string) (all bool, units []string, err error)
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	ttl    time.Duration
	logger *zap.Logger
}

func NewService(repo Repository, rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) Service {
	l := zap.L().Named("department.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("department.service")
	}
	if ttl <= 0 {
		ttl = DefaultSectorCacheTTL
	}
	return &service{repo: repo, rdb: rdb, sf: &singleflight.Group{}, ttl: ttl, logger: l}
}

func (s *service) ListSectors(ctx context.Context, query string) ([]SectorResponse, error) {
	all, err := s.allSectors(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	out := make([]SectorResponse, 0, len(all))
	for _, sec := range all {
		if strings.Contains(strings.ToLower(sec.Name), q) {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s *service) allSectors(ctx context.Context) ([]SectorResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, SectorListKey).Result()
		if err == nil {
			var resp []SectorResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
		} else if err != redis.Nil {
			log.Warn("sector cache read failed", zap.Error(err))
		}
	}

	v, err, _ := s.sf.Do(SectorListKey, func() (interface{}, error) {
		rows, err := s.repo.FindAllSectors(ctx)
		if err != nil {
			return nil, apperror.WrapWith(departmenterrors.ErrUnitLookupFailed, err)
		}

		resp := mapToSectorList(rows)
		if s.rdb != nil {
			if data, err := json.Marshal(resp); err == nil {
				if err := s.rdb.Set(ctx, SectorListKey, data, s.ttl).Err(); err != nil {
					log.Warn("sector cache write failed", zap.Error(err))
				}
			}
		}
		return resp, nil
	})
	if err != nil {
		log.Error("list sectors failed", zap.Error(err))
		return nil, err
	}

	return v.([]SectorResponse), nil
}

func (s *service) UnitsVisibleTo(ctx context.Context, userID, role string) (bool, []string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "admin" {
		return true, nil, nil
	}

	var find func(context.Context, string) ([]Sector, error)
	switch role {
	case "manager":
		find = s.repo.FindSectorsManagedBy
	case "coordinator":
		find = s.repo.FindSectorsCoordinatedBy
	default:
		return false, nil, nil
	}

	if _, err := uuid.Parse(userID); err != nil {
		return false, nil, departmenterrors.ErrInvalidUser
	}

	sectors, err := find(ctx, userID)
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("unit visibility lookup failed",
			zap.String("user_id", userID),
			zap.String("role", role),
			zap.Error(err),
		)
		return false, nil, apperror.WrapWith(departmenterrors.ErrUnitLookupFailed, err)
	}

	units := make([]string, 0, len(sectors))
	for _, sec := range sectors {
		units = append(units, sec.Name)
	}
	return false, units, nil
}

func mapToSectorList(rows []SectorRow) []SectorResponse {
	out := make([]SectorResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, SectorResponse{
			ID:           row.ID.String(),
			Name:         row.Name,
			DepartmentID: row.DepartmentID.String(),
			Department:   row.DepartmentName,
		})
	}
	return out
}
