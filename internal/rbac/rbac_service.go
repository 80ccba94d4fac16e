package rbac

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"

	"go-dispensa/internal/domain"

	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"
)

type Service interface {
	LoadPolicy(policyCSV string) error
	Enforce(req EnforceRequest) (bool, error)
	PermissionsFor(role string) ([]domain.PermissionResponse, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   *zap.Logger
}

func NewService(enforcer *casbin.Enforcer, logger ...*zap.Logger) Service {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}
	return &service{enforcer: enforcer, logger: l}
}

// LoadPolicy replaces every rule with the "p, sub, obj, act" and
// "g, role, parent" lines of policyCSV.
func (s *service) LoadPolicy(policyCSV string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enforcer.ClearPolicy()

	r := csv.NewReader(strings.NewReader(policyCSV))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'

	var policies, groupings int
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse rbac policy: %w", err)
		}

		switch {
		case rec[0] == "p" && len(rec) == 4:
			if _, err := s.enforcer.AddPolicy(rec[1], rec[2], rec[3]); err != nil {
				return err
			}
			policies++
		case rec[0] == "g" && len(rec) == 3:
			if _, err := s.enforcer.AddGroupingPolicy(rec[1], rec[2]); err != nil {
				return err
			}
			groupings++
		default:
			return fmt.Errorf("parse rbac policy: unexpected line %q", strings.Join(rec, ", "))
		}
	}

	s.logger.Info("rbac policy loaded", zap.Int("policies", policies), zap.Int("groupings", groupings))
	return nil
}

func (s *service) Enforce(req EnforceRequest) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed, err := s.enforcer.Enforce(req.Role, req.Resource, req.Action)
	if err != nil {
		s.logger.Error("rbac enforce failed",
			zap.String("role", req.Role),
			zap.String("resource", req.Resource),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		return false, err
	}

	s.logger.Debug("rbac enforce result",
		zap.String("role", req.Role),
		zap.String("resource", req.Resource),
		zap.String("action", req.Action),
		zap.Bool("allowed", allowed),
	)
	return allowed, nil
}

func (s *service) PermissionsFor(role string) ([]domain.PermissionResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perms, err := s.enforcer.GetImplicitPermissionsForUser(role)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PermissionResponse, 0, len(perms))
	for _, p := range perms {
		if len(p) < 3 {
			continue
		}
		out = append(out, domain.PermissionResponse{Resource: p[1], Action: p[2]})
	}
	return out, nil
}
