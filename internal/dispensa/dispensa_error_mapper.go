package dispensa

import (
	"errors"
	"strings"

	dispensaerrors "go-dispensa/internal/dispensa/errors"
	"go-dispensa/internal/shared/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dispensaerrors.ErrRequestNotFound
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "uq_dispensa_protocol" {
				return dispensaerrors.ErrProtocolAlreadyExists
			}
		case "40001", "40P01", "55P03":
			// serialization failure, deadlock, lock not available
			return apperror.WrapWith(dispensaerrors.ErrConcurrentDecision, err)
		case "22P02":
			// invalid uuid text
			return dispensaerrors.ErrRequestNotFound
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "uq_dispensa_protocol") {
		return dispensaerrors.ErrProtocolAlreadyExists
	}

	return apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
}
