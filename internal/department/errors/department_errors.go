package departmenterrors

import (
	"net/http"

	"go-dispensa/internal/shared/apperror"
)

var (
	ErrUnitLookupFailed = apperror.New(
		apperror.CodeRepositoryFailure,
		"unit hierarchy unavailable",
		http.StatusServiceUnavailable,
	)
	ErrInvalidUser = apperror.New(
		apperror.CodeInvalidInput,
		"user id must be a valid uuid",
		http.StatusBadRequest,
	)
)
