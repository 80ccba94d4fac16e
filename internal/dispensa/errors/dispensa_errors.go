package dispensaerrors

import (
	"net/http"

	"go-dispensa/internal/shared/apperror"
)

var (
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"dispensa request not found",
		http.StatusNotFound,
	)
	ErrForbidden = apperror.New(
		apperror.CodeForbidden,
		"caller role cannot act on the current stage",
		http.StatusForbidden,
	)
	ErrInvalidTransition = apperror.New(
		apperror.CodeInvalidTransition,
		"action is not valid for the current stage",
		http.StatusConflict,
	)
	ErrRepositoryFailure = apperror.New(
		apperror.CodeRepositoryFailure,
		"dispensa repository unavailable",
		http.StatusServiceUnavailable,
	)
	ErrConcurrentDecision = apperror.New(
		apperror.CodeConflict,
		"request was decided concurrently, reload and try again",
		http.StatusConflict,
	)
	ErrDocumentNotAvailable = apperror.New(
		apperror.CodeInvalidState,
		"official document is only available for approved requests",
		http.StatusConflict,
	)

	ErrInvalidAction = apperror.New(
		apperror.CodeInvalidInput,
		"action must be approve or reject",
		http.StatusBadRequest,
	)
	ErrInvalidStage = apperror.New(
		apperror.CodeInvalidInput,
		"unknown stage",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"start_date must be before or equal end_date",
		http.StatusBadRequest,
	)
	ErrLeaveTypeRequired = apperror.New(
		apperror.CodeInvalidInput,
		"at least one leave type must be selected",
		http.StatusBadRequest,
	)
	ErrOtherDetailRequired = apperror.New(
		apperror.CodeInvalidInput,
		"other_detail is required when leave type other is selected",
		http.StatusBadRequest,
	)
	ErrRequesterSignatureRequired = apperror.New(
		apperror.CodeInvalidInput,
		"requester signature is required",
		http.StatusBadRequest,
	)
	ErrInvalidCaller = apperror.New(
		apperror.CodeUnauthorized,
		"authenticated caller is missing",
		http.StatusUnauthorized,
	)
	ErrProtocolAlreadyExists = apperror.New(
		apperror.CodeConflict,
		"protocol number already in use",
		http.StatusConflict,
	)
)
