package dispensa

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	dispensaerrors "go-dispensa/internal/dispensa/errors"
	"go-dispensa/internal/events"
	"go-dispensa/internal/messaging/kafka"
	"go-dispensa/internal/shared/apperror"
	"go-dispensa/internal/shared/audit"
	"go-dispensa/internal/shared/contextutil"
	"go-dispensa/internal/shared/counter"
	"go-dispensa/internal/shared/locker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// ShortNoticeDays is the minimum advance, in days, before a request stops
	// being flagged as short notice.
	ShortNoticeDays = 15

	protocolScope     = "dispensa"
	decisionLockTTL   = 5 * time.Second
	documentCacheTTL  = 24 * time.Hour
	decisionLockSpace = "dispensa:decide:"
)

// UnitScope resolves the organisational units a caller oversees.
type UnitScope interface {
	UnitsVisibleTo(ctx context.Context, userID, role string) (all bool, units []string, err error)
}

// Dependencies are optional collaborators; nil members disable their feature.
type Dependencies struct {
	Outbox           kafka.OutboxRepository
	Counter          counter.Repository
	Units            UnitScope
	Locker           locker.Locker
	Cache            DocumentCache
	Audit            audit.Logger
	Clock            func() time.Time
	LockTTL          time.Duration
	DocumentCacheTTL time.Duration
}

type Service interface {
	Create(ctx context.Context, caller contextutil.Caller, req CreateDispensaRequest) (DispensaResponse, error)
	GetAll(ctx context.Context, caller contextutil.Caller, filter ListFilter) ([]DispensaResponse, error)
	Stats(ctx context.Context, caller contextutil.Caller) (StatsResponse, error)
	GetByID(ctx context.Context, caller contextutil.Caller, id string) (DispensaResponse, error)
	Decide(ctx context.Context, caller contextutil.Caller, id string, action Action, reason string) (Request, error)
	Approve(ctx context.Context, caller contextutil.Caller, id string) (DispensaResponse, error)
	Reject(ctx context.Context, caller contextutil.Caller, id, reason string) (DispensaResponse, error)
	Document(ctx context.Context, caller contextutil.Caller, id string) (DocumentFields, error)
	DocumentPDF(ctx context.Context, caller contextutil.Caller, id string) ([]byte, string, error)
	WarmDocument(ctx context.Context, id string) error
}

type service struct {
	db     *sql.DB
	repo   Repository
	deps   Dependencies
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, deps Dependencies, logger ...*zap.Logger) Service {
	l := zap.L().Named("dispensa.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("dispensa.service")
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = decisionLockTTL
	}
	if deps.DocumentCacheTTL <= 0 {
		deps.DocumentCacheTTL = documentCacheTTL
	}
	return &service{db: db, repo: repo, deps: deps, logger: l}
}

func (s *service) log(ctx context.Context) *zap.Logger {
	return contextutil.GetLogger(ctx, s.logger)
}

func (s *service) Create(ctx context.Context, caller contextutil.Caller, req CreateDispensaRequest) (DispensaResponse, error) {
	log := s.log(ctx)
	log.Debug("create dispensa requested",
		zap.String("requester_id", caller.UserID),
		zap.String("unit", req.Unit),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	requesterID, err := uuid.Parse(caller.UserID)
	if err != nil {
		return DispensaResponse{}, dispensaerrors.ErrInvalidCaller
	}
	startDate, endDate, err := validateCreateRequest(req)
	if err != nil {
		log.Warn("create dispensa validation failed", zap.Error(err))
		return DispensaResponse{}, err
	}

	signature := strings.TrimSpace(req.Signature)
	if signature == "" {
		signature = strings.TrimSpace(caller.DisplayName)
	}
	if signature == "" {
		return DispensaResponse{}, dispensaerrors.ErrRequesterSignatureRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("create dispensa begin tx failed", zap.Error(err))
		return DispensaResponse{}, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	now := s.deps.Clock()
	id := uuid.New()

	protocol, err := s.nextProtocol(ctx, tx, id, now)
	if err != nil {
		log.Error("create dispensa protocol failed", zap.Error(err))
		return DispensaResponse{}, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}

	r := &Request{
		ID:            id,
		Protocol:      protocol,
		RequesterID:   requesterID,
		RequesterName: firstNonEmpty(caller.DisplayName, signature),
		Matricula:     strings.TrimSpace(req.Matricula),
		Cargo:         strings.TrimSpace(req.Cargo),
		Unit:          strings.TrimSpace(req.Unit),
		EventName:     strings.TrimSpace(req.EventName),
		Objective:     strings.TrimSpace(req.Objective),
		StartDate:     startDate,
		EndDate:       endDate,
		City:          strings.TrimSpace(req.City),
		State:         strings.ToUpper(strings.TrimSpace(req.State)),
		LeaveTypes: LeaveTypes{
			Invitation:  req.Invitation,
			Agenda:      req.Agenda,
			Summons:     req.Summons,
			Other:       req.Other,
			OtherDetail: strings.TrimSpace(req.OtherDetail),
		},
		AttachmentRef:      req.AttachmentRef,
		Status:             StagePendingManager,
		RequesterSignature: signature,
		Version:            1,
		CreatedAt:          now,
	}

	if err := qtx.Create(ctx, r); err != nil {
		log.Error("create dispensa persist failed", zap.Error(err))
		return DispensaResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("create dispensa commit failed", zap.Error(err))
		return DispensaResponse{}, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}

	shortNotice := IsShortNotice(startDate, now)
	log.Info("create dispensa success",
		zap.String("dispensa_id", r.ID.String()),
		zap.String("protocol", r.Protocol),
		zap.Bool("short_notice", shortNotice),
	)

	resp := mapToResponse(*r, caller)
	resp.ShortNotice = shortNotice
	return resp, nil
}

func (s *service) nextProtocol(ctx context.Context, tx *sql.Tx, id uuid.UUID, now time.Time) (string, error) {
	year := now.Year()
	if s.deps.Counter == nil {
		return fmt.Sprintf("SIGM-%s/%d", strings.ToUpper(id.String()[:8]), year), nil
	}
	seq, err := s.deps.Counter.WithTx(tx).GetNextValue(ctx, protocolScope, fmt.Sprintf("protocol:%d", year))
	if err != nil {
		return "", err
	}
	return FormatProtocol(seq, year), nil
}

// FormatProtocol renders the human protocol number of a request.
func FormatProtocol(seq int64, year int) string {
	return fmt.Sprintf("SIGM-%d/%d", seq, year)
}

// IsShortNotice reports whether start is fewer than ShortNoticeDays calendar
// days after today.
func IsShortNotice(start, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return day.Before(today.AddDate(0, 0, ShortNoticeDays))
}

func (s *service) visibility(ctx context.Context, caller contextutil.Caller) (Visibility, error) {
	vis := Visibility{RequesterID: caller.UserID}
	role := ParseRole(caller.Role)
	if role == RoleAdmin {
		vis.All = true
		return vis, nil
	}
	if s.deps.Units == nil || role == RoleEmployee {
		return vis, nil
	}

	all, units, err := s.deps.Units.UnitsVisibleTo(ctx, caller.UserID, string(role))
	if err != nil {
		return Visibility{}, err
	}
	vis.All = all
	vis.Units = units
	return vis, nil
}

func (v Visibility) allows(r Request) bool {
	if v.All || r.RequesterID.String() == v.RequesterID {
		return true
	}
	for _, u := range v.Units {
		if u == r.Unit {
			return true
		}
	}
	return false
}

func (s *service) GetAll(ctx context.Context, caller contextutil.Caller, filter ListFilter) ([]DispensaResponse, error) {
	log := s.log(ctx)
	vis, err := s.visibility(ctx, caller)
	if err != nil {
		log.Error("get all dispensas scope failed", zap.Error(err))
		return nil, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}

	rows, err := s.repo.FindAll(ctx, vis, filter)
	if err != nil {
		log.Error("get all dispensas failed", zap.Error(err))
		return nil, mapRepositoryError(err)
	}
	return mapToListResponse(rows, caller), nil
}

func (s *service) Stats(ctx context.Context, caller contextutil.Caller) (StatsResponse, error) {
	vis, err := s.visibility(ctx, caller)
	if err != nil {
		return StatsResponse{}, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}

	counts, err := s.repo.CountByStatus(ctx, vis)
	if err != nil {
		s.log(ctx).Error("dispensa stats failed", zap.Error(err))
		return StatsResponse{}, mapRepositoryError(err)
	}

	var out StatsResponse
	for stage, n := range counts {
		switch displayOf(stage) {
		case DisplayApproved:
			out.Approved += n
		case DisplayRejected:
			out.Rejected += n
		default:
			out.Pending += n
		}
		out.Total += n
	}
	return out, nil
}

func (s *service) load(ctx context.Context, caller contextutil.Caller, id string) (*Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, dispensaerrors.ErrRequestNotFound
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	vis, err := s.visibility(ctx, caller)
	if err != nil {
		return nil, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}
	if !vis.allows(*r) {
		// hidden requests look the same as missing ones
		return nil, dispensaerrors.ErrRequestNotFound
	}
	return r, nil
}

func (s *service) GetByID(ctx context.Context, caller contextutil.Caller, id string) (DispensaResponse, error) {
	r, err := s.load(ctx, caller, id)
	if err != nil {
		s.log(ctx).Warn("get dispensa failed", zap.String("dispensa_id", id), zap.Error(err))
		return DispensaResponse{}, err
	}
	return mapToResponse(*r, caller), nil
}

// Decide runs one approval step: row lock, unit scope, terminal check, role check,
// transition, signature stamp, versioned write, outbox event, commit.
// On any error nothing is written.
func (s *service) Decide(ctx context.Context, caller contextutil.Caller, id string, action Action, reason string) (Request, error) {
	log := s.log(ctx).With(
		zap.String("dispensa_id", id),
		zap.String("action", string(action)),
		zap.String("role", caller.Role),
	)
	log.Debug("decide dispensa requested")

	// Unknown actions fall through to Apply, which rejects them as transitions.
	if a, err := ParseAction(string(action)); err == nil {
		action = a
	}
	signer := signerName(caller)
	if signer == "" {
		return Request{}, dispensaerrors.ErrInvalidCaller
	}
	if _, err := uuid.Parse(id); err != nil {
		return Request{}, dispensaerrors.ErrRequestNotFound
	}

	vis, err := s.visibility(ctx, caller)
	if err != nil {
		log.Error("decide dispensa scope failed", zap.Error(err))
		return Request{}, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}

	if s.deps.Locker != nil {
		release, err := s.deps.Locker.Acquire(ctx, decisionLockSpace+id, s.deps.LockTTL)
		if err != nil {
			log.Warn("decide dispensa lock failed", zap.Error(err))
			if errors.Is(err, locker.ErrNotAcquired) {
				return Request{}, apperror.WrapWith(dispensaerrors.ErrConcurrentDecision, err)
			}
			return Request{}, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
		}
		defer release()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("decide dispensa begin tx failed", zap.Error(err))
		return Request{}, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	r, err := qtx.FindByIDForUpdate(ctx, id)
	if err != nil {
		err = mapRepositoryError(err)
		log.Warn("decide dispensa load failed", zap.Error(err))
		return Request{}, err
	}
	if !vis.allows(*r) {
		log.Warn("decide dispensa outside caller units", zap.String("unit", r.Unit))
		return Request{}, dispensaerrors.ErrRequestNotFound
	}

	from := r.Status
	if r.IsTerminal() {
		log.Warn("decide dispensa on terminal request", zap.String("status", string(from)))
		return Request{}, dispensaerrors.ErrInvalidTransition
	}
	if !CanAct(ParseRole(caller.Role), from) {
		log.Warn("decide dispensa forbidden", zap.String("status", string(from)))
		return Request{}, dispensaerrors.ErrForbidden
	}
	to, err := Apply(from, action)
	if err != nil {
		return Request{}, err
	}

	now := s.deps.Clock()
	expected := r.Version

	var stamped bool
	switch action {
	case ActionApprove:
		stamped = r.approve(signer, now, to)
	case ActionReject:
		stamped = r.reject(signer, strings.TrimSpace(reason), now)
	}
	if !stamped {
		log.Warn("decide dispensa slot already signed", zap.String("status", string(from)))
		return Request{}, dispensaerrors.ErrInvalidTransition
	}

	if err := qtx.Update(ctx, r, expected); err != nil {
		err = mapRepositoryError(err)
		log.Error("decide dispensa persist failed", zap.Error(err))
		return Request{}, err
	}

	if err := s.enqueueDecided(ctx, tx, *r, action, from, caller, now); err != nil {
		log.Error("decide dispensa outbox persist failed", zap.Error(err))
		return Request{}, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("decide dispensa commit failed", zap.Error(err))
		return Request{}, apperror.WrapWith(dispensaerrors.ErrRepositoryFailure, err)
	}

	log.Info("decide dispensa success",
		zap.String("from_status", string(from)),
		zap.String("to_status", string(r.Status)),
		zap.Int64("version", r.Version),
	)
	s.deps.Audit.Log(ctx, audit.Entry{
		Action:  "DISPENSA_DECIDED",
		Actor:   signer,
		Target:  r.ID.String(),
		Message: string(action),
		Meta: map[string]any{
			"from":     string(from),
			"to":       string(r.Status),
			"protocol": r.Protocol,
		},
	})

	return *r, nil
}

// signerName is what goes into a signature slot. Tokens without a name
// claim sign with the user id so a stamped slot is never blank.
func signerName(caller contextutil.Caller) string {
	if name := strings.TrimSpace(caller.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(caller.UserID)
}

func (s *service) enqueueDecided(ctx context.Context, tx *sql.Tx, r Request, action Action, from Stage, caller contextutil.Caller, at time.Time) error {
	if s.deps.Outbox == nil {
		return nil
	}

	rid := contextutil.GetRequestID(ctx)
	event := events.DispensaDecidedEvent{
		EventType:   events.DispensaDecidedEventType,
		RequestID:   rid,
		DispensaID:  r.ID.String(),
		Protocol:    r.Protocol,
		Action:      string(action),
		FromStage:   string(from),
		ToStage:     string(r.Status),
		DecidedBy:   signerName(caller),
		DecidedRole: caller.Role,
		Version:     r.Version,
		OccurredAt:  at,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.deps.Outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: "dispensa",
		AggregateID:   r.ID.String(),
		EventType:     event.EventType,
		Topic:         events.DispensaDecidedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) Approve(ctx context.Context, caller contextutil.Caller, id string) (DispensaResponse, error) {
	r, err := s.Decide(ctx, caller, id, ActionApprove, "")
	if err != nil {
		return DispensaResponse{}, err
	}
	return mapToResponse(r, caller), nil
}

func (s *service) Reject(ctx context.Context, caller contextutil.Caller, id, reason string) (DispensaResponse, error) {
	r, err := s.Decide(ctx, caller, id, ActionReject, reason)
	if err != nil {
		return DispensaResponse{}, err
	}
	return mapToResponse(r, caller), nil
}

func (s *service) Document(ctx context.Context, caller contextutil.Caller, id string) (DocumentFields, error) {
	r, err := s.load(ctx, caller, id)
	if err != nil {
		return DocumentFields{}, err
	}
	return Project(*r), nil
}

func (s *service) DocumentPDF(ctx context.Context, caller contextutil.Caller, id string) ([]byte, string, error) {
	log := s.log(ctx).With(zap.String("dispensa_id", id))

	r, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, "", err
	}
	if r.Status != StageApproved {
		log.Warn("document pdf requested before approval", zap.String("status", string(r.Status)))
		return nil, "", dispensaerrors.ErrDocumentNotAvailable
	}

	pdf, err := s.renderCached(ctx, *r)
	if err != nil {
		log.Error("document pdf render failed", zap.Error(err))
		return nil, "", err
	}
	return pdf, PDFFilename(r.Protocol), nil
}

// WarmDocument renders and caches the document of an approved request ahead
// of the first download. Other states are ignored.
func (s *service) WarmDocument(ctx context.Context, id string) error {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapRepositoryError(err)
	}
	if r.Status != StageApproved || s.deps.Cache == nil {
		return nil
	}
	_, err = s.renderCached(ctx, *r)
	return err
}

func (s *service) renderCached(ctx context.Context, r Request) ([]byte, error) {
	key := DocumentCacheKey(r.ID.String(), r.Version)
	if s.deps.Cache != nil {
		if b, ok, err := s.deps.Cache.Get(ctx, key); err == nil && ok {
			return b, nil
		} else if err != nil {
			s.log(ctx).Warn("document cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	pdf, err := RenderPDF(Project(r))
	if err != nil {
		return nil, err
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, pdf, s.deps.DocumentCacheTTL); err != nil {
			s.log(ctx).Warn("document cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return pdf, nil
}

func validateCreateRequest(req CreateDispensaRequest) (time.Time, time.Time, error) {
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if startDate.After(endDate) {
		return time.Time{}, time.Time{}, dispensaerrors.ErrInvalidDateRange
	}
	if strings.TrimSpace(req.EventName) == "" {
		return time.Time{}, time.Time{}, apperror.RequiredField("event_name")
	}
	if strings.TrimSpace(req.Matricula) == "" {
		return time.Time{}, time.Time{}, apperror.RequiredField("matricula")
	}
	if strings.TrimSpace(req.Unit) == "" {
		return time.Time{}, time.Time{}, apperror.RequiredField("unit")
	}
	if !req.Invitation && !req.Agenda && !req.Summons && !req.Other {
		return time.Time{}, time.Time{}, dispensaerrors.ErrLeaveTypeRequired
	}
	if req.Other && strings.TrimSpace(req.OtherDetail) == "" {
		return time.Time{}, time.Time{}, dispensaerrors.ErrOtherDetailRequired
	}
	return startDate, endDate, nil
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, dispensaerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func mapToResponse(r Request, caller contextutil.Caller) DispensaResponse {
	resp := DispensaResponse{
		ID:                 r.ID.String(),
		Protocol:           r.Protocol,
		RequesterID:        r.RequesterID.String(),
		RequesterName:      r.RequesterName,
		Matricula:          r.Matricula,
		Cargo:              r.Cargo,
		Unit:               r.Unit,
		EventName:          r.EventName,
		Objective:          r.Objective,
		StartDate:          r.StartDate.Format("2006-01-02"),
		EndDate:            r.EndDate.Format("2006-01-02"),
		City:               r.City,
		State:              r.State,
		Invitation:         r.LeaveTypes.Invitation,
		Agenda:             r.LeaveTypes.Agenda,
		Summons:            r.LeaveTypes.Summons,
		Other:              r.LeaveTypes.Other,
		OtherDetail:        r.LeaveTypes.OtherDetail,
		AttachmentRef:      r.AttachmentRef,
		Status:             string(r.Status),
		DisplayStatus:      string(r.DisplayStatus()),
		RequesterSignature: r.RequesterSignature,
		Manager:            mapSignature(r.ManagerSignature),
		Coordinator:        mapSignature(r.CoordSignature),
		Admin:              mapSignature(r.AdminSignature),
		Version:            r.Version,
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		Actionable:         CanAct(ParseRole(caller.Role), r.Status),
		DocumentAvailable:  r.Status == StageApproved,
	}
	if role, ok := ApproverFor(r.Status); ok {
		resp.AwaitingRole = string(role)
	}
	if r.Status == StageRejected {
		resp.Rejection = &RejectionResponse{
			By:     r.Rejection.By,
			Stage:  string(r.Rejection.Stage),
			At:     formatTimePtr(r.Rejection.At),
			Reason: r.Rejection.Reason,
		}
	}
	return resp
}

func mapSignature(s Signature) SignatureResponse {
	return SignatureResponse{Name: s.Name, SignedAt: formatTimePtr(s.SignedAt)}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

func mapToListResponse(rows []Request, caller contextutil.Caller) []DispensaResponse {
	resp := make([]DispensaResponse, len(rows))
	for i, r := range rows {
		resp[i] = mapToResponse(r, caller)
	}
	return resp
}
