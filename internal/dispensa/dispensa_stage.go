package dispensa

import (
	"database/sql/driver"
	"fmt"
	"strings"

	dispensaerrors "go-dispensa/internal/dispensa/errors"
)

// Stage is the workflow position of a request.
type Stage string

const (
	StagePendingManager     Stage = "PENDING_MANAGER"
	StagePendingCoordinator Stage = "PENDING_COORDINATOR"
	StagePendingAdmin       Stage = "PENDING_ADMIN"
	StageApproved           Stage = "APPROVED"
	StageRejected           Stage = "REJECTED"
)

// approvalChain is the forward order; REJECTED sits outside it.
var approvalChain = []Stage{
	StagePendingManager,
	StagePendingCoordinator,
	StagePendingAdmin,
	StageApproved,
}

var stageAliases = map[string]Stage{
	"PENDENTE_GERENTE": StagePendingManager,
	"PENDENTE_COORD":   StagePendingCoordinator,
	"PENDENTE_ADMIN":   StagePendingAdmin,
	"APROVADO":         StageApproved,
	"CANCELADO":        StageRejected,
	"INDEFERIDO":       StageRejected,
}

// ParseStage accepts canonical names and the legacy Portuguese literals.
func ParseStage(v string) (Stage, error) {
	key := strings.ToUpper(strings.TrimSpace(v))
	if s := Stage(key); s.Valid() {
		return s, nil
	}
	if s, ok := stageAliases[key]; ok {
		return s, nil
	}
	return "", dispensaerrors.ErrInvalidStage
}

// Scan loads a stored status, mapping legacy literals to their canonical stage.
// NULL and "" load as the zero Stage (an unset rejection stage).
func (s *Stage) Scan(src any) error {
	var v string
	switch t := src.(type) {
	case nil:
	case string:
		v = t
	case []byte:
		v = string(t)
	default:
		return fmt.Errorf("scan stage: unsupported type %T", src)
	}
	if strings.TrimSpace(v) == "" {
		*s = ""
		return nil
	}

	st, err := ParseStage(v)
	if err != nil {
		return fmt.Errorf("scan stage: unknown value %q", v)
	}
	*s = st
	return nil
}

// Value writes the zero Stage as NULL and refuses anything outside the five
// canonical stages.
func (s Stage) Value() (driver.Value, error) {
	if s == "" {
		return nil, nil
	}
	if !s.Valid() {
		return nil, fmt.Errorf("stage %q is not valid", string(s))
	}
	return string(s), nil
}

func (s Stage) Valid() bool {
	switch s {
	case StagePendingManager, StagePendingCoordinator, StagePendingAdmin, StageApproved, StageRejected:
		return true
	}
	return false
}

func (s Stage) IsTerminal() bool {
	return s == StageApproved || s == StageRejected
}

func (s Stage) IsPending() bool {
	return s.Valid() && !s.IsTerminal()
}

// position returns the index of s in the approval chain, or -1.
func (s Stage) position() int {
	for i, c := range approvalChain {
		if c == s {
			return i
		}
	}
	return -1
}

// next is the stage an approval leads to. Only valid for pending stages.
func (s Stage) next() Stage {
	return approvalChain[s.position()+1]
}

// Action is what an approver does to a pending request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func ParseAction(v string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(v))); a {
	case ActionApprove, ActionReject:
		return a, nil
	}
	return "", dispensaerrors.ErrInvalidAction
}

// Apply is the transition function. It never returns the input stage unchanged:
// every pair without a defined transition fails with ErrInvalidTransition.
func Apply(from Stage, action Action) (Stage, error) {
	if !from.IsPending() {
		return "", dispensaerrors.ErrInvalidTransition
	}

	switch action {
	case ActionApprove:
		return from.next(), nil
	case ActionReject:
		return StageRejected, nil
	default:
		return "", dispensaerrors.ErrInvalidTransition
	}
}
