package dispensa

import (
	"time"

	"github.com/google/uuid"
)

// LeaveTypes are the reason checkboxes of the form. The form offers them as a
// single choice, but nothing here assumes that.
type LeaveTypes struct {
	Invitation  bool   `gorm:"not null;default:false"`
	Agenda      bool   `gorm:"not null;default:false"`
	Summons     bool   `gorm:"not null;default:false"`
	Other       bool   `gorm:"not null;default:false"`
	OtherDetail string `gorm:"type:varchar(255)"`
}

func (l LeaveTypes) Any() bool {
	return l.Invitation || l.Agenda || l.Summons || l.Other
}

// Signature records who completed a stage. Legacy rows may carry a timestamp
// without a name.
type Signature struct {
	Name     string `gorm:"type:varchar(150)"`
	SignedAt *time.Time
}

func (s Signature) Recorded() bool {
	return s.Name != ""
}

func (s Signature) empty() bool {
	return s.Name == "" && s.SignedAt == nil
}

// Rejection marks the stage at which the workflow was halted.
type Rejection struct {
	By     string `gorm:"type:varchar(150)"`
	Stage  Stage  `gorm:"type:varchar(30)"`
	At     *time.Time
	Reason string `gorm:"type:text"`
}

// Request is a leave request moving through the approval chain. Status,
// signature slots, rejection and version are written only by the workflow
// service; everything else is fixed at submission.
type Request struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Protocol string    `gorm:"type:varchar(40);not null;uniqueIndex:uq_dispensa_protocol"`

	RequesterID   uuid.UUID `gorm:"type:uuid;not null;index:idx_dispensa_requester"`
	RequesterName string    `gorm:"type:varchar(150);not null"`
	Matricula     string    `gorm:"type:varchar(30);not null;index:idx_dispensa_matricula"`
	Cargo         string    `gorm:"type:varchar(100)"`
	Unit          string    `gorm:"type:varchar(150);not null;index:idx_dispensa_unit"`

	EventName     string     `gorm:"type:varchar(255);not null"`
	Objective     string     `gorm:"type:text"`
	StartDate     time.Time  `gorm:"type:date;not null"`
	EndDate       time.Time  `gorm:"type:date;not null"`
	City          string     `gorm:"type:varchar(100)"`
	State         string     `gorm:"type:varchar(2)"`
	LeaveTypes    LeaveTypes `gorm:"embedded;embeddedPrefix:leave_"`
	AttachmentRef *string    `gorm:"type:varchar(255)"`

	Status             Stage     `gorm:"type:varchar(30);not null;default:'PENDING_MANAGER';index:idx_dispensa_status"`
	RequesterSignature string    `gorm:"type:varchar(150);not null"`
	ManagerSignature   Signature `gorm:"embedded;embeddedPrefix:manager_"`
	CoordSignature     Signature `gorm:"embedded;embeddedPrefix:coordinator_"`
	AdminSignature     Signature `gorm:"embedded;embeddedPrefix:admin_"`
	Rejection          Rejection `gorm:"embedded;embeddedPrefix:rejected_"`

	Version   int64 `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Request) TableName() string {
	return "dispensa_requests"
}

func (r Request) CurrentStage() Stage {
	return r.Status
}

func (r Request) IsTerminal() bool {
	return r.Status.IsTerminal()
}

type DisplayStatus string

const (
	DisplayPending  DisplayStatus = "pending"
	DisplayApproved DisplayStatus = "approved"
	DisplayRejected DisplayStatus = "rejected"
)

// DisplayStatus collapses the stages into the three dashboard buckets.
func (r Request) DisplayStatus() DisplayStatus {
	return displayOf(r.Status)
}

func displayOf(s Stage) DisplayStatus {
	switch s {
	case StageApproved:
		return DisplayApproved
	case StageRejected:
		return DisplayRejected
	default:
		return DisplayPending
	}
}

// Signature returns the slot of an approval stage. Terminal stages have none.
func (r Request) Signature(stage Stage) Signature {
	if slot := r.slot(stage); slot != nil {
		return *slot
	}
	return Signature{}
}

func (r *Request) slot(stage Stage) *Signature {
	switch stage {
	case StagePendingManager:
		return &r.ManagerSignature
	case StagePendingCoordinator:
		return &r.CoordSignature
	case StagePendingAdmin:
		return &r.AdminSignature
	}
	return nil
}

// passed reports whether the approval of stage is implied by the current status.
// A rejected request has passed every stage before the one that rejected it.
func (r Request) passed(stage Stage) bool {
	pos := stage.position()
	if pos < 0 {
		return false
	}
	if r.Status == StageRejected {
		halt := r.Rejection.Stage.position()
		return halt >= 0 && pos < halt
	}
	return r.Status.position() > pos
}

// approve stamps the slot of the stage being completed, then advances.
// A slot that is already filled is never overwritten.
func (r *Request) approve(signer string, at time.Time, next Stage) bool {
	slot := r.slot(r.Status)
	if slot == nil || !slot.empty() {
		return false
	}
	*slot = Signature{Name: signer, SignedAt: &at}
	r.Status = next
	r.Version++
	return true
}

func (r *Request) reject(signer, reason string, at time.Time) bool {
	if !r.Status.IsPending() {
		return false
	}
	r.Rejection = Rejection{
		By:     signer,
		Stage:  r.Status,
		At:     &at,
		Reason: reason,
	}
	r.Status = StageRejected
	r.Version++
	return true
}
