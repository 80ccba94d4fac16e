package dispensa

import "time"

const (
	dateLayout = "02/01/2006"

	SignatureApprovedDigitally = "APPROVED DIGITALLY"
	SignatureUnderReview       = "UNDER REVIEW"

	LabelInvitation = "Invitation"
	LabelAgenda     = "Agenda"
	LabelSummons    = "Summons"
	LabelOther      = "Other"
)

type SignatureBlock struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	SignedAt string `json:"signed_at,omitempty"`
}

// DocumentFields is everything the official document needs, already formatted.
type DocumentFields struct {
	Protocol      string `json:"protocol"`
	Status        string `json:"status"`
	RequesterName string `json:"requester_name"`
	Matricula     string `json:"matricula"`
	Cargo         string `json:"cargo"`
	Unit          string `json:"unit"`
	EventName     string `json:"event_name"`
	Objective     string `json:"objective"`
	City          string `json:"city"`
	State         string `json:"state"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	SubmittedAt   string `json:"submitted_at"`

	Invitation  string `json:"invitation"`
	Agenda      string `json:"agenda"`
	Summons     string `json:"summons"`
	Other       string `json:"other"`
	OtherDetail string `json:"other_detail,omitempty"`

	Requester   SignatureBlock `json:"requester"`
	Manager     SignatureBlock `json:"manager"`
	Coordinator SignatureBlock `json:"coordinator"`
	Admin       SignatureBlock `json:"admin"`

	RejectionReason string `json:"rejection_reason,omitempty"`
}

// Project maps a request snapshot to document fields. It reads nothing but r.
func Project(r Request) DocumentFields {
	return DocumentFields{
		Protocol:      r.Protocol,
		Status:        string(r.DisplayStatus()),
		RequesterName: r.RequesterName,
		Matricula:     r.Matricula,
		Cargo:         r.Cargo,
		Unit:          r.Unit,
		EventName:     r.EventName,
		Objective:     r.Objective,
		City:          r.City,
		State:         r.State,
		StartDate:     formatDate(r.StartDate),
		EndDate:       formatDate(r.EndDate),
		SubmittedAt:   formatDate(r.CreatedAt),

		Invitation:  checkbox(r.LeaveTypes.Invitation, LabelInvitation),
		Agenda:      checkbox(r.LeaveTypes.Agenda, LabelAgenda),
		Summons:     checkbox(r.LeaveTypes.Summons, LabelSummons),
		Other:       checkbox(r.LeaveTypes.Other, LabelOther),
		OtherDetail: otherDetail(r.LeaveTypes),

		Requester: SignatureBlock{
			Title:    "Requester",
			Text:     r.RequesterSignature,
			SignedAt: formatDate(r.CreatedAt),
		},
		Manager:     stageBlock(r, StagePendingManager, "Manager"),
		Coordinator: stageBlock(r, StagePendingCoordinator, "Coordinator"),
		Admin:       stageBlock(r, StagePendingAdmin, "Administration"),

		RejectionReason: r.Rejection.Reason,
	}
}

func stageBlock(r Request, stage Stage, title string) SignatureBlock {
	sig := r.Signature(stage)
	block := SignatureBlock{Title: title}
	if sig.SignedAt != nil {
		block.SignedAt = formatDate(*sig.SignedAt)
	}

	switch {
	case sig.Recorded():
		block.Text = sig.Name
	case r.passed(stage):
		block.Text = SignatureApprovedDigitally
	case r.Status == stage:
		block.Text = SignatureUnderReview
	}
	return block
}

func checkbox(checked bool, label string) string {
	if checked {
		return "(X) " + label
	}
	return "( ) " + label
}

func otherDetail(l LeaveTypes) string {
	if !l.Other {
		return ""
	}
	return l.OtherDetail
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
