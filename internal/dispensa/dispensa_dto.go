package dispensa

type CreateDispensaRequest struct {
	Matricula     string  `json:"matricula" binding:"required,max=30"`
	Cargo         string  `json:"cargo" binding:"max=100"`
	Unit          string  `json:"unit" binding:"required,max=150"`
	EventName     string  `json:"event_name" binding:"required,max=255"`
	Objective     string  `json:"objective" binding:"max=800"`
	StartDate     string  `json:"start_date" binding:"required"`
	EndDate       string  `json:"end_date" binding:"required"`
	City          string  `json:"city" binding:"max=100"`
	State         string  `json:"state" binding:"omitempty,len=2"`
	Invitation    bool    `json:"invitation"`
	Agenda        bool    `json:"agenda"`
	Summons       bool    `json:"summons"`
	Other         bool    `json:"other"`
	OtherDetail   string  `json:"other_detail" binding:"max=255"`
	AttachmentRef *string `json:"attachment_ref"`
	Signature     string  `json:"signature" binding:"max=150"`
}

type RejectDispensaRequest struct {
	Reason string `json:"reason" binding:"max=300"`
}

type SignatureResponse struct {
	Name     string  `json:"name,omitempty"`
	SignedAt *string `json:"signed_at,omitempty"`
}

type RejectionResponse struct {
	By     string  `json:"by"`
	Stage  string  `json:"stage"`
	At     *string `json:"at,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

type DispensaResponse struct {
	ID            string  `json:"id"`
	Protocol      string  `json:"protocol"`
	RequesterID   string  `json:"requester_id"`
	RequesterName string  `json:"requester_name"`
	Matricula     string  `json:"matricula"`
	Cargo         string  `json:"cargo"`
	Unit          string  `json:"unit"`
	EventName     string  `json:"event_name"`
	Objective     string  `json:"objective"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Invitation    bool    `json:"invitation"`
	Agenda        bool    `json:"agenda"`
	Summons       bool    `json:"summons"`
	Other         bool    `json:"other"`
	OtherDetail   string  `json:"other_detail,omitempty"`
	AttachmentRef *string `json:"attachment_ref,omitempty"`

	Status        string `json:"status"`
	DisplayStatus string `json:"display_status"`
	AwaitingRole  string `json:"awaiting_role,omitempty"`

	RequesterSignature string             `json:"requester_signature"`
	Manager            SignatureResponse  `json:"manager_signature"`
	Coordinator        SignatureResponse  `json:"coordinator_signature"`
	Admin              SignatureResponse  `json:"admin_signature"`
	Rejection          *RejectionResponse `json:"rejection,omitempty"`

	Version           int64  `json:"version"`
	CreatedAt         string `json:"created_at"`
	ShortNotice       bool   `json:"short_notice,omitempty"`
	Actionable        bool   `json:"actionable"`
	DocumentAvailable bool   `json:"document_available"`
}

type StatsResponse struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}
