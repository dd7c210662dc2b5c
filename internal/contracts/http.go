package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ContactRequest struct {
	Telegram string `json:"telegram"`
	Phone    string `json:"phone"`
}

type CreateDealRequest struct {
	WorkerAddress string         `json:"worker_addr"`
	Terms         string         `json:"terms"`
	Budget        Amount         `json:"budget"`
	Penalty       Amount         `json:"penalty"`
	Duration      uint64         `json:"duration"`
	Contact       ContactRequest `json:"contact"`
	Value         Amount         `json:"value"`
}

type AcceptDealRequest struct {
	Contact ContactRequest `json:"contact"`
}

type ArbitrationRequest struct {
	ProofURL string `json:"proof_url"`
}

// VerdictRequest carries either an explicit verdict or the raw model answer.
type VerdictRequest struct {
	Verdict string `json:"verdict,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

type DealResponse struct {
	ID         uint64 `json:"id"`
	Employer   string `json:"employer"`
	Worker     string `json:"worker"`
	Terms      string `json:"terms"`
	Budget     Amount `json:"budget"`
	Penalty    Amount `json:"penalty"`
	Duration   uint64 `json:"duration"`
	Status     string `json:"status"`
	StatusCode uint8  `json:"status_code"`
	CreatedAt  uint64 `json:"created_at"`
	DeadlineAt uint64 `json:"deadline_at"`
	Overdue    bool   `json:"overdue"`
	Halted     bool   `json:"halted,omitempty"`
}

type ArbitrationResponse struct {
	RequestID   string `json:"request_id"`
	DealID      uint64 `json:"deal_id"`
	ProofURL    string `json:"proof_url"`
	Status      string `json:"status"`
	Verdict     string `json:"verdict,omitempty"`
	SubmittedAt string `json:"submitted_at"`
	ResolvedAt  string `json:"resolved_at,omitempty"`
}

type DealIDsResponse struct {
	Address string   `json:"address"`
	Role    string   `json:"role"`
	DealIDs []uint64 `json:"deal_ids"`
}

type BalanceResponse struct {
	Balance Amount `json:"balance"`
}

type PositionResponse struct {
	Address   string `json:"address"`
	Deposited Amount `json:"deposited"`
	Received  Amount `json:"received"`
	Net       string `json:"net"`
}
