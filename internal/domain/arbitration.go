package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Verdict string

const (
	VerdictWorkerPrevails   Verdict = "worker_prevails"
	VerdictEmployerPrevails Verdict = "employer_prevails"
)

func ParseVerdict(raw string) (Verdict, error) {
	switch Verdict(strings.ToLower(strings.TrimSpace(raw))) {
	case VerdictWorkerPrevails:
		return VerdictWorkerPrevails, nil
	case VerdictEmployerPrevails:
		return VerdictEmployerPrevails, nil
	default:
		return "", fmt.Errorf("%w: unknown verdict %q", ErrInvalidInput, raw)
	}
}

// Outcome is the terminal status a verdict settles the deal into.
func (v Verdict) Outcome() Status {
	if v == VerdictWorkerPrevails {
		return StatusCompleted
	}
	return StatusCancelledByEmployer
}

const (
	ArbitrationStatusPending  = "PENDING"
	ArbitrationStatusResolved = "RESOLVED"
)

type ArbitrationRequest struct {
	RequestID   string
	DealID      uint64
	ProofURL    string
	Status      string
	Verdict     Verdict
	SubmittedBy Address
	SubmittedAt time.Time
	ResolvedAt  *time.Time
}

// ValidateProofURL only checks the reference shape; content is never
// fetched by the engine.
func ValidateProofURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: proof_url must be an absolute http(s) url", ErrInvalidInput)
	}
	return s, nil
}

// DecodeModelVerdict reads the {"win": bool} object an arbitration model
// answers with, tolerating a surrounding ```json fence.
func DecodeModelVerdict(raw string) (Verdict, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)
	var out struct {
		Win *bool `json:"win"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return "", fmt.Errorf("%w: unreadable verdict: %v", ErrInvalidInput, err)
	}
	if out.Win == nil {
		return "", fmt.Errorf("%w: verdict missing win field", ErrInvalidInput)
	}
	if *out.Win {
		return VerdictWorkerPrevails, nil
	}
	return VerdictEmployerPrevails, nil
}
