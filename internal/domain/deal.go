package domain

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"
	"time"
)

type Address string

// ParseAddress accepts a 0x-prefixed 20-byte hex account identifier in any
// letter case and returns its lower-case form.
func ParseAddress(raw string) (Address, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("%w: malformed address %q", ErrInvalidInput, raw)
	}
	if _, err := hex.DecodeString(s[2:]); err != nil {
		return "", fmt.Errorf("%w: malformed address %q", ErrInvalidInput, raw)
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }

type Status uint8

const (
	StatusOpen Status = iota
	StatusActive
	StatusCompleted
	StatusCancelledByEmployer
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusActive:
		return "ACTIVE"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelledByEmployer:
		return "CANCELLED_BY_EMPLOYER"
	default:
		return "UNKNOWN"
	}
}

func ParseStatus(raw string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OPEN":
		return StatusOpen, nil
	case "ACTIVE":
		return StatusActive, nil
	case "COMPLETED":
		return StatusCompleted, nil
	case "CANCELLED_BY_EMPLOYER":
		return StatusCancelledByEmployer, nil
	default:
		return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelledByEmployer
}

type Role string

const (
	RoleEmployer Role = "employer"
	RoleWorker   Role = "worker"
)

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleEmployer:
		return RoleEmployer, nil
	case RoleWorker:
		return RoleWorker, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

// Contact is off-chain coordination metadata. It is stored next to a deal
// but never part of the deal read model.
type Contact struct {
	Telegram string
	Phone    string
}

type Deal struct {
	ID         uint64
	Employer   Address
	Worker     Address
	Terms      string
	Budget     uint64
	Penalty    uint64
	Duration   uint64
	Status     Status
	CreatedAt  uint64
	Halted     bool
	HaltReason string
	UpdatedAt  time.Time
}

// LockedAmount is the value custodied for the deal while it is not terminal.
func (d Deal) LockedAmount() uint64 {
	sum, _ := LockAmount(d.Budget, d.Penalty)
	return sum
}

// DeadlineAt is advisory; nothing transitions when it passes.
func (d Deal) DeadlineAt() uint64 {
	sum, carry := bits.Add64(d.CreatedAt, d.Duration, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}

func (d Deal) Overdue(now time.Time) bool {
	if d.Status.Terminal() {
		return false
	}
	return uint64(now.Unix()) > d.DeadlineAt()
}

func (d Deal) PartyOf(addr Address) (Role, bool) {
	switch addr {
	case d.Employer:
		return RoleEmployer, true
	case d.Worker:
		return RoleWorker, true
	default:
		return "", false
	}
}

// LockAmount returns budget+penalty, rejecting sums that overflow 64 bits.
func LockAmount(budget, penalty uint64) (uint64, error) {
	sum, carry := bits.Add64(budget, penalty, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: budget plus penalty overflows", ErrInvalidInput)
	}
	return sum, nil
}

type NewDealParams struct {
	Employer      Address
	Worker        Address
	Terms         string
	Budget        uint64
	Penalty       uint64
	Duration      uint64
	SuppliedValue uint64
}

// ValidateNewDeal checks every creation precondition that does not need
// storage.
func ValidateNewDeal(p NewDealParams) error {
	if p.Employer == "" || p.Worker == "" {
		return fmt.Errorf("%w: employer and worker are required", ErrInvalidInput)
	}
	if p.Employer == p.Worker {
		return fmt.Errorf("%w: employer and worker must differ", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Terms) == "" {
		return fmt.Errorf("%w: terms are required", ErrInvalidInput)
	}
	if p.Budget == 0 {
		return fmt.Errorf("%w: budget must be positive", ErrInvalidInput)
	}
	required, err := LockAmount(p.Budget, p.Penalty)
	if err != nil {
		return err
	}
	if p.SuppliedValue != required {
		return fmt.Errorf("%w: supplied %d, required %d", ErrValueMismatch, p.SuppliedValue, required)
	}
	return nil
}
