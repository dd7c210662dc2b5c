package domain

import (
	"fmt"
	"math/big"
	"math/bits"
	"time"
)

const (
	EntryTypeLock   = "lock"
	EntryTypePayout = "payout"
)

const (
	SplitReasonCompletion = "completion"
	SplitReasonPenalty    = "penalty"
	SplitReasonRefund     = "refund"
)

type Split struct {
	Recipient Address
	Amount    uint64
	Reason    string
}

type LedgerEntry struct {
	EntryID    string
	DealID     uint64
	EntryType  string
	Address    Address
	Amount     uint64
	Reason     string
	OccurredAt time.Time
}

// Position summarizes value an address locked into and received from the
// custodian.
type Position struct {
	Address   Address
	Deposited uint64
	Received  uint64
}

func (p Position) Net() *big.Int {
	return new(big.Int).Sub(new(big.Int).SetUint64(p.Received), new(big.Int).SetUint64(p.Deposited))
}

func PositionFromEntries(addr Address, entries []LedgerEntry) Position {
	out := Position{Address: addr}
	for _, e := range entries {
		if e.Address != addr {
			continue
		}
		switch e.EntryType {
		case EntryTypeLock:
			out.Deposited = saturatingAdd(out.Deposited, e.Amount)
		case EntryTypePayout:
			out.Received = saturatingAdd(out.Received, e.Amount)
		}
	}
	return out
}

func SumSplits(splits []Split) (uint64, error) {
	var total uint64
	for _, s := range splits {
		var carry uint64
		total, carry = bits.Add64(total, s.Amount, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: split total overflows", ErrConservation)
		}
	}
	return total, nil
}

// CheckConservation requires the splits to pay out exactly the locked value.
func CheckConservation(locked uint64, splits []Split) error {
	total, err := SumSplits(splits)
	if err != nil {
		return err
	}
	if total != locked {
		return fmt.Errorf("%w: splits total %d, locked %d", ErrConservation, total, locked)
	}
	for _, s := range splits {
		if s.Recipient == "" {
			return fmt.Errorf("%w: split without recipient", ErrConservation)
		}
	}
	return nil
}

// SettlementSplits returns the payout for moving d into outcome. Zero-value
// splits are omitted; a zero penalty pays nothing to the worker on cancel.
func SettlementSplits(d Deal, outcome Status) ([]Split, error) {
	var splits []Split
	switch outcome {
	case StatusCompleted:
		total, err := LockAmount(d.Budget, d.Penalty)
		if err != nil {
			return nil, err
		}
		splits = []Split{{Recipient: d.Worker, Amount: total, Reason: SplitReasonCompletion}}
	case StatusCancelledByEmployer:
		splits = []Split{
			{Recipient: d.Worker, Amount: d.Penalty, Reason: SplitReasonPenalty},
			{Recipient: d.Employer, Amount: d.Budget, Reason: SplitReasonRefund},
		}
	default:
		return nil, fmt.Errorf("%w: no settlement into %s", ErrState, outcome)
	}
	out := splits[:0]
	for _, s := range splits {
		if s.Amount > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

func saturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}
