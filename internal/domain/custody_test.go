package domain

import (
	"errors"
	"math"
	"testing"
)

func TestSettlementSplitsConserveLockedValue(t *testing.T) {
	t.Parallel()
	d := Deal{Employer: employerAddr, Worker: workerAddr, Budget: 100, Penalty: 10}

	completed, err := SettlementSplits(d, StatusCompleted)
	if err != nil {
		t.Fatalf("SettlementSplits completed: %v", err)
	}
	if len(completed) != 1 || completed[0].Recipient != workerAddr || completed[0].Amount != 110 {
		t.Fatalf("unexpected completion splits %+v", completed)
	}
	if err := CheckConservation(d.LockedAmount(), completed); err != nil {
		t.Fatalf("completion splits: %v", err)
	}

	cancelled, err := SettlementSplits(d, StatusCancelledByEmployer)
	if err != nil {
		t.Fatalf("SettlementSplits cancelled: %v", err)
	}
	if len(cancelled) != 2 {
		t.Fatalf("expected 2 cancel splits, got %+v", cancelled)
	}
	if cancelled[0].Recipient != workerAddr || cancelled[0].Amount != 10 || cancelled[1].Recipient != employerAddr || cancelled[1].Amount != 100 {
		t.Fatalf("unexpected cancel splits %+v", cancelled)
	}
	if err := CheckConservation(d.LockedAmount(), cancelled); err != nil {
		t.Fatalf("cancel splits: %v", err)
	}

	if _, err := SettlementSplits(d, StatusActive); !errors.Is(err, ErrState) {
		t.Fatalf("expected state error for non-terminal outcome, got %v", err)
	}
}

func TestCancelWithZeroPenaltyRefundsOnly(t *testing.T) {
	t.Parallel()
	d := Deal{Employer: employerAddr, Worker: workerAddr, Budget: 100}
	splits, err := SettlementSplits(d, StatusCancelledByEmployer)
	if err != nil {
		t.Fatalf("SettlementSplits: %v", err)
	}
	if len(splits) != 1 || splits[0].Recipient != employerAddr || splits[0].Amount != 100 {
		t.Fatalf("unexpected splits %+v", splits)
	}
}

func TestCheckConservationRejectsMismatch(t *testing.T) {
	t.Parallel()
	if err := CheckConservation(110, []Split{{Recipient: workerAddr, Amount: 109}}); !errors.Is(err, ErrConservation) {
		t.Fatalf("expected conservation error, got %v", err)
	}
	if err := CheckConservation(10, []Split{{Amount: 10}}); !errors.Is(err, ErrConservation) {
		t.Fatalf("expected conservation error for missing recipient, got %v", err)
	}
	overflow := []Split{{Recipient: workerAddr, Amount: math.MaxUint64}, {Recipient: employerAddr, Amount: 1}}
	if err := CheckConservation(0, overflow); !errors.Is(err, ErrConservation) {
		t.Fatalf("expected conservation error on overflow, got %v", err)
	}
}

func TestPositionFromEntries(t *testing.T) {
	t.Parallel()
	entries := []LedgerEntry{
		{EntryType: EntryTypeLock, Address: employerAddr, Amount: 110},
		{EntryType: EntryTypePayout, Address: employerAddr, Amount: 100},
		{EntryType: EntryTypePayout, Address: workerAddr, Amount: 10},
	}
	p := PositionFromEntries(employerAddr, entries)
	if p.Deposited != 110 || p.Received != 100 {
		t.Fatalf("unexpected position %+v", p)
	}
	if p.Net().Int64() != -10 {
		t.Fatalf("expected net -10, got %s", p.Net())
	}
}
