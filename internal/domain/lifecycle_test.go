package domain

import (
	"errors"
	"testing"
)

func TestAuthorizeChecksPartyBeforeStatus(t *testing.T) {
	t.Parallel()
	open := Deal{ID: 1, Employer: employerAddr, Worker: workerAddr, Status: StatusOpen}
	if err := open.Authorize(CommandApprove, Caller{Address: strangerAddr}); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("stranger approving an open deal: expected authorization error, got %v", err)
	}
	if err := open.Authorize(CommandApprove, Caller{Address: employerAddr}); !errors.Is(err, ErrState) {
		t.Fatalf("employer approving an open deal: expected state error, got %v", err)
	}
	if err := open.Authorize(CommandAccept, Caller{Address: employerAddr}); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("employer accepting: expected authorization error, got %v", err)
	}
	if err := open.Authorize(CommandAccept, Caller{Address: workerAddr}); err != nil {
		t.Fatalf("worker accepting: %v", err)
	}
}

func TestAuthorizeRules(t *testing.T) {
	t.Parallel()
	active := Deal{ID: 2, Employer: employerAddr, Worker: workerAddr, Status: StatusActive}
	cases := []struct {
		cmd    Command
		caller Caller
		want   error
	}{
		{CommandApprove, Caller{Address: employerAddr}, nil},
		{CommandCancel, Caller{Address: employerAddr}, nil},
		{CommandCancel, Caller{Address: workerAddr}, ErrAuthorization},
		{CommandRequestArbitration, Caller{Address: workerAddr}, nil},
		{CommandRequestArbitration, Caller{Address: employerAddr}, ErrAuthorization},
		{CommandApplyVerdict, Caller{Address: workerAddr}, ErrAuthorization},
		{CommandApplyVerdict, Caller{Address: strangerAddr, Arbiter: true}, nil},
		{CommandAccept, Caller{Address: workerAddr}, ErrState},
		{CommandCreate, Caller{Address: employerAddr}, ErrInvalidInput},
	}
	for _, tc := range cases {
		err := active.Authorize(tc.cmd, tc.caller)
		if tc.want == nil && err != nil {
			t.Fatalf("%s by %s: unexpected error %v", tc.cmd, tc.caller.Address, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s by %s: expected %v, got %v", tc.cmd, tc.caller.Address, tc.want, err)
		}
	}
}

func TestAuthorizeRejectsHaltedDeal(t *testing.T) {
	t.Parallel()
	d := Deal{ID: 3, Employer: employerAddr, Worker: workerAddr, Status: StatusActive, Halted: true, HaltReason: "conservation"}
	if err := d.Authorize(CommandApprove, Caller{Address: employerAddr}); !errors.Is(err, ErrDealHalted) {
		t.Fatalf("expected halted error, got %v", err)
	}
	if err := d.Authorize(CommandApprove, Caller{Address: strangerAddr}); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected authorization error before halt check, got %v", err)
	}
}

func TestCanTransitionIsMonotonic(t *testing.T) {
	t.Parallel()
	all := []Status{StatusOpen, StatusActive, StatusCompleted, StatusCancelledByEmployer}
	allowed := map[[2]Status]bool{
		{StatusOpen, StatusActive}:                true,
		{StatusActive, StatusCompleted}:           true,
		{StatusActive, StatusCancelledByEmployer}: true,
	}
	for _, from := range all {
		for _, to := range all {
			if got := CanTransition(from, to); got != allowed[[2]Status{from, to}] {
				t.Fatalf("CanTransition(%s, %s) = %v", from, to, got)
			}
		}
	}
}
