package domain

import "fmt"

type Command int

// Commands are the closed set of engine operations. CommandCreate has no
// deal precondition; ValidateNewDeal covers it.
const (
	CommandCreate Command = iota + 1
	CommandAccept
	CommandApprove
	CommandCancel
	CommandRequestArbitration
	CommandApplyVerdict
)

func (c Command) String() string {
	switch c {
	case CommandCreate:
		return "create_deal"
	case CommandAccept:
		return "accept_deal"
	case CommandApprove:
		return "approve_manually"
	case CommandCancel:
		return "cancel_with_penalty"
	case CommandRequestArbitration:
		return "request_ai_resolution"
	case CommandApplyVerdict:
		return "apply_verdict"
	default:
		return "unknown"
	}
}

type Party int

const (
	PartyEmployer Party = iota + 1
	PartyWorker
	PartyArbiter
)

// Rule is the fixed precondition set of a command. Target equals From for
// commands that do not move the deal by themselves.
type Rule struct {
	From   Status
	Party  Party
	Target Status
}

var rules = map[Command]Rule{
	CommandAccept:             {From: StatusOpen, Party: PartyWorker, Target: StatusActive},
	CommandApprove:            {From: StatusActive, Party: PartyEmployer, Target: StatusCompleted},
	CommandCancel:             {From: StatusActive, Party: PartyEmployer, Target: StatusCancelledByEmployer},
	CommandRequestArbitration: {From: StatusActive, Party: PartyWorker, Target: StatusActive},
	CommandApplyVerdict:       {From: StatusActive, Party: PartyArbiter, Target: StatusActive},
}

func RuleFor(cmd Command) (Rule, bool) {
	r, ok := rules[cmd]
	return r, ok
}

type Caller struct {
	Address Address
	Arbiter bool
}

// Authorize checks the caller, then the halt flag, then the status. The
// order matches what a caller observes when racing another transition: the
// identity check never depends on state.
func (d Deal) Authorize(cmd Command, caller Caller) error {
	rule, ok := RuleFor(cmd)
	if !ok {
		return fmt.Errorf("%w: unknown command %d", ErrInvalidInput, cmd)
	}
	switch rule.Party {
	case PartyEmployer:
		if caller.Address != d.Employer {
			return fmt.Errorf("%w: %s requires the employer of deal %d", ErrAuthorization, cmd, d.ID)
		}
	case PartyWorker:
		if caller.Address != d.Worker {
			return fmt.Errorf("%w: %s requires the worker of deal %d", ErrAuthorization, cmd, d.ID)
		}
	case PartyArbiter:
		if !caller.Arbiter {
			return fmt.Errorf("%w: %s requires the arbiter", ErrAuthorization, cmd)
		}
	}
	if d.Halted {
		return fmt.Errorf("%w: deal %d: %s", ErrDealHalted, d.ID, d.HaltReason)
	}
	if d.Status != rule.From {
		return fmt.Errorf("%w: %s requires %s, deal %d is %s", ErrState, cmd, rule.From, d.ID, d.Status)
	}
	return nil
}

// CanTransition reports whether to is reachable from from in one step.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusOpen:
		return to == StatusActive
	case StatusActive:
		return to == StatusCompleted || to == StatusCancelledByEmployer
	default:
		return false
	}
}
