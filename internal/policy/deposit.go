// Package policy enforces landlord-configured limits on lease terms before a
// lease is written.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Violation represents a policy rule a lease failed.
type Violation struct {
	RuleType    string `json:"rule_type"`
	StatuteRef  string `json:"statute_reference,omitempty"`
	Description string `json:"description"`
}

func (v *Violation) Error() string {
	if v.StatuteRef != "" {
		return fmt.Sprintf("policy violation (%s): %s [%s]", v.RuleType, v.Description, v.StatuteRef)
	}
	return fmt.Sprintf("policy violation (%s): %s", v.RuleType, v.Description)
}

// DepositLimit caps a security deposit at MaxMonths of monthly rent. A zero
// MaxMonths disables the check.
type DepositLimit struct {
	MaxMonths  decimal.Decimal
	StatuteRef string
}

// Enabled reports whether the limit is in force.
func (l DepositLimit) Enabled() bool {
	return l.MaxMonths.IsPositive()
}

// Check returns a *Violation if deposit exceeds the cap for rent.
func (l DepositLimit) Check(rent, deposit decimal.Decimal) error {
	if !l.Enabled() {
		return nil
	}
	maxDeposit := rent.Mul(l.MaxMonths)
	if deposit.GreaterThan(maxDeposit) {
		return &Violation{
			RuleType:   "security_deposit_limit",
			StatuteRef: l.StatuteRef,
			Description: fmt.Sprintf("security deposit of %s exceeds maximum of %s months rent (%s)",
				deposit, l.MaxMonths, maxDeposit),
		}
	}
	return nil
}
