package reservation

import (
	"time"

	"github.com/shopspring/decimal"

	"backoffice.GO/config"
)

// DueDate applies policy to a reservation created at from. A positive
// subtotal with deposit >= ratio x subtotal earns the long window.
func DueDate(policy config.ReservationPolicy, from time.Time, deposit, subtotal decimal.Decimal) time.Time {
	days := policy.ShortDays
	if subtotal.IsPositive() && deposit.GreaterThanOrEqual(subtotal.Mul(policy.DepositRatio)) {
		days = policy.LongDays
	}
	if policy.BusinessDays {
		return AddBusinessDays(from, days)
	}
	return from.AddDate(0, 0, days)
}

// AddBusinessDays steps forward one day at a time, counting Monday to Friday only.
func AddBusinessDays(from time.Time, days int) time.Time {
	current := from
	for added := 0; added < days; {
		current = current.AddDate(0, 0, 1)
		if wd := current.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return current
}
