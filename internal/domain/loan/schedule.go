package loan

import (
	"fmt"
	"math"
	"time"
)

// Pure amount-reconciliation helpers. Nothing in this file touches storage;
// calling any function twice with the same inputs yields the same output.

// ValidatePlan checks that exactly one repayment-plan shape is populated
// for the given mode.
func ValidatePlan(mode RepaymentMode, emiStart *time.Time, onetime *time.Time, tenureMonths int) error {
	switch mode {
	case ModeEMI:
		if emiStart == nil {
			return fmt.Errorf("%w: emi_start_date is required for EMI mode", ErrValidation)
		}
		if tenureMonths <= 0 {
			return fmt.Errorf("%w: emi_tenure_months must be positive for EMI mode", ErrValidation)
		}
		if onetime != nil {
			return fmt.Errorf("%w: onetime_repayment_date must be empty for EMI mode", ErrValidation)
		}
	case ModeOnetime:
		if onetime == nil {
			return fmt.Errorf("%w: onetime_repayment_date is required for ONETIME mode", ErrValidation)
		}
		if emiStart != nil || tenureMonths != 0 {
			return fmt.Errorf("%w: emi fields must be empty for ONETIME mode", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown repayment mode %q", ErrValidation, mode)
	}
	return nil
}

// ValidateOffer checks a lender offer against the borrower's request.
func ValidateOffer(requestedPaise, principalPaise int64, rate float64) error {
	if principalPaise <= 0 {
		return fmt.Errorf("%w: principal must be greater than zero", ErrValidation)
	}
	if principalPaise > requestedPaise {
		return fmt.Errorf("%w: approved amount exceeds requested", ErrValidation)
	}
	if rate < 0 || rate > 100 {
		return fmt.Errorf("%w: interest rate must be within [0,100]", ErrValidation)
	}
	return nil
}

// BuildSchedule produces the full installment plan for a funded loan:
// exactly tenureMonths rows, due dates advancing one calendar month from
// start (day-of-month clamped for shorter months), reducing-balance
// amortization in integer paise. The rounding remainder is folded into the
// final installment so the principal components sum to principalPaise
// exactly.
func BuildSchedule(principalPaise int64, annualRate float64, tenureMonths int, start time.Time) ([]EMI, error) {
	if principalPaise <= 0 {
		return nil, fmt.Errorf("%w: principal must be positive", ErrValidation)
	}
	if tenureMonths <= 0 {
		return nil, fmt.Errorf("%w: tenure must be positive", ErrValidation)
	}
	monthly := annualRate / 12 / 100

	// Fixed installment amount. With a zero rate this degenerates to an
	// equal principal split.
	var installment int64
	if monthly == 0 {
		installment = int64(math.Round(float64(principalPaise) / float64(tenureMonths)))
	} else {
		factor := math.Pow(1+monthly, float64(tenureMonths))
		installment = int64(math.Round(float64(principalPaise) * monthly * factor / (factor - 1)))
	}

	out := make([]EMI, 0, tenureMonths)
	balance := principalPaise
	for n := 1; n <= tenureMonths; n++ {
		interest := int64(math.Round(float64(balance) * monthly))
		principal := installment - interest
		if n == tenureMonths || principal > balance {
			principal = balance
		}
		balance -= principal
		out = append(out, EMI{
			Number:         n,
			DueDate:        addMonthsClamped(start, n-1),
			AmountPaise:    principal + interest,
			PrincipalPaise: principal,
			InterestPaise:  interest,
			Status:         EMIPending,
		})
	}
	return out, nil
}

// OnetimeAmountDue is the single-repayment figure: principal plus simple
// interest prorated by elapsed days over a 365-day year.
func OnetimeAmountDue(principalPaise int64, annualRate float64, fundedAt, dueDate time.Time) int64 {
	days := int64(dueDate.Sub(fundedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	interest := int64(math.Round(float64(principalPaise) * annualRate / 100 * float64(days) / 365))
	return principalPaise + interest
}

// RecomputeOutstanding returns principal minus repaid. A negative result is
// a reconciliation bug upstream and surfaces as ErrInvariantViolation.
func RecomputeOutstanding(l *Loan) (int64, error) {
	out := l.PrincipalPaise - l.PrincipalRepaidPaise
	if out < 0 {
		return 0, fmt.Errorf("%w: outstanding would be negative (principal=%d repaid=%d) for loan %s",
			ErrInvariantViolation, l.PrincipalPaise, l.PrincipalRepaidPaise, l.LoanID)
	}
	return out, nil
}

// addMonthsClamped advances by whole calendar months keeping the
// day-of-month, clamping to the last day of shorter months (Jan 31 + 1
// month = Feb 28/29, not Mar 3).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}
