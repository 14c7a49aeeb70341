package notify

import (
	"context"
	"fmt"
	"log"

	"f2f-lending-backend/internal/domain/activity"
	"f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/user"
)

// Composer turns a loan status change into one activity-log entry per
// affected party. The two messages differ in voice but describe the same
// event; this is a user-experience contract, not application logic.
type Composer struct {
	rec activity.Recorder
	dir user.Directory
}

func NewComposer(rec activity.Recorder, dir user.Directory) *Composer {
	return &Composer{rec: rec, dir: dir}
}

// StatusUpdate records the borrower-facing and lender-facing entries for
// the given transition. Failures never propagate: the state change already
// committed.
func (c *Composer) StatusUpdate(ctx context.Context, l *loan.Loan, status loan.Status) {
	borrower := c.name(ctx, l.BorrowerID)
	lender := c.name(ctx, l.LenderID)

	ref := l.LoanID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	principal := rupees(l.PrincipalPaise)
	requested := rupees(l.RequestedPaise)

	logb := func(actor, msg string) { c.rec.Record(ctx, l.BorrowerID, actor, msg, activity.KindInfo) }
	logl := func(actor, msg string) { c.rec.Record(ctx, l.LenderID, actor, msg, activity.KindInfo) }

	switch status {
	case loan.StatusPending:
		logb(l.BorrowerID, fmt.Sprintf("Your loan request of %s has been submitted. Loan reference #%s.", requested, ref))
		logl(l.BorrowerID, fmt.Sprintf("%s has requested a loan of %s. Reference #%s.", borrower, requested, ref))

	case loan.StatusApproved:
		if l.IsInterestRateModified {
			logb(l.LenderID, fmt.Sprintf("Your loan #%s of %s has been approved at %.2f%% annual interest by %s.", ref, principal, l.InterestRate, lender))
			logl(l.LenderID, fmt.Sprintf("You approved loan #%s of %s for %s with modified interest rate %.2f%%.", ref, principal, borrower, l.InterestRate))
		} else {
			logb(l.LenderID, fmt.Sprintf("Your loan #%s of %s has been approved by %s.", ref, principal, lender))
			logl(l.LenderID, fmt.Sprintf("You approved loan #%s of %s for %s.", ref, principal, borrower))
		}

	case loan.StatusPartialApproved:
		logb(l.LenderID, fmt.Sprintf("%s offered %s against your request of %s on loan #%s. Accept or cancel the offer.", lender, principal, requested, ref))
		logl(l.LenderID, fmt.Sprintf("You offered %s against the requested %s on loan #%s. Awaiting %s's decision.", principal, requested, ref, borrower))

	case loan.StatusRejected:
		logb(l.LenderID, fmt.Sprintf("Your loan #%s of %s was rejected by %s.", ref, requested, lender))
		logl(l.LenderID, fmt.Sprintf("You rejected loan #%s of %s requested by %s.", ref, requested, borrower))

	case loan.StatusOngoing:
		if l.IsInterestRateModified {
			logb(l.BorrowerID, fmt.Sprintf("You accepted loan #%s of %s from %s at %.2f%% annual interest.", ref, principal, lender, l.InterestRate))
			logl(l.BorrowerID, fmt.Sprintf("Loan #%s of %s accepted by %s at %.2f%% annual interest.", ref, principal, borrower, l.InterestRate))
		} else {
			logb(l.BorrowerID, fmt.Sprintf("You accepted loan #%s of %s from %s.", ref, principal, lender))
			logl(l.BorrowerID, fmt.Sprintf("Loan #%s of %s accepted by %s.", ref, principal, borrower))
		}

	case loan.StatusCancelled:
		logb(l.BorrowerID, fmt.Sprintf("You cancelled loan #%s of %s offered by %s.", ref, principal, lender))
		logl(l.BorrowerID, fmt.Sprintf("Loan #%s of %s cancelled by %s. The amount will be refunded.", ref, principal, borrower))

	case loan.StatusCompleted:
		logb(l.BorrowerID, fmt.Sprintf("You fully repaid loan #%s of %s to %s.", ref, principal, lender))
		logl(l.BorrowerID, fmt.Sprintf("Loan #%s of %s has been fully repaid by %s.", ref, principal, borrower))

	case loan.StatusClosedEarly:
		logb(l.BorrowerID, fmt.Sprintf("You closed loan #%s early by prepaying %s to %s.", ref, principal, lender))
		logl(l.BorrowerID, fmt.Sprintf("Loan #%s of %s was closed early by %s.", ref, principal, borrower))

	case loan.StatusDefaulted:
		c.rec.Record(ctx, l.BorrowerID, l.LenderID, fmt.Sprintf("Loan #%s of %s has been marked as defaulted.", ref, principal), activity.KindAlert)
		c.rec.Record(ctx, l.LenderID, l.LenderID, fmt.Sprintf("Loan #%s of %s owed by %s has been marked as defaulted.", ref, principal, borrower), activity.KindAlert)
	}
}

func (c *Composer) name(ctx context.Context, userID string) string {
	p, err := c.dir.Resolve(ctx, userID)
	if err != nil || p == nil || p.Name == "" {
		log.Printf("notify: resolve %s: %v", userID, err)
		return "the counterparty"
	}
	return p.Name
}

// rupees renders paise as an INR display amount, dropping ".00".
func rupees(paise int64) string {
	if paise%100 == 0 {
		return fmt.Sprintf("₹%d", paise/100)
	}
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
