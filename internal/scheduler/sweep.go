package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"f2f-lending-backend/internal/domain/activity"
	"f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/uow"
)

// Sweep walks the live book once a day: nudges borrowers ahead of a due
// date and flags installments that slipped past it. It never moves money
// and never changes loan status; collection and default are explicit
// actions elsewhere.
type Sweep struct {
	uow uow.UnitOfWork
	rec activity.Recorder

	cron *cron.Cron
}

func NewSweep(tx uow.UnitOfWork, rec activity.Recorder) *Sweep {
	return &Sweep{uow: tx, rec: rec}
}

// Start registers the sweep on the given cron schedule and launches the
// scheduler.
func (s *Sweep) Start(spec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.Run(ctx); err != nil {
			log.Printf("sweep: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweep) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Run executes one sweep pass. Exported so an operator can trigger it out
// of schedule.
func (s *Sweep) Run(ctx context.Context) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var ongoing []loan.Loan
	err := s.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		ongoing, err = r.Loans.ListByStatus(ctx, loan.StatusOngoing)
		return err
	})
	if err != nil {
		return err
	}

	for i := range ongoing {
		if err := s.sweepLoan(ctx, &ongoing[i], today); err != nil {
			// One bad loan must not starve the rest of the book.
			log.Printf("sweep: loan %s: %v", ongoing[i].LoanID, err)
		}
	}
	return nil
}

func (s *Sweep) sweepLoan(ctx context.Context, l *loan.Loan, today time.Time) error {
	if l.RepaymentMode != loan.ModeEMI {
		return s.sweepOnetime(ctx, l, today)
	}

	return s.uow.WithinTx(ctx, func(r uow.Repos) error {
		rows, err := r.EMIs.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		for i := range rows {
			e := &rows[i]
			if e.Status != loan.EMIPending {
				continue
			}
			due := e.DueDate.UTC().Truncate(24 * time.Hour)
			switch daysUntil := int(due.Sub(today).Hours() / 24); {
			case due.Before(today):
				e.Status = loan.EMIMissed
				if err := r.EMIs.Save(ctx, e); err != nil {
					return err
				}
				s.rec.Record(ctx, l.BorrowerID, l.LenderID,
					fmt.Sprintf("Installment %d on loan #%s was due on %s and is now overdue.",
						e.Number, shortRef(l.LoanID), due.Format("02 Jan 2006")),
					activity.KindAlert)
			case daysUntil == 5 || daysUntil == 1:
				s.rec.Record(ctx, l.BorrowerID, l.LenderID,
					fmt.Sprintf("Installment %d of %s on loan #%s is due on %s.",
						e.Number, rupees(e.AmountPaise+e.PenaltyPaise), shortRef(l.LoanID), due.Format("02 Jan 2006")),
					activity.KindInfo)
			}
		}
		return nil
	})
}

func (s *Sweep) sweepOnetime(ctx context.Context, l *loan.Loan, today time.Time) error {
	if l.OnetimeRepaymentDate == nil {
		return nil
	}
	due := l.OnetimeRepaymentDate.UTC().Truncate(24 * time.Hour)
	switch daysUntil := int(due.Sub(today).Hours() / 24); {
	case due.Before(today):
		s.rec.Record(ctx, l.BorrowerID, l.LenderID,
			fmt.Sprintf("Repayment on loan #%s was due on %s and is now overdue.",
				shortRef(l.LoanID), due.Format("02 Jan 2006")),
			activity.KindAlert)
	case daysUntil == 5 || daysUntil == 1:
		s.rec.Record(ctx, l.BorrowerID, l.LenderID,
			fmt.Sprintf("Repayment on loan #%s is due on %s.",
				shortRef(l.LoanID), due.Format("02 Jan 2006")),
			activity.KindInfo)
	}
	return nil
}

func shortRef(loanID string) string {
	if len(loanID) > 8 {
		return loanID[:8]
	}
	return loanID
}

func rupees(paise int64) string {
	if paise%100 == 0 {
		return fmt.Sprintf("₹%d", paise/100)
	}
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
