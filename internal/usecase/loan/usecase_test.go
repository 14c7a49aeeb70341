package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	domain "f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/transaction"
	"f2f-lending-backend/internal/domain/uow"
	"f2f-lending-backend/internal/domain/user"
	"f2f-lending-backend/internal/testutil/activitymock"
	"f2f-lending-backend/internal/testutil/gatewaymock"
	"f2f-lending-backend/internal/testutil/loanmock"
	"f2f-lending-backend/internal/testutil/txmock"
	"f2f-lending-backend/internal/testutil/uowmock"
	"f2f-lending-backend/internal/testutil/usermock"
	"f2f-lending-backend/internal/usecase/notify"
)

const (
	lenderID   = "11111111111111111111111111111111"
	borrowerID = "22222222222222222222222222222222"
)

// fixture wires the usecase against in-memory doubles. Loans and
// transactions live in maps/slices so multi-step flows observe their own
// writes.
type fixture struct {
	loans *loanmock.Repo
	emis  *loanmock.EMIRepo
	txns  *txmock.Repo
	gw    *gatewaymock.Gateway
	dir   *usermock.Directory
	rec   *activitymock.Recorder

	storedLoans map[string]*domain.Loan
	storedEMIs  []domain.EMI
	storedTxns  []*transaction.Transaction

	uc *Usecase
}

func newFixture(t *testing.T, seed ...*domain.Loan) *fixture {
	t.Helper()
	f := &fixture{storedLoans: map[string]*domain.Loan{}}
	for i, l := range seed {
		if l.ID == 0 {
			l.ID = uint64(i + 1)
		}
		f.storedLoans[l.LoanID] = l
	}

	get := func(ctx context.Context, loanID string) (*domain.Loan, error) {
		if l, ok := f.storedLoans[loanID]; ok {
			cp := *l
			return &cp, nil
		}
		return nil, gorm.ErrRecordNotFound
	}
	f.loans = &loanmock.Repo{
		GetByLoanIDFn:          get,
		GetByLoanIDForUpdateFn: get,
		CreateFn: func(ctx context.Context, l *domain.Loan) error {
			l.ID = uint64(len(f.storedLoans) + 1)
			l.CreatedAt = time.Now().UTC()
			cp := *l
			f.storedLoans[l.LoanID] = &cp
			return nil
		},
		SaveFn: func(ctx context.Context, l *domain.Loan) error {
			cp := *l
			f.storedLoans[l.LoanID] = &cp
			return nil
		},
	}
	f.emis = &loanmock.EMIRepo{
		ListByLoanFn: func(ctx context.Context, id uint64) ([]domain.EMI, error) {
			var out []domain.EMI
			for _, e := range f.storedEMIs {
				if e.LoanID == id {
					out = append(out, e)
				}
			}
			return out, nil
		},
		CreateBatchFn: func(ctx context.Context, emis []domain.EMI) error {
			f.storedEMIs = append(f.storedEMIs, emis...)
			return nil
		},
		NextUnpaidFn: func(ctx context.Context, id uint64) (*domain.EMI, error) {
			for i := range f.storedEMIs {
				e := &f.storedEMIs[i]
				if e.LoanID == id && e.Unpaid() {
					cp := *e
					return &cp, nil
				}
			}
			return nil, nil
		},
	}
	f.txns = &txmock.Repo{
		CreateFn: func(ctx context.Context, tx *transaction.Transaction) error {
			cp := *tx
			f.storedTxns = append(f.storedTxns, &cp)
			return nil
		},
		SaveFn: func(ctx context.Context, tx *transaction.Transaction) error {
			for i, got := range f.storedTxns {
				if got.TransactionID == tx.TransactionID {
					cp := *tx
					f.storedTxns[i] = &cp
					return nil
				}
			}
			cp := *tx
			f.storedTxns = append(f.storedTxns, &cp)
			return nil
		},
		LastByLoanTypeStatusFn: func(ctx context.Context, id uint64, typ transaction.Type, st transaction.Status) (*transaction.Transaction, error) {
			for i := len(f.storedTxns) - 1; i >= 0; i-- {
				tx := f.storedTxns[i]
				if tx.LoanID != nil && *tx.LoanID == id && tx.Type == typ && tx.Status == st {
					cp := *tx
					return &cp, nil
				}
			}
			return nil, transaction.ErrNotFound
		},
	}
	f.gw = &gatewaymock.Gateway{}
	f.dir = &usermock.Directory{Profiles: map[string]user.Profile{
		lenderID:   {UserID: lenderID, Name: "Lena", UPI: "lena@upi"},
		borrowerID: {UserID: borrowerID, Name: "Boris", UPI: "boris@upi"},
	}}
	f.rec = &activitymock.Recorder{}

	repos := uow.Repos{Loans: f.loans, EMIs: f.emis, Transactions: f.txns}
	f.uc = NewUsecase(uowmock.Passthrough(repos), f.gw, f.dir, notify.NewComposer(f.rec, f.dir), nil)
	return f
}

func (f *fixture) loan(t *testing.T, loanID string) *domain.Loan {
	t.Helper()
	l, ok := f.storedLoans[loanID]
	if !ok {
		t.Fatalf("loan %s not stored", loanID)
	}
	return l
}

func pendingLoan() *domain.Loan {
	start := time.Now().UTC().AddDate(0, 1, 0)
	return &domain.Loan{
		ID:                  1,
		LoanID:              "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		LenderID:            lenderID,
		BorrowerID:          borrowerID,
		RequestedPaise:      1_000_000,
		InterestRate:        12,
		F2FInterestRate:     12,
		RepaymentMode:       domain.ModeEMI,
		EMIStartDate:        &start,
		EMITenureMonths:     6,
		IsPrepaymentAllowed: true,
		Status:              domain.StatusPending,
	}
}

// ----- CreateRequest -----

func TestCreateRequest_Success(t *testing.T) {
	f := newFixture(t)
	start := time.Now().UTC().AddDate(0, 1, 0)

	dto, err := f.uc.CreateRequest(context.Background(), CreateRequestInput{
		BorrowerID:      borrowerID,
		LenderID:        lenderID,
		AmountPaise:     1_000_000,
		F2FInterestRate: 12,
		RepaymentMode:   domain.ModeEMI,
		EMIStartDate:    &start,
		EMITenureMonths: 6,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if len(dto.LoanID) != 32 {
		t.Fatalf("LoanID length = %d", len(dto.LoanID))
	}
	if dto.Status != domain.StatusPending {
		t.Fatalf("status = %s, want PENDING", dto.Status)
	}
	if got := f.loan(t, dto.LoanID); !got.IsPrepaymentAllowed {
		t.Fatalf("new loan should allow prepayment by default")
	}
	if len(f.rec.For(lenderID)) == 0 || len(f.rec.For(borrowerID)) == 0 {
		t.Fatalf("both parties should get a submission entry")
	}
}

func TestCreateRequest_SelfLoan(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.CreateRequest(context.Background(), CreateRequestInput{
		BorrowerID:  borrowerID,
		LenderID:    borrowerID,
		AmountPaise: 1_000,
	})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest, got %v", err)
	}
}

func TestCreateRequest_BadPlan(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.CreateRequest(context.Background(), CreateRequestInput{
		BorrowerID:    borrowerID,
		LenderID:      lenderID,
		AmountPaise:   1_000,
		RepaymentMode: domain.ModeEMI, // no start date, no tenure
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

// ----- LenderDecide -----

func TestLenderDecide_RejectHappyPath(t *testing.T) {
	l := pendingLoan()
	f := newFixture(t, l)

	res, err := f.uc.LenderDecide(context.Background(), LenderDecision{
		LoanID:   l.LoanID,
		LenderID: lenderID,
		Reject:   &RejectTerms{Remarks: "too risky"},
	})
	if err != nil {
		t.Fatalf("LenderDecide: %v", err)
	}
	if res.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", res.Status)
	}
	got := f.loan(t, l.LoanID)
	if got.RejectedAt == nil || got.LenderRemarks != "too risky" {
		t.Fatalf("rejection not persisted: %+v", got)
	}
}

func TestLenderDecide_FullApproval(t *testing.T) {
	l := pendingLoan()
	f := newFixture(t, l)

	res, err := f.uc.LenderDecide(context.Background(), LenderDecision{
		LoanID:   l.LoanID,
		LenderID: lenderID,
		Approve:  &ApproveTerms{PrincipalPaise: 1_000_000, InterestRate: 12},
	})
	if err != nil {
		t.Fatalf("LenderDecide: %v", err)
	}
	if res.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", res.Status)
	}
	if res.OrderID == "" || res.PaymentURL == "" {
		t.Fatalf("approval must surface the funding order: %+v", res)
	}

	got := f.loan(t, l.LoanID)
	if got.IsInterestRateModified {
		t.Fatalf("unchanged rate must not set the modified flag")
	}
	if got.OutstandingPaise != 1_000_000 {
		t.Fatalf("outstanding = %d, want full principal", got.OutstandingPaise)
	}
	if len(f.storedTxns) != 1 {
		t.Fatalf("want one INITIATED funding transaction, got %d", len(f.storedTxns))
	}
	tx := f.storedTxns[0]
	if tx.Type != transaction.TypeLoanPayment || tx.Status != transaction.StatusInitiated {
		t.Fatalf("funding tx = %s/%s", tx.Type, tx.Status)
	}
	if tx.GatewayOrderID == nil || *tx.GatewayOrderID != res.OrderID {
		t.Fatalf("funding tx not linked to the order")
	}
}

func TestLenderDecide_PartialApprovalModifiesRate(t *testing.T) {
	l := pendingLoan()
	f := newFixture(t, l)

	res, err := f.uc.LenderDecide(context.Background(), LenderDecision{
		LoanID:   l.LoanID,
		LenderID: lenderID,
		Approve:  &ApproveTerms{PrincipalPaise: 600_000, InterestRate: 15},
	})
	if err != nil {
		t.Fatalf("LenderDecide: %v", err)
	}
	if res.Status != domain.StatusPartialApproved {
		t.Fatalf("status = %s, want PARTIAL_APPROVED", res.Status)
	}
	got := f.loan(t, l.LoanID)
	if !got.IsInterestRateModified || got.InterestRate != 15 {
		t.Fatalf("modified rate not persisted: %+v", got)
	}
	if got.F2FInterestRate != 12 {
		t.Fatalf("suggested rate must stay untouched, got %v", got.F2FInterestRate)
	}
}

func TestLenderDecide_RaceLoserGetsNotFoundOrProcessed(t *testing.T) {
	l := pendingLoan()
	f := newFixture(t, l)

	// A competing decision flips the loan after the snapshot read but
	// before the locked re-check.
	orders := 0
	f.gw.CreateOrderFn = func(ctx context.Context, amount int64, upi string, notes map[string]string) (string, error) {
		orders++
		f.storedLoans[l.LoanID].Status = domain.StatusRejected
		return "order_racy", nil
	}

	_, err := f.uc.LenderDecide(context.Background(), LenderDecision{
		LoanID:   l.LoanID,
		LenderID: lenderID,
		Approve:  &ApproveTerms{PrincipalPaise: 1_000_000, InterestRate: 12},
	})
	if !errors.Is(err, domain.ErrNotFoundOrProcessed) {
		t.Fatalf("want ErrNotFoundOrProcessed, got %v", err)
	}
	if orders != 1 {
		t.Fatalf("order should have been created before losing the race")
	}
	if len(f.storedTxns) != 0 {
		t.Fatalf("loser must not write a funding transaction")
	}
}

func TestLenderDecide_GatewayFailureLeavesPending(t *testing.T) {
	l := pendingLoan()
	f := newFixture(t, l)
	f.gw.CreateOrderFn = func(ctx context.Context, amount int64, upi string, notes map[string]string) (string, error) {
		return "", errors.New("gateway down")
	}

	_, err := f.uc.LenderDecide(context.Background(), LenderDecision{
		LoanID:   l.LoanID,
		LenderID: lenderID,
		Approve:  &ApproveTerms{PrincipalPaise: 1_000_000, InterestRate: 12},
	})
	if err == nil {
		t.Fatalf("want gateway error")
	}
	if got := f.loan(t, l.LoanID); got.Status != domain.StatusPending {
		t.Fatalf("loan must stay PENDING, got %s", got.Status)
	}
	if len(f.storedTxns) != 0 {
		t.Fatalf("no transaction may exist after a failed order")
	}
}

func TestLenderDecide_NoPayoutAccount(t *testing.T) {
	l := pendingLoan()
	f := newFixture(t, l)
	f.dir.Profiles[lenderID] = user.Profile{UserID: lenderID, Name: "Lena"} // no UPI

	_, err := f.uc.LenderDecide(context.Background(), LenderDecision{
		LoanID:   l.LoanID,
		LenderID: lenderID,
		Approve:  &ApproveTerms{PrincipalPaise: 1_000_000, InterestRate: 12},
	})
	if !errors.Is(err, user.ErrNoPayoutAccount) {
		t.Fatalf("want ErrNoPayoutAccount, got %v", err)
	}
}

func TestLenderDecide_WrongLender(t *testing.T) {
	l := pendingLoan()
	f := newFixture(t, l)

	_, err := f.uc.LenderDecide(context.Background(), LenderDecision{
		LoanID:   l.LoanID,
		LenderID: borrowerID,
		Reject:   &RejectTerms{},
	})
	if !errors.Is(err, domain.ErrNotFoundOrProcessed) {
		t.Fatalf("want ErrNotFoundOrProcessed, got %v", err)
	}
}

func TestLenderDecide_BothOrNeitherVariant(t *testing.T) {
	f := newFixture(t)
	if _, err := f.uc.LenderDecide(context.Background(), LenderDecision{LoanID: "x", LenderID: lenderID}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("neither set: want ErrValidation, got %v", err)
	}
	_, err := f.uc.LenderDecide(context.Background(), LenderDecision{
		LoanID: "x", LenderID: lenderID,
		Approve: &ApproveTerms{}, Reject: &RejectTerms{},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("both set: want ErrValidation, got %v", err)
	}
}

// ----- BorrowerDecide -----

func partialLoan(funded bool) *domain.Loan {
	l := pendingLoan()
	l.Status = domain.StatusPartialApproved
	l.PrincipalPaise = 600_000
	l.OutstandingPaise = 600_000
	l.GatewayOrderID = "order_funding"
	l.IsFundedByLender = funded
	if funded {
		now := time.Now().UTC()
		l.FundedAt = &now
	}
	return l
}

func TestBorrowerDecide_AcceptBeforeFunding(t *testing.T) {
	l := partialLoan(false)
	f := newFixture(t, l)

	res, err := f.uc.BorrowerDecide(context.Background(), BorrowerDecision{
		LoanID: l.LoanID, BorrowerID: borrowerID, Decision: DecisionAccept,
	})
	if err != nil {
		t.Fatalf("BorrowerDecide: %v", err)
	}
	if res.Status != domain.StatusPartialLoanAccepted {
		t.Fatalf("status = %s, want PARTIAL_LOAN_ACCEPTED", res.Status)
	}
	if got := f.loan(t, l.LoanID); got.AcceptedAt == nil {
		t.Fatalf("accepted_at not stamped")
	}
}

func TestBorrowerDecide_AcceptAfterFundingDisburses(t *testing.T) {
	l := partialLoan(true)
	f := newFixture(t, l)

	res, err := f.uc.BorrowerDecide(context.Background(), BorrowerDecision{
		LoanID: l.LoanID, BorrowerID: borrowerID, Decision: DecisionAccept,
	})
	if err != nil {
		t.Fatalf("BorrowerDecide: %v", err)
	}
	if res.Status != domain.StatusOngoing {
		t.Fatalf("status = %s, want ONGOING", res.Status)
	}
	got := f.loan(t, l.LoanID)
	if got.Status != domain.StatusOngoing {
		t.Fatalf("loan = %s, want ONGOING", got.Status)
	}
	if len(f.storedEMIs) != l.EMITenureMonths {
		t.Fatalf("schedule rows = %d, want %d", len(f.storedEMIs), l.EMITenureMonths)
	}
	var payout *transaction.Transaction
	for _, tx := range f.storedTxns {
		if tx.Type == transaction.TypePayout {
			payout = tx
		}
	}
	if payout == nil || payout.Status != transaction.StatusCompleted {
		t.Fatalf("payout not completed: %+v", payout)
	}
	if payout.AmountPaise != 600_000 {
		t.Fatalf("payout amount = %d, want offered principal", payout.AmountPaise)
	}
}

func TestBorrowerDecide_CancelUnfunded(t *testing.T) {
	l := partialLoan(false)
	f := newFixture(t, l)

	res, err := f.uc.BorrowerDecide(context.Background(), BorrowerDecision{
		LoanID: l.LoanID, BorrowerID: borrowerID, Decision: DecisionCancel,
	})
	if err != nil {
		t.Fatalf("BorrowerDecide: %v", err)
	}
	if res.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", res.Status)
	}
	if len(f.storedTxns) != 0 {
		t.Fatalf("unfunded cancel must not move money")
	}
}

func TestBorrowerDecide_CancelFundedRefundsLender(t *testing.T) {
	l := partialLoan(true)
	f := newFixture(t, l)

	res, err := f.uc.BorrowerDecide(context.Background(), BorrowerDecision{
		LoanID: l.LoanID, BorrowerID: borrowerID, Decision: DecisionCancel,
	})
	if err != nil {
		t.Fatalf("BorrowerDecide: %v", err)
	}
	if res.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", res.Status)
	}
	if len(f.storedTxns) != 1 {
		t.Fatalf("want one refund transaction, got %d", len(f.storedTxns))
	}
	tx := f.storedTxns[0]
	if tx.Type != transaction.TypeRefund || tx.Status != transaction.StatusCompleted {
		t.Fatalf("refund tx = %s/%s", tx.Type, tx.Status)
	}
	if tx.AmountPaise != 600_000 {
		t.Fatalf("refund amount = %d, want escrowed principal", tx.AmountPaise)
	}
	if got := f.loan(t, l.LoanID); got.CancelledByBorrowerAt == nil {
		t.Fatalf("cancelled_by_borrower_at not stamped")
	}
}

func TestBorrowerDecide_CancelFundedRefundFailure(t *testing.T) {
	l := partialLoan(true)
	f := newFixture(t, l)
	f.gw.RefundFn = func(ctx context.Context, upi string, amount int64, ref string) (string, map[string]string, error) {
		return "", nil, errors.New("refund rejected")
	}

	_, err := f.uc.BorrowerDecide(context.Background(), BorrowerDecision{
		LoanID: l.LoanID, BorrowerID: borrowerID, Decision: DecisionCancel,
	})
	if err == nil {
		t.Fatalf("want refund failure surfaced")
	}
	if got := f.loan(t, l.LoanID); got.Status != domain.StatusPartialApproved {
		t.Fatalf("loan must stay PARTIAL_APPROVED after failed refund, got %s", got.Status)
	}
	if f.storedTxns[0].Status != transaction.StatusFailed {
		t.Fatalf("refund attempt must be recorded FAILED")
	}
}

func TestBorrowerDecide_CancelLosesRaceToAccept(t *testing.T) {
	l := partialLoan(true)
	f := newFixture(t, l)
	// The borrower accepts on a concurrent request while the refund call
	// is in flight; the accept funds the payout and moves the loan to
	// ONGOING before the cancel's confirm step runs.
	f.gw.RefundFn = func(ctx context.Context, upi string, amount int64, ref string) (string, map[string]string, error) {
		if _, err := f.uc.BorrowerDecide(context.Background(), BorrowerDecision{
			LoanID: l.LoanID, BorrowerID: borrowerID, Decision: DecisionAccept,
		}); err != nil {
			t.Fatalf("concurrent accept: %v", err)
		}
		return "rfnd_1", map[string]string{"status": "processed"}, nil
	}

	_, err := f.uc.BorrowerDecide(context.Background(), BorrowerDecision{
		LoanID: l.LoanID, BorrowerID: borrowerID, Decision: DecisionCancel,
	})
	if !errors.Is(err, domain.ErrNotFoundOrProcessed) {
		t.Fatalf("lost cancel: want ErrNotFoundOrProcessed, got %v", err)
	}

	got := f.loan(t, l.LoanID)
	if got.Status != domain.StatusOngoing {
		t.Fatalf("accept must win: loan = %s, want ONGOING", got.Status)
	}
	if got.CancelledByBorrowerAt != nil {
		t.Fatalf("lost cancel must not stamp cancelled_by_borrower_at")
	}
	var refund *transaction.Transaction
	for _, tx := range f.storedTxns {
		if tx.Type == transaction.TypeRefund {
			refund = tx
		}
	}
	if refund == nil || refund.Status != transaction.StatusCompleted {
		t.Fatalf("refund must stay on the ledger: %+v", refund)
	}
	if refund.Metadata["needs_reconciliation"] != "true" {
		t.Fatalf("out-of-band refund not flagged: %v", refund.Metadata)
	}
}

func TestBorrowerDecide_WrongStateOrParty(t *testing.T) {
	l := pendingLoan() // still PENDING
	f := newFixture(t, l)

	_, err := f.uc.BorrowerDecide(context.Background(), BorrowerDecision{
		LoanID: l.LoanID, BorrowerID: borrowerID, Decision: DecisionAccept,
	})
	if !errors.Is(err, domain.ErrNotFoundOrProcessed) {
		t.Fatalf("PENDING loan: want ErrNotFoundOrProcessed, got %v", err)
	}

	l2 := partialLoan(false)
	f2 := newFixture(t, l2)
	_, err = f2.uc.BorrowerDecide(context.Background(), BorrowerDecision{
		LoanID: l2.LoanID, BorrowerID: lenderID, Decision: DecisionAccept,
	})
	if !errors.Is(err, domain.ErrNotFoundOrProcessed) {
		t.Fatalf("wrong party: want ErrNotFoundOrProcessed, got %v", err)
	}
}

// ----- DrivePayout -----

func TestDrivePayout_GatewayFailureKeepsLoanState(t *testing.T) {
	l := pendingLoan()
	l.Status = domain.StatusApproved
	l.PrincipalPaise = 1_000_000
	l.OutstandingPaise = 1_000_000
	l.IsFundedByLender = true
	f := newFixture(t, l)
	f.gw.PayoutFn = func(ctx context.Context, upi string, amount int64, ref string) (string, map[string]string, error) {
		return "", nil, errors.New("payout bounced")
	}

	err := f.uc.DrivePayout(context.Background(), l.LoanID)
	if err == nil {
		t.Fatalf("want payout failure surfaced")
	}
	if got := f.loan(t, l.LoanID); got.Status != domain.StatusApproved {
		t.Fatalf("loan must stay APPROVED, got %s", got.Status)
	}
	if f.storedTxns[0].Status != transaction.StatusFailed {
		t.Fatalf("payout attempt must be recorded FAILED")
	}
	if len(f.storedEMIs) != 0 {
		t.Fatalf("no schedule may exist before disbursal")
	}
}

func TestDrivePayout_ResumesInitiatedAttempt(t *testing.T) {
	l := pendingLoan()
	l.Status = domain.StatusApproved
	l.PrincipalPaise = 1_000_000
	l.OutstandingPaise = 1_000_000
	l.IsFundedByLender = true
	f := newFixture(t, l)

	now := time.Now().UTC()
	stale := &transaction.Transaction{
		TransactionID: "ffffffffffffffffffffffffffffffff",
		LoanID:        &l.ID,
		ReceiverID:    &l.BorrowerID,
		AmountPaise:   1_000_000,
		Type:          transaction.TypePayout,
		Status:        transaction.StatusInitiated,
		ReferenceID:   "payout-stale",
		InitiatedAt:   &now,
	}
	f.storedTxns = append(f.storedTxns, stale)

	if err := f.uc.DrivePayout(context.Background(), l.LoanID); err != nil {
		t.Fatalf("DrivePayout: %v", err)
	}
	payouts := 0
	for _, tx := range f.storedTxns {
		if tx.Type == transaction.TypePayout {
			payouts++
			if tx.TransactionID != stale.TransactionID {
				t.Fatalf("a fresh payout row was cut instead of resuming")
			}
			if tx.Status != transaction.StatusCompleted {
				t.Fatalf("resumed payout = %s, want COMPLETED", tx.Status)
			}
		}
	}
	if payouts != 1 {
		t.Fatalf("payout rows = %d, want 1", payouts)
	}
}

func TestDrivePayout_BacksOffWhileAnotherDriverIsInFlight(t *testing.T) {
	l := pendingLoan()
	l.Status = domain.StatusApproved
	l.PrincipalPaise = 1_000_000
	l.OutstandingPaise = 1_000_000
	l.IsFundedByLender = true
	f := newFixture(t, l)

	now := time.Now().UTC()
	f.storedTxns = append(f.storedTxns, &transaction.Transaction{
		TransactionID: "ffffffffffffffffffffffffffffffff",
		LoanID:        &l.ID,
		ReceiverID:    &l.BorrowerID,
		AmountPaise:   1_000_000,
		Type:          transaction.TypePayout,
		Status:        transaction.StatusPending,
		ReferenceID:   "payout-claimed",
		InitiatedAt:   &now,
	})

	calls := 0
	f.gw.PayoutFn = func(ctx context.Context, upi string, amount int64, ref string) (string, map[string]string, error) {
		calls++
		return "pout_dup", nil, nil
	}

	if err := f.uc.DrivePayout(context.Background(), l.LoanID); err != nil {
		t.Fatalf("DrivePayout: %v", err)
	}
	if calls != 0 {
		t.Fatalf("second driver must not hit the gateway, calls = %d", calls)
	}
	if got := f.loan(t, l.LoanID); got.Status != domain.StatusApproved {
		t.Fatalf("loan = %s, want APPROVED until the claiming driver confirms", got.Status)
	}
	if f.storedTxns[0].Status != transaction.StatusPending {
		t.Fatalf("claimed payout = %s, want PENDING", f.storedTxns[0].Status)
	}
}

func TestDrivePayout_StateChangeDuringCallFlagsPayout(t *testing.T) {
	l := pendingLoan()
	l.Status = domain.StatusApproved
	l.PrincipalPaise = 1_000_000
	l.OutstandingPaise = 1_000_000
	l.IsFundedByLender = true
	f := newFixture(t, l)
	// The loan is cancelled out from under the driver while the gateway
	// call is running.
	f.gw.PayoutFn = func(ctx context.Context, upi string, amount int64, ref string) (string, map[string]string, error) {
		f.storedLoans[l.LoanID].Status = domain.StatusCancelled
		return "pout_1", map[string]string{"status": "processed"}, nil
	}

	err := f.uc.DrivePayout(context.Background(), l.LoanID)
	if !errors.Is(err, domain.ErrNotFoundOrProcessed) {
		t.Fatalf("want ErrNotFoundOrProcessed, got %v", err)
	}
	if got := f.loan(t, l.LoanID); got.Status != domain.StatusCancelled {
		t.Fatalf("loan = %s, must keep the later state", got.Status)
	}
	if len(f.storedEMIs) != 0 {
		t.Fatalf("no schedule may be cut for a conflicted payout")
	}
	payout := f.storedTxns[0]
	if payout.Status != transaction.StatusCompleted {
		t.Fatalf("payout = %s, want COMPLETED on the ledger", payout.Status)
	}
	if payout.Metadata["needs_reconciliation"] != "true" {
		t.Fatalf("out-of-band payout not flagged: %v", payout.Metadata)
	}
}

func TestDrivePayout_RequiresConsentAndFunding(t *testing.T) {
	l := partialLoan(true) // funded but not accepted
	f := newFixture(t, l)
	if err := f.uc.DrivePayout(context.Background(), l.LoanID); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("unaccepted partial: want ErrInvalidRequest, got %v", err)
	}
}

// ----- MarkDefaulted -----

func TestMarkDefaulted(t *testing.T) {
	l := pendingLoan()
	l.Status = domain.StatusOngoing
	l.PrincipalPaise = 1_000_000
	f := newFixture(t, l)

	if err := f.uc.MarkDefaulted(context.Background(), l.LoanID); err != nil {
		t.Fatalf("MarkDefaulted: %v", err)
	}
	if got := f.loan(t, l.LoanID); got.Status != domain.StatusDefaulted {
		t.Fatalf("status = %s, want DEFAULTED", got.Status)
	}
	if err := f.uc.MarkDefaulted(context.Background(), l.LoanID); !errors.Is(err, domain.ErrNotFoundOrProcessed) {
		t.Fatalf("second default: want ErrNotFoundOrProcessed, got %v", err)
	}
}
