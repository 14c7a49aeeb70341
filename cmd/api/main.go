package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	httpadp "f2f-lending-backend/internal/adapter/http"
	"f2f-lending-backend/internal/adapter/gateway/razorpay"
	appmw "f2f-lending-backend/internal/adapter/middleware"
	"f2f-lending-backend/internal/adapter/repository/mysql"
	"f2f-lending-backend/internal/config"
	"f2f-lending-backend/internal/infrastructure/cache"
	"f2f-lending-backend/internal/infrastructure/db"
	"f2f-lending-backend/internal/scheduler"
	loanuc "f2f-lending-backend/internal/usecase/loan"
	"f2f-lending-backend/internal/usecase/notify"
	pruc "f2f-lending-backend/internal/usecase/paymentrequest"
	useruc "f2f-lending-backend/internal/usecase/user"
	"f2f-lending-backend/internal/usecase/webhook"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	gw := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret,
		cfg.RazorpayWebhookSecret, cfg.RazorpayAccountNumber)

	uow := mysql.NewGormUoW(gdb)
	dir := mysql.NewDirectory(gdb)
	rec := mysql.NewActivityRecorder(gdb)
	composer := notify.NewComposer(rec, dir)

	loans := loanuc.NewUsecase(uow, gw, dir, composer, nil)
	webhooks := webhook.NewUsecase(uow, gw, dir, rec, composer, loans)
	payreqs := pruc.NewUsecase(uow, dir)
	users := useruc.NewUsecase(uow)

	h := httpadp.NewHandler()
	lh := httpadp.NewLoanHandler(loans)
	wh := httpadp.NewWebhookHandler(webhooks, gw)
	ph := httpadp.NewPaymentRequestHandler(payreqs)
	uh := httpadp.NewUserHandler(users)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	e.GET("/health", h.Health)
	e.POST("/users", uh.Create)
	// Webhooks authenticate by signature, not by actor headers.
	e.POST("/webhooks/razorpay", wh.Razorpay)

	idemp := appmw.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	lg := e.Group("/loans", idemp)
	lg.POST("", lh.CreateLoan)
	lg.GET("/:loan_id", lh.GetLoan)
	lg.POST("/:loan_id/offer", lh.Offer)
	lg.POST("/:loan_id/decision", lh.Decision)
	lg.POST("/:loan_id/repayments", lh.CreateRepayment)
	lg.POST("/:loan_id/payout-retry", lh.RetryPayout)

	e.GET("/summary/lender", lh.LenderSummary)
	e.GET("/summary/borrower", lh.BorrowerSummary)

	pg := e.Group("/payment-requests", idemp)
	pg.POST("", ph.Create)
	pg.GET("", ph.List)
	pg.POST("/:request_id/respond", ph.Respond)

	sweep := scheduler.NewSweep(uow, rec)
	if err := sweep.Start(cfg.SweepSchedule); err != nil {
		log.Fatal(err)
	}
	defer sweep.Stop()

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
