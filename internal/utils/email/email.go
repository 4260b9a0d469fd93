package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/expense-ledger/internal/config"
	"github.com/Dan9191/expense-ledger/internal/ledger"
	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email) error
	wg     sync.WaitGroup
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		logger: logger,
	}
	s.send = s.smtpSend
	return s
}

// SendAutoDebitNotice tells the owner that a loan EMI was debited.
func (s *Sender) SendAutoDebitNotice(loan models.Loan, exp *models.Expense) error {
	subject := fmt.Sprintf("Loan EMI debited: %s", loan.LenderName)
	return s.deliver(subject, autoDebitBody(loan, exp))
}

// SendJobFailures reports the items a scheduler run could not materialize.
func (s *Sender) SendJobFailures(job, period string, failures []string) error {
	subject := fmt.Sprintf("Scheduler %s: %d failed for %s", job, len(failures), period)
	return s.deliver(subject, jobFailuresBody(job, period, failures))
}

// SendIntegrityWarning reports an expense whose routing moved no balance.
func (s *Sender) SendIntegrityWarning(w ledger.IntegrityWarning) error {
	subject := fmt.Sprintf("Ledger integrity warning for expense %d", w.ExpenseID)
	return s.deliver(subject, integrityWarningBody(w))
}

// NotifyIntegrityWarning sends the warning in the background so the
// request that raised it does not wait on SMTP.
func (s *Sender) NotifyIntegrityWarning(w ledger.IntegrityWarning) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.SendIntegrityWarning(w)
	}()
}

// Wait blocks until background sends finish or ctx is done.
func (s *Sender) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sender) deliver(subject, body string) error {
	if !s.cfg.EmailEnabled() {
		s.logger.Debugf("Email disabled, dropping %q", subject)
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.NotifyEmail}
	e.Subject = subject
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", s.cfg.NotifyEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.NotifyEmail, subject)
	return nil
}

func (s *Sender) smtpSend(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}

func autoDebitBody(loan models.Loan, exp *models.Expense) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "An EMI of %s %s for your loan from %s was debited on %s.\n",
		exp.Amount.StringFixed(2), exp.Currency, loan.LenderName, exp.Date.Format("2006-01-02"))
	if exp.AccountID != nil {
		fmt.Fprintf(&b, "Account: %d\n", *exp.AccountID)
	}
	fmt.Fprintf(&b, "Remaining outstanding: %s\n",
		loan.Outstanding.Sub(exp.Amount).StringFixed(2))
	fmt.Fprintf(&b, "Expense reference: %d\n", exp.ID)
	b.WriteString("\nBest regards,\nExpense Ledger")
	return b.String()
}

func jobFailuresBody(job, period string, failures []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The %s job for period %s finished with %d failure(s) at %s:\n\n",
		job, period, len(failures), time.Now().UTC().Format("2006-01-02 15:04:05"))
	for _, f := range failures {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	b.WriteString("\nLater days do not pick these up again. Fix the cause and rerun today with POST /scheduler/run.\n\nExpense Ledger")
	return b.String()
}

func integrityWarningBody(w ledger.IntegrityWarning) string {
	return fmt.Sprintf(
		"Expense %d of user %d was saved on %s without moving any balance.\n"+
			"Payment method: %s\n"+
			"Reason: %s\n\n"+
			"Fix its routing fields to apply the effect.\n\nExpense Ledger",
		w.ExpenseID, w.UserID, w.Op, w.PaymentMethod, w.Reason,
	)
}
