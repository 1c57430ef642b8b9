// Package sms sends messages through the provider gateway and keeps the
// school's prepaid credit ledger. Every attempt is logged; credits are only
// debited when the provider answers with its success code.
package sms

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/metrics"
	"github.com/Spok95/school-office/internal/models"
	"go.uber.org/zap"
)

const DefaultSuccessCode = "202"

// Ledger: баланс и журнал; *db.Store.
type Ledger interface {
	SMSBalance(ctx context.Context, schoolID int64) (int64, error)
	RecordSMS(ctx context.Context, l models.SMSLog, debit int64) error
}

type Options struct {
	SuccessCode string
	CostPerSMS  float64
}

type Service struct {
	gw     Gateway
	ledger Ledger
	opts   Options
	log    *zap.Logger
}

func NewService(gw Gateway, ledger Ledger, opts Options, log *zap.Logger) *Service {
	if opts.SuccessCode == "" {
		opts.SuccessCode = DefaultSuccessCode
	}
	return &Service{gw: gw, ledger: ledger, opts: opts, log: logging.OrNop(log)}
}

// Send: одна попытка отправки одного текста нескольким получателям.
// Возвращает записанную строку журнала.
func (s *Service) Send(ctx context.Context, schoolID int64, to []string, message string) (*models.SMSLog, error) {
	to = normalizeRecipients(to)
	message = strings.TrimSpace(message)
	var fields []apperr.FieldError
	if len(to) == 0 {
		fields = append(fields, apperr.FieldError{Field: "to", Error: "no recipients"})
	}
	if message == "" {
		fields = append(fields, apperr.FieldError{Field: "message", Error: "empty"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid sms request", fields...)
	}

	need := Segments(message) * int64(len(to))
	entry := models.SMSLog{SchoolID: schoolID, Recipients: to, Message: message}

	balance, err := s.ledger.SMSBalance(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if balance < need {
		entry.Outcome = models.SMSRejected
		entry.ProviderMsg = fmt.Sprintf("balance %d, need %d", balance, need)
		_ = s.record(ctx, entry, 0)
		return &entry, apperr.Validation("insufficient SMS balance",
			apperr.FieldError{Field: "balance", Error: entry.ProviderMsg})
	}

	gctx, cancel := ctxutil.WithGatewayTimeout(ctx)
	resp, err := s.gw.Send(gctx, to, message)
	cancel()
	entry.ProviderCode, entry.ProviderMsg = resp.Code, resp.Message

	switch {
	case err != nil:
		entry.Outcome = models.SMSError
		entry.ProviderMsg = err.Error()
		_ = s.record(ctx, entry, 0)
		return &entry, apperr.External("sms", "", "gateway unavailable", err)
	case resp.Code != s.opts.SuccessCode:
		entry.Outcome = models.SMSFailed
		_ = s.record(ctx, entry, 0)
		return &entry, apperr.External("sms", resp.Code, resp.Message, nil)
	}

	entry.Outcome = models.SMSSent
	entry.SentCount = need
	entry.Cost = math.Round(float64(need)*s.opts.CostPerSMS*100) / 100
	if err := s.record(ctx, entry, need); err != nil {
		// провайдер уже отправил; без записи баланс разойдётся
		return &entry, apperr.Wrap(err, "sms sent but ledger not updated")
	}
	return &entry, nil
}

func (s *Service) record(ctx context.Context, entry models.SMSLog, debit int64) error {
	metrics.SMSAttempts.WithLabelValues(string(entry.Outcome)).Inc()
	if err := s.ledger.RecordSMS(ctx, entry, debit); err != nil {
		s.log.Error("sms log write failed",
			zap.Int64("school_id", entry.SchoolID),
			zap.String("outcome", string(entry.Outcome)),
			zap.Int64("debit", debit),
			zap.Error(err))
		return err
	}
	s.log.Info("sms attempt",
		zap.Int64("school_id", entry.SchoolID),
		zap.Int("recipients", len(entry.Recipients)),
		zap.String("outcome", string(entry.Outcome)),
		zap.String("provider_code", entry.ProviderCode),
		zap.Int64("sent", entry.SentCount))
	return nil
}

func normalizeRecipients(to []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(to))
	for _, n := range to {
		n = strings.Map(func(r rune) rune {
			if r == ' ' || r == '-' || r == '(' || r == ')' {
				return -1
			}
			return r
		}, strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// CheckInNotifier сообщает опекуну об отметке прихода.
type CheckInNotifier struct {
	svc *Service
	loc *time.Location
}

func NewCheckInNotifier(svc *Service, loc *time.Location) *CheckInNotifier {
	if loc == nil {
		loc = time.Local
	}
	return &CheckInNotifier{svc: svc, loc: loc}
}

func (n *CheckInNotifier) CheckedIn(ctx context.Context, st models.Student, at time.Time) error {
	if st.Guardian == nil || strings.TrimSpace(st.Guardian.Phone) == "" {
		return nil
	}
	t := at.In(n.loc)
	msg := fmt.Sprintf("%s (ID %s) arrived at school at %s on %s.",
		st.NameEN, st.StudentID, t.Format("15:04"), t.Format("02/01/2006"))
	_, err := n.svc.Send(ctx, st.SchoolID, []string{st.Guardian.Phone}, msg)
	return err
}
