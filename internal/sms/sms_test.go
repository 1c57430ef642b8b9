package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/models"
)

type fakeGateway struct {
	resp  Response
	err   error
	calls int
}

func (g *fakeGateway) Send(context.Context, []string, string) (Response, error) {
	g.calls++
	return g.resp, g.err
}

// memLedger ведёт себя как sms_credits + sms_logs.
type memLedger struct {
	mu      sync.Mutex
	balance int64
	logs    []models.SMSLog
}

func (l *memLedger) SMSBalance(context.Context, int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance, nil
}

func (l *memLedger) RecordSMS(_ context.Context, e models.SMSLog, debit int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, e)
	l.balance -= debit
	if l.balance < 0 {
		l.balance = 0
	}
	return nil
}

func TestSend_BalanceInvariant(t *testing.T) {
	cases := []struct {
		name        string
		balance     int64
		to          []string
		gw          *fakeGateway
		wantBalance int64
		wantOutcome models.SMSOutcome
		wantCalls   int
		check       func(t *testing.T, err error)
	}{
		{
			name: "успех списывает по числу SMS", balance: 10,
			to: []string{"01711000001", "01711000002"}, gw: &fakeGateway{resp: Response{Code: "202", Message: "ok"}},
			wantBalance: 8, wantOutcome: models.SMSSent, wantCalls: 1,
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Fatalf("Send: %v", err)
				}
			},
		},
		{
			name: "код неуспеха не списывает", balance: 10,
			to: []string{"01711000001"}, gw: &fakeGateway{resp: Response{Code: "1007", Message: "Balance insufficient"}},
			wantBalance: 10, wantOutcome: models.SMSFailed, wantCalls: 1,
			check: func(t *testing.T, err error) {
				ext, ok := apperr.AsExternal(err)
				if !ok || ext.Code != "1007" || ext.Provider != "sms" {
					t.Fatalf("ожидали ExternalError с кодом 1007, получили %v", err)
				}
			},
		},
		{
			name: "шлюз недоступен", balance: 10,
			to: []string{"01711000001"}, gw: &fakeGateway{err: errors.New("timeout")},
			wantBalance: 10, wantOutcome: models.SMSError, wantCalls: 1,
			check: func(t *testing.T, err error) {
				if _, ok := apperr.AsExternal(err); !ok {
					t.Fatalf("ожидали ExternalError, получили %v", err)
				}
			},
		},
		{
			name: "не хватает баланса", balance: 1,
			to: []string{"01711000001", "01711000002"}, gw: &fakeGateway{resp: Response{Code: "202"}},
			wantBalance: 1, wantOutcome: models.SMSRejected, wantCalls: 0,
			check: func(t *testing.T, err error) {
				v, ok := apperr.AsValidation(err)
				if !ok || !strings.Contains(v.Error(), "insufficient SMS balance") {
					t.Fatalf("ожидали ValidationError, получили %v", err)
				}
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l := &memLedger{balance: c.balance}
			s := NewService(c.gw, l, Options{CostPerSMS: 0.35}, nil)
			_, err := s.Send(context.Background(), 1, c.to, "School closed tomorrow")
			c.check(t, err)
			if l.balance != c.wantBalance {
				t.Fatalf("баланс %d, ожидали %d", l.balance, c.wantBalance)
			}
			if len(l.logs) != 1 || l.logs[0].Outcome != c.wantOutcome {
				t.Fatalf("журнал: %+v", l.logs)
			}
			if c.gw.calls != c.wantCalls {
				t.Fatalf("вызовов шлюза %d, ожидали %d", c.gw.calls, c.wantCalls)
			}
		})
	}
}

func TestSend_CostAndDedup(t *testing.T) {
	l := &memLedger{balance: 100}
	s := NewService(&fakeGateway{resp: Response{Code: "202"}}, l, Options{CostPerSMS: 0.35}, nil)
	entry, err := s.Send(context.Background(), 1, []string{"017 1100-0001", "01711000001", " "}, "Hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(entry.Recipients) != 1 || entry.SentCount != 1 || entry.Cost != 0.35 {
		t.Fatalf("запись: %+v", entry)
	}
}

func TestSend_Validation(t *testing.T) {
	l := &memLedger{balance: 100}
	s := NewService(&fakeGateway{}, l, Options{}, nil)
	_, err := s.Send(context.Background(), 1, nil, " ")
	v, ok := apperr.AsValidation(err)
	if !ok || len(v.Fields) != 2 {
		t.Fatalf("ожидали две ошибки полей, получили %v", err)
	}
	if len(l.logs) != 0 {
		t.Fatal("некорректный запрос не доходит до журнала")
	}
}

func TestSegments(t *testing.T) {
	cases := []struct {
		msg  string
		want int64
	}{
		{"", 0},
		{"Hello", 1},
		{strings.Repeat("a", 160), 1},
		{strings.Repeat("a", 161), 2},
		{strings.Repeat("a", 306), 2},
		{strings.Repeat("a", 307), 3},
		{strings.Repeat("{", 80), 1},
		{strings.Repeat("{", 81), 2},
		{"আগামীকাল স্কুল বন্ধ", 1},
		{strings.Repeat("আ", 71), 2},
	}
	for _, c := range cases {
		if got := Segments(c.msg); got != c.want {
			t.Errorf("Segments(%d рун) = %d, ожидали %d", len([]rune(c.msg)), got, c.want)
		}
	}
}

func TestHTTPGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.APIKey != "k" || req.Number != "017,018" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"response_code":202,"success_message":"SMS Submitted Successfully"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(HTTPGatewayConfig{URL: srv.URL, APIKey: "k", SenderID: "school"})
	resp, err := gw.Send(context.Background(), []string{"017", "018"}, "hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Code != "202" || resp.Message != "SMS Submitted Successfully" {
		t.Fatalf("ответ: %+v", resp)
	}
}

func TestCheckInNotifier_NoGuardianPhone(t *testing.T) {
	gw := &fakeGateway{resp: Response{Code: "202"}}
	n := NewCheckInNotifier(NewService(gw, &memLedger{balance: 5}, Options{}, nil), nil)
	if err := n.CheckedIn(context.Background(), models.Student{NameEN: "Rahim"}, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if gw.calls != 0 {
		t.Fatal("без телефона опекуна SMS не отправляется")
	}
}
