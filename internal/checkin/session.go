// Package checkin runs attendance capture sessions: a scanner produces
// codes, each accepted code is resolved against the student directory and
// recorded as present for today.
package checkin

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/metrics"
	"github.com/Spok95/school-office/internal/models"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateResolved State = "resolved"
	StateRejected State = "rejected"
)

type EventKind string

const (
	EventStarted   EventKind = "started"
	EventCheckedIn EventKind = "checked-in"
	EventRejected  EventKind = "rejected"
	EventError     EventKind = "error"
	EventStopped   EventKind = "stopped"
)

const (
	MsgNotFound = "Student not found"
	MsgInactive = "Student is not active"
	MsgFailed   = "Could not record attendance, please scan again"

	DefaultFeedSize = 20
)

// FeedEntry: строка живой ленты.
type FeedEntry struct {
	StudentRef int64     `json:"student_ref"`
	StudentID  string    `json:"student_id"`
	Name       string    `json:"name"`
	Class      string    `json:"class"`
	Section    string    `json:"section"`
	Roll       int       `json:"roll"`
	MarkedAt   time.Time `json:"marked_at"`
}

type Event struct {
	Kind    EventKind  `json:"kind"`
	State   State      `json:"state"`
	Code    string     `json:"code,omitempty"`
	Entry   *FeedEntry `json:"entry,omitempty"`
	Message string     `json:"message,omitempty"`
	At      time.Time  `json:"at"`
}

// Sink получает события сессии: websocket-клиент или вывод киоска.
type Sink interface {
	Emit(ev Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Scanner: ресурс захвата кодов. Open на входе в Scanning, Close на любом выходе.
// Next блокируется до следующего кода; io.EOF: источник закончился.
type Scanner interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (string, error)
	Close() error
}

// Store: справочник учеников и запись посещаемости; *db.Store.
type Store interface {
	GetStudentByCode(ctx context.Context, schoolID int64, code string) (*models.Student, error)
	UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) (*models.AttendanceRecord, error)
}

// Notifier: необязательное уведомление опекуна об отметке.
type Notifier interface {
	CheckedIn(ctx context.Context, st models.Student, at time.Time) error
}

type Config struct {
	SchoolID int64
	MarkedBy int64
	Location *time.Location
	FeedSize int
	Now      func() time.Time
}

type Session struct {
	cfg      Config
	store    Store
	scanner  Scanner
	debounce Debouncer
	notifier Notifier
	sink     Sink
	log      *zap.Logger

	mu     sync.Mutex
	state  State
	feed   []FeedEntry
	cancel context.CancelFunc
}

// NewSession: debounce == nil даёт окно этой сессии; notifier и sink необязательны.
func NewSession(cfg Config, store Store, scanner Scanner, debounce Debouncer, notifier Notifier, sink Sink, log *zap.Logger) *Session {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.FeedSize <= 0 {
		cfg.FeedSize = DefaultFeedSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if debounce == nil {
		debounce = NewLocalDebouncer(DefaultWindow)
	}
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	return &Session{
		cfg: cfg, store: store, scanner: scanner, debounce: debounce,
		notifier: notifier, sink: sink, log: logging.OrNop(log),
		state: StateIdle,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Feed: видимое окно ленты, новые сверху.
func (s *Session) Feed() []FeedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FeedEntry(nil), s.feed...)
}

// Stop завершает Run; сканер освобождается внутри Run.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) emit(kind EventKind, code, msg string, entry *FeedEntry) {
	s.sink.Emit(Event{Kind: kind, State: s.State(), Code: code, Entry: entry, Message: msg, At: s.cfg.Now()})
}

// Run держит сессию до Stop, отмены ctx, конца источника или ошибки сканера.
// Сканер закрывается на любом выходе, включая панику.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return errors.New("checkin: session already running")
	}
	s.state = StateScanning
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.scanner.Open(ctx); err != nil {
		s.setState(StateIdle)
		return err
	}
	metrics.CheckInSessions.Inc()
	defer func() {
		if err := s.scanner.Close(); err != nil {
			s.log.Warn("scanner close", zap.Error(err))
		}
		metrics.CheckInSessions.Dec()
		s.mu.Lock()
		s.state, s.cancel = StateIdle, nil
		s.mu.Unlock()
		s.emit(EventStopped, "", "", nil)
	}()
	s.emit(EventStarted, "", "", nil)

	for {
		code, err := s.scanner.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			s.log.Error("scanner failed", zap.Error(err))
			return err
		}
		s.handle(ctx, code)
	}
}

func (s *Session) handle(ctx context.Context, raw string) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return
	}
	now := s.cfg.Now()
	ok, err := s.debounce.Accept(ctx, code, now)
	if err != nil {
		// общий антидребезг недоступен: принимаем, повторная отметка за день всё равно одна
		s.log.Warn("debounce unavailable", zap.Error(err))
		ok = true
	}
	if !ok {
		metrics.CheckIns.WithLabelValues("debounced").Inc()
		return
	}

	s.setState(StateResolved)
	defer s.setState(StateScanning)

	st, err := s.store.GetStudentByCode(ctx, s.cfg.SchoolID, code)
	if err != nil {
		s.fail(code, err)
		return
	}
	if st == nil {
		s.reject(code, MsgNotFound)
		return
	}
	if st.Status != "" && st.Status != models.StudentActive {
		s.reject(code, MsgInactive)
		return
	}

	today := now.In(s.cfg.Location)
	rec, err := s.store.UpsertAttendance(ctx, models.AttendanceRecord{
		StudentRef: st.ID,
		Date:       today,
		Status:     models.Present,
		MarkedAt:   now,
		MarkedBy:   s.cfg.MarkedBy,
	})
	if err != nil {
		s.fail(code, err)
		return
	}

	entry := FeedEntry{
		StudentRef: st.ID, StudentID: st.StudentID, Name: st.NameEN,
		Class: st.ClassName, Section: st.SectionName, Roll: st.Roll,
		MarkedAt: rec.MarkedAt,
	}
	s.mu.Lock()
	s.feed = append([]FeedEntry{entry}, s.feed...)
	if len(s.feed) > s.cfg.FeedSize {
		s.feed = s.feed[:s.cfg.FeedSize]
	}
	s.mu.Unlock()

	metrics.CheckIns.WithLabelValues("recorded").Inc()
	s.emit(EventCheckedIn, code, "", &entry)

	if s.notifier != nil {
		if err := s.notifier.CheckedIn(ctx, *st, now); err != nil {
			s.log.Warn("guardian notification failed", zap.String("student", st.StudentID), zap.Error(err))
		}
	}
}

func (s *Session) reject(code, msg string) {
	s.setState(StateRejected)
	metrics.CheckIns.WithLabelValues("rejected").Inc()
	s.emit(EventRejected, code, msg, nil)
}

func (s *Session) fail(code string, err error) {
	metrics.CheckIns.WithLabelValues("error").Inc()
	s.log.Error("check-in failed", zap.String("code", code), zap.Error(err))
	s.emit(EventError, code, MsgFailed, nil)
}
