package app

import (
	"context"
	"time"

	"github.com/Spok95/school-office/internal/access"
	"github.com/Spok95/school-office/internal/checkin"
	"github.com/Spok95/school-office/internal/db"
	"github.com/Spok95/school-office/internal/documents"
	"github.com/Spok95/school-office/internal/export"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/payment"
	"github.com/Spok95/school-office/internal/promotion"
	"github.com/Spok95/school-office/internal/verify"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store: чтения и записи, которые делают обработчики напрямую; *db.Store.
type Store interface {
	checkin.Store
	access.AssignmentSource
	Ping(ctx context.Context) error
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	ListStudents(ctx context.Context, f db.StudentFilter) ([]models.Student, error)
	GetSection(ctx context.Context, sectionID int64) (*models.Section, string, error)
	ListSubjects(ctx context.Context, schoolID, classID int64) ([]models.Subject, error)
	GetExam(ctx context.Context, id int64) (*models.Exam, error)
	GetExamSubject(ctx context.Context, id int64) (*models.ExamSubject, error)
	MarksForSubject(ctx context.Context, examSubjectID int64) ([]models.Mark, error)
	UpsertMarks(ctx context.Context, es models.ExamSubject, marks []models.Mark) error
	GetInvoice(ctx context.Context, id int64) (*models.Invoice, error)
	SMSBalance(ctx context.Context, schoolID int64) (int64, error)
	SMSLogs(ctx context.Context, schoolID int64, limit int) ([]models.SMSLog, error)
}

// Documents: сборка записей для экспорта; *documents.Builder.
type Documents interface {
	IDCards(ctx context.Context, sel documents.Selection, validUntil *time.Time) ([]models.DocumentRecord, error)
	AdmitCards(ctx context.Context, examID int64, sel documents.Selection) ([]models.DocumentRecord, error)
	ReportCards(ctx context.Context, examID int64, sel documents.Selection) ([]models.DocumentRecord, error)
	Certificate(ctx context.Context, id uuid.UUID) (models.DocumentRecord, error)
	AttendanceReport(ctx context.Context, schoolID, sectionID int64, from, to time.Time) (models.DocumentRecord, error)
	FeeReport(ctx context.Context, schoolID, studentRef int64) (models.DocumentRecord, error)
}

// Exporter: *export.Service.
type Exporter interface {
	Export(ctx context.Context, kind models.DocumentKind, records []models.DocumentRecord) (*export.SavedFile, error)
	ExportXLSX(ctx context.Context, kind models.DocumentKind, records []models.DocumentRecord) (*export.SavedFile, error)
}

type Verifier interface {
	Resolve(ctx context.Context, req verify.Request) verify.Result
}

type Payments interface {
	CheckoutInvoice(ctx context.Context, invoiceID int64, c payment.Customer) (*payment.Checkout, error)
	CheckoutSMS(ctx context.Context, schoolID int64, packageCode string, c payment.Customer) (*payment.Checkout, error)
	Reconcile(ctx context.Context, orderID string) (*models.PaymentTransaction, error)
}

type Messenger interface {
	Send(ctx context.Context, schoolID int64, to []string, message string) (*models.SMSLog, error)
}

type Promoter interface {
	Validate(ctx context.Context, plan promotion.Plan) error
	Apply(ctx context.Context, plan promotion.Plan) error
}

// Deps: всё, что нужно HTTP-слою. Payments, SMS и Promotion необязательны:
// без них соответствующие маршруты не регистрируются.
type Deps struct {
	Store     Store
	Documents Documents
	Exporter  Exporter
	Verifier  Verifier
	Payments  Payments
	SMS       Messenger
	Promotion Promoter

	// CheckInDebounce: общий антидребезг для всех сессий (Redis). При nil у каждой сессии свой.
	CheckInDebounce func(schoolID int64) checkin.Debouncer
	CheckInNotifier checkin.Notifier

	JWTSecret   string
	Location    *time.Location
	VerifyLimit int
	Log         *zap.Logger
}

type Server struct {
	app   *fiber.App
	deps  Deps
	guard *export.InFlight
	log   *zap.Logger
}

func New(d Deps) *Server {
	if d.Location == nil {
		d.Location = time.Local
	}
	log := logging.OrNop(d.Log)
	s := &Server{deps: d, guard: export.NewInFlight(), log: log}
	s.app = fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler(log),
		DisableStartupMessage: true,
		BodyLimit:             8 << 20,
	})
	s.routes()
	return s
}

func (s *Server) App() *fiber.App { return s.app }

// Run слушает addr до отмены ctx, затем аккуратно закрывает соединения.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(3 * time.Second)
	}
}
