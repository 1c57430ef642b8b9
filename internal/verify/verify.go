// Package verify resolves document verification links. A link either
// resolves every referenced row or ends in a single fixed Invalid result
// that does not reveal which lookup missed.
package verify

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/export"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/metrics"
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/render"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State string

const (
	StateResolving State = "resolving"
	StateVerified  State = "verified"
	StateInvalid   State = "invalid"
)

const InvalidMessage = "This document could not be verified."

// errMiss: внутренняя причина Invalid; наружу не уходит.
var errMiss = errors.New("verify: lookup miss")

// Request: параметры из ссылки как есть, без разбора.
type Request struct {
	Kind    string
	ID      string
	Student string
	Exam    string
}

// Summary: то, что показываем проверяющему.
type Summary struct {
	Kind        models.DocumentKind `json:"kind"`
	Title       string              `json:"title"`
	School      string              `json:"school"`
	StudentName string              `json:"student_name"`
	StudentID   string              `json:"student_id"`
	Class       string              `json:"class"`
	Section     string              `json:"section"`
	Roll        int                 `json:"roll"`
	Status      string              `json:"status"`
	Reference   string              `json:"reference,omitempty"`
	IssueDate   string              `json:"issue_date,omitempty"`
	Exam        string              `json:"exam,omitempty"`
}

type Result struct {
	State   State    `json:"state"`
	Message string   `json:"message,omitempty"`
	Summary *Summary `json:"document,omitempty"`

	v      *Verifier
	kind   models.DocumentKind
	certID uuid.UUID
	pubID  uuid.UUID
	stRef  int64
	examID int64
}

func invalid() Result { return Result{State: StateInvalid, Message: InvalidMessage} }

// Store: чтения для проверки; *db.Store.
type Store interface {
	GetSchool(ctx context.Context, id int64) (*models.School, error)
	GetStudentByPublicID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	GetExam(ctx context.Context, id int64) (*models.Exam, error)
	GetCertificate(ctx context.Context, id uuid.UUID) (*models.Certificate, error)
}

// Records: свежая сборка записи для повторной выгрузки; *documents.Builder.
type Records interface {
	Certificate(ctx context.Context, id uuid.UUID) (models.DocumentRecord, error)
	IDCardByPublicID(ctx context.Context, id uuid.UUID) (models.DocumentRecord, error)
	AdmitCard(ctx context.Context, examID, studentRef int64) (models.DocumentRecord, error)
	ReportCard(ctx context.Context, examID, studentRef int64) (models.DocumentRecord, error)
}

type Exporter interface {
	Export(ctx context.Context, kind models.DocumentKind, records []models.DocumentRecord) (*export.SavedFile, error)
}

type Verifier struct {
	store    Store
	records  Records
	exporter Exporter
	log      *zap.Logger
}

func New(store Store, records Records, exporter Exporter, log *zap.Logger) *Verifier {
	return &Verifier{store: store, records: records, exporter: exporter, log: logging.OrNop(log)}
}

// Resolve: Resolving → Verified | Invalid.
func (v *Verifier) Resolve(ctx context.Context, req Request) Result {
	kind, ok := models.ParseKind(strings.TrimSpace(req.Kind))
	if !ok || kind.Tabular() {
		return v.finish(kind, invalid(), errMiss)
	}
	var (
		res Result
		err error
	)
	switch {
	case kind == models.KindAdmitCard || kind == models.KindReportCard:
		res, err = v.resolveExamDoc(ctx, kind, req)
	case kind == models.KindIDCard:
		res, err = v.resolveIDCard(ctx, req)
	default:
		res, err = v.resolveCertificate(ctx, kind, req)
	}
	if err != nil {
		return v.finish(kind, invalid(), err)
	}
	res.State, res.v, res.kind = StateVerified, v, kind
	return v.finish(kind, res, nil)
}

func (v *Verifier) finish(kind models.DocumentKind, res Result, cause error) Result {
	label := string(kind)
	if label == "" {
		label = "unknown"
	}
	metrics.Verifications.WithLabelValues(label, string(res.State)).Inc()
	if cause != nil && !errors.Is(cause, errMiss) {
		// сбой БД тоже даёт Invalid наружу, но логируется как ошибка
		v.log.Error("verification lookup failed", zap.String("kind", label), zap.Error(cause))
	}
	return res
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errMiss
	}
	return id, nil
}

// one: ровно одна строка или промах.
func one[T any](row *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errMiss
	}
	return row, nil
}

func (v *Verifier) school(ctx context.Context, id int64) (*models.School, error) {
	return one(v.store.GetSchool(ctx, id))
}

func (v *Verifier) resolveCertificate(ctx context.Context, kind models.DocumentKind, req Request) (Result, error) {
	id, err := parseUUID(req.ID)
	if err != nil {
		return Result{}, err
	}
	c, err := one(v.store.GetCertificate(ctx, id))
	if err != nil {
		return Result{}, err
	}
	if "certificate-"+string(c.Type) != string(kind) {
		return Result{}, errMiss
	}
	st, err := one(v.store.GetStudent(ctx, c.StudentRef))
	if err != nil {
		return Result{}, err
	}
	sc, err := v.school(ctx, c.SchoolID)
	if err != nil {
		return Result{}, err
	}
	sum := summary(kind, sc, st)
	sum.Reference = c.CertificateNo
	sum.IssueDate = render.Date(c.IssueDate)
	return Result{Summary: sum, certID: c.ID, stRef: st.ID}, nil
}

func (v *Verifier) resolveIDCard(ctx context.Context, req Request) (Result, error) {
	id, err := parseUUID(req.ID)
	if err != nil {
		return Result{}, err
	}
	st, err := one(v.store.GetStudentByPublicID(ctx, id))
	if err != nil {
		return Result{}, err
	}
	sc, err := v.school(ctx, st.SchoolID)
	if err != nil {
		return Result{}, err
	}
	return Result{Summary: summary(models.KindIDCard, sc, st), pubID: id, stRef: st.ID}, nil
}

func (v *Verifier) resolveExamDoc(ctx context.Context, kind models.DocumentKind, req Request) (Result, error) {
	id, err := parseUUID(req.Student)
	if err != nil {
		return Result{}, err
	}
	examID, perr := strconv.ParseInt(strings.TrimSpace(req.Exam), 10, 64)
	if perr != nil || examID <= 0 {
		return Result{}, errMiss
	}
	st, err := one(v.store.GetStudentByPublicID(ctx, id))
	if err != nil {
		return Result{}, err
	}
	ex, err := one(v.store.GetExam(ctx, examID))
	if err != nil {
		return Result{}, err
	}
	if ex.SchoolID != st.SchoolID {
		return Result{}, errMiss
	}
	sc, err := v.school(ctx, st.SchoolID)
	if err != nil {
		return Result{}, err
	}
	sum := summary(kind, sc, st)
	sum.Exam = ex.Name
	if ex.Year > 0 {
		sum.Exam += " " + strconv.Itoa(ex.Year)
	}
	return Result{Summary: sum, pubID: id, stRef: st.ID, examID: ex.ID}, nil
}

func summary(kind models.DocumentKind, sc *models.School, st *models.Student) *Summary {
	return &Summary{
		Kind:        kind,
		Title:       strings.ReplaceAll(kind.Label(), "_", " "),
		School:      sc.Name,
		StudentName: st.NameEN,
		StudentID:   st.StudentID,
		Class:       st.ClassName,
		Section:     st.SectionName,
		Roll:        st.Roll,
		Status:      string(st.Status),
	}
}

// Reexport: заново читает все строки из БД и выгружает документ.
// Снимок из Resolve не используется.
func (r Result) Reexport(ctx context.Context) (*export.SavedFile, error) {
	if r.State != StateVerified || r.v == nil {
		return nil, apperr.NotFound("document")
	}
	v := r.v
	var (
		rec models.DocumentRecord
		err error
	)
	switch r.kind {
	case models.KindIDCard:
		rec, err = v.records.IDCardByPublicID(ctx, r.pubID)
	case models.KindAdmitCard:
		rec, err = v.records.AdmitCard(ctx, r.examID, r.stRef)
	case models.KindReportCard:
		rec, err = v.records.ReportCard(ctx, r.examID, r.stRef)
	default:
		rec, err = v.records.Certificate(ctx, r.certID)
	}
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("document")
		}
		return nil, err
	}
	return v.exporter.Export(ctx, r.kind, []models.DocumentRecord{rec})
}
