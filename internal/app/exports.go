package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/school-office/internal/access"
	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/db"
	"github.com/Spok95/school-office/internal/documents"
	"github.com/Spok95/school-office/internal/export"
	"github.com/Spok95/school-office/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type exportRequest struct {
	Format        string  `json:"format" validate:"omitempty,oneof=pdf xlsx"`
	ClassID       *int64  `json:"class_id" validate:"omitempty,gt=0"`
	SectionID     *int64  `json:"section_id" validate:"omitempty,gt=0"`
	StudentIDs    []int64 `json:"student_ids" validate:"omitempty,dive,gt=0"`
	ExamID        int64   `json:"exam_id" validate:"omitempty,gt=0"`
	CertificateID string  `json:"certificate_id" validate:"omitempty,uuid"`
	From          string  `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To            string  `json:"to" validate:"omitempty,datetime=2006-01-02"`
	ValidUntil    string  `json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
}

func (r exportRequest) selection(schoolID int64) documents.Selection {
	return documents.Selection{SchoolID: schoolID, ClassID: r.ClassID, SectionID: r.SectionID, StudentIDs: r.StudentIDs}
}

// target: ключ защиты от двойного запуска для этого запроса.
func (r exportRequest) target(kind models.DocumentKind, schoolID int64) string {
	switch {
	case r.CertificateID != "":
		return "certificate:" + strings.ToLower(r.CertificateID)
	case kind == models.KindAttendanceReport && r.SectionID != nil:
		return fmt.Sprintf("section:%d|%s|%s", *r.SectionID, r.From, r.To)
	}
	t := r.selection(schoolID).Target()
	if r.ExamID > 0 {
		t += fmt.Sprintf("|exam:%d", r.ExamID)
	}
	return t
}

// POST /api/exports/:kind: файл отдаётся как вложение.
func (s *Server) exportDocuments(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	kind, ok := models.ParseKind(c.Params("kind"))
	if !ok {
		return apperr.NotFound("document kind")
	}
	var req exportRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Format == "xlsx" && !kind.Tabular() {
		return apperr.Validation("xlsx is available for tabular reports only", apperr.FieldError{Field: "format", Error: "oneof"})
	}

	release, ok := s.guard.Acquire(p.UserID, kind, req.target(kind, p.SchoolID))
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(errorBody{Error: "export already running"})
	}
	defer release()

	records, err := s.collect(c, p, kind, req)
	if err != nil {
		return err
	}

	var out *export.SavedFile
	if req.Format == "xlsx" {
		out, err = s.deps.Exporter.ExportXLSX(c.UserContext(), kind, records)
	} else {
		out, err = s.deps.Exporter.Export(c.UserContext(), kind, records)
	}
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, out.ContentType)
	c.Set("X-Degraded-Records", fmt.Sprint(out.Degraded))
	c.Attachment(out.Name)
	return c.Send(out.Data)
}

// collect: свежие записи из БД с проверкой прав на каждую цель.
func (s *Server) collect(c *fiber.Ctx, p access.Principal, kind models.DocumentKind, req exportRequest) ([]models.DocumentRecord, error) {
	ctx := c.UserContext()
	sel := req.selection(p.SchoolID)

	switch kind {
	case models.KindIDCard, models.KindAdmitCard, models.KindReportCard:
		if err := s.checkSelection(c, p, sel); err != nil {
			return nil, err
		}
		if kind == models.KindIDCard {
			var until *time.Time
			if req.ValidUntil != "" {
				t, err := s.parseDay("valid_until", req.ValidUntil)
				if err != nil {
					return nil, err
				}
				until = &t
			}
			return s.deps.Documents.IDCards(ctx, sel, until)
		}
		if req.ExamID == 0 {
			return nil, apperr.Validation("exam is required", apperr.FieldError{Field: "exam_id", Error: "required"})
		}
		if err := s.checkExam(c, p, req.ExamID); err != nil {
			return nil, err
		}
		if kind == models.KindAdmitCard {
			return s.deps.Documents.AdmitCards(ctx, req.ExamID, sel)
		}
		return s.deps.Documents.ReportCards(ctx, req.ExamID, sel)

	case models.KindAttendanceReport:
		if req.SectionID == nil || req.From == "" || req.To == "" {
			return nil, apperr.Validation("section and period are required",
				apperr.FieldError{Field: "section_id", Error: "required"},
				apperr.FieldError{Field: "from", Error: "required"},
				apperr.FieldError{Field: "to", Error: "required"})
		}
		sec, _, err := s.deps.Store.GetSection(ctx, *req.SectionID)
		if err != nil {
			return nil, err
		}
		if sec == nil || !p.SameSchool(sec.SchoolID) {
			return nil, apperr.NotFound("section")
		}
		if !p.CanViewClass(sec.ClassID, sec.ID) {
			return nil, forbidden()
		}
		from, err := s.parseDay("from", req.From)
		if err != nil {
			return nil, err
		}
		to, err := s.parseDay("to", req.To)
		if err != nil {
			return nil, err
		}
		rec, err := s.deps.Documents.AttendanceReport(ctx, p.SchoolID, sec.ID, from, to)
		if err != nil {
			return nil, err
		}
		return []models.DocumentRecord{rec}, nil

	case models.KindFeeReport:
		if !p.CanManageFinance() {
			return nil, forbidden()
		}
		if err := s.checkSelection(c, p, sel); err != nil {
			return nil, err
		}
		out := make([]models.DocumentRecord, 0, len(req.StudentIDs))
		for _, id := range req.StudentIDs {
			rec, err := s.deps.Documents.FeeReport(ctx, p.SchoolID, id)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	}

	// сертификаты
	if p.Role != models.Admin && p.Role != models.Staff {
		return nil, forbidden()
	}
	if req.CertificateID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(req.CertificateID)
	if err != nil {
		return nil, apperr.Validation("invalid certificate id", apperr.FieldError{Field: "certificate_id", Error: "uuid"})
	}
	rec, err := s.deps.Documents.Certificate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.SameSchool(rec.SchoolInfo().ID) {
		return nil, apperr.NotFound("certificate")
	}
	return []models.DocumentRecord{rec}, nil
}

// checkSelection: явно выбранные ученики должны быть из школы пользователя,
// а для учителя и бухгалтера ещё и видны ему.
func (s *Server) checkSelection(c *fiber.Ctx, p access.Principal, sel documents.Selection) error {
	wide := p.IsAdmin() || p.Role == models.Staff
	if wide && len(sel.StudentIDs) == 0 {
		// класс и секция и так ограничены школой в запросе
		return nil
	}
	if len(sel.StudentIDs) == 0 && sel.ClassID == nil && sel.SectionID == nil {
		return forbidden()
	}
	sts, err := s.deps.Store.ListStudents(c.UserContext(), db.StudentFilter{
		SchoolID: sel.SchoolID, ClassID: sel.ClassID, SectionID: sel.SectionID, IDs: sel.StudentIDs,
	})
	if err != nil {
		return err
	}
	if len(sel.StudentIDs) > 0 && len(sts) != countDistinct(sel.StudentIDs) {
		return apperr.NotFound("student")
	}
	if !wide && len(p.FilterStudents(sts)) != len(sts) {
		return forbidden()
	}
	return nil
}

func countDistinct(ids []int64) int {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// parseDay: дата YYYY-MM-DD в часовом поясе школы.
func (s *Server) parseDay(field, v string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, v, s.deps.Location)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date", apperr.FieldError{Field: field, Error: "datetime"})
	}
	return t, nil
}

func (s *Server) checkExam(c *fiber.Ctx, p access.Principal, examID int64) error {
	ex, err := s.deps.Store.GetExam(c.UserContext(), examID)
	if err != nil {
		return err
	}
	if ex == nil || !p.SameSchool(ex.SchoolID) {
		return apperr.NotFound("exam")
	}
	return nil
}
