package app

import (
	"fmt"

	"github.com/Spok95/school-office/internal/access"
	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/db"
	"github.com/Spok95/school-office/internal/grading"
	"github.com/Spok95/school-office/internal/models"
	"github.com/gofiber/fiber/v2"
)

type markInput struct {
	StudentRef int64    `json:"student_ref" validate:"required,gt=0"`
	Written    *float64 `json:"written" validate:"omitempty,gte=0"`
	MCQ        *float64 `json:"mcq" validate:"omitempty,gte=0"`
	Practical  *float64 `json:"practical" validate:"omitempty,gte=0"`
}

type marksRequest struct {
	SectionID int64       `json:"section_id" validate:"required,gt=0"`
	Marks     []markInput `json:"marks" validate:"required,min=1,dive"`
}

type markRow struct {
	StudentRef int64    `json:"student_ref"`
	StudentID  string   `json:"student_id"`
	Name       string   `json:"name"`
	Roll       int      `json:"roll"`
	Written    *float64 `json:"written"`
	MCQ        *float64 `json:"mcq"`
	Practical  *float64 `json:"practical"`
	Total      *float64 `json:"total"`
	Letter     string   `json:"letter"`
	Point      float64  `json:"point"`
	Passed     bool     `json:"passed"`
}

type subjectRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// GET /api/classes/:class/subjects: учитель видит только свои предметы.
func (s *Server) listSubjects(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	classID, err := c.ParamsInt("class")
	if err != nil || classID <= 0 {
		return apperr.NotFound("class")
	}
	if !p.CanViewClass(int64(classID), 0) {
		return forbidden()
	}
	subs, err := s.deps.Store.ListSubjects(c.UserContext(), p.SchoolID, int64(classID))
	if err != nil {
		return err
	}
	rows := make([]subjectRow, 0, len(subs))
	for _, sb := range p.FilterSubjects(subs) {
		rows = append(rows, subjectRow{ID: sb.ID, Name: sb.Name, Code: sb.Code})
	}
	return c.JSON(fiber.Map{"success": true, "data": rows})
}

// examSubject: предмет экзамена из пути; чужая школа и несовпадение экзамена дают 404.
func (s *Server) examSubject(c *fiber.Ctx, p access.Principal) (*models.ExamSubject, error) {
	examID, err := c.ParamsInt("exam")
	if err != nil || examID <= 0 {
		return nil, apperr.NotFound("exam")
	}
	subjectID, err := c.ParamsInt("subject")
	if err != nil || subjectID <= 0 {
		return nil, apperr.NotFound("exam subject")
	}
	if err := s.checkExam(c, p, int64(examID)); err != nil {
		return nil, err
	}
	es, err := s.deps.Store.GetExamSubject(c.UserContext(), int64(subjectID))
	if err != nil {
		return nil, err
	}
	if es == nil || es.ExamID != int64(examID) {
		return nil, apperr.NotFound("exam subject")
	}
	return es, nil
}

// GET /api/exams/:exam/subjects/:subject/marks?section=
func (s *Server) listMarks(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	es, err := s.examSubject(c, p)
	if err != nil {
		return err
	}
	sectionID := int64(c.QueryInt("section"))
	if !p.CanViewClass(es.ClassID, sectionID) {
		return forbidden()
	}
	rows, err := s.markRows(c, p, *es, sectionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rows})
}

// PUT /api/exams/:exam/subjects/:subject/marks: upsert и свежие строки с оценками.
func (s *Server) upsertMarks(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	es, err := s.examSubject(c, p)
	if err != nil {
		return err
	}
	var req marksRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !p.CanEditMarks(es.ClassID, req.SectionID, es.SubjectID) {
		return forbidden()
	}

	ctx := c.UserContext()
	sectionID := req.SectionID
	sts, err := s.deps.Store.ListStudents(ctx, db.StudentFilter{SchoolID: p.SchoolID, ClassID: &es.ClassID, SectionID: &sectionID})
	if err != nil {
		return err
	}
	inSection := make(map[int64]bool, len(sts))
	for _, st := range sts {
		inSection[st.ID] = true
	}

	var fields []apperr.FieldError
	marks := make([]models.Mark, 0, len(req.Marks))
	for i, m := range req.Marks {
		if !inSection[m.StudentRef] {
			fields = append(fields, apperr.FieldError{Field: fmt.Sprintf("marks[%d].student_ref", i), Error: "not in section"})
			continue
		}
		marks = append(marks, models.Mark{
			ExamID:        es.ExamID,
			ExamSubjectID: es.ID,
			StudentRef:    m.StudentRef,
			Written:       m.Written,
			MCQ:           m.MCQ,
			Practical:     m.Practical,
			UpdatedBy:     p.UserID,
		})
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid marks", fields...)
	}
	if err := s.deps.Store.UpsertMarks(ctx, *es, marks); err != nil {
		return err
	}

	rows, err := s.markRows(c, p, *es, sectionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rows})
}

func (s *Server) markRows(c *fiber.Ctx, p access.Principal, es models.ExamSubject, sectionID int64) ([]markRow, error) {
	ctx := c.UserContext()
	f := db.StudentFilter{SchoolID: p.SchoolID, ClassID: &es.ClassID}
	if sectionID > 0 {
		f.SectionID = &sectionID
	}
	sts, err := s.deps.Store.ListStudents(ctx, f)
	if err != nil {
		return nil, err
	}
	marks, err := s.deps.Store.MarksForSubject(ctx, es.ID)
	if err != nil {
		return nil, err
	}
	byStudent := make(map[int64]models.Mark, len(marks))
	for _, m := range marks {
		byStudent[m.StudentRef] = m
	}

	rows := make([]markRow, 0, len(sts))
	for _, st := range p.FilterStudents(sts) {
		row := markRow{StudentRef: st.ID, StudentID: st.StudentID, Name: st.NameEN, Roll: st.Roll}
		if m, ok := byStudent[st.ID]; ok {
			row.Written, row.MCQ, row.Practical = m.Written, m.MCQ, m.Practical
			r := grading.Evaluate(es.FullMarks, es.PassMarks, m.Written, m.MCQ, m.Practical)
			if r.Recorded {
				total := r.Total
				row.Total = &total
				row.Letter, row.Point = r.Result.Letter, r.Result.Point
				row.Passed = r.Result != grading.Fail
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
