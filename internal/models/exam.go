package models

import "time"

type Exam struct {
	ID        int64      `db:"id"`
	SchoolID  int64      `db:"school_id"`
	Name      string     `db:"name"`
	Year      int        `db:"year"`
	StartDate *time.Time `db:"start_date"`
	EndDate   *time.Time `db:"end_date"`
}

// ExamSubject: FullMarks > PassMarks >= 0 (CHECK в БД, проверка при записи).
type ExamSubject struct {
	ID          int64      `db:"id"`
	ExamID      int64      `db:"exam_id"`
	ClassID     int64      `db:"class_id"`
	SubjectID   int64      `db:"subject_id"`
	SubjectName string     `db:"subject_name"`
	FullMarks   float64    `db:"full_marks"`
	PassMarks   float64    `db:"pass_marks"`
	ScheduledAt *time.Time `db:"scheduled_at"`
}

// Mark хранит только компоненты; итог и оценка считаются пакетом grading.
type Mark struct {
	ID            int64     `db:"id"`
	ExamID        int64     `db:"exam_id"`
	ExamSubjectID int64     `db:"exam_subject_id"`
	StudentRef    int64     `db:"student_ref"`
	Written       *float64  `db:"written"`
	MCQ           *float64  `db:"mcq"`
	Practical     *float64  `db:"practical"`
	UpdatedBy     int64     `db:"updated_by"`
	UpdatedAt     time.Time `db:"updated_at"`
}
