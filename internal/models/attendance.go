package models

import "time"

type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Late    AttendanceStatus = "late"
	Absent  AttendanceStatus = "absent"
)

func (s AttendanceStatus) Valid() bool {
	return s == Present || s == Late || s == Absent
}

// AttendanceRecord: одна запись на (ученик, дата); повторная отметка перезаписывает.
type AttendanceRecord struct {
	ID         int64            `db:"id"`
	StudentRef int64            `db:"student_ref"`
	Date       time.Time        `db:"date"`
	Status     AttendanceStatus `db:"status"`
	MarkedAt   time.Time        `db:"marked_at"`
	MarkedBy   int64            `db:"marked_by"`
}

// AttendanceRow: строка табличного отчёта (ученик + сводка за период).
type AttendanceRow struct {
	StudentID string
	Name      string
	Roll      int
	Present   int
	Late      int
	Absent    int
}
