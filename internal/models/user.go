package models

type Role string

const (
	Admin      Role = "admin"
	Teacher    Role = "teacher"
	Accountant Role = "accountant"
	Staff      Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case Admin, Teacher, Accountant, Staff:
		return true
	}
	return false
}

type User struct {
	ID       int64  `db:"id"`
	SchoolID int64  `db:"school_id"`
	Name     string `db:"name"`
	Email    string `db:"email"`
	Role     Role   `db:"role"`
	IsActive bool   `db:"is_active"`
}

// TeacherAssignment: что учитель ведёт (класс, секция, предмет).
// SubjectID == nil: классное руководство (весь класс без предмета).
type TeacherAssignment struct {
	ID        int64  `db:"id"`
	TeacherID int64  `db:"teacher_id"`
	ClassID   int64  `db:"class_id"`
	SectionID int64  `db:"section_id"`
	SubjectID *int64 `db:"subject_id"`
}
