package access

import "github.com/Spok95/school-office/internal/models"

func (p Principal) IsAdmin() bool { return p.Role == models.Admin }

// SameSchool: строки чужой школы не видит никто.
func (p Principal) SameSchool(schoolID int64) bool { return p.SchoolID == schoolID }

// CanViewClass: админ и сотрудники видят всё, учитель только свои секции.
func (p Principal) CanViewClass(classID, sectionID int64) bool {
	switch p.Role {
	case models.Admin, models.Staff:
		return true
	case models.Teacher:
		for _, a := range p.Assignments {
			if a.ClassID == classID && (sectionID == 0 || a.SectionID == sectionID) {
				return true
			}
		}
	}
	return false
}

// CanEditMarks: учитель этого предмета в этой секции или классный руководитель.
func (p Principal) CanEditMarks(classID, sectionID, subjectID int64) bool {
	if p.IsAdmin() {
		return true
	}
	if p.Role != models.Teacher {
		return false
	}
	for _, a := range p.Assignments {
		if a.ClassID != classID || a.SectionID != sectionID {
			continue
		}
		if a.SubjectID == nil || *a.SubjectID == subjectID {
			return true
		}
	}
	return false
}

// CanManageFinance: счета, оплаты, SMS-пакеты.
func (p Principal) CanManageFinance() bool {
	return p.Role == models.Admin || p.Role == models.Accountant
}

// CanMarkAttendance: киоск и ручная отметка.
func (p Principal) CanMarkAttendance() bool {
	return p.Role == models.Admin || p.Role == models.Staff || p.Role == models.Teacher
}

// FilterStudents оставляет учеников, которых видит пользователь. Бухгалтер видит всех своей школы.
func (p Principal) FilterStudents(sts []models.Student) []models.Student {
	out := make([]models.Student, 0, len(sts))
	for _, st := range sts {
		if !p.SameSchool(st.SchoolID) {
			continue
		}
		if p.Role == models.Accountant || p.CanViewClass(st.ClassID, st.SectionID) {
			out = append(out, st)
		}
	}
	return out
}

// FilterSubjects: учителю только назначенные предметы (или все, если он классный руководитель).
func (p Principal) FilterSubjects(subjects []models.Subject) []models.Subject {
	if p.Role != models.Teacher {
		return subjects
	}
	own := map[int64]bool{}
	homeroom := map[int64]bool{}
	for _, a := range p.Assignments {
		if a.SubjectID == nil {
			homeroom[a.ClassID] = true
			continue
		}
		own[*a.SubjectID] = true
	}
	out := make([]models.Subject, 0, len(subjects))
	for _, s := range subjects {
		if homeroom[s.ClassID] || own[s.ID] {
			out = append(out, s)
		}
	}
	return out
}
