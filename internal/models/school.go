package models

import (
	"time"

	"github.com/google/uuid"
)

type School struct {
	ID             int64   `db:"id"`
	Name           string  `db:"name"`
	NameLocal      string  `db:"name_local"`
	Address        string  `db:"address"`
	Code           string  `db:"code"` // EIIN
	Phone          string  `db:"phone"`
	LogoURL        *string `db:"logo_url"`
	PrincipalName  string  `db:"principal_name"`
	CurrencySymbol string  `db:"currency_symbol"`
}

type Class struct {
	ID       int64  `db:"id"`
	SchoolID int64  `db:"school_id"`
	Name     string `db:"name"`
	Level    int    `db:"level"`
}

type Section struct {
	ID       int64  `db:"id"`
	SchoolID int64  `db:"school_id"`
	ClassID  int64  `db:"class_id"`
	Name     string `db:"name"`
}

type Subject struct {
	ID      int64  `db:"id"`
	ClassID int64  `db:"class_id"`
	Name    string `db:"name"`
	Code    string `db:"code"`
}

type StudentStatus string

const (
	StudentActive      StudentStatus = "active"
	StudentInactive    StudentStatus = "inactive"
	StudentTransferred StudentStatus = "transferred"
)

type Guardian struct {
	Name     string  `db:"guardian_name"`
	Relation string  `db:"guardian_relation"`
	Phone    string  `db:"guardian_phone"`
	Email    *string `db:"guardian_email"`
	ChatID   *int64  `db:"guardian_chat_id"`
}

type Student struct {
	ID            int64         `db:"id"`
	PublicID      uuid.UUID     `db:"public_id"`
	SchoolID      int64         `db:"school_id"`
	StudentID     string        `db:"student_code"`
	NameEN        string        `db:"name_en"`
	NameLocal     *string       `db:"name_local"`
	Roll          int           `db:"roll"`
	ClassID       int64         `db:"class_id"`
	SectionID     int64         `db:"section_id"`
	ClassName     string        `db:"class_name"`
	SectionName   string        `db:"section_name"`
	Guardian      *Guardian     `db:"-"`
	PhotoURL      *string       `db:"photo_url"`
	Status        StudentStatus `db:"status"`
	DateOfBirth   *time.Time    `db:"date_of_birth"`
	BloodGroup    *string       `db:"blood_group"`
	AdmissionDate time.Time     `db:"admission_date"`
}

// PromotionMove: перевод ученика в новый класс/секцию с новым номером.
type PromotionMove struct {
	StudentRef int64 `json:"student_ref" validate:"required"`
	ClassID    int64 `json:"class_id" validate:"required"`
	SectionID  int64 `json:"section_id" validate:"required"`
	Roll       int   `json:"roll" validate:"required,min=1"`
}

// RollHolder: занятый номер в секции.
type RollHolder struct {
	StudentRef int64
	SectionID  int64
	Roll       int
}
