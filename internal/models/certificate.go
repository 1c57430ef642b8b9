package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CertificateType string

const (
	CertPassing   CertificateType = "passing"
	CertTransfer  CertificateType = "transfer"
	CertCharacter CertificateType = "character"
	CertHifz      CertificateType = "hifz"
)

// Certificate: выданный документ. Не изменяется; повторная выдача = новая строка.
type Certificate struct {
	ID            uuid.UUID       `db:"id"`
	SchoolID      int64           `db:"school_id"`
	Type          CertificateType `db:"type"`
	CertificateNo string          `db:"certificate_no"`
	IssueDate     time.Time       `db:"issue_date"`
	StudentRef    int64           `db:"student_ref"`
	Details       json.RawMessage `db:"details"`
	IssuedBy      int64           `db:"issued_by"`
	CreatedAt     time.Time       `db:"created_at"`
}

type PassingDetails struct {
	ExamName string   `json:"exam_name,omitempty"`
	Year     int      `json:"year,omitempty"`
	GPA      *float64 `json:"gpa,omitempty"`
	Grade    *string  `json:"grade,omitempty"`
}

type TransferDetails struct {
	Reason      *string    `json:"reason,omitempty"`
	Conduct     *string    `json:"conduct,omitempty"`
	LastClass   *string    `json:"last_class,omitempty"`
	LeavingDate *time.Time `json:"leaving_date,omitempty"`
}

type CharacterDetails struct {
	Conduct *string `json:"conduct,omitempty"`
	Remarks *string `json:"remarks,omitempty"`
}

type HifzDetails struct {
	Paras          *int       `json:"paras,omitempty"`
	TeacherName    *string    `json:"teacher_name,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}

// DecodeCertificate раскладывает details в типизированную запись по типу сертификата.
func DecodeCertificate(c Certificate, school School, st Student) (DocumentRecord, error) {
	meta := CertificateMeta{ID: c.ID, No: c.CertificateNo, IssueDate: c.IssueDate}
	raw := c.Details
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	switch c.Type {
	case CertPassing:
		var d PassingDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("certificate %s details: %w", c.ID, err)
		}
		return PassingCertificateRecord{School: school, Student: st, Cert: meta, Details: d}, nil
	case CertTransfer:
		var d TransferDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("certificate %s details: %w", c.ID, err)
		}
		return TransferCertificateRecord{School: school, Student: st, Cert: meta, Details: d}, nil
	case CertCharacter:
		var d CharacterDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("certificate %s details: %w", c.ID, err)
		}
		return CharacterCertificateRecord{School: school, Student: st, Cert: meta, Details: d}, nil
	case CertHifz:
		var d HifzDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("certificate %s details: %w", c.ID, err)
		}
		return HifzCertificateRecord{School: school, Student: st, Cert: meta, Details: d}, nil
	}
	return nil, fmt.Errorf("unknown certificate type %q", c.Type)
}
