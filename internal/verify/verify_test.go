package verify

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/export"
	"github.com/Spok95/school-office/internal/models"
	"github.com/google/uuid"
)

type memStore struct {
	student models.Student
	exam    models.Exam
	cert    models.Certificate
	fail    error
}

func (m *memStore) GetSchool(_ context.Context, id int64) (*models.School, error) {
	if id != 1 {
		return nil, nil
	}
	return &models.School{ID: 1, Name: "Model School"}, nil
}

func (m *memStore) GetStudentByPublicID(_ context.Context, id uuid.UUID) (*models.Student, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	if id != m.student.PublicID {
		return nil, nil
	}
	st := m.student
	return &st, nil
}

func (m *memStore) GetStudent(_ context.Context, id int64) (*models.Student, error) {
	if id != m.student.ID {
		return nil, nil
	}
	st := m.student
	return &st, nil
}

func (m *memStore) GetExam(_ context.Context, id int64) (*models.Exam, error) {
	if id != m.exam.ID {
		return nil, nil
	}
	e := m.exam
	return &e, nil
}

func (m *memStore) GetCertificate(_ context.Context, id uuid.UUID) (*models.Certificate, error) {
	if id != m.cert.ID {
		return nil, nil
	}
	c := m.cert
	return &c, nil
}

// freshRecords отдаёт запись с текущим именем ученика из store.
type freshRecords struct {
	store *memStore
	calls int
}

func (f *freshRecords) record(kind models.DocumentKind) models.DocumentRecord {
	f.calls++
	st := f.store.student
	switch kind {
	case models.KindReportCard:
		return models.ReportCardRecord{Student: st, Exam: f.store.exam}
	case models.KindAdmitCard:
		return models.AdmitCardRecord{Student: st, Exam: f.store.exam}
	}
	return models.IDCardRecord{Student: st}
}

func (f *freshRecords) Certificate(context.Context, uuid.UUID) (models.DocumentRecord, error) {
	f.calls++
	return models.CharacterCertificateRecord{Student: f.store.student}, nil
}

func (f *freshRecords) IDCardByPublicID(context.Context, uuid.UUID) (models.DocumentRecord, error) {
	return f.record(models.KindIDCard), nil
}

func (f *freshRecords) AdmitCard(context.Context, int64, int64) (models.DocumentRecord, error) {
	return f.record(models.KindAdmitCard), nil
}

func (f *freshRecords) ReportCard(context.Context, int64, int64) (models.DocumentRecord, error) {
	return f.record(models.KindReportCard), nil
}

type recordingExporter struct{ got []models.DocumentRecord }

func (e *recordingExporter) Export(_ context.Context, kind models.DocumentKind, recs []models.DocumentRecord) (*export.SavedFile, error) {
	e.got = recs
	return &export.SavedFile{Name: export.FileName(kind, recs[0].PrimaryIdentifier(), len(recs), "pdf")}, nil
}

func fixture() (*memStore, *Verifier, *freshRecords, *recordingExporter) {
	st := &memStore{
		student: models.Student{ID: 10, PublicID: uuid.New(), SchoolID: 1, StudentID: "S-10", NameEN: "Rahim"},
		exam:    models.Exam{ID: 5, SchoolID: 1, Name: "Annual", Year: 2025},
	}
	st.cert = models.Certificate{ID: uuid.New(), SchoolID: 1, Type: models.CertCharacter, CertificateNo: "CC-1", StudentRef: 10}
	recs := &freshRecords{store: st}
	exp := &recordingExporter{}
	return st, New(st, recs, exp, nil), recs, exp
}

func TestResolve_InvalidDoesNotDisclose(t *testing.T) {
	st, v, _, _ := fixture()
	good := st.student.PublicID.String()
	goodExam := strconv.FormatInt(st.exam.ID, 10)
	bad := uuid.New().String()

	cases := map[string]Request{
		"bad student, bad exam":   {Kind: "report-card", Student: bad, Exam: "999"},
		"good student, bad exam":  {Kind: "report-card", Student: good, Exam: "999"},
		"bad student, good exam":  {Kind: "report-card", Student: bad, Exam: goodExam},
		"malformed ids":           {Kind: "report-card", Student: "not-a-uuid", Exam: "x"},
		"unknown kind":            {Kind: "diploma", ID: good},
		"tabular kind":            {Kind: "tabular-fee", ID: good},
		"certificate wrong type":  {Kind: "certificate-passing", ID: st.cert.ID.String()},
		"certificate unknown id":  {Kind: "certificate-character", ID: bad},
		"id card empty id":        {Kind: "id-card"},
		"admit card missing exam": {Kind: "admit-card", Student: good},
	}
	want := Result{State: StateInvalid, Message: InvalidMessage}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			got := v.Resolve(context.Background(), req)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("результат раскрывает детали: %+v", got)
			}
		})
	}
}

func TestResolve_StoreErrorIsInvalid(t *testing.T) {
	st, v, _, _ := fixture()
	st.fail = errors.New("connection reset")
	got := v.Resolve(context.Background(), Request{Kind: "id-card", ID: st.student.PublicID.String()})
	if got.State != StateInvalid || got.Message != InvalidMessage {
		t.Fatalf("ожидали Invalid, получили %+v", got)
	}
}

func TestResolve_Verified(t *testing.T) {
	st, v, _, _ := fixture()
	cases := []struct {
		name string
		req  Request
	}{
		{"id card", Request{Kind: "id-card", ID: st.student.PublicID.String()}},
		{"report card", Request{Kind: "report-card", Student: st.student.PublicID.String(), Exam: "5"}},
		{"admit card", Request{Kind: "admit-card", Student: st.student.PublicID.String(), Exam: "5"}},
		{"certificate", Request{Kind: "certificate-character", ID: st.cert.ID.String()}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := v.Resolve(context.Background(), c.req)
			if got.State != StateVerified || got.Summary == nil || got.Summary.StudentID != "S-10" {
				t.Fatalf("ожидали Verified для S-10, получили %+v", got)
			}
		})
	}
}

func TestReexport_RefetchesRecord(t *testing.T) {
	st, v, recs, exp := fixture()
	res := v.Resolve(context.Background(), Request{Kind: "report-card", Student: st.student.PublicID.String(), Exam: "5"})
	if res.State != StateVerified {
		t.Fatalf("ожидали Verified: %+v", res)
	}

	// данные поменялись после проверки
	st.student.NameEN = "Rahim Uddin"

	f, err := res.Reexport(context.Background())
	if err != nil {
		t.Fatalf("Reexport: %v", err)
	}
	if recs.calls != 1 {
		t.Fatalf("запись должна читаться заново, вызовов %d", recs.calls)
	}
	rc := exp.got[0].(models.ReportCardRecord)
	if rc.Student.NameEN != "Rahim Uddin" {
		t.Fatalf("выгружен снимок, а не свежие данные: %s", rc.Student.NameEN)
	}
	if f.Name != "Report_Card_S-10.pdf" {
		t.Fatalf("имя файла: %s", f.Name)
	}
	if res.Summary.StudentName != "Rahim" {
		t.Fatal("Reexport не должен менять результат проверки")
	}
}

func TestReexport_InvalidRefused(t *testing.T) {
	_, v, _, _ := fixture()
	res := v.Resolve(context.Background(), Request{Kind: "id-card", ID: uuid.New().String()})
	if _, err := res.Reexport(context.Background()); !apperr.IsNotFound(err) {
		t.Fatalf("ожидали NotFound, получили %v", err)
	}
}
