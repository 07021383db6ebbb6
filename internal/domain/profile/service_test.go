package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/healthshield/backoffice/internal/platform/apperr"
	"github.com/healthshield/backoffice/internal/platform/blobstore"
)

// -- Mock Repository --

type mockRepo struct {
	profiles   map[uuid.UUID]*Profile
	health     map[uuid.UUID]*HealthInformation
	lifestyles map[uuid.UUID]*Lifestyle
	labs       map[uuid.UUID]*LabSnapshot
	risks      map[uuid.UUID][]ConditionRisk
	failWith   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		profiles:   make(map[uuid.UUID]*Profile),
		health:     make(map[uuid.UUID]*HealthInformation),
		lifestyles: make(map[uuid.UUID]*Lifestyle),
		labs:       make(map[uuid.UUID]*LabSnapshot),
		risks:      make(map[uuid.UUID][]ConditionRisk),
	}
}

func (m *mockRepo) GetProfile(_ context.Context, id uuid.UUID) (*Profile, error) {
	return m.profiles[id], m.failWith
}

func (m *mockRepo) GetHealth(_ context.Context, id uuid.UUID) (*HealthInformation, error) {
	return m.health[id], m.failWith
}

func (m *mockRepo) GetLifestyle(_ context.Context, id uuid.UUID) (*Lifestyle, error) {
	return m.lifestyles[id], m.failWith
}

func (m *mockRepo) GetLabs(_ context.Context, id uuid.UUID) (*LabSnapshot, error) {
	return m.labs[id], m.failWith
}

func (m *mockRepo) ListConditionRisks(_ context.Context, id uuid.UUID) ([]ConditionRisk, error) {
	return m.risks[id], m.failWith
}

func (m *mockRepo) UpsertLabs(_ context.Context, l *LabSnapshot) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.labs[l.UserID] = l
	return nil
}

type stubExtractor struct {
	fields map[string]string
	err    error
	calls  int
}

func (s *stubExtractor) ExtractFields(_ context.Context, _ []byte, _ string) (map[string]string, error) {
	s.calls++
	return s.fields, s.err
}

func seedUser(repo *mockRepo) uuid.UUID {
	id := uuid.New()
	repo.profiles[id] = &Profile{UserID: id, Age: 45, Gender: "Female", AnnualIncome: decimal.NewFromInt(900000), HeightCM: 160, WeightKG: 64}
	repo.health[id] = &HealthInformation{UserID: id, MedicalHistory: NoMajorIssues}
	repo.lifestyles[id] = &Lifestyle{UserID: id, SmokingStatus: "Never", AlcoholConsumption: "None"}
	repo.labs[id] = DefaultLabs(id, repo.profiles[id])
	repo.risks[id] = []ConditionRisk{{ConditionName: "Diabetes", Probability: 0.2, RiskLevel: RiskLow}}
	return id
}

func newTestService(repo *mockRepo, ext *stubExtractor) *Service {
	return NewService(repo, ext, zerolog.Nop())
}

func TestSnapshot_Complete(t *testing.T) {
	repo := newMockRepo()
	id := seedUser(repo)
	svc := newTestService(repo, &stubExtractor{})

	snap, err := svc.Snapshot(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Profile.Age != 45 || len(snap.Risks) != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestSnapshot_MissingRecords(t *testing.T) {
	tests := []struct {
		name   string
		remove func(r *mockRepo, id uuid.UUID)
	}{
		{"profile", func(r *mockRepo, id uuid.UUID) { delete(r.profiles, id) }},
		{"health", func(r *mockRepo, id uuid.UUID) { delete(r.health, id) }},
		{"lifestyle", func(r *mockRepo, id uuid.UUID) { delete(r.lifestyles, id) }},
		{"labs", func(r *mockRepo, id uuid.UUID) { delete(r.labs, id) }},
		{"predictions", func(r *mockRepo, id uuid.UUID) { delete(r.risks, id) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			id := seedUser(repo)
			tt.remove(repo, id)
			svc := newTestService(repo, &stubExtractor{})

			_, err := svc.Snapshot(context.Background(), id)
			if !errors.Is(err, apperr.ErrMissingData) {
				t.Fatalf("expected MissingData, got %v", err)
			}
		})
	}
}

func TestSnapshot_StorageFailure(t *testing.T) {
	repo := newMockRepo()
	id := seedUser(repo)
	repo.failWith = errors.New("connection reset")
	svc := newTestService(repo, &stubExtractor{})

	_, err := svc.Snapshot(context.Background(), id)
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestSnapshot_NilUser(t *testing.T) {
	svc := newTestService(newMockRepo(), &stubExtractor{})
	if _, err := svc.Snapshot(context.Background(), uuid.Nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestSnapshot_RiskHelpers(t *testing.T) {
	snap := &Snapshot{Risks: []ConditionRisk{
		{ConditionName: "Heart_Disease_Risk", RiskLevel: RiskHigh},
		{ConditionName: "Diabetes", RiskLevel: RiskMedium},
		{ConditionName: "Cancer_Risk", RiskLevel: RiskHigh},
	}}
	if snap.HighRiskCount() != 2 {
		t.Errorf("expected 2 high risks, got %d", snap.HighRiskCount())
	}
	if snap.CountRisk(RiskMedium) != 1 {
		t.Errorf("expected 1 medium risk, got %d", snap.CountRisk(RiskMedium))
	}
	if !snap.HasHighRiskFor("Cancer_Risk") || snap.HasHighRiskFor("Diabetes") {
		t.Error("HasHighRiskFor mismatch")
	}
	names := snap.HighRiskConditions()
	if len(names) != 2 || names[0] != "Heart_Disease_Risk" {
		t.Errorf("unexpected high risk names %v", names)
	}
}

func TestReportsHistory(t *testing.T) {
	var nilHealth *HealthInformation
	tests := []struct {
		h    *HealthInformation
		want bool
	}{
		{nilHealth, false},
		{&HealthInformation{}, false},
		{&HealthInformation{MedicalHistory: NoMajorIssues}, false},
		{&HealthInformation{MedicalHistory: "Type 2 diabetes"}, true},
	}
	for _, tt := range tests {
		if got := tt.h.ReportsHistory(); got != tt.want {
			t.Errorf("ReportsHistory(%+v) = %v, want %v", tt.h, got, tt.want)
		}
	}
}

func TestIngestLabReport_StoresMergedSnapshot(t *testing.T) {
	repo := newMockRepo()
	id := seedUser(repo)
	ext := &stubExtractor{fields: map[string]string{
		"Systolic BP":         "150",
		"Cholesterol (Total)": "230 mg/dL",
		"Hemoglobin":          "not measured",
		"Unknown Test":        "42",
	}}
	svc := newTestService(repo, ext)
	store := blobstore.NewMemoryStore()
	svc.SetBlobStore(store)

	labs, err := svc.IngestLabReport(context.Background(), id, &blobstore.Upload{
		FileName: "report.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 report"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labs.SystolicBP != 150 || labs.CholesterolTotal != 230 {
		t.Errorf("extracted values not applied: %+v", labs)
	}
	if labs.Hemoglobin != 16.3 {
		t.Errorf("expected default hemoglobin, got %v", labs.Hemoglobin)
	}
	if repo.labs[id] != labs {
		t.Error("expected snapshot to be upserted")
	}

	docs, total, err := store.List(context.Background(), id.String(), blobstore.KindLabReport, 10, 0)
	if err != nil || total != 1 || docs[0].FileName != "report.pdf" {
		t.Errorf("expected archived report, got %d docs (err %v)", total, err)
	}
}

func TestIngestLabReport_RequiresProfileAndLifestyle(t *testing.T) {
	repo := newMockRepo()
	id := seedUser(repo)
	delete(repo.lifestyles, id)
	ext := &stubExtractor{fields: map[string]string{}}
	svc := newTestService(repo, ext)

	_, err := svc.IngestLabReport(context.Background(), id, &blobstore.Upload{FileName: "r.pdf", Data: []byte("%PDF")})
	if !errors.Is(err, apperr.ErrMissingData) {
		t.Fatalf("expected MissingData, got %v", err)
	}
	if ext.calls != 0 {
		t.Error("extractor must not be called when the profile is incomplete")
	}
}

func TestIngestLabReport_ExtractionFailure(t *testing.T) {
	repo := newMockRepo()
	id := seedUser(repo)
	before := repo.labs[id]
	svc := newTestService(repo, &stubExtractor{err: errors.New("upstream 503")})

	_, err := svc.IngestLabReport(context.Background(), id, &blobstore.Upload{FileName: "r.png", Data: []byte("png")})
	if !errors.Is(err, apperr.ErrExtractionFailed) {
		t.Fatalf("expected ExtractionFailed, got %v", err)
	}
	if repo.labs[id] != before {
		t.Error("lab snapshot must not change on extraction failure")
	}
}

func TestIngestLabReport_RejectsUnsupportedFormat(t *testing.T) {
	repo := newMockRepo()
	id := seedUser(repo)
	svc := newTestService(repo, &stubExtractor{})

	_, err := svc.IngestLabReport(context.Background(), id, &blobstore.Upload{FileName: "notes.txt", ContentType: "text/plain", Data: []byte("hello")})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestIngestLabReport_EmptyFile(t *testing.T) {
	svc := newTestService(newMockRepo(), &stubExtractor{})
	_, err := svc.IngestLabReport(context.Background(), uuid.New(), &blobstore.Upload{FileName: "r.pdf"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}
