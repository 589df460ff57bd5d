package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/broker-genie/internal/activity"
	"github.com/spigell/broker-genie/internal/catalog"
	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/plans"
	"github.com/spigell/broker-genie/internal/set"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	return db, mock
}

var planRowColumns = []string{
	"id", "company_name", "product_name", "product_category", "product_price", "product_benefits",
	"available_states", "disqualifying_health_conditions", "disqualifying_medications",
}

func TestMigrate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS insurance_plans")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
}

func TestPlanRepoPlans(t *testing.T) {
	db, mock := newMock(t)

	rows := sqlmock.NewRows(planRowColumns).
		AddRow("1", "Acme", "Silver PPO", "Medical", 320.5, "Nationwide", nil, nil, nil).
		AddRow("2", "Acme", "Smile", "Dental", 29.99, nil, "{CA,NV}", "{Diabetes,\"Heart Disease\"}", "{}")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, company_name")).WillReturnRows(rows)

	ps, err := NewPlanRepo(db).Plans(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, ps.Len())

	first := ps.Items[0]
	assert.Equal(t, "Nationwide", first.Benefits)
	assert.True(t, first.AvailableStates.IsEmpty())

	second := ps.Items[1]
	assert.Equal(t, "", second.Benefits)
	assert.Equal(t, []string{"CA", "NV"}, second.AvailableStates.Sorted())
	assert.True(t, second.DisqualifyingHealthConditions.Has("Heart Disease"))
	assert.Nil(t, second.DisqualifyingMedications)
}

func TestPlanRepoRejectsInvalidRows(t *testing.T) {
	db, mock := newMock(t)

	rows := sqlmock.NewRows(planRowColumns).
		AddRow("1", "", "Silver PPO", "Medical", 10.0, nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, company_name")).WillReturnRows(rows)

	_, err := NewPlanRepo(db).Plans(context.Background())
	assert.ErrorContains(t, err, "company name is required")
}

func TestPlanRepoReferenceLists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPlanRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM health_conditions ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Cancer").AddRow("Diabetes"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM medications ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	conditions, err := repo.HealthConditions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Cancer", "Diabetes"}, conditions)

	meds, err := repo.Medications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, meds)
	assert.NotNil(t, meds)
}

func TestPlanRepoSeed(t *testing.T) {
	db, mock := newMock(t)

	doc := &catalog.Document{
		Plans: []*plans.Plan{
			{ID: "1", CompanyName: "Acme", ProductName: "Silver", ProductCategory: "Medical", MonthlyPrice: 100, AvailableStates: set.New("CA")},
		},
		HealthConditions: []string{"Diabetes"},
		Medications:      []string{"Insulin"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO insurance_plans")).
		WithArgs("1", "Acme", "Silver", "Medical", 100.0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO health_conditions")).
		WithArgs("Diabetes").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO medications")).
		WithArgs("Insulin").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPlanRepo(db).Seed(context.Background(), doc))
}

func TestPlanRepoSeedRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)

	doc := &catalog.Document{Plans: []*plans.Plan{{ID: "1", CompanyName: "Acme", ProductName: "Silver"}}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO insurance_plans")).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := NewPlanRepo(db).Seed(context.Background(), doc)
	assert.ErrorContains(t, err, "upsert plan 1")
}

func sampleClient() *clients.Client {
	height := 70.0
	return &clients.Client{
		ID:               "9b2f3c1e-0000-4000-8000-000000000001",
		UserID:           "broker-1",
		FullName:         "Jane Doe",
		DateOfBirth:      "1980-04-02",
		State:            "CA",
		Height:           &height,
		HealthConditions: set.New("Diabetes"),
		Medications:      set.New(),
		CreatedAt:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Dependents: []*clients.Dependent{
			{ID: "9b2f3c1e-0000-4000-8000-000000000002", Relationship: clients.RelationshipSpouse, FullName: "John Doe"},
			{ID: "9b2f3c1e-0000-4000-8000-000000000003", Relationship: clients.RelationshipChild, FullName: "Kid Doe"},
		},
	}
}

func TestClientRepoCreate(t *testing.T) {
	db, mock := newMock(t)
	c := sampleClient()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clients")).
		WithArgs(c.ID, "broker-1", "Jane Doe", sqlmock.AnyArg(), "1980-04-02", sqlmock.AnyArg(), "CA",
			70.0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), c.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dependents")).
		WithArgs(c.Dependents[0].ID, c.ID, 0, "spouse", "John Doe", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dependents")).
		WithArgs(c.Dependents[1].ID, c.ID, 1, "child", "Kid Doe", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewClientRepo(db).Create(context.Background(), c))
}

func TestClientRepoCreateRollsBackOnDependentFailure(t *testing.T) {
	db, mock := newMock(t)
	c := sampleClient()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clients")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dependents")).WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := NewClientRepo(db).Create(context.Background(), c)
	assert.ErrorContains(t, err, "insert dependent 0")
}

var clientRowColumns = []string{
	"id", "user_id", "full_name", "gender", "date_of_birth", "zip_code", "state",
	"height", "weight", "health_conditions", "medications", "created_at",
}

func TestClientRepoGet(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(clientRowColumns).
			AddRow("c1", "broker-1", "Jane Doe", "female", "1980-04-02", "94105", "CA", 65.5, nil, "{Diabetes}", "{}", created))
	mock.ExpectQuery(regexp.QuoteMeta("FROM dependents WHERE client_id = $1 ORDER BY position")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "client_id", "relationship", "full_name", "gender", "date_of_birth", "height", "weight", "health_conditions", "medications",
		}).AddRow("d1", "c1", "spouse", "John Doe", "", "", nil, nil, "{}", "{Insulin}"))

	c, err := NewClientRepo(db).Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", c.FullName)
	require.NotNil(t, c.Height)
	assert.Equal(t, 65.5, *c.Height)
	assert.Nil(t, c.Weight)
	assert.True(t, c.HealthConditions.Has("Diabetes"))
	assert.Equal(t, created, c.CreatedAt)
	require.Len(t, c.Dependents, 1)
	assert.Equal(t, clients.RelationshipSpouse, c.Dependents[0].Relationship)
	assert.True(t, c.Dependents[0].Medications.Has("Insulin"))
}

func TestClientRepoGetNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(clientRowColumns))

	_, err := NewClientRepo(db).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, clients.ErrNotFound)
}

func TestClientRepoList(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := NewClientRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs("broker-1").
		WillReturnRows(sqlmock.NewRows(clientRowColumns).
			AddRow("c2", "broker-1", "B", "", "", "", "", nil, nil, "{}", "{}", created).
			AddRow("c1", "broker-1", "A", "", "", "", "NY", nil, nil, "{}", "{}", created.Add(-time.Hour)))

	list, err := repo.List(context.Background(), "broker-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "NY", list[1].State)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clients ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(clientRowColumns))

	all, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestActivityRepo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivityRepo(db)
	ctx := context.Background()

	entry := activity.NewEntry("broker-1", activity.TypeClientIntake, map[string]any{"client_id": "c1"})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_activity")).
		WithArgs(entry.ID, "broker-1", "client_intake", []byte(`{"client_id":"c1"}`), entry.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Record(ctx, entry))

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_activity WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs("broker-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "activity_type", "details", "created_at"}).
			AddRow("a2", "broker-1", "ai_chat", nil, entry.CreatedAt).
			AddRow("a1", "broker-1", "client_intake", []byte(`{"client_id":"c1"}`), entry.CreatedAt))

	entries, err := repo.List(ctx, "broker-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, activity.TypeAIChat, entries[0].Type)
	assert.Nil(t, entries[0].Details)
	assert.Equal(t, "c1", entries[1].Details["client_id"])
	assert.Equal(t, 20, activity.TimeSaved(entries))
}
