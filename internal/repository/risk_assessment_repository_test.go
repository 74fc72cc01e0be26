package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
)

var riskRowColumns = []string{"id", "company_id", "title", "description", "hazard_type", "department_id", "department_name",
	"location", "exposure_group", "line_manager_id", "line_manager_name", "line_manager_email",
	"probability_before", "severity_before", "score_before", "risk_level_before",
	"probability_after", "severity_after", "score_after", "risk_level_after",
	"status", "notes", "assessed_on", "approved_by", "approved_at", "created_by", "created_at", "updated_at"}

var measureRowColumns = []string{"id", "risk_assessment_id", "category", "description", "responsible_id", "responsible_name",
	"due_on", "notes", "status", "created_at", "updated_at"}

func riskRow(rows *sqlmock.Rows, id, title string, now time.Time) *sqlmock.Rows {
	return rows.AddRow(id, "c-1", title, "", "mechanical", "d-1", "Logistics",
		"Plant 1", "Drivers", nil, nil, nil,
		4, 4, 16, "high",
		2, 3, 6, "low",
		"draft", "", now, nil, nil, nil, now, now)
}

func TestRiskAssessmentListAttachesMeasures(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskAssessmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(riskRowColumns)
	riskRow(rows, "r-1", "Forklift traffic", now)
	riskRow(rows, "r-2", "Solvent storage", now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.company_id = $1 ORDER BY r.created_at DESC")).
		WithArgs("c-1").
		WillReturnRows(rows)

	measures := sqlmock.NewRows(measureRowColumns).
		AddRow("m-1", "r-1", "engineering_controls", "Barrier", nil, nil, nil, "", "done", now, now).
		AddRow("m-2", "r-1", "ppe", "Vests", nil, nil, nil, "", "Open", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.risk_assessment_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(measures)

	list, err := repo.List(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, risk.LevelHigh, list[0].RiskLevelBefore)
	require.Len(t, list[0].Measures, 2)
	assert.Equal(t, risk.StatusCompleted, list[0].Measures[0].Status)
	assert.Equal(t, risk.StatusOpen, list[0].Measures[1].Status)
	assert.NotNil(t, list[1].Measures)
	assert.Empty(t, list[1].Measures)
	assert.Equal(t, 50, list[0].Progress())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAssessmentFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskAssessmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.company_id = $1 AND r.id = $2")).
		WithArgs("c-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "c-1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRiskAssessmentCreateInsertsMeasuresInTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskAssessmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO risk_assessments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO risk_measures").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	a := &models.RiskAssessment{CompanyID: "c-1", Title: "Noise", Measures: []models.RiskMeasure{{Category: models.MeasurePPE}}}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, a.ID, a.Measures[0].RiskAssessmentID)
	assert.Equal(t, risk.StatusNotStarted, a.Measures[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAssessmentUpdateReplacesMeasures(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskAssessmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE risk_assessments SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM risk_measures WHERE risk_assessment_id = $1 AND NOT (id = ANY($2))")).
		WithArgs("r-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO risk_measures").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO risk_measures").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a := &models.RiskAssessment{ID: "r-1", CompanyID: "c-1", Measures: []models.RiskMeasure{{ID: "m-1"}, {}}}
	require.NoError(t, repo.Update(context.Background(), a))
	assert.NotEmpty(t, a.Measures[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAssessmentUpdateUnknownRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskAssessmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE risk_assessments SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.RiskAssessment{ID: "r-x", CompanyID: "c-1"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAssessmentDeleteRemovesMeasuresFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskAssessmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM risk_measures WHERE risk_assessment_id IN")).
		WithArgs("c-1", "r-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM risk_assessments WHERE company_id = $1 AND id = $2")).
		WithArgs("c-1", "r-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "c-1", "r-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAssessmentApproveRequiresDraft(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskAssessmentRepository(db)

	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("status = 'draft'")).
		WithArgs("c-1", "r-1", "notes", "u-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Approve(context.Background(), "c-1", "r-1", "u-1", "notes", at)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMeasureStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskAssessmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE risk_measures SET status = $1")).
		WithArgs("completed", sqlmock.AnyArg(), "r-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.UpdateMeasureStatus(context.Background(), "r-1", []string{"m-1", "m-2"}, risk.StatusCompleted)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
