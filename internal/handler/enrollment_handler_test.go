package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/enrollment-api/internal/middleware"
	"github.com/campushub/enrollment-api/internal/models"
	"github.com/campushub/enrollment-api/internal/service"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
)

type enrollmentStoreMock struct {
	detail    *models.EnrollmentDetail
	listItems []models.EnrollmentDetail
	listTotal int
	filter    models.EnrollmentFilter
}

func (m *enrollmentStoreMock) List(ctx context.Context, schoolID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.filter = filter
	return m.listItems, m.listTotal, nil
}

func (m *enrollmentStoreMock) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Enrollment, error) {
	if m.detail == nil || m.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := m.detail.Enrollment
	return &copy, nil
}

func (m *enrollmentStoreMock) FindDetailByID(ctx context.Context, schoolID, id string) (*models.EnrollmentDetail, error) {
	if m.detail == nil || m.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *m.detail
	return &copy, nil
}

func (m *enrollmentStoreMock) FindActiveByStudent(ctx context.Context, exec sqlx.ExtContext, schoolID, studentID string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (m *enrollmentStoreMock) ExistsForYear(ctx context.Context, exec sqlx.ExtContext, schoolID, studentID, academicYearID string) (bool, error) {
	return false, nil
}

func (m *enrollmentStoreMock) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	return nil
}

func (m *enrollmentStoreMock) UpdateStatusFrom(ctx context.Context, exec sqlx.ExtContext, schoolID, id string, from, to models.EnrollmentStatus, completionDate *time.Time) (bool, error) {
	return false, nil
}

func (m *enrollmentStoreMock) CountByStatus(ctx context.Context, schoolID, academicYearID string) (map[models.EnrollmentStatus]int, error) {
	return map[models.EnrollmentStatus]int{}, nil
}

type readerMock struct{}

func (readerMock) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}

type classReaderMock struct{}

func (classReaderMock) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Class, error) {
	return nil, sql.ErrNoRows
}

type yearReaderMock struct{}

func (yearReaderMock) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.AcademicYear, error) {
	return nil, sql.ErrNoRows
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

func newEnrollmentHandler(store *enrollmentStoreMock) *EnrollmentHandler {
	lookups := service.NewLookups(readerMock{}, classReaderMock{}, yearReaderMock{})
	svc := service.NewEnrollmentService(store, lookups, nil, noopTxProvider{}, nil, nil,
		service.NewMetricsService(), nil, time.Minute, nil, nil)
	return NewEnrollmentHandler(svc)
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	schoolID := "school-1"
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", SchoolID: &schoolID, Role: models.RoleAdmin})
	return c, w
}

func sampleDetail() *models.EnrollmentDetail {
	return &models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:             "enr-1",
			SchoolID:       "school-1",
			StudentID:      "stu-1",
			AcademicYearID: "year-1",
			ClassID:        "class-1",
			Status:         models.EnrollmentStatusActive,
			EnrollmentDate: time.Now().UTC(),
		},
		StudentName:      "Jane Doe",
		AdmissionNumber:  "ADM-001",
		ClassName:        "Grade 5A",
		ClassGrade:       "5",
		AcademicYearName: "2026/2027",
	}
}

func TestEnrollmentHandlerGet(t *testing.T) {
	store := &enrollmentStoreMock{detail: sampleDetail()}
	handler := newEnrollmentHandler(store)

	c, w := testContext(t, http.MethodGet, "/schools/school-1/enrollments/enr-1", nil)
	c.Params = gin.Params{{Key: "schoolId", Value: "school-1"}, {Key: "id", Value: "enr-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "enr-1")
	assert.Contains(t, w.Body.String(), "Jane Doe")
}

func TestEnrollmentHandlerGetNotFound(t *testing.T) {
	handler := newEnrollmentHandler(&enrollmentStoreMock{})

	c, w := testContext(t, http.MethodGet, "/schools/school-1/enrollments/enr-404", nil)
	c.Params = gin.Params{{Key: "schoolId", Value: "school-1"}, {Key: "id", Value: "enr-404"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollmentHandlerListFilters(t *testing.T) {
	store := &enrollmentStoreMock{listItems: []models.EnrollmentDetail{*sampleDetail()}, listTotal: 1}
	handler := newEnrollmentHandler(store)

	c, w := testContext(t, http.MethodGet, "/schools/school-1/enrollments?status=active&page=2&limit=10", nil)
	c.Params = gin.Params{{Key: "schoolId", Value: "school-1"}}

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EnrollmentStatusActive, store.filter.Status)
	assert.Equal(t, 2, store.filter.Page)
	assert.Equal(t, 10, store.filter.PageSize)
}

func TestEnrollmentHandlerStatsIncludesResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandler(&enrollmentStoreMock{})

	schoolID := "school-1"
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", SchoolID: &schoolID, Role: models.RoleAdmin})
	})
	router.Use(middleware.WithResponseMeta())
	router.GET("/schools/:schoolId/enrollments/stats", handler.Stats)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schools/school-1/enrollments/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestEnrollmentHandlerCreateInvalidBody(t *testing.T) {
	handler := newEnrollmentHandler(&enrollmentStoreMock{})

	c, w := testContext(t, http.MethodPost, "/schools/school-1/enrollments", []byte(`{"studentId":`))
	c.Params = gin.Params{{Key: "schoolId", Value: "school-1"}}

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerMissingClaims(t *testing.T) {
	store := &enrollmentStoreMock{detail: sampleDetail()}
	handler := newEnrollmentHandler(store)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/schools/school-1/enrollments/enr-1", nil)
	c.Params = gin.Params{{Key: "schoolId", Value: "school-1"}, {Key: "id", Value: "enr-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
