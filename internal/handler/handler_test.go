package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hse-api/internal/middleware"
	"github.com/noah-isme/hse-api/internal/models"
)

type responseEnvelope struct {
	Data       interface{}            `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

var managerClaims = &models.JWTClaims{UserID: "user-1", Role: models.RoleManager, CompanyID: "company-1", FullName: "Mia Manager"}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, managerClaims)
	return c, w
}

// newRouter mounts a single route behind a fake authentication step.
func newRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, path, func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, managerClaims)
		c.Next()
	}, handler)
	return r
}

func TestListQueryCollectsSelections(t *testing.T) {
	c, _ := newGinContext(http.MethodGet, "/risk-assessments?search=fork&from=2024-01-01&to=2024-12-31&page=2&page_size=5&status=approved&department=Logistics", nil)

	q := listQuery(c)

	assert.Equal(t, "fork", q.Search)
	assert.Equal(t, "2024-01-01", q.From)
	assert.Equal(t, "2024-12-31", q.To)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 5, q.PageSize)
	assert.Equal(t, map[string]string{"status": "approved", "department": "Logistics"}, q.Selections)
}

func TestListQueryDefaults(t *testing.T) {
	c, _ := newGinContext(http.MethodGet, "/incidents?page=abc", nil)

	q := listQuery(c)

	assert.Equal(t, 0, q.Page)
	assert.Equal(t, 20, q.PageSize)
	assert.Nil(t, q.Selections)
}
