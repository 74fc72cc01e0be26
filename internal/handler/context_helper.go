package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
	"github.com/noah-isme/hse-api/pkg/response"
)

// Query parameters consumed by listQuery; every other parameter is a category selection.
var reservedListParams = map[string]struct{}{
	"search":    {},
	"from":      {},
	"to":        {},
	"page":      {},
	"page_size": {},
}

// listQuery reads search, date range, paging and category selections, e.g. ?status=open&department=Logistics.
func listQuery(c *gin.Context) models.ListQuery {
	q := models.ListQuery{
		Search: c.Query("search"),
		From:   c.Query("from"),
		To:     c.Query("to"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		q.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		q.PageSize = size
	}
	for key, values := range c.Request.URL.Query() {
		if _, reserved := reservedListParams[key]; reserved || len(values) == 0 {
			continue
		}
		if q.Selections == nil {
			q.Selections = make(map[string]string)
		}
		q.Selections[key] = strings.TrimSpace(values[0])
	}
	return q
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}
