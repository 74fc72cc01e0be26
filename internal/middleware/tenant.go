package middleware

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
	"github.com/noah-isme/hse-api/pkg/logger"
	"github.com/noah-isme/hse-api/pkg/response"
)

const (
	// CompanyHeader names the tenant a SUPERADMIN acts in.
	CompanyHeader = "X-Company-ID"

	contextCompanyKey = "currentCompany"
)

type companyFinder interface {
	FindByID(ctx context.Context, id string) (*models.Company, error)
}

// TenantScope resolves the company of the request. Regular users act in their claim's company;
// SUPERADMIN must name one in X-Company-ID. Users of unusable companies get 402.
func TenantScope(companies companyFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}

		companyID := claims.CompanyID
		if claims.Role == models.RoleSuperAdmin {
			companyID = strings.TrimSpace(c.GetHeader(CompanyHeader))
		}
		if companyID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrTenantRequired, ""))
			return
		}

		company, err := companies.FindByID(c.Request.Context(), companyID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "company not found"))
				return
			}
			response.Error(c, appErrors.Internal(err, "failed to load company"))
			return
		}
		if claims.Role != models.RoleSuperAdmin && !company.Usable(time.Now().UTC()) {
			response.Error(c, appErrors.Clone(appErrors.ErrSubscriptionInactive, ""))
			return
		}

		c.Set(contextCompanyKey, company)
		logger.Annotate(c, "company_id", company.ID)
		c.Next()
	}
}

// Company returns the company resolved by TenantScope, or nil.
func Company(c *gin.Context) *models.Company {
	value, exists := c.Get(contextCompanyKey)
	if !exists {
		return nil
	}
	company, _ := value.(*models.Company)
	return company
}

// RequireAddon rejects requests whose company lacks the add-on. Must run after TenantScope.
func RequireAddon(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		company := Company(c)
		if company == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrTenantRequired, ""))
			return
		}
		if !company.HasAddon(name) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "the "+name+" add-on is not enabled for this company"))
			return
		}
		c.Next()
	}
}

// Actor builds the service-level caller from the request context.
func Actor(c *gin.Context) models.Actor {
	actor := models.Actor{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := Claims(c); claims != nil {
		actor.UserID = claims.UserID
		actor.Role = claims.Role
		actor.FullName = claims.FullName
		actor.CompanyID = claims.CompanyID
	}
	if company := Company(c); company != nil {
		actor.CompanyID = company.ID
	}
	return actor
}
