package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brewline/console/internal/api/middleware"
	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/service"
)

// Section is a role-restricted area of the dashboard.
type Section struct {
	Key   string
	Title string
	Path  string
	Roles []domain.Role
}

// Sections lists the dashboard areas and the roles admitted to each.
var Sections = []Section{
	{Key: "accounting", Title: "Accounting", Path: "/dashboard/accounting", Roles: domain.AccountantRoles},
	{Key: "roasting", Title: "Roasting", Path: "/dashboard/roasting", Roles: domain.RoasterRoles},
	{Key: "settings", Title: "Tenant settings", Path: "/dashboard/settings", Roles: domain.AdminRoles},
	{Key: "admin", Title: "Tenants", Path: "/dashboard/admin/tenants", Roles: []domain.Role{domain.RoleSuperAdmin}},
}

type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Dashboard renders the overview with links to every section the user may open.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	svc := middleware.ScopeFrom(c).Service
	return c.Render(http.StatusOK, pageDashboard, page{
		Title:    "Dashboard",
		User:     svc.CurrentUser(),
		Sections: visibleSections(svc),
	})
}

// Section returns a handler rendering the placeholder page for s. Data views
// for each area live outside the console core.
func (h *DashboardHandler) Section(s Section) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Render(http.StatusOK, pageSection, page{
			Title: s.Title,
			User:  middleware.ScopeFrom(c).Service.CurrentUser(),
		})
	}
}

// Session returns the current session as JSON. The credential is never included.
//
// @Summary      Current console session
// @Tags         console
// @Produce      json
// @Success      200  {object}  domain.Session
// @Router       /dashboard/session [get]
func (h *DashboardHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.ScopeFrom(c).Store.Snapshot())
}

func visibleSections(svc *service.SessionService) []section {
	var out []section
	for _, s := range Sections {
		if svc.HasRole(s.Roles...) {
			out = append(out, section{Name: s.Title, Path: s.Path})
		}
	}
	return out
}
