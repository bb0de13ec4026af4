// Package admin provides the admin-only user management API. Its routes
// live under /api/admin, which the edge gate restricts to tokens carrying
// the admin role -- the handlers here never re-check the role themselves,
// only fine-grained permissions where it matters.
package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/gatehouse/internal/apperror"
	"github.com/keyxmakerx/gatehouse/internal/rbac"
	"github.com/keyxmakerx/gatehouse/internal/plugins/auth"
)

// defaultPageSize bounds user list pages.
const defaultPageSize = 50

// Handler handles admin HTTP requests. Depends on the auth plugin's
// repository via its interface -- no direct SQL here.
type Handler struct {
	users auth.UserRepository
}

// NewHandler creates a new admin handler.
func NewHandler(users auth.UserRepository) *Handler {
	return &Handler{users: users}
}

// userListResponse is the paginated GET /api/admin/users payload.
type userListResponse struct {
	Users []auth.User `json:"users"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
}

// ListUsers returns a page of users (GET /api/admin/users?page=N).
func (h *Handler) ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	users, total, err := h.users.ListUsers(c.Request().Context(), (page-1)*defaultPageSize, defaultPageSize)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if users == nil {
		users = []auth.User{}
	}

	return c.JSON(http.StatusOK, userListResponse{
		Users: users,
		Total: total,
		Page:  page,
	})
}

// updateRoleRequest is the PUT /api/admin/users/:id/role body.
type updateRoleRequest struct {
	Role rbac.Role `json:"role" form:"role"`
}

// UpdateRole changes a user's role and reseeds their default permission set
// (PUT /api/admin/users/:id/role).
func (h *Handler) UpdateRole(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return apperror.NewBadRequest("user id is required")
	}

	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if !req.Role.Valid() {
		return apperror.NewValidation("unknown role")
	}

	err := h.users.UpdateRole(c.Request().Context(), id, req.Role, rbac.DefaultPermissions(req.Role))
	if err != nil {
		if apperror.SafeCode(err) == http.StatusNotFound {
			return err
		}
		return apperror.NewInternal(err)
	}

	user, err := h.users.FindByID(c.Request().Context(), id)
	if err != nil {
		return apperror.NewInternal(err)
	}

	return c.JSON(http.StatusOK, user)
}
