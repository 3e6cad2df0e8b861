package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
)

// IdentityHandler serves the backend credential exchange of the local
// identity backend.
type IdentityHandler struct {
	identityService ports.IdentityService
}

func NewIdentityHandler(identityService ports.IdentityService) *IdentityHandler {
	return &IdentityHandler{identityService: identityService}
}

type registerRequest struct {
	CompanyName string `json:"company_name" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

type registerResponse struct {
	Tenant *domain.Tenant `json:"tenant"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Register creates a tenant and its OWNER account.
//
// @Summary      Register a tenant
// @Tags         identity
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Company and owner details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Failure      500   {object}  errorBody
// @Router       /api/v1/register [post]
func (h *IdentityHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}

	tenant, err := h.identityService.Register(c.Request().Context(), req.CompanyName, req.Email, req.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrAccountExists):
			status = http.StatusConflict
		case errors.Is(err, domain.ErrInvalidInput):
			status = http.StatusBadRequest
		default:
			return err
		}
		return c.JSON(status, errorBody{Error: err.Error()})
	}

	return c.JSON(http.StatusCreated, registerResponse{Tenant: tenant})
}

// Login authenticates an account and returns a signed credential.
//
// @Summary      Login
// @Tags         identity
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Router       /api/v1/login [post]
func (h *IdentityHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}

	token, _, err := h.identityService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, errorBody{Error: domain.MsgInvalidLogin})
		case errors.Is(err, domain.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		}
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{Token: token})
}

// Me echoes the verified claims of the bearer credential.
//
// @Summary      Current identity
// @Tags         identity
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorBody
// @Router       /api/v1/me [get]
func (h *IdentityHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, claims.User(""))
}
