package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
)

// SessionManager opens and closes the cookie session of a request.
type SessionManager interface {
	Start(c echo.Context, p *domain.Principal) error
	End(c echo.Context) error
}

type AuthHandler struct {
	authService ports.AuthService
	sessions    SessionManager
}

func NewAuthHandler(authService ports.AuthService, sessions SessionManager) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions}
}

// Login authenticates against billing and opens a session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.authService.Login(c.Request().Context(), domain.Credentials{
		Username: req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	if err := h.sessions.Start(c, p); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionResponse{User: newUserResponse(p)})
}

// Register creates a billing account and logs the new user in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration form"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Failure      503   {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return err
	}
	if err := h.sessions.Start(c, p); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, sessionResponse{User: newUserResponse(p)})
}

// Logout discards the local session. Billing is not contacted.
//
// @Summary      Logout
// @Tags         auth
// @Success      204
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.sessions.End(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Profile returns the billing account of the session user.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Profile(c.Request().Context(), p)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profileResponse{
		Username: user.Username,
		Balance:  user.Balance.StringFixed(2),
		Roles:    user.Roles,
	})
}

// Transactions returns the payment and deposit history, oldest first.
//
// @Summary      Transaction history
// @Tags         auth
// @Produce      json
// @Success      200  {array}   transactionResponse
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /transactions [get]
func (h *AuthHandler) Transactions(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	views, err := h.authService.Transactions(c.Request().Context(), p)
	if err != nil {
		return err
	}

	out := make([]transactionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, newTransactionResponse(v))
	}
	return c.JSON(http.StatusOK, out)
}
