package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/api/middleware"
	"github.com/hugh/fieldops/internal/auth"
)

type AuthHandler struct {
	authService  *auth.Service
	orgService   *auth.OrgService
	logger       *slog.Logger
	cookieMaxAge time.Duration
	secureCookie bool
}

func NewAuthHandler(authService *auth.Service, orgService *auth.OrgService, logger *slog.Logger, cookieMaxAge time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		orgService:   orgService,
		logger:       logger,
		cookieMaxAge: cookieMaxAge,
		secureCookie: secureCookie,
	}
}

// Login accepts JSON or the login page's form post. Form posts are answered
// with redirects instead of JSON.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")

	var req dto.LoginRequest
	if form {
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
	} else if !decodeJSON(w, r, &req) {
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		if form {
			http.Redirect(w, r, "/login?error=invalid", http.StatusSeeOther)
			return
		}
		validationFailed(w, errs)
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if form {
			http.Redirect(w, r, "/login?error=credentials", http.StatusSeeOther)
			return
		}
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
		case errors.Is(err, auth.ErrInactiveUser):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Account is inactive"})
		default:
			h.logger.Error("login failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    resp.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookieMaxAge.Seconds()),
	})

	if form {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.NewUserDTO(resp.User),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
			return
		}
		h.logger.Error("loading user", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	orgs, ok := h.organizations(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dto.MeResponse{User: dto.NewUserDTO(user), Organizations: orgs})
}

// Organizations handles GET /api/v1/organizations
func (h *AuthHandler) Organizations(w http.ResponseWriter, r *http.Request) {
	orgs, ok := h.organizations(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *AuthHandler) organizations(w http.ResponseWriter, r *http.Request) ([]dto.OrganizationDTO, bool) {
	userID := middleware.GetUserID(r.Context())
	orgs, err := h.orgService.ListOrganizations(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing organizations", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return nil, false
	}

	out := make([]dto.OrganizationDTO, 0, len(orgs))
	for i := range orgs {
		out = append(out, dto.NewOrganizationDTO(&orgs[i]))
	}
	return out, true
}
