package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/database/models"
)

// AdminHandler serves platform administration: users, organizations and memberships.
type AdminHandler struct {
	authService *auth.Service
	orgService  *auth.OrgService
	logger      *slog.Logger
}

func NewAdminHandler(authService *auth.Service, orgService *auth.OrgService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{authService: authService, orgService: orgService, logger: logger}
}

// CreateUser handles POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		validationFailed(w, errs)
		return
	}

	user, err := h.authService.CreateUser(r.Context(), auth.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Admin:    req.Admin,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("user created", "user_id", user.ID, "admin", req.Admin)
	writeJSON(w, http.StatusCreated, dto.NewUserDTO(user))
}

// ListUsers handles GET /api/v1/admin/users?q=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context(), r.URL.Query().Get("q"), 50)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]dto.UserDTO, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserDTO(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ListOrganizations handles GET /api/v1/admin/organizations
func (h *AdminHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgService.ListAllOrganizations(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]dto.OrganizationDTO, 0, len(orgs))
	for i := range orgs {
		out = append(out, dto.NewOrganizationDTO(&orgs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateOrganization handles POST /api/v1/admin/organizations
func (h *AdminHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrganizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		validationFailed(w, errs)
		return
	}

	input := auth.CreateOrganizationInput{Name: req.Name, Slug: req.Slug, Logo: req.Logo}
	switch {
	case req.OwnerID != "":
		id := uuid.MustParse(req.OwnerID)
		if _, err := h.authService.GetUserByID(r.Context(), id); err != nil {
			h.writeError(w, err)
			return
		}
		input.OwnerID = &id
	case req.OwnerEmail != "":
		owner, err := h.authService.GetUserByEmail(r.Context(), req.OwnerEmail)
		if err != nil {
			h.writeError(w, err)
			return
		}
		input.OwnerID = &owner.ID
	}

	org, err := h.orgService.CreateOrganization(r.Context(), input)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("organization created", "org", org.Slug)
	writeJSON(w, http.StatusCreated, dto.NewOrganizationDTO(org))
}

// GetOrganization handles GET /api/v1/admin/organizations/{slug}
func (h *AdminHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgService.GetFullOrganization(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewOrganizationDTO(org))
}

// AddMember handles POST /api/v1/admin/organizations/{slug}/members
func (h *AdminHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req dto.AddMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		validationFailed(w, errs)
		return
	}

	var userID uuid.UUID
	if req.UserID != "" {
		userID = uuid.MustParse(req.UserID)
	} else {
		user, err := h.authService.GetUserByEmail(r.Context(), req.Email)
		if err != nil {
			h.writeError(w, err)
			return
		}
		userID = user.ID
	}

	slug := chi.URLParam(r, "slug")
	member, err := h.orgService.AddMember(r.Context(), slug, userID, models.MemberRole(req.Role))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("member added", "org", slug, "user_id", userID, "role", req.Role)
	writeJSON(w, http.StatusCreated, dto.NewMemberDTO(member))
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
	case errors.Is(err, auth.ErrOrganizationNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Organization not found"})
	case errors.Is(err, auth.ErrUserExists):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "User already exists"})
	case errors.Is(err, auth.ErrOrganizationExists):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Organization already exists"})
	case errors.Is(err, auth.ErrMemberExists):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "User is already a member"})
	case errors.Is(err, auth.ErrInvalidSlug):
		validationFailed(w, map[string]string{"slug": "slug must be lowercase letters, digits and dashes"})
	case errors.Is(err, auth.ErrInvalidRole):
		validationFailed(w, map[string]string{"role": "role must be one of: owner admin member"})
	default:
		h.logger.Error("admin request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}
