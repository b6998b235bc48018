// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/directory-api/internal/access"
	"github.com/carterperez-dev/templates/directory-api/internal/core"
	"github.com/carterperez-dev/templates/directory-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RequireRole(access.UserManagers...)).
				Get("/", h.ListUsers)
			r.With(middleware.RequireRole(access.UserManagers...)).
				Post("/", h.CreateUser)

			r.Get("/{userID}", h.GetUser)
			r.Put("/{userID}", h.UpdateUser)
			r.Delete("/{userID}", h.DeleteUser)
			r.Put("/{userID}/role", h.ChangeRole)
			r.Put("/{userID}/password", h.SetPassword)
		})
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetMe(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

// ListUsers returns a paginated list of users with optional filtering.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
		Role:     r.URL.Query().Get("role"),
	}
	params.Normalize()

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.Paginated(
		w,
		ToUserResponseList(users),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), actorOf(r), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.Created(w, ToUserResponse(user))
}

// GetUser answers with the full record or the public projection depending
// on who is asking.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, decision, err := h.service.ViewUser(
		r.Context(),
		actorOf(r),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if decision == access.AllowPublic {
		core.OK(w, ToPublicUserResponse(user))
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUser(
		r.Context(),
		actorOf(r),
		chi.URLParam(r, "userID"),
		req,
	)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRoleRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.ChangeRole(
		r.Context(),
		actorOf(r),
		chi.URLParam(r, "userID"),
		req.Role,
	)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.SetPassword(
		r.Context(),
		actorOf(r),
		chi.URLParam(r, "userID"),
		req.NewPassword,
	)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteUser(
		r.Context(),
		actorOf(r),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.ValidationError(w, err)
		return false
	}

	return true
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrDuplicateKey):
		field := core.ConflictField(err)
		if field == "" {
			field = "user"
		}
		core.Conflict(w, field)
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid input")
	default:
		core.InternalServerError(w, r, err)
	}
}

func actorOf(r *http.Request) access.Actor {
	if identity := middleware.GetIdentity(r.Context()); identity != nil {
		return identity.Actor()
	}
	return access.Actor{}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
