// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/directory-api/internal/core"
	"github.com/carterperez-dev/templates/directory-api/internal/mail"
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

// RegisterRoutes mounts the auth endpoints. strict wraps the endpoints that
// issue verification codes or check passwords.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, strict func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(strict)
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/resend-code", h.ResendCode)
		r.Post("/user/forgot-password", h.ForgotPassword)
	})

	r.Post("/verify-email", h.VerifyEmail)
	r.Post("/user/reset-password", h.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Post("/user/change-password/{userID}", h.ChangePassword)
	})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.Created(w, toAuthResponse(res, time.Now()))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.OK(w, toAuthResponse(res, time.Now()))
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.VerifyEmail(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.OK(w, toAuthResponse(res, time.Now()))
}

func (h *Handler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ResendCode(r.Context(), req); err != nil {
		h.handleError(w, r, err)
		return
	}

	core.OK(w, MessageResponse{Message: "verification code sent"})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req); err != nil {
		h.handleError(w, r, err)
		return
	}

	core.OK(w, MessageResponse{Message: "password reset code sent"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		h.handleError(w, r, err)
		return
	}

	core.OK(w, MessageResponse{Message: "password has been reset"})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		core.Unauthorized(w, "")
		return
	}

	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	targetID := chi.URLParam(r, "userID")

	err := h.service.ChangePassword(r.Context(), identity.Actor(), targetID, req)
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
	case errors.Is(err, ErrInvalidCredentials):
		core.JSONError(w, core.NewAppError(
			err, "invalid credentials",
			http.StatusUnauthorized, "INVALID_CREDENTIALS",
		))
	case errors.Is(err, ErrNeedsVerification):
		core.JSONError(w, core.NewAppError(
			err, "email not verified, a new verification code has been sent",
			http.StatusForbidden, "EMAIL_NOT_VERIFIED",
		))
	case errors.Is(err, ErrAccountDisabled):
		core.JSONError(w, core.NewAppError(
			err, "account disabled",
			http.StatusForbidden, "ACCOUNT_DISABLED",
		))
	case errors.Is(err, ErrInvalidCode):
		core.JSONError(w, core.NewAppError(
			err, "invalid verification code",
			http.StatusBadRequest, "INVALID_CODE",
		))
	case errors.Is(err, ErrCodeExpired):
		core.JSONError(w, core.NewAppError(
			err, "verification code expired",
			http.StatusBadRequest, "CODE_EXPIRED",
		))
	case errors.Is(err, ErrAlreadyVerified):
		core.JSONError(w, core.NewAppError(
			err, "email already verified",
			http.StatusConflict, "ALREADY_VERIFIED",
		))
	case errors.Is(err, mail.ErrDeliveryFailed):
		core.JSONError(w, core.UnavailableError(
			"could not deliver verification email, please retry",
		))
	case errors.Is(err, core.ErrDuplicateKey):
		field := core.ConflictField(err)
		if field == "" {
			field = "resource"
		}
		core.Conflict(w, field)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid input")
	default:
		core.InternalServerError(w, r, err)
	}
}
