package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"planetarium-service/internal/auth"
	"planetarium-service/internal/logger"
	"planetarium-service/internal/models"
	"planetarium-service/internal/users"
	users_db "planetarium-service/internal/users/db"
	"planetarium-service/internal/utils"
)

type Handler struct {
	Users  *users.Service
	Logger *logger.Logger
}

func NewHandler(service *users.Service, log *logger.Logger) *Handler {
	return &Handler{Users: service, Logger: log}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, users.ErrInvalidCredentials):
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", err.Error()))
	case errors.Is(err, users.ErrWeakPassword):
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ValidationErrorResponse("weak_password", "password", err.Error()))
	case errors.Is(err, users_db.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("not found", err.Error()))
	default:
		h.Logger.Error("AUTH", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError,
			utils.ErrorResponse("internal error", "request could not be processed"))
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	user, err := h.Users.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, users.ErrWeakPassword) {
			h.writeError(w, "Register", err)
			return
		}
		// Duplicate email or malformed input; no storage detail leaks.
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("registration failed", "email is invalid or already in use"))
		return
	}

	h.Logger.Info("AUTH", fmt.Sprintf("Register: user %s created", user.ID))
	utils.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	token, err := h.Users.IssueToken(r.Context(), req)
	if err != nil {
		h.writeError(w, "Token", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.TokenResponse{Access: token})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Profile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, "Me", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	user, err := h.Users.UpdateProfile(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		h.writeError(w, "UpdateMe", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}
