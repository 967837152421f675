package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"planetarium-service/internal/catalog"
	catalog_db "planetarium-service/internal/catalog/db"
	"planetarium-service/internal/logger"
	"planetarium-service/internal/models"
	"planetarium-service/internal/utils"
)

// maxImageBytes bounds dome image uploads.
const maxImageBytes = 5 << 20

type Handler struct {
	Catalog *catalog.Service
	Logger  *logger.Logger
}

func NewHandler(service *catalog.Service, log *logger.Logger) *Handler {
	return &Handler{Catalog: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/domes", func(r chi.Router) {
		r.Get("/", h.ListDomes)
		r.Post("/", h.CreateDome)
		r.Get("/{domeId}", h.GetDome)
		r.Put("/{domeId}", h.UpdateDome)
		r.Delete("/{domeId}", h.DeleteDome)
		r.Post("/{domeId}/image", h.UploadDomeImage)
	})

	r.Route("/themes", func(r chi.Router) {
		r.Get("/", h.ListThemes)
		r.Post("/", h.CreateTheme)
		r.Get("/{themeId}", h.GetTheme)
		r.Put("/{themeId}", h.UpdateTheme)
		r.Delete("/{themeId}", h.DeleteTheme)
	})

	r.Route("/shows", func(r chi.Router) {
		r.Get("/", h.ListShows)
		r.Post("/", h.CreateShow)
		r.Get("/{showId}", h.GetShow)
		r.Put("/{showId}", h.UpdateShow)
		r.Delete("/{showId}", h.DeleteShow)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.CreateSession)
		r.Get("/{sessionId}", h.GetSession)
		r.Put("/{sessionId}", h.UpdateSession)
		r.Delete("/{sessionId}", h.DeleteSession)
	})
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var geomErr *catalog.GeometryError
	switch {
	case errors.Is(err, catalog_db.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("not found", err.Error()))
	case errors.As(err, &geomErr):
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ValidationErrorResponse("invalid_geometry", geomErr.Field, geomErr.Error()))
	case errors.Is(err, catalog.ErrAvailabilityCorrupt):
		h.Logger.Error("AVAILABILITY", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError,
			utils.ErrorResponse("internal consistency error", "availability invariant violated"))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError,
			utils.ErrorResponse("internal error", "request could not be processed"))
	}
}

// ---------------- DOMES ----------------

func (h *Handler) ListDomes(w http.ResponseWriter, r *http.Request) {
	domes, err := h.Catalog.ListDomes(r.Context())
	if err != nil {
		h.writeError(w, "ListDomes", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domes)
}

func (h *Handler) CreateDome(w http.ResponseWriter, r *http.Request) {
	var req models.DomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	dome, err := h.Catalog.CreateDome(r.Context(), req)
	if err != nil {
		h.writeError(w, "CreateDome", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateDome: created dome %s", dome.ID))
	utils.WriteJSON(w, http.StatusCreated, dome.ToResponse())
}

func (h *Handler) GetDome(w http.ResponseWriter, r *http.Request) {
	dome, err := h.Catalog.GetDome(r.Context(), chi.URLParam(r, "domeId"))
	if err != nil {
		h.writeError(w, "GetDome", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, dome.ToResponse())
}

func (h *Handler) UpdateDome(w http.ResponseWriter, r *http.Request) {
	var req models.DomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	dome, err := h.Catalog.UpdateDome(r.Context(), chi.URLParam(r, "domeId"), req)
	if err != nil {
		h.writeError(w, "UpdateDome", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, dome.ToResponse())
}

func (h *Handler) DeleteDome(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteDome(r.Context(), chi.URLParam(r, "domeId")); err != nil {
		h.writeError(w, "DeleteDome", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadDomeImage accepts the raw body as an opaque blob.
func (h *Handler) UploadDomeImage(w http.ResponseWriter, r *http.Request) {
	domeID := chi.URLParam(r, "domeId")

	image, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("failed to read image", err.Error()))
		return
	}

	if err := h.Catalog.UploadDomeImage(r.Context(), domeID, image); err != nil {
		h.writeError(w, "UploadDomeImage", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UploadDomeImage: stored %d bytes for dome %s", len(image), domeID))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("image uploaded", nil))
}

// ---------------- THEMES ----------------

func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.Catalog.ListThemes(r.Context())
	if err != nil {
		h.writeError(w, "ListThemes", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, themes)
}

func (h *Handler) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", "name is required"))
		return
	}

	theme, err := h.Catalog.CreateTheme(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, "CreateTheme", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, theme)
}

func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.Catalog.GetTheme(r.Context(), chi.URLParam(r, "themeId"))
	if err != nil {
		h.writeError(w, "GetTheme", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, theme)
}

func (h *Handler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", "name is required"))
		return
	}

	theme, err := h.Catalog.UpdateTheme(r.Context(), chi.URLParam(r, "themeId"), req.Name)
	if err != nil {
		h.writeError(w, "UpdateTheme", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, theme)
}

func (h *Handler) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteTheme(r.Context(), chi.URLParam(r, "themeId")); err != nil {
		h.writeError(w, "DeleteTheme", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- SHOWS ----------------

func (h *Handler) ListShows(w http.ResponseWriter, r *http.Request) {
	shows, err := h.Catalog.ListShows(r.Context())
	if err != nil {
		h.writeError(w, "ListShows", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, shows)
}

func (h *Handler) CreateShow(w http.ResponseWriter, r *http.Request) {
	var req models.ShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	show, err := h.Catalog.CreateShow(r.Context(), req)
	if err != nil {
		h.writeError(w, "CreateShow", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, show)
}

func (h *Handler) GetShow(w http.ResponseWriter, r *http.Request) {
	show, err := h.Catalog.GetShow(r.Context(), chi.URLParam(r, "showId"))
	if err != nil {
		h.writeError(w, "GetShow", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, show)
}

func (h *Handler) UpdateShow(w http.ResponseWriter, r *http.Request) {
	var req models.ShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	show, err := h.Catalog.UpdateShow(r.Context(), chi.URLParam(r, "showId"), req)
	if err != nil {
		h.writeError(w, "UpdateShow", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, show)
}

func (h *Handler) DeleteShow(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteShow(r.Context(), chi.URLParam(r, "showId")); err != nil {
		h.writeError(w, "DeleteShow", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- SESSIONS ----------------

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Catalog.ListSessions(r.Context())
	if err != nil {
		h.writeError(w, "ListSessions", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, sessions)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	session, err := h.Catalog.CreateSession(r.Context(), req)
	if err != nil {
		h.writeError(w, "CreateSession", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, session)
}

// GetSession returns the session detail together with its fresh
// availability.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	session, err := h.Catalog.GetSession(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, "GetSession", err)
		return
	}

	available, err := h.Catalog.SessionAvailability(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, "GetSession", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, struct {
		models.ShowSession
		TicketsAvailable int `json:"tickets_available"`
	}{*session, available})
}

func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	session, err := h.Catalog.UpdateSession(r.Context(), chi.URLParam(r, "sessionId"), req)
	if err != nil {
		h.writeError(w, "UpdateSession", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteSession(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
		h.writeError(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
