package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"planetarium-service/internal/models"
)

// ErrAvailabilityCorrupt signals a negative remaining-seat count. That can
// only happen if the seat-uniqueness constraint was bypassed, so it is an
// integrity failure, never a user error, and is never clamped to zero.
var ErrAvailabilityCorrupt = errors.New("availability below zero: seat uniqueness invariant violated")

// GeometryError rejects dome definitions with a negative grid dimension,
// naming the offending field.
type GeometryError struct {
	Field string // "rows" or "seats_in_row"
	Value int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s must not be negative (got %d)", e.Field, e.Value)
}

func validateDomeGeometry(req models.DomeRequest) error {
	if req.Rows < 0 {
		return &GeometryError{Field: "rows", Value: req.Rows}
	}
	if req.SeatsInRow < 0 {
		return &GeometryError{Field: "seats_in_row", Value: req.SeatsInRow}
	}
	return nil
}

type DBLayer interface {
	CreateDome(ctx context.Context, dome models.Dome) error
	GetDomeByID(ctx context.Context, id string) (*models.Dome, error)
	ListDomes(ctx context.Context) ([]models.Dome, error)
	UpdateDome(ctx context.Context, dome models.Dome) error
	SetDomeImage(ctx context.Context, id string, image []byte) error
	DeleteDome(ctx context.Context, id string) error

	CreateTheme(ctx context.Context, theme models.ShowTheme) error
	GetThemeByID(ctx context.Context, id string) (*models.ShowTheme, error)
	ListThemes(ctx context.Context) ([]models.ShowTheme, error)
	UpdateTheme(ctx context.Context, theme models.ShowTheme) error
	DeleteTheme(ctx context.Context, id string) error

	CreateShow(ctx context.Context, show models.Show, themeIDs []string) error
	GetShowByID(ctx context.Context, id string) (*models.Show, error)
	ListShows(ctx context.Context) ([]models.ShowListItem, error)
	UpdateShow(ctx context.Context, show models.Show, themeIDs []string) error
	DeleteShow(ctx context.Context, id string) error

	CreateSession(ctx context.Context, session models.ShowSession) error
	GetSessionByID(ctx context.Context, id string) (*models.ShowSession, error)
	ListSessions(ctx context.Context) ([]models.SessionListItem, error)
	UpdateSession(ctx context.Context, session models.ShowSession) error
	DeleteSession(ctx context.Context, id string) error
	SessionAvailability(ctx context.Context, sessionID string) (int, error)
}

type Service struct {
	DB DBLayer
}

func NewService(db DBLayer) *Service {
	return &Service{DB: db}
}

// ---------------- DOMES ----------------

func (s *Service) CreateDome(ctx context.Context, req models.DomeRequest) (*models.Dome, error) {
	if err := validateDomeGeometry(req); err != nil {
		return nil, err
	}
	dome := models.Dome{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Rows:       req.Rows,
		SeatsInRow: req.SeatsInRow,
	}
	if err := s.DB.CreateDome(ctx, dome); err != nil {
		return nil, fmt.Errorf("failed to create dome: %w", err)
	}
	return &dome, nil
}

func (s *Service) GetDome(ctx context.Context, id string) (*models.Dome, error) {
	return s.DB.GetDomeByID(ctx, id)
}

func (s *Service) ListDomes(ctx context.Context) ([]models.DomeResponse, error) {
	domes, err := s.DB.ListDomes(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.DomeResponse, len(domes))
	for i := range domes {
		result[i] = domes[i].ToResponse()
	}
	return result, nil
}

func (s *Service) UpdateDome(ctx context.Context, id string, req models.DomeRequest) (*models.Dome, error) {
	if err := validateDomeGeometry(req); err != nil {
		return nil, err
	}
	dome := models.Dome{
		ID:         id,
		Name:       req.Name,
		Rows:       req.Rows,
		SeatsInRow: req.SeatsInRow,
	}
	if err := s.DB.UpdateDome(ctx, dome); err != nil {
		return nil, err
	}
	return &dome, nil
}

func (s *Service) UploadDomeImage(ctx context.Context, id string, image []byte) error {
	if len(image) == 0 {
		return errors.New("empty image upload")
	}
	return s.DB.SetDomeImage(ctx, id, image)
}

func (s *Service) DeleteDome(ctx context.Context, id string) error {
	return s.DB.DeleteDome(ctx, id)
}

// ---------------- THEMES ----------------

func (s *Service) CreateTheme(ctx context.Context, name string) (*models.ShowTheme, error) {
	theme := models.ShowTheme{ID: uuid.NewString(), Name: name}
	if err := s.DB.CreateTheme(ctx, theme); err != nil {
		return nil, fmt.Errorf("failed to create theme: %w", err)
	}
	return &theme, nil
}

func (s *Service) GetTheme(ctx context.Context, id string) (*models.ShowTheme, error) {
	return s.DB.GetThemeByID(ctx, id)
}

func (s *Service) ListThemes(ctx context.Context) ([]models.ShowTheme, error) {
	return s.DB.ListThemes(ctx)
}

func (s *Service) UpdateTheme(ctx context.Context, id, name string) (*models.ShowTheme, error) {
	theme := models.ShowTheme{ID: id, Name: name}
	if err := s.DB.UpdateTheme(ctx, theme); err != nil {
		return nil, err
	}
	return &theme, nil
}

func (s *Service) DeleteTheme(ctx context.Context, id string) error {
	return s.DB.DeleteTheme(ctx, id)
}

// ---------------- SHOWS ----------------

func (s *Service) CreateShow(ctx context.Context, req models.ShowRequest) (*models.Show, error) {
	show := models.Show{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.DB.CreateShow(ctx, show, req.ThemeIDs); err != nil {
		return nil, fmt.Errorf("failed to create show: %w", err)
	}
	return &show, nil
}

func (s *Service) GetShow(ctx context.Context, id string) (*models.Show, error) {
	return s.DB.GetShowByID(ctx, id)
}

func (s *Service) ListShows(ctx context.Context) ([]models.ShowListItem, error) {
	return s.DB.ListShows(ctx)
}

func (s *Service) UpdateShow(ctx context.Context, id string, req models.ShowRequest) (*models.Show, error) {
	show := models.Show{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.DB.UpdateShow(ctx, show, req.ThemeIDs); err != nil {
		return nil, err
	}
	return &show, nil
}

func (s *Service) DeleteShow(ctx context.Context, id string) error {
	return s.DB.DeleteShow(ctx, id)
}

// ---------------- SESSIONS ----------------

func (s *Service) CreateSession(ctx context.Context, req models.SessionRequest) (*models.ShowSession, error) {
	if _, err := s.DB.GetShowByID(ctx, req.ShowID); err != nil {
		return nil, fmt.Errorf("show %s: %w", req.ShowID, err)
	}
	if _, err := s.DB.GetDomeByID(ctx, req.DomeID); err != nil {
		return nil, fmt.Errorf("dome %s: %w", req.DomeID, err)
	}

	session := models.ShowSession{
		ID:       uuid.NewString(),
		ShowID:   req.ShowID,
		DomeID:   req.DomeID,
		ShowTime: req.ShowTime.UTC(),
	}
	if err := s.DB.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.ShowSession, error) {
	return s.DB.GetSessionByID(ctx, id)
}

// ListSessions returns every session with its recomputed availability.
// A negative count is surfaced as ErrAvailabilityCorrupt so the caller
// reports it as an internal failure instead of serving bad data.
func (s *Service) ListSessions(ctx context.Context) ([]models.SessionListItem, error) {
	items, err := s.DB.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.TicketsAvailable < 0 {
			return nil, fmt.Errorf("session %s: %w", item.ID, ErrAvailabilityCorrupt)
		}
	}
	return items, nil
}

// SessionAvailability recomputes availability for one session.
func (s *Service) SessionAvailability(ctx context.Context, id string) (int, error) {
	available, err := s.DB.SessionAvailability(ctx, id)
	if err != nil {
		return 0, err
	}
	if available < 0 {
		return 0, fmt.Errorf("session %s: %w", id, ErrAvailabilityCorrupt)
	}
	return available, nil
}

func (s *Service) UpdateSession(ctx context.Context, id string, req models.SessionRequest) (*models.ShowSession, error) {
	session := models.ShowSession{
		ID:       id,
		ShowID:   req.ShowID,
		DomeID:   req.DomeID,
		ShowTime: req.ShowTime.UTC(),
	}
	if err := s.DB.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Service) DeleteSession(ctx context.Context, id string) error {
	return s.DB.DeleteSession(ctx, id)
}
