package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"planetarium-service/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

type DB struct {
	Bun *bun.DB
}

func wrapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ---------------- DOMES ----------------

func (d *DB) CreateDome(ctx context.Context, dome models.Dome) error {
	_, err := d.Bun.NewInsert().Model(&dome).Exec(ctx)
	return err
}

func (d *DB) GetDomeByID(ctx context.Context, id string) (*models.Dome, error) {
	var dome models.Dome
	err := d.Bun.NewSelect().
		Model(&dome).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &dome, nil
}

func (d *DB) ListDomes(ctx context.Context) ([]models.Dome, error) {
	var domes []models.Dome
	err := d.Bun.NewSelect().
		Model(&domes).
		Order("name").
		Scan(ctx)
	return domes, err
}

func (d *DB) UpdateDome(ctx context.Context, dome models.Dome) error {
	res, err := d.Bun.NewUpdate().
		Model(&dome).
		Column("name", "rows", "seats_in_row").
		Where("id = ?", dome.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (d *DB) SetDomeImage(ctx context.Context, id string, image []byte) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Dome)(nil)).
		Set("image = ?", image).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (d *DB) DeleteDome(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Dome)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ---------------- THEMES ----------------

func (d *DB) CreateTheme(ctx context.Context, theme models.ShowTheme) error {
	_, err := d.Bun.NewInsert().Model(&theme).Exec(ctx)
	return err
}

func (d *DB) GetThemeByID(ctx context.Context, id string) (*models.ShowTheme, error) {
	var theme models.ShowTheme
	err := d.Bun.NewSelect().
		Model(&theme).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &theme, nil
}

func (d *DB) ListThemes(ctx context.Context) ([]models.ShowTheme, error) {
	var themes []models.ShowTheme
	err := d.Bun.NewSelect().
		Model(&themes).
		Order("name").
		Scan(ctx)
	return themes, err
}

func (d *DB) UpdateTheme(ctx context.Context, theme models.ShowTheme) error {
	res, err := d.Bun.NewUpdate().
		Model(&theme).
		Column("name").
		Where("id = ?", theme.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (d *DB) DeleteTheme(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.ShowTheme)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ---------------- SHOWS ----------------

// CreateShow inserts the show and its theme links in one transaction.
func (d *DB) CreateShow(ctx context.Context, show models.Show, themeIDs []string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&show).Exec(ctx); err != nil {
			return err
		}
		return insertThemeLinks(ctx, tx, show.ID, themeIDs)
	})
}

func (d *DB) GetShowByID(ctx context.Context, id string) (*models.Show, error) {
	var show models.Show
	err := d.Bun.NewSelect().
		Model(&show).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &show, nil
}

// ListShows returns all shows with their theme names resolved, grouped in
// one extra query instead of one per show.
func (d *DB) ListShows(ctx context.Context) ([]models.ShowListItem, error) {
	var shows []models.Show
	err := d.Bun.NewSelect().
		Model(&shows).
		Order("title").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	if len(shows) == 0 {
		return []models.ShowListItem{}, nil
	}

	showIDs := make([]string, len(shows))
	for i, show := range shows {
		showIDs[i] = show.ID
	}

	var links []struct {
		ShowID    string `bun:"show_id"`
		ThemeName string `bun:"theme_name"`
	}
	err = d.Bun.NewSelect().
		ColumnExpr("l.show_id").
		ColumnExpr("t.name AS theme_name").
		TableExpr("show_theme_links AS l").
		Join("JOIN show_themes AS t ON t.id = l.theme_id").
		Where("l.show_id IN (?)", bun.In(showIDs)).
		Order("t.name").
		Scan(ctx, &links)
	if err != nil {
		return nil, err
	}

	themesByShow := make(map[string][]string)
	for _, link := range links {
		themesByShow[link.ShowID] = append(themesByShow[link.ShowID], link.ThemeName)
	}

	result := make([]models.ShowListItem, len(shows))
	for i, show := range shows {
		names := themesByShow[show.ID]
		if names == nil {
			names = []string{}
		}
		result[i] = models.ShowListItem{
			ID:          show.ID,
			Title:       show.Title,
			Description: show.Description,
			ThemeNames:  names,
		}
	}
	return result, nil
}

func (d *DB) UpdateShow(ctx context.Context, show models.Show, themeIDs []string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(&show).
			Column("title", "description").
			Where("id = ?", show.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*models.ShowThemeLink)(nil)).
			Where("show_id = ?", show.ID).
			Exec(ctx); err != nil {
			return err
		}
		return insertThemeLinks(ctx, tx, show.ID, themeIDs)
	})
}

func (d *DB) DeleteShow(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.ShowThemeLink)(nil)).
			Where("show_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*models.Show)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func insertThemeLinks(ctx context.Context, tx bun.Tx, showID string, themeIDs []string) error {
	if len(themeIDs) == 0 {
		return nil
	}
	links := make([]models.ShowThemeLink, len(themeIDs))
	for i, themeID := range themeIDs {
		links[i] = models.ShowThemeLink{ShowID: showID, ThemeID: themeID}
	}
	_, err := tx.NewInsert().Model(&links).Exec(ctx)
	return err
}

// ---------------- SESSIONS ----------------

func (d *DB) CreateSession(ctx context.Context, session models.ShowSession) error {
	_, err := d.Bun.NewInsert().Model(&session).Exec(ctx)
	return err
}

func (d *DB) GetSessionByID(ctx context.Context, id string) (*models.ShowSession, error) {
	var session models.ShowSession
	err := d.Bun.NewSelect().
		Model(&session).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &session, nil
}

func (d *DB) UpdateSession(ctx context.Context, session models.ShowSession) error {
	res, err := d.Bun.NewUpdate().
		Model(&session).
		Column("show_id", "dome_id", "show_time").
		Where("id = ?", session.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (d *DB) DeleteSession(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.ShowSession)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListSessions resolves dome and show names and computes availability in
// SQL per query: rows * seats_in_row minus the current ticket count. There
// is no cached counter anywhere; every read recomputes.
func (d *DB) ListSessions(ctx context.Context) ([]models.SessionListItem, error) {
	var items []models.SessionListItem
	err := d.Bun.NewSelect().
		ColumnExpr("s.id").
		ColumnExpr("s.show_time").
		ColumnExpr("sh.title AS show_title").
		ColumnExpr("dm.name AS dome_name").
		ColumnExpr(`dm."rows" * dm.seats_in_row - (SELECT count(*) FROM tickets t WHERE t.show_session_id = s.id) AS tickets_available`).
		TableExpr("show_sessions AS s").
		Join("JOIN shows AS sh ON sh.id = s.show_id").
		Join("JOIN domes AS dm ON dm.id = s.dome_id").
		Order("s.show_time").
		Scan(ctx, &items)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.SessionListItem{}
	}
	return items, nil
}

// SessionAvailability recomputes the remaining seat count for one session.
func (d *DB) SessionAvailability(ctx context.Context, sessionID string) (int, error) {
	var available int
	err := d.Bun.NewSelect().
		ColumnExpr(`dm."rows" * dm.seats_in_row - (SELECT count(*) FROM tickets t WHERE t.show_session_id = s.id)`).
		TableExpr("show_sessions AS s").
		Join("JOIN domes AS dm ON dm.id = s.dome_id").
		Where("s.id = ?", sessionID).
		Scan(ctx, &available)
	if err != nil {
		return 0, wrapNotFound(err)
	}
	return available, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
