package models

import "github.com/uptrace/bun"

type ShowTheme struct {
	bun.BaseModel `bun:"table:show_themes"`

	ID   string `bun:"id,pk" json:"id"`
	Name string `bun:"name,unique,notnull" json:"name"`
}

type Show struct {
	bun.BaseModel `bun:"table:shows"`

	ID          string `bun:"id,pk" json:"id"`
	Title       string `bun:"title,notnull" json:"title"`
	Description string `bun:"description,nullzero" json:"description"`
}

// ShowThemeLink joins shows to their themes.
type ShowThemeLink struct {
	bun.BaseModel `bun:"table:show_theme_links"`

	ShowID  string `bun:"show_id,pk"`
	ThemeID string `bun:"theme_id,pk"`
}

type ShowRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ThemeIDs    []string `json:"theme_ids"`
}

// ShowListItem carries resolved theme names instead of theme ids.
type ShowListItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ThemeNames  []string `json:"theme_names"`
}
