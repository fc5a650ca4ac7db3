package models

import "time"

// Article ist ein (veröffentlichter oder geplanter) Zeitschriftenartikel.
// PublishedAt == nil bedeutet Entwurf.
type Article struct {
	Base

	Title    string `json:"title" gorm:"not null"`
	Slug     string `json:"slug" gorm:"uniqueIndex;not null"`
	Abstract string `json:"abstract" gorm:"type:text"`
	Authors  string `json:"authors"`

	// Kategorisierung & Ausgabe
	Category string `json:"category,omitempty" gorm:"index"`
	Volume   *int   `json:"volume,omitempty" gorm:"index:idx_articles_volume_issue"`
	Issue    *int   `json:"issue,omitempty" gorm:"index:idx_articles_volume_issue"`
	ImageURL string `json:"image_url,omitempty"`

	// Content Management
	IsFeatured  bool       `json:"is_featured" gorm:"default:false"`
	PublishedAt *time.Time `json:"published_at,omitempty" gorm:"index"`

	// Analytics
	ViewCount int `json:"view_count" gorm:"default:0"`
}

// Published meldet, ob der Artikel öffentlich ist.
func (a *Article) Published() bool {
	return a.PublishedAt != nil
}

// TableName gibt explizit den Tabellennamen an.
func (Article) TableName() string {
	return "articles"
}
