package models

// Profile ist die öffentliche Identität eines Nutzers (Autor, Gutachter, Redaktion).
// Die ID entspricht dem "sub"-Claim des Identity-Providers.
type Profile struct {
	Base

	FullName    string `json:"full_name" gorm:"not null"`
	Email       string `json:"email" gorm:"index"`
	Affiliation string `json:"affiliation,omitempty"`
	Specialty   string `json:"specialty,omitempty"`
}

// DisplayName liefert den Anzeigenamen mit E-Mail als Fallback.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// TableName gibt explizit den Tabellennamen an.
func (Profile) TableName() string {
	return "profiles"
}
