package entities

// CRMStudent is an enrolled student as exposed by the CRM registry (read-only)
type CRMStudent struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Active bool    `json:"active"`
	Phone  *string `json:"phone,omitempty"`
}

// TransliterationEntry links a Hebrew given name to its known English spellings
type TransliterationEntry struct {
	HebrewName      string   `json:"hebrew_name" yaml:"hebrew"`
	EnglishVariants []string `json:"english_variants" yaml:"english"`
	IsFirstName     bool     `json:"is_first_name" yaml:"first_name"`
}
