// Package lexicon loads the locale data that drives speaker normalization,
// classification and name matching: teacher variants, device tokens, the group
// roster, singing markers and the Hebrew/English transliteration table.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
)

//go:embed defaults/lexicon.yaml
var defaultLexicon []byte

//go:embed defaults/transliteration.yaml
var defaultTransliteration []byte

// SingingMarkers configures the singing heuristics
type SingingMarkers struct {
	Glyphs           []string `yaml:"glyphs"`
	Verbs            []string `yaml:"verbs"`
	SyllableMaxRunes int      `yaml:"syllable_max_runes"`
	MinRepeats       int      `yaml:"min_repeats"`
}

// Lexicon is the speaker-label reference data
type Lexicon struct {
	TeacherNames         []string       `yaml:"teacher_names"`
	TeacherSuffixPattern string         `yaml:"teacher_suffix_pattern"`
	DeviceTokens         []string       `yaml:"device_tokens"`
	GroupRoster          []string       `yaml:"group_roster"`
	GroupTitlePattern    string         `yaml:"group_title_pattern"`
	Singing              SingingMarkers `yaml:"singing"`

	teacherSuffix *regexp.Regexp
	groupTitle    *regexp.Regexp
}

type transliterationFile struct {
	Entries []entities.TransliterationEntry `yaml:"entries"`
}

// Default returns the embedded lexicon
func Default() *Lexicon {
	lx, err := Parse(defaultLexicon)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon is invalid: %v", err))
	}
	return lx
}

// Load reads the lexicon at path, or the embedded default when path is empty
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and compiles a lexicon document
func Parse(raw []byte) (*Lexicon, error) {
	var lx Lexicon
	if err := yaml.Unmarshal(raw, &lx); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if err := lx.compile(); err != nil {
		return nil, err
	}
	return &lx, nil
}

func (lx *Lexicon) compile() error {
	lx.TeacherNames = cleanList(lx.TeacherNames)
	lx.DeviceTokens = lowerList(cleanList(lx.DeviceTokens))
	lx.GroupRoster = cleanList(lx.GroupRoster)
	lx.Singing.Verbs = lowerList(cleanList(lx.Singing.Verbs))
	if lx.Singing.MinRepeats < 2 {
		lx.Singing.MinRepeats = 3
	}
	if lx.Singing.SyllableMaxRunes < 1 {
		lx.Singing.SyllableMaxRunes = 3
	}

	if lx.TeacherSuffixPattern != "" {
		re, err := regexp.Compile(lx.TeacherSuffixPattern)
		if err != nil {
			return fmt.Errorf("compile teacher_suffix_pattern: %w", err)
		}
		lx.teacherSuffix = re
	}
	if lx.GroupTitlePattern != "" {
		re, err := regexp.Compile(lx.GroupTitlePattern)
		if err != nil {
			return fmt.Errorf("compile group_title_pattern: %w", err)
		}
		lx.groupTitle = re
	}
	return nil
}

// TeacherSuffix returns the compiled teacher-attribution suffix pattern (may be nil)
func (lx *Lexicon) TeacherSuffix() *regexp.Regexp {
	return lx.teacherSuffix
}

// IsGroupTitle reports whether a lesson title names a group session
func (lx *Lexicon) IsGroupTitle(title string) bool {
	return lx.groupTitle != nil && title != "" && lx.groupTitle.MatchString(title)
}

// LoadTransliterations reads the transliteration table at path, or the embedded
// default when path is empty. Only first-name entries are returned.
func LoadTransliterations(path string) ([]entities.TransliterationEntry, error) {
	raw := defaultTransliteration
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read transliteration table %s: %w", path, err)
		}
	}

	var file transliterationFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse transliteration table: %w", err)
	}

	out := make([]entities.TransliterationEntry, 0, len(file.Entries))
	for _, e := range file.Entries {
		if !e.IsFirstName || strings.TrimSpace(e.HebrewName) == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// LoadTransliterationsOrEmpty degrades to an empty table when the file is
// missing or corrupt, so cross-script matching is simply switched off.
func LoadTransliterationsOrEmpty(path string, logger *zap.Logger) []entities.TransliterationEntry {
	entries, err := LoadTransliterations(path)
	if err != nil {
		if logger != nil {
			logger.Warn("⚠️ Transliteration table unavailable, cross-script matching disabled",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return nil
	}
	return entries
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func lowerList(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToLower(s)
	}
	return in
}
