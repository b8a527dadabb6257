package transcript

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
)

var (
	// `Noa (12.34): text` or `Noa(12): text`
	timestampedLine = regexp.MustCompile(`^(.+?)\s*\((\d+(?:\.\d+)?)\)\s*:\s*(.*)$`)
	// `נועה כהן: text`; Hebrew letters and spaces only
	plainLine = regexp.MustCompile(`^([\p{Hebrew} ]{2,30}):\s*(.*)$`)
)

// ParseResult is the parser output for one document
type ParseResult struct {
	Format entities.TranscriptFormat
	Turns  []entities.SpeakerTurn
}

// Parser splits raw transcript text into speaker turns
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// DetectFormat picks the line grammar for the whole document. The timestamped
// grammar wins if any line matches it; the plain grammar is only considered
// when no line anywhere is timestamped.
func (p *Parser) DetectFormat(raw string) entities.TranscriptFormat {
	lines := splitLines(raw)
	for _, line := range lines {
		if timestampedLine.MatchString(line) {
			return entities.FormatTimestamped
		}
	}
	for _, line := range lines {
		if plainLine.MatchString(line) {
			return entities.FormatPlain
		}
	}
	return entities.FormatNone
}

// Parse splits raw into ordered speaker turns. Lines that do not match the
// detected grammar are continuation noise and are dropped.
func (p *Parser) Parse(raw string) ParseResult {
	format := p.DetectFormat(raw)
	result := ParseResult{Format: format}
	if format == entities.FormatNone {
		return result
	}

	for _, line := range splitLines(raw) {
		var turn entities.SpeakerTurn
		switch format {
		case entities.FormatTimestamped:
			m := timestampedLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			turn.SpeakerLabel = strings.TrimSpace(m[1])
			if ts, err := strconv.ParseFloat(m[2], 64); err == nil {
				turn.StartTime = &ts
			}
			turn.Text = strings.TrimSpace(m[3])
		case entities.FormatPlain:
			m := plainLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			turn.SpeakerLabel = strings.TrimSpace(m[1])
			turn.Text = strings.TrimSpace(m[2])
		}
		if turn.SpeakerLabel == "" {
			continue
		}
		result.Turns = append(result.Turns, turn)
	}
	return result
}

// splitLines breaks the document into lines with direction marks, isolates
// and BOMs removed so the grammars only see real characters.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	parts := strings.Split(raw, "\n")
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		line := strings.TrimFunc(StripInvisible(part), func(r rune) bool {
			return r == ' ' || r == '\t' || r == '\r'
		})
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
