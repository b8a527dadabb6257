package transcript

import (
	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

// Reasons recorded when a transcript cannot be attributed
const (
	ReasonNoTurns   = "no speaker turns parsed"
	ReasonNoStudent = "no non-teacher speaker found"
)

// Attribution is the parsed, normalized and classified view of one transcript
type Attribution struct {
	TranscriptID string
	Title        string
	Format       entities.TranscriptFormat
	Turns        []entities.SpeakerTurn
	// Speakers lists distinct normalized labels in first-seen order
	Speakers []string
	// StudentNames are the labels to reconcile against the CRM
	StudentNames []string
	// RosterStudents are the distinct roster-matched speakers
	RosterStudents  []string
	IsGroup         bool
	GroupDetectedBy string
	NoAttribution   bool
	Reason          string
}

// Record converts the attribution into its persisted outcome
func (a *Attribution) Record() *entities.TranscriptAttribution {
	return &entities.TranscriptAttribution{
		TranscriptID:  a.TranscriptID,
		Format:        a.Format,
		TurnCount:     len(a.Turns),
		StudentNames:  a.StudentNames,
		IsGroup:       a.IsGroup,
		NoAttribution: a.NoAttribution,
		Reason:        a.Reason,
	}
}

// Attributor runs parse, normalize and classify over a transcript
type Attributor struct {
	parser     *Parser
	normalizer *Normalizer
	classifier *Classifier
	lexicon    *lexicon.Lexicon
	firstLines int
}

// NewAttributor wires the pipeline. firstLines bounds how far into a 1:1 lesson
// the student speaker is searched for.
func NewAttributor(lx *lexicon.Lexicon, firstLines int) *Attributor {
	if firstLines < 1 {
		firstLines = 30
	}
	return &Attributor{
		parser:     NewParser(),
		normalizer: NewNormalizer(lx),
		classifier: NewClassifier(lx),
		lexicon:    lx,
		firstLines: firstLines,
	}
}

// Classifier exposes the classifier used by the pipeline
func (a *Attributor) Classifier() *Classifier {
	return a.classifier
}

// Normalizer exposes the normalizer used by the pipeline
func (a *Attributor) Normalizer() *Normalizer {
	return a.normalizer
}

// Attribute processes one document. It never fails: transcripts without usable
// speakers come back flagged NoAttribution with a reason.
func (a *Attributor) Attribute(doc entities.TranscriptDocument) *Attribution {
	parsed := a.parser.Parse(doc.RawText)
	out := &Attribution{
		TranscriptID: doc.ID,
		Title:        doc.Title,
		Format:       parsed.Format,
	}

	seen := make(map[string]bool)
	rosterSeen := make(map[string]bool)
	oneToOneStudent := ""

	for i, turn := range parsed.Turns {
		turn.NormalizedLabel = a.normalizer.Normalize(turn.SpeakerLabel)
		if turn.NormalizedLabel == "" {
			continue
		}
		switch a.classifier.Classify(turn.NormalizedLabel) {
		case entities.RoleTeacher:
			turn.IsTeacher = true
		case entities.RoleStudent:
			turn.IsStudent = true
		}
		out.Turns = append(out.Turns, turn)

		if !seen[turn.NormalizedLabel] {
			seen[turn.NormalizedLabel] = true
			out.Speakers = append(out.Speakers, turn.NormalizedLabel)
		}
		if turn.IsStudent && !rosterSeen[turn.NormalizedLabel] {
			rosterSeen[turn.NormalizedLabel] = true
			out.RosterStudents = append(out.RosterStudents, turn.NormalizedLabel)
		}
		if oneToOneStudent == "" && !turn.IsTeacher && i < a.firstLines {
			oneToOneStudent = turn.NormalizedLabel
		}
	}

	if len(out.Turns) == 0 {
		out.NoAttribution = true
		out.Reason = ReasonNoTurns
		return out
	}

	switch {
	case a.lexicon.IsGroupTitle(doc.Title):
		out.IsGroup = true
		out.GroupDetectedBy = entities.GroupDetectedByTitle
	case len(out.RosterStudents) >= 2:
		out.IsGroup = true
		out.GroupDetectedBy = entities.GroupDetectedByRoster
	}

	if out.IsGroup {
		for _, speaker := range out.Speakers {
			if !a.classifier.IsTeacher(speaker) {
				out.StudentNames = append(out.StudentNames, speaker)
			}
		}
	} else if oneToOneStudent != "" {
		out.StudentNames = []string{oneToOneStudent}
	}

	if len(out.StudentNames) == 0 {
		out.NoAttribution = true
		out.Reason = ReasonNoStudent
	}
	return out
}
