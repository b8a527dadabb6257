package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(lexicon.Default())

	tests := []struct {
		label string
		want  entities.SpeakerRole
	}{
		{"ענבל", entities.RoleTeacher},
		{"Inbal Vocal Studio", entities.RoleTeacher},
		// truncated label still contained in a teacher variant
		{"Inb", entities.RoleTeacher},
		// too short to read as a truncation
		{"Al", entities.RoleUnknown},
		{"Stu", entities.RoleUnknown},
		{"Dio", entities.RoleUnknown},
		{"Cal", entities.RoleUnknown},
		{"עדי", entities.RoleStudent},
		{"שיר לוי", entities.RoleStudent},
		{"Noa", entities.RoleUnknown},
		{"", entities.RoleUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.label), tt.label)
	}
}

func TestAttribute_OneToOne(t *testing.T) {
	a := NewAttributor(lexicon.Default(), 30)

	doc := entities.TranscriptDocument{
		ID:      "t-1",
		Title:   "שיעור פרטי",
		RawText: "ענבל - מורה לפיתוח קול (0): שלום\nNoa's iPhone (1.5): היי\nענבל (3): נתחיל",
	}
	got := a.Attribute(doc)

	assert.False(t, got.NoAttribution)
	assert.False(t, got.IsGroup)
	assert.Equal(t, []string{"Noa"}, got.StudentNames)
	assert.Equal(t, []string{"ענבל", "Noa"}, got.Speakers)
	require.Len(t, got.Turns, 3)
	assert.True(t, got.Turns[0].IsTeacher)

	record := got.Record()
	assert.Equal(t, "t-1", record.TranscriptID)
	assert.Equal(t, entities.FormatTimestamped, record.Format)
	assert.Equal(t, 3, record.TurnCount)
}

func TestAttribute_StudentOutsideFirstLines(t *testing.T) {
	a := NewAttributor(lexicon.Default(), 2)

	got := a.Attribute(entities.TranscriptDocument{
		ID:      "t-2",
		RawText: "ענבל (0): א\nענבל (1): ב\nNoa (2): ג",
	})

	assert.True(t, got.NoAttribution)
	assert.Equal(t, ReasonNoStudent, got.Reason)
	assert.Empty(t, got.StudentNames)
}

func TestAttribute_GroupByRoster(t *testing.T) {
	a := NewAttributor(lexicon.Default(), 30)

	got := a.Attribute(entities.TranscriptDocument{
		ID:      "t-3",
		Title:   "שיעור",
		RawText: "ענבל (0): שלום לכולן\nעדי (2.5): היי\nשיר (4): לה לה לה\nענבל (6): יפה",
	})

	assert.True(t, got.IsGroup)
	assert.Equal(t, entities.GroupDetectedByRoster, got.GroupDetectedBy)
	assert.Equal(t, []string{"עדי", "שיר"}, got.RosterStudents)
	assert.Equal(t, []string{"עדי", "שיר"}, got.StudentNames)
}

func TestAttribute_GroupByTitle(t *testing.T) {
	a := NewAttributor(lexicon.Default(), 30)

	got := a.Attribute(entities.TranscriptDocument{
		ID:      "t-4",
		Title:   "Tuesday Group",
		RawText: "ענבל (0): hi\nDana (1): hello\nMichal (2): hey",
	})

	assert.True(t, got.IsGroup)
	assert.Equal(t, entities.GroupDetectedByTitle, got.GroupDetectedBy)
	assert.Equal(t, []string{"Dana", "Michal"}, got.StudentNames)
	assert.Empty(t, got.RosterStudents)
}

func TestAttribute_NoTurns(t *testing.T) {
	a := NewAttributor(lexicon.Default(), 30)

	got := a.Attribute(entities.TranscriptDocument{ID: "t-5", RawText: "no speakers here"})

	assert.True(t, got.NoAttribution)
	assert.Equal(t, ReasonNoTurns, got.Reason)
	assert.Equal(t, entities.FormatNone, got.Format)
}

func TestAttribute_PlainLabelWithBidiIsolates(t *testing.T) {
	a := NewAttributor(lexicon.Default(), 30)

	got := a.Attribute(entities.TranscriptDocument{
		ID:      "t-6",
		RawText: "ענבל: שלום\n\u2068נועה\u2069: היי",
	})

	require.False(t, got.NoAttribution, got.Reason)
	assert.Equal(t, entities.FormatPlain, got.Format)
	assert.Equal(t, []string{"נועה"}, got.StudentNames)
}
