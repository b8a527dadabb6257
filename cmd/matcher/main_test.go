package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/lesson-attribution/internal/usecase/review"
)

func executeCommand(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("LEXICON_FILE", "")
	t.Setenv("TRANSLITERATION_FILE", "")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestScoreCommand(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"ליהי", "Lihi Cohen", "95 transliteration"},
		{"Noa", "Noa Levi", "90 bare_first_name"},
		{"Noa's iPhone", "Noa Levi", "0 device"},
	}
	for _, tt := range tests {
		out := executeCommand(t, "score", tt.a, tt.b)
		assert.Equal(t, tt.want, strings.TrimSpace(out), tt.a)
	}
}

func TestScoreCommand_JSON(t *testing.T) {
	out := executeCommand(t, "score", "--json", "Noa Levi", "noa  levi")
	assert.Contains(t, out, `"score": 100`)
}

func TestApproveInput(t *testing.T) {
	in, err := approveInput("דני", "Daniel Cohen", false, "maya")
	require.NoError(t, err)
	assert.Equal(t, review.SourceCustom, in.Source)
	assert.Equal(t, "Daniel Cohen", in.ResolvedName)

	in, err = approveInput("דני", "", true, "maya")
	require.NoError(t, err)
	assert.Equal(t, review.SourceOriginal, in.Source)

	in, err = approveInput("דני", "", false, "maya")
	require.NoError(t, err)
	assert.Equal(t, review.SourceSuggestion, in.Source)

	_, err = approveInput("", "", false, "maya")
	assert.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Name", "Score"}, [][]string{{"Noa", "90"}, {"ליהי"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "ליהי")
	assert.Empty(t, renderTable(nil, nil, nil))
}
