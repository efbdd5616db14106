package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyArgs(t *testing.T) {
	res, err := Classify([]string{"67", "60", "64"})
	require.NoError(t, err)

	assert.Equal(t, "60-64-67", res.Key)
	require.NotNil(t, res.Match)
	assert.Equal(t, "C", res.Match.ChordRoot)
	assert.Equal(t, "major", res.Match.TemplateName)
}

func TestClassifyRejectsNonNotes(t *testing.T) {
	for _, arg := range []string{"C4", "-1", "128"} {
		_, err := Classify([]string{"60", arg})
		assert.Error(t, err, arg)
	}
}
