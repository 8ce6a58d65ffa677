package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeJobType(t *testing.T) {
	assert.Equal(t, "Full Time", NormalizeJobType("Full-Time"))
	assert.Equal(t, "Full Time", NormalizeJobType("permanent position"))
	assert.Equal(t, "Part Time", NormalizeJobType("part time"))
	assert.Equal(t, "Internship", NormalizeJobType("Software Engineering Internship"))
	assert.Equal(t, "Internship", NormalizeJobType("Co-op"))
	assert.Equal(t, "", NormalizeJobType("contract"))
	assert.Equal(t, "", NormalizeJobType(""))
}

func TestDetectRemote(t *testing.T) {
	assert.True(t, DetectRemote("This role is fully remote."))
	assert.True(t, DetectRemote("Hybrid, 2 days in office"))
	assert.True(t, DetectRemote("WFH friendly"))
	assert.True(t, DetectRemote("work from anywhere in the EU"))
	assert.False(t, DetectRemote("on-site only"))
	assert.False(t, DetectRemote(""))
	// whole-word: no match inside larger words
	assert.False(t, DetectRemote("remotely operated vehicles"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Senior Engineer", CleanText("  Senior  Engineer \n"))
}
