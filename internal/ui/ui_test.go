package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(nil))
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestDetectCI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}

func TestUseColor_NonTTY(t *testing.T) {
	assert.False(t, UseColor(&bytes.Buffer{}))
}

func TestGetStyles(t *testing.T) {
	plain := GetStyles(true)
	assert.Equal(t, "title", plain.Title.Render("title"))

	// Score tiers are distinct styles.
	styled := GetStyles(false)
	assert.NotEqual(t, styled.ScoreHigh, styled.ScoreLow)
	assert.Equal(t, styled.ScoreHigh, styled.Score(92.5))
	assert.Equal(t, styled.ScoreMid, styled.Score(50))
	assert.Equal(t, styled.ScoreLow, styled.Score(49.9))
}
