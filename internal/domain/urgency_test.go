package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUrgencyLabel_KnownPairs(t *testing.T) {
	assert.Equal(t, "No food available", UrgencyLabel("food", "high"))
	assert.Equal(t, "Life-threatening situation", UrgencyLabel("medical", "critical"))
	assert.Equal(t, "Need immediate shelter", UrgencyLabel("shelter", "high"))
	assert.Equal(t, "Can evacuate within 24 hours", UrgencyLabel("evacuation", "low"))
	assert.Equal(t, "Critical supplies depleted", UrgencyLabel("supplies", "critical"))
}

func TestUrgencyLabel_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "No food available", UrgencyLabel("Food", "HIGH"))
	assert.Equal(t, "No food available", UrgencyLabel(" food ", " high "))
}

func TestUrgencyLabel_UnknownFallsBackToLevel(t *testing.T) {
	assert.Equal(t, "HIGH", UrgencyLabel("rescue", "high"))
	assert.Equal(t, "SEVERE", UrgencyLabel("food", "severe"))
	assert.Equal(t, "", UrgencyLabel("", ""))
}
