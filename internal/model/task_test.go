package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPriority(t *testing.T) {
	for _, p := range []string{PriorityLow, PriorityMedium, PriorityHigh} {
		assert.True(t, ValidPriority(p), p)
	}
	for _, p := range []string{"", "urgent", "HIGH"} {
		assert.False(t, ValidPriority(p), p)
	}
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityRank(PriorityHigh), PriorityRank(PriorityMedium))
	assert.Less(t, PriorityRank(PriorityMedium), PriorityRank(PriorityLow))
	assert.Less(t, PriorityRank(PriorityLow), PriorityRank("someday"))
}
