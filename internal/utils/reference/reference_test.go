package reference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferences_AreDeterministic(t *testing.T) {
	assert.Equal(t, Recharge("t-1"), Recharge("t-1"))
	assert.NotEqual(t, Recharge("t-1"), Recharge("t-2"))

	agent := Commission("rec-1", "agent_payment")
	chef := Commission("rec-1", "chef_payment")
	assert.Equal(t, agent, Commission("rec-1", "agent_payment"))
	assert.NotEqual(t, agent, chef)
}

func TestReferences_Format(t *testing.T) {
	tests := []struct {
		ref    string
		prefix string
	}{
		{Recharge("ticket"), "RCH-"},
		{Commission("record", "bulk_transfer"), "COM-"},
		{Operation("op"), "OPR-"},
	}
	for _, tt := range tests {
		assert.True(t, strings.HasPrefix(tt.ref, tt.prefix), tt.ref)
		assert.Len(t, tt.ref, len(tt.prefix)+digestLength)
		assert.Equal(t, strings.ToUpper(tt.ref), tt.ref)
	}
}

func TestReferences_PartsDoNotCollide(t *testing.T) {
	assert.NotEqual(t, Commission("a|b", "c"), Commission("a", "b|c"))
}
