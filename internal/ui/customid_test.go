package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomIDRoundTrip(t *testing.T) {
	id := NewID(ActionRestart, 0, "robux")
	assert.Equal(t, "restart:0:robux", id)

	c, err := ParseCustomID(id)
	require.NoError(t, err)
	assert.Equal(t, CustomID{Action: ActionRestart, ID: 0, Arg: "robux"}, c)
}

func TestParseCustomIDKeepsColonsInArg(t *testing.T) {
	c, err := ParseCustomID("review:12:5:extra")
	require.NoError(t, err)
	assert.Equal(t, int64(12), c.ID)
	assert.Equal(t, "5:extra", c.Arg)
}

func TestParseCustomIDErrors(t *testing.T) {
	for _, s := range []string{"", "claim", "claim:abc", ":1"} {
		_, err := ParseCustomID(s)
		assert.Error(t, err, s)
	}
}
