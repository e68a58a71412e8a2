package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestWithRole(t *testing.T) {
	members := []*discordgo.Member{
		{User: &discordgo.User{ID: "1"}, Roles: []string{"admin", "vip"}},
		{User: &discordgo.User{ID: "2"}, Roles: []string{"vip"}},
		{User: &discordgo.User{ID: "3", Bot: true}, Roles: []string{"admin"}},
		{Roles: []string{"admin"}},
		nil,
		{User: &discordgo.User{ID: "4"}, Roles: []string{"admin"}},
	}

	assert.Equal(t, []string{"1", "4"}, WithRole(members, "admin"))
	assert.Empty(t, WithRole(members, "missing"))
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole([]string{"a", "b"}, "b"))
	assert.False(t, HasRole([]string{"a"}, "b"))
	assert.False(t, HasRole([]string{""}, ""))
}

func TestThreadsOutliveCartDeadlines(t *testing.T) {
	assert.Equal(t, 10080, threadArchiveMinutes)
}
