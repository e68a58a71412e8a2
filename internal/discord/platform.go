// Package discord adapts a discordgo session to the actions the cart state
// machine performs on the chat platform.
package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"robux-bot/config"
	"robux-bot/internal/cart"
)

// Threads auto-archive after a week of silence, the longest Discord allows.
const threadArchiveMinutes = int(config.ThreadAutoArchive / time.Minute)

const membersPageSize = 1000

type Platform struct {
	session *discordgo.Session
}

var _ cart.Platform = (*Platform)(nil)

func NewPlatform(session *discordgo.Session) *Platform {
	return &Platform{session: session}
}

func (p *Platform) CreatePrivateThread(ctx context.Context, parentChannelID, name string) (string, error) {
	ch, err := p.session.ThreadStartComplex(parentChannelID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: threadArchiveMinutes,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to start thread in %s: %w", parentChannelID, err)
	}
	return ch.ID, nil
}

func (p *Platform) AddThreadMember(ctx context.Context, threadID, userID string) error {
	return p.session.ThreadMemberAdd(threadID, userID, discordgo.WithContext(ctx))
}

func (p *Platform) Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	m, err := p.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send message to %s: %w", channelID, err)
	}
	return m.ID, nil
}

// StripComponents removes the buttons and menus of a message already sent.
func (p *Platform) StripComponents(ctx context.Context, channelID, messageID string) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	empty := []discordgo.MessageComponent{}
	edit.Components = &empty

	_, err := p.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) ArchiveThread(ctx context.Context, threadID string) error {
	archived, locked := true, true
	_, err := p.session.ChannelEditComplex(threadID, &discordgo.ChannelEdit{
		Archived: &archived,
		Locked:   &locked,
	}, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) DeleteThread(ctx context.Context, threadID string) error {
	_, err := p.session.ChannelDelete(threadID, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) SendDirect(ctx context.Context, userID string, msg *discordgo.MessageSend) error {
	ch, err := p.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM with %s: %w", userID, err)
	}
	_, err = p.Send(ctx, ch.ID, msg)
	return err
}

// RoleMembers lists the IDs of every guild member holding roleID. It pages
// through the whole member list, so the bot needs the members intent.
func (p *Platform) RoleMembers(ctx context.Context, guildID, roleID string) ([]string, error) {
	var (
		ids   []string
		after string
	)
	for {
		page, err := p.session.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s: %w", guildID, err)
		}
		ids = append(ids, WithRole(page, roleID)...)

		if len(page) < membersPageSize {
			return ids, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// WithRole returns the user IDs of the members holding roleID.
func WithRole(members []*discordgo.Member, roleID string) []string {
	var ids []string
	for _, m := range members {
		if m == nil || m.User == nil || m.User.Bot {
			continue
		}
		if HasRole(m.Roles, roleID) {
			ids = append(ids, m.User.ID)
		}
	}
	return ids
}

func HasRole(roles []string, roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, r := range roles {
		if r == roleID {
			return true
		}
	}
	return false
}
