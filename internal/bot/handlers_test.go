package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robux-bot/internal/cart"
	"robux-bot/internal/models"
	"robux-bot/internal/ui"
	"robux-bot/pkg/logger"
)

// recordingCarts remembers the last call as "<method> <args>".
type recordingCarts struct {
	last string
}

func (r *recordingCarts) record(format string, args ...interface{}) (ui.Reply, error) {
	r.last = fmt.Sprintf(format, args...)
	return ui.Reply{Content: r.last}, nil
}

func (r *recordingCarts) StartPurchase(_ context.Context, a models.Actor, category string) (ui.Reply, error) {
	return r.record("start %s %s", a.UserID, category)
}

func (r *recordingCarts) DiscardAndRestart(_ context.Context, a models.Actor, category string) (ui.Reply, error) {
	return r.record("restart %s %s", a.UserID, category)
}

func (r *recordingCarts) Resume(_ context.Context, a models.Actor) (ui.Reply, error) {
	return r.record("resume %s", a.UserID)
}

func (r *recordingCarts) SelectProduct(_ context.Context, _ models.Actor, id int64, name string) (ui.Reply, error) {
	return r.record("product %d %s", id, name)
}

func (r *recordingCarts) SelectQuantity(_ context.Context, _ models.Actor, id int64, label string) (ui.Reply, error) {
	return r.record("quantity %d %s", id, label)
}

func (r *recordingCarts) SelectPaymentMethod(_ context.Context, _ models.Actor, id int64, method string) (ui.Reply, error) {
	return r.record("paymethod %d %s", id, method)
}

func (r *recordingCarts) ApprovePayment(_ context.Context, _ models.Actor, id int64) (ui.Reply, error) {
	return r.record("approve %d", id)
}

func (r *recordingCarts) ConfirmGamepass(_ context.Context, _ models.Actor, id int64, checks []string) (ui.Reply, error) {
	return r.record("confirm %d %v", id, checks)
}

func (r *recordingCarts) RequestGamepassHelp(_ context.Context, _ models.Actor, id int64) (ui.Reply, error) {
	return r.record("help %d", id)
}

func (r *recordingCarts) Claim(_ context.Context, _ models.Actor, id int64) (ui.Reply, error) {
	return r.record("claim %d", id)
}

func (r *recordingCarts) Deliver(_ context.Context, _ models.Actor, id int64) (ui.Reply, error) {
	return r.record("deliver %d", id)
}

func (r *recordingCarts) CloseThread(_ context.Context, _ models.Actor, threadID string) (ui.Reply, error) {
	return r.record("close %s", threadID)
}

func (r *recordingCarts) SubmitReview(_ context.Context, _ models.Actor, id int64, rating int, text string) (ui.Reply, error) {
	return r.record("review %d %d %s", id, rating, text)
}

func (r *recordingCarts) HandleThreadMessage(_ context.Context, msg cart.ThreadMessage) error {
	r.last = "message " + msg.ThreadID
	return nil
}

func (r *recordingCarts) CloseByArchive(_ context.Context, threadID string) error {
	r.last = "archive " + threadID
	return nil
}

func TestRouteComponent(t *testing.T) {
	tests := []struct {
		customID string
		values   []string
		want     string
	}{
		{ui.NewID(ui.ActionCategory, 0), []string{"robux"}, "start u1 robux"},
		{ui.NewID(ui.ActionResume, 7), nil, "resume u1"},
		{ui.NewID(ui.ActionRestart, 7, "jogos"), nil, "restart u1 jogos"},
		{ui.NewID(ui.ActionProduct, 7), []string{"Robux"}, "product 7 Robux"},
		{ui.NewID(ui.ActionQuantity, 7), []string{"1000 Robux"}, "quantity 7 1000 Robux"},
		{ui.NewID(ui.ActionPayMethod, 7), []string{"pix"}, "paymethod 7 pix"},
		{ui.NewID(ui.ActionApprove, 7), nil, "approve 7"},
		{ui.NewID(ui.ActionConfirm, 7), []string{ui.CheckExactPrice, ui.CheckRegionalPricing}, "confirm 7 [exact_price regional_pricing_off]"},
		{ui.NewID(ui.ActionHelp, 7), nil, "help 7"},
		{ui.NewID(ui.ActionClaim, 7), nil, "claim 7"},
		{ui.NewID(ui.ActionDeliver, 7), nil, "deliver 7"},
	}

	actor := models.Actor{UserID: "u1"}
	for _, tt := range tests {
		t.Run(tt.customID, func(t *testing.T) {
			carts := &recordingCarts{}
			id, err := ui.ParseCustomID(tt.customID)
			require.NoError(t, err)

			reply, err := routeComponent(context.Background(), carts, actor, id, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, carts.last)
			assert.Equal(t, tt.want, reply.Content)
		})
	}
}

func TestRouteComponentUnknownAction(t *testing.T) {
	_, err := routeComponent(context.Background(), &recordingCarts{}, models.Actor{}, ui.CustomID{Action: "nope", ID: 1}, nil)
	assert.Error(t, err)
}

func TestUserMessage(t *testing.T) {
	msg, expected := userMessage(fmt.Errorf("wrapped: %w", &cart.ValidationError{Message: "Quantidade inválida."}))
	assert.True(t, expected)
	assert.Equal(t, "⚠️ Quantidade inválida.", msg)

	msg, expected = userMessage(cart.ErrForbidden)
	assert.True(t, expected)
	assert.Equal(t, forbiddenMessage, msg)

	msg, expected = userMessage(errors.New("connection reset"))
	assert.False(t, expected)
	assert.Equal(t, ui.GenericError, msg)
}

func TestActorOf(t *testing.T) {
	settings := Settings{AdminRoleID: "admin", VIPRoleID: "vip"}

	member := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{
			User:  &discordgo.User{ID: "1", Username: "alice"},
			Roles: []string{"vip"},
		},
	}}
	a := actorOf(member, settings)
	assert.Equal(t, "1", a.UserID)
	assert.Equal(t, "alice", a.Username)
	assert.True(t, a.IsVIP)
	assert.False(t, a.IsAdmin)

	staff := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "2"}, Roles: []string{"admin"}},
	}}
	assert.True(t, actorOf(staff, settings).IsAdmin)

	owner := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "3"}, Permissions: discordgo.PermissionAdministrator},
	}}
	assert.True(t, actorOf(owner, settings).IsAdmin)

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "4", Username: "bob"},
	}}
	a = actorOf(dm, settings)
	assert.Equal(t, "4", a.UserID)
	assert.False(t, a.IsAdmin)
}

func TestTextInputValue(t *testing.T) {
	components := []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: "other", Value: "x"},
		}},
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: "text", Value: "Muito bom"},
		}},
	}
	assert.Equal(t, "Muito bom", textInputValue(components, "text"))
	assert.Empty(t, textInputValue(components, "missing"))
}

func TestThreadMessageFrom(t *testing.T) {
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID:   "thread-1",
		GuildID:     "guild",
		Content:     "Alice123",
		Author:      &discordgo.User{ID: "u1"},
		Attachments: []*discordgo.MessageAttachment{{URL: "https://cdn.example/proof.png"}},
	}}
	msg, ok := threadMessageFrom(m)
	require.True(t, ok)
	assert.Equal(t, cart.ThreadMessage{
		ThreadID:    "thread-1",
		AuthorID:    "u1",
		Content:     "Alice123",
		Attachments: []string{"https://cdn.example/proof.png"},
	}, msg)

	bot := &discordgo.MessageCreate{Message: &discordgo.Message{GuildID: "guild", Author: &discordgo.User{ID: "b", Bot: true}}}
	_, ok = threadMessageFrom(bot)
	assert.False(t, ok)

	dm := &discordgo.MessageCreate{Message: &discordgo.Message{Author: &discordgo.User{ID: "u1"}}}
	_, ok = threadMessageFrom(dm)
	assert.False(t, ok)
}

func TestThreadEventsCloseCarts(t *testing.T) {
	carts := &recordingCarts{}
	b := &DiscordBot{carts: carts, ctx: context.Background(), logger: logger.NewNop()}

	b.onThreadUpdate(nil, &discordgo.ThreadUpdate{Channel: &discordgo.Channel{
		ID:             "thread-1",
		ThreadMetadata: &discordgo.ThreadMetadata{Archived: false},
	}})
	assert.Empty(t, carts.last)

	b.onThreadUpdate(nil, &discordgo.ThreadUpdate{Channel: &discordgo.Channel{
		ID:             "thread-1",
		ThreadMetadata: &discordgo.ThreadMetadata{Archived: true},
	}})
	assert.Equal(t, "archive thread-1", carts.last)

	b.onThreadDelete(nil, &discordgo.ThreadDelete{Channel: &discordgo.Channel{ID: "thread-2"}})
	assert.Equal(t, "archive thread-2", carts.last)
}

func TestOnMessageWithoutStateForwards(t *testing.T) {
	carts := &recordingCarts{}
	b := &DiscordBot{carts: carts, ctx: context.Background(), logger: logger.NewNop()}

	b.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "thread-9",
		GuildID:   "guild",
		Author:    &discordgo.User{ID: "u1"},
	}})
	assert.Equal(t, "message thread-9", carts.last)
}

func TestCommandsRequireManageChannels(t *testing.T) {
	cmds := commands()
	require.Len(t, cmds, 2)
	for _, c := range cmds {
		require.NotNil(t, c.DefaultMemberPermissions)
		assert.Equal(t, int64(discordgo.PermissionManageChannels), *c.DefaultMemberPermissions)
	}
}
