package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"robux-bot/internal/cart"
	"robux-bot/internal/discord"
	"robux-bot/internal/models"
	"robux-bot/internal/ui"
)

const forbiddenMessage = "🚫 Você não tem permissão para fazer isso."

func (b *DiscordBot) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	defer b.recoverPanic("interaction")

	ctx, cancel := b.eventContext()
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	case discordgo.InteractionModalSubmit:
		b.handleModal(ctx, i)
	}
}

func (b *DiscordBot) handleCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	if err := b.deferEphemeral(ctx, i); err != nil {
		b.logger.Errorw("Failed to acknowledge command", "error", err)
		return
	}

	actor := actorOf(i, b.settings)
	name := i.ApplicationCommandData().Name
	b.logger.Infow("Handling command", "command", name, "user_id", actor.UserID)

	var (
		reply ui.Reply
		err   error
	)
	switch name {
	case CommandStore:
		reply, err = b.postStorePanel(ctx, actor, i.ChannelID)
	case CommandClose:
		reply, err = b.carts.CloseThread(ctx, actor, i.ChannelID)
	default:
		err = fmt.Errorf("unknown command %q", name)
	}
	b.followup(ctx, i, reply, err)
}

func (b *DiscordBot) postStorePanel(ctx context.Context, actor models.Actor, channelID string) (ui.Reply, error) {
	if !actor.IsAdmin {
		return ui.Reply{}, cart.ErrForbidden
	}
	panel := ui.StorePanel(b.catalog.Categories())
	if _, err := b.session.ChannelMessageSendComplex(channelID, panel, discordgo.WithContext(ctx)); err != nil {
		return ui.Reply{}, fmt.Errorf("failed to post store panel: %w", err)
	}
	return ui.Reply{Content: "🛍️ Painel da loja publicado."}, nil
}

func (b *DiscordBot) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	id, err := ui.ParseCustomID(data.CustomID)
	if err != nil {
		b.logger.Warnw("Ignoring component with unknown custom id", "custom_id", data.CustomID, "error", err)
		return
	}
	actor := actorOf(i, b.settings)

	// The rating buttons open a modal, which must be the first response.
	if id.Action == ui.ActionRate {
		rating, err := strconv.Atoi(id.Arg)
		if err != nil {
			b.logger.Warnw("Invalid rating button", "custom_id", data.CustomID)
			return
		}
		if err := b.session.InteractionRespond(i.Interaction, ui.ReviewModal(id.ID, rating), discordgo.WithContext(ctx)); err != nil {
			b.logger.Errorw("Failed to open review modal", "order_id", id.ID, "error", err)
		}
		return
	}

	if err := b.deferEphemeral(ctx, i); err != nil {
		b.logger.Errorw("Failed to acknowledge component", "custom_id", data.CustomID, "error", err)
		return
	}

	reply, err := routeComponent(ctx, b.carts, actor, id, data.Values)
	b.followup(ctx, i, reply, err)
}

// routeComponent dispatches a button or select menu to its cart operation.
func routeComponent(ctx context.Context, carts Carts, actor models.Actor, id ui.CustomID, values []string) (ui.Reply, error) {
	switch id.Action {
	case ui.ActionCategory:
		return carts.StartPurchase(ctx, actor, first(values))
	case ui.ActionResume:
		return carts.Resume(ctx, actor)
	case ui.ActionRestart:
		return carts.DiscardAndRestart(ctx, actor, id.Arg)
	case ui.ActionProduct:
		return carts.SelectProduct(ctx, actor, id.ID, first(values))
	case ui.ActionQuantity:
		return carts.SelectQuantity(ctx, actor, id.ID, first(values))
	case ui.ActionPayMethod:
		return carts.SelectPaymentMethod(ctx, actor, id.ID, first(values))
	case ui.ActionApprove:
		return carts.ApprovePayment(ctx, actor, id.ID)
	case ui.ActionConfirm:
		return carts.ConfirmGamepass(ctx, actor, id.ID, values)
	case ui.ActionHelp:
		return carts.RequestGamepassHelp(ctx, actor, id.ID)
	case ui.ActionClaim:
		return carts.Claim(ctx, actor, id.ID)
	case ui.ActionDeliver:
		return carts.Deliver(ctx, actor, id.ID)
	}
	return ui.Reply{}, fmt.Errorf("unknown component action %q", id.Action)
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (b *DiscordBot) handleModal(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	id, err := ui.ParseCustomID(data.CustomID)
	if err != nil || id.Action != ui.ActionReview {
		b.logger.Warnw("Ignoring unknown modal", "custom_id", data.CustomID)
		return
	}

	if err := b.deferEphemeral(ctx, i); err != nil {
		b.logger.Errorw("Failed to acknowledge modal", "custom_id", data.CustomID, "error", err)
		return
	}

	rating, err := strconv.Atoi(id.Arg)
	if err != nil {
		b.followup(ctx, i, ui.Reply{}, fmt.Errorf("invalid rating in %q: %w", data.CustomID, err))
		return
	}
	text := textInputValue(data.Components, "text")
	reply, err := b.carts.SubmitReview(ctx, actorOf(i, b.settings), id.ID, rating, text)
	b.followup(ctx, i, reply, err)
}

// textInputValue digs the value of a text input out of a submitted modal.
func textInputValue(components []discordgo.MessageComponent, customID string) string {
	for _, c := range components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if in, ok := inner.(*discordgo.TextInput); ok && in.CustomID == customID {
				return in.Value
			}
		}
	}
	return ""
}

func (b *DiscordBot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer b.recoverPanic("message")

	msg, ok := threadMessageFrom(m)
	if !ok {
		return
	}
	// Cart threads are the only channels with free-text input.
	if s != nil && s.State != nil {
		if ch, err := s.State.Channel(m.ChannelID); err == nil && !ch.IsThread() {
			return
		}
	}

	ctx, cancel := b.eventContext()
	defer cancel()

	if err := b.carts.HandleThreadMessage(ctx, msg); err != nil {
		b.logger.Errorw("Failed to handle thread message",
			"thread_id", m.ChannelID,
			"user_id", msg.AuthorID,
			"error", err)
	}
}

func threadMessageFrom(m *discordgo.MessageCreate) (cart.ThreadMessage, bool) {
	if m.Message == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return cart.ThreadMessage{}, false
	}
	msg := cart.ThreadMessage{
		ThreadID: m.ChannelID,
		AuthorID: m.Author.ID,
		Content:  m.Content,
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, a.URL)
	}
	return msg, true
}

// actorOf identifies who triggered the interaction. DMs carry no member,
// so roles only count inside the guild.
func actorOf(i *discordgo.InteractionCreate, settings Settings) models.Actor {
	var actor models.Actor
	if i.Member != nil {
		if i.Member.User != nil {
			actor.UserID = i.Member.User.ID
			actor.Username = i.Member.User.Username
		}
		actor.IsAdmin = discord.HasRole(i.Member.Roles, settings.AdminRoleID) ||
			i.Member.Permissions&discordgo.PermissionAdministrator != 0
		actor.IsVIP = discord.HasRole(i.Member.Roles, settings.VIPRoleID)
		return actor
	}
	if i.User != nil {
		actor.UserID = i.User.ID
		actor.Username = i.User.Username
	}
	return actor
}

func (b *DiscordBot) deferEphemeral(ctx context.Context, i *discordgo.InteractionCreate) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
}

func (b *DiscordBot) followup(ctx context.Context, i *discordgo.InteractionCreate, reply ui.Reply, err error) {
	if err != nil {
		msg, expected := userMessage(err)
		if !expected {
			b.logger.Errorw("Interaction failed", "interaction_id", i.ID, "error", err)
		}
		reply = ui.Reply{Content: msg}
	}
	if reply.Content == "" && len(reply.Components) == 0 {
		reply.Content = "✅"
	}

	params := &discordgo.WebhookParams{
		Content:    reply.Content,
		Components: reply.Components,
		Flags:      discordgo.MessageFlagsEphemeral,
	}
	if _, err := b.session.FollowupMessageCreate(i.Interaction, true, params, discordgo.WithContext(ctx)); err != nil {
		b.logger.Errorw("Failed to send interaction reply", "interaction_id", i.ID, "error", err)
	}
}

// userMessage maps an operation error to the ephemeral text the user sees.
// expected is false for internal failures, which get the generic notice.
func userMessage(err error) (msg string, expected bool) {
	var verr *cart.ValidationError
	switch {
	case errors.As(err, &verr):
		return "⚠️ " + verr.Message, true
	case errors.Is(err, cart.ErrForbidden):
		return forbiddenMessage, true
	}
	return ui.GenericError, false
}
