// Package ui builds the Discord messages and components shown by the store.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"

	"robux-bot/internal/models"
)

const (
	ColorBrand   = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorDanger  = 0xED4245
)

// Reply is the ephemeral answer shown only to whoever clicked.
type Reply struct {
	Content    string
	Components []discordgo.MessageComponent
}

// GenericError is the only failure text a buyer ever sees for internal errors.
const GenericError = "❌ Ocorreu um erro inesperado. Tente novamente em instantes ou chame um atendente."

// FormatBRL renders a price as "R$ 41,00".
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func ThreadName(username string, cartID int64) string {
	name := strings.ToLower(strings.TrimSpace(username))
	if name == "" {
		name = "cliente"
	}
	if r := []rune(name); len(r) > 60 {
		name = string(r[:60])
	}
	return fmt.Sprintf("🛒・%s・%d", name, cartID)
}

func emoji(name string) *discordgo.ComponentEmoji {
	if name == "" {
		return nil
	}
	return &discordgo.ComponentEmoji{Name: name}
}

func row(components ...discordgo.MessageComponent) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: components}
}

// StorePanel is the public storefront message with the category picker.
func StorePanel(categories []string) *discordgo.MessageSend {
	options := make([]discordgo.SelectMenuOption, 0, len(categories))
	for _, c := range categories {
		options = append(options, discordgo.SelectMenuOption{
			Label: capitalize(c),
			Value: c,
		})
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🛍️ Loja",
			Description: "Escolha uma categoria abaixo para abrir seu carrinho. Um canal privado será criado só para você e a equipe.",
			Color:       ColorBrand,
		}},
		Components: []discordgo.MessageComponent{
			row(discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    NewID(ActionCategory, 0),
				Placeholder: "Selecione uma categoria",
				Options:     options,
			}),
		},
	}
}

// ExistingCart is the resume-or-restart prompt shown by every entry point
// when the buyer already holds an active cart. Restart is offered only when
// the cart may still be discarded.
func ExistingCart(cart *models.Cart, category string, discardable bool) Reply {
	buttons := []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Continuar carrinho",
			Style:    discordgo.PrimaryButton,
			CustomID: NewID(ActionResume, cart.CartID),
			Emoji:    emoji("▶️"),
		},
	}
	content := fmt.Sprintf("⚠️ Você já tem um carrinho aberto em <#%s>.", cart.ThreadID)
	if discardable {
		buttons = append(buttons, discordgo.Button{
			Label:    "Descartar e começar de novo",
			Style:    discordgo.DangerButton,
			CustomID: NewID(ActionRestart, cart.CartID, category),
			Emoji:    emoji("🗑️"),
		})
	} else {
		content += " Ele já está com a equipe, aguarde o atendimento."
	}
	return Reply{Content: content, Components: []discordgo.MessageComponent{row(buttons...)}}
}

func CartCreated(threadID string) Reply {
	return Reply{Content: fmt.Sprintf("✅ Seu carrinho foi criado: <#%s>", threadID)}
}

func ResumeCart(threadID string) Reply {
	return Reply{Content: fmt.Sprintf("👉 Continue sua compra em <#%s>", threadID)}
}

// ProductMenu opens the thread: greets the buyer and lists the category's products.
func ProductMenu(cart *models.Cart, products []models.Product) *discordgo.MessageSend {
	options := make([]discordgo.SelectMenuOption, 0, len(products))
	for _, p := range products {
		desc := "Entrega automática"
		if p.Type == models.ProductManual {
			desc = "Entrega manual pela equipe"
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       p.Name,
			Value:       p.Name,
			Description: desc,
			Emoji:       emoji(p.Emoji),
		})
	}

	return &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", cart.UserID),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🛒 Carrinho aberto",
			Description: "Selecione o produto que deseja comprar.",
			Color:       ColorBrand,
			Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Carrinho #%d", cart.CartID)},
		}},
		Components: []discordgo.MessageComponent{
			row(discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    NewID(ActionProduct, cart.CartID),
				Placeholder: "Selecione o produto",
				Options:     options,
			}),
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{cart.UserID}},
	}
}

// QuantityMenu lists the price options already resolved for the buyer's tier.
func QuantityMenu(cart *models.Cart, product models.Product, prices []models.PriceOption) *discordgo.MessageSend {
	options := make([]discordgo.SelectMenuOption, 0, len(prices))
	for _, p := range prices {
		options = append(options, discordgo.SelectMenuOption{
			Label:       p.Label,
			Value:       p.Label,
			Description: FormatBRL(p.Price),
			Emoji:       emoji(product.Emoji),
		})
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       fmt.Sprintf("%s %s", product.Emoji, product.Name),
			Description: "Escolha a quantidade desejada.",
			Color:       ColorBrand,
		}},
		Components: []discordgo.MessageComponent{
			row(discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    NewID(ActionQuantity, cart.CartID),
				Placeholder: "Selecione a quantidade",
				Options:     options,
			}),
		},
	}
}

func NicknamePrompt(cart *models.Cart) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title: "👤 Nick do Roblox",
			Description: fmt.Sprintf("Você escolheu **%s** por **%s**.\nEnvie aqui no chat o seu **nick do Roblox** (não o apelido de exibição).",
				cart.QuantityLabel, FormatBRL(cart.Price)),
			Color: ColorBrand,
		}},
	}
}

func NicknameInvalid() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: "⚠️ Nick inválido. Use de 3 a 20 caracteres: letras, números ou `_`. Envie novamente.",
	}
}

func PaymentMethodMenu(cart *models.Cart) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title: "💳 Forma de pagamento",
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Produto", Value: cart.QuantityLabel, Inline: true},
				{Name: "Valor", Value: FormatBRL(cart.Price), Inline: true},
				{Name: "Nick", Value: cart.RobloxNickname, Inline: true},
			},
			Color: ColorBrand,
		}},
		Components: []discordgo.MessageComponent{
			row(discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    NewID(ActionPayMethod, cart.CartID),
				Placeholder: "Selecione a forma de pagamento",
				Options: []discordgo.SelectMenuOption{
					{Label: "PIX", Value: string(models.PaymentPix), Description: "Pagamento manual, confirmado pela equipe", Emoji: emoji("💠")},
				},
			}),
		},
	}
}

func PixInstructions(cart *models.Cart, key, holder, message string, deadline time.Duration) *discordgo.MessageSend {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Valor", Value: FormatBRL(cart.Price), Inline: true},
		{Name: "Chave PIX", Value: fmt.Sprintf("`%s`", key), Inline: true},
	}
	if holder != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Titular", Value: holder, Inline: true})
	}
	desc := "Após pagar, envie o **comprovante** aqui no chat."
	if message != "" {
		desc = message
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "💠 Pagamento via PIX",
			Description: desc,
			Fields:      fields,
			Color:       ColorBrand,
			Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Prazo para pagamento: %s", deadline)},
		}},
	}
}

func ProofReceived() *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: "📨 Comprovante recebido! Um atendente vai conferir o pagamento em breve."}
}

// PaymentApprovalControls lets an admin approve the payment from the thread.
func PaymentApprovalControls(cart *models.Cart) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		row(discordgo.Button{
			Label:    "Aprovar pagamento",
			Style:    discordgo.SuccessButton,
			CustomID: NewID(ActionApprove, cart.CartID),
			Emoji:    emoji("✅"),
		}),
	}
}

// GamepassTutorial tells the buyer how to create the gamepass priced at
// target and asks for both preconditions to be confirmed.
func GamepassTutorial(cart *models.Cart, target int64) *discordgo.MessageSend {
	minValues := 2
	return &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", cart.UserID),
		Embeds: []*discordgo.MessageEmbed{{
			Title: "🎮 Crie seu Gamepass",
			Description: fmt.Sprintf(
				"Pagamento aprovado! Para receber **%s**, crie um Gamepass em qualquer jogo seu com o valor de **%d Robux**.\n\n"+
					"1. Acesse create.roblox.com e abra um dos seus jogos\n"+
					"2. Vá em *Monetização → Passes* e crie um novo passe\n"+
					"3. Coloque à venda por exatamente **%d Robux**\n"+
					"4. Desative os **preços regionais**\n\n"+
					"Marque as duas confirmações abaixo para enviar o link.",
				cart.QuantityLabel, target, target),
			Color: ColorBrand,
		}},
		Components: []discordgo.MessageComponent{
			row(discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    NewID(ActionConfirm, cart.CartID),
				Placeholder: "Confirme as duas etapas",
				MinValues:   &minValues,
				MaxValues:   2,
				Options: []discordgo.SelectMenuOption{
					{Label: fmt.Sprintf("Coloquei o preço exato de %d Robux", target), Value: CheckExactPrice},
					{Label: "Desativei os preços regionais", Value: CheckRegionalPricing},
				},
			}),
			row(discordgo.Button{
				Label:    "Preciso de ajuda",
				Style:    discordgo.SecondaryButton,
				CustomID: NewID(ActionHelp, cart.CartID),
				Emoji:    emoji("🆘"),
			}),
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{cart.UserID}},
	}
}

func LinkPrompt(cart *models.Cart) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: "🔗 Perfeito! Agora envie aqui no chat o **link do seu Gamepass**.",
		Components: []discordgo.MessageComponent{
			row(discordgo.Button{
				Label:    "Preciso de ajuda",
				Style:    discordgo.SecondaryButton,
				CustomID: NewID(ActionHelp, cart.CartID),
				Emoji:    emoji("🆘"),
			}),
		},
	}
}

func LinkInvalid() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: "⚠️ Link inválido. Envie o link do Gamepass no formato `https://www.roblox.com/game-pass/...`.",
	}
}

func HelpGuidance(text string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "💡 Dicas enquanto a equipe não chega",
			Description: truncate(text, 4000),
			Color:       ColorWarning,
		}},
	}
}

// EscalationNotice is posted in the cart thread and pings the admin role.
func EscalationNotice(title, body string, cart *models.Cart, adminRoleID string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: fmt.Sprintf("<@&%s>", adminRoleID),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       title,
			Description: body,
			Color:       ColorWarning,
			Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Carrinho #%d", cart.CartID)},
		}},
		AllowedMentions: &discordgo.MessageAllowedMentions{Roles: []string{adminRoleID}},
	}
}

// PendingSummary is the structured summary posted in the pending-work channel.
func PendingSummary(title string, cart *models.Cart, detail string, claimable bool) *discordgo.MessageSend {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Cliente", Value: fmt.Sprintf("<@%s>", cart.UserID), Inline: true},
		{Name: "Carrinho", Value: fmt.Sprintf("<#%s>", cart.ThreadID), Inline: true},
		{Name: "Produto", Value: orDash(strings.TrimSpace(cart.ProductName + " " + cart.QuantityLabel)), Inline: true},
	}
	if cart.Price.IsPositive() {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Valor", Value: FormatBRL(cart.Price), Inline: true})
	}
	if cart.RobloxNickname != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Nick", Value: cart.RobloxNickname, Inline: true})
	}
	if cart.GamepassLink != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Gamepass", Value: cart.GamepassLink})
	}
	if detail != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Detalhes", Value: truncate(detail, 1000)})
	}

	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:     title,
			Fields:    fields,
			Color:     ColorWarning,
			Timestamp: time.Now().Format(time.RFC3339),
		}},
	}
	if claimable {
		msg.Components = []discordgo.MessageComponent{
			row(
				discordgo.Button{
					Label:    "Assumir",
					Style:    discordgo.PrimaryButton,
					CustomID: NewID(ActionClaim, cart.CartID),
					Emoji:    emoji("🙋"),
				},
				discordgo.Button{
					Label:    "Marcar como entregue",
					Style:    discordgo.SuccessButton,
					CustomID: NewID(ActionDeliver, cart.CartID),
					Emoji:    emoji("📦"),
				},
			),
		}
	}
	return msg
}

func ClaimedNotice(adminID string) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: fmt.Sprintf("🙋 <@%s> assumiu seu pedido.", adminID)}
}

func Delivered(order *models.Order) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "📦 Pedido entregue",
			Description: fmt.Sprintf("Seu pedido **%s %s** foi entregue. Obrigado pela compra!", order.ProductName, order.QuantityLabel),
			Color:       ColorSuccess,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Pedido " + order.Reference},
		}},
	}
}

func Expired() *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: "⌛ Este carrinho expirou por inatividade e foi fechado. Abra um novo pela loja quando quiser."}
}

func ClosedByAdmin(adminID string) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: fmt.Sprintf("🔒 Carrinho fechado por <@%s>.", adminID)}
}

// ReviewPrompt is sent by DM once an order is delivered.
func ReviewPrompt(order *models.Order) *discordgo.MessageSend {
	buttons := make([]discordgo.MessageComponent, 0, 5)
	for i := 1; i <= 5; i++ {
		buttons = append(buttons, discordgo.Button{
			Label:    strings.Repeat("⭐", i),
			Style:    discordgo.SecondaryButton,
			CustomID: NewID(ActionRate, order.OrderID, fmt.Sprint(i)),
		})
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "⭐ Avalie sua compra",
			Description: fmt.Sprintf("Como foi sua compra de **%s %s**?", order.ProductName, order.QuantityLabel),
			Color:       ColorBrand,
		}},
		Components: []discordgo.MessageComponent{row(buttons...)},
	}
}

// ReviewModal collects the free-text part of a review.
func ReviewModal(orderID int64, rating int) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: NewID(ActionReview, orderID, fmt.Sprint(rating)),
			Title:    "Avaliação",
			Components: []discordgo.MessageComponent{
				row(discordgo.TextInput{
					CustomID:    "text",
					Label:       "Conte como foi (opcional)",
					Style:       discordgo.TextInputParagraph,
					Required:    false,
					MaxLength:   1000,
					Placeholder: "Entrega rápida, atendimento excelente...",
				}),
			},
		},
	}
}

func OpsLogOpened(cart *models.Cart, actor models.Actor) *discordgo.MessageSend {
	return opsLog("📂 Carrinho aberto", ColorBrand, cart, actor)
}

func OpsLogClosed(cart *models.Cart, actor models.Actor) *discordgo.MessageSend {
	return opsLog("🔒 Carrinho fechado", ColorDanger, cart, actor)
}

func opsLog(title string, color int, cart *models.Cart, actor models.Actor) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title: title,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Carrinho", Value: fmt.Sprintf("#%d", cart.CartID), Inline: true},
				{Name: "Canal", Value: fmt.Sprintf("<#%s>", cart.ThreadID), Inline: true},
				{Name: "Cliente", Value: fmt.Sprintf("<@%s>", cart.UserID), Inline: true},
				{Name: "Por", Value: fmt.Sprintf("<@%s>", actor.UserID), Inline: true},
				{Name: "Status", Value: cart.Status.String(), Inline: true},
			},
			Color:     color,
			Timestamp: time.Now().Format(time.RFC3339),
		}},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
