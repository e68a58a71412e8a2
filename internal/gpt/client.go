// internal/gpt/client.go
package gpt

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"robux-bot/internal/models"
)

const systemPrompt = "Você é o atendente de uma loja de Robux. Explique em português do Brasil, " +
	"em passos curtos e numerados, como criar um Gamepass no Roblox com o preço exato informado " +
	"e com os preços regionais desativados. Não invente valores e não peça dados pessoais."

type Client struct {
	client *openai.Client
	model  string
}

func NewClient(apiKey string) *Client {
	return NewClientWithConfig(openai.DefaultConfig(apiKey))
}

// NewClientWithConfig allows pointing the client at another base URL.
func NewClientWithConfig(cfg openai.ClientConfig) *Client {
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4oMini,
	}
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// GamepassHelp drafts step-by-step guidance for a buyer who could not set up
// the gamepass for cart.
func (c *Client) GamepassHelp(ctx context.Context, cart models.Cart, target int64) (string, error) {
	prompt := fmt.Sprintf(
		"O cliente %s comprou %s e precisa criar um Gamepass.\n"+
			"- Preço exato do Gamepass: %d Robux\n"+
			"- Os preços regionais precisam estar desativados\n"+
			"- Depois de criar, ele deve enviar o link do Gamepass no chat do carrinho\n",
		orDefault(cart.RobloxNickname, "sem nick"), orDefault(cart.QuantityLabel, cart.ProductName), target,
	)

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   600,
		Temperature: 0.3,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to request gamepass guidance: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from GPT API")
	}

	return resp.Choices[0].Message.Content, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
