package model

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/plume-cli/plume/chat/store"
)

// Model represents a chat model with per-1K-token pricing.
type Model struct {
	ID            string
	InputPricing  decimal.Decimal
	OutputPricing decimal.Decimal
}

var models = []*Model{
	{ID: "gpt-4o", InputPricing: decimal.RequireFromString("0.0025"), OutputPricing: decimal.RequireFromString("0.01")},
	{ID: "gpt-4o-mini", InputPricing: decimal.RequireFromString("0.00015"), OutputPricing: decimal.RequireFromString("0.0006")},
	{ID: "gpt-4-turbo", InputPricing: decimal.RequireFromString("0.01"), OutputPricing: decimal.RequireFromString("0.03")},
	{ID: "gpt-4", InputPricing: decimal.RequireFromString("0.03"), OutputPricing: decimal.RequireFromString("0.06")},
	{ID: "gpt-3.5-turbo", InputPricing: decimal.RequireFromString("0.0015"), OutputPricing: decimal.RequireFromString("0.002")},
}

// Parse the model.
func Parse(id string) (*Model, error) {
	for _, model := range models {
		if model.ID == id {
			return model, nil
		}
	}
	return nil, errors.Errorf("unknown model (%s)", id)
}

// EstimateTokens returns a rough token estimate (total chars / 4).
func EstimateTokens(messages ...store.Message) int64 {
	var total int64
	for _, message := range messages {
		total += int64(len(message.Content)) + int64(len(message.Role))
	}
	return total / 4
}

// CalculateRequestCost of these messages.
func (m *Model) CalculateRequestCost(messages ...store.Message) (int64, decimal.Decimal) {
	return m.calculateCost(messages, true)
}

// CalculateResponseCost of these messages.
func (m *Model) CalculateResponseCost(messages ...store.Message) (int64, decimal.Decimal) {
	return m.calculateCost(messages, false)
}

func (m *Model) calculateCost(messages []store.Message, input bool) (int64, decimal.Decimal) {
	tokens := EstimateTokens(messages...)
	pricing := m.OutputPricing
	if input {
		pricing = m.InputPricing
	}
	cost := pricing.Mul(decimal.NewFromInt(tokens)).Div(decimal.NewFromInt(1000))
	return tokens, cost
}
