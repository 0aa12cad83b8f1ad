package llm

import (
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"NewsAnalyst/internal/domain"
)

// classify maps SDK and transport errors onto the domain error kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return domain.FromStatus(op, oaErr.StatusCode, oaErr.Message)
	}
	var anErr *sdk.Error
	if errors.As(err, &anErr) {
		return domain.FromStatus(op, anErr.StatusCode, anErr.Error())
	}
	return domain.Classify(op, err)
}
