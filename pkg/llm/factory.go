package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/apperrors"
)

// Provider names accepted by NewCompleter.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewCompleter builds a Completer for the named provider.
// An empty provider defaults to OpenAI-compatible.
func NewCompleter(provider string, cfg *Config, logger *zap.Logger) (Completer, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("%w %q (supported: %s, %s)",
			apperrors.ErrUnknownProvider, provider, ProviderOpenAI, ProviderAnthropic)
	}
}
