// Package translator talks to machine translation providers.
package translator

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"hanru_board/internal/domain/model"
	"hanru_board/internal/platform/config"
)

var (
	// ErrDisabled is returned when no provider is configured.
	ErrDisabled = errors.New("translation provider disabled")
	// ErrProvider wraps failures reported by the remote provider.
	ErrProvider = errors.New("translation provider error")
)

// Translator turns text in source into text in target.
// An empty input translates to an empty output without a remote call.
type Translator interface {
	Translate(ctx context.Context, text string, source, target model.Language) (string, error)
}

type disabled struct{}

// Disabled fails every request with ErrDisabled.
func Disabled() Translator { return disabled{} }

func (disabled) Translate(context.Context, string, model.Language, model.Language) (string, error) {
	return "", ErrDisabled
}

// FromConfig picks the in-process provider. The external provider translates
// out of process, so ad-hoc requests are disabled under it.
func FromConfig(cfg *config.Config) Translator {
	switch cfg.TranslationProvider {
	case config.ProviderDeepL:
		return NewDeepL(cfg.DeepLAPIKey, cfg.DeepLAPIURL).WithRateLimit(cfg.DeepLRequestsPerSecond, cfg.DeepLBurst)
	case config.ProviderExternal, config.ProviderNone:
		return Disabled()
	default:
		log.Warn().Str("provider", cfg.TranslationProvider).Msg("Unknown translation provider, translation disabled")
		return Disabled()
	}
}
