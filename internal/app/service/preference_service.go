package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"hanru_board/internal/common"
	"hanru_board/internal/preference"
)

// PreferenceService owns the per-viewer display mode slots.
type PreferenceService struct {
	slots  preference.Slots
	delays []time.Duration
}

func NewPreferenceService(slots preference.Slots, delays []time.Duration) *PreferenceService {
	return &PreferenceService{slots: slots, delays: delays}
}

// Controller binds viewerID's stored mode to surface.
func (s *PreferenceService) Controller(viewerID string, surface preference.Surface) *preference.Controller {
	return preference.NewController(s.slots.Slot(viewerID), surface)
}

// TransientController applies m to surface without touching the viewer's slot.
func (s *PreferenceService) TransientController(m preference.Mode, surface preference.Surface) *preference.Controller {
	store := preference.NewMemoryStore()
	_ = store.Save(context.Background(), string(m))
	return preference.NewController(store, surface)
}

func (s *PreferenceService) Delays() []time.Duration {
	return s.delays
}

// SetMode validates and stores raw for viewerID.
func (s *PreferenceService) SetMode(ctx context.Context, viewerID, raw string) (preference.Mode, error) {
	m, ok := preference.ParseMode(raw)
	if !ok {
		return "", common.Errorf("mode %q must be ko, ru or both: %w", raw, common.ErrValidation)
	}
	if err := s.Controller(viewerID, nil).SetMode(ctx, m); err != nil {
		return "", common.Errorf("failed to set mode: %w", err)
	}
	log.Debug().Str("viewer_id", viewerID).Str("mode", string(m)).Msg("Display mode changed")
	return m, nil
}

// Stored reads the viewer's saved mode without writing a default.
func (s *PreferenceService) Stored(ctx context.Context, viewerID string) (preference.Mode, bool) {
	raw, err := s.slots.Slot(viewerID).Load(ctx)
	if err != nil {
		if !errors.Is(err, preference.ErrNoValue) {
			log.Warn().Err(err).Str("viewer_id", viewerID).Msg("Preference store unavailable")
		}
		return "", false
	}
	return preference.ParseMode(raw)
}
