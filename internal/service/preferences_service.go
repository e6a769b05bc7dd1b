package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"romy/backend/internal/repository"
)

// Suggestion modes: which follow-up block renders under an answer.
const (
	SuggestionsActionItems      = "actionItems"
	SuggestionsRelatedQuestions = "relatedQuestions"
	SuggestionsBoth             = "both"
	SuggestionsOff              = "off"
)

const prefKeySuggestionsMode = "suggestions_mode"

// Preferences is the user-tunable behavior of the app.
type Preferences struct {
	SuggestionsMode string `json:"suggestions_mode" validate:"required,oneof=actionItems relatedQuestions both off"`
}

func defaultPreferences() Preferences {
	return Preferences{SuggestionsMode: SuggestionsActionItems}
}

// PreferencesService persists user preferences as key/value rows. Missing
// keys fall back to defaults, so a fresh database behaves sensibly.
type PreferencesService struct {
	repo repository.Repository
}

func NewPreferencesService(repo repository.Repository) *PreferencesService {
	return &PreferencesService{repo: repo}
}

func (s *PreferencesService) Get(ctx context.Context) (*Preferences, error) {
	prefs := defaultPreferences()
	mode, err := s.repo.GetPreference(ctx, prefKeySuggestionsMode)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("could not load preferences: %w", err)
	default:
		prefs.SuggestionsMode = mode
	}
	return &prefs, nil
}

func (s *PreferencesService) Save(ctx context.Context, prefs *Preferences) error {
	switch prefs.SuggestionsMode {
	case SuggestionsActionItems, SuggestionsRelatedQuestions, SuggestionsBoth, SuggestionsOff:
	default:
		return fmt.Errorf("invalid suggestions mode %q", prefs.SuggestionsMode)
	}
	return s.repo.SetPreference(ctx, prefKeySuggestionsMode, prefs.SuggestionsMode)
}

// SuggestionsMode resolves the active mode, falling back to the default when
// the store is unavailable. Suggestion rendering must not fail a chat.
func (s *PreferencesService) SuggestionsMode(ctx context.Context) string {
	prefs, err := s.Get(ctx)
	if err != nil {
		slog.Warn("Could not load suggestions mode, using default", "error", err)
		return defaultPreferences().SuggestionsMode
	}
	return prefs.SuggestionsMode
}
