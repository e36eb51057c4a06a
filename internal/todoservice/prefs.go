package todoservice

import (
	"context"

	"github.com/starford/wunjo/internal/prefs"
)

// Preferences returns the user's preference document. Users who never saved
// one get an empty document.
func (s *Service) Preferences(ctx context.Context, userID string) (prefs.Doc, error) {
	return s.db.PreferenceDoc(ctx, userID)
}

// SavePreferences validates the incoming document and merges it over the
// stored one at the top level: incoming keys replace stored keys wholesale,
// keys the caller did not send survive. Returns the merged document.
func (s *Service) SavePreferences(ctx context.Context, userID string, incoming prefs.Doc) (prefs.Doc, error) {
	if err := prefs.Validate(incoming); err != nil {
		return nil, err
	}
	current, err := s.db.PreferenceDoc(ctx, userID)
	if err != nil {
		return nil, err
	}
	merged := prefs.Merge(current, incoming)
	if err := s.db.SavePreferenceDoc(ctx, userID, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
