package memory

import (
	"context"

	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
)

type settingsStore struct{ *Store }

func (s *settingsStore) Get(_ context.Context, id string) (*settingsdomain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.settings[id]
	if !ok {
		return nil, nil
	}
	doc.Data = append([]byte(nil), doc.Data...)
	return &doc, nil
}

func (s *settingsStore) Save(_ context.Context, doc *settingsdomain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *doc
	stored.Data = append([]byte(nil), doc.Data...)
	s.settings[doc.ID] = stored
	return nil
}
