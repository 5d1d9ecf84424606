package memory

import (
	"context"
	"sort"

	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
)

type auditStore struct{ *Store }

func (s *auditStore) Insert(_ context.Context, entry *auditdomain.AuditLog) error {
	if entry == nil {
		return nil
	}
	s.mu.Lock()
	s.auditLogs = append(s.auditLogs, *entry)
	s.mu.Unlock()
	return nil
}

func (s *auditStore) List(_ context.Context, filter auditdomain.ListFilter) ([]*auditdomain.AuditLog, error) {
	s.mu.RLock()
	var out []*auditdomain.AuditLog
	for i := range s.auditLogs {
		entry := s.auditLogs[i]
		if !matchesAudit(entry, filter) {
			continue
		}
		out = append(out, &entry)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit+1 {
		out = out[:filter.Limit+1]
	}
	return out, nil
}

func matchesAudit(entry auditdomain.AuditLog, filter auditdomain.ListFilter) bool {
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	if filter.TargetType != "" && entry.TargetType != filter.TargetType {
		return false
	}
	if filter.TargetID != "" && (entry.TargetID == nil || *entry.TargetID != filter.TargetID) {
		return false
	}
	if c := filter.Cursor; c != nil {
		before := entry.CreatedAt.Before(c.CreatedAt) ||
			(entry.CreatedAt.Equal(c.CreatedAt) && entry.ID < c.ID)
		if !before {
			return false
		}
	}
	return true
}
