package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// CreateInsight stores an insight for an existing user
func (s *Store) CreateInsight(_ context.Context, in models.NewInsight) (models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(in.UserID); err != nil {
		return models.Insight{}, err
	}
	now, seq := s.next()
	ins := &models.Insight{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		AgentType:   in.AgentType,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Confidence:  in.Confidence,
		Category:    in.Category,
		Metadata:    cloneMeta(in.Metadata),
		CreatedAt:   now,
	}
	timelineFor(s.insights, ins.UserID).add(now, seq, ins)
	return copyInsight(ins), nil
}

// ListInsights returns up to limit insights, most recent first
func (s *Store) ListInsights(_ context.Context, userID string, limit int) []models.Insight {
	return s.listInsights(userID, limit, nil)
}

// ListInsightsSince returns up to limit insights created at or after since,
// most recent first
func (s *Store) ListInsightsSince(_ context.Context, userID string, since time.Time, limit int) []models.Insight {
	return s.listInsights(userID, limit, func(i *models.Insight) bool {
		return !i.CreatedAt.Before(since)
	})
}

func (s *Store) listInsights(userID string, limit int, keep func(*models.Insight) bool) []models.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.insights[userID]
	if !ok {
		return []models.Insight{}
	}
	recs := t.newest(limit, keep)
	out := make([]models.Insight, len(recs))
	for i, r := range recs {
		out[i] = copyInsight(r)
	}
	return out
}

func copyInsight(i *models.Insight) models.Insight {
	c := *i
	c.Metadata = cloneMeta(i.Metadata)
	return c
}

// CreateChatMessage stores a chat message for an existing user
func (s *Store) CreateChatMessage(_ context.Context, in models.NewChatMessage) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(in.UserID); err != nil {
		return models.ChatMessage{}, err
	}
	now, seq := s.next()
	msg := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Type:      in.Type,
		Content:   in.Content,
		AgentType: in.AgentType,
		Metadata:  cloneMeta(in.Metadata),
		CreatedAt: now,
	}
	timelineFor(s.chat, msg.UserID).add(now, seq, msg)
	c := *msg
	c.Metadata = cloneMeta(msg.Metadata)
	return c, nil
}

// ListChatMessages returns the last limit messages in chronological order
func (s *Store) ListChatMessages(_ context.Context, userID string, limit int) []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.chat[userID]
	if !ok {
		return []models.ChatMessage{}
	}
	recent := t.newest(limit, nil)
	out := make([]models.ChatMessage, len(recent))
	for i, m := range recent {
		c := *m
		c.Metadata = cloneMeta(m.Metadata)
		out[len(recent)-1-i] = c
	}
	return out
}

// UpsertRiskMetric replaces the user's risk metrics, keeping the record id
func (s *Store) UpsertRiskMetric(_ context.Context, userID string, in models.RiskMetricInput) (models.RiskMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(userID); err != nil {
		return models.RiskMetric{}, err
	}
	existing, ok := s.risk[userID]
	id := uuid.NewString()
	if ok {
		id = existing.ID
	}
	m := &models.RiskMetric{
		ID:             id,
		UserID:         userID,
		PortfolioValue: in.PortfolioValue,
		VarOneDay:      in.VarOneDay,
		VarOneWeek:     in.VarOneWeek,
		MaxDrawdown:    in.MaxDrawdown,
		RiskScore:      in.RiskScore,
		LastUpdated:    s.now().UTC(),
	}
	s.risk[userID] = m
	return *m, nil
}

// GetRiskMetric returns the user's risk metrics if they were ever computed
func (s *Store) GetRiskMetric(_ context.Context, userID string) (models.RiskMetric, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.risk[userID]
	if !ok {
		return models.RiskMetric{}, false
	}
	return *m, true
}

// CreateActivity stores an activity record; status defaults to unread
func (s *Store) CreateActivity(_ context.Context, in models.NewActivity) (models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(in.UserID); err != nil {
		return models.ActivityRecord{}, err
	}
	status := in.Status
	if status == "" {
		status = models.ActivityUnread
	}
	now, seq := s.next()
	a := &models.ActivityRecord{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Type:        in.Type,
		Description: in.Description,
		Impact:      in.Impact,
		Status:      status,
		CreatedAt:   now,
	}
	s.activityID[a.ID] = a
	timelineFor(s.activity, a.UserID).add(now, seq, a)
	return *a, nil
}

// ListActivity returns up to limit activity records, most recent first
func (s *Store) ListActivity(_ context.Context, userID string, limit int) []models.ActivityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.activity[userID]
	if !ok {
		return []models.ActivityRecord{}
	}
	return copyAll(t.newest(limit, nil))
}

// UpdateActivityStatus changes the status of an activity record
func (s *Store) UpdateActivityStatus(_ context.Context, id, status string) (models.ActivityRecord, error) {
	switch status {
	case models.ActivityUnread, models.ActivityRead, models.ActivityActed:
	default:
		return models.ActivityRecord{}, errors.Invalid.Explain("unknown activity status %q", status).
			WithField("status", "oneof", "must be one of unread, read, acted")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activityID[id]
	if !ok {
		return models.ActivityRecord{}, errors.NotFound.Explain("activity %s not found", id)
	}
	a.Status = status
	return *a, nil
}
