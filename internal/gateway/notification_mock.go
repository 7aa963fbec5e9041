package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type SentNotification struct {
	UserID     uuid.UUID
	TemplateID string
	Data       map[string]any
}

type NotificationSenderMock struct {
	lock  sync.Mutex
	Sends []SentNotification
}

func (m *NotificationSenderMock) Send(_ context.Context, userID uuid.UUID, templateID string, data map[string]any) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Sends = append(m.Sends, SentNotification{
		UserID:     userID,
		TemplateID: templateID,
		Data:       data,
	})
}

func (m *NotificationSenderMock) SentTemplates() []string {
	m.lock.Lock()
	defer m.lock.Unlock()

	templates := make([]string, len(m.Sends))
	for i, sent := range m.Sends {
		templates[i] = sent.TemplateID
	}
	return templates
}
