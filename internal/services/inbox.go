package services

import (
	"context"
	"sort"
	"time"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/internal/authz"
	"leadcrm/internal/repo"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
)

const (
	conversationScanLimit = 500
	threadLimit           = 50
)

// InboxService groups inbound messages into per-lead conversations
type InboxService struct {
	store *repo.Store
	authz *authz.Engine
}

// NewInboxService creates a new inbox service
func NewInboxService(store *repo.Store, engine *authz.Engine) *InboxService {
	return &InboxService{store: store, authz: engine}
}

// LastMessage summarizes the newest message of a conversation
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
}

// Conversation is a lead with at least one message
type Conversation struct {
	LeadID      uuid.UUID    `json:"leadId"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	StageID     *uuid.UUID   `json:"stageId"`
	LastMessage *LastMessage `json:"lastMessage"`
}

// MessageItem is one entry of a conversation thread
type MessageItem struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversations lists leads with recent messages, most recent first. Only
// the newest 500 messages are scanned; messages with no lead never appear.
func (s *InboxService) Conversations(ctx context.Context, session *auth.Session) ([]Conversation, error) {
	msgs, err := s.store.RecentLeadMessages(ctx, session.TenantID, conversationScanLimit)
	if err != nil {
		return nil, storeErr("recent messages", "Message", err)
	}

	last := make(map[uuid.UUID]*LastMessage)
	var ids []uuid.UUID
	for _, m := range msgs {
		if m.LeadID == nil {
			continue
		}
		if _, seen := last[*m.LeadID]; seen {
			continue
		}
		last[*m.LeadID] = &LastMessage{Content: m.Content, CreatedAt: m.CreatedAt, Type: m.Type, IsRead: m.IsRead}
		ids = append(ids, *m.LeadID)
	}
	if len(ids) == 0 {
		return []Conversation{}, nil
	}

	var assignedTo *uuid.UUID
	if session.Role == auth.RoleSales {
		assignedTo = &session.UserID
	}
	leads, err := s.store.LeadsByIDs(ctx, session.TenantID, ids, assignedTo)
	if err != nil {
		return nil, storeErr("conversation leads", "Lead", err)
	}

	conversations := make([]Conversation, 0, len(leads))
	for _, l := range leads {
		conversations = append(conversations, Conversation{
			LeadID:      l.ID,
			Name:        l.Name,
			Email:       l.Email,
			Phone:       l.Phone,
			StageID:     l.StageID,
			LastMessage: last[l.ID],
		})
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.CreatedAt.After(conversations[j].LastMessage.CreatedAt)
	})
	return conversations, nil
}

// Messages returns up to 50 messages of a lead, oldest first
func (s *InboxService) Messages(ctx context.Context, session *auth.Session, leadID uuid.UUID) ([]MessageItem, error) {
	d, err := s.authz.CanReadLead(ctx, authz.ActorFromSession(session), leadID)
	if err := decide(d, err, "Lead"); err != nil {
		return nil, err
	}

	msgs, err := s.store.LeadMessages(ctx, session.TenantID, leadID, threadLimit)
	if err != nil {
		return nil, storeErr("lead messages", "Message", err)
	}
	items := make([]MessageItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, newMessageItem(m))
	}
	return items, nil
}

// MarkRead flags every message of a lead as read
func (s *InboxService) MarkRead(ctx context.Context, session *auth.Session, leadID uuid.UUID) (int64, error) {
	d, err := s.authz.CanReadLead(ctx, authz.ActorFromSession(session), leadID)
	if err := decide(d, err, "Lead"); err != nil {
		return 0, err
	}
	n, err := s.store.MarkLeadMessagesRead(ctx, session.TenantID, leadID)
	if err != nil {
		return 0, storeErr("mark read", "Message", err)
	}
	return n, nil
}

// SetMessageRead sets one message's read flag. Messages on a lead follow
// the lead's update rules; messages with no lead need a writable role.
func (s *InboxService) SetMessageRead(ctx context.Context, session *auth.Session, id uuid.UUID, isRead bool) error {
	msg, err := s.store.GetMessage(ctx, session.TenantID, id)
	if err != nil {
		return storeErr("load message", "Message", err)
	}

	if msg.LeadID != nil {
		d, err := s.authz.CanUpdateLead(ctx, authz.ActorFromSession(session), *msg.LeadID)
		if err := decide(d, err, "Lead"); err != nil {
			return err
		}
	} else if authz.IsReadOnly(session.Role) {
		return apperr.Forbidden("Forbidden")
	}

	if err := s.store.SetMessageRead(ctx, session.TenantID, id, isRead); err != nil {
		return storeErr("update message", "Message", err)
	}
	return nil
}

func newMessageItem(m models.Message) MessageItem {
	return MessageItem{ID: m.ID, Content: m.Content, Type: m.Type, IsRead: m.IsRead, CreatedAt: m.CreatedAt}
}
