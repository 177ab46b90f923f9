package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/mikey/mailtagger/internal/config"
	"github.com/mikey/mailtagger/internal/core"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const user = "me"

// Mailbox is a Gmail implementation of the core Mailbox interface. The
// underlying service is created lazily so a daemon started before OAuth
// authorization keeps cycling instead of crashing; every call fails with
// ErrNoToken until the token file appears.
type Mailbox struct {
	oauthCfg     *oauth2.Config
	tokenPath    string
	logger       *zap.Logger
	labelNames   map[core.Category]string
	labelTriaged string

	mu       sync.Mutex
	svc      *gmailapi.Service
	labelIDs map[string]string
}

// NewMailbox creates a Gmail mailbox from configuration. It fails when the
// client credentials file is missing or unparsable.
func NewMailbox(cfg config.GmailConfig, logger *zap.Logger) (*Mailbox, error) {
	oauthCfg, err := loadOAuthConfig(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}

	return &Mailbox{
		oauthCfg:  oauthCfg,
		tokenPath: cfg.TokenPath,
		logger:    logger,
		labelNames: map[core.Category]string{
			core.CategoryEcommerce: cfg.LabelEcommerce,
			core.CategoryPolitical: cfg.LabelPolitical,
		},
		labelTriaged: cfg.LabelTriaged,
		labelIDs:     make(map[string]string),
	}, nil
}

// service returns the Gmail API service, creating it on first use once the
// token file is available
func (m *Mailbox) service(ctx context.Context) (*gmailapi.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.svc != nil {
		return m.svc, nil
	}

	tok, err := tokenFromFile(m.tokenPath)
	if err != nil {
		return nil, err
	}

	httpClient := m.oauthCfg.Client(context.Background(), tok)
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	m.svc = svc
	return svc, nil
}

// ListCandidates returns up to limit messages matching the query. Messages
// whose full fetch fails are skipped with a warning; the rest of the batch
// still goes through.
func (m *Mailbox) ListCandidates(ctx context.Context, query string, limit int64) ([]*core.Email, error) {
	svc, err := m.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Users.Messages.List(user).Q(query).MaxResults(limit).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	emails := make([]*core.Email, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		full, err := svc.Users.Messages.Get(user, msg.Id).Format("full").Context(ctx).Do()
		if err != nil {
			m.logger.Warn("Failed to fetch message",
				zap.String("message_id", msg.Id),
				zap.Error(err))
			continue
		}
		emails = append(emails, convertMessage(full))
	}

	m.logger.Debug("Listed candidate messages",
		zap.String("query", query),
		zap.Int("count", len(emails)))
	return emails, nil
}

// ApplyLabel attaches the category's label to a message, creating the label
// in Gmail on first use
func (m *Mailbox) ApplyLabel(ctx context.Context, messageID string, category core.Category) error {
	name, ok := m.labelNames[category]
	if !ok {
		return fmt.Errorf("no label configured for category %q", category)
	}
	return m.addLabel(ctx, messageID, name)
}

// MarkTriaged attaches the triage label so future candidate queries exclude
// the message
func (m *Mailbox) MarkTriaged(ctx context.Context, messageID string) error {
	return m.addLabel(ctx, messageID, m.labelTriaged)
}

func (m *Mailbox) addLabel(ctx context.Context, messageID, labelName string) error {
	svc, err := m.service(ctx)
	if err != nil {
		return err
	}

	labelID, err := m.labelID(ctx, svc, labelName)
	if err != nil {
		return err
	}

	req := &gmailapi.ModifyMessageRequest{AddLabelIds: []string{labelID}}
	if _, err := svc.Users.Messages.Modify(user, messageID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to apply label %s to message %s: %w", labelName, messageID, err)
	}
	return nil
}

// labelID resolves a label name to its Gmail id, creating the label if it
// does not exist yet
func (m *Mailbox) labelID(ctx context.Context, svc *gmailapi.Service, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.labelIDs[name]; ok {
		return id, nil
	}

	existing, err := svc.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}
	for _, lab := range existing.Labels {
		m.labelIDs[lab.Name] = lab.Id
	}
	if id, ok := m.labelIDs[name]; ok {
		return id, nil
	}

	created, err := svc.Users.Labels.Create(user, &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create label %s: %w", name, err)
	}

	m.logger.Info("Created Gmail label", zap.String("label", name))
	m.labelIDs[name] = created.Id
	return created.Id, nil
}

// convertMessage maps a Gmail API message into the provider-neutral Email
func convertMessage(msg *gmailapi.Message) *core.Email {
	email := &core.Email{ID: msg.Id}
	if msg.Payload == nil {
		return email
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			email.From = header.Value
		case "Subject":
			email.Subject = header.Value
		}
	}
	email.Body = convertPart(msg.Payload)
	return email
}

// convertPart maps the Gmail part tree, decoding base64url body data
func convertPart(part *gmailapi.MessagePart) *core.BodyPart {
	if part == nil {
		return nil
	}

	bp := &core.BodyPart{MIMEType: part.MimeType}
	if part.Body != nil && part.Body.Data != "" {
		bp.Data = decodeBody(part.Body.Data)
	}
	for _, child := range part.Parts {
		if converted := convertPart(child); converted != nil {
			bp.Parts = append(bp.Parts, converted)
		}
	}
	return bp
}

func decodeBody(data string) string {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	return ""
}
