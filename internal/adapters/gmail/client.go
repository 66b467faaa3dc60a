// Package gmail adapts the Gmail REST API to the core.Mailbox port.
// Authentication uses a desktop OAuth2 client: credentials.json from the
// Google Cloud console plus a token file minted by a prior interactive
// authorization. Calls are not retried here.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mikey/jobmail/internal/core"
)

const userID = "me"

// Client is a Gmail implementation of the core.Mailbox interface.
type Client struct {
	svc    *gmailapi.Service
	logger *zap.Logger
}

// NewClient builds an authenticated Gmail client. The token file must
// already exist; minting it is an interactive, one-time step outside this
// process. An expired access token refreshes automatically through the
// token source.
func NewClient(ctx context.Context, credentialsFile, tokenFile string, logger *zap.Logger) (*Client, error) {
	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read OAuth credentials %s: %w", credentialsFile, err)
	}
	oauthCfg, err := google.ConfigFromJSON(credBytes, gmailapi.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth credentials: %w", err)
	}

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("load OAuth token %s (authorize the app first): %w", tokenFile, err)
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("build Gmail service: %w", err)
	}

	logger.Info("Gmail client initialized")

	return &Client{
		svc:    svc,
		logger: logger,
	}, nil
}

// List returns ids of messages matching the query.
func (c *Client) List(ctx context.Context, query string, maxResults int64) ([]string, error) {
	call := c.svc.Users.Messages.List(userID).MaxResults(maxResults).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	c.logger.Debug("Listed messages", zap.String("query", query), zap.Int("count", len(ids)))
	return ids, nil
}

// Get fetches a message in full format and extracts its text parts.
func (c *Client) Get(ctx context.Context, messageID string) (*core.Email, error) {
	msg, err := c.svc.Users.Messages.Get(userID, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}
	return extractEmail(msg, c.logger), nil
}

// ModifyLabels adds and removes label ids on a message.
func (c *Client) ModifyLabels(ctx context.Context, messageID string, add, remove []string) error {
	req := &gmailapi.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}
	if _, err := c.svc.Users.Messages.Modify(userID, messageID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("modify message %s: %w", messageID, err)
	}
	c.logger.Debug("Modified message labels",
		zap.String("message_id", messageID),
		zap.Strings("add", add),
		zap.Strings("remove", remove))
	return nil
}

// GetOrCreateLabel resolves a label name to its id, creating the label if
// it does not exist.
func (c *Client) GetOrCreateLabel(ctx context.Context, name string) (string, error) {
	resp, err := c.svc.Users.Labels.List(userID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	for _, label := range resp.Labels {
		if label.Name == name {
			return label.Id, nil
		}
	}

	c.logger.Info("Creating label", zap.String("name", name))
	created, err := c.svc.Users.Labels.Create(userID, &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	return created.Id, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return token, nil
}
