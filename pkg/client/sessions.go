package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListSessions returns chat sessions for a document, most recently updated
// first. An empty documentID lists general chats.
func (c *Client) ListSessions(ctx context.Context, documentID string) ([]Session, error) {
	target := c.endpoint("sessions") + "?" + url.Values{"document_id": {documentID}}.Encode()

	var sessions []Session
	if err := c.doJSON(ctx, http.MethodGet, target, nil, &sessions); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// SessionMessages returns a session's messages in chronological order with
// their citations parsed.
func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("sessions", sessionID, "messages"), nil, &msgs); err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	for i := range msgs {
		msgs[i].parseCitations()
	}
	return msgs, nil
}
