package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ListDocuments returns the user's documents, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("documents"), nil, &docs); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// GetDocument returns a single document, including its ingestion status.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	doc := &Document{}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("documents", id), nil, doc); err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	return doc, nil
}

// DeleteDocument removes a document and everything derived from it. The
// backend's confirmation message is returned.
func (c *Client) DeleteDocument(ctx context.Context, id string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, c.endpoint("documents", id), nil, &out); err != nil {
		return "", fmt.Errorf("deleting document %s: %w", id, err)
	}
	return out.Message, nil
}

// ReprocessDocument resets a document to pending and restarts ingestion.
func (c *Client) ReprocessDocument(ctx context.Context, id string) (*Document, error) {
	doc := &Document{}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("documents", id, "reprocess"), nil, doc); err != nil {
		return nil, fmt.Errorf("reprocessing document %s: %w", id, err)
	}
	return doc, nil
}

// DownloadDocument streams the original PDF into w.
func (c *Client) DownloadDocument(ctx context.Context, id string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("documents", id, "content"), nil, "")
	if err != nil {
		return 0, err
	}

	resp, err := c.send(req)
	if err != nil {
		return 0, fmt.Errorf("downloading document %s: %w", id, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("downloading document %s: %w", id, err)
	}
	return n, nil
}
