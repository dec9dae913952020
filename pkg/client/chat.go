package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/papercomputeco/studybuddy/pkg/reply"
)

// Chat asks a question and streams the reply through a reply.Decoder.
// observe receives the decoded result after every fragment and once more
// with the terminal result. opts configure the decoder, for example to
// route marker parse failures to telemetry.
//
// A transport failure or non-2xx status is returned as an error and nothing
// further is observed.
func (c *Client) Chat(ctx context.Context, req ChatRequest, observe func(reply.Result), opts ...reply.Option) (reply.Result, error) {
	if req.Question == "" {
		return reply.Result{}, fmt.Errorf("question is required")
	}
	req.Persona = EffectivePersona(req.DocumentID, req.Persona)

	body, err := json.Marshal(req)
	if err != nil {
		return reply.Result{}, fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.endpoint("chat"), bytes.NewReader(body), "application/json")
	if err != nil {
		return reply.Result{}, err
	}

	c.logger.Debug("sending chat request",
		"document_id", req.DocumentID,
		"session_id", req.SessionID,
		"persona", req.Persona,
		"web_search", req.WebSearch,
	)

	resp, err := c.send(httpReq)
	if err != nil {
		return reply.Result{}, fmt.Errorf("chat failed: %w", err)
	}
	defer resp.Body.Close()

	decoderOpts := append([]reply.Option{reply.WithLogger(c.logger)}, opts...)
	res, err := reply.Pump(ctx, resp.Body, reply.NewDecoder(decoderOpts...), observe)
	if err != nil {
		return res, fmt.Errorf("chat stream: %w", err)
	}
	return res, nil
}
