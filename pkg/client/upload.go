package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

const pdfContentType = "application/pdf"

// ValidateUpload checks that path is a PDF no larger than maxBytes. Every
// failure wraps ErrInvalidUpload.
func ValidateUpload(path string, maxBytes int64) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%w: %s: only PDF files are supported", ErrInvalidUpload, filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidUpload, path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrInvalidUpload, filepath.Base(path), info.Size(), maxBytes)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if ct := http.DetectContentType(head[:n]); ct != pdfContentType {
		return fmt.Errorf("%w: %s does not look like a PDF (%s)", ErrInvalidUpload, filepath.Base(path), ct)
	}

	return nil
}

// UploadDocument validates and uploads a PDF. The returned document is
// pending; ingestion continues on the backend.
func (c *Client) UploadDocument(ctx context.Context, path string) (*Document, error) {
	if err := ValidateUpload(path, c.maxUpload); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", pdfContentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("upload"), &body, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", filepath.Base(path), err)
	}
	defer resp.Body.Close()

	doc := &Document{}
	if err := decodeBody(resp, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
