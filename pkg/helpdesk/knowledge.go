package helpdesk

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Ask sends a question to the knowledge assistant. Every call is independent.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &ValidationError{Field: "question", Reason: "required"}
	}
	var a Answer
	if err := c.call(ctx, http.MethodPost, "/api/ai/ask", formBody(url.Values{"question": {question}}), false, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListFAQs returns every FAQ entry.
func (c *Client) ListFAQs(ctx context.Context) ([]FAQ, error) {
	var faqs []FAQ
	if err := c.call(ctx, http.MethodGet, "/api/ai/faq/all", nil, false, &faqs); err != nil {
		return nil, err
	}
	return faqs, nil
}

// SearchFAQs asks the server for the best matching entries.
func (c *Client) SearchFAQs(ctx context.Context, query string) ([]FAQ, error) {
	if len([]rune(strings.TrimSpace(query))) < 2 {
		return nil, &ValidationError{Field: "q", Reason: "must be at least 2 characters"}
	}
	var faqs []FAQ
	if err := c.call(ctx, http.MethodGet, "/api/ai/faq/search?"+url.Values{"q": {query}}.Encode(), nil, false, &faqs); err != nil {
		return nil, err
	}
	return faqs, nil
}

func validCorpus(corpus Corpus) error {
	if corpus != CorpusKB && corpus != CorpusFAQ {
		return &ValidationError{Field: "corpus", Reason: "must be kb or faq"}
	}
	return nil
}

// ListCorpusFiles returns the filenames stored in a corpus. Admin only.
func (c *Client) ListCorpusFiles(ctx context.Context, corpus Corpus) ([]string, error) {
	if err := validCorpus(corpus); err != nil {
		return nil, err
	}
	var out struct {
		Files []string `json:"files"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/ai/files/"+string(corpus), nil, true, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// UploadCorpusFile adds a file to a corpus, replacing one with the same name. Admin only.
func (c *Client) UploadCorpusFile(ctx context.Context, corpus Corpus, name string, r io.Reader) (*UploadResult, error) {
	if err := validCorpus(corpus); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" || r == nil {
		return nil, &ValidationError{Field: "file", Reason: "required"}
	}
	b, err := multipartBody(nil, &Attachment{Name: name, Reader: r})
	if err != nil {
		return nil, err
	}
	path := "/api/ai/admin/upload-knowledge"
	if corpus == CorpusFAQ {
		path = "/api/ai/admin/upload-faq"
	}
	var res UploadResult
	if err := c.call(ctx, http.MethodPost, path, b, true, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteCorpusFile removes a file from a corpus. Deleting a file that is
// already gone returns an error matching ErrNotFound. Admin only.
func (c *Client) DeleteCorpusFile(ctx context.Context, corpus Corpus, filename string) error {
	if err := validCorpus(corpus); err != nil {
		return err
	}
	if strings.TrimSpace(filename) == "" {
		return &ValidationError{Field: "filename", Reason: "required"}
	}
	return c.call(ctx, http.MethodDelete, "/api/ai/files/"+string(corpus)+"/"+url.PathEscape(filename), nil, true, nil)
}
