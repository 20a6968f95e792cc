package dto

import "github.com/spec-kit/helpdesk/internal/domain"

// AskRequest payload for POST /api/ai/ask.
type AskRequest struct {
	Question string `json:"question" form:"question"`
}

// AskResponse echoes the question with its answer.
type AskResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQResponse is one question/answer pair.
type FAQResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// CorpusFilesResponse lists the files of a corpus.
type CorpusFilesResponse struct {
	Files []string `json:"files"`
}

// CorpusUploadResponse reports an indexed upload.
type CorpusUploadResponse struct {
	Corpus   domain.Corpus `json:"corpus"`
	Filename string        `json:"filename"`
	Chunks   int           `json:"chunks"`
}

// NewFAQResponses maps FAQ entries.
func NewFAQResponses(entries []domain.FAQEntry) []FAQResponse {
	out := make([]FAQResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FAQResponse{Question: e.Question, Answer: e.Answer})
	}
	return out
}
