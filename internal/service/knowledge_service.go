package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/knowledge"
	"github.com/spec-kit/helpdesk/internal/llm"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	// NoAnswerText is returned when the knowledge base has nothing relevant.
	NoAnswerText = "I'm sorry, I couldn't find any relevant information in our knowledge base."

	askContextChunks = 4
	faqSearchLimit   = 5
	minFAQQueryLen   = 2
)

// KnowledgeService manages the KB and FAQ corpora and answers questions.
type KnowledgeService struct {
	corpus     repository.CorpusRepository
	chat       llm.Chatter
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// KnowledgeDependencies bundles collaborators. Chat may be nil, in which case
// answers are extractive.
type KnowledgeDependencies struct {
	CorpusRepo repository.CorpusRepository
	Chat       llm.Chatter
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewKnowledgeService constructs the service.
func NewKnowledgeService(deps KnowledgeDependencies) *KnowledgeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeService{corpus: deps.CorpusRepo, chat: deps.Chat, dispatcher: deps.Dispatcher, logger: logger}
}

// Upload indexes a text file into a corpus, replacing any earlier upload of
// the same filename.
func (s *KnowledgeService) Upload(ctx context.Context, actor *domain.User, corpus domain.Corpus, filename string, content []byte) (string, int, error) {
	if !corpus.Valid() {
		return "", 0, apperrors.NewValidationError("corpus must be kb or faq", map[string]any{"corpus": corpus})
	}
	if strings.TrimSpace(filename) == "" {
		return "", 0, apperrors.NewValidationError("file is required", map[string]any{"field": "file"})
	}
	name := storage.SanitizeName(filename)
	if !utf8.Valid(content) {
		return "", 0, apperrors.NewValidationError("file must be UTF-8 text", map[string]any{"field": "file"})
	}
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return "", 0, apperrors.NewValidationError("file is empty", map[string]any{"field": "file"})
	}

	var chunks []string
	if corpus == domain.CorpusKB {
		chunks = knowledge.Chunk(text, knowledge.DefaultChunkSize, knowledge.DefaultChunkOverlap)
	} else {
		chunks = knowledge.SplitFAQ(text)
	}

	if err := s.corpus.ReplaceFile(ctx, corpus, name, chunks); err != nil {
		return "", 0, apperrors.NewInternalError(err)
	}
	s.logger.Info("corpus file indexed", zap.String("corpus", string(corpus)), zap.String("filename", name), zap.Int("chunks", len(chunks)))
	s.publish(ctx, actor, events.CorpusUpdatedPayload{Corpus: corpus, Filename: name, Chunks: len(chunks)})
	return name, len(chunks), nil
}

// Delete drops every chunk of a file.
func (s *KnowledgeService) Delete(ctx context.Context, actor *domain.User, corpus domain.Corpus, filename string) error {
	if !corpus.Valid() {
		return apperrors.NewValidationError("corpus must be kb or faq", map[string]any{"corpus": corpus})
	}
	if err := s.corpus.DeleteFile(ctx, corpus, filename); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("File", map[string]any{"corpus": corpus, "filename": filename})
		}
		return apperrors.NewInternalError(err)
	}
	s.publish(ctx, actor, events.CorpusUpdatedPayload{Corpus: corpus, Filename: filename, Deleted: true})
	return nil
}

// ListFiles returns the filenames of a corpus.
func (s *KnowledgeService) ListFiles(ctx context.Context, corpus domain.Corpus) ([]string, error) {
	if !corpus.Valid() {
		return nil, apperrors.NewValidationError("corpus must be kb or faq", map[string]any{"corpus": corpus})
	}
	names, err := s.corpus.ListFilenames(ctx, corpus)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return names, nil
}

// Ask answers a question from the knowledge base.
func (s *KnowledgeService) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperrors.NewValidationError("question is required", map[string]any{"field": "question"})
	}

	chunks, err := s.corpus.ListChunks(ctx, domain.CorpusKB)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	docs := make([]string, len(chunks))
	for i, c := range chunks {
		docs[i] = c.Content
	}
	matches := knowledge.Rank(question, docs, askContextChunks)
	if len(matches) == 0 {
		return NoAnswerText, nil
	}
	if s.chat == nil {
		return docs[matches[0].Index], nil
	}

	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = docs[m.Index]
	}
	resp, err := s.chat.Chat(ctx, llm.Request{Messages: []llm.Message{
		{Role: "system", Content: "You are a helpful support assistant. Use ONLY this context: " + strings.Join(parts, " ") + ". If the answer isn't there, say you don't know."},
		{Role: "user", Content: question},
	}})
	if err != nil {
		s.logger.Error("knowledge answer failed", zap.Error(err))
		return "", apperrors.NewDomainError("AI_UNAVAILABLE", "the assistant is unavailable, try again later", http.StatusBadGateway, nil)
	}
	return strings.TrimSpace(resp.Content), nil
}

// FAQs returns every FAQ entry in file and insertion order.
func (s *KnowledgeService) FAQs(ctx context.Context) ([]domain.FAQEntry, error) {
	chunks, err := s.corpus.ListChunks(ctx, domain.CorpusFAQ)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	entries := make([]domain.FAQEntry, 0, len(chunks))
	for _, c := range chunks {
		entries = append(entries, knowledge.ParseFAQ(c.Content))
	}
	return entries, nil
}

// SearchFAQs returns the best matching FAQ entries.
func (s *KnowledgeService) SearchFAQs(ctx context.Context, query string) ([]domain.FAQEntry, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minFAQQueryLen {
		return nil, apperrors.NewValidationError("query must be at least 2 characters", map[string]any{"field": "q"})
	}
	entries, err := s.FAQs(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]string, len(entries))
	for i, e := range entries {
		docs[i] = e.Question + " " + e.Answer
	}
	matches := knowledge.Rank(query, docs, faqSearchLimit)
	result := make([]domain.FAQEntry, 0, len(matches))
	for _, m := range matches {
		result = append(result, entries[m.Index])
	}
	return result, nil
}

func (s *KnowledgeService) publish(ctx context.Context, actor *domain.User, payload events.CorpusUpdatedPayload) {
	if s.dispatcher == nil {
		return
	}
	var who events.Actor
	if actor != nil {
		who = userActor(actor)
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventCorpusUpdated, 0, who, payload))
}
