package domain

// Corpus names one of the admin-managed document collections.
type Corpus string

const (
	CorpusKB  Corpus = "kb"
	CorpusFAQ Corpus = "faq"
)

// Valid reports whether c is a known corpus.
func (c Corpus) Valid() bool {
	return c == CorpusKB || c == CorpusFAQ
}

// Chunk is a stored slice of an uploaded corpus file.
type Chunk struct {
	Corpus   Corpus
	Filename string
	Seq      int
	Content  string
}

// FAQEntry is a question/answer pair parsed from the FAQ corpus.
type FAQEntry struct {
	Question string
	Answer   string
}
