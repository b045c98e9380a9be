package exemplar

import (
	"context"
	"fmt"
	"sort"
)

// Retriever combines an embedder and a vector store into the high-level
// operations the engine uses: index a validated script excerpt, and fetch
// excerpts similar to a new story.
type Retriever struct {
	embedder Embedder
	store    VectorStore
}

// NewRetriever wires an embedder to a vector store.
func NewRetriever(embedder Embedder, store VectorStore) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	return &Retriever{embedder: embedder, store: store}, nil
}

// Index stores an excerpt of a validated script keyed by the embedding of
// its source story text.
func (r *Retriever) Index(ctx context.Context, storyID, storyText, excerpt string) error {
	if storyID == "" || excerpt == "" {
		return ErrEmptyRecord
	}

	vectors, err := r.embedder.Embed(ctx, []string{storyText})
	if err != nil {
		return fmt.Errorf("failed to embed story: %w", err)
	}

	return r.store.Insert(ctx, Record{
		StoryID:   storyID,
		Excerpt:   excerpt,
		Embedding: vectors[0],
	})
}

// Retrieve returns the excerpts of the topK stored scripts whose source
// stories are most similar to the given story text, best match first.
func (r *Retriever) Retrieve(ctx context.Context, storyText string, topK int) ([]string, error) {
	if storyText == "" {
		return nil, fmt.Errorf("story text cannot be empty")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	vectors, err := r.embedder.Embed(ctx, []string{storyText})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search exemplars: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	excerpts := make([]string, 0, len(matches))
	for _, m := range matches {
		excerpts = append(excerpts, m.Excerpt)
	}
	return excerpts, nil
}
