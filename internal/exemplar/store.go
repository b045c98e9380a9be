package exemplar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrEmptyRecord      = errors.New("record missing story id or excerpt")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert exemplar")
	ErrSearchFailed     = errors.New("failed to search exemplars")
)

// Record is one stored exemplar: an excerpt of a validated script together
// with the embedding of its source story.
type Record struct {
	StoryID   string
	Excerpt   string
	Embedding []float32
}

// Match is one search hit.
type Match struct {
	StoryID string
	Excerpt string
	Score   float32
}

// VectorStore abstracts the exemplar vector index so the retriever can be
// tested without a running Milvus server.
type VectorStore interface {
	Insert(ctx context.Context, rec Record) error
	Search(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Close() error
}

// MilvusConfig configures the Milvus-backed store.
type MilvusConfig struct {
	Address        string
	CollectionName string
	Dimension      int

	// HNSW index parameters.
	M              int
	EfConstruction int
}

// DefaultMilvusConfig returns defaults for a local Milvus instance.
func DefaultMilvusConfig(address string) MilvusConfig {
	if address == "" {
		address = "localhost:19530"
	}
	return MilvusConfig{
		Address:        address,
		CollectionName: "scriptforge_exemplars",
		Dimension:      1536, // text-embedding-3-small
		M:              16,
		EfConstruction: 256,
	}
}

// MilvusStore implements VectorStore using Milvus with an HNSW/COSINE index.
type MilvusStore struct {
	client client.Client
	config MilvusConfig
}

// NewMilvusStore connects to Milvus and ensures the exemplar collection
// exists.
func NewMilvusStore(ctx context.Context, config MilvusConfig) (*MilvusStore, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &MilvusStore{client: c, config: config}
	if err := store.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return store, nil
}

func (m *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.config.CollectionName,
		AutoID:         true,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     true,
			},
			{
				Name:     "story_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "excerpt",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.config.Dimension),
				},
			},
			{
				Name:     "created_at",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

// Insert stores one exemplar record.
func (m *MilvusStore) Insert(ctx context.Context, rec Record) error {
	if rec.StoryID == "" || rec.Excerpt == "" {
		return ErrEmptyRecord
	}
	if len(rec.Embedding) != m.config.Dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(rec.Embedding))
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("story_id", []string{rec.StoryID}),
		entity.NewColumnVarChar("excerpt", []string{rec.Excerpt}),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, [][]float32{rec.Embedding}),
		entity.NewColumnInt64("created_at", []int64{time.Now().Unix()}),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush data: %w", err)
	}
	return nil
}

// Search returns the topK most similar exemplars to the query vector.
func (m *MilvusStore) Search(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if len(vector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(vector))
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil,
		"",
		[]string{"story_id", "excerpt"},
		[]entity.Vector{entity.FloatVector(vector)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if len(results) == 0 {
		return []Match{}, nil
	}

	matches := make([]Match, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		match := Match{Score: results[0].Scores[i]}
		for _, field := range results[0].Fields {
			switch field.Name() {
			case "story_id":
				match.StoryID = field.(*entity.ColumnVarChar).Data()[i]
			case "excerpt":
				match.Excerpt = field.(*entity.ColumnVarChar).Data()[i]
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Close releases the Milvus connection.
func (m *MilvusStore) Close() error {
	return m.client.Close()
}
