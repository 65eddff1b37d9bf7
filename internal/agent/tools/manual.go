package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/uptrace/bun"
	"google.golang.org/genai"

	errx "github.com/Chative-medical-agent/server/internal/core/error"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

// NoManualResults is returned as tool output when retrieval finds nothing.
const NoManualResults = "說明書中目前查無此錯誤代碼的具體描述，請確認代碼是否輸入正確或諮詢客服。"

const shortQueryRunes = 10

// ManualSearcher retrieves device-manual passages for a free-text query.
type ManualSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Embedder turns text into a vector in the same space the manual was indexed in.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PassageStore returns the k passages nearest to a vector.
type PassageStore interface {
	Nearest(ctx context.Context, vec []float32, k int) ([]string, error)
}

// AugmentManualQuery rewrites short queries that look like error codes so
// they carry enough context to land near the troubleshooting sections.
func AugmentManualQuery(q string) string {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) >= shortQueryRunes || !strings.ContainsFunc(q, unicode.IsDigit) {
		return q
	}
	return fmt.Sprintf("血壓計 錯誤代碼 %s 的意義與排除故障方法", q)
}

// ManualSearch is the retrieval pipeline: augment, embed, nearest passages.
type ManualSearch struct {
	embedder Embedder
	store    PassageStore
	topK     int
}

func NewManualSearch(embedder Embedder, store PassageStore, topK int) *ManualSearch {
	if topK <= 0 {
		topK = 8
	}
	return &ManualSearch{embedder: embedder, store: store, topK: topK}
}

func (m *ManualSearch) Search(ctx context.Context, query string) (string, error) {
	q := AugmentManualQuery(query)
	start := time.Now()

	vec, err := m.embedder.Embed(ctx, q)
	if err != nil {
		return "", fmt.Errorf("embed manual query: %w", err)
	}
	passages, err := m.store.Nearest(ctx, vec, m.topK)
	if err != nil {
		return "", fmt.Errorf("manual nearest passages: %w", err)
	}

	logx.Info().
		Str("query", q).
		Int("results", len(passages)).
		Dur("latency", time.Since(start)).
		Msg("Manual retrieval done")

	if len(passages) == 0 {
		return NoManualResults, nil
	}
	return strings.Join(passages, "\n\n"), nil
}

// UnavailableManual stands in when no vector store is configured. Every
// search fails with ErrToolUnavailable so the device expert degrades.
type UnavailableManual struct {
	Reason string
}

func (u UnavailableManual) Search(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: %s", errx.ErrToolUnavailable, u.Reason)
}

// GenAIEmbedder embeds text with a Gemini embedding model.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

func NewGenAIEmbedder(client *genai.Client, model string) *GenAIEmbedder {
	return &GenAIEmbedder{client: client, model: model}
}

func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("%w: empty embedding", errx.ErrToolUnavailable)
	}
	return resp.Embeddings[0].Values, nil
}

// PGVectorStore queries the langchain-compatible pgvector tables.
type PGVectorStore struct {
	db         bun.IDB
	collection string
}

func NewPGVectorStore(db bun.IDB, collection string) *PGVectorStore {
	return &PGVectorStore{db: db, collection: collection}
}

const nearestPassagesQuery = `
SELECT e.document
FROM langchain_pg_embedding AS e
JOIN langchain_pg_collection AS c ON c.uuid = e.collection_id
WHERE c.name = ?
ORDER BY e.embedding <=> ?::vector
LIMIT ?`

func (s *PGVectorStore) Nearest(ctx context.Context, vec []float32, k int) ([]string, error) {
	var docs []string
	if err := s.db.NewRaw(nearestPassagesQuery, s.collection, vectorLiteral(vec), k).Scan(ctx, &docs); err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return docs, nil
}

// vectorLiteral renders a pgvector text literal, e.g. "[0.1,0.2]".
func vectorLiteral(vec []float32) string {
	var sb strings.Builder
	sb.Grow(len(vec) * 10)
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
