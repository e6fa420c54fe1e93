package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/repos"
	"github.com/yungbote/mediarag-backend/internal/types"
)

type SearchRequest struct {
	Query         string      `json:"query"`
	UserID        uuid.UUID   `json:"user_id"`
	DocumentIDs   []uuid.UUID `json:"document_ids,omitempty"`
	MediaClasses  []string    `json:"content_types,omitempty"`
	MinSimilarity float64     `json:"min_similarity,omitempty"`
	Limit         int         `json:"limit,omitempty"`
}

type SearchResponse struct {
	Results  []repos.SearchHit `json:"results"`
	Degraded bool              `json:"degraded,omitempty"`
}

// SearchService runs the dual-embedding retrieval: the query is embedded
// into both spaces, both vector columns are searched in parallel, and hits
// are merged per chunk on max similarity. If one embedding path fails the
// other still serves results; only a double failure is an error.
type SearchService interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

type searchService struct {
	log       *logger.Logger
	embedder  EmbeddingProvider
	chunkRepo repos.ChunkRepo
}

func NewSearchService(log *logger.Logger, embedder EmbeddingProvider, chunkRepo repos.ChunkRepo) SearchService {
	return &searchService{
		log:       log.With("service", "SearchService"),
		embedder:  embedder,
		chunkRepo: chunkRepo,
	}
}

func (s *searchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, NewPipelineError(ClassValidation, "empty search query", nil)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	var textVec, mmVec types.Vector
	var textErr, mmErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		textVec, textErr = s.embedder.EmbedText(gctx, query)
		return nil
	})
	g.Go(func() error {
		mmVec, mmErr = s.embedder.EmbedQueryMultimodal(gctx, query)
		return nil
	})
	_ = g.Wait()

	if textErr != nil && mmErr != nil {
		return nil, NewPipelineError(ClassEmbedding,
			fmt.Sprintf("both query embeddings failed: text=%v multimodal=%v", textErr, mmErr), nil)
	}
	degraded := textErr != nil || mmErr != nil
	if degraded {
		s.log.Warn("Query embedding degraded to single path",
			"text_error", textErr, "multimodal_error", mmErr)
	}

	filter := repos.SearchFilter{
		UserID:        req.UserID,
		DocumentIDs:   req.DocumentIDs,
		MediaClasses:  req.MediaClasses,
		MinSimilarity: req.MinSimilarity,
		Limit:         limit,
	}

	var textHits, mmHits []repos.SearchHit
	sg, sctx := errgroup.WithContext(ctx)
	if textVec != nil {
		sg.Go(func() error {
			hits, err := s.chunkRepo.SearchByTextEmbedding(sctx, textVec, filter)
			if err != nil {
				return err
			}
			textHits = hits
			return nil
		})
	}
	if mmVec != nil {
		sg.Go(func() error {
			hits, err := s.chunkRepo.SearchByMultimodalEmbedding(sctx, mmVec, filter)
			if err != nil {
				return err
			}
			mmHits = hits
			return nil
		})
	}
	if err := sg.Wait(); err != nil {
		return nil, NewPipelineError(ClassStorage, "vector search failed", err)
	}

	merged := MergeHits(textHits, mmHits, limit)
	return &SearchResponse{Results: merged, Degraded: degraded}, nil
}

// MergeHits combines per-column result sets, keeping the max similarity per
// chunk, ordered by similarity descending.
func MergeHits(a, b []repos.SearchHit, limit int) []repos.SearchHit {
	best := make(map[uuid.UUID]repos.SearchHit, len(a)+len(b))
	for _, hit := range a {
		best[hit.ID] = hit
	}
	for _, hit := range b {
		if prev, ok := best[hit.ID]; !ok || hit.Similarity > prev.Similarity {
			best[hit.ID] = hit
		}
	}

	out := make([]repos.SearchHit, 0, len(best))
	for _, hit := range best {
		out = append(out, hit)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
