package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chorus-cloud/chorussearch/internal/domain"
	"github.com/chorus-cloud/chorussearch/internal/metrics"
	"github.com/chorus-cloud/chorussearch/internal/repository/qdrant"
)

// Service implements the ingestion path: validate a batch of choruses,
// embed each text, and persist them as stored points in one upsert.
// Ingestion is all-or-nothing per batch; a failure on any item aborts
// the whole request without a partial write.
type Service struct {
	store  PointUpserter
	embed  Embedder
	logger *zap.Logger
}

func New(store PointUpserter, embed Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embed: embed, logger: logger}
}

// AddDocuments embeds and upserts a batch of choruses, returning the
// number of points written. Duplicate business identifiers within the
// batch collapse to the last occurrence; point identifiers are derived
// deterministically from the business id, so re-ingesting a chorus
// overwrites its previous point instead of duplicating it.
func (s *Service) AddDocuments(ctx context.Context, choruses []domain.Chorus) (int, error) {
	if !s.store.Ready() {
		return 0, domain.ErrStoreNotReady
	}
	if len(choruses) == 0 {
		return 0, fmt.Errorf("%w: empty document batch", domain.ErrBadRequest)
	}

	batch := collapseBatch(choruses)

	points := make([]domain.StoredPoint, 0, len(batch))
	for _, c := range batch {
		vector, err := s.embed.Embed(ctx, c.Text)
		if err != nil {
			s.logger.Error("embedding failed during ingestion",
				zap.String("chorus_id", c.ID),
				zap.Error(err),
			)
			return 0, fmt.Errorf("%w: embed chorus %q: %v", domain.ErrIngestFailed, c.ID, err)
		}
		points = append(points, domain.StoredPoint{
			PointID:  qdrant.PointIDFor(c.ID),
			Vector:   vector,
			Text:     c.Text,
			Metadata: c.Metadata(),
		})
	}

	if err := s.store.Upsert(ctx, points); err != nil {
		s.logger.Error("upsert failed during ingestion",
			zap.Int("points", len(points)),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: %v", domain.ErrIngestFailed, err)
	}

	metrics.DocumentsIngestedTotal.Add(float64(len(points)))
	s.logger.Info("documents ingested",
		zap.Int("received", len(choruses)),
		zap.Int("written", len(points)),
	)
	return len(points), nil
}

// collapseBatch validates each chorus and collapses in-batch duplicates
// of the same business identifier, keeping the last occurrence. Order
// of first appearance is preserved.
func collapseBatch(choruses []domain.Chorus) []domain.Chorus {
	index := make(map[string]int, len(choruses))
	out := make([]domain.Chorus, 0, len(choruses))
	for i, c := range choruses {
		if strings.TrimSpace(c.ID) == "" {
			// No business id to key on; synthesize a positional one so
			// the record is still ingested.
			c.ID = fmt.Sprintf("unknown_%d", i)
		}
		if at, seen := index[c.ID]; seen {
			out[at] = c
			continue
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}
