// Package qdrant adapts the Qdrant vector database to the pipeline's
// storage contracts. Vector math and persistence are entirely Qdrant's;
// this layer only shapes points and payloads.
package qdrant

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/chorus-cloud/chorussearch/internal/domain"
	"github.com/chorus-cloud/chorussearch/internal/metrics"
)

// pointNamespace seeds UUIDv5 point identifiers derived from the
// chorus business id. The same chorus always maps to the same point,
// which makes re-ingestion an overwrite rather than a duplicate.
var pointNamespace = uuid.MustParse("8f9e2c4a-1b3d-4e5f-9a7c-6d8b0a2e4f61")

// Config holds connection and collection settings.
type Config struct {
	Host           string
	Port           int
	APIKey         string
	Collection     string
	VectorSize     int
	ConnectRetries int
	RetryDelay     time.Duration
	Logger         *zap.Logger
}

// Store is a Qdrant-backed point store for one collection.
type Store struct {
	client     *qdrant.Client
	collection string
	vectorSize int
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger
	ready      atomic.Bool
}

// NewStore creates a Qdrant store. The connection is lazy; call
// Connect before serving traffic.
func NewStore(cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 5
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	return &Store{
		client:     client,
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
		retries:    retries,
		retryDelay: delay,
		logger:     logger,
	}, nil
}

// Connect verifies connectivity with bounded retries and fixed backoff,
// then ensures the collection exists. On success the store reports ready.
func (s *Store) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		s.logger.Info("connecting to qdrant",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.retries),
		)
		if _, lastErr = s.client.ListCollections(ctx); lastErr == nil {
			break
		}
		s.logger.Warn("qdrant connection failed", zap.Error(lastErr))
		if attempt < s.retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}
	}
	if lastErr != nil {
		return fmt.Errorf("connect after %d attempts: %w", s.retries, lastErr)
	}

	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	s.ready.Store(true)
	return nil
}

// Ready reports whether the store finished initialization.
func (s *Store) Ready() bool {
	return s.ready.Load()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.ListCollections(ctx); err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ensureCollection creates the collection if it does not exist.
// Creation is idempotent across restarts.
func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		s.logger.Info("collection exists", zap.String("collection", s.collection))
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(s.vectorSize),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.logger.Info("collection created",
		zap.String("collection", s.collection),
		zap.Int("vector_size", s.vectorSize),
	)
	return nil
}

// PointIDFor derives the deterministic point identifier for a chorus
// business id.
func PointIDFor(chorusID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chorusID)).String()
}

// Upsert writes a batch of points. Points for the same chorus id
// overwrite each other.
func (s *Store) Upsert(ctx context.Context, points []domain.StoredPoint) error {
	if !s.ready.Load() {
		return domain.ErrStoreNotReady
	}

	pts := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		id := p.PointID
		if id == "" {
			id = uuid.New().String()
		}
		pts[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":     p.Text,
				"metadata": p.Metadata,
			}),
		}
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         pts,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w: %w", len(pts), err, domain.ErrStoreUnavailable)
	}
	return nil
}

// Search returns the k nearest neighbors for the query vector.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredPoint, error) {
	if !s.ready.Load() {
		return nil, domain.ErrStoreNotReady
	}

	limit := uint64(k)
	start := time.Now()
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		metrics.VectorSearchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("query: %w: %w", err, domain.ErrStoreUnavailable)
	}
	metrics.VectorSearchDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	out := make([]domain.ScoredPoint, 0, len(resp))
	for _, r := range resp {
		out = append(out, scoredPointFromQdrant(r))
	}
	return out, nil
}

// ScrollAll pages through every point in the collection, payload only.
// Used by the duplicate-cleanup maintenance path.
func (s *Store) ScrollAll(ctx context.Context) ([]RawPoint, error) {
	limit := uint32(256)
	var all []RawPoint
	seen := make(map[string]struct{})
	var offset *qdrant.PointId

	for {
		resp, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll: %w: %w", err, domain.ErrStoreUnavailable)
		}
		if len(resp) == 0 {
			break
		}

		for _, p := range resp {
			rp := rawPointFromQdrant(p)
			if _, dup := seen[rp.PointID]; dup {
				continue
			}
			seen[rp.PointID] = struct{}{}
			all = append(all, rp)
		}

		if len(resp) < int(limit) {
			break
		}
		offset = resp[len(resp)-1].Id
	}
	return all, nil
}

// DeletePoints removes the given point ids.
func (s *Store) DeletePoints(ctx context.Context, pointIDs []string) error {
	if len(pointIDs) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, len(pointIDs))
	for i, id := range pointIDs {
		ids[i] = qdrant.NewIDUUID(id)
	}
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(ids...),
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("delete %d points: %w: %w", len(ids), err, domain.ErrStoreUnavailable)
	}
	return nil
}

// ProbeInfo is the result of a diagnostic write probe.
type ProbeInfo struct {
	Collections []string `json:"collections"`
	ProbePoint  string   `json:"probe_point"`
}

// Probe performs a trivial write to verify store connectivity: lists
// collections and upserts a zero-vector point with a throwaway id.
func (s *Store) Probe(ctx context.Context) (ProbeInfo, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("list collections: %w", err)
	}

	probeID := uuid.New().String()
	wait := true
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(probeID),
			Vectors: qdrant.NewVectors(make([]float32, s.vectorSize)...),
			Payload: qdrant.NewValueMap(map[string]any{"test": true}),
		}},
		Wait: &wait,
	})
	if err != nil {
		return ProbeInfo{Collections: collections}, fmt.Errorf("probe upsert: %w", err)
	}

	return ProbeInfo{Collections: collections, ProbePoint: probeID}, nil
}
