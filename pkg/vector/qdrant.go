package vector

import (
	"context"
	"fmt"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/andrew/topic-rag/pkg/errs"
	"github.com/andrew/topic-rag/pkg/models"
)

// payload field names inside each stored point
const (
	payloadText = "text"
	payloadURL  = "url"
)

// QdrantStore implements Store on a Qdrant server over gRPC, one Qdrant
// collection per topic.
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
}

// NewQdrantStore connects to Qdrant at host:port.
func NewQdrantStore(host string, port int) (*QdrantStore, error) {
	connectStr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.Dial(connectStr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	return &QdrantStore{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
	}, nil
}

// EnsureCollection creates the collection when it is not already present.
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	createReq := &qdrantclient.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	}
	if _, err := s.collections.Create(ctx, createReq); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	return nil
}

// DeleteCollection removes the whole collection.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("collection %q: %w", name, errs.ErrNotFound)
	}

	if _, err := s.collections.Delete(ctx, &qdrantclient.DeleteCollection{CollectionName: name}); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", name, err)
	}
	return nil
}

// Upsert writes entries as points keyed by their content-hash UUID ids.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrantclient.PointStruct, 0, len(entries))
	for _, entry := range entries {
		points = append(points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: entry.ID},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: entry.Vector},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				payloadText: {Kind: &qdrantclient.Value_StringValue{StringValue: entry.Text}},
				payloadURL:  {Kind: &qdrantclient.Value_StringValue{StringValue: entry.URL}},
			},
		})
	}

	upsertReq := &qdrantclient.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	}
	if _, err := s.points.Upsert(ctx, upsertReq); err != nil {
		return mapNotFound(fmt.Errorf("failed to upsert points into %q: %w", collection, err), err)
	}
	return nil
}

// Search returns the limit nearest entries with their payloads.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]models.ScoredEntry, error) {
	searchReq := &qdrantclient.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	}

	resp, err := s.points.Search(ctx, searchReq)
	if err != nil {
		return nil, mapNotFound(fmt.Errorf("search in %q failed: %w", collection, err), err)
	}

	results := make([]models.ScoredEntry, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		results = append(results, models.ScoredEntry{
			Entry: models.IndexEntry{
				ID:   point.GetId().GetUuid(),
				Text: point.GetPayload()[payloadText].GetStringValue(),
				URL:  point.GetPayload()[payloadURL].GetStringValue(),
			},
			Score: point.GetScore(),
		})
	}
	return results, nil
}

// FindByURL scrolls the collection for points whose url payload matches.
func (s *QdrantStore) FindByURL(ctx context.Context, collection, url string) ([]string, error) {
	filter := &qdrantclient.Filter{
		Must: []*qdrantclient.Condition{{
			ConditionOneOf: &qdrantclient.Condition_Field{
				Field: &qdrantclient.FieldCondition{
					Key: payloadURL,
					Match: &qdrantclient.Match{
						MatchValue: &qdrantclient.Match_Keyword{Keyword: url},
					},
				},
			},
		}},
	}

	var ids []string
	pageSize := uint32(256)
	var offset *qdrantclient.PointId
	for {
		scrollReq := &qdrantclient.ScrollPoints{
			CollectionName: collection,
			Filter:         filter,
			Limit:          &pageSize,
			Offset:         offset,
		}
		resp, err := s.points.Scroll(ctx, scrollReq)
		if err != nil {
			return nil, mapNotFound(fmt.Errorf("scroll in %q failed: %w", collection, err), err)
		}
		for _, point := range resp.GetResult() {
			ids = append(ids, point.GetId().GetUuid())
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			return ids, nil
		}
	}
}

// DeletePoints removes the points with the given ids.
func (s *QdrantStore) DeletePoints(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIds := make([]*qdrantclient.PointId, 0, len(ids))
	for _, id := range ids {
		pointIds = append(pointIds, &qdrantclient.PointId{
			PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: id},
		})
	}

	deleteReq := &qdrantclient.DeletePoints{
		CollectionName: collection,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Points{
				Points: &qdrantclient.PointsIdsList{Ids: pointIds},
			},
		},
	}
	if _, err := s.points.Delete(ctx, deleteReq); err != nil {
		return mapNotFound(fmt.Errorf("failed to delete points from %q: %w", collection, err), err)
	}
	return nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

func (s *QdrantStore) collectionExists(ctx context.Context, name string) (bool, error) {
	resp, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, col := range resp.GetCollections() {
		if col.GetName() == name {
			return true, nil
		}
	}
	return false, nil
}

// mapNotFound folds a gRPC NotFound status into the shared sentinel so
// callers can treat a missing collection uniformly across store backends.
func mapNotFound(wrapped, cause error) error {
	if status.Code(cause) == codes.NotFound {
		return fmt.Errorf("%w: %v", errs.ErrNotFound, wrapped)
	}
	return wrapped
}
