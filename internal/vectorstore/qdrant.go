// Package vectorstore backs the memory similarity index with Qdrant over
// gRPC.
package vectorstore

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/congde/emochat/internal/memory"
)

// Config holds connection settings for a Qdrant instance.
type Config struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Collection string `json:"collection"`
}

// Index is a Qdrant-backed memory.VectorIndex bound to one collection.
type Index struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
	collection  string
}

// NewIndex dials the Qdrant gRPC endpoint and returns a ready Index.
func NewIndex(cfg Config) (*Index, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", addr, err)
	}
	if cfg.Collection == "" {
		cfg.Collection = "memories"
	}
	return &Index{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
		collection:  cfg.Collection,
	}, nil
}

// EnsureCollection creates the cosine-distance collection if it does not
// already exist.
func (x *Index) EnsureCollection(ctx context.Context, dimension uint64) error {
	_, err := x.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: x.collection})
	if err == nil {
		return nil
	}
	_, err = x.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", x.collection, err)
	}
	return nil
}

// Upsert inserts or updates one point keyed by record id.
func (x *Index) Upsert(ctx context.Context, id string, vector []float32, payload map[string]string) error {
	payloadMap := make(map[string]*pb.Value, len(payload))
	for k, v := range payload {
		payloadMap[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	_, err := x.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collection,
		Points: []*pb.PointStruct{
			{
				Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}}},
				Payload: payloadMap,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("upsert point %s: %w", id, err)
	}
	return nil
}

// Search runs nearest-neighbor search restricted by the metadata filter.
// Qdrant reports cosine similarity; hits carry cosine distance, so the
// score is converted on the way out.
func (x *Index) Search(ctx context.Context, vector []float32, limit int, filter memory.SearchFilter) ([]memory.IndexHit, error) {
	var conditions []*pb.Condition
	if filter.OwnerID != "" {
		conditions = append(conditions, matchCondition("owner_id", filter.OwnerID))
	}
	if filter.Emotion != "" {
		conditions = append(conditions, matchCondition("emotion", filter.Emotion))
	}
	var qf *pb.Filter
	if len(conditions) > 0 {
		qf = &pb.Filter{Must: conditions}
	}

	resp, err := x.points.Search(ctx, &pb.SearchPoints{
		CollectionName: x.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		Filter:         qf,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", x.collection, err)
	}

	hits := make([]memory.IndexHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, memory.IndexHit{
			ID:       r.Id.GetUuid(),
			Distance: 1 - float64(r.Score),
		})
	}
	return hits, nil
}

func matchCondition(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

// Close tears down the underlying gRPC connection.
func (x *Index) Close() error {
	return x.conn.Close()
}
