// Package mongo stores entities in one collection per kind. MongoDB has no
// integer sequences, so keys come from a snowflake node.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sm8ta/webike_rental_microservice/internal/config"
	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"

	"github.com/bwmarrin/snowflake"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ ports.EntityStore = (*DocumentRepository)(nil)

type DocumentRepository struct {
	db   *mongo.Database
	node *snowflake.Node
}

type record struct {
	ID   int64    `bson:"_id"`
	Data bson.Raw `bson:"data"`
}

type writeRecord struct {
	ID   int64  `bson:"_id"`
	Data bson.D `bson:"data"`
}

func Connect(ctx context.Context, cfg *config.Mongo) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func NewDocumentRepository(client *mongo.Client, database string, nodeID int64) (*DocumentRepository, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &DocumentRepository{db: client.Database(database), node: node}, nil
}

// EnsureIndexes creates the unique renter_id index on users.
func (r *DocumentRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection(domain.KindUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "data.renter_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return wrapError(err)
}

func (r *DocumentRepository) collection(kind domain.Kind) *mongo.Collection {
	return r.db.Collection(string(kind))
}

func (r *DocumentRepository) Get(ctx context.Context, kind domain.Kind, id int64) (*domain.Document, error) {
	var rec record
	err := r.collection(kind).FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, wrapError(err)
	}
	return toDocument(kind, rec)
}

func (r *DocumentRepository) Put(ctx context.Context, doc *domain.Document) error {
	var data bson.D
	if err := bson.UnmarshalExtJSON(doc.Data, false, &data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	id := doc.ID
	if id == 0 {
		id = r.node.Generate().Int64()
	}
	_, err := r.collection(doc.Kind).ReplaceOne(ctx,
		bson.M{"_id": id},
		writeRecord{ID: id, Data: data},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return wrapError(err)
	}
	doc.ID = id
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, kind domain.Kind, id int64) error {
	res, err := r.collection(kind).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

func (r *DocumentRepository) Query(ctx context.Context, q domain.Query) ([]*domain.Document, bool, error) {
	filter := bson.M{}
	if q.Filter != nil {
		filter["data."+q.Filter.Field] = q.Filter.Value
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetSkip(int64(q.Offset))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit) + 1)
	}

	cursor, err := r.collection(q.Kind).Find(ctx, filter, opts)
	if err != nil {
		return nil, false, wrapError(err)
	}
	var recs []record
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, false, wrapError(err)
	}

	more := false
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[:q.Limit]
		more = true
	}

	docs := make([]*domain.Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := toDocument(q.Kind, rec)
		if err != nil {
			return nil, false, err
		}
		docs = append(docs, doc)
	}
	return docs, more, nil
}

func toDocument(kind domain.Kind, rec record) (*domain.Document, error) {
	data, err := bson.MarshalExtJSON(rec.Data, false, false)
	if err != nil {
		return nil, fmt.Errorf("encode %s %d: %w", kind, rec.ID, err)
	}
	return &domain.Document{Kind: kind, ID: rec.ID, Data: data}, nil
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
