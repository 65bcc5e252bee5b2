package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avstore/storefront/domain"
)

// MongoStore persists the cart table as one document per cart id, for
// deployments where the storefront keeps carts in a shared remote store
// instead of the local profile.
type MongoStore struct {
	collection *mongo.Collection
	cartID     string
}

type cartDocument struct {
	ID        string            `bson:"_id"`
	Items     []domain.CartLine `bson:"items"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

func NewMongoStore(db *mongo.Database, cartID string) *MongoStore {
	return &MongoStore{
		collection: db.Collection("carts"),
		cartID:     cartID,
	}
}

// ConnectMongo opens and pings a client for NewMongoStore.
func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client.Database(dbName), nil
}

func (m *MongoStore) Load(ctx context.Context) ([]domain.CartLine, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": m.cartID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return doc.Items, nil
}

func (m *MongoStore) Save(ctx context.Context, lines []domain.CartLine) error {
	doc := cartDocument{
		ID:        m.cartID,
		Items:     lines,
		UpdatedAt: time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": m.cartID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoStore) Clear(ctx context.Context) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": m.cartID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
