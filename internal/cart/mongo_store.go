package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sessionTTL is how long an untouched session cart survives before the
// TTL index reaps it. Carts are session-scoped by design; the index just
// enforces it for sessions that never reach Clear.
const sessionTTL = 7 * 24 * time.Hour

type sessionDoc struct {
	ID        string    `bson:"_id,omitempty"`
	SessionID string    `bson:"session_id"`
	Lines     []Line    `bson:"lines"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{collection: db.Collection("session_carts")}
}

func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// CreateIndexes sets up the unique session index and the TTL reaper.
// Call once at startup.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(sessionTTL / time.Second)),
		},
	}

	_, err := db.Collection("session_carts").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func (m *mongoStore) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	doc, err := m.getDoc(ctx, sessionID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Lines, nil
}

func (m *mongoStore) GetLine(ctx context.Context, sessionID string, productID int64) (Line, error) {
	doc, err := m.getDoc(ctx, sessionID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Line{}, ErrLineNotFound
	}
	if err != nil {
		return Line{}, err
	}
	for _, line := range doc.Lines {
		if line.ProductID == productID {
			return line, nil
		}
	}
	return Line{}, ErrLineNotFound
}

func (m *mongoStore) AddLine(ctx context.Context, sessionID string, line Line) error {
	if line.Quantity < 1 {
		return ErrBadQuantity
	}

	now := time.Now()
	filter := bson.M{"session_id": sessionID}

	doc, err := m.getDoc(ctx, sessionID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		_, err = m.collection.InsertOne(ctx, sessionDoc{
			SessionID: sessionID,
			Lines:     []Line{line},
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to create session cart: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	exists := false
	for _, existing := range doc.Lines {
		if existing.ProductID == line.ProductID {
			exists = true
			break
		}
	}

	if exists {
		// Replace the line in place; no quantity merging.
		update := bson.M{
			"$set": bson.M{
				"lines.$[elem].quantity": line.Quantity,
				"updated_at":             now,
			},
		}
		arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"elem.product_id": line.ProductID},
			},
		})

		if _, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters); err != nil {
			return fmt.Errorf("failed to replace line: %w", err)
		}
		return nil
	}

	update := bson.M{
		"$push": bson.M{"lines": line},
		"$set":  bson.M{"updated_at": now},
	}
	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to add line: %w", err)
	}
	return nil
}

func (m *mongoStore) IncrementQuantity(ctx context.Context, sessionID string, productID int64, delta int) error {
	filter := bson.M{
		"session_id":       sessionID,
		"lines.product_id": productID,
	}

	update := bson.M{
		"$inc": bson.M{"lines.$[elem].quantity": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}

	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product_id": productID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to increment quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (m *mongoStore) DecrementQuantity(ctx context.Context, sessionID string, productID int64, delta int) error {
	line, err := m.GetLine(ctx, sessionID, productID)
	if err != nil {
		return err
	}

	if line.Quantity-delta > 0 {
		return m.IncrementQuantity(ctx, sessionID, productID, -delta)
	}
	return m.RemoveLine(ctx, sessionID, productID)
}

func (m *mongoStore) RemoveLine(ctx context.Context, sessionID string, productID int64) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$pull": bson.M{
			"lines": bson.M{"product_id": productID},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove line: %w", err)
	}
	return nil
}

func (m *mongoStore) Clear(ctx context.Context, sessionID string) error {
	filter := bson.M{"session_id": sessionID}

	if _, err := m.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to clear session cart: %w", err)
	}
	return nil
}

func (m *mongoStore) getDoc(ctx context.Context, sessionID string) (*sessionDoc, error) {
	var doc sessionDoc
	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get session cart: %w", err)
	}
	return &doc, nil
}
