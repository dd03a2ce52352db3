package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avolkov/storefront/internal/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

// cartDoc is the persisted shape of a cart. Prices are stored as decimal
// strings so no binary float ever touches the money path.
type cartDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Items     []cartItemDoc      `bson:"items"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type cartItemDoc struct {
	ProductID string `bson:"product_id"`
	Name      string `bson:"name"`
	Price     string `bson:"price"`
	ImageURL  string `bson:"image_url"`
	Quantity  int    `bson:"quantity"`
}

func toCartDoc(cart *domain.Cart) cartDoc {
	items := make([]cartItemDoc, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = cartItemDoc{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price.String(),
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		}
	}
	return cartDoc{UserID: cart.UserID, Items: items, UpdatedAt: cart.UpdatedAt}
}

func (d cartDoc) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{
		UserID:    d.UserID,
		Items:     make([]domain.CartItem, len(d.Items)),
		UpdatedAt: d.UpdatedAt,
	}
	for i, item := range d.Items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price %q for product %s: %w", item.Price, item.ProductID, err)
		}
		cart.Items[i] = domain.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     price,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		}
	}
	return cart, nil
}

func (m *mongoCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	var doc cartDoc

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.toDomain()
}

// Upsert writes the full document. The item list is replaced wholesale and
// updated_at is stamped by the server, never by the client clock.
func (m *mongoCartRepository) Upsert(ctx context.Context, cart *domain.Cart) error {
	doc := toCartDoc(cart)

	filter := bson.M{"user_id": cart.UserID}
	update := bson.M{
		"$set":         bson.M{"user_id": doc.UserID, "items": doc.Items},
		"$currentDate": bson.M{"updated_at": true},
	}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

// changeEvent is the slice of a change stream document this feed cares
// about. Delete events carry no fullDocument, only the document key.
type changeEvent struct {
	OperationType string   `bson:"operationType"`
	FullDocument  *cartDoc `bson:"fullDocument"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
}

type changeStreamFeed struct {
	stream *mongo.ChangeStream
	events chan FeedEvent
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

func (f *changeStreamFeed) Events() <-chan FeedEvent { return f.events }

func (f *changeStreamFeed) Close() {
	f.once.Do(f.cancel)
	<-f.done
}

// Watch opens a push subscription on the user's cart document. The feed
// first delivers the current state (snapshot or absent), then every full
// replaced document as writes land. A stream failure is delivered as a
// single terminal error event and the channel is closed; re-subscribing is
// the caller's decision.
func (m *mongoCartRepository) Watch(ctx context.Context, userID string) (CartFeed, error) {
	// Deletes carry no fullDocument, so they pass the match unconditionally
	// and are filtered against the tracked document key below.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": []bson.M{
			{"fullDocument.user_id": userID},
			{"operationType": "delete"},
		}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := m.collection.Watch(streamCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open cart change stream: %w", err)
	}

	feed := &changeStreamFeed{
		stream: stream,
		events: make(chan FeedEvent, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go feed.run(streamCtx, m, userID)

	return feed, nil
}

func (f *changeStreamFeed) run(ctx context.Context, repo *mongoCartRepository, userID string) {
	defer close(f.done)
	defer close(f.events)
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = f.stream.Close(closeCtx)
	}()

	// Current state first, so subscribers never start blind. The raw
	// document is read here so the _id can seed delete tracking.
	var docID primitive.ObjectID

	var initial cartDoc
	err := repo.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&initial)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		f.deliver(ctx, FeedEvent{Absent: true})
	case err != nil:
		f.deliver(ctx, FeedEvent{Err: fmt.Errorf("failed to get cart: %w", err)})
		return
	default:
		current, convErr := initial.toDomain()
		if convErr != nil {
			f.deliver(ctx, FeedEvent{Err: convErr})
			return
		}
		docID = initial.ID
		f.deliver(ctx, FeedEvent{Snapshot: current})
	}

	for f.stream.Next(ctx) {
		var ev changeEvent
		if err := f.stream.Decode(&ev); err != nil {
			f.deliver(ctx, FeedEvent{Err: fmt.Errorf("failed to decode change event: %w", err)})
			return
		}

		if ev.OperationType == "delete" {
			if !docID.IsZero() && ev.DocumentKey.ID == docID {
				f.deliver(ctx, FeedEvent{Absent: true})
			}
			continue
		}

		if ev.FullDocument == nil {
			continue
		}
		docID = ev.DocumentKey.ID

		cart, err := ev.FullDocument.toDomain()
		if err != nil {
			f.deliver(ctx, FeedEvent{Err: err})
			return
		}
		f.deliver(ctx, FeedEvent{Snapshot: cart})
	}

	if err := f.stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		f.deliver(ctx, FeedEvent{Err: fmt.Errorf("cart change stream failed: %w", err)})
	}
}

func (f *changeStreamFeed) deliver(ctx context.Context, ev FeedEvent) {
	select {
	case f.events <- ev:
	case <-ctx.Done():
	}
}

// EnsureCartIndexes creates the one-cart-per-user constraint and an idle
// cart TTL. Safe to call on every startup.
func EnsureCartIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := db.Collection("carts").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	return nil
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}
