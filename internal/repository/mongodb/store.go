// Package mongodb implements the repository.Store contract on MongoDB. Item
// documents are keyed by name and carry a version counter; transactional
// writes commit through a conditional update on the version read, so a lost
// race surfaces as repository.ErrConflict instead of a lost update.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
)

const (
	itemsCollection = "inventory"
	logCollection   = "log"
)

// Store is the MongoDB-backed repository.Store implementation.
type Store struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger

	logMu  sync.Mutex
	lastTS time.Time
}

// NewStore connects to MongoDB and verifies the connection with a ping.
func NewStore(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{client: client, dbName: dbName, logger: logger}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) items() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(itemsCollection)
}

func (s *Store) logs() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(logCollection)
}

// itemDoc is the persisted shape of an item. Price is stored as its exact
// decimal string; version backs the optimistic concurrency check.
type itemDoc struct {
	Name    string `bson:"_id"`
	Price   string `bson:"price"`
	Popular bool   `bson:"popular"`
	Qty     int64  `bson:"qty"`
	Version uint64 `bson:"version"`
}

func docFromItem(name string, it models.Item, version uint64) itemDoc {
	return itemDoc{
		Name:    name,
		Price:   it.Price.String(),
		Popular: it.Popular,
		Qty:     it.Qty,
		Version: version,
	}
}

func (d itemDoc) toItem() (models.Item, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return models.Item{}, fmt.Errorf("decode price for %q: %w", d.Name, err)
	}
	return models.Item{Name: d.Name, Price: price, Popular: d.Popular, Qty: d.Qty}, nil
}

func queryFilter(filter models.Filter) bson.M {
	switch filter {
	case models.FilterOutOfStock:
		return bson.M{"qty": 0}
	case models.FilterPopularLowStock:
		return bson.M{"popular": true, "qty": bson.M{"$lt": models.LowStockThreshold}}
	default:
		return bson.M{}
	}
}

// unavailable wraps driver-level failures as repository.ErrUnavailable so
// callers can distinguish connectivity loss from domain outcomes.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, repository.ErrUnavailable, err)
}

// GetItem fetches a single item by name.
func (s *Store) GetItem(ctx context.Context, name string) (models.Item, bool, error) {
	it, _, ok, err := s.getVersioned(ctx, name)
	return it, ok, err
}

func (s *Store) getVersioned(ctx context.Context, name string) (models.Item, uint64, bool, error) {
	var doc itemDoc
	err := s.items().FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Item{}, 0, false, nil
	}
	if err != nil {
		return models.Item{}, 0, false, unavailable("get item", err)
	}
	it, err := doc.toItem()
	if err != nil {
		return models.Item{}, 0, false, err
	}
	return it, doc.Version, true, nil
}

// PutItem writes an item with last-write-wins semantics, preserving the
// version counter when the record already exists.
func (s *Store) PutItem(ctx context.Context, name string, item models.Item) error {
	_, version, _, err := s.getVersioned(ctx, name)
	if err != nil {
		return err
	}
	doc := docFromItem(name, item, version+1)
	opts := options.Replace().SetUpsert(true)
	if _, err := s.items().ReplaceOne(ctx, bson.M{"_id": name}, doc, opts); err != nil {
		return unavailable("put item", err)
	}
	return nil
}

// DeleteItem removes an item record if present.
func (s *Store) DeleteItem(ctx context.Context, name string) error {
	if _, err := s.items().DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return unavailable("delete item", err)
	}
	return nil
}

// RunQuery executes the filter and returns a lazy cursor over the driver's.
func (s *Store) RunQuery(ctx context.Context, filter models.Filter) (repository.Cursor, error) {
	cur, err := s.items().Find(ctx, queryFilter(filter))
	if err != nil {
		return nil, unavailable("run query", err)
	}
	return &mongoCursor{cur: cur}, nil
}

// AppendLog appends an audit entry with a store-assigned timestamp,
// monotonically non-decreasing per adapter instance.
func (s *Store) AppendLog(ctx context.Context, message string) error {
	s.logMu.Lock()
	ts := time.Now().UTC()
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts
	s.logMu.Unlock()

	entry := bson.M{"message": message, "timestamp": ts}
	if _, err := s.logs().InsertOne(ctx, entry); err != nil {
		return unavailable("append log", err)
	}
	return nil
}

// ReadLog returns all audit entries in timestamp order.
func (s *Store) ReadLog(ctx context.Context) ([]models.LogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.logs().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, unavailable("read log", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var entries []models.LogEntry
	for cur.Next(ctx) {
		var doc struct {
			Message   string    `bson:"message"`
			Timestamp time.Time `bson:"timestamp"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode log entry: %w", err)
		}
		entries = append(entries, models.LogEntry{Message: doc.Message, Timestamp: doc.Timestamp})
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("read log", err)
	}
	return entries, nil
}

type mongoCursor struct {
	cur     *mongo.Cursor
	current models.Item
	err     error
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next(ctx) {
		c.err = c.cur.Err()
		return false
	}
	var doc itemDoc
	if err := c.cur.Decode(&doc); err != nil {
		c.err = fmt.Errorf("decode item: %w", err)
		return false
	}
	it, err := doc.toItem()
	if err != nil {
		c.err = err
		return false
	}
	c.current = it
	return true
}

func (c *mongoCursor) Item() models.Item { return c.current }
func (c *mongoCursor) Err() error        { return c.err }

func (c *mongoCursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}
