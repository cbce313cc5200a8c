package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoDatabase = "sheet2pdf"
	mongoCollection      = "conversions"
)

// MongoStore keeps conversion history in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type conversionDoc struct {
	ID        string    `bson:"_id"`
	InputKey  string    `bson:"input_key"`
	OutputKey string    `bson:"output_key"`
	Email     string    `bson:"email"`
	Status    string    `bson:"status"`
	Error     string    `bson:"error"`
	Sheets    int       `bson:"sheets"`
	Pages     int       `bson:"pages"`
	Rows      int       `bson:"row_count"`
	Submitted time.Time `bson:"submitted_at"`
	Started   time.Time `bson:"started_at"`
	Finished  time.Time `bson:"finished_at"`
}

// OpenMongo connects to uri. The database is taken from the URI path and
// defaults to "sheet2pdf".
func OpenMongo(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(mongoDatabase(uri)).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "submitted_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create mongo index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

func mongoDatabase(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultMongoDatabase
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Record(ctx context.Context, c Conversion) error {
	if _, err := s.coll.InsertOne(ctx, toDoc(c)); err != nil {
		return fmt.Errorf("record conversion %s: %w", c.ID, err)
	}
	return nil
}

func (s *MongoStore) UpdateStatus(ctx context.Context, c Conversion) error {
	d := toDoc(c)
	res, err := s.coll.UpdateByID(ctx, c.ID, bson.M{"$set": bson.M{
		"output_key":  d.OutputKey,
		"status":      d.Status,
		"error":       d.Error,
		"sheets":      d.Sheets,
		"pages":       d.Pages,
		"row_count":   d.Rows,
		"started_at":  d.Started,
		"finished_at": d.Finished,
	}})
	if err != nil {
		return fmt.Errorf("update conversion %s: %w", c.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update conversion %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Conversion, error) {
	var d conversionDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get conversion %s: %w", id, err)
	}
	c := fromDoc(d)
	return &c, nil
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]Conversion, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer cursor.Close(ctx)

	var out []Conversion
	for cursor.Next(ctx) {
		var d conversionDoc
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("list conversions: %w", err)
		}
		out = append(out, fromDoc(d))
	}
	return out, cursor.Err()
}

// BSON dates carry milliseconds, so times are truncated the same way the SQL
// store does.
func toDoc(c Conversion) conversionDoc {
	return conversionDoc{
		ID:        c.ID,
		InputKey:  c.InputKey,
		OutputKey: c.OutputKey,
		Email:     c.Email,
		Status:    c.Status,
		Error:     c.Error,
		Sheets:    c.Sheets,
		Pages:     c.Pages,
		Rows:      c.Rows,
		Submitted: fromMillis(toMillis(c.Submitted)),
		Started:   fromMillis(toMillis(c.Started)),
		Finished:  fromMillis(toMillis(c.Finished)),
	}
}

func fromDoc(d conversionDoc) Conversion {
	return Conversion{
		ID:        d.ID,
		InputKey:  d.InputKey,
		OutputKey: d.OutputKey,
		Email:     d.Email,
		Status:    d.Status,
		Error:     d.Error,
		Sheets:    d.Sheets,
		Pages:     d.Pages,
		Rows:      d.Rows,
		Submitted: utcOrZero(d.Submitted),
		Started:   utcOrZero(d.Started),
		Finished:  utcOrZero(d.Finished),
	}
}

// A zero time.Time written to BSON comes back as year 1 UTC; a negative
// millisecond count is treated as unset.
func utcOrZero(t time.Time) time.Time {
	if t.IsZero() || t.UnixMilli() <= 0 {
		return time.Time{}
	}
	return t.UTC()
}
