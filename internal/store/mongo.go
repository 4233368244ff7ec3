package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dannyrandall/moviesdb/internal/movies"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Mongo keeps one client (and its connection pool) for the lifetime of the
// process. Every operation runs inside its own session, which is ended when
// the operation returns.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func OpenMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1).
			SetStrict(true).
			SetDeprecationErrors(true)).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (m *Mongo) Insert(ctx context.Context, doc movies.Document) (string, error) {
	var id string
	err := m.client.UseSession(ctx, func(ctx context.Context) error {
		res, err := m.coll.InsertOne(ctx, bson.M(doc.WithoutID()))
		if err != nil {
			return fmt.Errorf("insert one: %w", err)
		}
		if !res.Acknowledged {
			return ErrNotAcknowledged
		}

		oid, ok := res.InsertedID.(bson.ObjectID)
		if !ok {
			return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
		}
		id = oid.Hex()
		return nil
	})

	return id, err
}

func (m *Mongo) Get(ctx context.Context, id string) (movies.Document, error) {
	filter, err := byObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc movies.Document
	err = m.client.UseSession(ctx, func(ctx context.Context) error {
		var out bson.M
		if err := m.coll.FindOne(ctx, filter).Decode(&out); err != nil {
			return notFound("find one", err)
		}
		doc = fromBSON(out)
		return nil
	})

	return doc, err
}

func (m *Mongo) UpdateName(ctx context.Context, id, name string) (movies.Document, error) {
	filter, err := byObjectID(id)
	if err != nil {
		return nil, err
	}

	update := bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: name}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc movies.Document
	err = m.client.UseSession(ctx, func(ctx context.Context) error {
		var out bson.M
		if err := m.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
			return notFound("find one and update", err)
		}
		doc = fromBSON(out)
		return nil
	})

	return doc, err
}

func (m *Mongo) Delete(ctx context.Context, id string) (movies.Document, error) {
	filter, err := byObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc movies.Document
	err = m.client.UseSession(ctx, func(ctx context.Context) error {
		var out bson.M
		if err := m.coll.FindOneAndDelete(ctx, filter).Decode(&out); err != nil {
			return notFound("find one and delete", err)
		}
		doc = fromBSON(out)
		return nil
	})

	return doc, err
}

func (m *Mongo) List(ctx context.Context) ([]movies.Document, error) {
	return m.find(ctx, options.Find().SetSort(byIDAscending))
}

func (m *Mongo) Page(ctx context.Context, skip, limit int64) ([]movies.Document, error) {
	return m.find(ctx, options.Find().SetSort(byIDAscending).SetSkip(skip).SetLimit(limit))
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

var byIDAscending = bson.D{{Key: movies.IDField, Value: 1}}

func (m *Mongo) find(ctx context.Context, opts *options.FindOptionsBuilder) ([]movies.Document, error) {
	docs := []movies.Document{}
	err := m.client.UseSession(ctx, func(ctx context.Context) error {
		cur, err := m.coll.Find(ctx, bson.D{}, opts)
		if err != nil {
			return fmt.Errorf("find: %w", err)
		}

		var out []bson.M
		if err := cur.All(ctx, &out); err != nil {
			return fmt.Errorf("read cursor: %w", err)
		}
		for _, raw := range out {
			docs = append(docs, fromBSON(raw))
		}
		return nil
	})

	return docs, err
}

func byObjectID(id string) (bson.D, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidID, id, err)
	}

	return bson.D{{Key: movies.IDField, Value: oid}}, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}

	return fmt.Errorf("%s: %w", op, err)
}

// fromBSON converts a decoded document, rendering the ObjectID as its hex
// string so it round-trips through the id query parameter.
func fromBSON(m bson.M) movies.Document {
	doc := movies.Document(m)
	if oid, ok := doc[movies.IDField].(bson.ObjectID); ok {
		doc[movies.IDField] = oid.Hex()
	}

	return doc
}
