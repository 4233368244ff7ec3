package store

import (
	"context"
	"encoding/json"
	"os"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestMongoStore(t *testing.T) {
	uri, ok := os.LookupEnv("MONGODB_TEST_URI")
	if !ok {
		t.Skip("MONGODB_TEST_URI is not set")
	}

	ctx := context.Background()
	m, err := OpenMongo(ctx, uri, "movies_test", "movies_"+bson.NewObjectID().Hex())
	if err != nil {
		t.Fatalf("open mongo: %s", err)
	}
	t.Cleanup(func() {
		_ = m.coll.Drop(context.Background())
		_ = m.Close(context.Background())
	})

	runStoreTests(t, m, bson.NewObjectID().Hex())
}

func TestByObjectID(t *testing.T) {
	oid := bson.NewObjectID()
	filter, err := byObjectID(oid.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if filter[0].Value != oid {
		t.Fatalf("expected filter on %s, got %v", oid.Hex(), filter)
	}

	if _, err := byObjectID("zzz"); err == nil {
		t.Fatal("expected error for malformed id")
	}
}

func TestFromBSON(t *testing.T) {
	oid := bson.NewObjectID()
	doc := fromBSON(bson.M{"_id": oid, "name": "Inception"})
	if doc["_id"] != oid.Hex() {
		t.Fatalf("expected hex id %q, got %v", oid.Hex(), doc["_id"])
	}
	if doc.Name() != "Inception" {
		t.Fatalf("expected name to survive, got %v", doc)
	}
}

func TestFromBSONNested(t *testing.T) {
	oid := bson.NewObjectID()
	doc := fromBSON(bson.M{
		"_id":  oid,
		"name": "Inception",
		"cast": bson.A{"DiCaprio", "Page"},
		"meta": bson.M{"rating": 8.8, "tags": bson.A{"heist"}},
	})

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %s", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}

	want := map[string]any{
		"_id":  oid.Hex(),
		"name": "Inception",
		"cast": []any{"DiCaprio", "Page"},
		"meta": map[string]any{"rating": 8.8, "tags": []any{"heist"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
