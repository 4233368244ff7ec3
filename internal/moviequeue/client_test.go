package moviequeue

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/dannyrandall/moviesdb/internal/handlers"
	"github.com/dannyrandall/moviesdb/internal/store"
	"go.opentelemetry.io/otel/trace"
)

type fakeSQS struct {
	mu       sync.Mutex
	messages []types.Message
	deleted  []string

	// receiveErr is returned by every ReceiveMessage call when set.
	receiveErr error
	receives   int
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.receives++
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}

	n := int(params.MaxNumberOfMessages)
	if n > len(f.messages) {
		n = len(f.messages)
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.messages[:n]}
	f.messages = f.messages[n:]
	return out, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func message(id, body string) types.Message {
	return types.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("receipt-" + id),
		Body:          aws.String(body),
	}
}

func newQueue(fake *fakeSQS, url string) *Queue {
	return &Queue{
		SQS:         fake,
		HTTP:        http.DefaultClient,
		Tracer:      trace.NewNoopTracerProvider().Tracer(""),
		Log:         log.New(io.Discard, "", 0),
		AddMovieURL: url,
		QueueName:   "movies-test-createMovie",
		QueueURL:    "https://sqs.us-west-2.amazonaws.com/123456789012/movies-test-createMovie",
	}
}

func TestReceiveOnce(t *testing.T) {
	s := store.NewMemory()
	api := httptest.NewServer(handlers.New(s, handlers.Options{LogOutput: io.Discard}))
	defer api.Close()

	fake := &fakeSQS{messages: []types.Message{
		message("1", `{"name":"Inception","year":2010}`),
		message("2", `not json`),
		message("3", `["array"]`),
		message("4", `{"name":"Heat"}`),
	}}

	q := newQueue(fake, api.URL+"/add-movie")
	if err := q.ReceiveOnce(context.Background()); err == nil {
		t.Fatal("expected malformed messages to be reported")
	}

	docs, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 movies to be added, got %d", len(docs))
	}

	if len(fake.deleted) != 2 || fake.deleted[0] != "receipt-1" || fake.deleted[1] != "receipt-4" {
		t.Fatalf("expected only stored messages to be deleted, got %v", fake.deleted)
	}
}

func TestReceiveOnceAPIFailure(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"result":"failure","error":"Internal Server Error"}`, http.StatusInternalServerError)
	}))
	defer api.Close()

	fake := &fakeSQS{messages: []types.Message{message("1", `{"name":"Inception"}`)}}
	q := newQueue(fake, api.URL+"/add-movie")
	if err := q.ReceiveOnce(context.Background()); err == nil {
		t.Fatal("expected error from failing api")
	}
	if len(fake.deleted) != 0 {
		t.Fatalf("expected message to stay on the queue, got deletes %v", fake.deleted)
	}
}

func TestReceiveAndProcessStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := newQueue(&fakeSQS{}, "http://127.0.0.1:0/add-movie")
	if err := q.ReceiveAndProcess(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReceiveAndProcessBacksOff(t *testing.T) {
	fake := &fakeSQS{receiveErr: errors.New("AccessDenied")}
	q := newQueue(fake, "http://127.0.0.1:0/add-movie")
	q.Backoff = backoff.NewConstantBackOff(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := q.ReceiveAndProcess(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.receives < 2 || fake.receives > 10 {
		t.Fatalf("expected a handful of paced receives, got %d", fake.receives)
	}
}

func TestReceiveAndProcessGivesUp(t *testing.T) {
	fake := &fakeSQS{receiveErr: errors.New("queue does not exist")}
	q := newQueue(fake, "http://127.0.0.1:0/add-movie")
	q.Backoff = backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)

	if err := q.ReceiveAndProcess(context.Background()); err == nil {
		t.Fatal("expected the receive error once retries are exhausted")
	}
	if fake.receives != 3 {
		t.Fatalf("expected 3 receives, got %d", fake.receives)
	}
}
