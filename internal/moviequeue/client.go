// Package moviequeue feeds movies published to an SQS queue into the movies
// API.
package moviequeue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/dannyrandall/moviesdb/internal/movies"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// SQSAPI is the subset of *sqs.Client used by Queue.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Queue posts every message body to AddMovieURL and deletes the message
// once the API has stored it. Messages that fail stay on the queue.
type Queue struct {
	SQS    SQSAPI
	HTTP   *http.Client
	Tracer trace.Tracer
	Log    *log.Logger

	AddMovieURL string
	QueueName   string
	QueueURL    string

	// WaitTimeSeconds is the long poll duration of each receive.
	WaitTimeSeconds int32

	// Backoff paces retries after a failed batch. Defaults to an
	// exponential backoff that never gives up.
	Backoff backoff.BackOff
}

// ReceiveAndProcess runs until ctx is done, waiting between batches that
// fail.
func (q *Queue) ReceiveAndProcess(ctx context.Context) error {
	b := q.Backoff
	if b == nil {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = 0
		b = eb
	}
	b.Reset()

	for {
		err := q.ReceiveOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			b.Reset()
			continue
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		q.Log.Printf("error: %s, retrying in %s", err, wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// ReceiveOnce receives one batch of messages and processes each of them.
func (q *Queue) ReceiveOnce(ctx context.Context) error {
	ctx, span := q.Tracer.Start(ctx, "recvAndProcess",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(semconv.MessagingSystemKey.String("AmazonSQS")),
		trace.WithAttributes(semconv.MessagingDestinationKey.String(q.QueueName)),
		trace.WithAttributes(semconv.MessagingDestinationKindQueue))
	defer span.End()

	msgs, err := q.receiveMessages(ctx)
	if err != nil {
		return spanErrorf(span, "receive messages: %w", err)
	}

	var errs []error
	for _, msg := range msgs {
		if err := q.processMessage(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("process message %q: %w", aws.ToString(msg.MessageId), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return spanErrorf(span, "%w", err)
	}

	return nil
}

func spanErrorf(span trace.Span, format string, a ...any) error {
	err := fmt.Errorf(format, a...)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (q *Queue) receiveMessages(ctx context.Context) ([]types.Message, error) {
	res, err := q.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.QueueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     q.WaitTimeSeconds,
	})
	if err != nil {
		return nil, err
	}

	return res.Messages, nil
}

func (q *Queue) processMessage(ctx context.Context, msg types.Message) error {
	ctx, span := q.Tracer.Start(ctx, "processMessage", trace.WithAttributes(semconv.MessagingMessageIDKey.String(aws.ToString(msg.MessageId))))
	defer span.End()

	var movie movies.Document
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &movie); err != nil {
		return spanErrorf(span, "unmarshal movie: %w", err)
	}
	if movie == nil {
		return spanErrorf(span, "unmarshal movie: body is not a JSON object")
	}

	id, err := q.addMovie(ctx, movie)
	if err != nil {
		return spanErrorf(span, "add movie: %w", err)
	}
	q.Log.Printf("Added movie %q from message %q", id, aws.ToString(msg.MessageId))

	if err := q.deleteMessage(ctx, msg.ReceiptHandle); err != nil {
		return spanErrorf(span, "delete message: %w", err)
	}

	return nil
}

func (q *Queue) addMovie(ctx context.Context, movie movies.Document) (string, error) {
	data, err := json.Marshal(movie)
	if err != nil {
		return "", fmt.Errorf("encode movie: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.AddMovieURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("bad response: status code %v: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return created.ID, nil
}

func (q *Queue) deleteMessage(ctx context.Context, receiptHandle *string) error {
	_, err := q.SQS.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.QueueURL),
		ReceiptHandle: receiptHandle,
	})

	return err
}
