package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/dannyrandall/moviesdb/internal/config"
	"github.com/dannyrandall/moviesdb/internal/copilot"
	"github.com/dannyrandall/moviesdb/internal/moviequeue"
	"github.com/dannyrandall/moviesdb/internal/otel"
	otelotel "go.opentelemetry.io/otel"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("unable to load .env: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("error processing: %s", err)
	}
}

func run(ctx context.Context) error {
	queueURL := copilot.QueueURI()
	if queueURL == "" {
		return errors.New("COPILOT_QUEUE_URI is not set")
	}

	addMovieURL, ok := os.LookupEnv("MOVIES_API_URL")
	if !ok {
		addMovieURL = copilot.ServiceURL("movies", 5000) + "/add-movie"
	}

	tracing := os.Getenv("TRACING")

	svcName := copilot.ServiceName("movies-processor")
	if tracing == config.TracingOtel {
		shutdown, err := otel.SetupTracer(ctx, svcName)
		if err != nil {
			return fmt.Errorf("setup otel tracer: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("error flushing traces: %s", err)
			}
		}()
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	otel.InstrumentAWS(tracing, &cfg)

	q := &moviequeue.Queue{
		SQS:             sqs.NewFromConfig(cfg),
		HTTP:            otel.HTTPClient(tracing),
		Tracer:          otelotel.Tracer(""),
		Log:             log.Default(),
		QueueName:       fmt.Sprintf("%s-%s-createMovie", copilot.App(), copilot.Environment()),
		QueueURL:        queueURL,
		AddMovieURL:     addMovieURL,
		WaitTimeSeconds: 20,
	}

	log.Printf("Waiting for events from %s", q.QueueURL)

	if err := q.ReceiveAndProcess(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive and process: %w", err)
	}
	log.Printf("Stopped receiving from %s", q.QueueURL)
	return nil
}
