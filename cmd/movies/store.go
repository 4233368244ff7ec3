package main

import (
	"context"
	"fmt"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dannyrandall/moviesdb/internal/config"
	"github.com/dannyrandall/moviesdb/internal/otel"
	"github.com/dannyrandall/moviesdb/internal/store"
)

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		log.Printf("Using %s.%s as the MongoDB movies collection", cfg.MongoDatabase, cfg.MongoCollection)
		return store.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case config.BackendDynamo:
		log.Printf("Using %q as the DynamoDB movies table", cfg.DynamoTable)

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		otel.InstrumentAWS(cfg.Tracing, &awsCfg)

		return &store.Dynamo{
			Client: dynamodb.NewFromConfig(awsCfg),
			Table:  cfg.DynamoTable,
		}, nil
	default:
		log.Printf("Using an in-memory movies store")
		return store.NewMemory(), nil
	}
}
