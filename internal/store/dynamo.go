package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dannyrandall/moviesdb/internal/movies"
)

// DynamoAPI is the subset of *dynamodb.Client used by Dynamo.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Dynamo stores movies in a DynamoDB table whose partition key is the
// string attribute movies.IDField.
type Dynamo struct {
	Client DynamoAPI
	Table  string
}

func (d *Dynamo) Insert(ctx context.Context, doc movies.Document) (string, error) {
	id := movies.NewID()
	item := doc.WithoutID()
	item[movies.IDField] = id

	av, err := attributevalue.MarshalMap(map[string]any(item))
	if err != nil {
		return "", fmt.Errorf("marshal movie: %w", err)
	}

	_, err = d.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(d.Table),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": movies.IDField},
	})
	if err != nil {
		return "", fmt.Errorf("put item: %w", err)
	}

	return id, nil
}

func (d *Dynamo) Get(ctx context.Context, id string) (movies.Document, error) {
	key, err := d.key(id)
	if err != nil {
		return nil, err
	}

	result, err := d.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.Table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	switch {
	case err != nil:
		return nil, fmt.Errorf("get item: %w", err)
	case result.Item == nil:
		return nil, ErrNotFound
	}

	return unmarshalMovie(result.Item)
}

func (d *Dynamo) UpdateName(ctx context.Context, id, name string) (movies.Document, error) {
	key, err := d.key(id)
	if err != nil {
		return nil, err
	}

	result, err := d.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.Table),
		Key:                 key,
		ConditionExpression: aws.String("attribute_exists(#id)"),
		UpdateExpression:    aws.String("SET #name = :name"),
		ExpressionAttributeNames: map[string]string{
			"#id":   movies.IDField,
			"#name": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: name},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	return unmarshalMovie(result.Attributes)
}

func (d *Dynamo) Delete(ctx context.Context, id string) (movies.Document, error) {
	key, err := d.key(id)
	if err != nil {
		return nil, err
	}

	result, err := d.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.Table),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	})
	switch {
	case err != nil:
		return nil, fmt.Errorf("delete item: %w", err)
	case len(result.Attributes) == 0:
		return nil, ErrNotFound
	}

	return unmarshalMovie(result.Attributes)
}

func (d *Dynamo) List(ctx context.Context) ([]movies.Document, error) {
	docs := []movies.Document{}
	p := dynamodb.NewScanPaginator(d.Client, &dynamodb.ScanInput{
		TableName:      aws.String(d.Table),
		ConsistentRead: aws.Bool(true),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		for _, item := range page.Items {
			doc, err := unmarshalMovie(item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	// Scan order follows partition hashes, not ids.
	sort.Slice(docs, func(i, j int) bool {
		return fmt.Sprint(docs[i][movies.IDField]) < fmt.Sprint(docs[j][movies.IDField])
	})
	return docs, nil
}

// Page scans the whole table. DynamoDB has no offset-based reads, so this is
// only suitable for small tables.
func (d *Dynamo) Page(ctx context.Context, skip, limit int64) ([]movies.Document, error) {
	docs, err := d.List(ctx)
	if err != nil {
		return nil, err
	}

	return pageOf(docs, skip, limit), nil
}

func (d *Dynamo) Ping(ctx context.Context) error {
	_, err := d.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.Table),
	})
	if err != nil {
		return fmt.Errorf("describe table: %w", err)
	}

	return nil
}

func (d *Dynamo) Close(context.Context) error { return nil }

func (d *Dynamo) key(id string) (map[string]types.AttributeValue, error) {
	id, err := parseKSUID(id)
	if err != nil {
		return nil, err
	}

	return map[string]types.AttributeValue{
		movies.IDField: &types.AttributeValueMemberS{Value: id},
	}, nil
}

func unmarshalMovie(item map[string]types.AttributeValue) (movies.Document, error) {
	var doc map[string]any
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal movie: %w", err)
	}

	return movies.Document(doc), nil
}
