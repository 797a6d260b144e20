// Package idempotency makes POST handlers safe to retry. The first request
// for a key runs the handler and stores its JSON response in DynamoDB; a
// repeat with the same body replays the stored response.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/thermabackend/internal/clock"
	"github.com/thermabackend/internal/logging"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	ErrInProgress  = errors.New("request is already being processed")
	ErrKeyConflict = errors.New("idempotency key conflict: same key used for different request")
)

// DynamoDBAPI is the subset of the DynamoDB client used here.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type IdempotencyService struct {
	client    DynamoDBAPI
	tableName string
	ttl       time.Duration
	clock     clock.Clock
	logger    *logging.Logger
}

type IdempotencyRecord struct {
	Key         string    `dynamodbav:"key"`
	UserID      string    `dynamodbav:"user_id"`
	RequestHash string    `dynamodbav:"request_hash"`
	Response    string    `dynamodbav:"response"`
	Status      string    `dynamodbav:"status"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	ExpiresAt   time.Time `dynamodbav:"expires_at"`
	TTL         int64     `dynamodbav:"ttl"`
}

func NewIdempotencyService(ctx context.Context, tableName string, ttl time.Duration, logger *logging.Logger) (*IdempotencyService, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithAPI(dynamodb.NewFromConfig(cfg), tableName, ttl, clock.NewReal(), logger), nil
}

// NewWithAPI builds a service over any DynamoDBAPI implementation.
func NewWithAPI(api DynamoDBAPI, tableName string, ttl time.Duration, c clock.Clock, logger *logging.Logger) *IdempotencyService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &IdempotencyService{client: api, tableName: tableName, ttl: ttl, clock: c, logger: logger}
}

// GenerateIdempotencyKey derives the storage key. A client-supplied key wins;
// otherwise the request body itself identifies the request.
func (s *IdempotencyService) GenerateIdempotencyKey(userID, endpoint, clientKey, requestBody string) string {
	id := requestBody
	if clientKey != "" {
		id = "client:" + clientKey
	}
	return hashHex(fmt.Sprintf("%s:%s:%s", userID, endpoint, id))
}

// GenerateRequestHash hashes the request body for comparison.
func (s *IdempotencyService) GenerateRequestHash(requestBody string) string {
	return hashHex(requestBody)
}

func hashHex(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// CheckIdempotency returns the live record for key, or nil.
func (s *IdempotencyService) CheckIdempotency(ctx context.Context, key string) (*IdempotencyRecord, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var record IdempotencyRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}

	// DynamoDB TTL deletion is lazy, so expiry is checked here too.
	if s.clock.Now().After(record.ExpiresAt) {
		if err := s.DeleteIdempotencyRecord(ctx, key); err != nil {
			s.logger.Warn(ctx, "failed to delete expired idempotency record", zap.Error(err))
		}
		return nil, nil
	}

	return &record, nil
}

// StoreIdempotencyRecord inserts record unless the key already exists.
func (s *IdempotencyService) StoreIdempotencyRecord(ctx context.Context, record *IdempotencyRecord) error {
	record.TTL = record.ExpiresAt.Unix()

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#key)"),
		ExpressionAttributeNames: map[string]string{
			"#key": "key",
		},
	})
	if err != nil {
		var conditional *types.ConditionalCheckFailedException
		if errors.As(err, &conditional) {
			return ErrInProgress
		}
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

// UpdateIdempotencyRecord sets the stored response and status.
func (s *IdempotencyService) UpdateIdempotencyRecord(ctx context.Context, key, response, status string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              keyAttr(key),
		UpdateExpression: aws.String("SET #response = :response, #status = :status, #updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#response":   "response",
			"#status":     "status",
			"#updated_at": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":response":   &types.AttributeValueMemberS{Value: response},
			":status":     &types.AttributeValueMemberS{Value: status},
			":updated_at": &types.AttributeValueMemberS{Value: s.clock.Now().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update idempotency record: %w", err)
	}
	return nil
}

// DeleteIdempotencyRecord removes the record for key.
func (s *IdempotencyService) DeleteIdempotencyRecord(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       keyAttr(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete idempotency record: %w", err)
	}
	return nil
}

// ProcessIdempotentRequest runs handler at most once per key and returns the
// JSON-encoded response, replaying the stored one for repeats. A failed
// attempt releases the key so the client can retry.
func (s *IdempotencyService) ProcessIdempotentRequest(
	ctx context.Context,
	userID, endpoint, clientKey, requestBody string,
	handler func() (interface{}, error),
) (json.RawMessage, error) {
	key := s.GenerateIdempotencyKey(userID, endpoint, clientKey, requestBody)
	requestHash := s.GenerateRequestHash(requestBody)

	existing, err := s.CheckIdempotency(ctx, key)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.RequestHash != requestHash {
			return nil, ErrKeyConflict
		}
		switch existing.Status {
		case StatusCompleted:
			s.logger.Debug(ctx, "replaying idempotent response", zap.String("endpoint", endpoint))
			return json.RawMessage(existing.Response), nil
		case StatusPending:
			return nil, ErrInProgress
		default:
			if err := s.DeleteIdempotencyRecord(ctx, key); err != nil {
				return nil, err
			}
		}
	}

	now := s.clock.Now()
	record := &IdempotencyRecord{
		Key:         key,
		UserID:      userID,
		RequestHash: requestHash,
		Status:      StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.StoreIdempotencyRecord(ctx, record); err != nil {
		return nil, err
	}

	response, err := handler()
	if err != nil {
		if uerr := s.UpdateIdempotencyRecord(ctx, key, fmt.Sprintf("error: %v", err), StatusFailed); uerr != nil {
			s.logger.Warn(ctx, "failed to mark idempotency record failed", zap.Error(uerr))
		}
		return nil, err
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		_ = s.UpdateIdempotencyRecord(ctx, key, "error: failed to marshal response", StatusFailed)
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := s.UpdateIdempotencyRecord(ctx, key, string(responseJSON), StatusCompleted); err != nil {
		s.logger.Warn(ctx, "failed to update idempotency record", zap.Error(err))
	}

	return responseJSON, nil
}

func keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}
