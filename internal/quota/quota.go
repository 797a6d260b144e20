// Package quota enforces the per-user daily budget of generated journal
// insights. The limit depends on the subscription tier; usage lives in
// DynamoDB keyed by user and local calendar date.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/thermabackend/internal/models"
)

// DynamoDBAPI is the subset of the DynamoDB client used here.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Limits maps subscription tiers to daily insight allowances.
type Limits struct {
	Free    int
	Premium int
}

// For returns the daily allowance of tier. Unknown tiers get the free limit.
func (l Limits) For(tier models.SubscriptionTier) int {
	if tier.Premium() {
		return l.Premium
	}
	return l.Free
}

type InsightQuotaService struct {
	client    DynamoDBAPI
	tableName string
	limits    Limits
}

type UsageRecord struct {
	UserID     string `dynamodbav:"user_id"`
	Date       string `dynamodbav:"date"`
	Insights   int    `dynamodbav:"insights"`
	DailyLimit int    `dynamodbav:"daily_limit"`
	CreatedAt  string `dynamodbav:"created_at"`
	UpdatedAt  string `dynamodbav:"updated_at"`
	TTL        int64  `dynamodbav:"ttl"`
}

type QuotaResult struct {
	Allowed    bool   `json:"allowed"`
	Used       int    `json:"used"`
	Remaining  int    `json:"remaining"`
	DailyLimit int    `json:"daily_limit"`
	Reason     string `json:"reason,omitempty"`
}

func NewInsightQuotaService(ctx context.Context, tableName string, limits Limits) (*InsightQuotaService, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithAPI(dynamodb.NewFromConfig(cfg), tableName, limits), nil
}

// NewWithAPI builds a service over any DynamoDBAPI implementation.
func NewWithAPI(api DynamoDBAPI, tableName string, limits Limits) *InsightQuotaService {
	return &InsightQuotaService{client: api, tableName: tableName, limits: limits}
}

// CheckInsightQuota reports whether the user may generate one more insight on
// the calendar day of now.
func (s *InsightQuotaService) CheckInsightQuota(ctx context.Context, userID string, tier models.SubscriptionTier, now time.Time) (*QuotaResult, error) {
	record, err := s.getUsageRecord(ctx, userID, dateKey(now))
	if err != nil {
		return nil, fmt.Errorf("failed to get insight usage: %w", err)
	}

	used := 0
	if record != nil {
		used = record.Insights
	}
	limit := s.limits.For(tier)

	if used >= limit {
		return exhausted(used, limit), nil
	}
	return &QuotaResult{
		Allowed:    true,
		Used:       used,
		DailyLimit: limit,
		Remaining:  limit - used,
	}, nil
}

// ReserveInsight takes one insight from the user's allowance for the day of
// now. The increment is conditional on the stored count being below the
// limit, so concurrent requests cannot overspend. An exhausted allowance is
// reported as a result with Allowed false, not as an error.
func (s *InsightQuotaService) ReserveInsight(ctx context.Context, userID string, tier models.SubscriptionTier, now time.Time) (*QuotaResult, error) {
	limit := s.limits.For(tier)
	if limit <= 0 {
		return exhausted(0, limit), nil
	}

	stamp := now.UTC().Format(time.RFC3339)
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       usageKey(userID, dateKey(now)),
		UpdateExpression: aws.String(
			"ADD insights :one SET daily_limit = :limit, updated_at = :now, " +
				"created_at = if_not_exists(created_at, :now), #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_not_exists(insights) OR insights < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   &types.AttributeValueMemberN{Value: "1"},
			":limit": &types.AttributeValueMemberN{Value: strconv.Itoa(limit)},
			":now":   &types.AttributeValueMemberS{Value: stamp},
			// keep usage for 7 days
			":ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(7*24*time.Hour).Unix(), 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var conditional *types.ConditionalCheckFailedException
		if errors.As(err, &conditional) {
			return exhausted(limit, limit), nil
		}
		return nil, fmt.Errorf("failed to reserve insight: %w", err)
	}

	var updated struct {
		Insights int `dynamodbav:"insights"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal usage: %w", err)
	}
	return &QuotaResult{
		Allowed:    true,
		Used:       updated.Insights,
		DailyLimit: limit,
		Remaining:  max(0, limit-updated.Insights),
	}, nil
}

func exhausted(used, limit int) *QuotaResult {
	return &QuotaResult{
		Used:       used,
		DailyLimit: limit,
		Reason:     fmt.Sprintf("Daily insight limit reached (%d of %d). Upgrade to premium for more.", used, limit),
	}
}

func (s *InsightQuotaService) getUsageRecord(ctx context.Context, userID, date string) (*UsageRecord, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       usageKey(userID, date),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var record UsageRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}

// dateKey is the YYYY-MM-DD date of now in its own location, so the budget
// resets at the user's local midnight.
func dateKey(now time.Time) string {
	return now.Format("2006-01-02")
}

func usageKey(userID, date string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
		"date":    &types.AttributeValueMemberS{Value: date},
	}
}
