package export

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/jsphweid/chordcoach/constants"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const maxUnprocessedRetries = 5

type summaryItem struct {
	PK                string  `dynamodbav:"PK"`
	SK                string  `dynamodbav:"SK"`
	Difficulty        string  `dynamodbav:"Difficulty"`
	ExportedAt        string  `dynamodbav:"ExportedAt"`
	Total             int     `dynamodbav:"Total"`
	Correct           int     `dynamodbav:"Correct"`
	Skipped           int     `dynamodbav:"Skipped"`
	Score             int     `dynamodbav:"Score"`
	MaxStreak         int     `dynamodbav:"MaxStreak"`
	Accuracy          float64 `dynamodbav:"Accuracy"`
	AverageConfidence float64 `dynamodbav:"AverageConfidence"`
	ElapsedMs         int64   `dynamodbav:"ElapsedMs"`
}

type attemptItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	TaskID     string  `dynamodbav:"TaskID"`
	Target     string  `dynamodbav:"Target,omitempty"`
	Detected   string  `dynamodbav:"Detected,omitempty"`
	Inversion  int     `dynamodbav:"Inversion"`
	Correct    bool    `dynamodbav:"Correct"`
	Skipped    bool    `dynamodbav:"Skipped"`
	Confidence float64 `dynamodbav:"Confidence"`
	Timestamp  string  `dynamodbav:"Timestamp"`
	ElapsedMs  int64   `dynamodbav:"ElapsedMs"`
}

// DynamoExporter stores a session as one summary item plus one item per
// attempt, all under the partition key SESSION#<id>.
type DynamoExporter struct {
	Client dynamodbiface.DynamoDBAPI
	Table  string
}

// NewDynamoClient connects to DynamoDB. A non-empty endpoint points the
// client at a local instance.
func NewDynamoClient(endpoint, region string) (*dynamodb.DynamoDB, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	sess, err := awssession.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create a new DynamoDB session")
	}
	return dynamodb.New(sess), nil
}

func partitionKey(id string) string {
	return "SESSION#" + id
}

func (d DynamoExporter) items(r Report) ([]map[string]*dynamodb.AttributeValue, error) {
	pk := partitionKey(r.SessionID)
	summary := summaryItem{
		PK:                pk,
		SK:                "SUMMARY",
		Difficulty:        r.Difficulty,
		ExportedAt:        r.ExportedAt.UTC().Format(time.RFC3339),
		Total:             r.Stats.Total,
		Correct:           r.Stats.Correct,
		Skipped:           r.Stats.Skipped,
		Score:             r.Stats.Score,
		MaxStreak:         r.Stats.MaxStreak,
		Accuracy:          r.Stats.Accuracy,
		AverageConfidence: r.Stats.AverageConfidence,
		ElapsedMs:         r.Stats.Elapsed.Milliseconds(),
	}
	item, err := dynamodbattribute.MarshalMap(summary)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling session summary")
	}
	res := []map[string]*dynamodb.AttributeValue{item}

	for i, a := range r.Attempts {
		ai := attemptItem{
			PK:         pk,
			SK:         fmt.Sprintf("ATTEMPT#%04d", i),
			TaskID:     a.TaskID,
			Correct:    a.Correct,
			Skipped:    a.Skipped,
			Confidence: a.Confidence,
			Timestamp:  a.Timestamp.UTC().Format(time.RFC3339Nano),
			ElapsedMs:  a.Elapsed.Milliseconds(),
		}
		if task, ok := r.task(a.TaskID); ok {
			ai.Target = task.Root + " " + task.TemplateName
		}
		if a.Detected != nil {
			ai.Detected = a.Detected.ChordRoot + " " + a.Detected.TemplateName
			ai.Inversion = a.Detected.Inversion
		}
		item, err := dynamodbattribute.MarshalMap(ai)
		if err != nil {
			return nil, errors.Wrapf(err, "marshalling attempt %d", i)
		}
		res = append(res, item)
	}
	return res, nil
}

// Export writes in batches of 25, retrying unprocessed items a few times.
func (d DynamoExporter) Export(ctx context.Context, r Report) error {
	if d.Table == "" {
		return errors.New("no DynamoDB table configured")
	}
	items, err := d.items(r)
	if err != nil {
		return err
	}

	for start := 0; start < len(items); start += constants.MaxBatchWriteItems {
		end := start + constants.MaxBatchWriteItems
		if end > len(items) {
			end = len(items)
		}
		requests := make([]*dynamodb.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			requests = append(requests, &dynamodb.WriteRequest{
				PutRequest: &dynamodb.PutRequest{Item: item},
			})
		}
		if err := d.writeBatch(ctx, requests); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"session": r.SessionID,
		"table":   d.Table,
		"items":   len(items),
	}).Info("session exported")
	return nil
}

func (d DynamoExporter) writeBatch(ctx context.Context, requests []*dynamodb.WriteRequest) error {
	pending := map[string][]*dynamodb.WriteRequest{d.Table: requests}
	for attempt := 0; len(pending[d.Table]) > 0; attempt++ {
		if attempt > maxUnprocessedRetries {
			return errors.Errorf("%d items still unprocessed after %d retries", len(pending[d.Table]), maxUnprocessedRetries)
		}
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*50) * time.Millisecond):
			}
		}
		out, err := d.Client.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return errors.Wrap(err, "error from DynamoDB")
		}
		pending = out.UnprocessedItems
	}
	return nil
}
