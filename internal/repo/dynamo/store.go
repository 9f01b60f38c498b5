package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	retry "github.com/avast/retry-go/v5"

	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
)

const (
	attrSourceID   = "source_id"
	attrSourceName = "source_name"
	attrVersion    = "version"
	attrUserID     = "user_id"
	attrActive     = "active"
	attrRevision   = "revision"

	SourceNameIndex = "source_name-index"
	UserIDIndex     = "user_id-index"

	delay    = 50 * time.Millisecond
	maxDelay = 1 * time.Second
	attempts = 5
)

var ErrTableNotActive = errors.New("status table is not active")

// RetryConfig bounds the optimistic update loop.
type RetryConfig struct {
	Delay    time.Duration
	MaxDelay time.Duration
	Attempts uint
}

// Store is the DynamoDB backed repo.StatusStore.
type Store struct {
	client dynamoClient
	table  string
	retry  RetryConfig
	now    func() time.Time
}

var _ repo.StatusStore = (*Store)(nil)

type Option func(*Store)

func WithRetry(cfg RetryConfig) Option {
	return func(s *Store) {
		if cfg.Attempts > 0 {
			s.retry = cfg
		}
	}
}

// NewStore creates a store on top of a DynamoDB client.
func NewStore(client *dynamodb.Client, table string, opts ...Option) *Store {
	return newStore(client, table, opts...)
}

func newStore(client dynamoClient, table string, opts ...Option) *Store {
	s := &Store{
		client: client,
		table:  table,
		retry:  RetryConfig{Delay: delay, MaxDelay: maxDelay, Attempts: attempts},
		now:    time.Now,
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

// Create writes a new record conditioned on the source id being unused.
func (s *Store) Create(ctx context.Context, submission *model.Submission) error {
	now := s.now().UTC()
	submission.Revision = 1
	submission.Updated = now

	if submission.SubmissionTime.IsZero() {
		submission.SubmissionTime = now
	}

	cond := expression.AttributeNotExists(expression.Name(attrSourceID))

	err := s.put(ctx, submission, cond)
	if err != nil {
		if isConditionalCheckFailed(err) {
			return repo.ErrAlreadyExists
		}

		return errs.Wrap(repo.ErrCreateResource, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, sourceID string) (*model.Submission, error) {
	key, err := attributevalue.MarshalMap(map[string]string{attrSourceID: sourceID})
	if err != nil {
		return nil, errs.Wrap(repo.ErrGetResource, err)
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errs.Wrap(repo.ErrGetResource, err)
	}

	if len(out.Item) == 0 {
		return nil, repo.ErrNotFound
	}

	sub := &model.Submission{}

	err = attributevalue.UnmarshalMap(out.Item, sub)
	if err != nil {
		return nil, errs.Wrap(repo.ErrGetResource, err)
	}

	return sub, nil
}

// Update is a read-modify-write guarded by the revision attribute. A failed
// condition means another writer won; the record is re-read and mutate is
// applied again.
func (s *Store) Update(
	ctx context.Context,
	sourceID string,
	mutate repo.MutateFunc,
) (*model.Submission, error) {
	var updated *model.Submission

	err := s.retrier().Do(func() error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		current, err := s.Get(ctx, sourceID)
		if err != nil {
			return err
		}

		expected := current.Revision

		err = mutate(current)
		if err != nil {
			return err
		}

		current.Revision = expected + 1
		current.Updated = s.now().UTC()

		cond := expression.Name(attrRevision).Equal(expression.Value(expected))

		err = s.put(ctx, current, cond)
		if err != nil {
			if isConditionalCheckFailed(err) {
				return repo.ErrConflict
			}

			return errs.Wrap(repo.ErrUpdateResource, err)
		}

		updated = current

		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, errs.Wrap(repo.ErrUpdateResource, err)
		}

		return nil, err
	}

	return updated, nil
}

func (s *Store) ListBySourceName(ctx context.Context, sourceName string) ([]*model.Submission, error) {
	keyCond := expression.Key(attrSourceName).Equal(expression.Value(sourceName))

	out, err := s.query(ctx, SourceNameIndex, keyCond)
	if err != nil {
		return nil, err
	}

	repo.SortByVersion(out)

	return out, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]*model.Submission, error) {
	keyCond := expression.Key(attrUserID).Equal(expression.Value(userID))

	return s.query(ctx, UserIDIndex, keyCond)
}

// ProcessActive scans the table for active submissions one page at a time.
func (s *Store) ProcessActive(ctx context.Context, fn repo.BatchFunc) error {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name(attrActive).Equal(expression.Value(true))).
		Build()
	if err != nil {
		return errs.Wrap(repo.ErrListResource, err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(repo.DefaultLimit),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return errs.Wrap(repo.ErrListResource, err)
		}

		if len(page.Items) == 0 {
			continue
		}

		var batch []*model.Submission

		err = attributevalue.UnmarshalListOfMaps(page.Items, &batch)
		if err != nil {
			return errs.Wrap(repo.ErrListResource, err)
		}

		err = fn(batch)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, sourceID string) error {
	key, err := attributevalue.MarshalMap(map[string]string{attrSourceID: sourceID})
	if err != nil {
		return errs.Wrap(repo.ErrDeleteResource, err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(attrSourceID))).
		Build()
	if err != nil {
		return errs.Wrap(repo.ErrDeleteResource, err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.table),
		Key:                      key,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return repo.ErrNotFound
		}

		return errs.Wrap(repo.ErrDeleteResource, err)
	}

	return nil
}

// CreateTable creates the status table and its indexes. An existing table is
// not an error.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrSourceID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrSourceName), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrVersion), AttributeType: types.ScalarAttributeTypeN},
			{AttributeName: aws.String(attrUserID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrSourceID), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(SourceNameIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(attrSourceName), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String(attrVersion), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName: aws.String(UserIDIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(attrUserID), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}

		return errs.Wrap(repo.ErrCreateTable, err)
	}

	return nil
}

// Ready reports whether the table exists and is active.
func (s *Store) Ready(ctx context.Context) error {
	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return errs.Wrap(ErrTableNotActive, err)
	}

	if out.Table == nil || out.Table.TableStatus != types.TableStatusActive {
		return ErrTableNotActive
	}

	return nil
}

func (s *Store) put(ctx context.Context, sub *model.Submission, cond expression.ConditionBuilder) error {
	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		return err
	}

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	return err
}

func (s *Store) query(
	ctx context.Context,
	index string,
	keyCond expression.KeyConditionBuilder,
) ([]*model.Submission, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, errs.Wrap(repo.ErrListResource, err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var out []*model.Submission

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errs.Wrap(repo.ErrListResource, err)
		}

		var batch []*model.Submission

		err = attributevalue.UnmarshalListOfMaps(page.Items, &batch)
		if err != nil {
			return nil, errs.Wrap(repo.ErrListResource, err)
		}

		out = append(out, batch...)
	}

	return out, nil
}

func (s *Store) retrier() *retry.Retrier {
	return retry.New(
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, repo.ErrConflict)
		}),
		retry.Delay(s.retry.Delay),
		retry.MaxDelay(s.retry.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Attempts(s.retry.Attempts),
		retry.LastErrorOnly(true),
	)
}

// isConditionalCheckFailed also accepts the generic API error code, which is
// what DynamoDB-compatible local stacks sometimes return.
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ConditionalCheckFailedException"
	}

	return false
}
