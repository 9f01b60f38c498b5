package aws

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/materials-data-facility/connect/internal/errs"
)

var ErrLoadConfig = errors.New("failed to load aws config")

// Credentials selects how the SDK authenticates. Empty keys fall back to
// the default provider chain.
type Credentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// BaseEndpoint points the clients at a local stack.
	BaseEndpoint string
}

// NewConfig loads an aws.Config for the given credentials.
func NewConfig(ctx context.Context, creds Credentials) (aws.Config, error) {
	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(creds.Region),
	}

	switch {
	case creds.AccessKeyID != "":
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		))
	case creds.BaseEndpoint != "":
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("dummy", "dummy", ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return aws.Config{}, errs.Wrap(ErrLoadConfig, err)
	}

	return cfg, nil
}

// NewDynamoDBClient creates a DynamoDB client, honouring the base endpoint.
func NewDynamoDBClient(cfg aws.Config, baseEndpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
	})
}

// NewSecretsClient creates a Secrets Manager backed client.
func NewSecretsClient(cfg aws.Config, baseEndpoint string) *SecretsClient {
	internal := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
	})

	return &SecretsClient{internalClient: internal}
}
