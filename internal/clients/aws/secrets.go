package aws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/materials-data-facility/connect/internal/errs"
)

// secretsClient defines the methods of the Secrets Manager client that we use.
type secretsClient interface {
	GetSecretValue(ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var _ secretsClient = (*secretsmanager.Client)(nil)

var (
	ErrMissingSecretID = errors.New("secret id is required")
	ErrGetSecretFailed = errors.New("failed to get secret")
	ErrSecretNotFound  = errors.New("secret not found")
	ErrSecretEmpty     = errors.New("secret has no string value")
	ErrSecretMalformed = errors.New("secret is not a valid client credential")
)

// ClientSecret is the JSON document stored for a confidential client.
type ClientSecret struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// SecretsClient reads secrets from AWS Secrets Manager.
type SecretsClient struct {
	internalClient secretsClient
}

// GetString returns the string value of a secret.
func (c *SecretsClient) GetString(ctx context.Context, secretID string) (string, error) {
	if secretID == "" {
		return "", ErrMissingSecretID
	}

	out, err := c.internalClient.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", errs.Wrapf(ErrSecretNotFound, secretID)
		}

		return "", errs.Wrap(ErrGetSecretFailed, err)
	}

	value := aws.ToString(out.SecretString)
	if value == "" {
		return "", errs.Wrapf(ErrSecretEmpty, secretID)
	}

	return value, nil
}

// GetClientSecret reads a {client_id, client_secret} secret.
func (c *SecretsClient) GetClientSecret(ctx context.Context, secretID string) (ClientSecret, error) {
	raw, err := c.GetString(ctx, secretID)
	if err != nil {
		return ClientSecret{}, err
	}

	var secret ClientSecret

	err = json.Unmarshal([]byte(raw), &secret)
	if err != nil {
		return ClientSecret{}, errs.Wrap(ErrSecretMalformed, err)
	}

	if secret.ClientSecret == "" {
		return ClientSecret{}, errs.Wrapf(ErrSecretMalformed, "client_secret is empty")
	}

	return secret, nil
}
