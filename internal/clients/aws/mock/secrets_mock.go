package mock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

var errNotFound = &types.ResourceNotFoundException{Message: aws.String("secret not found")}

type GetSecretValueFuncType func(ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)

// SecretsMock is a mock of the Secrets Manager client.
type SecretsMock struct {
	GetSecretValueFunc GetSecretValueFuncType
}

// GetSecretValue calls GetSecretValueFunc if set, otherwise it panics.
func (m *SecretsMock) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	if m.GetSecretValueFunc != nil {
		return m.GetSecretValueFunc(ctx, params, optFns...)
	}

	panic("mock GetSecretValue not implemented")
}

// StaticSecrets returns a mock that serves the given secret strings by id.
func StaticSecrets(values map[string]string) *SecretsMock {
	return &SecretsMock{
		GetSecretValueFunc: func(_ context.Context, params *secretsmanager.GetSecretValueInput,
			_ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			value, ok := values[aws.ToString(params.SecretId)]
			if !ok {
				return nil, errNotFound
			}

			return &secretsmanager.GetSecretValueOutput{
				Name:         params.SecretId,
				SecretString: aws.String(value),
			}, nil
		},
	}
}

// ErrorSecrets returns a mock that fails every call with err.
func ErrorSecrets(err error) *SecretsMock {
	return &SecretsMock{
		GetSecretValueFunc: func(_ context.Context, _ *secretsmanager.GetSecretValueInput,
			_ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			return nil, err
		},
	}
}
