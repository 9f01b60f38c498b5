package aws

// NewSecretsClientForTests wraps a mocked Secrets Manager client.
func NewSecretsClientForTests(internal secretsClient) *SecretsClient {
	return &SecretsClient{internalClient: internal}
}
