package clients

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/materials-data-facility/connect/internal/clients/aws"
	"github.com/materials-data-facility/connect/internal/clients/globus"
	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/notifier"
	"github.com/materials-data-facility/connect/internal/repo"
	"github.com/materials-data-facility/connect/internal/repo/dynamo"
	"github.com/materials-data-facility/connect/internal/repo/mock"
)

var (
	ErrLoadCredentials = errors.New("failed to load credentials")
	ErrGlobusAuth      = errors.New("failed to set up globus auth")
)

// Factory builds the outbound clients of the service from the config.
// Clients are created on first use and shared afterwards.
type Factory struct {
	cfg *config.Config

	mu        sync.Mutex
	awsConfig *awssdk.Config
	auth      *globus.ClientCredentials
	publisher notifier.Publisher
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg}
}

// StatusStore returns the DynamoDB store, or an in-memory one when the
// config asks for a local store.
func (f *Factory) StatusStore(ctx context.Context) (repo.StatusStore, error) {
	if f.cfg.Dynamo.Local {
		return mock.NewInMemoryStore(), nil
	}

	return f.DynamoStore(ctx)
}

func (f *Factory) DynamoStore(ctx context.Context) (*dynamo.Store, error) {
	awsCfg, err := f.aws(ctx)
	if err != nil {
		return nil, err
	}

	if f.cfg.Dynamo.Region != "" {
		awsCfg.Region = f.cfg.Dynamo.Region
	}

	endpoint := f.cfg.Dynamo.Endpoint
	if endpoint == "" {
		endpoint = f.cfg.AWS.Endpoint
	}

	client := aws.NewDynamoDBClient(awsCfg, endpoint)

	return dynamo.NewStore(client, f.cfg.Dynamo.Table, dynamo.WithRetry(dynamo.RetryConfig{
		Delay:    f.cfg.Retry.Delay,
		MaxDelay: f.cfg.Retry.MaxDelay,
		Attempts: f.cfg.Retry.Attempts,
	})), nil
}

// GlobusAuth returns the confidential client used for every Globus call.
// Credentials come from Secrets Manager when a secret name is configured.
func (f *Factory) GlobusAuth(ctx context.Context) (*globus.ClientCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.auth != nil {
		return f.auth, nil
	}

	clientID, clientSecret, err := f.globusCredentials(ctx)
	if err != nil {
		return nil, errs.Wrap(ErrGlobusAuth, err)
	}

	f.auth = globus.NewClientCredentials(clientID, clientSecret, f.cfg.Globus.AuthURL,
		&http.Client{Timeout: f.cfg.Globus.Timeout})

	return f.auth, nil
}

func (f *Factory) globusCredentials(ctx context.Context) (string, string, error) {
	if f.cfg.Globus.SecretName == "" {
		secret, err := commoncfg.LoadValueFromSourceRef(f.cfg.Globus.ClientSecret)
		if err != nil {
			return "", "", errs.Wrap(ErrLoadCredentials, err)
		}

		return f.cfg.Globus.ClientID, string(secret), nil
	}

	awsCfg, err := f.awsLocked(ctx)
	if err != nil {
		return "", "", err
	}

	secret, err := aws.NewSecretsClient(awsCfg, f.cfg.AWS.Endpoint).
		GetClientSecret(ctx, f.cfg.Globus.SecretName)
	if err != nil {
		return "", "", err
	}

	clientID := secret.ClientID
	if clientID == "" {
		clientID = f.cfg.Globus.ClientID
	}

	return clientID, secret.ClientSecret, nil
}

func (f *Factory) FlowsClient(ctx context.Context) (*globus.FlowsClient, error) {
	auth, err := f.GlobusAuth(ctx)
	if err != nil {
		return nil, err
	}

	return globus.NewFlowsClient(auth,
		globus.WithBaseURL(f.cfg.Globus.FlowsURL),
		globus.WithConfig(globus.Config{
			Delay:    f.cfg.Retry.Delay,
			MaxDelay: f.cfg.Retry.MaxDelay,
			Attempts: f.cfg.Retry.Attempts,
		}),
	), nil
}

// Flow loads the flow handle from the configured flow file. Without a
// flow file it returns an undeployed minimus handle.
func (f *Factory) Flow(ctx context.Context) (*flow.GlobusAutomateFlow, error) {
	client, err := f.FlowsClient(ctx)
	if err != nil {
		return nil, err
	}

	handle, err := flow.LoadFlow(f.cfg.Globus.FlowFile, client)
	if errors.Is(err, fs.ErrNotExist) {
		return flow.NewMinimusFlow(client), nil
	}

	return handle, err
}

// Publisher returns the AMQP publisher when notifications are enabled and
// a no-op publisher otherwise.
func (f *Factory) Publisher(ctx context.Context) (notifier.Publisher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publisher != nil {
		return f.publisher, nil
	}

	if !f.cfg.Notifier.Enabled {
		f.publisher = notifier.NoopPublisher{}
		return f.publisher, nil
	}

	username, err := optionalValue(f.cfg.Notifier.Username)
	if err != nil {
		return nil, err
	}

	password, err := optionalValue(f.cfg.Notifier.Password)
	if err != nil {
		return nil, err
	}

	pub, err := notifier.DialAMQP(ctx, notifier.AMQPConfig{
		URL:      f.cfg.Notifier.AMQP.URL,
		Target:   f.cfg.Notifier.AMQP.Target,
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	f.publisher = pub

	return f.publisher, nil
}

// Close releases the clients holding connections.
func (f *Factory) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publisher == nil {
		return nil
	}

	err := f.publisher.Close(ctx)
	f.publisher = nil

	return err
}

func (f *Factory) aws(ctx context.Context) (awssdk.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.awsLocked(ctx)
}

func (f *Factory) awsLocked(ctx context.Context) (awssdk.Config, error) {
	if f.awsConfig != nil {
		return *f.awsConfig, nil
	}

	accessKeyID, err := optionalValue(f.cfg.AWS.AccessKeyID)
	if err != nil {
		return awssdk.Config{}, err
	}

	secretAccessKey, err := optionalValue(f.cfg.AWS.SecretAccessKey)
	if err != nil {
		return awssdk.Config{}, err
	}

	awsCfg, err := aws.NewConfig(ctx, aws.Credentials{
		Region:          f.cfg.AWS.Region,
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		BaseEndpoint:    f.cfg.AWS.Endpoint,
	})
	if err != nil {
		return awssdk.Config{}, err
	}

	f.awsConfig = &awsCfg

	return awsCfg, nil
}

func optionalValue(ref commoncfg.SourceRef) (string, error) {
	if ref.Source == "" {
		return "", nil
	}

	value, err := commoncfg.LoadValueFromSourceRef(ref)
	if err != nil {
		return "", errs.Wrap(ErrLoadCredentials, err)
	}

	return string(value), nil
}
