package config

import (
	"errors"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/materials-data-facility/connect/internal/errs"
)

var (
	ErrConfigurationValuesError = errors.New("configuration value error")
	ErrNonDefinedTaskType       = errors.New("task type is unknown")
	ErrRepeatedTaskType         = errors.New("task type is specified more than once")
	ErrLoadMTLSConfig           = errors.New("failed to load mTLS config")

	ErrDynamoEmptyTable     = errors.New("dynamo table must be specified")
	ErrDynamoEmptyRegion    = errors.New("dynamo region must be specified")
	ErrGlobusEmptyClientID  = errors.New("globus client id must be specified")
	ErrGlobusNoClientSecret = errors.New("globus client secret or secret name must be specified")
	ErrDestinationEmptyID   = errors.New("destination endpoint id must be specified")
	ErrDestinationPath      = errors.New("destination paths must be absolute")
	ErrAMQPEmptyURL         = errors.New("AMQP URL must be specified")
	ErrAMQPEmptyTarget      = errors.New("AMQP target must be specified")
	ErrRetryAttempts        = errors.New("retry attempts must be between 1 and 20")
)

// Config holds all application configuration parameters
type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash"`

	HTTP        HTTPServer  `yaml:"http"`
	AWS         AWS         `yaml:"aws"`
	Dynamo      Dynamo      `yaml:"dynamo"`
	Globus      Globus      `yaml:"globus"`
	Destination Destination `yaml:"destination"`
	Scheduler   Scheduler   `yaml:"scheduler"`
	Curators    []string    `yaml:"curators"`
	Notifier    Notifier    `yaml:"notifier"`
	Retry       Retry       `yaml:"retry"`
}

func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.Scheduler,
		&c.Dynamo,
		&c.Globus,
		&c.Destination,
		&c.Notifier,
		&c.Retry,
	}

	for _, v := range validators {
		err := v.Validate()
		if err != nil {
			return errs.Wrap(ErrConfigurationValuesError, err)
		}
	}

	return nil
}

// HTTPServer holds http server config
type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

// AWS holds the credentials shared by the AWS clients. Empty credentials
// fall back to the SDK default chain. Endpoint points every client at a
// local stack.
type AWS struct {
	Region          string              `yaml:"region" default:"us-east-1"`
	Endpoint        string              `yaml:"endpoint"`
	AccessKeyID     commoncfg.SourceRef `yaml:"accessKeyId"`
	SecretAccessKey commoncfg.SourceRef `yaml:"secretAccessKey"`
}

// Dynamo holds the status table config
type Dynamo struct {
	Region   string `yaml:"region"`
	Table    string `yaml:"table"`
	Endpoint string `yaml:"endpoint"`
	// Local keeps submissions in process memory instead of DynamoDB.
	Local bool `yaml:"local"`
}

func (d *Dynamo) Validate() error {
	if d.Local {
		return nil
	}

	if d.Table == "" {
		return ErrDynamoEmptyTable
	}

	if d.Region == "" {
		return ErrDynamoEmptyRegion
	}

	return nil
}

// Globus holds Globus Auth and Flows config
type Globus struct {
	AuthURL      string              `yaml:"authUrl" default:"https://auth.globus.org"`
	FlowsURL     string              `yaml:"flowsUrl" default:"https://flows.globus.org"`
	ClientID     string              `yaml:"clientId"`
	ClientSecret commoncfg.SourceRef `yaml:"clientSecret"`
	// SecretName is a Secrets Manager secret holding client_id and
	// client_secret. It takes precedence over ClientSecret.
	SecretName string        `yaml:"secretName"`
	FlowFile   string        `yaml:"flowFile" default:"minimus_flow.json"`
	Timeout    time.Duration `yaml:"timeout" default:"30s"`
}

func (g *Globus) Validate() error {
	if g.SecretName != "" {
		return nil
	}

	if g.ClientID == "" {
		return ErrGlobusEmptyClientID
	}

	if g.ClientSecret.Source == "" {
		return ErrGlobusNoClientSecret
	}

	return nil
}

// Destination is where submitted data is transferred to.
type Destination struct {
	EndpointID string `yaml:"endpointId"`
	BasePath   string `yaml:"basePath" default:"/mdf_connect/prod/data/"`
	TestPath   string `yaml:"testPath" default:"/mdf_connect/test/data/"`
}

func (d *Destination) Validate() error {
	if d.EndpointID == "" {
		return ErrDestinationEmptyID
	}

	if !isAbs(d.BasePath) || (d.TestPath != "" && !isAbs(d.TestPath)) {
		return ErrDestinationPath
	}

	return nil
}

func isAbs(p string) bool {
	return len(p) > 0 && p[0] == '/'
}

// Scheduler holds a scheduler config
type Scheduler struct {
	TaskQueue Redis
	Tasks     []Task
}

func (s *Scheduler) Validate() error {
	checkedTasks := make(map[string]struct{}, len(s.Tasks))
	for _, task := range s.Tasks {
		_, found := DefinedTasks[task.TaskType]
		if !found {
			return ErrNonDefinedTaskType
		}

		_, found = checkedTasks[task.TaskType]
		if found {
			return ErrRepeatedTaskType
		}

		checkedTasks[task.TaskType] = struct{}{}
	}

	return nil
}

// Task holds a task config
type Task struct {
	Enabled  bool
	Cronspec string
	TaskType string
	Retries  int
}

// Redis holds Redis client config
type Redis struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	Port      string              `yaml:"port"`
	ACL       RedisACL            `yaml:"acl"`
	SecretRef commoncfg.SecretRef
}

type RedisACL struct {
	Enabled  bool                `yaml:"enabled"`
	Password commoncfg.SourceRef `yaml:"password"`
	Username commoncfg.SourceRef `yaml:"username"`
}

// Notifier holds the status event publisher config
type Notifier struct {
	Enabled  bool                `yaml:"enabled"`
	AMQP     AMQP                `yaml:"amqp"`
	Username commoncfg.SourceRef `yaml:"username"`
	Password commoncfg.SourceRef `yaml:"password"`
}

func (n *Notifier) Validate() error {
	if !n.Enabled {
		return nil
	}

	return n.AMQP.validate()
}

type AMQP struct {
	URL    string `yaml:"url"`
	Target string `yaml:"target"`
}

func (a *AMQP) validate() error {
	if a.URL == "" {
		return ErrAMQPEmptyURL
	}

	if a.Target == "" {
		return ErrAMQPEmptyTarget
	}

	return nil
}

// Retry holds the backoff used for store conflicts and Globus calls
type Retry struct {
	Attempts uint          `yaml:"attempts" default:"5"`
	Delay    time.Duration `yaml:"delay" default:"100ms"`
	MaxDelay time.Duration `yaml:"maxDelay" default:"5s"`
}

const maxRetryAttempts = 20

func (r *Retry) Validate() error {
	if r.Attempts < 1 || r.Attempts > maxRetryAttempts {
		return ErrRetryAttempts
	}

	return nil
}
