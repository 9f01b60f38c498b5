package async

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/hibiken/asynq"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	conf "github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/log"
)

const (
	// syncInterval is the interval at which the scheduled task manager will check for config changes.
	syncInterval = 10 * time.Second
)

var (
	ErrLoadingTaskQueueHost = errors.New("error loading task queue host")
	ErrMTLSRedisClientOpt   = errors.New("error redis client opt")
	ErrSecretTypeQueue      = errors.New("unsupported secret type for task queue")
	ErrACLPassword          = errors.New("ACL is not load password for redis client")
	ErrACLUsername          = errors.New("ACL is not load username for redis client")
)

// Client enqueues tasks. *asynq.Client and MockClient implement it.
type Client interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

var _ Client = (*asynq.Client)(nil)

// TaskHandler defines the interface for handling async
type TaskHandler interface {
	ProcessTask(ctx context.Context, task *asynq.Task) error
	TaskType() string
}

// App manages task processing, scheduling, and worker functionality
type App struct {
	asynqClient    *asynq.Client
	asynqServer    *asynq.Server
	asynqServerCfg asynq.Config
	taskQueueCfg   asynq.RedisClientOpt
	tasks          map[string]TaskHandler
	cfg            *conf.Config
}

// New creates a new instance of App
func New(cfg *conf.Config) (*App, error) {
	redisOpts, err := RedisClientOpt(cfg.Scheduler.TaskQueue)
	if err != nil {
		return nil, err
	}

	return &App{
		taskQueueCfg: redisOpts,
		asynqClient:  asynq.NewClient(redisOpts),
		tasks:        make(map[string]TaskHandler),
		cfg:          cfg,
	}, nil
}

// RedisClientOpt builds the task queue connection options.
func RedisClientOpt(taskQueueCfg conf.Redis) (asynq.RedisClientOpt, error) {
	taskQueueHost, err := commoncfg.LoadValueFromSourceRef(taskQueueCfg.Host)
	if err != nil {
		return asynq.RedisClientOpt{}, errs.Wrap(ErrLoadingTaskQueueHost, err)
	}

	switch taskQueueCfg.SecretRef.Type {
	case commoncfg.InsecureSecretType:
		redisOpts := asynq.RedisClientOpt{
			Addr: net.JoinHostPort(string(taskQueueHost), taskQueueCfg.Port),
		}

		if taskQueueCfg.ACL.Enabled {
			username, password, err := loadACLAuthFromConfig(taskQueueCfg)
			if err != nil {
				return asynq.RedisClientOpt{}, err
			}

			redisOpts.Username = string(username)
			redisOpts.Password = string(password)
		}

		return redisOpts, nil
	case commoncfg.MTLSSecretType:
		redisOpts, err := buildMTLSRedisClientOpt(taskQueueCfg, taskQueueHost)
		if err != nil {
			return asynq.RedisClientOpt{}, errs.Wrap(ErrMTLSRedisClientOpt, err)
		}

		return redisOpts, nil
	case commoncfg.ApiTokenSecretType, commoncfg.BasicSecretType, commoncfg.OAuth2SecretType:
		return asynq.RedisClientOpt{}, ErrSecretTypeQueue
	default:
		return asynq.RedisClientOpt{}, ErrSecretTypeQueue
	}
}

// Client returns the enqueueing side of the app.
func (a *App) Client() Client {
	return a.asynqClient
}

// Inspector returns a queue inspector for the admin commands. The caller
// closes it.
func (a *App) Inspector() *asynq.Inspector {
	return asynq.NewInspector(a.taskQueueCfg)
}

// RegisterTasks registers multiple task handlers
func (a *App) RegisterTasks(ctx context.Context, handlers []TaskHandler) {
	for _, handler := range handlers {
		taskType := handler.TaskType()
		a.tasks[taskType] = handler
		log.Info(ctx, "Registered task", slog.String("Name", taskType))
	}
}

// Mux routes every registered task type to its handler.
func (a *App) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()

	for taskName, handler := range a.tasks {
		mux.HandleFunc(taskName, func(ctx context.Context, task *asynq.Task) error {
			return handler.ProcessTask(log.InjectTask(ctx, task), task)
		})
	}

	return mux
}

// RunWorker starts the worker process to process the tasks
func (a *App) RunWorker(ctx context.Context) error {
	log.Info(ctx, "Starting async worker")

	a.asynqServerCfg.BaseContext = func() context.Context { return ctx }
	a.asynqServer = asynq.NewServer(a.taskQueueCfg, a.asynqServerCfg)

	log.Info(ctx, "Starting worker server")

	err := a.asynqServer.Run(a.Mux())
	if err != nil {
		return errs.Wrap(ErrStartingWorker, err)
	}

	return nil
}

// RunScheduler starts the cron job scheduling
// It starts the cron related tasks defined in the schedulerTasksConfig
func (a *App) RunScheduler() error {
	provider := &ScheduledTaskConfigProvider{a.cfg}

	mgr, err := asynq.NewPeriodicTaskManager(
		asynq.PeriodicTaskManagerOpts{
			RedisConnOpt:               a.taskQueueCfg,
			PeriodicTaskConfigProvider: provider,
			SyncInterval:               syncInterval,
		})
	if err != nil {
		return errs.Wrap(ErrCreatingScheduler, err)
	}

	err = mgr.Run()
	if err != nil {
		return errs.Wrap(ErrRunningScheduler, err)
	}

	return nil
}

// EnqueueTask is used to run tasks
func (a *App) EnqueueTask(
	ctx context.Context,
	task *asynq.Task,
	opts ...asynq.Option,
) (*asynq.TaskInfo, error) {
	ctx = log.InjectTask(ctx, task)
	log.Debug(ctx, "Enqueuing task to be processed")

	info, err := a.asynqClient.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, errs.Wrap(ErrEnqueueingTask, err)
	}

	log.Debug(ctx, "Enqueued task")

	return info, nil
}

// Shutdown gracefully shuts down the worker and scheduler
func (a *App) Shutdown(ctx context.Context) error {
	log.Info(ctx, "Starting async app shutdown")

	if a.asynqServer != nil {
		a.asynqServer.Shutdown()
	}

	if a.asynqClient != nil {
		err := a.asynqClient.Close()
		if err != nil {
			return errs.Wrap(ErrClientShutdown, err)
		}
	}

	log.Info(ctx, "Async app shutdown completed")

	return nil
}

func buildMTLSRedisClientOpt(
	taskQueueCfg conf.Redis,
	taskQueueHost []byte,
) (asynq.RedisClientOpt, error) {
	tlsConfig, err := commoncfg.LoadMTLSConfig(&taskQueueCfg.SecretRef.MTLS)
	if err != nil {
		return asynq.RedisClientOpt{}, errs.Wrap(conf.ErrLoadMTLSConfig, err)
	}

	clientOps := asynq.RedisClientOpt{
		Addr:      net.JoinHostPort(string(taskQueueHost), taskQueueCfg.Port),
		TLSConfig: tlsConfig,
	}

	if taskQueueCfg.ACL.Enabled {
		username, password, err := loadACLAuthFromConfig(taskQueueCfg)
		if err != nil {
			return asynq.RedisClientOpt{}, err
		}

		clientOps.Username = string(username)
		clientOps.Password = string(password)
	}

	return clientOps, nil
}

func loadACLAuthFromConfig(cfg conf.Redis) ([]byte, []byte, error) {
	username, err := commoncfg.LoadValueFromSourceRef(cfg.ACL.Username)
	if err != nil {
		return nil, nil, ErrACLUsername
	}

	password, err := commoncfg.LoadValueFromSourceRef(cfg.ACL.Password)
	if err != nil {
		return nil, nil, ErrACLPassword
	}

	return username, password, nil
}
