package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/shaiso/conflictsuite/internal/clustertest"
	"github.com/shaiso/conflictsuite/internal/sqlconn"
)

// Default configuration values.
const (
	defaultEnvFile = ".env"
	defaultAPIURL  = "http://localhost:8080"
	defaultAPIAddr = ":8080"
)

// Config — настройки процесса из окружения.
//
// Переменные:
//
//	CLUSTER_DRIVER    rest | pg | sim (default: rest)
//	CLUSTER_URL       адрес кластера
//	CLUSTER_USER      пользователь
//	CLUSTER_PASSWORD  пароль
//	CLUSTER_DATABASE  база по умолчанию для соединений
//	CLUSTER_TIMEOUT   таймаут одного statement (Go duration)
//	SIM_JOB_DURATION  длительность job-ов симулятора (Go duration)
//	DB_URL            Postgres для истории прогонов (пусто — не сохранять)
//	RABBITMQ_URL      RabbitMQ для публикации результатов (пусто — не публиковать)
//	API_URL           адрес read API для команд runs
//	API_PORT          порт serve / soak --listen
//	METRICS_ADDR      адрес /metrics для run (пусто — не поднимать)
type Config struct {
	Cluster        sqlconn.Config
	SimJobDuration time.Duration
	DBURL          string
	RabbitURL      string
	APIURL         string
	APIAddr        string
	MetricsAddr    string
}

// LoadConfig читает .env-файлы (отсутствующие пропускаются) и окружение.
// Переменные окружения имеют приоритет над файлами.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{defaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	timeout, err := envDuration("CLUSTER_TIMEOUT", 0)
	if err != nil {
		return Config{}, err
	}
	simJob, err := envDuration("SIM_JOB_DURATION", 0)
	if err != nil {
		return Config{}, err
	}

	apiAddr := defaultAPIAddr
	if port := os.Getenv("API_PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return Config{}, fmt.Errorf("API_PORT: %q is not a port", port)
		}
		apiAddr = ":" + port
	}

	return Config{
		Cluster: sqlconn.Config{
			Driver:   os.Getenv("CLUSTER_DRIVER"),
			URL:      os.Getenv("CLUSTER_URL"),
			User:     os.Getenv("CLUSTER_USER"),
			Password: os.Getenv("CLUSTER_PASSWORD"),
			Database: os.Getenv("CLUSTER_DATABASE"),
			Timeout:  timeout,
		},
		SimJobDuration: simJob,
		DBURL:          os.Getenv("DB_URL"),
		RabbitURL:      os.Getenv("RABBITMQ_URL"),
		APIURL:         envOr("API_URL", defaultAPIURL),
		APIAddr:        apiAddr,
		MetricsAddr:    os.Getenv("METRICS_ADDR"),
	}, nil
}

// ClusterName — адрес кластера для отчётов.
func (c Config) ClusterName() string {
	if c.Cluster.Driver == clustertest.Driver {
		return clustertest.Driver
	}
	return c.Cluster.Redacted()
}

// Dialer создаёт dialer кластера. Каждое соединение логирует statement-ы на DEBUG.
//
// Для CLUSTER_DRIVER=sim поднимается симулятор в памяти процесса:
// пробный прогон без живого кластера.
func (c Config) Dialer(logger *slog.Logger) (sqlconn.Dialer, error) {
	if c.Cluster.Driver == clustertest.Driver {
		var opts []clustertest.Option
		if c.SimJobDuration > 0 {
			opts = append(opts, clustertest.WithJobDuration(c.SimJobDuration))
		}
		return sqlconn.LoggedDialer(clustertest.New(opts...), logger), nil
	}

	d, err := sqlconn.NewDialer(c.Cluster)
	if err != nil {
		return nil, err
	}
	return sqlconn.LoggedDialer(d, logger), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
