package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"casecounsel/internal/ai"
	"casecounsel/internal/config"
	"casecounsel/internal/index"
	"casecounsel/internal/model"
	mysqlClient "casecounsel/internal/platform/mysql"
	rabbitmqClient "casecounsel/internal/platform/rabbitmq"
	redisClient "casecounsel/internal/platform/redis"
	"casecounsel/internal/repository"
	"casecounsel/internal/session"
	"casecounsel/internal/worker"
)

type App struct {
	Config        *config.Config
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Index         *index.Index
	ChatModel     *ai.ChatModel
	Embedder      *ai.Embedder
	SessionStore  *session.Store
	MessageWorker *worker.MessagePersistWorker

	StartedAt time.Time
}

// New wires every dependency the serving process needs. A missing or
// corrupt index artifact, or an embedding model mismatch against the
// manifest, fails startup instead of degrading at query time.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config failed: %w", err)
	}

	idx, err := index.Load(cfg.Index.Dir)
	if err != nil {
		return nil, fmt.Errorf("load index from %s failed: %w", cfg.Index.Dir, err)
	}
	if manifest := idx.Manifest(); manifest.EmbeddingModel != cfg.LLM.EmbeddingModel {
		return nil, fmt.Errorf(
			"index was built with embedding model %q but %q is configured; rebuild the index or fix EMBED_MODEL",
			manifest.EmbeddingModel, cfg.LLM.EmbeddingModel,
		)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Lawyer{}, &model.Conversation{}, &model.Message{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	llmClient := ai.NewOpenAICompatibleClient(
		ai.WithTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
		ai.WithMaxRetries(cfg.LLM.MaxRetries),
	)
	chatModel := ai.NewChatModel(llmClient, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	embedder := ai.NewEmbedder(llmClient, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})

	messageRepo := repository.NewMessageRepository(mysqlDB)
	messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue)
	if err := messageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		Index:         idx,
		ChatModel:     chatModel,
		Embedder:      embedder,
		SessionStore:  session.NewStore(cfg.Agent.MaxHistoryTurns),
		MessageWorker: messageWorker,
		StartedAt:     time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
