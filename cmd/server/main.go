package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trustguard/forensic_server/config"
	"github.com/trustguard/forensic_server/internal/api"
	"github.com/trustguard/forensic_server/internal/dashboard"
	"github.com/trustguard/forensic_server/internal/database"
	"github.com/trustguard/forensic_server/internal/forensic"
	"github.com/trustguard/forensic_server/internal/model"
	"github.com/trustguard/forensic_server/internal/pkg/cron"
	"github.com/trustguard/forensic_server/internal/pkg/pubsub"
	"github.com/trustguard/forensic_server/internal/pkg/queue"
	"github.com/trustguard/forensic_server/internal/pkg/ws"
	"github.com/trustguard/forensic_server/internal/repository"
	"github.com/trustguard/forensic_server/internal/reveal"
	"github.com/trustguard/forensic_server/internal/score"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()

	// 进度消息经 Redis 发布，订阅端转发给对应用户的连接
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
			if err := wsHub.SendToUser(msg.UserID, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
				log.Printf("Forward progress to user %s failed: %v", msg.UserID, err)
			}
		})
		if err != nil {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()

	// 初始化 Repository 和归档队列
	historyRepo := repository.NewHistoryRepository(db)
	archiveQueue := queue.NewQueue(rdb, cfg.Queue.ArchiveQueue)

	// 远程取证服务客户端
	forensicClient := forensic.NewClient(&cfg.Forensic)

	// 每用户面板装配
	registry := dashboard.NewRegistry(dashboard.NewFactory(dashboard.Deps{
		Service:     forensicClient,
		Interpreter: score.NewDefaultInterpreter(),
		Publisher:   publisher,
		HistoryRepo: historyRepo,
		OnComplete: func(userID string, job model.Job, result *model.AnalysisResult) {
			record := &model.HistoryRecord{
				JobID:      job.ID,
				UserID:     userID,
				FileName:   job.FileName,
				MediaPath:  job.MediaPath,
				Label:      result.Label,
				Score:      result.Score,
				HeatmapURL: result.HeatmapURL,
			}
			if err := record.SetMetadata(result.Metadata); err != nil {
				log.Printf("Encode metadata for job %s failed: %v", job.ID, err)
			}
			if err := historyRepo.Create(record); err != nil {
				log.Printf("Persist history for job %s failed: %v", job.ID, err)
				return
			}
			// 本地媒体交给归档 worker 搬去 OSS
			if job.MediaPath != "" {
				msg := &queue.ArchiveMessage{
					HistoryID: record.ID,
					JobID:     job.ID,
					UserID:    userID,
					MediaPath: job.MediaPath,
				}
				if err := archiveQueue.Push(context.Background(), msg); err != nil {
					log.Printf("Enqueue archive for job %s failed: %v", job.ID, err)
				}
			}
		},
		PollInterval: time.Duration(cfg.Forensic.PollIntervalSeconds) * time.Second,
		MaxFailures:  cfg.Forensic.MaxPollFailures,
		RevealTick:   time.Duration(cfg.Reveal.TickMillis) * time.Millisecond,
		RevealNotify: func(userID string, snap reveal.Snapshot) {
			if err := wsHub.SendToUser(userID, &ws.Message{Type: "explanation", Data: snap}); err != nil {
				log.Printf("Forward explanation to user %s failed: %v", userID, err)
			}
		},
	}))

	// 本地媒体保留期清理
	cronService := cron.NewService(historyRepo, cfg.Upload.MediaDir, cfg.Upload.RetentionHours)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Router
	engine := api.NewRouter(cfg, registry, historyRepo, wsHub)

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
