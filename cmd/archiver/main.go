package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trustguard/forensic_server/config"
	"github.com/trustguard/forensic_server/internal/database"
	"github.com/trustguard/forensic_server/internal/pkg/oss"
	"github.com/trustguard/forensic_server/internal/pkg/queue"
	"github.com/trustguard/forensic_server/internal/repository"
	"github.com/trustguard/forensic_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
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

	// 初始化 OSS（可选，未配置时归档任务会被跳过）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	archiveQueue := queue.NewQueue(rdb, cfg.Queue.ArchiveQueue)
	historyRepo := repository.NewHistoryRepository(db)
	archiver := worker.NewArchiver(historyRepo, ossClient)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Archiver started, max workers: %d", cfg.Queue.MaxWorkers)

	for i := 0; i < cfg.Queue.MaxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Archiver %d shutting down", workerID)
					return
				default:
					msg, err := archiveQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Archiver %d: failed to pop message: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Archiver %d: archiving media for job %s", workerID, msg.JobID)
					if err := archiver.Process(ctx, msg); err != nil {
						log.Printf("Archiver %d: job %s failed: %v", workerID, msg.JobID, err)
					}
				}
			}
		}(i)
	}

	<-ctx.Done()
	log.Println("Archiver shutdown complete")
}
