package main

import (
	"log"
	"os"

	"github.com/trustguard/forensic_server/config"
	"github.com/trustguard/forensic_server/internal/database"
	"github.com/trustguard/forensic_server/internal/pkg/cron"
	"github.com/trustguard/forensic_server/internal/repository"
)

// 一次性执行媒体保留期清理，适合挂到系统 crontab
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	historyRepo := repository.NewHistoryRepository(db)
	service := cron.NewService(historyRepo, cfg.Upload.MediaDir, cfg.Upload.RetentionHours)

	log.Println("Running media cleanup...")
	service.CleanupOnce()
	log.Println("Cleanup done")
}
