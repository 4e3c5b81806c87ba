package cron

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/trustguard/forensic_server/internal/repository"
)

type Service struct {
	historyRepo    *repository.HistoryRepository
	mediaDir       string
	retentionHours int
	stopChan       chan struct{}
}

func NewService(
	historyRepo *repository.HistoryRepository,
	mediaDir string,
	retentionHours int,
) *Service {
	return &Service{
		historyRepo:    historyRepo,
		mediaDir:       mediaDir,
		retentionHours: retentionHours,
		stopChan:       make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runCleanup()
	log.Println("Cron service started (media retention cleanup)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runCleanup 每小时执行一次清理
func (s *Service) runCleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.CleanupOnce()
		}
	}
}

// CleanupOnce 执行一轮清理（cmd/cleanup 手动触发也走这里）
func (s *Service) CleanupOnce() {
	retention := time.Duration(s.retentionHours) * time.Hour
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	c1 := s.cleanupExpiredMedia(retention)
	c2 := s.cleanupArchivedMedia()

	if c1+c2 > 0 {
		log.Printf("Cleanup summary: expired=%d, archived=%d", c1, c2)
	}
}

// cleanupExpiredMedia 清理超过保留期的本地媒体文件
func (s *Service) cleanupExpiredMedia(retention time.Duration) int {
	if s.mediaDir == "" {
		return 0
	}

	entries, err := os.ReadDir(s.mediaDir)
	if err != nil {
		log.Printf("Cleanup media: failed to read dir %s: %v", s.mediaDir, err)
		return 0
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if time.Since(info.ModTime()) > retention {
			path := filepath.Join(s.mediaDir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Printf("Cleanup media: failed to remove %s: %v", path, err)
			} else {
				cleaned++
			}
		}
	}
	return cleaned
}

// cleanupArchivedMedia 已归档到 OSS 的媒体不再需要本地副本
func (s *Service) cleanupArchivedMedia() int {
	if s.historyRepo == nil {
		return 0
	}

	records, err := s.historyRepo.ListArchivedWithLocalMedia()
	if err != nil {
		log.Printf("Cleanup archived: failed to query archived records: %v", err)
		return 0
	}

	cleaned := 0
	for _, record := range records {
		if err := os.Remove(record.MediaPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Cleanup archived: failed to remove %s: %v", record.MediaPath, err)
			continue
		}
		if err := s.historyRepo.ClearMediaPath(record.ID); err != nil {
			log.Printf("Cleanup archived: failed to clear media path for record %d: %v", record.ID, err)
			continue
		}
		cleaned++
	}
	return cleaned
}
