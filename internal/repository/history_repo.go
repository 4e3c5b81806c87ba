package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/trustguard/forensic_server/internal/model"
)

// 历史列表默认返回最近 25 条
const DefaultHistoryLimit = 25

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Create(record *model.HistoryRecord) error {
	return r.db.Create(record).Error
}

func (r *HistoryRepository) GetByID(id int64) (*model.HistoryRecord, error) {
	var record model.HistoryRecord
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *HistoryRepository) GetByJobID(jobID string) (*model.HistoryRecord, error) {
	var record model.HistoryRecord
	err := r.db.Where("job_id = ?", jobID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByUserID 按时间倒序返回用户最近的记录
func (r *HistoryRepository) ListByUserID(userID string, limit int) ([]*model.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var records []*model.HistoryRecord
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// MarkArchived 记录归档地址
func (r *HistoryRepository) MarkArchived(id int64, archiveURL string) error {
	now := time.Now()
	return r.db.Model(&model.HistoryRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"archive_url": archiveURL,
			"archived_at": &now,
		}).Error
}

// ClearMediaPath 本地副本删除后清空路径
func (r *HistoryRepository) ClearMediaPath(id int64) error {
	return r.db.Model(&model.HistoryRecord{}).
		Where("id = ?", id).
		Update("media_path", "").Error
}

// ListArchivedWithLocalMedia 查询已归档但仍保留本地副本的记录
func (r *HistoryRepository) ListArchivedWithLocalMedia() ([]*model.HistoryRecord, error) {
	var records []*model.HistoryRecord
	err := r.db.
		Where("archive_url <> '' AND media_path <> ''").
		Find(&records).Error
	return records, err
}
