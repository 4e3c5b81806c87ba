package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustguard/forensic_server/config"
	"github.com/trustguard/forensic_server/internal/model"
	"github.com/trustguard/forensic_server/internal/pkg/oss"
	"github.com/trustguard/forensic_server/internal/pkg/queue"
	"github.com/trustguard/forensic_server/internal/repository"
	"github.com/trustguard/forensic_server/internal/testutil"
)

func TestArchiver_Process_NoOSS(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	historyRepo := repository.NewHistoryRepository(db)
	record := testutil.TestHistoryRecord(t, db, "guest_1",
		testutil.WithMediaPath("/data/media/a.mp4"))

	archiver := NewArchiver(historyRepo, nil)

	err := archiver.Process(context.Background(), &queue.ArchiveMessage{
		HistoryID: record.ID,
		JobID:     record.JobID,
		UserID:    "guest_1",
		MediaPath: record.MediaPath,
	})
	require.NoError(t, err, "missing OSS config degrades to a no-op")

	// 记录保持未归档
	got, err := historyRepo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ArchiveURL)
	assert.Nil(t, got.ArchivedAt)
}

func TestArchiver_Process_MediaAlreadyGone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	historyRepo := repository.NewHistoryRepository(db)
	record := testutil.TestHistoryRecord(t, db, "guest_1",
		testutil.WithMediaPath(filepath.Join(t.TempDir(), "vanished.mp4")))

	// 构造客户端不触网，读文件在上传之前，缺失文件直接跳过
	ossClient, err := oss.NewClient(&config.OSSConfig{
		Endpoint:        "oss-cn-test.aliyuncs.com",
		AccessKeyID:     "test",
		AccessKeySecret: "test",
		BucketName:      "test-bucket",
	})
	require.NoError(t, err)

	archiver := NewArchiver(historyRepo, ossClient)

	err = archiver.Process(context.Background(), &queue.ArchiveMessage{
		HistoryID: record.ID,
		JobID:     record.JobID,
		MediaPath: record.MediaPath,
	})
	assert.NoError(t, err)

	got, err := historyRepo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ArchiveURL)
}

func TestArchiver_Process_EmptyMediaPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	archiver := NewArchiver(repository.NewHistoryRepository(db), nil)

	err := archiver.Process(context.Background(), &queue.ArchiveMessage{
		HistoryID: 1,
		JobID:     "job-1",
	})
	assert.NoError(t, err)
}

func TestArchiveQueue_EndToEnd(t *testing.T) {
	// 归档消息从服务端入队到 worker 出队的编解码一致性
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(mediaPath, []byte("media"), 0644))

	record := testutil.TestHistoryRecord(t, db, "guest_1",
		testutil.WithLabel(model.LabelFake, 0.9),
		testutil.WithMediaPath(mediaPath))

	msg := &queue.ArchiveMessage{
		HistoryID: record.ID,
		JobID:     record.JobID,
		UserID:    record.UserID,
		MediaPath: record.MediaPath,
	}

	archiver := NewArchiver(repository.NewHistoryRepository(db), nil)
	assert.NoError(t, archiver.Process(context.Background(), msg))
}
