package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gdb, mock
}

func TestFileRepository_FindByID(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewFileRepository(gdb)

	rows := sqlmock.NewRows([]string{"id", "original_filename", "provider", "object_key", "owner_id"}).
		AddRow(1, "photo.png", "LOCAL", "tester/photo.png", 1)
	mock.ExpectQuery(`SELECT .+ FROM "upload_files"`).WillReturnRows(rows)

	file, err := repo.FindByID(1)
	require.NoError(t, err)
	assert.Equal(t, "photo.png", file.OriginalFilename)
	assert.Equal(t, "tester/photo.png", file.ObjectKey)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_FindByID_NotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewFileRepository(gdb)

	mock.ExpectQuery(`SELECT .+ FROM "upload_files"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFileRepository_DeleteBatch(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewFileRepository(gdb)

	// 软删除实现为 UPDATE
	mock.ExpectExec(`UPDATE "upload_files" SET "deleted_at"=.+`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := repo.DeleteBatch([]uint{1, 2, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_DeleteBatch_EmptyIDs(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewFileRepository(gdb)

	deleted, err := repo.DeleteBatch(nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// 空ID列表不触发数据库调用
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_UpdateMD5(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewFileRepository(gdb)

	mock.ExpectExec(`UPDATE "upload_files" SET .+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateMD5(1, "d41d8cd98f00b204e9800998ecf8427e", "COMPLETED")
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_List_SortByOutsideWhitelistFallsBack(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewFileRepository(gdb)

	// 白名单外的排序字段一律回退到 created_at，不进入SQL
	mock.ExpectQuery(`SELECT count\(\*\) FROM "upload_files"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .+ FROM "upload_files" .*ORDER BY created_at desc`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := repo.List(ListFilter{
		SortBy: `created_at; DROP TABLE upload_files;--`,
		Limit:  10,
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_List_SortByWhitelisted(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewFileRepository(gdb)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "upload_files"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .+ FROM "upload_files" .*ORDER BY file_size asc`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := repo.List(ListFilter{
		SortBy:    "file_size",
		SortOrder: "asc",
		Limit:     10,
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_List_TagsGroupedWithinScope(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewFileRepository(gdb)

	// 多标签的 OR 作为整体子条件，不脱离 owner 过滤范围
	mock.ExpectQuery(`SELECT count\(\*\) FROM "upload_files" WHERE owner_id = \$1 AND \(tags::text LIKE \$2 OR tags::text LIKE \$3\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM "upload_files" WHERE owner_id = \$1 AND \(tags::text LIKE \$2 OR tags::text LIKE \$3\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "original_filename"}).
			AddRow(1, "a.png"))

	ownerID := uint(1)
	files, total, err := repo.List(ListFilter{
		OwnerID: &ownerID,
		Tags:    []string{"头像", "测试"},
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, files, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_List(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewFileRepository(gdb)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "upload_files"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT .+ FROM "upload_files"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "original_filename", "provider"}).
			AddRow(1, "a.png", "LOCAL").
			AddRow(2, "b.png", "AWS_S3"))

	ownerID := uint(1)
	files, total, err := repo.List(ListFilter{
		OwnerID:  &ownerID,
		Provider: "",
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, files, 2)
	assert.Equal(t, "a.png", files[0].OriginalFilename)

	assert.NoError(t, mock.ExpectationsWereMet())
}
