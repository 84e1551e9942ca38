package persistence

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mido200912/Ai-Thor/domain/model"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func TestIntegrationRepositoryGorm_Upsert(t *testing.T) {
	gormDB, mock := newMockGorm(t)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `integrations`")).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `integrations` WHERE company_id = ? AND platform = ?")).
		WillReturnRows(sqlmock.NewRows(strings.Split(integrationColumns, ", ")).
			AddRow(integrationValues(9, "page-token", created)...))

	rec := metaRecord("page-token")
	require.NoError(t, NewIntegrationRepositoryGorm(gormDB).Upsert(context.Background(), rec))
	assert.Equal(t, "9", rec.ID)
	assert.True(t, rec.IsActive)
	assert.Equal(t, created, rec.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIntegrationRepositoryGorm_UpsertUsesDuplicateKeyUpdate(t *testing.T) {
	gormDB, mock := newMockGorm(t)

	mock.ExpectExec("ON DUPLICATE KEY UPDATE `access_token`=VALUES\\(`access_token`\\)").
		WillReturnResult(sqlmock.NewResult(9, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `integrations`")).
		WillReturnRows(sqlmock.NewRows(strings.Split(integrationColumns, ", ")).
			AddRow(integrationValues(9, "page-token", time.Now())...))

	require.NoError(t, NewIntegrationRepositoryGorm(gormDB).Upsert(context.Background(), metaRecord("page-token")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIntegrationRepositoryGorm_GetNotFound(t *testing.T) {
	gormDB, mock := newMockGorm(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `integrations`")).
		WillReturnRows(sqlmock.NewRows(strings.Split(integrationColumns, ", ")))

	_, err := NewIntegrationRepositoryGorm(gormDB).Get(context.Background(), "c1", model.PlatformWhatsApp)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
