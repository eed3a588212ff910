// persistence/gorm_store.go
package persistence

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/wfunc/ludoclient/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore 使用GORM的历史存储，PostgreSQL 与 SQLite 共用
type GormStore struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormStore, error) {
	return NewGormPostgreSQLDSN(postgresDSN(host, port, user, password, dbname))
}

func NewGormPostgreSQLDSN(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	return newGormStore(db, 100)
}

// NewGormSQLite opens a local history file. ":memory:" gives a throwaway store.
func NewGormSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}
	// sqlite 单连接，避免 :memory: 每个连接各自一个库
	return newGormStore(db, 1)
}

func gormConfig() *gorm.Config {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,
		},
	)
	return &gorm.Config{Logger: gormLogger}
}

func newGormStore(db *gorm.DB, maxOpen int) (*GormStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(min(10, maxOpen))
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormGameRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// SaveGameRecord 保存对局记录，同一 game_id 覆盖
func (s *GormStore) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	row := models.GormGameRecord{
		GameID:   record.GameID,
		RoomCode: record.RoomCode,
		Status:   record.Status,
		Winner:   record.Winner,
		Snapshot: record.Snapshot,
		EndedAt:  record.EndedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"room_code", "status", "winner", "snapshot", "ended_at", "updated_at"}),
	}).Create(&row).Error
}

// LoadGameRecord 按 game_id 加载
func (s *GormStore) LoadGameRecord(ctx context.Context, gameID string) (models.GameRecord, error) {
	var row models.GormGameRecord
	if err := s.db.WithContext(ctx).Where("game_id = ?", gameID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GameRecord{}, ErrRecordNotFound
		}
		return models.GameRecord{}, err
	}
	return row.ToRecord(), nil
}

// RecentGames returns up to limit records, most recently ended first.
func (s *GormStore) RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	var rows []models.GormGameRecord
	err := s.db.WithContext(ctx).
		Order("ended_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.GameRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToRecord())
	}
	return records, nil
}

// Close 关闭数据库连接
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
