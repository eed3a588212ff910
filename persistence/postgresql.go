// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"
	"github.com/wfunc/ludoclient/models"
)

// PostgreSQL 原生SQL实现，表结构与 GormStore 兼容
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	return NewPostgreSQLDSN(postgresDSN(host, port, user, password, dbname))
}

func NewPostgreSQLDSN(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            game_id TEXT NOT NULL,
            room_code TEXT,
            status TEXT NOT NULL,
            winner TEXT,
            snapshot BYTEA NOT NULL,
            ended_at TIMESTAMPTZ
        )
    `)
	if err != nil {
		return err
	}

	// 索引名与 GORM 迁移生成的一致
	_, err = db.ExecContext(ctx, `
        CREATE UNIQUE INDEX IF NOT EXISTS idx_game_records_game_id ON game_records(game_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_room_code ON game_records(room_code);
        CREATE INDEX IF NOT EXISTS idx_game_records_ended_at ON game_records(ended_at);
        CREATE INDEX IF NOT EXISTS idx_game_records_deleted_at ON game_records(deleted_at);
    `)
	return err
}

// SaveGameRecord 保存对局记录 (UPSERT, PostgreSQL 9.5+)
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	query := `
        INSERT INTO game_records (game_id, room_code, status, winner, snapshot, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (game_id)
        DO UPDATE SET room_code = $2, status = $3, winner = $4, snapshot = $5, ended_at = $6,
                      updated_at = CURRENT_TIMESTAMP
    `
	_, err := p.db.ExecContext(ctx, query,
		record.GameID, record.RoomCode, record.Status, record.Winner, record.Snapshot, record.EndedAt)
	return err
}

// LoadGameRecord 按 game_id 加载
func (p *PostgreSQL) LoadGameRecord(ctx context.Context, gameID string) (models.GameRecord, error) {
	query := `
        SELECT game_id, COALESCE(room_code, ''), status, COALESCE(winner, ''), snapshot, ended_at, created_at
        FROM game_records WHERE game_id = $1 AND deleted_at IS NULL
    `
	record, err := scanRecord(p.db.QueryRowContext(ctx, query, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.GameRecord{}, ErrRecordNotFound
	}
	return record, err
}

// RecentGames returns up to limit records, most recently ended first.
func (p *PostgreSQL) RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	query := `
        SELECT game_id, COALESCE(room_code, ''), status, COALESCE(winner, ''), snapshot, ended_at, created_at
        FROM game_records WHERE deleted_at IS NULL
        ORDER BY ended_at DESC LIMIT $1
    `
	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.GameRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.GameRecord, error) {
	var (
		r       models.GameRecord
		endedAt sql.NullTime
		created sql.NullTime
	)
	if err := row.Scan(&r.GameID, &r.RoomCode, &r.Status, &r.Winner, &r.Snapshot, &endedAt, &created); err != nil {
		return models.GameRecord{}, err
	}
	r.EndedAt = endedAt.Time
	r.CreatedAt = created.Time
	return r, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
