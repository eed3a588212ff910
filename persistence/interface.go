// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/ludoclient/config"
	"github.com/wfunc/ludoclient/models"
)

// Database 对局历史存储接口
type Database interface {
	SaveGameRecord(ctx context.Context, record models.GameRecord) error
	LoadGameRecord(ctx context.Context, gameID string) (models.GameRecord, error)
	RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrUnknownDriver  = fmt.Errorf("unknown history driver")
)

// Open returns the store selected by cfg.Driver, or nil for "none".
func Open(cfg config.HistoryConfig) (Database, error) {
	var (
		db  Database
		err error
	)
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "ludoclient.db"
		}
		var s *GormStore
		if s, err = NewGormSQLite(dsn); err == nil {
			db = s
		}
	case "postgres":
		var s *GormStore
		if cfg.DSN != "" {
			s, err = NewGormPostgreSQLDSN(cfg.DSN)
		} else {
			s, err = NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		}
		if err == nil {
			db = s
		}
	case "pq":
		var p *PostgreSQL
		if cfg.DSN != "" {
			p, err = NewPostgreSQLDSN(cfg.DSN)
		} else {
			p, err = NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		}
		if err == nil {
			db = p
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s history store: %w", cfg.Driver, err)
	}
	return db, nil
}

func postgresDSN(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}
