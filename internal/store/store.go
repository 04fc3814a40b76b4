// Package store is the durable key/value store behind every persisted
// setting, assignment and access list. Each kind lives in its own table of
// int64 keys and text values, backed by sqlite or mysql through gorm.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/zulandar/yukki/internal/config"
	"github.com/zulandar/yukki/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrUnavailable wraps every failure of the underlying database. Callers
// test for it with errors.Is to decide whether to fall back to defaults.
var ErrUnavailable = errors.New("store: unavailable")

// Table names.
const (
	TableAssistants       = "assistants"
	TableLanguage         = "language"
	TablePlayMode         = "playmode"
	TablePlayType         = "playtype"
	TableChannelPlayMode  = "channelplaymode"
	TableAdminAuth        = "adminauth"
	TableAudioQuality     = "audioquality"
	TableVideoQuality     = "videoquality"
	TableVideoCalls       = "videocalls"
	TableOnOff            = "onoff"
	TableSudoers          = "sudoers"
	TableServedChats      = "served_chats"
	TableServedUsers      = "served_users"
	TableBlacklistedChats = "blacklisted_chats"
	TableGbannedUsers     = "gbanned_users"
	TableBannedUsers      = "banned_users"
	TableNotes            = "notes"
	TableFilters          = "filters"
	TableAuthUsers        = "authusers"
	TablePlaylists        = "playlists"
)

// Tables lists every table Migrate creates.
var Tables = []string{
	TableAssistants,
	TableLanguage,
	TablePlayMode,
	TablePlayType,
	TableChannelPlayMode,
	TableAdminAuth,
	TableAudioQuality,
	TableVideoQuality,
	TableVideoCalls,
	TableOnOff,
	TableSudoers,
	TableServedChats,
	TableServedUsers,
	TableBlacklistedChats,
	TableGbannedUsers,
	TableBannedUsers,
	TableNotes,
	TableFilters,
	TableAuthUsers,
	TablePlaylists,
}

var knownTables = func() map[string]bool {
	m := make(map[string]bool, len(Tables))
	for _, t := range Tables {
		m[t] = true
	}
	return m
}()

// Filter restricts Keys and Count by the sign of the key.
type Filter int

const (
	AllKeys Filter = iota
	PositiveKeys
	NegativeKeys
)

// Store is a handle on the durable store.
type Store struct {
	db     *gorm.DB
	driver string
	path   string
}

// DSN builds a MySQL DSN from the store config.
func DSN(c config.MySQLConfig) string {
	mc := mysqldriver.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Open connects to the store described by cfg. It does not migrate.
func Open(cfg config.StoreConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.Path + "?_busy_timeout=5000")
	case "mysql":
		dialector = mysql.Open(DSN(cfg.MySQL))
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w: %w", cfg.Driver, ErrUnavailable, err)
	}
	s := New(db)
	s.path = cfg.Path
	return s, nil
}

// New wraps an existing gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db, driver: db.Dialector.Name()}
}

// DB returns the underlying gorm connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Driver returns the dialect name, "sqlite" or "mysql".
func (s *Store) Driver() string { return s.driver }

// Path returns the sqlite file path, or "" for other drivers.
func (s *Store) Path() string { return s.path }

// Migrate creates or updates every table in Tables.
func (s *Store) Migrate(ctx context.Context) error {
	for _, t := range Tables {
		if err := s.db.WithContext(ctx).Table(t).AutoMigrate(&models.Row{}); err != nil {
			return fmt.Errorf("store: migrate %s: %w", t, err)
		}
	}
	return nil
}

// Get returns the value stored under id. The bool is false when no row
// exists.
func (s *Store) Get(ctx context.Context, table string, id int64) (string, bool, error) {
	if err := checkTable(table); err != nil {
		return "", false, err
	}
	var row models.Row
	res := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Limit(1).Find(&row)
	if res.Error != nil {
		return "", false, fmt.Errorf("store: get %s/%d: %w: %w", table, id, ErrUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}
	return row.Value, true, nil
}

// Set upserts the value stored under id.
func (s *Store) Set(ctx context.Context, table string, id int64, value string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	row := models.Row{ID: id, Value: value}
	err := s.db.WithContext(ctx).Table(table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store: set %s/%d: %w: %w", table, id, ErrUnavailable, err)
	}
	return nil
}

// Delete removes the row stored under id, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, table string, id int64) (bool, error) {
	if err := checkTable(table); err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Delete(&models.Row{})
	if res.Error != nil {
		return false, fmt.Errorf("store: delete %s/%d: %w: %w", table, id, ErrUnavailable, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Keys returns the ids in table matching f, in ascending order.
func (s *Store) Keys(ctx context.Context, table string, f Filter) ([]int64, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	var ids []int64
	err := filtered(s.db.WithContext(ctx).Table(table), f).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("store: keys %s: %w: %w", table, ErrUnavailable, err)
	}
	return ids, nil
}

// Count returns the number of rows in table matching f.
func (s *Store) Count(ctx context.Context, table string, f Filter) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	var n int64
	if err := filtered(s.db.WithContext(ctx).Table(table), f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count %s: %w: %w", table, ErrUnavailable, err)
	}
	return n, nil
}

// Rows returns every row in table matching f, in ascending key order.
func (s *Store) Rows(ctx context.Context, table string, f Filter) ([]models.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	var rows []models.Row
	if err := filtered(s.db.WithContext(ctx).Table(table), f).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: rows %s: %w: %w", table, ErrUnavailable, err)
	}
	return rows, nil
}

// GetJSON decodes the value under id into v. The bool is false when no
// row exists, in which case v is untouched.
func (s *Store) GetJSON(ctx context.Context, table string, id int64, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, table, id)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("store: decode %s/%d: %w", table, id, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under id.
func (s *Store) SetJSON(ctx context.Context, table string, id int64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s/%d: %w", table, id, err)
	}
	return s.Set(ctx, table, id, string(data))
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return sqlDB.Close()
}

func filtered(q *gorm.DB, f Filter) *gorm.DB {
	switch f {
	case PositiveKeys:
		return q.Where("id > ?", 0)
	case NegativeKeys:
		return q.Where("id < ?", 0)
	}
	return q
}

func checkTable(table string) error {
	if !knownTables[table] {
		return fmt.Errorf("store: unknown table %q", table)
	}
	return nil
}
