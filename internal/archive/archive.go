// Package archive 把聊天室中的每一行写入 SQLite，便于回看
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const writeTimeout = 5 * time.Second

// Store 聊天记录存档，实现 chat.Sink
type Store struct {
	db      *sql.DB
	session uuid.UUID
	logger  zerolog.Logger
}

// Open 打开（或创建）数据库并初始化表结构，每次打开生成一个新的会话 ID
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// 单连接避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}

	s := &Store{
		db:      db,
		session: uuid.New(),
		logger:  logger.With().Str("component", "archive").Logger(),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS chat_lines (
		id TEXT PRIMARY KEY,
		session TEXT NOT NULL,
		speaker TEXT NOT NULL,
		text TEXT NOT NULL,
		color TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_lines_created ON chat_lines(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Session 返回本次运行的会话 ID
func (s *Store) Session() uuid.UUID {
	return s.session
}

// Save 写入一行
func (s *Store) Save(ctx context.Context, line chat.Line) error {
	query := `
	INSERT INTO chat_lines (id, session, speaker, text, color, source, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		line.ID.String(), s.session.String(), line.Speaker, line.Text,
		line.Color, string(line.Source), line.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert line: %w", err)
	}
	return nil
}

// Publish 实现 chat.Sink；写入失败只记录日志
func (s *Store) Publish(line chat.Line) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.Save(ctx, line); err != nil {
		s.logger.Error().Err(err).Str("line_id", line.ID.String()).Msg("failed to archive line")
	}
}

// Recent 返回最近的 n 行（所有会话），按时间从旧到新排列
func (s *Store) Recent(ctx context.Context, n int) ([]chat.Line, error) {
	if n <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, speaker, text, color, source, created_at
		FROM chat_lines
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("query recent lines: %w", err)
	}
	defer rows.Close()

	var lines []chat.Line
	for rows.Next() {
		var (
			line      chat.Line
			id        string
			source    string
			createdAt int64
		)
		if err := rows.Scan(&id, &line.Speaker, &line.Text, &line.Color, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan line row: %w", err)
		}
		line.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse line id: %w", err)
		}
		line.Source = chat.Source(source)
		line.At = time.Unix(0, createdAt)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line rows: %w", err)
	}

	// 反转为时间正序
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}

// Count 返回当前会话写入的行数
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_lines WHERE session = ?`, s.session.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count lines: %w", err)
	}
	return n, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}
