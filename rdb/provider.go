package rdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ResultSet 一次 SELECT 的结果，列顺序与结果集一致
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Session 一个打开的数据库连接，调用方负责 Close
type Session interface {
	// SelectAll 执行 SELECT * FROM table
	SelectAll(ctx context.Context, table string) (*ResultSet, error)
	// UpdateCell 执行 UPDATE table SET column = ? WHERE keyColumn = ?，value 和 key 按顺序绑定
	UpdateCell(ctx context.Context, table, column, keyColumn string, value, key any) error
	Close() error
}

// Opener 每次调用都打开一个新连接
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// Provider 按固定配置打开连接，不做连接池和重试
type Provider struct {
	driver string
	dsn    string
}

func NewProviderWithOptions(options *ProviderOptions) (*Provider, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}
	dsn, err := options.FormatDSN()
	if err != nil {
		return nil, err
	}
	return &Provider{driver: options.Driver, dsn: dsn}, nil
}

func (p *Provider) Driver() string {
	return p.driver
}

// Open 打开一个独占连接，失败时不会泄漏任何资源
func (p *Provider) Open(ctx context.Context) (Session, error) {
	db, err := sql.Open(p.driver, p.dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "acquire connection")
	}

	return &sqlSession{db: db, conn: conn}, nil
}

type sqlSession struct {
	db   *sql.DB
	conn *sql.Conn
}

func (s *sqlSession) SelectAll(ctx context.Context, table string) (*ResultSet, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, errors.Wrapf(err, "select from %s", table)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns")
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, "read column types")
	}

	result := &ResultSet{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		row, err := scanRow(rows, types)
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate %s", table)
	}

	return result, nil
}

func (s *sqlSession) UpdateCell(ctx context.Context, table, column, keyColumn string, value, key any) error {
	for _, ident := range []string{table, column, keyColumn} {
		if err := ValidateIdentifier(ident); err != nil {
			return err
		}
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", table, column, keyColumn)
	if _, err := s.conn.ExecContext(ctx, query, value, key); err != nil {
		return errors.Wrapf(err, "update %s.%s", table, column)
	}
	return nil
}

func (s *sqlSession) Close() error {
	err := s.conn.Close()
	if dbErr := s.db.Close(); err == nil {
		err = dbErr
	}
	return err
}

// scanRow 把一行读成按列对齐的值
func scanRow(rows *sql.Rows, types []*sql.ColumnType) ([]any, error) {
	values := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, errors.Wrap(err, "scan row")
	}
	for i, ct := range types {
		values[i] = nativeValue(ct.DatabaseTypeName(), values[i])
	}
	return values, nil
}

// DriverMessage 提取驱动返回的原始错误信息，用于展示给用户
func DriverMessage(err error) string {
	if err == nil {
		return ""
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Message
	}
	return strings.TrimSpace(errors.Cause(err).Error())
}
