package rdb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testProdus struct {
	ID   int64   `gorm:"column:id;primaryKey"`
	Nume string  `gorm:"column:nume"`
	Pret float64 `gorm:"column:pret"`
}

func (testProdus) TableName() string { return "produs" }

func seedSQLite(t *testing.T, records []testProdus) string {
	path := filepath.Join(t.TempDir(), "magazin.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&testProdus{}); err != nil {
		t.Fatal(err)
	}
	if len(records) > 0 {
		if err := db.Create(&records).Error; err != nil {
			t.Fatal(err)
		}
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()
	return path
}

func TestProviderOptions(t *testing.T) {
	Convey("ProviderOptions.FormatDSN", t, func() {
		Convey("mysql", func() {
			dsn, err := (&ProviderOptions{
				Driver:   "mysql",
				Host:     "db.local",
				Port:     "3306",
				Database: "magazin",
				Username: "root",
				Password: "secret",
				Charset:  "utf8mb4",
			}).FormatDSN()
			So(err, ShouldBeNil)
			So(strings.HasPrefix(dsn, "root:secret@tcp(db.local:3306)/magazin?"), ShouldBeTrue)
			So(dsn, ShouldContainSubstring, "parseTime=true")
			So(dsn, ShouldContainSubstring, "charset=utf8mb4")

			parsed, err := mysql.ParseDSN(dsn)
			So(err, ShouldBeNil)
			So(parsed.DBName, ShouldEqual, "magazin")
		})

		Convey("显式 DSN 优先", func() {
			dsn, err := (&ProviderOptions{Driver: "mysql", DSN: "u:p@tcp(h:1)/d"}).FormatDSN()
			So(err, ShouldBeNil)
			So(dsn, ShouldEqual, "u:p@tcp(h:1)/d")
		})

		Convey("sqlite3", func() {
			dsn, err := (&ProviderOptions{Driver: "sqlite3", Database: "/tmp/a.db"}).FormatDSN()
			So(err, ShouldBeNil)
			So(dsn, ShouldEqual, "/tmp/a.db")
		})

		Convey("不支持的驱动", func() {
			_, err := NewProviderWithOptions(&ProviderOptions{Driver: "postgres"})
			So(err, ShouldNotBeNil)
			_, err = NewProviderWithOptions(nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestProvider(t *testing.T) {
	Convey("Provider", t, func() {
		ctx := context.Background()
		path := seedSQLite(t, []testProdus{
			{ID: 1, Nume: "paine", Pret: 4.5},
			{ID: 2, Nume: "lapte", Pret: 7},
			{ID: 3, Nume: "unt", Pret: 12.25},
		})
		provider, err := NewProviderWithOptions(&ProviderOptions{Driver: "sqlite3", Database: path})
		So(err, ShouldBeNil)
		So(provider.Driver(), ShouldEqual, "sqlite3")

		session, err := provider.Open(ctx)
		So(err, ShouldBeNil)
		defer session.Close()

		Convey("SelectAll 按结果集顺序读取列和行", func() {
			result, err := session.SelectAll(ctx, "produs")
			So(err, ShouldBeNil)
			So(result.Columns, ShouldResemble, []string{"id", "nume", "pret"})
			So(len(result.Rows), ShouldEqual, 3)
			So(result.Rows[0], ShouldResemble, []any{int64(1), "paine", 4.5})
			for _, row := range result.Rows {
				So(len(row), ShouldEqual, len(result.Columns))
			}
		})

		Convey("SelectAll 空表", func() {
			empty := seedSQLite(t, nil)
			p, _ := NewProviderWithOptions(&ProviderOptions{Driver: "sqlite3", Database: empty})
			s, err := p.Open(ctx)
			So(err, ShouldBeNil)
			defer s.Close()

			result, err := s.SelectAll(ctx, "produs")
			So(err, ShouldBeNil)
			So(result.Columns, ShouldResemble, []string{"id", "nume", "pret"})
			So(result.Rows, ShouldBeEmpty)
		})

		Convey("SelectAll 拒绝非法表名", func() {
			_, err := session.SelectAll(ctx, "produs; DROP TABLE produs")
			So(errors.Is(err, ErrInvalidIdentifier), ShouldBeTrue)
		})

		Convey("SelectAll 表不存在", func() {
			_, err := session.SelectAll(ctx, "vanzari")
			So(err, ShouldNotBeNil)
			So(DriverMessage(err), ShouldContainSubstring, "no such table")
		})

		Convey("UpdateCell 按主键更新", func() {
			So(session.UpdateCell(ctx, "produs", "pret", "id", 9.99, int64(2)), ShouldBeNil)

			result, err := session.SelectAll(ctx, "produs")
			So(err, ShouldBeNil)
			So(result.Rows[1], ShouldResemble, []any{int64(2), "lapte", 9.99})
			So(result.Rows[0][2], ShouldEqual, 4.5)
		})

		Convey("UpdateCell 拒绝非法列名", func() {
			err := session.UpdateCell(ctx, "produs", "pret = 0 --", "id", 1, 1)
			So(errors.Is(err, ErrInvalidIdentifier), ShouldBeTrue)
			err = session.UpdateCell(ctx, "produs", "pret", "id name", 1, 1)
			So(errors.Is(err, ErrInvalidIdentifier), ShouldBeTrue)
		})

		Convey("UpdateCell 列不存在", func() {
			So(session.UpdateCell(ctx, "produs", "stoc", "id", 1, 1), ShouldNotBeNil)
		})
	})
}

func TestProviderOpenFailure(t *testing.T) {
	Convey("打开失败时返回错误", t, func() {
		path := filepath.Join(t.TempDir(), "missing", "dir", "magazin.db")
		provider, err := NewProviderWithOptions(&ProviderOptions{Driver: "sqlite3", Database: path})
		So(err, ShouldBeNil)

		session, err := provider.Open(context.Background())
		So(err, ShouldNotBeNil)
		So(session, ShouldBeNil)
		So(DriverMessage(err), ShouldNotBeEmpty)
	})
}

func TestDriverMessage(t *testing.T) {
	Convey("DriverMessage", t, func() {
		So(DriverMessage(nil), ShouldEqual, "")

		err := errors.Wrap(&mysql.MySQLError{Number: 1146, Message: "Table 'magazin.x' doesn't exist"}, "select from x")
		So(DriverMessage(err), ShouldEqual, "Table 'magazin.x' doesn't exist")

		So(DriverMessage(errors.Wrap(errors.New("connection refused"), "ping database")), ShouldEqual, "connection refused")
	})
}
