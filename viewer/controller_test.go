package viewer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/dbviewer/log"
	"github.com/hatlonely/dbviewer/log/writer"
	"github.com/hatlonely/dbviewer/rdb"
	"github.com/hatlonely/dbviewer/ref"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Grupa struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Nume string `gorm:"column:nume"`
}

func (Grupa) TableName() string { return "grupe" }

type Produs struct {
	ID      int64   `gorm:"column:id;primaryKey"`
	Nume    string  `gorm:"column:nume"`
	Price   float64 `gorm:"column:price"`
	IDGrupa int64   `gorm:"column:id_grupa"`
}

func (Produs) TableName() string { return "produs" }

type Vanzare struct {
	ID        int64 `gorm:"column:id;primaryKey"`
	IDProdus  int64 `gorm:"column:id_produs"`
	Cantitate int64 `gorm:"column:cantitate"`
}

func (Vanzare) TableName() string { return "vanzari" }

func seedMagazin(t *testing.T) *rdb.Provider {
	path := filepath.Join(t.TempDir(), "magazin.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&Grupa{}, &Produs{}, &Vanzare{}); err != nil {
		t.Fatal(err)
	}
	grupe := []Grupa{{ID: 1, Nume: "panificatie"}, {ID: 2, Nume: "lactate"}}
	if err := db.Create(&grupe).Error; err != nil {
		t.Fatal(err)
	}
	produse := []Produs{
		{ID: 1, Nume: "paine", Price: 4.5, IDGrupa: 1},
		{ID: 2, Nume: "lapte", Price: 7, IDGrupa: 2},
		{ID: 3, Nume: "unt", Price: 12.25, IDGrupa: 2},
		{ID: 4, Nume: "covrig", Price: 2, IDGrupa: 1},
		{ID: 5, Nume: "iaurt", Price: 4.5, IDGrupa: 2},
	}
	if err := db.Create(&produse).Error; err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()

	provider, err := rdb.NewProviderWithOptions(&rdb.ProviderOptions{Driver: "sqlite3", Database: path})
	if err != nil {
		t.Fatal(err)
	}
	return provider
}

type notice struct {
	Title string
	Msg   string
	Error bool
}

type recordingNotifier struct {
	notices []notice
}

func (n *recordingNotifier) Info(title, msg string) {
	n.notices = append(n.notices, notice{Title: title, Msg: msg})
}

func (n *recordingNotifier) Error(title, msg string) {
	n.notices = append(n.notices, notice{Title: title, Msg: msg, Error: true})
}

type updateCall struct {
	Table, Column, KeyColumn string
	Value, Key               any
}

// recordingOpener 记录打开次数和 UPDATE 参数，可注入失败
type recordingOpener struct {
	opener    rdb.Opener
	openErr   error
	updateErr error
	opened    int
	closed    int
	updates   []updateCall
}

func (o *recordingOpener) Open(ctx context.Context) (rdb.Session, error) {
	o.opened++
	if o.openErr != nil {
		return nil, o.openErr
	}
	session, err := o.opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &recordingSession{Session: session, opener: o}, nil
}

type recordingSession struct {
	rdb.Session
	opener *recordingOpener
}

func (s *recordingSession) UpdateCell(ctx context.Context, table, column, keyColumn string, value, key any) error {
	s.opener.updates = append(s.opener.updates, updateCall{table, column, keyColumn, value, key})
	if s.opener.updateErr != nil {
		return s.opener.updateErr
	}
	return s.Session.UpdateCell(ctx, table, column, keyColumn, value, key)
}

func (s *recordingSession) Close() error {
	s.opener.closed++
	return s.Session.Close()
}

func column(c *Controller, name string) []any {
	g := c.State().Grid
	col := g.ColumnIndex(name)
	var out []any
	for i := 0; i < g.RowCount(); i++ {
		out = append(out, g.Cell(i, col))
	}
	return out
}

func TestController(t *testing.T) {
	Convey("Controller", t, func() {
		ctx := context.Background()
		opener := &recordingOpener{opener: seedMagazin(t)}
		notifier := &recordingNotifier{}
		c := NewController(opener, notifier, DefaultOptions())

		Convey("初始状态", func() {
			So(c.State().Table, ShouldEqual, "grupe")
			So(c.State().Grid.RowCount(), ShouldEqual, 0)
			So(c.Tables(), ShouldResemble, []string{"grupe", "produs", "riscuri", "stocmagazin", "vanzari"})
		})

		Convey("SelectTable", func() {
			So(c.SelectTable("produs"), ShouldBeNil)
			So(c.State().Table, ShouldEqual, "produs")
			So(opener.opened, ShouldEqual, 0)

			err := c.SelectTable("clienti")
			So(IsValidationError(err), ShouldBeTrue)
			So(c.State().Table, ShouldEqual, "produs")
			So(notifier.notices, ShouldResemble, []notice{{Title: "Error", Msg: "Invalid table name", Error: true}})
		})

		Convey("Load 填充表头和行", func() {
			So(c.Load(ctx, "produs"), ShouldBeNil)
			g := c.State().Grid
			So(g.Columns(), ShouldResemble, []string{"id", "nume", "price", "id_grupa"})
			So(g.RowCount(), ShouldEqual, 5)
			for _, row := range g.Rows() {
				So(len(row), ShouldEqual, 4)
			}
			So(g.Cell(0, 0), ShouldEqual, int64(1))
			So(g.Cell(2, 2), ShouldEqual, 12.25)
			So(notifier.notices, ShouldBeEmpty)
			So(opener.opened, ShouldEqual, 1)
			So(opener.closed, ShouldEqual, 1)

			Convey("重复 Load 结果一致", func() {
				before := g.Rows()
				So(c.Load(ctx, "produs"), ShouldBeNil)
				So(g.Rows(), ShouldResemble, before)
				So(g.Columns(), ShouldResemble, []string{"id", "nume", "price", "id_grupa"})
			})
		})

		Convey("Load 空表给出提示", func() {
			So(c.Load(ctx, "vanzari"), ShouldBeNil)
			So(c.State().Grid.Columns(), ShouldResemble, []string{"id", "id_produs", "cantitate"})
			So(c.State().Grid.RowCount(), ShouldEqual, 0)
			So(notifier.notices, ShouldResemble, []notice{{Title: "Info", Msg: "No data available in the table."}})
		})

		Convey("Load 非法表名不访问数据库", func() {
			So(c.Load(ctx, "grupe"), ShouldBeNil)
			err := c.Load(ctx, "grupe; DROP TABLE grupe")
			So(IsValidationError(err), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "Invalid table name")
			So(opener.opened, ShouldEqual, 1)
			So(c.State().Grid.RowCount(), ShouldEqual, 2)
		})

		Convey("Load 查询失败时表格不变", func() {
			So(c.Load(ctx, "grupe"), ShouldBeNil)
			err := c.Load(ctx, "riscuri")
			So(IsQueryError(err), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, "Error loading data: ")
			So(err.Error(), ShouldContainSubstring, "no such table")
			So(c.State().Grid.Columns(), ShouldResemble, []string{"id", "nume"})
			So(c.State().Grid.RowCount(), ShouldEqual, 2)
			So(opener.closed, ShouldEqual, 2)
			So(notifier.notices[len(notifier.notices)-1].Error, ShouldBeTrue)
		})

		Convey("Load 连接失败", func() {
			opener.openErr = errors.Wrap(errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"), "ping database")
			err := c.Load(ctx, "grupe")
			So(IsConnectionError(err), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "Error loading data: dial tcp 127.0.0.1:3306: connect: connection refused")
			So(c.State().Grid.RowCount(), ShouldEqual, 0)
		})

		Convey("Edit", func() {
			So(c.SelectTable("produs"), ShouldBeNil)
			So(c.Load(ctx, "produs"), ShouldBeNil)

			Convey("绑定新值和主键各一次", func() {
				So(c.Edit(ctx, 0, 1, "cozonac"), ShouldBeNil)
				So(opener.updates, ShouldResemble, []updateCall{{"produs", "nume", "id", "cozonac", int64(1)}})
				So(c.State().Grid.Cell(0, 1), ShouldEqual, "cozonac")

				So(c.Load(ctx, "produs"), ShouldBeNil)
				So(c.State().Grid.Cell(0, 1), ShouldEqual, "cozonac")
			})

			Convey("文本按原类型解析", func() {
				So(c.Edit(ctx, 1, 2, "9.99"), ShouldBeNil)
				So(c.State().Grid.Cell(1, 2), ShouldEqual, 9.99)
				So(opener.updates[0].Value, ShouldEqual, 9.99)
			})

			Convey("负数下标被忽略", func() {
				So(c.Edit(ctx, -1, 1, "x"), ShouldBeNil)
				So(c.Edit(ctx, 0, -1, "x"), ShouldBeNil)
				So(opener.updates, ShouldBeEmpty)
			})

			Convey("UPDATE 失败时保留新值", func() {
				opener.updateErr = errors.New("Data too long for column 'nume'")
				err := c.Edit(ctx, 2, 1, "smantana")
				So(IsUpdateError(err), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "Error updating data: Data too long for column 'nume'")
				So(c.State().Grid.Cell(2, 1), ShouldEqual, "smantana")
				So(len(opener.updates), ShouldEqual, 1)
			})

			Convey("连接失败时保留新值", func() {
				opener.openErr = errors.New("connection refused")
				err := c.Edit(ctx, 2, 1, "smantana")
				So(IsConnectionError(err), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "Error updating data: connection refused")
				So(c.State().Grid.Cell(2, 1), ShouldEqual, "smantana")
			})

			Convey("排序后按新位置的主键更新", func() {
				So(c.Sort("price"), ShouldBeNil)
				So(c.Edit(ctx, 0, 1, "covrig mare"), ShouldBeNil)
				So(opener.updates, ShouldResemble, []updateCall{{"produs", "nume", "id", "covrig mare", int64(4)}})
			})
		})

		Convey("Edit 非法列名不访问数据库", func() {
			So(c.State().Grid.Replace([]string{"id", "pret total"}, [][]any{{int64(1), 2.0}}), ShouldBeNil)
			openedBefore := opener.opened
			err := c.Edit(ctx, 0, 1, 3.0)
			So(IsValidationError(err), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "Invalid column name")
			So(c.State().Grid.Cell(0, 1), ShouldEqual, 3.0)
			So(opener.opened, ShouldEqual, openedBefore)
		})

		Convey("Sort", func() {
			So(c.Load(ctx, "produs"), ShouldBeNil)

			Convey("按数值升序且稳定", func() {
				So(c.Sort(" price "), ShouldBeNil)
				So(column(c, "price"), ShouldResemble, []any{2.0, 4.5, 4.5, 7.0, 12.25})
				So(column(c, "id"), ShouldResemble, []any{int64(4), int64(1), int64(5), int64(2), int64(3)})

				Convey("幂等", func() {
					So(c.Sort("price"), ShouldBeNil)
					So(column(c, "id"), ShouldResemble, []any{int64(4), int64(1), int64(5), int64(2), int64(3)})
				})
			})

			Convey("按文本排序", func() {
				So(c.Sort("nume"), ShouldBeNil)
				So(column(c, "nume"), ShouldResemble, []any{"covrig", "iaurt", "lapte", "paine", "unt"})
			})

			Convey("列不存在时表格不变", func() {
				before := c.State().Grid.Rows()
				err := c.Sort("nonexistent")
				So(IsColumnNotFoundError(err), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "Error sorting data: Column not found")
				So(c.State().Grid.Rows(), ShouldResemble, before)
			})

			Convey("非法列名", func() {
				err := c.Sort("price; --")
				So(IsValidationError(err), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "Invalid column name")
				So(IsValidationError(c.Sort("   ")), ShouldBeTrue)
			})

			Convey("大小写敏感", func() {
				So(IsColumnNotFoundError(c.Sort("Price")), ShouldBeTrue)
			})
		})
	})
}

func TestNewControllerDefaults(t *testing.T) {
	Convey("NewController 使用默认配置", t, func() {
		c := NewController(&recordingOpener{}, nil, nil)
		So(c.State().Table, ShouldEqual, "grupe")

		c = NewController(&recordingOpener{}, nil, &Options{Tables: []string{"a", "b"}, DefaultTable: "b"})
		So(c.State().Table, ShouldEqual, "b")

		c = NewController(&recordingOpener{}, nil, &Options{})
		So(c.SelectTable("orice"), ShouldBeNil)
		So(c.State().Table, ShouldEqual, "orice")
		So(IsValidationError(c.SelectTable("a-b")), ShouldBeTrue)
	})
}

func TestErrors(t *testing.T) {
	Convey("Error", t, func() {
		cause := errors.New("boom")
		err := errors.WithMessage(newError(QueryError, "Error loading data: boom", cause), "load")
		So(KindOf(err), ShouldEqual, QueryError)
		So(IsQueryError(err), ShouldBeTrue)
		So(IsUpdateError(err), ShouldBeFalse)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(KindOf(cause), ShouldEqual, Kind(0))
		So(ColumnNotFoundError.String(), ShouldEqual, "ColumnNotFoundError")
		So(Kind(42).String(), ShouldEqual, "Kind(42)")

		var e *Error
		So(errors.As(err, &e), ShouldBeTrue)
		So(e.Msg, ShouldEqual, "Error loading data: boom")
	})
}

type sequentialIDs struct {
	n int
}

func (g *sequentialIDs) Generate() string {
	g.n++
	return fmt.Sprintf("action-%d", g.n)
}

func TestControllerLogging(t *testing.T) {
	Convey("同一次动作的日志带相同的 actionId", t, func() {
		path := filepath.Join(t.TempDir(), "viewer.log")
		logger, err := log.NewLoggerWithOptions(&log.Options{
			Level:  "debug",
			Format: "json",
			Output: &ref.TypeOptions{
				Namespace: writer.Namespace,
				Type:      "FileWriter",
				Options:   &writer.FileWriterOptions{Path: path},
			},
		})
		So(err, ShouldBeNil)

		c := NewController(&recordingOpener{opener: seedMagazin(t)}, nil, DefaultOptions())
		c.SetLogger(logger)
		c.SetIDGenerator(&sequentialIDs{})

		So(c.Load(context.Background(), "grupe"), ShouldBeNil)
		So(IsColumnNotFoundError(c.Sort("missing")), ShouldBeTrue)
		So(logger.Close(), ShouldBeNil)

		content, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(content), ShouldContainSubstring, `"msg":"database connected","action":"load","actionId":"action-1"`)
		So(string(content), ShouldContainSubstring, `"msg":"data loaded successfully","action":"load","actionId":"action-1"`)
		So(string(content), ShouldContainSubstring, `"action":"sort","actionId":"action-2","kind":"ColumnNotFoundError"`)
	})
}
