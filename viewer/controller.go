package viewer

import (
	"context"
	"slices"
	"strings"

	"github.com/hatlonely/dbviewer/grid"
	"github.com/hatlonely/dbviewer/log"
	"github.com/hatlonely/dbviewer/rdb"
	"github.com/hatlonely/dbviewer/uid"
	"github.com/pkg/errors"
)

const (
	TitleError = "Error"
	TitleInfo  = "Info"

	MsgInvalidTableName  = "Invalid table name"
	MsgInvalidColumnName = "Invalid column name"
	MsgNoData            = "No data available in the table."
	MsgColumnNotFound    = "Error sorting data: Column not found"
)

// Notifier 阻塞式的用户通知，调用返回时用户已确认
type Notifier interface {
	Info(title, msg string)
	Error(title, msg string)
}

type nopNotifier struct{}

func (nopNotifier) Info(title, msg string)  {}
func (nopNotifier) Error(title, msg string) {}

// State 应用状态，由 Controller 持有
type State struct {
	// Table 当前选中的表，Load 和 Edit 的目标
	Table string
	Grid  *grid.Grid
}

// Controller 处理 SelectTable/Load/Edit/Sort 四个动作
// 所有动作同步执行，调用方需要保证串行
type Controller struct {
	opener   rdb.Opener
	notifier Notifier
	options  *Options
	logger   log.Logger
	ids      uid.Generator
	state    *State
}

func NewController(opener rdb.Opener, notifier Notifier, options *Options) *Controller {
	if options == nil {
		options = DefaultOptions()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	table := options.DefaultTable
	if table == "" && len(options.Tables) > 0 {
		table = options.Tables[0]
	}

	return &Controller{
		opener:   opener,
		notifier: notifier,
		options:  options,
		logger:   log.Default().WithGroup("viewer"),
		ids:      uid.NewUUIDGeneratorWithOptions(nil),
		state:    &State{Table: table, Grid: grid.New()},
	}
}

func (c *Controller) SetLogger(logger log.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetIDGenerator 设置动作 ID 生成器，同一次动作的日志带相同的 actionId
func (c *Controller) SetIDGenerator(ids uid.Generator) {
	if ids != nil {
		c.ids = ids
	}
}

func (c *Controller) State() *State {
	return c.state
}

func (c *Controller) Tables() []string {
	return append([]string(nil), c.options.Tables...)
}

// SelectTable 只记录当前表，不访问数据库
func (c *Controller) SelectTable(name string) error {
	logger := c.actionLogger("selectTable")
	if !rdb.IsIdentifier(name) || (len(c.options.Tables) > 0 && !slices.Contains(c.options.Tables, name)) {
		return c.fail(logger, newError(ValidationError, MsgInvalidTableName, errors.Errorf("table %q not allowed", name)))
	}
	c.state.Table = name
	logger.Debug("select table", "table", name)
	return nil
}

// Load 读取整张表替换表格，失败时表格保持不变
func (c *Controller) Load(ctx context.Context, name string) error {
	logger := c.actionLogger("load")
	if err := rdb.ValidateIdentifier(name); err != nil {
		return c.fail(logger, newError(ValidationError, MsgInvalidTableName, err))
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	session, err := c.opener.Open(ctx)
	if err != nil {
		return c.fail(logger, newError(ConnectionError, "Error loading data: "+rdb.DriverMessage(err), err))
	}
	defer c.close(logger, session)
	logger.InfoContext(ctx, "database connected")

	logger.DebugContext(ctx, "executing query", "query", "SELECT * FROM "+name)
	result, err := session.SelectAll(ctx, name)
	if err != nil {
		return c.fail(logger, newError(QueryError, "Error loading data: "+rdb.DriverMessage(err), err))
	}
	logger.DebugContext(ctx, "read columns", "table", name, "count", len(result.Columns), "columns", result.Columns)

	if err := c.state.Grid.Replace(result.Columns, result.Rows); err != nil {
		return c.fail(logger, newError(QueryError, "Error loading data: "+err.Error(), err))
	}
	c.state.Table = name

	if len(result.Rows) == 0 {
		logger.InfoContext(ctx, "no data available", "table", name)
		c.notifier.Info(TitleInfo, MsgNoData)
		return nil
	}
	logger.InfoContext(ctx, "data loaded successfully", "table", name, "rows", len(result.Rows))
	return nil
}

// Edit 修改单元格并以第 0 列为主键写回数据库
// 单元格先于校验和写库被修改，任何失败都不回滚
// value 为字符串时按单元格原有类型解析
func (c *Controller) Edit(ctx context.Context, row, col int, value any) error {
	if row < 0 || col < 0 {
		return nil
	}
	logger := c.actionLogger("edit")

	g := c.state.Grid
	if text, ok := value.(string); ok {
		value = grid.ParseLike(g.Cell(row, col), text)
	}
	g.SetCell(row, col, value)

	column := g.ColumnName(col)
	if err := rdb.ValidateIdentifier(column); err != nil {
		return c.fail(logger, newError(ValidationError, MsgInvalidColumnName, err))
	}
	keyColumn := g.ColumnName(0)
	if err := rdb.ValidateIdentifier(keyColumn); err != nil {
		return c.fail(logger, newError(ValidationError, MsgInvalidColumnName, err))
	}
	table := c.state.Table
	if err := rdb.ValidateIdentifier(table); err != nil {
		return c.fail(logger, newError(ValidationError, MsgInvalidTableName, err))
	}
	key := g.Cell(row, 0)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	session, err := c.opener.Open(ctx)
	if err != nil {
		return c.fail(logger, newError(ConnectionError, "Error updating data: "+rdb.DriverMessage(err), err))
	}
	defer c.close(logger, session)

	if err := session.UpdateCell(ctx, table, column, keyColumn, value, key); err != nil {
		logger.WarnContext(ctx, "grid diverges from database until next load", "table", table, "column", column, "key", key)
		return c.fail(logger, newError(UpdateError, "Error updating data: "+rdb.DriverMessage(err), err))
	}
	logger.InfoContext(ctx, "updated database", "table", table, "column", column, "keyColumn", keyColumn, "key", key)
	return nil
}

// Sort 按列名稳定升序排序
func (c *Controller) Sort(text string) error {
	logger := c.actionLogger("sort")
	name := strings.TrimSpace(text)
	if err := rdb.ValidateIdentifier(name); err != nil {
		return c.fail(logger, newError(ValidationError, MsgInvalidColumnName, err))
	}

	col := c.state.Grid.ColumnIndex(name)
	if col < 0 {
		return c.fail(logger, newError(ColumnNotFoundError, MsgColumnNotFound, errors.Errorf("column %q not found", name)))
	}

	c.state.Grid.Sort(col)
	logger.Debug("sorted", "column", name)
	return nil
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.options.Timeout > 0 {
		return context.WithTimeout(ctx, c.options.Timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Controller) close(logger log.Logger, session rdb.Session) {
	if err := session.Close(); err != nil {
		logger.Warn("close session failed", "error", err.Error())
	}
}

func (c *Controller) actionLogger(action string) log.Logger {
	return c.logger.With("action", action, "actionId", c.ids.Generate())
}

// fail 记录日志并通知用户，返回原错误
func (c *Controller) fail(logger log.Logger, err *Error) error {
	args := []any{"kind", err.Kind.String(), "message", err.Msg}
	if err.Err != nil {
		args = append(args, "error", err.Err.Error())
	}
	logger.Error("action failed", args...)
	c.notifier.Error(TitleError, err.Msg)
	return err
}
