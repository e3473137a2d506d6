package grid

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

type ChangeKind int

const (
	// Replaced 整个表格内容被替换
	Replaced ChangeKind = iota
	// Updated 单个单元格被修改，Row/Column 有效
	Updated
	// Sorted 行顺序被重排
	Sorted
)

func (k ChangeKind) String() string {
	switch k {
	case Replaced:
		return "Replaced"
	case Updated:
		return "Updated"
	case Sorted:
		return "Sorted"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

type Change struct {
	Kind   ChangeKind
	Row    int
	Column int
}

// Grid 内存中的表格，列头加行数据，每一行的长度与列头一致
// 下标越界视为编程错误，直接 panic
type Grid struct {
	mu        sync.RWMutex
	columns   []string
	rows      [][]any
	listeners []func(Change)
}

func New() *Grid {
	return &Grid{}
}

// OnChange 注册变更监听，回调在锁外执行，可以安全地读取表格
func (g *Grid) OnChange(fn func(Change)) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

// Replace 原子地替换全部内容，入参会被复制
func (g *Grid) Replace(columns []string, rows [][]any) error {
	for i, row := range rows {
		if len(row) != len(columns) {
			return errors.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
	}

	newColumns := append([]string(nil), columns...)
	newRows := make([][]any, len(rows))
	for i, row := range rows {
		newRows[i] = append([]any(nil), row...)
	}

	g.mu.Lock()
	g.columns = newColumns
	g.rows = newRows
	g.mu.Unlock()

	g.notify(Change{Kind: Replaced, Row: -1, Column: -1})
	return nil
}

func (g *Grid) SetCell(row, col int, value any) {
	g.setCell(row, col, value)
	g.notify(Change{Kind: Updated, Row: row, Column: col})
}

func (g *Grid) setCell(row, col int, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkIndex(row, col)
	g.rows[row][col] = value
}

func (g *Grid) Cell(row, col int) any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	g.checkIndex(row, col)
	return g.rows[row][col]
}

func (g *Grid) ColumnName(col int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if col < 0 || col >= len(g.columns) {
		panic(fmt.Sprintf("grid: column %d out of range [0, %d)", col, len(g.columns)))
	}
	return g.columns[col]
}

// ColumnIndex 按列名精确匹配，找不到返回 -1
func (g *Grid) ColumnIndex(name string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for i, c := range g.columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (g *Grid) Columns() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.columns...)
}

// Rows 返回行数据的深拷贝
func (g *Grid) Rows() [][]any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rows := make([][]any, len(g.rows))
	for i, row := range g.rows {
		rows[i] = append([]any(nil), row...)
	}
	return rows
}

func (g *Grid) RowCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rows)
}

func (g *Grid) ColumnCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.columns)
}

// Sort 按列稳定升序排序，比较规则见 Compare
func (g *Grid) Sort(col int) {
	g.sortRows(col)
	g.notify(Change{Kind: Sorted, Row: -1, Column: col})
}

func (g *Grid) sortRows(col int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if col < 0 || col >= len(g.columns) {
		panic(fmt.Sprintf("grid: column %d out of range [0, %d)", col, len(g.columns)))
	}
	sort.SliceStable(g.rows, func(i, j int) bool {
		return Compare(g.rows[i][col], g.rows[j][col]) < 0
	})
}

func (g *Grid) checkIndex(row, col int) {
	if row < 0 || row >= len(g.rows) {
		panic(fmt.Sprintf("grid: row %d out of range [0, %d)", row, len(g.rows)))
	}
	if col < 0 || col >= len(g.columns) {
		panic(fmt.Sprintf("grid: column %d out of range [0, %d)", col, len(g.columns)))
	}
}

func (g *Grid) notify(change Change) {
	g.mu.RLock()
	listeners := slices.Clone(g.listeners)
	g.mu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
}
