package ui

import (
	"context"
	"fmt"
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/hatlonely/dbviewer/grid"
	"github.com/hatlonely/dbviewer/viewer"
	"github.com/pkg/errors"
	"github.com/rivo/tview"
)

const (
	pageMain   = "main"
	pageEditor = "editor"
)

// UI 终端界面，把按键和按钮翻译成 Controller 的动作，同时实现 viewer.Notifier
type UI struct {
	app   *tview.Application
	pages *tview.Pages

	selector   *tview.DropDown
	loadButton *tview.Button
	sortInput  *tview.InputField
	sortButton *tview.Button
	table      *tview.Table
	status     *tview.TextView

	// 按 Tab 切换焦点的顺序
	focusables []tview.Primitive

	ctx        context.Context
	controller *viewer.Controller

	editing           bool
	notices           []notice
	focusBeforeNotice tview.Primitive
}

// New 创建界面，Bind 之后才能 Run
func New() *UI {
	u := &UI{
		app:   tview.NewApplication(),
		pages: tview.NewPages(),
		ctx:   context.Background(),
	}

	u.selector = tview.NewDropDown().SetLabel("Table: ")
	u.loadButton = tview.NewButton("Load Table").SetSelectedFunc(u.load)
	u.sortInput = tview.NewInputField().SetLabel("Sort Column: ").SetFieldWidth(20)
	u.sortInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			u.sort()
		}
	})
	u.sortButton = tview.NewButton("Sort by Column").SetSelectedFunc(u.sort)

	u.table = tview.NewTable().
		SetBorders(true).
		SetFixed(1, 0).
		SetSelectable(true, true)
	u.table.SetSelectedFunc(func(row, column int) {
		u.beginEdit(row-1, column)
	})

	u.status = tview.NewTextView().SetDynamicColors(true)

	controls := tview.NewFlex().
		AddItem(u.selector, 0, 2, false).
		AddItem(nil, 1, 0, false).
		AddItem(u.loadButton, 14, 0, false).
		AddItem(nil, 2, 0, false).
		AddItem(u.sortInput, 0, 3, false).
		AddItem(nil, 1, 0, false).
		AddItem(u.sortButton, 18, 0, false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(controls, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(u.table, 0, 1, true).
		AddItem(u.status, 1, 0, false)
	layout.SetBorder(true).SetTitle(" Database Viewer ")

	u.pages.AddPage(pageMain, layout, true, true)
	u.focusables = []tview.Primitive{u.selector, u.loadButton, u.sortInput, u.sortButton, u.table}

	u.app.SetInputCapture(u.capture)
	return u
}

// Bind 绑定控制器，ctx 作为所有动作的父 context
func (u *UI) Bind(ctx context.Context, controller *viewer.Controller) {
	if ctx != nil {
		u.ctx = ctx
	}
	u.controller = controller

	state := controller.State()
	tables := controller.Tables()
	if len(tables) == 0 && state.Table != "" {
		tables = []string{state.Table}
	}
	u.selector.SetOptions(tables, func(text string, index int) {
		if text != "" && text != u.controller.State().Table {
			_ = u.controller.SelectTable(text)
		}
		u.updateStatus()
	})
	if i := slices.Index(tables, state.Table); i >= 0 {
		u.selector.SetCurrentOption(i)
	}

	state.Grid.OnChange(u.onGridChange)
	u.render()
}

func (u *UI) Run() error {
	if u.controller == nil {
		return errors.New("controller not bound")
	}
	u.mount()
	return u.app.Run()
}

// mount 设置根布局和初始焦点，Run 之前弹出的通知保留焦点
func (u *UI) mount() {
	u.app.SetRoot(u.pages, true).EnableMouse(true)
	if u.noticeShown() {
		u.app.SetFocus(u.pages.GetPage(pageNotice))
		return
	}
	u.app.SetFocus(u.table)
}

func (u *UI) Stop() {
	u.app.Stop()
}

func (u *UI) load() {
	_ = u.controller.Load(u.ctx, u.controller.State().Table)
	u.updateStatus()
}

func (u *UI) sort() {
	_ = u.controller.Sort(u.sortInput.GetText())
}

// capture 处理全局按键：Tab/Backtab 切换焦点，编辑和通知期间不处理
func (u *UI) capture(event *tcell.EventKey) *tcell.EventKey {
	if u.editing || u.noticeShown() {
		return event
	}
	switch event.Key() {
	case tcell.KeyTab:
		u.cycleFocus(1)
		return nil
	case tcell.KeyBacktab:
		u.cycleFocus(-1)
		return nil
	}
	return event
}

func (u *UI) cycleFocus(step int) {
	current := u.app.GetFocus()
	i := slices.Index(u.focusables, current)
	if i < 0 {
		u.app.SetFocus(u.focusables[0])
		return
	}
	n := len(u.focusables)
	u.app.SetFocus(u.focusables[((i+step)%n+n)%n])
}

// beginEdit 在单元格上方打开输入框，Enter 提交一次 Edit，Esc 取消
func (u *UI) beginEdit(row, col int) {
	g := u.controller.State().Grid
	if row < 0 || col < 0 || row >= g.RowCount() || col >= g.ColumnCount() {
		return
	}

	text := ""
	if v := g.Cell(row, col); v != nil {
		text = grid.Format(v)
	}

	input := tview.NewInputField().SetText(text)
	input.SetBorder(true).SetTitle(fmt.Sprintf(" %s ", g.ColumnName(col)))
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			value := input.GetText()
			u.endEdit()
			u.commitEdit(row, col, value)
		case tcell.KeyEscape:
			u.endEdit()
		}
	})

	u.editing = true
	u.pages.AddPage(pageEditor, center(input, 50, 3), true, true)
	u.app.SetFocus(input)
}

func (u *UI) commitEdit(row, col int, text string) {
	_ = u.controller.Edit(u.ctx, row, col, text)
}

func (u *UI) endEdit() {
	u.editing = false
	u.pages.RemovePage(pageEditor)
	u.app.SetFocus(u.table)
}

func (u *UI) onGridChange(change grid.Change) {
	if change.Kind == grid.Updated {
		g := u.controller.State().Grid
		u.table.SetCell(change.Row+1, change.Column, cell(g.Cell(change.Row, change.Column)))
		return
	}
	u.render()
}

func (u *UI) render() {
	g := u.controller.State().Grid
	u.table.Clear()
	for c, name := range g.Columns() {
		u.table.SetCell(0, c, tview.NewTableCell(tview.Escape(name)).
			SetTextColor(tcell.ColorYellow).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}
	for r, row := range g.Rows() {
		for c, v := range row {
			u.table.SetCell(r+1, c, cell(v))
		}
	}
	if g.RowCount() > 0 {
		u.table.Select(1, 0)
	}
	u.table.ScrollToBeginning()
	u.updateStatus()
}

func (u *UI) updateStatus() {
	g := u.controller.State().Grid
	u.status.SetText(fmt.Sprintf("[yellow]%s[white]  %d rows  [gray]Tab: focus  Enter: edit cell  Esc: cancel  Ctrl-C: quit",
		tview.Escape(u.controller.State().Table), g.RowCount()))
}

func cell(v any) *tview.TableCell {
	tc := tview.NewTableCell(tview.Escape(grid.Format(v))).SetMaxWidth(40)
	switch v.(type) {
	case nil:
		tc.SetTextColor(tcell.ColorGray)
	case int64, uint64, float64:
		tc.SetAlign(tview.AlignRight)
	}
	return tc
}

func center(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
}
