package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const pageNotice = "notice"

type notice struct {
	title string
	msg   string
	err   bool
}

// Info 和 Error 以模态框展示通知，确认之前其他控件收不到输入
// 同时到达的多条通知依次展示
func (u *UI) Info(title, msg string) {
	u.enqueue(notice{title: title, msg: msg})
}

func (u *UI) Error(title, msg string) {
	u.enqueue(notice{title: title, msg: msg, err: true})
}

func (u *UI) enqueue(n notice) {
	u.notices = append(u.notices, n)
	if len(u.notices) == 1 {
		u.showNotice()
	}
}

func (u *UI) showNotice() {
	n := u.notices[0]
	if u.focusBeforeNotice == nil {
		u.focusBeforeNotice = u.app.GetFocus()
		if u.focusBeforeNotice == nil {
			u.focusBeforeNotice = u.table
		}
	}

	modal := tview.NewModal().
		SetText(n.title + "\n\n" + n.msg).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			u.dismissNotice()
		})
	if n.err {
		modal.SetBackgroundColor(tcell.ColorDarkRed)
	} else {
		modal.SetBackgroundColor(tcell.ColorDarkBlue)
	}

	u.pages.AddPage(pageNotice, modal, true, true)
	u.app.SetFocus(modal)
}

func (u *UI) dismissNotice() {
	if len(u.notices) == 0 {
		return
	}
	u.notices = u.notices[1:]
	u.pages.RemovePage(pageNotice)
	if len(u.notices) > 0 {
		u.showNotice()
		return
	}
	if u.focusBeforeNotice != nil {
		u.app.SetFocus(u.focusBeforeNotice)
		u.focusBeforeNotice = nil
	}
}

func (u *UI) noticeShown() bool {
	return len(u.notices) > 0
}
