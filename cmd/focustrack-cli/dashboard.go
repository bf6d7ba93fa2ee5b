package main

import (
	"fmt"
	"time"

	"focustrack/internal/analytics"
	"focustrack/internal/ipc"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const dashboardRefresh = time.Second

// dashboard is a live view of the timer and this week's chart, polled
// from the daemon.
type dashboard struct {
	app    *tview.Application
	timer  *tview.TextView
	chart  *tview.TextView
	footer *tview.TextView
}

func newDashboard() *dashboard {
	d := &dashboard{
		app:    tview.NewApplication(),
		timer:  tview.NewTextView().SetDynamicColors(true),
		chart:  tview.NewTextView().SetDynamicColors(true),
		footer: tview.NewTextView().SetTextAlign(tview.AlignCenter),
	}
	d.timer.SetBorder(true).SetTitle(" Focus ")
	d.chart.SetBorder(true).SetTitle(" This week ")
	d.footer.SetText("[s] start  [p] pause  [r] reset  [a] ack level-up  [q] quit")

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.timer, 7, 0, false).
		AddItem(d.chart, 0, 1, false).
		AddItem(d.footer, 1, 0, false)

	d.app.SetRoot(layout, true).SetInputCapture(d.handleKey)
	return d
}

func (d *dashboard) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	var name string
	switch {
	case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
		d.app.Stop()
		return nil
	case ev.Rune() == 's':
		name = ipc.CmdTimerStart
	case ev.Rune() == 'p':
		name = ipc.CmdTimerPause
	case ev.Rune() == 'r':
		name = ipc.CmdTimerReset
	case ev.Rune() == 'a':
		name = ipc.CmdCelebrationAck
	default:
		return ev
	}
	go func() {
		resp, err := request(ipc.Command{Name: name})
		msg := resp.Message
		if err != nil {
			msg = err.Error()
		} else if !resp.Success {
			msg = "Error: " + resp.Message
		}
		d.app.QueueUpdateDraw(func() { d.footer.SetText(msg) })
		d.refresh()
	}()
	return nil
}

func (d *dashboard) refresh() {
	var st ipc.StatusData
	resp, err := request(ipc.Command{Name: ipc.CmdTimerStatus})
	if err == nil {
		err = ipc.DecodeData(resp, &st)
	}

	var chart ipc.ChartData
	cresp, cerr := request(ipc.Command{Name: ipc.CmdChart, Args: ipc.ChartArgs{Period: string(analytics.PeriodWeekly)}})
	if cerr == nil {
		cerr = ipc.DecodeData(cresp, &chart)
	}

	now := time.Now()
	d.app.QueueUpdateDraw(func() {
		if err != nil {
			d.timer.SetText(fmt.Sprintf("[red]%v", err))
		} else {
			d.timer.SetText(tview.Escape(renderStatus(painter{}, st, now)))
		}
		if cerr != nil {
			d.chart.SetText(fmt.Sprintf("[red]%v", cerr))
		} else {
			d.chart.SetText(tview.Escape(renderChart(painter{}, chart.Points, chart.Insight)))
		}
	})
}

func (d *dashboard) run() error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(dashboardRefresh)
		defer ticker.Stop()
		d.refresh()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.refresh()
			}
		}
	}()
	return d.app.Run()
}
