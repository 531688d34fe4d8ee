package displayer

import (
	"context"
	"fmt"
	"time"

	"obdmeter/internal/broadcast"
	"obdmeter/internal/obd"
	"obdmeter/internal/transport"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const unavailable = "[gray]unavailable[white]"

// Displayer renders snapshots and session status in a terminal UI.
// Reading validity and link status are shown separately: a connected link can
// still carry unavailable readings.
type Displayer struct {
	app       *tview.Application
	tabs      *tview.Pages
	snapshots *broadcast.Hub[obd.Snapshot]
	statuses  *broadcast.Hub[transport.Status]
	quit      func()

	// UI elements cached for updates
	readings   map[obd.Reading]*tview.TextView
	torqueText *tview.TextView
	powerText  *tview.TextView
	maximaText *tview.TextView
	cycleText  *tview.TextView
	statusText *tview.TextView
	helpText   *tview.TextView
	linkTable  *tview.Table
}

// New creates a Displayer. quit is called when the user asks to leave.
func New(snapshots *broadcast.Hub[obd.Snapshot], statuses *broadcast.Hub[transport.Status], quit func()) *Displayer {
	if quit == nil {
		quit = func() {}
	}
	return &Displayer{
		app:       tview.NewApplication(),
		tabs:      tview.NewPages(),
		snapshots: snapshots,
		statuses:  statuses,
		quit:      quit,
		readings:  make(map[obd.Reading]*tview.TextView),
	}
}

// Run blocks until ctx is done or the user quits.
func (d *Displayer) Run(ctx context.Context) error {
	dashboard := d.buildDashboard()
	link := d.buildLink()

	// header area: title, status, help
	title := tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText("obdmeter - live OBD-II engine data")
	d.statusText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetDynamicColors(true)
	d.helpText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText("[1 - Dashboard] [2 - Link] [q - Quit]")

	headerFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	headerFlex.AddItem(title, 1, 0, false)
	headerFlex.AddItem(d.statusText, 1, 0, false)
	headerFlex.AddItem(d.helpText, 1, 0, false)

	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	mainFlex.AddItem(headerFlex, 3, 0, false)

	d.tabs.AddPage("dashboard", dashboard, true, true)
	d.tabs.AddPage("link", link, true, false)
	mainFlex.AddItem(d.tabs, 0, 1, true)

	d.app.SetRoot(mainFlex, true)
	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q', 'Q':
			d.quit()
			d.app.Stop()
			return nil
		case '1':
			d.tabs.SwitchToPage("dashboard")
			return nil
		case '2':
			d.tabs.SwitchToPage("link")
			return nil
		}
		return event
	})

	d.renderStatus(d.statuses.Latest())
	d.renderSnapshot(d.snapshots.Latest())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.refreshLoop(ctx)

	return d.app.Run()
}

func (d *Displayer) buildDashboard() *tview.Flex {
	infoFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	for _, r := range []obd.Reading{obd.EngineSpeed, obd.EngineLoad, obd.CoolantTemp, obd.OilTemp} {
		tv := tview.NewTextView().SetDynamicColors(true)
		d.readings[r] = tv
		infoFlex.AddItem(tv, 1, 0, false)
	}

	d.torqueText = tview.NewTextView().SetDynamicColors(true)
	d.powerText = tview.NewTextView().SetDynamicColors(true)
	d.maximaText = tview.NewTextView().SetDynamicColors(true)
	d.cycleText = tview.NewTextView().SetDynamicColors(true)
	infoFlex.AddItem(d.torqueText, 1, 0, false)
	infoFlex.AddItem(d.powerText, 1, 0, false)
	infoFlex.AddItem(d.maximaText, 1, 0, false)
	infoFlex.AddItem(d.cycleText, 1, 0, false)

	return infoFlex
}

func (d *Displayer) buildLink() *tview.Table {
	tbl := tview.NewTable().SetBorders(true)
	for i, label := range []string{"State", "Device", "Attempt", "Since", "Last error"} {
		tbl.SetCell(i, 0, tview.NewTableCell(label).SetSelectable(false))
		tbl.SetCell(i, 1, tview.NewTableCell("-"))
	}
	d.linkTable = tbl
	return tbl
}

func (d *Displayer) renderSnapshot(s obd.Snapshot, ok bool) {
	if !ok {
		for r, tv := range d.readings {
			tv.SetText(fmt.Sprintf("%s: %s", label(r), unavailable))
		}
		d.torqueText.SetText("Torque (Nm): " + unavailable)
		d.powerText.SetText("Power (hp): " + unavailable)
		d.maximaText.SetText("")
		d.cycleText.SetText("Waiting for first cycle")
		return
	}
	for r, tv := range d.readings {
		tv.SetText(fmt.Sprintf("%s: %s", label(r), FormatReading(s, r)))
	}
	d.torqueText.SetText(fmt.Sprintf("Torque (Nm): %.1f", s.Torque))
	d.powerText.SetText(fmt.Sprintf("Power (hp): %.1f", s.Power))
	d.maximaText.SetText(fmt.Sprintf("Peak: %.1f Nm / %.1f hp", s.MaxTorque, s.MaxPower))
	d.cycleText.SetText(fmt.Sprintf("Cycle %d at %s", s.Cycle, s.Time.Format(time.TimeOnly)))
}

func (d *Displayer) renderStatus(st transport.Status, ok bool) {
	if !ok {
		st = transport.Status{State: transport.StateDisconnected}
	}
	d.statusText.SetText("Status: " + FormatStatus(st))

	since := "-"
	if !st.Since.IsZero() {
		since = st.Since.Format(time.TimeOnly)
	}
	lastErr := "-"
	if st.Err != nil {
		lastErr = st.Err.Error()
	}
	values := []string{st.State.String(), orDash(st.Device.String()), fmt.Sprint(st.Attempt), since, lastErr}
	for i, v := range values {
		d.linkTable.GetCell(i, 1).SetText(v)
	}
}

func (d *Displayer) refreshLoop(ctx context.Context) {
	snaps, cancelSnaps := d.snapshots.Subscribe()
	defer cancelSnaps()
	statuses, cancelStatuses := d.statuses.Subscribe()
	defer cancelStatuses()

	for {
		select {
		case <-ctx.Done():
			d.app.Stop()
			return
		case s, ok := <-snaps:
			if !ok {
				snaps = nil
				continue
			}
			d.app.QueueUpdateDraw(func() { d.renderSnapshot(s, true) })
		case st, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			d.app.QueueUpdateDraw(func() { d.renderStatus(st, true) })
		}
	}
}

// FormatReading renders one reading with its unit, or unavailable when the
// last cycle could not decode it.
func FormatReading(s obd.Snapshot, r obd.Reading) string {
	if !s.Available(r) {
		return unavailable
	}
	v := s.Value(r)
	switch r {
	case obd.EngineLoad:
		return fmt.Sprintf("%d %%", v)
	case obd.EngineSpeed:
		return fmt.Sprintf("%d rpm", v)
	default:
		return fmt.Sprintf("%d C", v)
	}
}

// FormatStatus colours the link state.
func FormatStatus(st transport.Status) string {
	switch st.State {
	case transport.StateConnected:
		return fmt.Sprintf("[green]connected[white] to %s", st.Device.Name)
	case transport.StateNoDeviceFound:
		return "[red]no device found[white]"
	case transport.StateSearching, transport.StateConnecting:
		if st.Attempt > 1 {
			return fmt.Sprintf("[yellow]%s[white] (attempt %d)", st.State, st.Attempt)
		}
		return fmt.Sprintf("[yellow]%s[white]", st.State)
	default:
		return "[red]disconnected[white]"
	}
}

func label(r obd.Reading) string {
	switch r {
	case obd.OilTemp:
		return "Oil Temp"
	case obd.CoolantTemp:
		return "Coolant"
	case obd.EngineLoad:
		return "Engine Load"
	case obd.EngineSpeed:
		return "RPM"
	}
	return string(r)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
