// Package tray implements the system tray icon and the status menu.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/iconwatch/iconwatch/internal/log"
	"github.com/iconwatch/iconwatch/internal/status"
)

const maxIconSlots = 20

// Controller is what the tray menu acts on
type Controller interface {
	RestoreToNormal()
	Minimize()
	RequestShutdown()
}

var (
	controller Controller
	onStart    func()
	onExit     func()

	headerItem *systray.MenuItem
	countItem  *systray.MenuItem
	moreItem   *systray.MenuItem
	showItem   *systray.MenuItem
	hideItem   *systray.MenuItem
	quitItem   *systray.MenuItem

	// Pre-allocated icon name slots
	iconSlots [maxIconSlots]*systray.MenuItem

	mu             sync.Mutex
	ready          bool
	lastSnapshot   = status.Snapshot{State: status.StateIdle}
	surfaceVisible bool
)

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onStartFn is called when the tray is ready, onExitFn when it exits.
func Run(c Controller, onStartFn, onExitFn func()) {
	controller = c
	onStart = onStartFn
	onExit = onExitFn
	systray.Run(onReady, onQuit)
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

// Presence adapts the tray to presenter.TrayPresence
type Presence struct{}

// SetPresence toggles between the compact tray entry and the expanded status menu
func (Presence) SetPresence(visible bool) {
	mu.Lock()
	surfaceVisible = !visible
	mu.Unlock()
	render()
}

// Update is a status.Listener refreshing the menu from the board
func Update(snap status.Snapshot) {
	mu.Lock()
	lastSnapshot = snap
	mu.Unlock()
	render()
}

func onReady() {
	systray.SetIcon(iconData)
	systray.SetTitle("")
	systray.SetTooltip(formatTooltip(status.Snapshot{State: status.StateIdle}))

	headerItem = systray.AddMenuItem("Desktop Icon Finder", "")
	headerItem.Disable()

	countItem = systray.AddMenuItem("", "")
	countItem.Disable()

	systray.AddSeparator()

	for i := 0; i < maxIconSlots; i++ {
		iconSlots[i] = systray.AddMenuItem("", "")
		iconSlots[i].Disable()
		iconSlots[i].Hide()
	}
	moreItem = systray.AddMenuItem("", "")
	moreItem.Disable()
	moreItem.Hide()

	systray.AddSeparator()

	showItem = systray.AddMenuItem("Show desktop icons", "Restore the status view")
	hideItem = systray.AddMenuItem("Hide", "Minimize to the tray")
	quitItem = systray.AddMenuItem("Quit", "Stop watching the desktop")

	mu.Lock()
	ready = true
	mu.Unlock()
	render()

	if onStart != nil {
		onStart()
	}

	go handleClicks()
}

func onQuit() {
	if onExit != nil {
		onExit()
	}
}

func handleClicks() {
	logger := log.WithComponent("tray")
	for {
		select {
		case <-showItem.ClickedCh:
			if controller != nil {
				controller.RestoreToNormal()
			}
		case <-hideItem.ClickedCh:
			if controller != nil {
				controller.Minimize()
			}
		case <-quitItem.ClickedCh:
			logger.Info().Msg("Quit requested from tray")
			if controller != nil {
				controller.RequestShutdown()
			}
			return
		}
	}
}

func render() {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return
	}

	snap := lastSnapshot
	systray.SetTooltip(formatTooltip(snap))

	if !surfaceVisible {
		countItem.Hide()
		for _, slot := range iconSlots {
			slot.Hide()
		}
		moreItem.Hide()
		showItem.Show()
		hideItem.Hide()
		return
	}

	countItem.SetTitle(formatCount(snap))
	countItem.Show()

	lines, extra := menuLines(snap, maxIconSlots)
	for i, slot := range iconSlots {
		if i < len(lines) {
			slot.SetTitle(lines[i])
			slot.Show()
		} else {
			slot.Hide()
		}
	}
	if extra > 0 {
		moreItem.SetTitle(fmt.Sprintf("… and %d more", extra))
		moreItem.Show()
	} else {
		moreItem.Hide()
	}
	showItem.Hide()
	hideItem.Show()
}

// formatTooltip returns the tray tooltip text for a snapshot
func formatTooltip(snap status.Snapshot) string {
	switch snap.State {
	case status.StateReady:
		return fmt.Sprintf("Desktop Icon Finder: %s icons", snap.CountText)
	case status.StateLoading:
		return "Desktop Icon Finder: loading…"
	case status.StateFailed:
		return "Desktop Icon Finder: desktop unavailable"
	default:
		return "Desktop Icon Finder"
	}
}

func formatCount(snap status.Snapshot) string {
	switch snap.State {
	case status.StateReady:
		return "Icon count: " + snap.CountText
	case status.StateLoading:
		return snap.CountText
	case status.StateFailed:
		return "Could not enumerate desktop icons"
	default:
		return "Waiting for the desktop…"
	}
}

// menuLines returns at most limit lines for the icon slots and how many names did not fit
func menuLines(snap status.Snapshot, limit int) ([]string, int) {
	switch snap.State {
	case status.StateLoading:
		return []string{snap.ListText}, 0
	case status.StateFailed:
		return []string{snap.Error}, 0
	}

	names := snap.Names()
	if len(names) <= limit {
		return names, 0
	}
	return names[:limit], len(names) - limit
}
