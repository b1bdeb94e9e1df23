package tray

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iconwatch/iconwatch/internal/presenter"
	"github.com/iconwatch/iconwatch/internal/status"
)

func TestPresenceImplementsTrayPresence(t *testing.T) {
	var _ presenter.TrayPresence = Presence{}
}

func TestFormatTooltip(t *testing.T) {
	tests := []struct {
		name string
		snap status.Snapshot
		want string
	}{
		{"Idle", status.Snapshot{State: status.StateIdle}, "Desktop Icon Finder"},
		{"Loading", status.Snapshot{State: status.StateLoading}, "Desktop Icon Finder: loading…"},
		{"Ready", status.Snapshot{State: status.StateReady, CountText: "2"}, "Desktop Icon Finder: 2 icons"},
		{"Failed", status.Snapshot{State: status.StateFailed}, "Desktop Icon Finder: desktop unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatTooltip(tt.snap))
		})
	}
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "Icon count: 0", formatCount(status.Snapshot{State: status.StateReady, CountText: "0"}))
	assert.Equal(t, status.LoadingCountText, formatCount(status.Snapshot{State: status.StateLoading, CountText: status.LoadingCountText}))
	assert.Equal(t, "Could not enumerate desktop icons", formatCount(status.Snapshot{State: status.StateFailed}))
}

func TestMenuLines(t *testing.T) {
	lines, extra := menuLines(status.Snapshot{State: status.StateReady, ListText: "Recycle Bin\r\nThis PC\r\n"}, maxIconSlots)
	assert.Equal(t, []string{"Recycle Bin", "This PC"}, lines)
	assert.Zero(t, extra)

	lines, extra = menuLines(status.Snapshot{State: status.StateReady, ListText: ""}, maxIconSlots)
	assert.Empty(t, lines)
	assert.Zero(t, extra)

	lines, _ = menuLines(status.Snapshot{State: status.StateFailed, Error: "desktop tree lookup failed at shell"}, maxIconSlots)
	assert.Equal(t, []string{"desktop tree lookup failed at shell"}, lines)

	lines, _ = menuLines(status.Snapshot{State: status.StateLoading, ListText: status.LoadingListText}, maxIconSlots)
	assert.Equal(t, []string{status.LoadingListText}, lines)
}

func TestMenuLinesOverflow(t *testing.T) {
	list := ""
	for i := 0; i < maxIconSlots+5; i++ {
		list += fmt.Sprintf("icon %d\r\n", i)
	}

	lines, extra := menuLines(status.Snapshot{State: status.StateReady, ListText: list}, maxIconSlots)
	assert.Len(t, lines, maxIconSlots)
	assert.Equal(t, "icon 0", lines[0])
	assert.Equal(t, 5, extra)
}

func TestUpdateBeforeReadyIsKept(t *testing.T) {
	snap := status.Snapshot{State: status.StateReady, CountText: "3"}
	Update(snap)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, snap, lastSnapshot)
}
