package scanner

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iconwatch/iconwatch/internal/enumerator"
	"github.com/iconwatch/iconwatch/internal/publisher"
	"github.com/iconwatch/iconwatch/pkg/automation"
	"github.com/iconwatch/iconwatch/pkg/window"
)

type fakeQuerier struct {
	mu       sync.Mutex
	handle   window.Handle
	title    string
	queryErr error
	textErr  error
	maxSeen  int
}

func (q *fakeQuerier) ForegroundWindow() (window.Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handle, q.queryErr
}

func (q *fakeQuerier) WindowText(h window.Handle, maxChars int) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maxSeen = maxChars
	return q.title, q.textErr
}

type fakePresenter struct {
	restores atomic.Int32
}

func (p *fakePresenter) RestoreToNormal() {
	p.restores.Add(1)
}

type countingEnumerator struct {
	inner Enumerator
	calls atomic.Int32
}

func (e *countingEnumerator) Enumerate() (enumerator.Result, error) {
	e.calls.Add(1)
	return e.inner.Enumerate()
}

type surfaceState struct {
	list    string
	count   string
	loading bool
	failure error
	updates int
}

type fakeSurface struct {
	mu sync.Mutex
	st surfaceState
}

func (s *fakeSurface) SetLoadingState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.loading = true
	s.st.updates++
}

func (s *fakeSurface) SetIconListText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.list = text
	s.st.loading = false
	s.st.failure = nil
	s.st.updates++
}

func (s *fakeSurface) SetIconCountText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.count = text
	s.st.updates++
}

func (s *fakeSurface) SetFailureState(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.failure = err
	s.st.loading = false
	s.st.updates++
}

func (s *fakeSurface) state() surfaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func desktopTree(icons ...string) automation.Tree {
	children := make([]*automation.Node, 0, len(icons))
	for _, name := range icons {
		children = append(children, automation.NewNode(name))
	}
	return &automation.StaticTree{Top: automation.NewNode("",
		automation.NewNode(enumerator.ShellName,
			automation.NewNode(enumerator.DesktopName, children...)))}
}

type fixture struct {
	query     *fakeQuerier
	presenter *fakePresenter
	enum      *countingEnumerator
	surface   *fakeSurface
	scanner   *Scanner
}

func newFixture(title string, tree automation.Tree, opts ...publisher.Option) *fixture {
	f := &fixture{
		query:     &fakeQuerier{handle: 0x10010, title: title},
		presenter: &fakePresenter{},
		enum:      &countingEnumerator{inner: enumerator.New(tree)},
		surface:   &fakeSurface{},
	}
	pub := publisher.New(f.surface, opts...)
	f.scanner = New(f.query, f.presenter, f.enum, pub, zerolog.Nop())
	return f
}

func TestDesktopDetectedPublishesIcons(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture("Program Manager", desktopTree("Recycle Bin", "This PC"))

	f.scanner.HandleForegroundChange()
	f.scanner.Wait()

	st := f.surface.state()
	assert.Equal(t, "Recycle Bin\r\nThis PC\r\n", st.list)
	assert.Equal(t, "2", st.count)
	assert.False(t, st.loading)
	assert.NoError(t, st.failure)
	assert.Equal(t, int32(1), f.enum.calls.Load())
	assert.Equal(t, int32(1), f.presenter.restores.Load())
	assert.Equal(t, MaxTitleLength, f.query.maxSeen)
}

func TestNonDesktopTitlesNeverEnumerate(t *testing.T) {
	titles := []string{
		"Untitled - Notepad",
		"program manager",
		"PROGRAM MANAGER",
		"Program Manager ",
		" Program Manager",
		"Program  Manager",
		"Program Manager - Explorer",
		"Programm-Manager",
		"Desktop",
		"",
	}

	for _, title := range titles {
		t.Run(title, func(t *testing.T) {
			f := newFixture(title, desktopTree("Recycle Bin"))

			assert.False(t, f.scanner.CheckActiveWindow())
			f.scanner.HandleForegroundChange()
			f.scanner.Wait()

			assert.Zero(t, f.enum.calls.Load())
			assert.Zero(t, f.presenter.restores.Load())
			assert.Zero(t, f.surface.state().updates, "no status update for %q", title)
		})
	}
}

func TestNotepadMakesNoCalls(t *testing.T) {
	f := newFixture("Untitled - Notepad", desktopTree("Recycle Bin", "This PC"))

	f.scanner.HandleForegroundChange()
	f.scanner.Wait()

	assert.Zero(t, f.enum.calls.Load())
	assert.Equal(t, surfaceState{}, f.surface.state())
}

func TestCheckActiveWindowEmptyConditions(t *testing.T) {
	tests := []struct {
		name  string
		query *fakeQuerier
	}{
		{"No foreground window", &fakeQuerier{handle: window.NoHandle, title: "Program Manager"}},
		{"Foreground query fails", &fakeQuerier{handle: 1, title: "Program Manager", queryErr: errors.New("access denied")}},
		{"Title query fails", &fakeQuerier{handle: 1, title: "Program Manager", textErr: errors.New("invalid window handle")}},
		{"Empty title", &fakeQuerier{handle: 1, title: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.query, &fakePresenter{}, &countingEnumerator{inner: enumerator.New(desktopTree())},
				publisher.New(&fakeSurface{}), zerolog.Nop())
			assert.False(t, s.CheckActiveWindow())
		})
	}
}

func TestCheckActiveWindowIsIdempotent(t *testing.T) {
	for _, title := range []string{"Program Manager", "Untitled - Notepad", ""} {
		f := newFixture(title, desktopTree())
		first := f.scanner.CheckActiveWindow()
		second := f.scanner.CheckActiveWindow()
		assert.Equal(t, first, second, "title %q", title)
	}
}

func TestLongTitleIsTruncated(t *testing.T) {
	f := newFixture("Program Manager"+strings.Repeat("x", 300), desktopTree())
	assert.False(t, f.scanner.CheckActiveWindow())

	assert.Equal(t, strings.Repeat("é", MaxTitleLength), truncate(strings.Repeat("é", 300), MaxTitleLength))
	assert.Equal(t, "short", truncate("short", MaxTitleLength))
}

func TestMissingShellPublishesFailure(t *testing.T) {
	tree := &automation.StaticTree{Top: automation.NewNode("", automation.NewNode("Taskbar"))}
	f := newFixture("Program Manager", tree)

	f.scanner.HandleForegroundChange()
	f.scanner.Wait()

	st := f.surface.state()
	require.Error(t, st.failure)
	assert.ErrorIs(t, st.failure, enumerator.ErrTreeLookup)
	assert.Empty(t, st.list)
	assert.Empty(t, st.count, "failure must not look like an empty success")
}

func TestEmptyDesktopIsNotFailure(t *testing.T) {
	f := newFixture("Program Manager", desktopTree())

	f.scanner.HandleForegroundChange()
	f.scanner.Wait()

	st := f.surface.state()
	assert.NoError(t, st.failure)
	assert.Equal(t, "", st.list)
	assert.Equal(t, "0", st.count)
}

type gatedEnumerator struct {
	started chan struct{}
	release chan struct{}
	result  enumerator.Result
}

func (g *gatedEnumerator) Enumerate() (enumerator.Result, error) {
	g.started <- struct{}{}
	<-g.release
	return g.result, nil
}

type sequenceEnumerator struct {
	mu    sync.Mutex
	next  int
	gates []*gatedEnumerator
}

func (s *sequenceEnumerator) Enumerate() (enumerator.Result, error) {
	s.mu.Lock()
	g := s.gates[s.next]
	s.next++
	s.mu.Unlock()
	return g.Enumerate()
}

func TestHandleForegroundChangeDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	gate := &gatedEnumerator{started: make(chan struct{}, 1), release: make(chan struct{})}
	surface := &fakeSurface{}
	s := New(&fakeQuerier{handle: 1, title: "Program Manager"}, &fakePresenter{}, gate,
		publisher.New(surface), zerolog.Nop())

	s.HandleForegroundChange()
	<-gate.started

	assert.True(t, surface.state().loading, "loading state is shown while the enumeration runs")

	close(gate.release)
	s.Wait()
	assert.False(t, surface.state().loading)
}

func TestTwoQuickDesktopEvents(t *testing.T) {
	tests := []struct {
		name         string
		discardStale bool
		finishOrder  []int
		wantList     string
		wantCount    string
	}{
		{"Race kept, second finishes last", false, []int{0, 1}, "B\r\nC\r\n", "2"},
		{"Race kept, first finishes last", false, []int{1, 0}, "A\r\n", "1"},
		{"Stale discarded, first finishes last", true, []int{1, 0}, "B\r\nC\r\n", "2"},
		{"Stale discarded, second finishes last", true, []int{0, 1}, "B\r\nC\r\n", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

			gates := []*gatedEnumerator{
				{started: make(chan struct{}, 1), release: make(chan struct{}), result: enumerator.Result{Count: 1, Names: []string{"A"}}},
				{started: make(chan struct{}, 1), release: make(chan struct{}), result: enumerator.Result{Count: 2, Names: []string{"B", "C"}}},
			}
			enum := &sequenceEnumerator{gates: gates}
			surface := &fakeSurface{}
			var reports []publisher.Report
			var mu sync.Mutex
			pub := publisher.New(surface,
				publisher.WithDiscardStale(tt.discardStale),
				publisher.WithObserver(func(r publisher.Report) {
					mu.Lock()
					reports = append(reports, r)
					mu.Unlock()
				}))
			s := New(&fakeQuerier{handle: 1, title: "Program Manager"}, &fakePresenter{}, enum, pub, zerolog.Nop())

			s.HandleForegroundChange()
			<-gates[0].started
			s.HandleForegroundChange()
			<-gates[1].started

			for k, i := range tt.finishOrder {
				close(gates[i].release)
				// let this worker publish before the next one is released
				waitForReports(t, &mu, &reports, k+1)
			}
			s.Wait()

			st := surface.state()
			assert.Equal(t, tt.wantList, st.list)
			assert.Equal(t, tt.wantCount, st.count)
			assert.Len(t, reports, 2, "both enumerations ran")
		})
	}
}

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

func waitForReports(t *testing.T, mu *sync.Mutex, reports *[]publisher.Report, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(*reports) >= n
	}, testTimeout, testTick)
}

func TestScanNow(t *testing.T) {
	f := newFixture("Untitled - Notepad", desktopTree("Recycle Bin"))

	report := f.scanner.ScanNow()
	assert.Equal(t, publisher.OutcomeOK, report.Outcome)
	assert.Equal(t, 1, report.Result.Count)
	assert.Equal(t, "Recycle Bin\r\n", f.surface.state().list)
}
