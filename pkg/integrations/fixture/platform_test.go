package fixture

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iconwatch/iconwatch/pkg/automation"
	"github.com/iconwatch/iconwatch/pkg/window"
)

const desktopYAML = `
foreground: Program Manager
tree:
  name: Desktop 1
  children:
    - name: Taskbar
    - name: Program Manager
      children:
        - name: Desktop
          children:
            - name: Recycle Bin
            - name: This PC
`

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFixture(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "desktop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(desktopYAML))
	require.NoError(t, err)

	assert.Equal(t, "Program Manager", doc.Foreground)
	require.NotNil(t, doc.Tree)
	assert.Equal(t, "Desktop 1", doc.Tree.Label)
	require.Len(t, doc.Tree.Children, 2)
	assert.Len(t, doc.Tree.Children[1].Children[0].Children, 2)

	_, err = ParseDocument([]byte("tree: [broken"))
	assert.Error(t, err)
}

func TestPlatformQueries(t *testing.T) {
	p, err := New(writeFixture(t, t.TempDir(), desktopYAML), zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, BackendName, p.Name())

	h, err := p.ForegroundWindow()
	require.NoError(t, err)
	assert.NotEqual(t, window.NoHandle, h)

	title, err := p.WindowText(h, 256)
	require.NoError(t, err)
	assert.Equal(t, "Program Manager", title)

	title, err = p.WindowText(h, 7)
	require.NoError(t, err)
	assert.Equal(t, "Program", title)

	root, err := p.Tree().Root()
	require.NoError(t, err)
	shell, err := root.FindFirstChildByName("Program Manager")
	require.NoError(t, err)
	desktop, err := shell.FindFirstChildByName("Desktop")
	require.NoError(t, err)
	icons, err := desktop.FindAllChildren()
	require.NoError(t, err)
	assert.Len(t, icons, 2)
}

func TestNoForegroundWindow(t *testing.T) {
	p := NewInMemory(Document{})

	h, err := p.ForegroundWindow()
	require.NoError(t, err)
	assert.Equal(t, window.NoHandle, h)

	title, err := p.WindowText(h, 256)
	require.NoError(t, err)
	assert.Empty(t, title)

	_, err = p.Tree().Root()
	assert.ErrorIs(t, err, automation.ErrElementNotFound)
}

func TestUnavailableTree(t *testing.T) {
	p := NewInMemory(Document{Unavailable: "UI Automation is restarting"})
	_, err := p.Tree().Root()
	require.Error(t, err)
	assert.Equal(t, "UI Automation is restarting", err.Error())
}

func TestNewMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	assert.Error(t, err)
}

func TestApplyFiresSubscriber(t *testing.T) {
	p := NewInMemory(Document{Foreground: "Notepad"})
	defer p.Close()

	var fired atomic.Int32
	require.NoError(t, p.Hook().Subscribe(func() { fired.Add(1) }))
	assert.ErrorIs(t, p.Hook().Subscribe(func() {}), ErrAlreadySubscribed)

	p.Apply(Document{Foreground: "Program Manager"})
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, "Program Manager", p.Document().Foreground)

	require.NoError(t, p.Close())
	p.Apply(Document{Foreground: "Notepad"})
	assert.Equal(t, int32(1), fired.Load(), "closed hook stays silent")
}

func TestFileChangeFiresSubscriber(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "foreground: Notepad\n")

	p, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	fired := make(chan string, 4)
	require.NoError(t, p.Hook().Subscribe(func() {
		fired <- p.Document().Foreground
	}))

	require.NoError(t, os.WriteFile(path, []byte(desktopYAML), 0o644))

	select {
	case title := <-fired:
		assert.Equal(t, "Program Manager", title)
	case <-time.After(5 * time.Second):
		t.Fatal("no foreground change after fixture write")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p, err := New(writeFixture(t, t.TempDir(), desktopYAML), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, p.Hook().Subscribe(func() {}))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Error(t, p.Hook().Subscribe(func() {}))
}
