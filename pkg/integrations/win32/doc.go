// Package win32 implements window.Platform on Windows. Foreground changes
// come from a WinEvent hook and the accessibility tree is UI Automation.
package win32

// BackendName identifies the Windows backend
const BackendName = "win32"
