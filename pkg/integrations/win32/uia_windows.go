//go:build windows && (amd64 || arm64)

package win32

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"

	"github.com/iconwatch/iconwatch/pkg/automation"
)

const (
	uiaNamePropertyID = 30005
	treeScopeChildren = 2

	// IUIAutomation
	vtGetRootElement          = 5
	vtCreateTrueCondition     = 21
	vtCreatePropertyCondition = 23

	// IUIAutomationElement
	vtFindFirst      = 5
	vtFindAll        = 6
	vtGetCurrentName = 23

	// IUIAutomationElementArray
	vtArrayLength     = 3
	vtArrayGetElement = 4
)

var (
	clsidCUIAutomation = ole.NewGUID("{ff48dba4-60ef-4201-aa87-54103eef594e}")
	iidIUIAutomation   = ole.NewGUID("{30cbe57d-d9d0-452a-ab13-7ac5ac4825ee}")
)

// comCall invokes method index of a COM object and converts a failed HRESULT
func comCall(obj *ole.IUnknown, index int, args ...uintptr) error {
	vtbl := (*[64]uintptr)(unsafe.Pointer(obj.RawVTable))
	callArgs := append([]uintptr{uintptr(unsafe.Pointer(obj))}, args...)
	hr, _, _ := syscall.SyscallN(vtbl[index], callArgs...)
	if int32(hr) < 0 {
		return ole.NewError(hr)
	}
	return nil
}

// uia is a UI Automation client. COM is initialised for the multithreaded
// apartment on a pinned thread that lives until close, which puts every
// other goroutine in the implicit MTA.
type uia struct {
	client   *ole.IUnknown
	trueCond *ole.IUnknown
	stop     chan struct{}
	stopped  chan struct{}
}

func newUIA() (*uia, error) {
	u := &uia{stop: make(chan struct{}), stopped: make(chan struct{})}
	ready := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(u.stopped)

		if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
			var oleErr *ole.OleError
			// S_FALSE means this thread was already initialised
			if !errors.As(err, &oleErr) || oleErr.Code() != 1 {
				ready <- fmt.Errorf("CoInitializeEx: %w", err)
				return
			}
		}
		defer ole.CoUninitialize()

		client, err := ole.CreateInstance(clsidCUIAutomation, iidIUIAutomation)
		if err != nil {
			ready <- fmt.Errorf("failed to create UI Automation client: %w", err)
			return
		}
		u.client = client

		var cond *ole.IUnknown
		if err := comCall(client, vtCreateTrueCondition, uintptr(unsafe.Pointer(&cond))); err != nil {
			client.Release()
			ready <- fmt.Errorf("CreateTrueCondition: %w", err)
			return
		}
		u.trueCond = cond

		ready <- nil
		<-u.stop

		u.trueCond.Release()
		u.client.Release()
	}()

	if err := <-ready; err != nil {
		return nil, err
	}
	return u, nil
}

func (u *uia) close() {
	close(u.stop)
	<-u.stopped
}

func (u *uia) Root() (automation.Element, error) {
	var root *ole.IUnknown
	if err := comCall(u.client, vtGetRootElement, uintptr(unsafe.Pointer(&root))); err != nil {
		return nil, fmt.Errorf("GetRootElement: %w", err)
	}
	if root == nil {
		return nil, automation.ErrElementNotFound
	}
	return &element{u: u, obj: root}, nil
}

func (u *uia) nameCondition(name string) (*ole.IUnknown, error) {
	v := ole.NewVariant(ole.VT_BSTR, int64(uintptr(unsafe.Pointer(ole.SysAllocString(name)))))
	defer ole.VariantClear(&v)

	var cond *ole.IUnknown
	// VARIANT is larger than a register and is passed by reference on amd64 and arm64
	err := comCall(u.client, vtCreatePropertyCondition,
		uiaNamePropertyID, uintptr(unsafe.Pointer(&v)), uintptr(unsafe.Pointer(&cond)))
	if err != nil {
		return nil, fmt.Errorf("CreatePropertyCondition: %w", err)
	}
	return cond, nil
}

type element struct {
	u   *uia
	obj *ole.IUnknown
}

func (e *element) Name() (string, error) {
	var bstr *uint16
	if err := comCall(e.obj, vtGetCurrentName, uintptr(unsafe.Pointer(&bstr))); err != nil {
		return "", fmt.Errorf("get_CurrentName: %w", err)
	}
	if bstr == nil {
		return "", nil
	}
	defer ole.SysFreeString((*int16)(unsafe.Pointer(bstr)))
	return ole.BstrToString(bstr), nil
}

func (e *element) FindFirstChildByName(name string) (automation.Element, error) {
	cond, err := e.u.nameCondition(name)
	if err != nil {
		return nil, err
	}
	defer cond.Release()

	var found *ole.IUnknown
	err = comCall(e.obj, vtFindFirst, treeScopeChildren, uintptr(unsafe.Pointer(cond)), uintptr(unsafe.Pointer(&found)))
	if err != nil {
		return nil, fmt.Errorf("FindFirst: %w", err)
	}
	if found == nil {
		return nil, automation.ErrElementNotFound
	}
	return &element{u: e.u, obj: found}, nil
}

func (e *element) FindAllChildren() ([]automation.Element, error) {
	var arr *ole.IUnknown
	err := comCall(e.obj, vtFindAll, treeScopeChildren, uintptr(unsafe.Pointer(e.u.trueCond)), uintptr(unsafe.Pointer(&arr)))
	if err != nil {
		return nil, fmt.Errorf("FindAll: %w", err)
	}
	if arr == nil {
		return nil, nil
	}
	defer arr.Release()

	var length int32
	if err := comCall(arr, vtArrayLength, uintptr(unsafe.Pointer(&length))); err != nil {
		return nil, fmt.Errorf("get_Length: %w", err)
	}

	out := make([]automation.Element, 0, length)
	for i := int32(0); i < length; i++ {
		var child *ole.IUnknown
		if err := comCall(arr, vtArrayGetElement, uintptr(i), uintptr(unsafe.Pointer(&child))); err != nil {
			for _, el := range out {
				el.Release()
			}
			return nil, fmt.Errorf("GetElement(%d): %w", i, err)
		}
		out = append(out, &element{u: e.u, obj: child})
	}
	return out, nil
}

func (e *element) Release() {
	if e.obj != nil {
		e.obj.Release()
		e.obj = nil
	}
}
