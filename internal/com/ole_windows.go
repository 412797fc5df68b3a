//go:build windows

package com

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	cosignal "github.com/newhook/ecuci/internal/signal"
)

// sFalse is returned by CoInitializeEx when the thread is already initialized.
const sFalse = 0x00000001

type oleDialer struct{}

// NewDialer returns the go-ole backed dialer.
func NewDialer() Dialer {
	return oleDialer{}
}

// Available initializes and releases COM once on a locked thread.
func (oleDialer) Available() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := coInitialize(); err != nil {
		return fmt.Errorf("could not load COM library: %w", err)
	}
	ole.CoUninitialize()
	return nil
}

// Dial attaches to the automation server. The calling goroutine stays locked to
// its OS thread until Close.
func (oleDialer) Dial(ctx context.Context, prop Property, connectTimeout int) (Client, error) {
	prop = prop.WithDefaults()
	runtime.LockOSThread()
	if err := coInitialize(); err != nil {
		runtime.UnlockOSThread()
		return nil, &Error{Op: "CoInitializeEx", Err: err}
	}

	unknown, err := oleutil.CreateObject(prop.ProgID)
	if err != nil {
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		return nil, &Error{Op: "CreateObject " + prop.ProgID, Err: err}
	}
	disp, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		return nil, &Error{Op: "QueryInterface", Err: err}
	}

	c := &oleClient{dispatch: dispatch{disp: disp, timeout: prop.Timeout}}
	if err := c.waitForConnection(ctx, connectTimeout); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func coInitialize() error {
	err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED)
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) && oleErr.Code() == sFalse {
		return nil
	}
	return err
}

// dispatch wraps an IDispatch with the per-request timeout.
type dispatch struct {
	disp    *ole.IDispatch
	timeout int
}

func (d dispatch) call(name string, params ...any) (*ole.VARIANT, error) {
	if d.timeout <= 0 {
		v, err := oleutil.CallMethod(d.disp, name, params...)
		if err != nil {
			return nil, &Error{Op: name, Err: err}
		}
		return v, nil
	}

	type result struct {
		v   *ole.VARIANT
		err error
	}
	done := make(chan result, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := coInitialize(); err != nil {
			done <- result{err: err}
			return
		}
		defer ole.CoUninitialize()
		v, err := oleutil.CallMethod(d.disp, name, params...)
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, &Error{Op: name, Err: r.err}
		}
		return r.v, nil
	case <-time.After(time.Duration(d.timeout) * time.Second):
		return nil, &Error{Op: name, Err: fmt.Errorf("%w after %d seconds", ErrTimeout, d.timeout)}
	}
}

func (d dispatch) callBool(name string, params ...any) (bool, error) {
	v, err := d.call(name, params...)
	if err != nil {
		return false, err
	}
	defer v.Clear()
	b, _ := v.Value().(bool)
	return b, nil
}

func (d dispatch) callString(name string, params ...any) (string, error) {
	v, err := d.call(name, params...)
	if err != nil {
		return "", err
	}
	defer v.Clear()
	return v.ToString(), nil
}

func (d dispatch) callDispatch(name string, params ...any) (dispatch, error) {
	v, err := d.call(name, params...)
	if err != nil {
		return dispatch{}, err
	}
	return dispatch{disp: v.ToIDispatch(), timeout: d.timeout}, nil
}

func (d dispatch) release() {
	if d.disp != nil {
		d.disp.Release()
	}
}

type oleClient struct {
	dispatch
}

func (c *oleClient) waitForConnection(ctx context.Context, timeout int) error {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	for timeout <= 0 || time.Now().Before(deadline) {
		running, err := c.IsApplicationRunning()
		if err == nil && running {
			return nil
		}
		if errors.Is(err, ErrTimeout) {
			return nil
		}
		if err := cosignal.Sleep(ctx, time.Second); err != nil {
			return &Error{Op: "connect", Err: err}
		}
	}
	return &Error{Op: "connect", Err: fmt.Errorf("%w: maximum timeout of %d seconds exceeded, COM server not available", ErrTimeout, timeout)}
}

func (c *oleClient) Close() error {
	c.release()
	ole.CoUninitialize()
	runtime.UnlockOSThread()
	return nil
}

func (c *oleClient) IsApplicationRunning() (bool, error) { return c.callBool("IsApplicationRunning") }
func (c *oleClient) GetVersion() (string, error)         { return c.callString("GetVersion") }
func (c *oleClient) Quit() (bool, error)                 { return c.callBool("Quit") }
func (c *oleClient) Exit() (bool, error)                 { return c.callBool("Exit") }
func (c *oleClient) UpdateUserLibraries() (bool, error)  { return c.callBool("UpdateUserLibraries") }
func (c *oleClient) IsStarted() (bool, error)            { return c.callBool("IsStarted") }

func (c *oleClient) CurrentTestBenchConfigurationFile() (string, error) {
	return c.configurationFile("GetCurrentTestbenchConfiguration")
}

func (c *oleClient) CurrentTestConfigurationFile() (string, error) {
	return c.configurationFile("GetCurrentTestConfiguration")
}

func (c *oleClient) configurationFile(getter string) (string, error) {
	cfg, err := c.callDispatch(getter)
	if err != nil {
		return "", err
	}
	defer cfg.release()
	return cfg.callString("GetFileName")
}

func (c *oleClient) TestEnvironment() (TestEnvironment, error) {
	env, err := c.callDispatch("GetTestEnvironment")
	if err != nil {
		return nil, err
	}
	return oleTestEnvironment{env}, nil
}

func (c *oleClient) Caches() (Caches, error) {
	caches, err := c.callDispatch("GetCaches")
	if err != nil {
		return nil, err
	}
	return oleCaches{caches}, nil
}

type oleTestEnvironment struct {
	dispatch
}

func (e oleTestEnvironment) GenerateTestReportDocumentFromDB(dbFile, reportDir, format string, wait bool, params []Param) (bool, error) {
	settings, err := paramsVariant(params)
	if err != nil {
		return false, &Error{Op: "GenerateTestReportDocumentFromDB", Err: err}
	}
	defer settings.Clear()
	return e.callBool("GenerateTestReportDocumentFromDB", dbFile, reportDir, format, wait, settings)
}

func (e oleTestEnvironment) GenerateTestReportDocument(dbFile, reportDir, reportConfig string, wait bool) (bool, error) {
	return e.callBool("GenerateTestReportDocument", dbFile, reportDir, reportConfig, wait)
}

type oleCaches struct {
	dispatch
}

func (c oleCaches) Cache(t CacheType) (Cache, error) {
	method := t.method()
	if method == "" {
		return nil, &Error{Op: "GetCache", Err: fmt.Errorf("unknown cache type %q", t)}
	}
	cache, err := c.callDispatch(method)
	if err != nil {
		return nil, err
	}
	return oleCache{cache}, nil
}

type oleCache struct {
	dispatch
}

func (c oleCache) Insert(filePath, dbChannel string) error {
	_, err := c.call("Insert", filePath, dbChannel)
	return err
}

func (c oleCache) Clear(force bool) error {
	_, err := c.call("Clear", force)
	return err
}

func (c oleCache) Files() ([]string, error) {
	v, err := c.call("GetFiles")
	if err != nil {
		return nil, err
	}
	defer v.Clear()
	arr := v.ToArray()
	if arr == nil {
		return nil, nil
	}
	return arr.ToStringArray(), nil
}

var (
	oleaut32                = syscall.NewLazyDLL("oleaut32.dll")
	procSafeArrayCreateVec  = oleaut32.NewProc("SafeArrayCreateVector")
	procSafeArrayPutElement = oleaut32.NewProc("SafeArrayPutElement")
)

// paramsVariant builds the array of [name, value] pairs expected by the
// report generator API.
func paramsVariant(params []Param) (*ole.VARIANT, error) {
	pairs := make([]ole.VARIANT, 0, len(params))
	for _, p := range params {
		pair, err := variantArray(bstr(p.Name), bstr(p.Value))
		if err != nil {
			for i := range pairs {
				pairs[i].Clear()
			}
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	outer, err := variantArray(pairs...)
	if err != nil {
		return nil, err
	}
	return &outer, nil
}

func bstr(s string) ole.VARIANT {
	return ole.NewVariant(ole.VT_BSTR, int64(uintptr(unsafe.Pointer(ole.SysAllocStringLen(s)))))
}

// variantArray takes ownership of elems. SafeArrayPutElement stores a copy,
// so every element is cleared once it has been put.
func variantArray(elems ...ole.VARIANT) (ole.VARIANT, error) {
	defer func() {
		for i := range elems {
			elems[i].Clear()
		}
	}()
	sa, _, _ := procSafeArrayCreateVec.Call(uintptr(ole.VT_VARIANT), 0, uintptr(len(elems)))
	if sa == 0 {
		return ole.VARIANT{}, errors.New("SafeArrayCreateVector failed")
	}
	arr := ole.NewVariant(ole.VT_ARRAY|ole.VT_VARIANT, int64(sa))
	for i := range elems {
		idx := int32(i)
		hr, _, _ := procSafeArrayPutElement.Call(sa, uintptr(unsafe.Pointer(&idx)), uintptr(unsafe.Pointer(&elems[i])))
		if hr != 0 {
			arr.Clear()
			return ole.VARIANT{}, ole.NewError(hr)
		}
	}
	return arr, nil
}
