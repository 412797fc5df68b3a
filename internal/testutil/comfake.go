package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/newhook/ecuci/internal/com"
)

// GenerateCall records one report generation request.
type GenerateCall struct {
	DBFile       string
	ReportDir    string
	Format       string
	ReportConfig string
	Wait         bool
	Params       []com.Param
}

// FakeCOM is an in-memory automation server implementing com.Dialer.
// Zero values describe a running application without caches.
type FakeCOM struct {
	mu sync.Mutex

	Version       string
	NotRunning    bool
	Unavailable   error
	DialErr       error
	VersionErr    error
	QuitResult    bool
	ExitResult    bool
	QuitErr       error
	TBC           string
	TCF           string
	Started       bool
	UserLibsOK    bool
	CachesErr     error
	CacheErr      error
	GenerateFunc  func(call GenerateCall) (bool, error)
	CacheFiles    map[com.CacheType][]string
	ConnectWaits  []int
	Props         []com.Property
	Generated     []GenerateCall
	QuitCalls     int
	ExitCalls     int
	Closed        int
	UserLibsCalls int
}

var _ com.Dialer = &FakeCOM{}

// Available returns Unavailable.
func (f *FakeCOM) Available() error {
	return f.Unavailable
}

// Dial records the property and returns a session bound to f.
func (f *FakeCOM) Dial(ctx context.Context, prop com.Property, connectTimeout int) (com.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Props = append(f.Props, prop)
	f.ConnectWaits = append(f.ConnectWaits, connectTimeout)
	if f.Unavailable != nil {
		return nil, &com.Error{Op: "dial", Err: f.Unavailable}
	}
	if f.DialErr != nil {
		return nil, f.DialErr
	}
	return &fakeClient{f: f}, nil
}

// Calls returns the number of dials.
func (f *FakeCOM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Props)
}

type fakeClient struct {
	f *FakeCOM
}

func (c *fakeClient) Close() error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.Closed++
	return nil
}

func (c *fakeClient) IsApplicationRunning() (bool, error) {
	return !c.f.NotRunning, nil
}

func (c *fakeClient) GetVersion() (string, error) {
	if c.f.VersionErr != nil {
		return "", &com.Error{Op: "GetVersion", Err: c.f.VersionErr}
	}
	return c.f.Version, nil
}

func (c *fakeClient) Quit() (bool, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.QuitCalls++
	if c.f.QuitErr != nil {
		return false, &com.Error{Op: "Quit", Err: c.f.QuitErr}
	}
	return c.f.QuitResult, nil
}

func (c *fakeClient) Exit() (bool, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.ExitCalls++
	return c.f.ExitResult, nil
}

func (c *fakeClient) UpdateUserLibraries() (bool, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.UserLibsCalls++
	return c.f.UserLibsOK, nil
}

func (c *fakeClient) IsStarted() (bool, error) {
	return c.f.Started, nil
}

func (c *fakeClient) CurrentTestBenchConfigurationFile() (string, error) {
	return c.f.TBC, nil
}

func (c *fakeClient) CurrentTestConfigurationFile() (string, error) {
	return c.f.TCF, nil
}

func (c *fakeClient) TestEnvironment() (com.TestEnvironment, error) {
	return &fakeTestEnvironment{f: c.f}, nil
}

func (c *fakeClient) Caches() (com.Caches, error) {
	if c.f.CachesErr != nil {
		return nil, &com.Error{Op: "GetCaches", Err: c.f.CachesErr}
	}
	return &fakeCaches{f: c.f}, nil
}

type fakeTestEnvironment struct {
	f *FakeCOM
}

func (e *fakeTestEnvironment) GenerateTestReportDocumentFromDB(dbFile, reportDir, format string, wait bool, params []com.Param) (bool, error) {
	return e.record(GenerateCall{DBFile: dbFile, ReportDir: reportDir, Format: format, Wait: wait, Params: params})
}

func (e *fakeTestEnvironment) GenerateTestReportDocument(dbFile, reportDir, reportConfig string, wait bool) (bool, error) {
	return e.record(GenerateCall{DBFile: dbFile, ReportDir: reportDir, ReportConfig: reportConfig, Wait: wait})
}

func (e *fakeTestEnvironment) record(call GenerateCall) (bool, error) {
	e.f.mu.Lock()
	e.f.Generated = append(e.f.Generated, call)
	fn := e.f.GenerateFunc
	e.f.mu.Unlock()
	if fn == nil {
		return true, nil
	}
	return fn(call)
}

type fakeCaches struct {
	f *FakeCOM
}

func (c *fakeCaches) Cache(t com.CacheType) (com.Cache, error) {
	return &fakeCache{f: c.f, t: t}, nil
}

type fakeCache struct {
	f *FakeCOM
	t com.CacheType
}

func (c *fakeCache) Insert(filePath, dbChannel string) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	if c.f.CacheErr != nil {
		return &com.Error{Op: "Insert", Err: c.f.CacheErr}
	}
	if filePath == "" {
		return &com.Error{Op: "Insert", Err: errors.New("empty file path")}
	}
	if c.f.CacheFiles == nil {
		c.f.CacheFiles = map[com.CacheType][]string{}
	}
	c.f.CacheFiles[c.t] = append(c.f.CacheFiles[c.t], filePath)
	return nil
}

func (c *fakeCache) Clear(force bool) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	delete(c.f.CacheFiles, c.t)
	return nil
}

func (c *fakeCache) Files() ([]string, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	out := make([]string, len(c.f.CacheFiles[c.t]))
	copy(out, c.f.CacheFiles[c.t])
	return out, nil
}
