// Package com talks to a running ecu.test instance through its COM automation
// interface. The Windows implementation uses go-ole; on other platforms every
// dial fails with ErrUnsupported.
package com

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultProgID is the programmatic identifier registered by ecu.test.
	DefaultProgID = "ECU-TEST.Application"
	// DefaultTimeout bounds a single automation request in seconds; 0 disables the bound.
	DefaultTimeout = 0
	// DefaultConnectionTimeout bounds waiting for the application to accept requests, in seconds.
	DefaultConnectionTimeout = 120
)

var (
	// ErrUnsupported is returned when COM automation is not available on this platform.
	ErrUnsupported = errors.New("COM automation is only supported on Windows")
	// ErrTimeout is returned when a request or connection exceeds its timeout.
	ErrTimeout = errors.New("COM request timed out")
)

// Error is a failed automation request.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Property selects the automation server and the per-request timeout.
// It is passed explicitly to every dial instead of living in global state.
type Property struct {
	ProgID  string
	Timeout int
}

// DefaultProperty returns the property used when an installation does not override it.
func DefaultProperty() Property {
	return Property{ProgID: DefaultProgID, Timeout: DefaultTimeout}
}

// WithDefaults fills unset fields.
func (p Property) WithDefaults() Property {
	if strings.TrimSpace(p.ProgID) == "" {
		p.ProgID = DefaultProgID
	}
	if p.Timeout < 0 {
		p.Timeout = DefaultTimeout
	}
	return p
}

// Dialer opens automation sessions.
type Dialer interface {
	// Available checks that the COM runtime can be loaded on this agent.
	Available() error
	// Dial connects to prop.ProgID and waits up to connectTimeout seconds
	// (0 = no bound) for the application to report it is running.
	Dial(ctx context.Context, prop Property, connectTimeout int) (Client, error)
}

// Client is an open automation session. Close must be called when done.
type Client interface {
	Close() error
	IsApplicationRunning() (bool, error)
	GetVersion() (string, error)
	Quit() (bool, error)
	Exit() (bool, error)
	UpdateUserLibraries() (bool, error)
	IsStarted() (bool, error)
	CurrentTestBenchConfigurationFile() (string, error)
	CurrentTestConfigurationFile() (string, error)
	TestEnvironment() (TestEnvironment, error)
	Caches() (Caches, error)
}

// Param is an ordered report generator setting.
type Param struct {
	Name  string
	Value string
}

// TestEnvironment exposes report generation.
type TestEnvironment interface {
	// GenerateTestReportDocumentFromDB renders dbFile with the named format using params.
	GenerateTestReportDocumentFromDB(dbFile, reportDir, format string, wait bool, params []Param) (bool, error)
	// GenerateTestReportDocument renders dbFile with the settings stored in reportConfig.
	GenerateTestReportDocument(dbFile, reportDir, reportConfig string, wait bool) (bool, error)
}

// CacheType is the closed set of caches maintained by ecu.test.
type CacheType string

const (
	CacheA2L     CacheType = "A2L"
	CacheELF     CacheType = "ELF"
	CacheBus     CacheType = "BUS"
	CacheModel   CacheType = "MODEL"
	CacheService CacheType = "SERVICE"
)

// CacheTypes lists every cache type in declaration order.
var CacheTypes = []CacheType{CacheA2L, CacheELF, CacheBus, CacheModel, CacheService}

// ParseCacheType parses a cache type name case-insensitively.
func ParseCacheType(s string) (CacheType, error) {
	for _, t := range CacheTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown cache type %q", s)
}

// UnmarshalText accepts cache type names in any case.
func (t *CacheType) UnmarshalText(b []byte) error {
	parsed, err := ParseCacheType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// method is the COM accessor of the cache.
func (t CacheType) method() string {
	switch t {
	case CacheA2L:
		return "GetA2lCache"
	case CacheELF:
		return "GetElfCache"
	case CacheBus:
		return "GetBusCache"
	case CacheModel:
		return "GetModelCache"
	case CacheService:
		return "GetServiceCache"
	}
	return ""
}

// Caches gives access to the typed caches.
type Caches interface {
	Cache(t CacheType) (Cache, error)
}

// Cache is a single typed cache.
type Cache interface {
	Insert(filePath, dbChannel string) error
	Clear(force bool) error
	Files() ([]string, error)
}
