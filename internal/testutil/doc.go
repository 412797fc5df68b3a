// Package testutil provides shared test doubles for the tool clients.
//
// LauncherMock and the process mocks are generated with moq
// (github.com/matryer/moq) from the interfaces in internal/build and
// internal/process:
//
//	go generate ./...
//
// The mocks use function-field style, so tests stub only what they need:
//
//	launcher := &testutil.LauncherMock{
//	    IsUnixFunc: func() bool { return false },
//	}
//
// FakeCOM is a hand-written com.Dialer that keeps the state of an in-memory
// ecu.test application and records the calls made against it.
package testutil
