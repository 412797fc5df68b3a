//go:build !windows

package com

import "context"

type unsupportedDialer struct{}

// NewDialer returns a dialer that always fails with ErrUnsupported.
func NewDialer() Dialer {
	return unsupportedDialer{}
}

func (unsupportedDialer) Available() error {
	return ErrUnsupported
}

func (unsupportedDialer) Dial(context.Context, Property, int) (Client, error) {
	return nil, &Error{Op: "dial", Err: ErrUnsupported}
}
