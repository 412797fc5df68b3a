//go:build windows

package com

import (
	"testing"

	ole "github.com/go-ole/go-ole"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantArrayTakesOwnership(t *testing.T) {
	tests := []struct {
		name   string
		values []string
	}{
		{name: "empty"},
		{name: "pair", values: []string{"Name", "Value"}},
		{name: "unicode", values: []string{"Prüfstand", "Überlauf", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elems := make([]ole.VARIANT, 0, len(tt.values))
			for _, v := range tt.values {
				elems = append(elems, bstr(v))
			}
			arr, err := variantArray(elems...)
			require.NoError(t, err)
			defer arr.Clear()

			for _, e := range elems {
				assert.Equal(t, ole.VT_EMPTY, e.VT)
			}
			got := arr.ToArray().ToValueArray()
			require.Len(t, got, len(tt.values))
			for i, v := range tt.values {
				assert.Equal(t, v, got[i])
			}
		})
	}
}

func TestParamsVariant(t *testing.T) {
	params := []Param{{Name: "ATX_SERVER", Value: "localhost"}, {Name: "UPLOAD", Value: "True"}}
	v, err := paramsVariant(params)
	require.NoError(t, err)
	defer v.Clear()

	n, err := v.ToArray().TotalElements(0)
	require.NoError(t, err)
	assert.Equal(t, int32(len(params)), n)
}
