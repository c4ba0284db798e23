package dns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupReturnsIPLiterals(t *testing.T) {
	r := &Resolver{Fallback: []string{}}

	ip, err := r.Lookup(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", ip)

	ip, err = r.Lookup(context.Background(), "::1")
	require.NoError(t, err)
	require.Equal(t, "::1", ip)
}

func TestLookupWithoutFallbackFails(t *testing.T) {
	r := &Resolver{Fallback: []string{}}
	_, err := r.Lookup(context.Background(), "does-not-exist.invalid")
	require.Error(t, err)
}

func TestPreferIPv4(t *testing.T) {
	require.Equal(t, "10.0.0.1", preferIPv4([]string{"fe80::1", "10.0.0.1"}))
	require.Equal(t, "fe80::1", preferIPv4([]string{"fe80::1"}))
}
