package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewConnectionRegistry()
	sink := &recordingSink{}

	_, ok := registry.Lookup("alice")
	require.False(t, ok)

	registry.Register("alice", sink)
	got, ok := registry.Lookup("alice")
	require.True(t, ok)
	require.Same(t, sink, got.(*recordingSink))
}

func TestRegisterReplacesExistingSink(t *testing.T) {
	registry := NewConnectionRegistry()
	old := &recordingSink{}
	replacement := &recordingSink{}

	registry.Register("alice", old)
	registry.Register("alice", replacement)

	got, ok := registry.Lookup("alice")
	require.True(t, ok)
	require.Same(t, replacement, got.(*recordingSink))
}

func TestUnregisterIgnoresStaleSink(t *testing.T) {
	registry := NewConnectionRegistry()
	old := &recordingSink{}
	replacement := &recordingSink{}

	registry.Register("alice", old)
	registry.Register("alice", replacement)

	// The old socket closing late must not evict the reconnect.
	registry.Unregister("alice", old)
	got, ok := registry.Lookup("alice")
	require.True(t, ok)
	require.Same(t, replacement, got.(*recordingSink))

	registry.Unregister("alice", replacement)
	_, ok = registry.Lookup("alice")
	require.False(t, ok)
}
