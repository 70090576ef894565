package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArchiveKeySlugsWallets(t *testing.T) {
	key := ArchiveKey("0xAbC 123", "0xDeF 456", "battle-1")
	require.Equal(t, "battles/0xabc-123-vs-0xdef-456-battle-1.json", key)
}

func TestArchiveKeyIsStable(t *testing.T) {
	a := ArchiveKey("alice", "bob", "battle-1")
	b := ArchiveKey("alice", "bob", "battle-1")
	require.Equal(t, a, b)
	require.Equal(t, "battles/alice-vs-bob-battle-1.json", a)
}
