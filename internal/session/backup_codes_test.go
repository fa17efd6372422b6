package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBackupCodes_Shape(t *testing.T) {
	codes, err := GenerateBackupCodes(backupCodeCount)

	require.NoError(t, err)
	require.Len(t, codes, 8)
	for _, code := range codes {
		assert.Regexp(t, `^[0-9A-F]{4}-[0-9A-F]{4}$`, code)
	}
}

func TestGenerateBackupCodes_Distinct(t *testing.T) {
	// 32 bits of entropy per code; a collision within one batch would be
	// a symptom of a broken random source, not bad luck.
	codes, err := GenerateBackupCodes(backupCodeCount)
	require.NoError(t, err)

	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}
