package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// backupCodeCount is how many recovery codes accompany a 2FA enrollment.
const backupCodeCount = 8

// GenerateBackupCodes produces n recovery codes of the form "XXXX-XXXX",
// each derived from 4 bytes of a cryptographically secure random source
// rendered as uppercase hex.
func GenerateBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		raw := make([]byte, 4)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("failed to read random bytes: %w", err)
		}
		hexed := strings.ToUpper(hex.EncodeToString(raw))
		codes = append(codes, hexed[:4]+"-"+hexed[4:8])
	}
	return codes, nil
}
