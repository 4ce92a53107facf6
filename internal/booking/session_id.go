package booking

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionSuffixLen = 9

// NewSessionID returns session_<unix-ms>_<9 base36 chars>
func NewSessionID(now time.Time) string {
	id := uuid.New()
	suffix := new(big.Int).SetBytes(id[:]).Text(36)
	if len(suffix) < sessionSuffixLen {
		suffix = strings.Repeat("0", sessionSuffixLen-len(suffix)) + suffix
	}
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix[:sessionSuffixLen])
}
