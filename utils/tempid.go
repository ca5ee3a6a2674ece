package utils

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TempIDPrefix menandai id sementara untuk entity yang dibuat secara optimistic.
// Id canonical dari Remote Service tidak pernah diawali prefix ini.
const TempIDPrefix = "tmp-"

var (
	tempEntropy   = ulid.Monotonic(rand.Reader, 0)
	tempEntropyMu sync.Mutex
)

// NewTempID -> id placeholder yang unik selama proses berjalan
func NewTempID() string {
	tempEntropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), tempEntropy)
	tempEntropyMu.Unlock()
	return TempIDPrefix + strings.ToLower(id.String())
}

// IsTempID -> true kalau id dibuat oleh NewTempID
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
