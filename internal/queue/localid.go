package queue

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	localIDPrefix  = "local_"
	serverIDPrefix = "server_"
	queueIDPrefix  = "queue_"

	// suffixLen matches the 9-character base36 suffix of the original id
	// generator. Combined with the millisecond timestamp, collisions within
	// one device are vanishingly unlikely.
	suffixLen = 9
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newLocalID generates a client-side entity id of the form
// local_<ms-timestamp>_<9-char base36 suffix>.
func newLocalID(now time.Time) string {
	return fmt.Sprintf("%s%d_%s", localIDPrefix, now.UnixMilli(), randomSuffix(suffixLen))
}

// newQueueID generates a queue item id. Same shape as local ids, distinct
// prefix so the two namespaces never collide.
func newQueueID(now time.Time) string {
	return fmt.Sprintf("%s%d_%s", queueIDPrefix, now.UnixMilli(), randomSuffix(suffixLen))
}

// serverLocalID derives the local mirror id for an entity created online.
func serverLocalID(serverID string) string {
	return serverIDPrefix + serverID
}

// IsLocalID reports whether id was generated offline and has no server
// counterpart yet.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}
