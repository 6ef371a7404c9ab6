package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// New returns a prefixed, time-ordered id such as BILL-1756448000123-9f2c41aa.
// The millisecond component keeps ids sortable by creation time; the random
// suffix disambiguates ids minted in the same millisecond.
func New(prefix string) string {
	prefix = strings.ToUpper(prefix)
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixMilli())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(buf))
}
