package services

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const defaultOrderIDPrefix = "CKT"

// OrderIDGenerator returns {prefix}_{last 8 digits of epoch ms}_{10000..99999}.
func OrderIDGenerator(prefix string, clock func() time.Time) func() string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultOrderIDPrefix
	}
	if clock == nil {
		clock = time.Now
	}
	return func() string {
		ms := fmt.Sprintf("%d", clock().UnixMilli())
		if len(ms) > 8 {
			ms = ms[len(ms)-8:]
		}
		return fmt.Sprintf("%s_%s_%d", prefix, ms, 10000+rand.IntN(90000))
	}
}
