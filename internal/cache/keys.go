package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

func YouTubeSearchKey(channelID, query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("youtube:search:%s:%s", channelID, hex.EncodeToString(sum[:8]))
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
