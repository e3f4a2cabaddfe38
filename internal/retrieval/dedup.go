package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/finrag/stockagent/internal/state"
)

// contentHash returns the SHA-256 hex digest of a hit's normalized
// 200-char content prefix, grounded on spec.md §8 testable property 3:
// "two hits whose normalized (lowercase, whitespace-collapsed) first 200
// characters match are considered duplicates regardless of source".
func contentHash(h state.SourceHit) string {
	sum := sha256.Sum256([]byte(h.NormalizedPrefix(200)))
	return hex.EncodeToString(sum[:])
}

// DedupByContentHash removes hits whose normalized 200-char content prefix
// has already been seen, keeping the first occurrence (highest-priority
// caller order wins — callers should pass already-score-sorted hits when
// "keep the better one" matters).
func DedupByContentHash(hits []state.SourceHit) []state.SourceHit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]state.SourceHit, 0, len(hits))
	for _, h := range hits {
		key := contentHash(h)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}

// telegramIdentityKey builds the (channel_id, message_id) union key spec.md
// §4.3's telegram retrieval loop dedups query-widened search results on,
// ahead of the content-hash pass.
func telegramIdentityKey(h state.SourceHit) string {
	channelID := fmt.Sprint(h.Metadata["channel_id"])
	messageID := fmt.Sprint(h.Metadata["message_id"])
	return channelID + "|" + messageID
}

// DedupTelegramByIdentity removes hits sharing a (channel_id, message_id)
// pair, keeping the first occurrence.
func DedupTelegramByIdentity(hits []state.SourceHit) []state.SourceHit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]state.SourceHit, 0, len(hits))
	for _, h := range hits {
		key := telegramIdentityKey(h)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}
