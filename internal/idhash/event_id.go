package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(event_type|token_address|tx_hash|log_index)
// Addresses and hashes are lower-cased first.
// Returns hex-encoded hash (64 characters).
func ComputeEventID(
	eventType string,
	tokenAddress string,
	txHash string,
	logIndex uint,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		eventType,
		strings.ToLower(tokenAddress),
		strings.ToLower(txHash),
		logIndex,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
