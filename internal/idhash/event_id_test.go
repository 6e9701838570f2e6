package idhash

import (
	"testing"
)

func TestComputeEventID(t *testing.T) {
	tests := []struct {
		name         string
		eventType    string
		tokenAddress string
		txHash       string
		logIndex     uint
		wantLen      int // hash length should be 64
	}{
		{
			name:         "trade",
			eventType:    "trade",
			tokenAddress: "0x00000000000000000000000000000000000000aa",
			txHash:       "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060",
			logIndex:     3,
			wantLen:      64,
		},
		{
			name:         "fees collected",
			eventType:    "fees_collected",
			tokenAddress: "0x00000000000000000000000000000000000000bb",
			txHash:       "0x01",
			logIndex:     0,
			wantLen:      64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeEventID(tt.eventType, tt.tokenAddress, tt.txHash, tt.logIndex)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeEventID() length = %d, want %d", len(got), tt.wantLen)
			}

			got2 := ComputeEventID(tt.eventType, tt.tokenAddress, tt.txHash, tt.logIndex)
			if got != got2 {
				t.Errorf("ComputeEventID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeEventID_CaseInsensitive(t *testing.T) {
	lower := ComputeEventID("trade", "0xabcdef", "0xdeadbeef", 1)
	upper := ComputeEventID("trade", "0xABCDEF", "0xDEADBEEF", 1)
	if lower != upper {
		t.Errorf("ComputeEventID() depends on hex case: %s != %s", lower, upper)
	}
}

func TestComputeEventID_Uniqueness(t *testing.T) {
	base := ComputeEventID("trade", "0xaa", "0x01", 0)

	variants := map[string]string{
		"event type": ComputeEventID("token_created", "0xaa", "0x01", 0),
		"token":      ComputeEventID("trade", "0xbb", "0x01", 0),
		"tx hash":    ComputeEventID("trade", "0xaa", "0x02", 0),
		"log index":  ComputeEventID("trade", "0xaa", "0x01", 1),
	}
	for field, id := range variants {
		if id == base {
			t.Errorf("changing %s did not change the id", field)
		}
	}
}
