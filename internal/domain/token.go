package domain

// Token represents a token launched by the factory contract.
// Corresponds to tokens table in PostgreSQL.
type Token struct {
	Address        string  `json:"address"`                  // contract address, lower-case hex (PK)
	Creator        string  `json:"creator"`                  // creator address
	Name           string  `json:"name"`                     // display name
	Symbol         string  `json:"symbol"`                   // ticker symbol
	TokenID        int64   `json:"tokenId"`                  // factory-assigned numeric id
	CreatedAt      int64   `json:"createdAt"`                // creation timestamp (ms)
	CreatedBlock   uint64  `json:"createdBlock"`             // block of TokenCreated
	Graduated      bool    `json:"graduated"`                // set once, never reverts
	PoolAddress    *string `json:"poolAddress,omitempty"`    // graduation pool (nullable)
	GraduatedBlock *uint64 `json:"graduatedBlock,omitempty"` // block of TokenGraduated (nullable)
	GraduatedAt    *int64  `json:"graduatedAt,omitempty"`    // graduation timestamp in ms (nullable)
	Metadata       string  `json:"metadata,omitempty"`       // free-form metadata blob
}

// Graduation carries the fields written by the graduation update.
type Graduation struct {
	TokenAddress string
	PoolAddress  string
	BlockNumber  uint64
	Timestamp    int64 // ms
}
