// Package daemon exposes the config resolver over a Unix domain socket so
// any number of host processes can share one cache and one upstream fetch
// pipeline. One JSON request maps to one JSON response per exchange, using
// json.Encoder/Decoder on the connection.
package daemon

import "encoding/json"

// Request ops.
const (
	OpGet     = "get"     // resolve the config, freshness rules apply
	OpRefresh = "refresh" // resolve, skipping the freshness check
	OpStatus  = "status"  // cache metadata only, no network
	OpPurge   = "purge"   // drop the cached payload and timestamp
)

type Request struct {
	Op string `json:"op"`
}

// Response carries the outcome of any op. For get/refresh, OK is true even
// when no payload could be resolved: absence is a valid answer and shows up
// as Origin "none". OK is false only for protocol or store errors.
type Response struct {
	OK         bool            `json:"ok"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Origin     string          `json:"origin,omitempty"`
	StoredAtMS int64           `json:"stored_at_ms,omitempty"`
	Exists     bool            `json:"exists,omitempty"`
	AgeMS      int64           `json:"age_ms,omitempty"`
	Fresh      bool            `json:"fresh,omitempty"`
	Size       int             `json:"size,omitempty"`
	Error      string          `json:"error,omitempty"`
}
