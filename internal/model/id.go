package model

import "github.com/google/uuid"

// Entity prefixes for opaque primary keys. The prefix makes an ID
// self-describing in logs and API payloads.
const (
	PrefixPurchaseOrder = "po"
	PrefixBillOfLading  = "bol"
	PrefixInvoice       = "inv"
	PrefixMatchResult   = "match"
	PrefixFile          = "file"
	PrefixJob           = "job"
)

// NewID generates a prefixed opaque identifier, e.g. "inv_9f0c...".
func NewID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}
