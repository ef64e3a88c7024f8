package sweep

import "github.com/bluesky-social/indigo/atproto/syntax"

// BlockRecord pairs a repository block record with its subject.
type BlockRecord struct {
	Subject syntax.DID
	URI     syntax.ATURI
}

// StaleBlocks returns the block records whose subject no longer appears in
// the live outgoing-block view. The live view is authoritative for active
// blocks, so anything missing from it points at an account that is gone
// rather than deliberately unblocked. Neither input is modified and record
// order is preserved.
func StaleBlocks(records []BlockRecord, active map[syntax.DID]struct{}) []BlockRecord {
	stale := make([]BlockRecord, 0)
	for _, rec := range records {
		if _, ok := active[rec.Subject]; !ok {
			stale = append(stale, rec)
		}
	}
	return stale
}
