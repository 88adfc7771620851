package timing

import (
	"time"

	"github.com/trellis-ai/trellis/backend/pkg/logger"
)

// Observe starts a timer for a named remote operation and returns a function
// to be called when the operation finishes. Applied at the collaborator
// boundary (store, search, model calls) instead of wrapping every method.
//
//	done := timing.Observe("get_outgoing_relationships")
//	rels, err := store.GetOutgoingRelationships(ctx, id, "", limit)
//	done(err)
func Observe(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			logger.Error(operation+" failed", "duration_ms", elapsed, "err", err)
			return
		}
		logger.Debug(operation+" completed", "duration_ms", elapsed)
	}
}
