// Copyright 2025 Takhin Data, Inc.

package tier

import "context"

// ReconcileResult reports duplicate residency cleanup performed by Reconcile.
type ReconcileResult struct {
	Checked int
	Cleaned int
	Errors  []string
}

// Reconcile implements the invariant-violation recovery path: for every
// tracked key, any tier other than metadata.tier that still holds a copy is
// a transient duplicate left by a migration whose delete-from-source step
// failed (§4.1 step 3). The copy in metadata.tier is authoritative; the
// reconciliation sweep removes the rest.
func (e *Engine) Reconcile(ctx context.Context) ReconcileResult {
	e.mu.RLock()
	snapshot := make(map[string]Tier, len(e.metadata))
	for key, meta := range e.metadata {
		snapshot[key] = meta.Tier
	}
	e.mu.RUnlock()

	result := ReconcileResult{}
	for key, authoritative := range snapshot {
		result.Checked++
		for t, store := range e.stores {
			if t == authoritative {
				continue
			}
			_, hit, err := store.get(ctx, key)
			if err != nil {
				continue
			}
			if !hit {
				continue
			}
			if err := store.delete(ctx, key); err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			result.Cleaned++
			e.log.Info("reconciled duplicate residency", "key", key, "stray_tier", t, "authoritative_tier", authoritative)
		}
	}
	return result
}
