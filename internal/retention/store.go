// Copyright 2025 Takhin Data, Inc.

package retention

import (
	"context"

	"github.com/takhin-data/stratum/internal/tier"
)

// Item is the minimal view of a stored entity the policy engine evaluates.
// It is a type alias (not a new type) to tier.RetentionItem so that
// *tier.Engine's ItemsFor method satisfies the Store interface below
// exactly, without internal/tier importing this package.
type Item = tier.RetentionItem

// Store is the narrow view of the Tiered Storage Engine the retention engine
// needs: enumerate items for a (data_type, tier) pair, and apply one of the
// three remediation actions. *tier.Engine satisfies this interface.
type Store interface {
	ItemsFor(dataType tier.DataType, tr tier.Tier) []Item
	DeleteItem(ctx context.Context, key string) error
	ArchiveItem(ctx context.Context, key string) error
	DemoteItem(ctx context.Context, key string) error
}
