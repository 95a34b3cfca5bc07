package services

import (
	"tally/internal/core"
)

// Allocate divides a total equally among the members. Each share is
// rounded to cents; the rounding residue is left with the last member
// so the shares always reconstruct the total.
func Allocate(receiptGroupID string, total core.Money, members []int64) []core.Split {
	if len(members) == 0 {
		return nil
	}
	pct := 100.0 / float64(len(members))
	share := total.Div(len(members))

	splits := make([]core.Split, len(members))
	allocated := core.Money{}
	for i, m := range members {
		amount := share
		if i == len(members)-1 {
			amount = total.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		splits[i] = core.Split{
			ReceiptGroupID: receiptGroupID,
			UserID:         m,
			Amount:         amount,
			Percentage:     pct,
		}
	}
	return splits
}

// AttributeCost computes the share of one transaction's price that
// belongs to the viewer, and whether the transaction belongs in the
// viewer's aggregates at all.
//
// With no splits recorded the owner carries the full price and everyone
// else sees nothing. With splits recorded, a viewer without a split
// entry has the transaction removed from their view entirely; a viewer
// with an entry gets their group-level allocation distributed across
// the group's line items in proportion to each item's price.
func AttributeCost(tx core.Transaction, groupSplits []core.Split, groupTotal core.Money, viewerID int64) (core.Money, bool) {
	if len(groupSplits) == 0 {
		if tx.UserID == viewerID {
			return tx.Price, true
		}
		return core.Money{}, false
	}

	var viewerSplit *core.Split
	for i := range groupSplits {
		if groupSplits[i].UserID == viewerID {
			viewerSplit = &groupSplits[i]
			break
		}
	}
	if viewerSplit == nil {
		return core.Money{}, false
	}
	if groupTotal.IsZero() {
		return core.Money{}, true
	}
	ratio := float64(viewerSplit.Amount.Cents) / float64(groupTotal.Cents)
	return tx.Price.Share(ratio), true
}

// receiptGroupTotals sums transaction prices per receipt group id.
func receiptGroupTotals(transactions []core.Transaction) map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, tx := range transactions {
		if tx.ReceiptGroupID == "" {
			continue
		}
		totals[tx.ReceiptGroupID] = totals[tx.ReceiptGroupID].Add(tx.Price)
	}
	return totals
}

// splitsByGroup indexes splits by their receipt group id.
func splitsByGroup(splits []core.Split) map[string][]core.Split {
	out := make(map[string][]core.Split)
	for _, s := range splits {
		if s.ReceiptGroupID == "" {
			continue
		}
		out[s.ReceiptGroupID] = append(out[s.ReceiptGroupID], s)
	}
	return out
}
