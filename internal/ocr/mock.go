package ocr

import (
	"context"
	"time"

	"tally/internal/core"
)

// MockAnalyzer returns canned data; used when no Azure credentials are
// configured so the upload flow stays exercisable in development.
type MockAnalyzer struct{}

func (MockAnalyzer) AnalyzeReceipt(_ context.Context, _ []byte) (Receipt, error) {
	return Receipt{
		Store: "Sample Store",
		Date:  core.DateOf(time.Now().UTC()),
		Items: []Item{
			{Name: "Sample Item 1", Price: core.FromDollars(9.99), Category: "Groceries"},
			{Name: "Sample Item 2", Price: core.FromDollars(14.99), Category: "Groceries"},
		},
		Total: core.FromDollars(24.98),
	}, nil
}

// FromConfig picks the Azure analyzer when both endpoint and key are
// set, the mock otherwise.
func FromConfig(endpoint, key string) Analyzer {
	if endpoint != "" && key != "" {
		return NewAzureAnalyzer(endpoint, key)
	}
	return MockAnalyzer{}
}
