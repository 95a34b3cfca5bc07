// Package ocr extracts store, date and line items from receipt images.
package ocr

import (
	"context"

	"tally/internal/core"
)

// Item is one recognized line item.
type Item struct {
	Name     string     `json:"name"`
	Price    core.Money `json:"price"`
	Category string     `json:"category"`
}

// Receipt is the extraction result for one image.
type Receipt struct {
	Store string     `json:"store"`
	Date  core.Date  `json:"date"`
	Items []Item     `json:"items"`
	Total core.Money `json:"total"`
}

// Analyzer turns raw image bytes into a structured receipt.
type Analyzer interface {
	AnalyzeReceipt(ctx context.Context, image []byte) (Receipt, error)
}
