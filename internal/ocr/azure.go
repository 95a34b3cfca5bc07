package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
)

const (
	analyzePath  = "/formrecognizer/documentModels/prebuilt-receipt:analyze?api-version=2023-07-31"
	pollInterval = time.Second
	pollAttempts = 30
)

// AzureAnalyzer calls the Azure Document Intelligence prebuilt-receipt
// model: submit returns 202 with an Operation-Location, which is then
// polled until the analysis succeeds, fails or the attempt budget runs
// out.
type AzureAnalyzer struct {
	endpoint string
	key      string
	client   *http.Client
}

func NewAzureAnalyzer(endpoint, key string) *AzureAnalyzer {
	return &AzureAnalyzer{
		endpoint: endpoint,
		key:      key,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *AzureAnalyzer) AnalyzeReceipt(ctx context.Context, image []byte) (Receipt, error) {
	operationURL, err := a.submit(ctx, image)
	if err != nil {
		return Receipt{}, err
	}
	return a.poll(ctx, operationURL)
}

func (a *AzureAnalyzer) submit(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+analyzePath, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit receipt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("analyze request rejected: status %d: %s", resp.StatusCode, body)
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("analyze response missing Operation-Location header")
	}
	return operationURL, nil
}

func (a *AzureAnalyzer) poll(ctx context.Context, operationURL string) (Receipt, error) {
	for attempt := 0; attempt < pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-time.After(pollInterval):
		}

		result, err := a.fetchResult(ctx, operationURL)
		if err != nil {
			return Receipt{}, err
		}
		switch result.Status {
		case "succeeded":
			return parseAnalyzeResult(result)
		case "failed":
			return Receipt{}, fmt.Errorf("receipt analysis failed")
		}
		slog.DebugContext(ctx, "Waiting for receipt analysis",
			"attempt", attempt+1,
			"status", result.Status)
	}
	return Receipt{}, fmt.Errorf("receipt analysis timed out after %d attempts", pollAttempts)
}

func (a *AzureAnalyzer) fetchResult(ctx context.Context, operationURL string) (*analyzeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll analysis: %w", err)
	}
	defer resp.Body.Close()

	var result analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	return &result, nil
}

// Wire shapes for the prebuilt-receipt model response. Only the fields
// the parser reads are declared.
type (
	analyzeResponse struct {
		Status        string `json:"status"`
		AnalyzeResult struct {
			Documents []struct {
				Fields receiptFields `json:"fields"`
			} `json:"documents"`
		} `json:"analyzeResult"`
	}

	receiptFields struct {
		MerchantName    *valueField `json:"MerchantName"`
		TransactionDate *valueField `json:"TransactionDate"`
		Total           *valueField `json:"Total"`
		Items           *struct {
			ValueArray []struct {
				ValueObject struct {
					Description *valueField `json:"Description"`
					TotalPrice  *valueField `json:"TotalPrice"`
				} `json:"valueObject"`
			} `json:"valueArray"`
		} `json:"Items"`
	}

	valueField struct {
		ValueString   string `json:"valueString"`
		ValueDate     string `json:"valueDate"`
		ValueCurrency *struct {
			Amount float64 `json:"amount"`
		} `json:"valueCurrency"`
	}
)

func parseAnalyzeResult(result *analyzeResponse) (Receipt, error) {
	r := Receipt{Store: "Unknown"}

	docs := result.AnalyzeResult.Documents
	if len(docs) == 0 {
		return r, fmt.Errorf("no documents recognized")
	}
	fields := docs[0].Fields

	if fields.MerchantName != nil && fields.MerchantName.ValueString != "" {
		r.Store = fields.MerchantName.ValueString
	}
	if fields.TransactionDate != nil && fields.TransactionDate.ValueDate != "" {
		if d, err := core.ParseDate(fields.TransactionDate.ValueDate); err == nil {
			r.Date = d
		}
	}
	if r.Date.IsZero() {
		r.Date = core.DateOf(time.Now().UTC())
	}
	if fields.Total != nil && fields.Total.ValueCurrency != nil {
		r.Total = core.FromDollars(fields.Total.ValueCurrency.Amount)
	}

	if fields.Items != nil {
		for _, item := range fields.Items.ValueArray {
			name := "Unknown"
			if item.ValueObject.Description != nil && item.ValueObject.Description.ValueString != "" {
				name = item.ValueObject.Description.ValueString
			}
			var price core.Money
			if item.ValueObject.TotalPrice != nil && item.ValueObject.TotalPrice.ValueCurrency != nil {
				price = core.FromDollars(item.ValueObject.TotalPrice.ValueCurrency.Amount)
			}
			r.Items = append(r.Items, Item{
				Name:     name,
				Price:    price,
				Category: Categorize(name),
			})
		}
	}
	return r, nil
}
