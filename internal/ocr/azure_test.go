package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tally/internal/core"
)

const sampleResult = `{
	"status": "succeeded",
	"analyzeResult": {
		"documents": [{
			"fields": {
				"MerchantName": {"valueString": "Corner Market"},
				"TransactionDate": {"valueDate": "2026-03-15"},
				"Total": {"valueCurrency": {"amount": 12.49}},
				"Items": {
					"valueArray": [
						{"valueObject": {
							"Description": {"valueString": "Whole Milk"},
							"TotalPrice": {"valueCurrency": {"amount": 3.49}}
						}},
						{"valueObject": {
							"Description": {"valueString": "Netflix Gift Card"},
							"TotalPrice": {"valueCurrency": {"amount": 9.00}}
						}}
					]
				}
			}
		}]
	}
}`

func TestParseAnalyzeResult(t *testing.T) {
	var resp analyzeResponse
	if err := json.Unmarshal([]byte(sampleResult), &resp); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	r, err := parseAnalyzeResult(&resp)
	if err != nil {
		t.Fatalf("parseAnalyzeResult: %v", err)
	}
	if r.Store != "Corner Market" {
		t.Errorf("store = %q, want Corner Market", r.Store)
	}
	if r.Date.String() != "2026-03-15" {
		t.Errorf("date = %s, want 2026-03-15", r.Date)
	}
	if r.Total != core.FromDollars(12.49) {
		t.Errorf("total = %s, want 12.49", r.Total)
	}
	if len(r.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(r.Items))
	}
	if r.Items[0].Category != "Groceries" {
		t.Errorf("milk categorized as %q, want Groceries", r.Items[0].Category)
	}
	if r.Items[1].Category != "Subscriptions" {
		t.Errorf("netflix categorized as %q, want Subscriptions", r.Items[1].Category)
	}
}

func TestParseAnalyzeResultNoDocuments(t *testing.T) {
	resp := analyzeResponse{Status: "succeeded"}
	if _, err := parseAnalyzeResult(&resp); err == nil {
		t.Error("expected error for empty document list")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		item string
		want string
	}{
		{"Whole Milk 2L", "Groceries"},
		{"Shell Gas Station", "Car"},
		{"SPOTIFY PREMIUM", "Subscriptions"},
		{"Mystery item", "Other"},
		{"Pizza Margherita", "Eating Out"},
	}
	for _, tt := range tests {
		if got := Categorize(tt.item); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.item, got, tt.want)
		}
	}
}

func TestAzureAnalyzerRoundTrip(t *testing.T) {
	var mux http.ServeMux
	var server *httptest.Server
	mux.HandleFunc("POST /formrecognizer/documentModels/prebuilt-receipt:analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			t.Error("missing subscription key header")
		}
		w.Header().Set("Operation-Location", server.URL+"/result")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /result", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResult))
	})
	server = httptest.NewServer(&mux)
	defer server.Close()

	a := NewAzureAnalyzer(server.URL, "test-key")
	r, err := a.AnalyzeReceipt(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("AnalyzeReceipt: %v", err)
	}
	if r.Store != "Corner Market" {
		t.Errorf("store = %q, want Corner Market", r.Store)
	}
}

func TestAzureAnalyzerRejectedSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer server.Close()

	a := NewAzureAnalyzer(server.URL, "test-key")
	if _, err := a.AnalyzeReceipt(context.Background(), []byte("fake-image")); err == nil {
		t.Error("expected error for rejected submission")
	}
}
