package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/ocr"
	"tally/internal/services"
)

// attributedTransaction is a transaction with the viewer's share applied.
type attributedTransaction struct {
	core.Transaction
	AttributedAmount core.Money `json:"attributed_amount"`
}

type createTransactionsRequest struct {
	Items         []services.ReceiptItem `json:"items"`
	Store         string                 `json:"store"`
	Date          core.Date              `json:"date"`
	BankAccountID int64                  `json:"bank_account_id"`
	Type          core.Kind              `json:"type"`
	ReceiptImage  string                 `json:"receipt_image"`
	GroupID       int64                  `json:"group_id"`
	Splits        []core.Split           `json:"splits"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	txs, err := s.stores.Transactions().All(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "transactions.all")
		return
	}
	splits, err := s.stores.Splits().All(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "splits.all")
		return
	}

	groupID, err := queryInt64(r, "group_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	accountID, err := queryInt64(r, "account_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	kind := strings.TrimSpace(r.URL.Query().Get("type"))

	totals := make(map[string]core.Money)
	byGroup := make(map[string][]core.Split)
	for _, tx := range txs {
		if tx.ReceiptGroupID != "" {
			totals[tx.ReceiptGroupID] = totals[tx.ReceiptGroupID].Add(tx.Price)
		}
	}
	for _, sp := range splits {
		byGroup[sp.ReceiptGroupID] = append(byGroup[sp.ReceiptGroupID], sp)
	}

	out := make([]attributedTransaction, 0, len(txs))
	for _, tx := range txs {
		if groupID != 0 && tx.GroupID != groupID {
			continue
		}
		if accountID != 0 && tx.BankAccountID != accountID {
			continue
		}
		if month != "" && tx.Date.MonthKey() != month {
			continue
		}
		if category != "" && tx.Category != category {
			continue
		}
		if kind != "" && string(tx.Kind) != kind {
			continue
		}

		amount, visible := services.AttributeCost(tx, byGroup[tx.ReceiptGroupID], totals[tx.ReceiptGroupID], user.ID)
		if !visible {
			continue
		}
		out = append(out, attributedTransaction{Transaction: tx, AttributedAmount: amount})
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.stores.Transactions().FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "transactions.find")
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionSplits(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.stores.Transactions().FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "transactions.find")
		return
	}

	if tx.ReceiptGroupID == "" {
		writeJSON(w, http.StatusOK, []core.Split{})
		return
	}

	splits, err := s.stores.Splits().ByReceiptGroup(r.Context(), tx.ReceiptGroupID)
	if err != nil {
		writeStoreError(w, r, err, "splits.by_receipt_group")
		return
	}

	writeJSON(w, http.StatusOK, splits)
}

func (s *Server) handleCreateTransactions(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req createTransactionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.transactions.Save(r.Context(), services.SaveRequest{
		Items:         req.Items,
		Store:         sanitizeInput(req.Store),
		Date:          req.Date,
		UserID:        user.ID,
		BankAccountID: req.BankAccountID,
		Kind:          req.Type,
		ReceiptImage:  req.ReceiptImage,
		GroupID:       req.GroupID,
		Splits:        req.Splits,
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "referenced group does not exist")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.metrics != nil {
		s.metrics.TransactionsCreated.Add(float64(len(saved)))
	}
	for _, tx := range saved {
		slog.InfoContext(r.Context(), "Transaction created",
			"transaction_id", tx.ID,
			"item_name", tx.ItemName,
			"category", tx.Category,
			"amount_cents", tx.Price.Cents,
			"receipt_group_id", tx.ReceiptGroupID,
			"user_id", tx.UserID)
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusCreated, saved)
}

// handleGetReceipt streams a previously uploaded receipt back to the
// client. Only a bare filename with a known extension is accepted, so
// the upload directory cannot be escaped.
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		writeError(w, http.StatusBadRequest, "invalid receipt name")
		return
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".pdf":
	default:
		writeError(w, http.StatusBadRequest, "invalid receipt name")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.uploadDir, name))
}

// handleUploadReceipt accepts a multipart image, stores it and returns the
// analyzer's parse for the client to review before saving.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing receipt file")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed reading upload", "error", err)
		writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".pdf":
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %s", ext))
		return
	}

	filename := uuid.NewString() + ext
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		slog.ErrorContext(r.Context(), "Failed creating upload dir", "error", err, "dir", s.uploadDir)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := os.WriteFile(filepath.Join(s.uploadDir, filename), image, 0o644); err != nil {
		slog.ErrorContext(r.Context(), "Failed storing upload", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	receipt, err := s.analyzer.AnalyzeReceipt(r.Context(), image)
	if err != nil {
		slog.ErrorContext(r.Context(), "Receipt analysis failed", "error", err, "file", filename)
		writeError(w, http.StatusBadGateway, "receipt analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ReceiptImage string      `json:"receipt_image"`
		Parsed       ocr.Receipt `json:"parsed"`
	}{
		ReceiptImage: filename,
		Parsed:       receipt,
	})
}
