package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"wsb.com/wledger/internals/helpers"
)

var requiredFields = []string{"sender", "recipient", "amount"}

// ValidationError lists the transaction fields missing from a request.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "Missing values: " + strings.Join(e.Fields, ", ")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to write response")
	}
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if s.mineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.mineTimeout)
		defer cancel()
	}

	block, err := s.node.Mine(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			http.Error(w, "Mining aborted", http.StatusServiceUnavailable)
			return
		}
		logrus.WithError(err).Error("Mining failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, helpers.MineResponse{
		Message:      "New Block Forged",
		Index:        block.Index,
		Transactions: block.Transactions,
		Proof:        block.Proof,
		PreviousHash: block.PreviousHash,
	})
}

func (s *Server) handleNewTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tx, err := decodeTransaction(r)
	if err != nil {
		logrus.WithError(err).Debug("Rejected transaction")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	index := s.node.NewTransaction(tx)
	writeJSON(w, http.StatusCreated, helpers.MessageResponse{
		Message: fmt.Sprintf("Transaction will be added to block %d", index),
	})
}

// decodeTransaction checks that every required field is present before
// decoding the body into a transaction.
func decodeTransaction(r *http.Request) (helpers.Transaction, error) {
	var values map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil || values == nil {
		return helpers.Transaction{}, errors.New("Invalid JSON format")
	}

	var missing []string
	for _, field := range requiredFields {
		if _, ok := values[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return helpers.Transaction{}, &ValidationError{Fields: missing}
	}

	var tx helpers.Transaction
	targets := []interface{}{&tx.Sender, &tx.Recipient, &tx.Amount}
	for i, field := range requiredFields {
		if err := json.Unmarshal(values[field], targets[i]); err != nil {
			return helpers.Transaction{}, fmt.Errorf("Invalid value for %s", field)
		}
	}
	return tx, nil
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	chain := s.node.Ledger().Chain()
	writeJSON(w, http.StatusOK, helpers.ChainResponse{
		Chain:  chain,
		Length: len(chain),
	})
}
