// Package walletapi exposes the wallet over HTTP for the signed-in user.
package walletapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/pixielabs/pixie-wallet/pkg/app/errors"
	apphttp "github.com/pixielabs/pixie-wallet/pkg/app/http"
	"github.com/pixielabs/pixie-wallet/pkg/authflow"
	"github.com/pixielabs/pixie-wallet/pkg/txflow"
	"github.com/pixielabs/pixie-wallet/pkg/wallet"
	walletsvc "github.com/pixielabs/pixie-wallet/pkg/wallet/service"
	"github.com/pixielabs/pixie-wallet/pkg/walletstate"
)

// Handler serves the /api/wallet routes.
type Handler struct {
	wallets walletsvc.Service
	sender  *txflow.Sender
	states  *walletstate.Manager
	logger  *zap.Logger
}

// NewHandler creates a new wallet API handler
func NewHandler(wallets walletsvc.Service, sender *txflow.Sender, states *walletstate.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		wallets: wallets,
		sender:  sender,
		states:  states,
		logger:  logger,
	}
}

// Routes returns the router for the wallet API. The guard middleware has
// already rejected unauthenticated requests by the time these run.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", apphttp.HandleError(h.GetWallet))
	r.Post("/", apphttp.HandleError(h.CreateWallet))
	r.Post("/send", apphttp.HandleError(h.Send))
	r.Post("/faucet", apphttp.HandleError(h.Faucet))
	r.Get("/transactions", apphttp.HandleError(h.Transactions))
	return r
}

func (h *Handler) userID(r *http.Request) (string, error) {
	session := authflow.SessionFrom(r.Context())
	if session == nil || session.User.ID == "" {
		return "", apperrors.UnAuthorizedError(nil, "authentication required")
	}
	return session.User.ID, nil
}

// GetWallet returns the primary wallet with its live balance.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) error {
	userID, err := h.userID(r)
	if err != nil {
		return err
	}

	details, err := h.wallets.EnhancedDetails(r.Context(), userID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, details)
}

// CreateWalletRequest selects the kind of account to provision.
type CreateWalletRequest struct {
	Kind wallet.Kind `json:"kind"`
}

// CreateWallet provisions the user's primary wallet. The operation is
// idempotent, so repeating it returns the existing wallet.
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) error {
	userID, err := h.userID(r)
	if err != nil {
		return err
	}

	req, err := decodeBody[CreateWalletRequest](r)
	if err != nil {
		return err
	}
	if req.Kind == "" {
		req.Kind = wallet.KindEOA
	}

	state := h.states.ForUser(userID)
	state.SetCreating(true)
	defer state.SetCreating(false)

	created, err := h.wallets.CreateWallet(r.Context(), userID, req.Kind)
	if err != nil {
		state.SetError("wallet creation failed")
		return err
	}
	state.ClearError()
	state.Refresh(r.Context())

	return writeJSON(w, http.StatusCreated, created.ToView())
}

// SendRequest describes an outgoing transfer.
type SendRequest struct {
	To        string `json:"to"`
	AmountETH string `json:"amount_eth"`
}

// Send submits a transfer from the primary wallet. The response carries the
// pending record; confirmation is watched in the background and surfaces
// through the wallet state feed.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) error {
	userID, err := h.userID(r)
	if err != nil {
		return err
	}

	req, err := decodeBody[SendRequest](r)
	if err != nil {
		return err
	}

	from, err := h.wallets.GetPrimaryWallet(r.Context(), userID)
	if err != nil {
		return err
	}

	// The sending flag covers the submission call only. Confirmation is
	// tracked through the history records, not the flag.
	state := h.states.ForUser(userID)
	state.SetSending(true)
	defer state.SetSending(false)

	record, err := h.sender.Send(r.Context(), from, req.To, req.AmountETH)
	if err != nil {
		state.SetError(err.Error())
		return err
	}
	state.ClearError()
	// Detached: the delayed refresh must outlive the request.
	state.RefreshAfterSend(context.Background())
	h.watchReceipt(userID, record.Hash)

	return writeJSON(w, http.StatusAccepted, record)
}

// watchReceipt follows the transaction to a terminal state off the request
// cycle, updating the history record and refreshing the wallet view once the
// outcome is known. AwaitReceipt bounds its own poll window, so the detached
// context cannot leak the goroutine.
func (h *Handler) watchReceipt(userID, hash string) {
	go func() {
		status, err := h.sender.AwaitReceipt(context.Background(), userID, hash)
		if err != nil {
			h.logger.Warn("Receipt watch aborted",
				zap.String("hash", hash),
				zap.Error(err))
		}

		if status.Terminal() {
			h.states.ForUser(userID).Refresh(context.Background())
		}
	}()
}

// Faucet requests test funds for the primary wallet.
func (h *Handler) Faucet(w http.ResponseWriter, r *http.Request) error {
	userID, err := h.userID(r)
	if err != nil {
		return err
	}

	target, err := h.wallets.GetPrimaryWallet(r.Context(), userID)
	if err != nil {
		return err
	}

	state := h.states.ForUser(userID)
	state.SetRequesting(true)
	defer state.SetRequesting(false)

	if err := h.sender.Faucet(r.Context(), target); err != nil {
		state.SetError(err.Error())
		return err
	}
	state.ClearError()
	state.RefreshAfterFaucet(context.Background())

	return writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

// Transactions returns the user's transfer history, most recent first.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) error {
	userID, err := h.userID(r)
	if err != nil {
		return err
	}

	records := h.sender.History().List(userID)
	return writeJSON(w, http.StatusOK, map[string]any{"transactions": records})
}

func decodeBody[T any](r *http.Request) (T, error) {
	var req T
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return req, apperrors.BadRequestError(err, "failed to read request")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, apperrors.BadRequestError(err, "invalid JSON")
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
