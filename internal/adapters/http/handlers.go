package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
)

const maxBodyBytes = 1 << 20

func (h *Handler) actor(r *http.Request) (application.Actor, bool) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		return application.Actor{}, false
	}
	return application.Actor{
		Address:        claims.Address,
		Role:           claims.Role,
		RequestID:      requestIDFromContext(r.Context()),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapDomainError(err)
	writeError(w, status, code, msg, requestIDFromContext(r.Context()))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func dealIDParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: deal id must be an unsigned integer", domain.ErrInvalidInput)
	}
	return id, nil
}

func (h *Handler) createDeal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	var req contracts.CreateDealRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	deal, err := h.service.CreateDeal(r.Context(), actor, application.CreateDealInput{
		Worker:        req.WorkerAddress,
		Terms:         req.Terms,
		Budget:        uint64(req.Budget),
		Penalty:       uint64(req.Penalty),
		Duration:      req.Duration,
		Contact:       toContact(req.Contact),
		SuppliedValue: uint64(req.Value),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "deal created", toDealResponse(deal, h.service.Now()))
}

func (h *Handler) acceptDeal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	id, err := dealIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req contracts.AcceptDealRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	deal, err := h.service.AcceptDeal(r.Context(), actor, application.AcceptDealInput{DealID: id, Contact: toContact(req.Contact)})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "deal accepted", toDealResponse(deal, h.service.Now()))
}

func (h *Handler) approveDeal(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, "deal completed", h.service.ApproveManually)
}

func (h *Handler) cancelDeal(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, "deal cancelled", h.service.CancelWithPenalty)
}

type settleFunc func(ctx context.Context, actor application.Actor, dealID uint64) (domain.Deal, error)

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, message string, fn settleFunc) {
	actor, ok := h.actor(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	id, err := dealIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	deal, err := fn(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, message, toDealResponse(deal, h.service.Now()))
}

func (h *Handler) requestArbitration(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	id, err := dealIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req contracts.ArbitrationRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	submitted, err := h.service.RequestAIResolution(r.Context(), actor, application.RequestResolutionInput{DealID: id, ProofURL: req.ProofURL})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, "arbitration requested", toArbitrationResponse(submitted))
}

func (h *Handler) applyVerdict(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	id, err := dealIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req contracts.VerdictRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	deal, err := h.service.ApplyVerdict(r.Context(), actor, application.ApplyVerdictInput{DealID: id, Verdict: req.Verdict, Raw: req.Raw})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "verdict applied", toDealResponse(deal, h.service.Now()))
}

func (h *Handler) getCounterpartyContact(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	id, err := dealIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	contact, err := h.service.GetCounterpartyContact(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.ContactRequest{Telegram: contact.Telegram, Phone: contact.Phone})
}

func (h *Handler) getDeal(w http.ResponseWriter, r *http.Request) {
	id, err := dealIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	deal, err := h.service.GetDeal(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", toDealResponse(deal, h.service.Now()))
}

func (h *Handler) listArbitration(w http.ResponseWriter, r *http.Request) {
	id, err := dealIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	reqs, err := h.service.ListArbitrationRequests(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]contracts.ArbitrationResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toArbitrationResponse(req))
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) listDealsForAddress(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	role, err := domain.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var ids []uint64
	if role == domain.RoleWorker {
		ids, err = h.service.GetDealsForWorker(r.Context(), address)
	} else {
		ids, err = h.service.GetDealsForEmployer(r.Context(), address)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	addr, _ := domain.ParseAddress(address)
	writeSuccess(w, http.StatusOK, "", contracts.DealIDsResponse{Address: addr.String(), Role: string(role), DealIDs: ids})
}

func (h *Handler) getPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.service.GetAccountPosition(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", toPositionResponse(pos))
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.GetContractBalance(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.BalanceResponse{Balance: contracts.Amount(balance)})
}
