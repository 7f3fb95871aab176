package http

import (
	"net/http"
	"strconv"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/service"
)

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := decodeOrderFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleReplayOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Replay(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleVerifyOrder(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.settlement.VerifyTransaction(r.Context(), service.VerifyInput{
		OrderID:        r.PathValue("id"),
		AdminID:        claimsFrom(r.Context()).UserID,
		AdminNotes:     req.AdminNotes,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleUpdateFulfillment(w http.ResponseWriter, r *http.Request) {
	var req fulfillmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.orders.UpdateFulfillment(r.Context(), r.PathValue("id"), req.Status, req.TrackingNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.settlement.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleSubmitVerification(w http.ResponseWriter, r *http.Request) {
	var req verificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.verifications.Submit(r.Context(), claimsFrom(r.Context()).UserID, service.VerificationInput{
		FullName:         req.FullName,
		Address:          req.Address,
		Phone:            req.Phone,
		IDType:           entity.IDType(req.IDType),
		IDNumber:         req.IDNumber,
		IDPhoto:          req.IDPhoto,
		SelfieWithID:     req.SelfieWithID,
		ProofOfOwnership: req.ProofOfOwnership,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleMyVerification(w http.ResponseWriter, r *http.Request) {
	v, err := h.verifications.MyStatus(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.verifications.ListAll(r.Context(), entity.VerificationStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleReviewVerification(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.verifications.UpdateStatus(r.Context(), r.PathValue("id"), claimsFrom(r.Context()).UserID, req.Status, req.AdminNotes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.notifications.List(r.Context(), claimsFrom(r.Context()).UserID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkRead(r.Context(), claimsFrom(r.Context()).UserID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
