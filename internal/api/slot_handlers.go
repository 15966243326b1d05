package api

import (
	"net/http"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

func (h *Handler) generateSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorID")
	if !ok {
		return
	}

	var req GenerateSlotsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.GenerateSlots(r.Context(), doctorID, req.StartDate, req.EndDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateSlotsResponse{
		DoctorID: doctorID,
		Start:    req.StartDate,
		End:      req.EndDate,
		Created:  res.Created,
	})
}

func (h *Handler) listDoctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	if date == nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter is required")
		return
	}

	items, err := h.svc.ListSlotsForDoctorAndDate(r.Context(), doctorID, *date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[scheduling.Slot]{Items: nonNil(items)})
}

func (h *Handler) listSlots(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	items, err := h.svc.ListSlots(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[scheduling.Slot]{Items: nonNil(items), Limit: limit, Offset: offset})
}

func (h *Handler) getSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	slot, err := h.svc.GetSlot(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *Handler) updateSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var patch scheduling.SlotPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	slot, err := h.svc.UpdateSlot(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *Handler) deleteSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteSlot(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
