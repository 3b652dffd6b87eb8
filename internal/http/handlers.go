package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"resaleback/internal/domain"
	"resaleback/internal/ingest"
	"resaleback/internal/repository"
	"resaleback/internal/service"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Upload spools the multipart workbook to a temp file and hands it to the
// ingestion pipeline, which consumes and removes it.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	tempPath, err := spoolUpload(file)
	if err != nil {
		log.Printf("spool upload: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store the uploaded file")
		return
	}

	upload, err := h.svc.Upload(r.Context(), kind, tempPath)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"file_name": header.Filename,
		"upload":    upload,
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	query := r.URL.Query()
	page, err := parseOptionalInt(query.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	length, err := parseOptionalInt(query.Get("length"), 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.ListTransactions(r.Context(), kind, repository.TransactionListFilter{
		Keyword:   query.Get("keyword"),
		Page:      page,
		Length:    length,
		StartDate: strings.TrimSpace(query.Get("start")),
		EndDate:   strings.TrimSpace(query.Get("end")),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	ids, err := parseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := h.svc.Download(r.Context(), kind, ids)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", kind.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	uploads, err := h.svc.ListUploads(r.Context(), kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": uploads, "count": len(uploads)})
}

func (h *Handler) UndoUpload(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	if err := h.svc.Undo(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "undone"})
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	query := r.URL.Query()
	page, err := parseOptionalInt(query.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	length, err := parseOptionalInt(query.Get("length"), 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.ListClients(r.Context(), kind, query.Get("keyword"), page, length)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	var payload struct {
		Note    *string `json:"note"`
		Manager *string `json:"manager"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.svc.UpdateClient(r.Context(), kind, chi.URLParam(r, "id"), payload.Note, payload.Manager); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	if err := h.svc.Reset(r.Context(), kind); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

func (h *Handler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	summary, err := h.svc.Summary(r.Context(), kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) DashboardTop(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	top, err := h.svc.Top(r.Context(), kind,
		strings.TrimSpace(query.Get("start")),
		strings.TrimSpace(query.Get("end")),
		limit,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (h *Handler) DashboardVisits(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown transaction kind")
		return
	}

	limit, err := parseOptionalInt(r.URL.Query().Get("limit"), 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	visits, err := h.svc.Visits(r.Context(), kind, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": visits, "count": len(visits)})
}

func kindFromRequest(r *http.Request) (ingest.Kind, bool) {
	switch chi.URLParam(r, "kind") {
	case "sales":
		return ingest.Sale, true
	case "purchases":
		return ingest.Purchase, true
	}
	return ingest.Kind{}, false
}

func spoolUpload(file io.Reader) (string, error) {
	temp, err := os.CreateTemp("", "upload-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(temp, file); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return temp.Name(), nil
}

func parseOptionalInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid integer: %q", raw)
	}
	return value, nil
}

func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid record id: %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// writeServiceError maps the error taxonomy: operator mistakes are 400 with
// the message verbatim, missing rows are 404, everything else is opaque 500.
func writeServiceError(w http.ResponseWriter, err error) {
	if domain.IsBadRequest(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	log.Printf("internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
