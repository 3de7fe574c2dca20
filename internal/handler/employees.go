package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/security/audit"
	"github.com/aryan0dhankhar/employeedir/internal/security/middleware"
	"github.com/aryan0dhankhar/employeedir/internal/service"
)

const maxBodyBytes = 1 << 20

// Rejection messages for bodies that are not arrays
const (
	MsgCreateBodyNotArray = "Request body must be an array of employee objects"
	MsgUpdateBodyNotArray = "Request body must be an array of employee update objects"
)

// ListResponse is the GET body
type ListResponse struct {
	Employees []domain.Employee `json:"employees"`
}

// CreateResponse is the POST body
type CreateResponse struct {
	AddData []domain.Employee `json:"addData"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// EmployeesHandler serves list, batch create and batch update on the employee collection
type EmployeesHandler struct {
	directory *service.DirectoryService
	audit     *audit.Logger
	logger    *slog.Logger
}

// NewEmployeesHandler creates a new employees handler
func NewEmployeesHandler(directory *service.DirectoryService, auditLog *audit.Logger, logger *slog.Logger) *EmployeesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeesHandler{
		directory: directory,
		audit:     auditLog,
		logger:    logger,
	}
}

// Register mounts the handler on path for GET, POST and PUT
func (h *EmployeesHandler) Register(mux *http.ServeMux, path string) {
	mux.HandleFunc("GET "+path, h.List)
	mux.HandleFunc("POST "+path, h.Create)
	mux.HandleFunc("PUT "+path, h.Update)
}

// List handles GET and returns the whole collection
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.directory.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list employees", slog.String("error", err.Error()))
		respondError(w, storeErrorStatus(err), "failed to list employees")
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Employees: employees})
}

// Create handles POST with an array of employees
func (h *EmployeesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var items []domain.Employee
	if err := decodeArray(w, r, &items); err != nil {
		h.logger.Warn("rejected create body", slog.String("error", err.Error()))
		h.auditRejected(r, "create", err.Error())
		respondError(w, http.StatusBadRequest, MsgCreateBodyNotArray)
		return
	}

	created, err := h.directory.Create(r.Context(), items)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.auditRejected(r, "create", verr.Message)
			respondError(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.Error("failed to create employees", slog.String("error", err.Error()))
		h.auditBatch(r, "create", len(items), 0, len(items))
		respondError(w, storeErrorStatus(err), "failed to create employees")
		return
	}

	h.auditBatch(r, "create", len(items), len(created), 0)
	respondJSON(w, http.StatusOK, CreateResponse{AddData: created})
}

// Update handles PUT with an array of patches. Per-item failures are reported in the body;
// the response status stays 200.
func (h *EmployeesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var items []json.RawMessage
	if err := decodeArray(w, r, &items); err != nil {
		h.logger.Warn("rejected update body", slog.String("error", err.Error()))
		h.auditRejected(r, "update", err.Error())
		respondError(w, http.StatusBadRequest, MsgUpdateBodyNotArray)
		return
	}
	patches := decodePatches(items)

	result := h.directory.Update(r.Context(), patches)
	h.auditBatch(r, "update", len(patches), len(result.SuccessfulUpdates), len(result.Errors))
	respondJSON(w, http.StatusOK, result)
}

func (h *EmployeesHandler) auditBatch(r *http.Request, action string, size, succeeded, failed int) {
	if h.audit != nil {
		h.audit.LogBatch(r.Context(), action, middleware.ClientIP(r), size, succeeded, failed)
	}
}

func (h *EmployeesHandler) auditRejected(r *http.Request, action, reason string) {
	if h.audit != nil {
		h.audit.LogRejected(r.Context(), action, middleware.ClientIP(r), reason)
	}
}

// decodeArray fails for anything but a JSON array, including null
func decodeArray[T any](w http.ResponseWriter, r *http.Request, dst *[]T) error {
	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	if *dst == nil {
		return errors.New("body is null")
	}
	return nil
}

// decodePatches decodes each item on its own. An item that is not a well-typed patch object
// keeps its slot with an empty _id, so it is reported as a per-item 400.
func decodePatches(items []json.RawMessage) []domain.EmployeePatch {
	patches := make([]domain.EmployeePatch, len(items))
	for i, item := range items {
		var p domain.EmployeePatch
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		patches[i] = p
	}
	return patches
}

func storeErrorStatus(err error) int {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
