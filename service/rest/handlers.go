package rest

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/viant/procflux/progress"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
	"github.com/viant/procflux/service/processor"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	processor *processor.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(service *processor.Service) *Handlers {
	return &Handlers{processor: service}
}

// ReasonRequest is the optional body of kill and fail requests.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// SignalRequest is the body of signal requests.
type SignalRequest struct {
	Signal execution.Signal `json:"signal" binding:"required"`
}

// ResourcesResponse reports a ledger change.
type ResourcesResponse struct {
	ProcessID string               `json:"processId"`
	Resources *execution.Resources `json:"resources,omitempty"`
}

// StatsResponse reports lifecycle counters and committed capacity.
type StatsResponse struct {
	Progress      *progress.Counters             `json:"progress"`
	Processes     int                            `json:"processes"`
	Committed     map[string]execution.Resources `json:"committed"`
	PendingTimers int                            `json:"pendingTimers"`
}

// statusOf maps lifecycle errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, processor.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, processor.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, processor.ErrResource):
		return http.StatusConflict
	case errors.Is(err, processor.ErrShutdown):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}

func respond(c *gin.Context, status int, body interface{}, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(status, body)
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats handles GET /v1/stats
func (h *Handlers) Stats(c *gin.Context) {
	ledger := h.processor.Ledger()
	committed := map[string]execution.Resources{}
	hosts := ledger.Hosts()
	sort.Strings(hosts)
	for _, host := range hosts {
		committed[host] = ledger.Committed(host)
	}
	snapshot := h.processor.Progress().Snapshot()
	c.JSON(http.StatusOK, &StatsResponse{
		Progress:      &snapshot,
		Processes:     h.processor.Registry().Len(),
		Committed:     committed,
		PendingTimers: h.processor.Executor().Pending(),
	})
}

// ListProcesses handles GET /v1/processes?type=&state=&server=
func (h *Handlers) ListProcesses(c *gin.Context) {
	var parameters []*dao.Parameter
	for query, name := range map[string]string{"type": dao.ParameterType, "state": dao.ParameterState, "server": dao.ParameterServer} {
		if values := c.QueryArray(query); len(values) > 0 {
			parameters = append(parameters, dao.NewParameter(name, values...))
		}
	}
	processes, err := h.processor.List(c.Request.Context(), parameters...)
	respond(c, http.StatusOK, nonNil(processes), err)
}

// ListServerProcesses handles GET /v1/servers/:id/processes
func (h *Handlers) ListServerProcesses(c *gin.Context) {
	processes, err := h.processor.ListByServer(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, nonNil(processes), err)
}

// CreateProcess handles POST /v1/processes
func (h *Handlers) CreateProcess(c *gin.Context) {
	var req processor.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	aProcess, err := h.processor.Create(c.Request.Context(), &req)
	respond(c, http.StatusCreated, aProcess, err)
}

// GetProcess handles GET /v1/processes/:id
func (h *Handlers) GetProcess(c *gin.Context) {
	aProcess, err := h.processor.Get(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, aProcess, err)
}

// UpdateProcess handles PATCH /v1/processes/:id
func (h *Handlers) UpdateProcess(c *gin.Context) {
	var req processor.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	aProcess, err := h.processor.Update(c.Request.Context(), c.Param("id"), &req)
	respond(c, http.StatusOK, aProcess, err)
}

// DeleteProcess handles DELETE /v1/processes/:id
func (h *Handlers) DeleteProcess(c *gin.Context) {
	aProcess, err := h.processor.Delete(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, aProcess, err)
}

// StartProcess handles POST /v1/processes/:id/start
func (h *Handlers) StartProcess(c *gin.Context) {
	aProcess, err := h.processor.Start(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, aProcess, err)
}

// PauseProcess handles POST /v1/processes/:id/pause
func (h *Handlers) PauseProcess(c *gin.Context) {
	aProcess, err := h.processor.Pause(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, aProcess, err)
}

// ResumeProcess handles POST /v1/processes/:id/resume
func (h *Handlers) ResumeProcess(c *gin.Context) {
	aProcess, err := h.processor.Resume(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, aProcess, err)
}

// KillProcess handles POST /v1/processes/:id/kill
func (h *Handlers) KillProcess(c *gin.Context) {
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)
	aProcess, err := h.processor.Kill(c.Request.Context(), c.Param("id"), req.Reason)
	respond(c, http.StatusOK, aProcess, err)
}

// FailProcess handles POST /v1/processes/:id/fail
func (h *Handlers) FailProcess(c *gin.Context) {
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)
	aProcess, err := h.processor.Fail(c.Request.Context(), c.Param("id"), req.Reason)
	respond(c, http.StatusOK, aProcess, err)
}

// CompleteProcess handles POST /v1/processes/:id/complete
func (h *Handlers) CompleteProcess(c *gin.Context) {
	aProcess, err := h.processor.Complete(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, aProcess, err)
}

// CheckpointProcess handles POST /v1/processes/:id/checkpoint
func (h *Handlers) CheckpointProcess(c *gin.Context) {
	aProcess, err := h.processor.Checkpoint(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, aProcess, err)
}

// SignalProcess handles POST /v1/processes/:id/signal
func (h *Handlers) SignalProcess(c *gin.Context) {
	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	aProcess, err := h.processor.Signal(c.Request.Context(), c.Param("id"), req.Signal)
	respond(c, http.StatusOK, aProcess, err)
}

// AllocateResources handles PUT /v1/processes/:id/resources
func (h *Handlers) AllocateResources(c *gin.Context) {
	var req execution.Resources
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	processID := c.Param("id")
	allocated, err := h.processor.AllocateResources(c.Request.Context(), processID, req)
	respond(c, http.StatusOK, &ResourcesResponse{ProcessID: processID, Resources: allocated}, err)
}

// DeallocateResources handles DELETE /v1/processes/:id/resources
func (h *Handlers) DeallocateResources(c *gin.Context) {
	processID := c.Param("id")
	freed, err := h.processor.DeallocateResources(c.Request.Context(), processID)
	respond(c, http.StatusOK, &ResourcesResponse{ProcessID: processID, Resources: freed}, err)
}

// ListChildren handles GET /v1/processes/:id/children
func (h *Handlers) ListChildren(c *gin.Context) {
	processes, err := h.processor.Children(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, nonNil(processes), err)
}

func nonNil(processes []*execution.Process) []*execution.Process {
	if processes == nil {
		return []*execution.Process{}
	}
	return processes
}
