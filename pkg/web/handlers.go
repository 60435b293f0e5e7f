package web

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/syncline/syncline/pkg/connector"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/persistence"
	"github.com/syncline/syncline/pkg/services"
)

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	connectors       *connector.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	connectors *connector.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		connectors:       connectors,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// CreateWorkflow accepts a full workflow document in the persisted wire
// format.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var workflow models.Workflow
	if err := c.Bind().JSON(&workflow); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.workflowService.Create(c.Context(), &workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateWorkflow replaces a workflow document.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var workflow models.Workflow
	if err := c.Bind().JSON(&workflow); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow.ID = id

	updated, err := h.workflowService.Update(c.Context(), &workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow runs a workflow synchronously and returns the execution
// record. The run's own failure is reported through the record's status,
// not through the HTTP status.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	req := ExecuteWorkflowRequest{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if req.TriggeredBy == "" {
		req.TriggeredBy = "api"
	}

	execution, err := h.executionService.Execute(c.Context(), id, req.TriggeredBy, req.Variables)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if _, err := h.workflowService.Get(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	executions, err := h.executionService.ListByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executionService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// GetConnectors lists the registered connector service types.
func (h *APIHandlers) GetConnectors(c fiber.Ctx) error {
	summaries := make([]ConnectorSummary, 0)

	for _, serviceType := range h.connectors.ServiceTypes() {
		factory, ok := h.connectors.Factory(serviceType)
		if !ok {
			continue
		}

		summaries = append(summaries, ConnectorSummary{
			ServiceType: factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
		})
	}

	return c.JSON(fiber.Map{
		"connectors":  summaries,
		"total_count": len(summaries),
	})
}

// GetConnector returns the capability and schema document for one service
// type. A bare instance is created for discovery; no credentials needed.
func (h *APIHandlers) GetConnector(c fiber.Ctx) error {
	serviceType := c.Params("service_type")

	factory, ok := h.connectors.Factory(serviceType)
	if !ok {
		return notFound(c, "Unknown connector service type")
	}

	instance, err := factory.Create(nil, "", nil)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(ConnectorDetail{
		ConnectorSummary: ConnectorSummary{
			ServiceType: factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
		},
		Capabilities:    instance.Capabilities(),
		InventorySchema: instance.InventorySchema(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Syncline API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Syncline API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
