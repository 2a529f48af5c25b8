package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/providers"
	"github.com/helixcrm/helix/pkg/registry"
	"github.com/helixcrm/helix/pkg/workflow"
)

type APIHandlers struct {
	repository *workflow.Repository
	engine     *workflow.Engine
	dispatcher *workflow.Dispatcher
	executions persistence.ExecutionRepository
	gateway    *providers.Gateway
	registry   *registry.Registry
	validator  *validator.Validate
}

func NewAPIHandlers(
	repository *workflow.Repository,
	engine *workflow.Engine,
	dispatcher *workflow.Dispatcher,
	executions persistence.ExecutionRepository,
	gateway *providers.Gateway,
	reg *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		repository: repository,
		engine:     engine,
		dispatcher: dispatcher,
		executions: executions,
		gateway:    gateway,
		registry:   reg,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.repository.FetchAll(c.Context())
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

	wf, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.repository.Create(c.Context(), &models.WorkflowDefinition{
		Name:    req.Name,
		Active:  req.Active,
		Trigger: req.Trigger,
		Actions: req.Actions,
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Active != nil {
		existing.Active = *req.Active
	}

	if req.Trigger != nil {
		existing.Trigger = *req.Trigger
	}

	if req.Actions != nil {
		existing.Actions = *req.Actions
	}

	updated, err := h.repository.Update(c.Context(), id, existing)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.repository.Delete(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow runs the workflow synchronously and returns its
// execution record. An inactive workflow answers 409 without creating
// a record.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req ExecuteWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.engine.Execute(c.Context(), id, req.TriggerData)
	if err != nil && execution == nil {
		return handleError(c, err)
	}

	// A failed run still produced a durable record; surface both.
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"execution": execution,
			"error":     err.Error(),
		})
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if _, err := h.repository.FetchByID(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	executions, err := h.executions.ExecutionsByWorkflow(c.Context(), id)
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

	execution, err := h.executions.ExecutionByID(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(execution)
}

// IngestWebhook fans the request body out to every workflow whose
// webhook trigger matches the path. Delivery is accepted regardless of
// how many workflows matched.
func (h *APIHandlers) IngestWebhook(c fiber.Ctx) error {
	path := "/" + c.Params("*")

	var body map[string]any
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	payload := map[string]any{
		"path":      path,
		"method":    c.Method(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if body != nil {
		payload["body"] = body
	}

	if err := h.dispatcher.Dispatch(c.Context(), models.TriggerWebhook, "", payload); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted", "path": path})
}

func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	var req IngestEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	payload := make(map[string]any, len(req.Payload)+2)
	for k, v := range req.Payload {
		payload[k] = v
	}

	if req.EntityType != "" {
		payload["entity_type"] = string(req.EntityType)
	}

	if req.RecordID != "" {
		payload["record_id"] = req.RecordID
	}

	if err := h.dispatcher.Dispatch(c.Context(), req.TriggerType, req.EntityType, payload); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

func (h *APIHandlers) SyncCalendar(c fiber.Ctx) error {
	providerID := c.Params("providerId")

	query := providers.CalendarQuery{Cursor: c.Query("cursor")}

	if raw := c.Query("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "start must be an RFC 3339 timestamp")
		}

		query.Start = start
	}

	if raw := c.Query("end"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "end must be an RFC 3339 timestamp")
		}

		query.End = end
	}

	result, creds, err := h.gateway.SyncCalendar(c.Context(), providerID, query)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(SyncResponse{
		Events:               result.Events,
		NextCursor:           result.NextCursor,
		HasMore:              result.HasMore,
		RefreshedCredentials: creds,
	})
}

func (h *APIHandlers) SyncEmail(c fiber.Ctx) error {
	providerID := c.Params("providerId")
	cursor := c.Query("cursor")

	result, creds, err := h.gateway.SyncEmail(c.Context(), providerID, cursor)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(SyncResponse{
		Messages:             result.Messages,
		NextCursor:           result.NextCursor,
		HasMore:              result.HasMore,
		RefreshedCredentials: creds,
	})
}

func (h *APIHandlers) CreateCalendarEvent(c fiber.Ctx) error {
	providerID := c.Params("providerId")

	var event models.CalendarEvent
	if err := c.Bind().JSON(&event); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.gateway.CreateEvent(c.Context(), providerID, event)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateCalendarEvent(c fiber.Ctx) error {
	providerID := c.Params("providerId")
	eventID := c.Params("eventId")

	var event models.CalendarEvent
	if err := c.Bind().JSON(&event); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.gateway.UpdateEvent(c.Context(), providerID, eventID, event)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteCalendarEvent(c fiber.Ctx) error {
	providerID := c.Params("providerId")
	eventID := c.Params("eventId")

	if err := h.gateway.DeleteEvent(c.Context(), providerID, eventID); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SendEmail(c fiber.Ctx) error {
	providerID := c.Params("providerId")

	var email models.OutgoingEmail
	if err := c.Bind().JSON(&email); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(email); err != nil {
		return badRequest(c, err.Error())
	}

	messageID, err := h.gateway.SendEmail(c.Context(), providerID, email)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(SendEmailResponse{MessageID: messageID})
}

func (h *APIHandlers) MarkRead(c fiber.Ctx) error {
	providerID := c.Params("providerId")
	messageID := c.Params("messageId")

	var req MarkReadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if req.Read == nil {
		return badRequest(c, "read flag is required")
	}

	if err := h.gateway.MarkRead(c.Context(), providerID, messageID, *req.Read); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.repository.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Helix API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Helix API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
