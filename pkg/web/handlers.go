package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/gatehouse-id/gatehouse/pkg/engine"
	"github.com/gatehouse-id/gatehouse/pkg/flow"
	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/cookie"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
	"github.com/gatehouse-id/gatehouse/pkg/registry"
)

type APIHandlers struct {
	flows       *flow.Manager
	executor    *engine.Executor
	registry    *registry.Registry
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewAPIHandlers(
	flows *flow.Manager,
	executor *engine.Executor,
	registry *registry.Registry,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		flows:       flows,
		executor:    executor,
		registry:    registry,
		persistence: persistence,
		validator:   validator,
	}
}

// ListNodeTypes serves the editor catalog of registered node kinds.
func (h *APIHandlers) ListNodeTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"node_types": h.registry.ListMetadata()})
}

// ValidateNodeConfig is the advisory schema check for the editor. The
// compiler never enforces config schemas; this endpoint exists so editors
// can lint before publish.
func (h *APIHandlers) ValidateNodeConfig(c fiber.Ctx) error {
	nodeType := c.Params("type")

	var req ValidateConfigRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err := h.registry.ValidateConfig(nodeType, req.Config)
	if err != nil {
		return c.JSON(fiber.Map{"valid": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{"valid": true})
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	draft := &models.FlowDraft{
		RealmID:     req.RealmID,
		Name:        req.Name,
		Description: req.Description,
		FlowType:    req.FlowType,
		Graph:       req.Graph,
	}

	created, err := h.flows.CreateDraft(c.Context(), draft)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) ListFlows(c fiber.Ctx) error {
	realmID := c.Query("realm_id")
	if realmID == "" {
		return badRequest(c, "realm_id query parameter is required")
	}

	drafts, err := h.flows.ListDrafts(c.Context(), realmID)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{"flows": drafts})
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	draft, err := h.flows.GetDraft(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(draft)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.flows.GetDraft(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Graph != nil {
		existing.Graph = req.Graph
	}

	updated, err := h.flows.UpdateDraft(c.Context(), existing)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	err := h.flows.DeleteDraft(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PublishFlow compiles the draft into an immutable version. A compile
// failure returns 400 with the validator's message and writes nothing.
func (h *APIHandlers) PublishFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	version, err := h.flows.Publish(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(version)
}

func (h *APIHandlers) ListVersions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	versions, err := h.flows.ListVersions(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{"versions": versions})
}

func (h *APIHandlers) Deploy(c fiber.Ctx) error {
	var req DeployRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	deployment, err := h.flows.Deploy(c.Context(), req.RealmID, req.FlowType, req.VersionID)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(deployment)
}

func (h *APIHandlers) GetDeployment(c fiber.Ctx) error {
	realmID := c.Params("realmId")
	flowType := models.FlowType(c.Params("flowType"))

	deployment, err := h.flows.GetDeployment(c.Context(), realmID, flowType)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(deployment)
}

// StartLogin opens a session against the realm's active deployment and runs
// the flow until it first suspends or terminates. The request's SSO cookie
// and any body input seed the session context for first-pass nodes.
func (h *APIHandlers) StartLogin(c fiber.Ctx) error {
	realmID := c.Params("realmId")
	flowType := models.FlowType(c.Params("flowType"))

	input := map[string]any{}

	if len(c.Body()) > 0 {
		var req StartRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		for k, v := range req.Input {
			input[k] = v
		}
	}

	if token := c.Cookies(cookie.SSOCookieName); token != "" {
		input[cookie.ContextKeyCookieToken] = token
	}

	result, err := h.executor.Start(c.Context(), realmID, flowType, input)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(result)
}

// SubmitLogin delivers input to the node the session is paused on.
func (h *APIHandlers) SubmitLogin(c fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return badRequest(c, "Session ID is required")
	}

	var req SubmitRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.executor.Submit(c.Context(), sessionID, req.Input)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(result)
}

// ResumeLogin completes an async suspension via its single-use ticket.
func (h *APIHandlers) ResumeLogin(c fiber.Ctx) error {
	var req ResumeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.executor.Resume(c.Context(), req.Token, req.Input)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	session, err := h.executor.GetSession(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(session)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	storeErr := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	message := "Gatehouse API is healthy"
	httpStatus := http.StatusOK

	storeCheck := "ok"
	if storeErr != nil {
		storeCheck = storeErr.Error()
	}

	if !regOk || storeErr != nil {
		status = "unhealthy"
		message = "Gatehouse API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"store":    storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
