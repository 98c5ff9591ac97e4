package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/metrics"
)

// handler holds all HTTP handler dependencies.
type handler struct {
	store    flow.Store
	log      *zap.Logger
	validate *validator.Validate
}

// newApp builds the Fiber app and registers all routes.
func newApp(store flow.Store, logger *zap.Logger) *fiber.App {
	h := &handler{
		store:    store,
		log:      logger,
		validate: validator.New(),
	}

	app := fiber.New()
	app.Use(requestLogger(logger))

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", h.createSchema)
	app.Delete("/schema", h.dropSchema)

	// ── Agents ────────────────────────────────────────────────────────
	app.Post("/agents", h.createAgent)
	app.Get("/agents", h.listAgents)
	app.Get("/agents/:id", h.getAgent)
	app.Put("/agents/:id", h.updateAgent)
	app.Delete("/agents/:id", h.deleteAgent)

	// ── Flow builder ──────────────────────────────────────────────────
	app.Get("/agents/:id/flow", h.getFlow)
	app.Put("/agents/:id/flow", h.replaceFlow)
	app.Post("/agents/:id/flow/nodes", h.addFlowNode)
	app.Put("/agents/:id/flow/nodes/:nodeID", h.updateFlowNode)
	app.Delete("/agents/:id/flow/nodes/:nodeID", h.deleteFlowNode)
	app.Get("/agents/:id/prompt", h.getPrompt)

	// ── Knowledge ingestion ───────────────────────────────────────────
	app.Post("/agents/:id/knowledge", h.createIngestionTask)
	app.Get("/agents/:id/tasks", h.listTasks)
	app.Get("/tasks/:id", h.getTask)

	// ── Ops ───────────────────────────────────────────────────────────
	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

// ── Schema ────────────────────────────────────────────────────────────

func (h *handler) createSchema(c fiber.Ctx) error {
	if err := h.store.CreateSchema(c.Context()); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (h *handler) dropSchema(c fiber.Ctx) error {
	if err := h.store.DropSchema(c.Context()); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

// ── Agents ────────────────────────────────────────────────────────────

type agentRequest struct {
	Name             string          `json:"name" validate:"required,min=1,max=200"`
	Prompt           string          `json:"prompt"`
	Tools            []string        `json:"tools" validate:"omitempty,max=50,dive,min=1,max=100"`
	Subagents        []string        `json:"subagents" validate:"omitempty,max=20,dive,min=1,max=100"`
	Triggers         json.RawMessage `json:"triggers"`
	KnowledgeBase    json.RawMessage `json:"knowledge_base"`
	AdvancedSettings json.RawMessage `json:"advanced_settings"`
}

func (h *handler) createAgent(c fiber.Ctx) error {
	var req agentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	// Every agent starts with a Start-only flow so the editor always has a
	// graph to mutate.
	g := flow.NewGraph()
	agent := &flow.Agent{
		Name:             req.Name,
		Prompt:           req.Prompt,
		Tools:            req.Tools,
		Subagents:        req.Subagents,
		Triggers:         req.Triggers,
		KnowledgeBase:    req.KnowledgeBase,
		AdvancedSettings: req.AdvancedSettings,
		FlowBuilder:      &g,
	}

	id, err := h.store.CreateAgent(c.Context(), agent)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(201).JSON(fiber.Map{"id": id})
}

func (h *handler) listAgents(c fiber.Ctx) error {
	agents, err := h.store.ListAgents(c.Context())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(agents)
}

func (h *handler) getAgent(c fiber.Ctx) error {
	a, err := h.store.GetAgent(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if a == nil {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}
	return c.JSON(a)
}

func (h *handler) updateAgent(c fiber.Ctx) error {
	var req agentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	existing, err := h.store.GetAgent(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if existing == nil {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}

	existing.Name = req.Name
	existing.Prompt = req.Prompt
	existing.Tools = req.Tools
	existing.Subagents = req.Subagents
	existing.Triggers = req.Triggers
	existing.KnowledgeBase = req.KnowledgeBase
	existing.AdvancedSettings = req.AdvancedSettings

	err = h.store.UpdateAgent(c.Context(), existing)
	if errors.Is(err, flow.ErrAgentNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(204)
}

func (h *handler) deleteAgent(c fiber.Ctx) error {
	if err := h.store.DeleteAgent(c.Context(), c.Params("id")); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(204)
}

// ── Flow builder ──────────────────────────────────────────────────────

// loadFlow fetches the agent's current graph, falling back to a fresh
// Start-only graph for agents saved before they had one.
func (h *handler) loadFlow(c fiber.Ctx, agentID string) (flow.Graph, bool, error) {
	g, err := h.store.GetFlow(c.Context(), agentID)
	if err != nil {
		return flow.Graph{}, false, err
	}
	if g != nil {
		return *g, true, nil
	}
	a, err := h.store.GetAgent(c.Context(), agentID)
	if err != nil {
		return flow.Graph{}, false, err
	}
	if a == nil {
		return flow.Graph{}, false, nil
	}
	return flow.NewGraph(), true, nil
}

func (h *handler) getFlow(c fiber.Ctx) error {
	g, ok, err := h.loadFlow(c, c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}
	return c.JSON(g)
}

func (h *handler) replaceFlow(c fiber.Ctx) error {
	var g flow.Graph
	if err := c.Bind().JSON(&g); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := flow.Validate(g); err != nil {
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}

	err := h.store.SaveFlow(c.Context(), c.Params("id"), g)
	if errors.Is(err, flow.ErrAgentNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(g)
}

type addNodeRequest struct {
	OriginID string `json:"origin_id" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=instruction condition"`
}

func (h *handler) addFlowNode(c fiber.Ctx) error {
	agentID := c.Params("id")

	var req addNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	g, ok, err := h.loadFlow(c, agentID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}

	updated, err := flow.AddNode(g, req.OriginID, flow.NodeKind(req.Kind))
	if errors.Is(err, flow.ErrNodeNotFound) {
		metrics.MutationNoops.WithLabelValues("add_node").Inc()
		h.log.Warn("add node on unknown origin",
			zap.String("agent_id", agentID), zap.String("origin_id", req.OriginID))
		return c.Status(404).JSON(fiber.Map{"error": "origin node not found"})
	}
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.store.SaveFlow(c.Context(), agentID, updated); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	metrics.MutationsApplied.WithLabelValues("add_node").Inc()
	return c.Status(201).JSON(updated)
}

type updateNodeRequest struct {
	// Empty instruction text is valid: it means "no instruction yet".
	Instruction string `json:"instruction" validate:"max=4000"`
}

func (h *handler) updateFlowNode(c fiber.Ctx) error {
	agentID := c.Params("id")
	nodeID := c.Params("nodeID")

	var req updateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	g, ok, err := h.loadFlow(c, agentID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}

	updated, err := flow.UpdateInstruction(g, nodeID, req.Instruction)
	if errors.Is(err, flow.ErrNodeNotFound) {
		metrics.MutationNoops.WithLabelValues("update_instruction").Inc()
		h.log.Warn("update on unknown node",
			zap.String("agent_id", agentID), zap.String("node_id", nodeID))
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.store.SaveFlow(c.Context(), agentID, updated); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	metrics.MutationsApplied.WithLabelValues("update_instruction").Inc()
	return c.JSON(updated)
}

func (h *handler) deleteFlowNode(c fiber.Ctx) error {
	agentID := c.Params("id")
	nodeID := c.Params("nodeID")

	g, ok, err := h.loadFlow(c, agentID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}

	updated, err := flow.DeleteNode(g, nodeID)
	if errors.Is(err, flow.ErrNodeNotFound) {
		metrics.MutationNoops.WithLabelValues("delete_node").Inc()
		h.log.Warn("delete on unknown node",
			zap.String("agent_id", agentID), zap.String("node_id", nodeID))
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	if errors.Is(err, flow.ErrStartImmutable) {
		return c.Status(409).JSON(fiber.Map{"error": "start node cannot be deleted"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.store.SaveFlow(c.Context(), agentID, updated); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	metrics.MutationsApplied.WithLabelValues("delete_node").Inc()
	return c.JSON(updated)
}

func (h *handler) getPrompt(c fiber.Ctx) error {
	agentID := c.Params("id")

	g, ok, err := h.loadFlow(c, agentID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}

	prompt := flow.SerializeToPrompt(g)
	metrics.PromptSerializations.Inc()
	metrics.PromptBytes.Observe(float64(len(prompt)))

	// Saving the prompt onto the agent keeps the persisted metadata in
	// sync with what the flow currently serializes to.
	if a, err := h.store.GetAgent(c.Context(), agentID); err == nil && a != nil {
		a.Prompt = prompt
		if err := h.store.UpdateAgent(c.Context(), a); err != nil {
			h.log.Warn("prompt save failed", zap.String("agent_id", agentID), zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"prompt": prompt})
}

// ── Knowledge ingestion ───────────────────────────────────────────────

type ingestRequest struct {
	Filename string `json:"filename" validate:"required,min=1,max=255"`
}

func (h *handler) createIngestionTask(c fiber.Ctx) error {
	agentID := c.Params("id")

	var req ingestRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	a, err := h.store.GetAgent(c.Context(), agentID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if a == nil {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}

	task := &flow.IngestionTask{
		AgentID:  agentID,
		Filename: req.Filename,
		Status:   flow.TaskPending,
	}
	id, err := h.store.CreateTask(c.Context(), task)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	metrics.IngestionTasksStarted.Inc()

	go h.runIngestion(id)

	return c.Status(202).JSON(fiber.Map{"id": id, "status": flow.TaskPending})
}

// runIngestion advances a task through its status lifecycle. The request
// context is gone by the time this runs, so it uses its own. Actual file
// parsing and indexing belongs to the ingestion pipeline; this service only
// tracks status for the polling client.
func (h *handler) runIngestion(taskID string) {
	ctx := context.Background()
	if err := h.store.UpdateTaskStatus(ctx, taskID, flow.TaskProcessing, ""); err != nil {
		h.log.Warn("task status update failed", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	if err := h.store.UpdateTaskStatus(ctx, taskID, flow.TaskCompleted, ""); err != nil {
		h.log.Warn("task status update failed", zap.String("task_id", taskID), zap.Error(err))
	}
}

func (h *handler) getTask(c fiber.Ctx) error {
	t, err := h.store.GetTask(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if t == nil {
		return c.Status(404).JSON(fiber.Map{"error": "task not found"})
	}
	return c.JSON(t)
}

func (h *handler) listTasks(c fiber.Ctx) error {
	tasks, err := h.store.ListTasks(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(tasks)
}
