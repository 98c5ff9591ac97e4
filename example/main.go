package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/postgres"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Wire up the postgres implementation behind the Store interface.
	var store flow.Store = postgres.New(pool)

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Build a flow in memory with the mutation engine ───────────────
	g := flow.NewGraph()

	g, step1 := mustAdd(g, flow.StartNodeID, flow.KindInstruction)
	g = mustUpdate(g, step1, "Greet the customer and ask for their order number.")

	g, cond1 := mustAdd(g, step1, flow.KindCondition)
	g = mustUpdate(g, cond1, "The order number is valid")

	g, lookup := mustAdd(g, cond1, flow.KindInstruction)
	g = mustUpdate(g, lookup, "Look up the order and summarize its status.")

	// A second condition on the same origin becomes a sibling branch.
	g, cond2 := mustAdd(g, step1, flow.KindCondition)
	g = mustUpdate(g, cond2, "The order number is missing or invalid")

	g, retry := mustAdd(g, cond2, flow.KindInstruction)
	g = mustUpdate(g, retry, "Ask the customer to double-check the number.")

	fmt.Printf("\nflow built: %d nodes, %d edges\n", len(g.Nodes), len(g.Edges))

	// ── Serialize it into the agent prompt ────────────────────────────
	prompt := flow.SerializeToPrompt(g)
	fmt.Println("\nserialized prompt:")
	fmt.Println(prompt)

	// ── Persist the agent with the flow as an opaque blob ─────────────
	agent := &flow.Agent{
		Name:        "order-support",
		Prompt:      prompt,
		Tools:       []string{"order_lookup"},
		Subagents:   []string{},
		FlowBuilder: &g,
	}
	agentID, err := store.CreateAgent(ctx, agent)
	if err != nil {
		log.Fatalf("create agent: %v", err)
	}
	fmt.Printf("agent created: %s\n", agentID)

	// ── Retrieve ──────────────────────────────────────────────────────
	loaded, err := store.GetAgent(ctx, agentID)
	if err != nil {
		log.Fatalf("get agent: %v", err)
	}
	fmt.Println("\nagent retrieved:")
	printJSON(loaded)

	// ── Delete a branch: the condition subtree goes all at once ───────
	g, err = flow.DeleteNode(g, cond2)
	if err != nil {
		log.Fatalf("delete node: %v", err)
	}
	if err := store.SaveFlow(ctx, agentID, g); err != nil {
		log.Fatalf("save flow: %v", err)
	}
	fmt.Printf("\nbranch deleted: %d nodes remain\n", len(g.Nodes))

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteAgent(ctx, agentID); err != nil {
		log.Fatalf("delete agent: %v", err)
	}
	fmt.Println("\nagent deleted")
}

// mustAdd inserts a node and returns the new graph plus the new node's id.
func mustAdd(g flow.Graph, originID string, kind flow.NodeKind) (flow.Graph, string) {
	before := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		before[n.ID] = true
	}
	next, err := flow.AddNode(g, originID, kind)
	if err != nil {
		log.Fatalf("add node: %v", err)
	}
	for _, n := range next.Nodes {
		if !before[n.ID] {
			return next, n.ID
		}
	}
	log.Fatal("add node: no new node")
	return next, ""
}

func mustUpdate(g flow.Graph, nodeID, text string) flow.Graph {
	next, err := flow.UpdateInstruction(g, nodeID, text)
	if err != nil {
		log.Fatalf("update instruction: %v", err)
	}
	return next
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
