package main

import (
	"context"
	"fmt"
	"os"

	"github.com/classam/redis-tance/pkg/tance"
)

func main() {
	cfg := tance.Config{StorePath: os.Getenv("TANCE_STORE")}
	if cfg.StorePath == "" {
		cfg.InMemory = true
	}

	client, err := tance.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	chain := client.NewChain("employee")
	if err := chain.AddVersion([]byte(`{
		"type": "object",
		"required": ["firstname", "lastname"],
		"properties": {
			"firstname": {"type": "string"},
			"lastname": {"type": "string"}
		}
	}`), nil); err != nil {
		fmt.Fprintf(os.Stderr, "add v1: %v\n", err)
		os.Exit(1)
	}

	addSalary, err := tance.UpgradeWithPatch([]byte(`[{"op": "add", "path": "/salary", "value": 30000}]`))
	if err != nil {
		fmt.Fprintf(os.Stderr, "salary patch: %v\n", err)
		os.Exit(1)
	}
	if err := chain.AddVersion([]byte(`{
		"type": "object",
		"required": ["firstname", "lastname", "salary"],
		"properties": {
			"firstname": {"type": "string"},
			"lastname": {"type": "string"},
			"salary": {"type": "number"}
		}
	}`), addSalary); err != nil {
		fmt.Fprintf(os.Stderr, "add v2: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	employees, err := client.NewCollection(chain, tance.WithNamespace("payroll"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "collection: %v\n", err)
		os.Exit(1)
	}

	if err := employees.Add(ctx, tance.Document{
		"id":        "emp-0001",
		"version":   1,
		"firstname": "Charles",
		"lastname":  "Huckbreimer",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "add: %v\n", err)
		os.Exit(1)
	}

	members, err := employees.Members(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "members: %v\n", err)
		os.Exit(1)
	}
	for _, member := range members {
		fmt.Printf("employee id=%v name=%v %v salary=%v version=%v\n",
			member["id"], member["firstname"], member["lastname"], member["salary"], member["version"])
	}

	count, err := employees.Count(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "count: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("collection %s holds %d employee(s)\n", employees.ID(), count)
}
