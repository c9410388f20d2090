package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/odyssey-erp/odyssey-crm/internal/app"
	"github.com/odyssey-erp/odyssey-crm/internal/listview"
	"github.com/odyssey-erp/odyssey-crm/internal/savedviews"
)

type seedView struct {
	scope   string
	name    string
	filters listview.Filters
}

var demoViews = []seedView{
	{scope: "employee", name: "Inactive staff", filters: listview.Filters{"status": {Value: "INACTIVE"}}},
	{scope: "employee", name: "Sales department", filters: listview.Filters{"department": {Value: "Sales"}, "status": {Value: "ACTIVE"}}},
	{scope: "contact", name: "Open leads", filters: listview.Filters{"type": {Value: "LEAD"}}},
	{scope: "contact", name: "Customers outside Jakarta", filters: listview.Filters{
		"type":     {Value: "CUSTOMER"},
		"location": {Value: "Jakarta", Operator: listview.OperatorExclude},
	}},
	{scope: "role", name: "Custom roles", filters: listview.Filters{"system": {Value: "false"}}},
	{scope: "category", name: "Retired categories", filters: listview.Filters{"active": {Value: "false"}}},
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.SavedViewBackend == app.BackendMemory {
		log.Fatalf("seed needs SAVED_VIEW_BACKEND=redis or postgres")
	}
	ctx := context.Background()
	services, err := app.OpenServices(ctx, cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)), nil)
	if err != nil {
		log.Fatalf("open services: %v", err)
	}
	defer services.Close()

	clients := strings.Split(getenv("SEED_CLIENTS", "demo"), ",")
	for _, client := range clients {
		client = strings.TrimSpace(client)
		if client == "" {
			continue
		}
		fmt.Printf("→ Seeding saved views for %s...\n", client)
		added, err := seedClient(ctx, services.Views, client)
		if err != nil {
			log.Fatalf("seed %s: %v", client, err)
		}
		fmt.Printf("  %d views added\n", added)
	}
	fmt.Println("✓ Seed complete")
}

// seedClient adds the demo views a client does not have yet.
func seedClient(ctx context.Context, kv savedviews.KV, client string) (int, error) {
	stores := make(map[string]*savedviews.Store)
	added := 0
	for _, view := range demoViews {
		store, ok := stores[view.scope]
		if !ok {
			var err error
			store, err = savedviews.Open(ctx, savedviews.Scoped(kv, client), view.scope)
			if err != nil {
				return added, err
			}
			stores[view.scope] = store
		}
		if hasView(store, view.name) {
			continue
		}
		if _, err := store.Save(ctx, view.name, view.filters); err != nil {
			return added, fmt.Errorf("%s/%s: %w", view.scope, view.name, err)
		}
		added++
	}
	return added, nil
}

func hasView(store *savedviews.Store, name string) bool {
	for _, v := range store.List() {
		if v.Name == name {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
