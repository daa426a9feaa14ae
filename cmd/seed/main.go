package main

import (
	"context"
	"log"
	"os"
	"time"

	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/pkg/serverutils"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/database"
	"rma-engine-be/pkg/rma/policy"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Seeds a demo company: its return policy, a handful of delivered orders and
// an agent token for calling the API.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	companyID := uuid.New()
	if raw := os.Getenv("SEED_COMPANY_ID"); raw != "" {
		if companyID, err = uuid.Parse(raw); err != nil {
			log.Fatalf("Error: SEED_COMPANY_ID is not a UUID: %v", err)
		}
	}

	ctx := context.Background()
	factory := unitofwork.NewRepositoryFactory(db)

	color.Cyan("Seeding company %s", companyID)

	color.Yellow("\n1. Return policy")
	p := policy.DefaultPolicy(companyID)
	p.Notifications.Internal.Recipients = []string{"returns@example.com"}
	if err := policy.NewStore(nil, logger.NewNopLogger()).SavePolicy(ctx, factory.NewUnitOfWork(ctx), p); err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Saved default policy")

	color.Yellow("\n2. Orders")
	customerID := uuid.New()
	orders := factory.NewUnitOfWork(ctx).OrderRepository()
	for i, age := range []int{3, 12, 45} {
		placed := time.Now().AddDate(0, 0, -age)
		delivered := placed.Add(48 * time.Hour)
		order := &entity.Order{
			ID:          uuid.New(),
			CompanyID:   companyID,
			CustomerID:  customerID,
			PlacedAt:    placed,
			DeliveredAt: &delivered,
			ItemIDs:     []string{"line-1", "line-2"},
		}
		if err := orders.Upsert(ctx, order); err != nil {
			color.Red("Failed order %d: %v", i+1, err)
			continue
		}
		color.Green("Order %s placed %d days ago (customer %s)", order.ID, age, customerID)
	}

	color.Yellow("\n3. Agent token")
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		color.Red("JWT_SECRET not set, skipping token")
		return
	}
	token, err := serverutils.SignToken(secret, serverutils.Principal{CompanyID: companyID, UserID: uuid.New(), Role: "agent"})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.White("%s", token)
}
