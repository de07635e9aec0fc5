package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/adisyon/api/internal/auth"
	"github.com/adisyon/api/internal/config"
	"github.com/adisyon/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type seedProduct struct {
	name       string
	price      string
	variations []seedVariation
}

type seedVariation struct {
	name  string
	delta string
}

var demoTables = []struct{ identifier, name string }{
	{"demo-masa-1", "Masa 1"},
	{"demo-masa-2", "Masa 2"},
	{"demo-bahce-1", "Bahçe 1"},
}

var demoMenu = []seedProduct{
	{name: "Adana Kebap", price: "320.00", variations: []seedVariation{
		{"Acılı", "0"}, {"Ekstra Lavaş", "15.00"}, {"1.5 Porsiyon", "140.00"},
	}},
	{name: "Lahmacun", price: "90.00", variations: []seedVariation{{"Acılı", "0"}}},
	{name: "Kaşarlı Pide", price: "210.00", variations: []seedVariation{{"Sucuklu", "45.00"}}},
	{name: "Ayran", price: "35.00"},
	{name: "Çay", price: "15.00"},
}

func main() {
	// CLI flags
	email := flag.String("email", "", "Owner email address")
	password := flag.String("password", "", "Owner password")
	name := flag.String("name", "", "Owner full name")
	restaurant := flag.String("restaurant", "Demo Lokanta", "Restaurant name")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "owner@adisyon.local"
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "Demo Owner"
	}

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction: all demo data or none
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	restaurantID, err := seedRestaurant(ctx, tx, *restaurant)
	if err != nil {
		log.Fatalf("Failed to seed restaurant: %v", err)
	}
	if err := seedTables(ctx, tx, restaurantID); err != nil {
		log.Fatalf("Failed to seed tables: %v", err)
	}
	if err := seedMenu(ctx, tx, restaurantID); err != nil {
		log.Fatalf("Failed to seed menu: %v", err)
	}
	userID, err := seedOwner(ctx, tx, restaurantID, *email, *password, *name)
	if err != nil {
		log.Fatalf("Failed to seed owner: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, userID, restaurantID, enum.UserRoleOwner, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign dev token: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Restaurant ID: %s", restaurantID)
	log.Printf("Owner ID: %s", userID)
	fmt.Printf("DEV_TOKEN=%s\n", token)
}

// seedRestaurant creates the restaurant if one with this name doesn't exist.
func seedRestaurant(ctx context.Context, tx pgx.Tx, name string) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM restaurants WHERE name = $1 LIMIT 1`, name).Scan(&existingID)
	if err == nil {
		log.Printf("Restaurant '%s' already exists (ID: %s), skipping", name, existingID)
		return existingID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check restaurant: %w", err)
	}

	var newID uuid.UUID
	err = tx.QueryRow(ctx, `INSERT INTO restaurants (name) VALUES ($1) RETURNING id`, name).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert restaurant: %w", err)
	}

	log.Printf("Created restaurant '%s' (ID: %s)", name, newID)
	return newID, nil
}

func seedTables(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID) error {
	for _, t := range demoTables {
		_, err := tx.Exec(ctx,
			`INSERT INTO restaurant_tables (restaurant_id, identifier, name)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (identifier) DO NOTHING`,
			restaurantID, t.identifier, t.name)
		if err != nil {
			return fmt.Errorf("insert table %s: %w", t.identifier, err)
		}
		log.Printf("Table '%s' -> /public/tables/%s/orders", t.name, t.identifier)
	}
	return nil
}

// seedMenu inserts the demo menu once; products already present by name are skipped.
func seedMenu(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID) error {
	for _, p := range demoMenu {
		var productID uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM products WHERE restaurant_id = $1 AND name = $2 LIMIT 1`,
			restaurantID, p.name).Scan(&productID)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check product %s: %w", p.name, err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO products (restaurant_id, name, price) VALUES ($1, $2, $3) RETURNING id`,
			restaurantID, p.name, p.price).Scan(&productID)
		if err != nil {
			return fmt.Errorf("insert product %s: %w", p.name, err)
		}

		for _, v := range p.variations {
			_, err := tx.Exec(ctx,
				`INSERT INTO product_variation_options (product_id, name, price_delta) VALUES ($1, $2, $3)`,
				productID, v.name, v.delta)
			if err != nil {
				return fmt.Errorf("insert variation %s/%s: %w", p.name, v.name, err)
			}
		}
		log.Printf("Created product '%s' (ID: %s)", p.name, productID)
	}
	return nil
}

// seedOwner creates the owner user if it doesn't exist.
func seedOwner(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID, email, password, fullName string) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1 LIMIT 1`, email).Scan(&existingID)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", email, existingID)
		return existingID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	var newID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO users (restaurant_id, email, password_hash, full_name, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		restaurantID, email, string(hashed), fullName, enum.UserRoleOwner).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}

	log.Printf("Created owner user '%s' (ID: %s)", email, newID)
	return newID, nil
}
