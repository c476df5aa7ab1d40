//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/adopt-a-pet/internal/auth"
	"github.com/hugh/adopt-a-pet/internal/database"
	"github.com/hugh/adopt-a-pet/pkg/config"
	"github.com/hugh/adopt-a-pet/pkg/util"
	"github.com/joho/godotenv"
)

// Creates a demo account for local development.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close(db)

	username := os.Getenv("SEED_USERNAME")
	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")

	if username == "" {
		username = "demo"
	}
	if email == "" {
		email = "demo@example.com"
	}
	if password == "" {
		log.Fatal("SEED_PASSWORD must be set")
	}

	user, err := auth.NewService(db).Signup(context.Background(), auth.SignupInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			fmt.Printf("User already exists: %s\n", username)
			return
		}
		log.Fatalf("failed to create user: %v", err)
	}

	fmt.Printf("User created successfully!\n")
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Email: %s\n", user.Email)
}
