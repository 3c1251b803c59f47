package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"telefonia-inventory-api/internal/auth"
	"telefonia-inventory-api/internal/config"

	"github.com/joho/godotenv"
)

// jwtgen mints a token for local API testing without going through /login.
func main() {
	_ = godotenv.Load()

	userID := flag.Int64("user", 1, "user id for the sub claim")
	roles := flag.String("roles", "admin", "comma-separated roles")
	flag.Parse()

	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	manager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	token, err := manager.GenerateToken(*userID, strings.Split(*roles, ","))
	if err != nil {
		log.Fatalf("token generation failed: %v", err)
	}
	fmt.Println(token)
}
