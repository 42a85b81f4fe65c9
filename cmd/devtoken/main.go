// Command devtoken signs an HS256 bearer token with the configured
// JWT_SECRET, for local testing against a service without an OIDC issuer.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/config"
	"ms-festbuzz/internal/models"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id placed in the sub claim")
	role := flag.String("role", string(models.RoleParticipant), "global role")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Config] %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("[Auth] JWT_SECRET not set")
	}
	if *userID == "" {
		log.Fatal("[Auth] -user is required")
	}
	r := models.Role(*role)
	if !r.Valid() {
		log.Fatalf("[Auth] unknown role %q", *role)
	}

	tok, err := auth.IssueToken(cfg.Auth.JWTSecret, auth.Principal{UserID: *userID, Role: r}, *ttl)
	if err != nil {
		log.Fatalf("[Auth] %v", err)
	}
	fmt.Println(tok)
}
