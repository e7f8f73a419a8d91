// admintoken emite un bearer token para el API de estadisticas.
//
// Uso:
//
//	STATS_JWT_SECRET=... go run ./cmd/admintoken -name ops -ttl 72h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"botforge/internal/service"
)

func main() {
	name := flag.String("name", "admin", "nombre que viaja en los claims")
	ttl := flag.Duration("ttl", 24*time.Hour, "vigencia del token")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	secret := os.Getenv("STATS_JWT_SECRET")
	if secret == "" {
		log.Fatal("STATS_JWT_SECRET is required")
	}

	tokenSvc := service.NewTokenService(secret, *ttl)
	token, err := tokenSvc.Issue(*name)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Println(token)
}
