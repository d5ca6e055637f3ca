// cmd/admintoken/main.go
package main

import (
	"fmt"
	"os"

	"github.com/maloune/storefront/internal/config"
	"github.com/maloune/storefront/internal/pkg/auth"
	"github.com/sirupsen/logrus"
)

// Mints a bearer token for the admin import endpoints, signed with JWT_SECRET.
func main() {
	if len(os.Args) < 2 {
		logrus.Fatal("Usage: go run ./cmd/admintoken <operator>")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	manager := auth.NewJWTManager(cfg)

	token, err := manager.GenerateAdminToken(os.Args[1])
	if err != nil {
		logrus.WithError(err).Fatal("Error generating token")
	}

	if _, err := manager.ValidateAdminToken(token); err != nil {
		logrus.WithError(err).Fatal("Token verification failed")
	}

	fmt.Printf("Operator: %s\n", os.Args[1])
	fmt.Printf("Expires in: %s\n", cfg.JWT.AccessTokenExpiry)
	fmt.Println(token)
}
