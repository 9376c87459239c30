package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/service"
)

// issue-token prints a signed user JWT for exercising the session API
// locally. Accounts are owned by the upstream identity service.
func main() {
	var userID int
	flag.IntVar(&userID, "user", 0, "User ID to embed in the token")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if userID <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: issue-token -user <id>")
		os.Exit(2)
	}

	authService := service.NewAuthService(cfg)
	token, err := authService.GenerateToken(userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	log.Info().Int("user_id", userID).Dur("expires_in", cfg.JWTExpiry).Msg("Token issued")
	fmt.Println(token)
}
