// Command createuser creates an account, or changes the privilege flags of an
// existing one when -update is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cloud-storage/internal/app"
	"cloud-storage/internal/config"
	"cloud-storage/internal/service/authService"
	"cloud-storage/pkg/logger"
	"cloud-storage/pkg/validator"

	"go.uber.org/zap"
)

func main() {
	var (
		username  = flag.String("username", "", "account username")
		email     = flag.String("email", "", "account email")
		password  = flag.String("password", os.Getenv("CREATEUSER_PASSWORD"), "account password (defaults to $CREATEUSER_PASSWORD)")
		staff     = flag.Bool("staff", false, "grant staff rights")
		superuser = flag.Bool("superuser", false, "grant superuser rights")
		update    = flag.Bool("update", false, "only change the flags of an existing account")
		envFile   = flag.String("config", ".env", "config file")
	)
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "-username is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, err := logger.New(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.GetLogger(ctx)

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	repos, err := app.OpenRepositories(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer repos.Close()

	// token stores are only needed for sessions
	svc := authService.New(repos.Users, cfg.Auth, nil, nil)

	if *update {
		if err := svc.SetFlags(ctx, *username, *staff, *superuser); err != nil {
			log.Fatal("Failed to update user", zap.Error(err))
		}
		fmt.Printf("updated %s: staff=%t superuser=%t\n", *username, *staff, *superuser)
		return
	}

	u, err := svc.CreateAccount(ctx, validator.Registration{
		Username: *username,
		Email:    *email,
		Password: *password,
	}, *staff, *superuser)
	if err != nil {
		log.Fatal("Failed to create user", zap.Error(err))
	}
	fmt.Printf("created user %d (%s)\n", u.ID, u.Username)
}
