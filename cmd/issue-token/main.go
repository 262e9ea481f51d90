package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/config"
	"github.com/garyjia/claims-workflow/internal/container"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

// issue-token registers a directory entry and prints a bearer token for it.
// Identity issuance is outside the service, so operators use this for local setups.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file")
	userID := flag.String("user", "", "User ID (required)")
	name := flag.String("name", "", "Display name")
	email := flag.String("email", "", "Email address")
	role := flag.String("role", string(entity.RoleEmployee), "Role: employee, hr or finance")
	openID := flag.String("lark-open-id", "", "Lark open_id for status notifications")
	ttl := flag.Duration("ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
	flag.Parse()

	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "ERROR: --user is required")
		flag.Usage()
		os.Exit(2)
	}
	r := entity.Role(*role)
	if !r.IsValid() {
		fmt.Fprintf(os.Stderr, "ERROR: unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *ttl > 0 {
		cfg.Auth.TokenTTL = *ttl
	}

	logger := zap.NewNop()
	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create container: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start container: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	user := &entity.User{
		ID:         *userID,
		Name:       *name,
		Email:      *email,
		Role:       r,
		LarkOpenID: *openID,
		CreatedAt:  time.Now().UTC(),
	}
	if user.Name == "" {
		user.Name = user.ID
	}
	if err := c.Repositories().Users.Create(ctx, user); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register user: %v\n", err)
		os.Exit(1)
	}

	token, err := c.Tokens().GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
