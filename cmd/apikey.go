package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/depin-orcha/orcha/app/database"
	"github.com/depin-orcha/orcha/app/repository"
	"github.com/depin-orcha/orcha/app/service"
	"github.com/depin-orcha/orcha/config"

	"github.com/spf13/cobra"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var (
	apiKeyDBPath            string
	apiKeyCreateName        string
	apiKeyCreateDescription string
	apiKeyCreateExpiresDays int64
	apiKeyCreateRateLimit   int
	apiKeyCreatePermissions []string
)

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key and print the raw secret once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		keyService, db, err := newAPIKeyServiceForCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		params := service.CreateAPIKeyParams{
			Name:               apiKeyCreateName,
			RateLimitPerMinute: &apiKeyCreateRateLimit,
			Permissions:        apiKeyCreatePermissions,
		}
		if cmd.Flags().Changed("description") {
			params.Description = &apiKeyCreateDescription
		}
		if cmd.Flags().Changed("expires-in-days") {
			params.ExpiresInDays = &apiKeyCreateExpiresDays
		}

		rawKey, info, err := keyService.Create(context.Background(), params)
		if err != nil {
			return err
		}

		fmt.Printf("id: %d\n", info.ID)
		fmt.Printf("name: %s\n", info.Name)
		fmt.Printf("api_key: %s\n", rawKey)
		fmt.Printf("rate_limit_per_minute: %d\n", info.RateLimitPerMinute)
		if info.ExpiresAt != nil {
			fmt.Printf("expires_at: %s\n", info.ExpiresAt.Format(time.RFC3339))
		} else {
			fmt.Println("expires_at: never")
		}
		fmt.Println("store this key securely; it is only shown once")
		return nil
	},
}

var apiKeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all API keys",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		keyService, db, err := newAPIKeyServiceForCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		keys, err := keyService.List(context.Background())
		if err != nil {
			return err
		}

		if len(keys) == 0 {
			fmt.Println("no API keys found")
			return nil
		}

		for _, key := range keys {
			state := "active"
			if !key.IsActive {
				state = "inactive"
			}
			expiry := "never"
			if key.ExpiresAt != nil {
				expiry = key.ExpiresAt.Format(time.RFC3339)
			}
			fmt.Printf("%d\t%s\t%s\tlimit=%d/min\texpires=%s\n", key.ID, key.Name, state, key.RateLimitPerMinute, expiry)
		}
		return nil
	},
}

var apiKeyDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid key id %q", args[0])
		}

		keyService, db, err := newAPIKeyServiceForCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		info, err := keyService.Deactivate(context.Background(), id)
		if err != nil {
			if errors.Is(err, service.ErrAPIKeyNotFound) {
				return fmt.Errorf("api key %d not found", id)
			}
			if errors.Is(err, service.ErrInactiveAPIKey) {
				return fmt.Errorf("api key %d is already inactive", id)
			}
			return err
		}

		fmt.Printf("deactivated API key %d (%s)\n", info.ID, info.Name)
		return nil
	},
}

func init() {
	apiKeyCmd.PersistentFlags().StringVar(&apiKeyDBPath, "db", "", "database file path (overrides DATABASE_PATH)")
	apiKeyCreateCmd.Flags().StringVar(&apiKeyCreateName, "name", "Admin Bootstrap Key", "name stored with the key")
	apiKeyCreateCmd.Flags().StringVar(&apiKeyCreateDescription, "description", "", "description stored with the key")
	apiKeyCreateCmd.Flags().Int64Var(&apiKeyCreateExpiresDays, "expires-in-days", 0, "days until the key expires (omit for no expiry)")
	apiKeyCreateCmd.Flags().IntVar(&apiKeyCreateRateLimit, "rate-limit", 1000, "requests per minute allowed for the key")
	apiKeyCreateCmd.Flags().StringArrayVar(&apiKeyCreatePermissions, "permission", []string{"read", "write", "admin", "delete"}, "permission granted to the key (repeatable)")

	apiKeyCmd.AddCommand(apiKeyCreateCmd)
	apiKeyCmd.AddCommand(apiKeyListCmd)
	apiKeyCmd.AddCommand(apiKeyDeactivateCmd)
	rootCmd.AddCommand(apiKeyCmd)
}

func newAPIKeyServiceForCommands() (service.APIKeyService, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	dbPath := cfg.DatabasePath
	if apiKeyDBPath != "" {
		dbPath = apiKeyDBPath
	}

	db, err := database.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}

	// The key tables have to exist before any key operation.
	if _, err := database.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	keyRepo := repository.NewAPIKeyRepository(db)
	return service.NewAPIKeyService(keyRepo, cfg.DefaultRateLimitPerMinute), db, nil
}
