package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sonna/internal/pkg/mongodb"
	"sonna/internal/repository"
	"sonna/internal/service"
)

var migrateUserCmd = &cobra.Command{
	Use:   "migrate-user",
	Short: "Fold the legacy placeholder user into the default user",
	Long: `Fold the legacy "Sonna User" placeholder profile into the configured
default user: copy its preferences when the default user has none,
reassign its conversations, then delete it. Safe to run repeatedly;
a second run is a no-op.`,
	RunE: runMigrateUser,
}

func init() {
	rootCmd.AddCommand(migrateUserCmd)
}

func runMigrateUser(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	client, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		_ = client.Close(context.Background())
	}()

	db := client.Database()

	users := service.NewUserService(repository.NewUserRepo(db), nil, cfg.User)
	result, err := users.MigrateLegacy(context.Background(), repository.NewConversationRepo(db))
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if !result.LegacyDeleted {
		fmt.Println("No legacy user found, nothing to migrate.")
		return nil
	}

	fmt.Printf("Migrated legacy user: default created=%v, preferences copied=%v, conversations moved=%d\n",
		result.CreatedDefault, result.PreferencesCopied, result.ConversationsMoved)
	return nil
}
