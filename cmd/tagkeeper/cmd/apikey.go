package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/tagkeeper/internal/core/auth"
	"github.com/solatis/tagkeeper/internal/core/config"
	"github.com/solatis/tagkeeper/internal/core/db"
	"github.com/solatis/tagkeeper/internal/core/store"
	"github.com/solatis/tagkeeper/internal/types"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Create an organization and an API key for it",
	Long: `Creates an organization (unless --organization-id is given) and issues an
API key bound to it. The raw key is printed once and never stored; only its
HMAC is persisted.`,
	RunE: runAPIKey,
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.Flags().String("organization-name", "", "name for a new organization")
	apikeyCmd.Flags().String("organization-id", "", "existing organization id to issue the key for")
	apikeyCmd.Flags().String("secret-id", "", "HMAC secret id to sign with (defaults to the only configured secret)")
}

func runAPIKey(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set TGK_HMAC_SECRET environment variable)")
	}

	secretID, _ := cmd.Flags().GetString("secret-id")
	if secretID == "" {
		if len(secrets) > 1 {
			return fmt.Errorf("multiple HMAC secrets configured, pass --secret-id")
		}
		for id := range secrets {
			secretID = id
		}
	}
	secret, ok := secrets[secretID]
	if !ok {
		return fmt.Errorf("unknown secret id %q", secretID)
	}

	documentStore := store.NewDocumentStore(queries)

	orgFlag, _ := cmd.Flags().GetString("organization-id")
	var org types.OrganizationID
	if orgFlag != "" {
		org, err = types.ParseOrganizationID(orgFlag)
		if err != nil {
			return fmt.Errorf("invalid organization id: %w", err)
		}
		exists, err := documentStore.OrganizationExists(ctx, org)
		if err != nil {
			return fmt.Errorf("failed to check organization: %w", err)
		}
		if !exists {
			return fmt.Errorf("organization %s not found", org)
		}
	} else {
		name, _ := cmd.Flags().GetString("organization-name")
		if name == "" {
			return fmt.Errorf("--organization-name or --organization-id required")
		}
		org = types.NewOrganizationID()
		if err := documentStore.CreateOrganization(ctx, org, name); err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}
	}

	apiKey, err := auth.GenerateAPIKey(secretID)
	if err != nil {
		return fmt.Errorf("failed to generate API key: %w", err)
	}

	keyID := types.NewAPIKeyID()
	_, err = queries.Exec(ctx, "create-api-key",
		string(keyID), string(org), auth.ComputeKeyHash(secret, apiKey),
		types.FormatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("organization_id: %s\n", org)
	fmt.Printf("api_key_id:      %s\n", keyID)
	fmt.Printf("api_key:         %s\n", apiKey)
	return nil
}
