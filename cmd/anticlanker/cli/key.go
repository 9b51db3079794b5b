package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anticlanker/anticlanker/internal/keystore"
	"github.com/anticlanker/anticlanker/internal/model"
	"github.com/anticlanker/anticlanker/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke the named API keys that authenticate against the classifier API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		projects string
		role     string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new API key",
		Long:  "Mint a named API key. The raw secret is shown once and cannot be retrieved again. Names are permanent: a revoked key's name can never be reused.",
		Example: `  anticlanker key create discord-bridge --projects discord
  anticlanker key create ci --projects '*' --notes "integration tests"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(args[0], projects, role, notes)
		},
	}

	cmd.Flags().StringVar(&projects, "projects", "", "Comma separated project scope ('*' or empty for unrestricted)")
	cmd.Flags().StringVar(&role, "role", "user", "Role label: user, service, or admin")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes shown in listings")

	return cmd
}

func runKeyCreate(name, projects, role, notes string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("key name must be non-empty")
	}

	store, err := openKeystore()
	if err != nil {
		return err
	}
	defer store.Close()

	authSvc := service.NewAuthService(store)
	cred, plaintext, err := authSvc.MintKey(context.Background(), name, model.ParseProjects(projects), role, notes)
	if err != nil {
		if errors.Is(err, keystore.ErrDuplicateName) {
			return fmt.Errorf("key name %q was already used and can never be reused", name)
		}
		return err
	}

	fmt.Println("API key created:")
	fmt.Println()
	fmt.Printf("  Name:     %s\n", cred.Name)
	fmt.Printf("  Secret:   %s\n", plaintext)
	fmt.Printf("  Role:     %s\n", cred.Role)
	if len(cred.Projects) > 0 {
		fmt.Printf("  Projects: %s\n", strings.Join(cred.Projects, ", "))
	}
	fmt.Println()
	fmt.Println("  Save this secret now - it cannot be retrieved again.")
	fmt.Println("  Present it as X-API-Key with X-API-Key-Name set to the name.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(jsonOutput bool) error {
	store, err := openKeystore()
	if err != nil {
		return err
	}
	defer store.Close()

	authSvc := service.NewAuthService(store)
	keys, err := authSvc.ListKeys(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys configured. Use 'anticlanker key create' to create one.")
		return nil
	}

	fmt.Printf("%-20s %-20s %-8s %-20s %-8s\n", "NAME", "HASH", "ROLE", "PROJECTS", "REVOKED")
	fmt.Printf("%-20s %-20s %-8s %-20s %-8s\n", "----", "----", "----", "--------", "-------")
	for _, k := range keys {
		revoked := "no"
		if k.Revoked {
			revoked = "yes"
		}
		fmt.Printf("%-20s %-20s %-8s %-20s %-8s\n",
			k.Name, k.HashPreview, k.Role, strings.Join(k.Projects, ","), revoked)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <name>",
		Short: "Revoke an API key by name",
		Long:  "Permanently invalidate an API key. Revocation cannot be undone and the name can never be reused.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0])
		},
	}

	return cmd
}

func runKeyRevoke(name string) error {
	store, err := openKeystore()
	if err != nil {
		return err
	}
	defer store.Close()

	authSvc := service.NewAuthService(store)
	if err := authSvc.RevokeKey(context.Background(), name); err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return fmt.Errorf("no active API key named %q", name)
		}
		return err
	}

	fmt.Printf("Revoked API key %q\n", name)
	return nil
}
