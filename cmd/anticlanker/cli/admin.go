package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/anticlanker/anticlanker/internal/keystore"
	"github.com/anticlanker/anticlanker/internal/model"
	"github.com/anticlanker/anticlanker/internal/secret"
	"github.com/anticlanker/anticlanker/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin credential",
		Long: `Provision and inspect the single admin credential that gates key lifecycle
and model management over HTTP. The credential can only be created here,
never through the API.`,
	}

	cmd.AddCommand(newAdminInitCmd())
	cmd.AddCommand(newAdminShowCmd())

	return cmd
}

// ---------- admin init ----------

func newAdminInitCmd() *cobra.Command {
	var (
		name       string
		withSecret bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Provision the admin credential",
		Long:  "Generate the admin secret and store its hash. Re-running replaces the previous admin credential.",
		Example: `  anticlanker admin init
  anticlanker admin init --name ops --secret  # supply your own secret instead`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminInit(name, withSecret)
		},
	}

	cmd.Flags().StringVar(&name, "name", "admin", "Display name for the admin credential")
	cmd.Flags().BoolVar(&withSecret, "secret", false, "Prompt for a secret instead of generating one")

	return cmd
}

func runAdminInit(name string, withSecret bool) error {
	store, err := openKeystore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if _, err := store.GetAdminCredential(ctx); err == nil {
		fmt.Println("An admin credential already exists. Continuing will replace it")
		fmt.Println("and invalidate the old secret.")
		fmt.Print("Type 'replace' to continue: ")
		var answer string
		fmt.Scanln(&answer) //nolint:errcheck
		if answer != "replace" {
			return fmt.Errorf("aborted")
		}
	}

	var plaintext string
	if withSecret {
		plaintext, err = promptSecret()
		if err != nil {
			return err
		}
	} else {
		plaintext, err = secret.Generate(service.SecretBytes)
		if err != nil {
			return err
		}
	}

	digest, err := secret.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("hash admin secret: %w", err)
	}

	admin := &model.AdminCredential{Name: name, SecretHash: digest}
	if err := store.SetAdminCredential(ctx, admin); err != nil {
		return err
	}

	fmt.Println("Admin credential provisioned:")
	fmt.Println()
	fmt.Printf("  Name:   %s\n", name)
	if !withSecret {
		fmt.Printf("  Secret: %s\n", plaintext)
		fmt.Println()
		fmt.Println("  Save this secret now - it cannot be retrieved again.")
		fmt.Println("  Present it as the X-API-Admin-Key header.")
	}
	return nil
}

// promptSecret reads a secret from the terminal without echo, twice.
func promptSecret() (string, error) {
	fmt.Print("Secret: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm secret: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	fmt.Println()

	if string(first) != string(confirm) {
		return "", fmt.Errorf("secrets do not match")
	}
	if len(first) < 16 {
		return "", fmt.Errorf("secret must be at least 16 characters")
	}
	return string(first), nil
}

// ---------- admin show ----------

func newAdminShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the admin credential metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminShow()
		},
	}
}

func runAdminShow() error {
	store, err := openKeystore()
	if err != nil {
		return err
	}
	defer store.Close()

	admin, err := store.GetAdminCredential(context.Background())
	if err == keystore.ErrNotFound {
		fmt.Println("No admin credential provisioned. Run 'anticlanker admin init'.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Name:    %s\n", admin.Name)
	fmt.Printf("Hash:    %s\n", service.HashPreview(admin.SecretHash))
	fmt.Printf("Created: %s\n", admin.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	return nil
}
