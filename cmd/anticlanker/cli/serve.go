package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anticlanker/anticlanker/internal/classifier"
	"github.com/anticlanker/anticlanker/internal/groupme"
	"github.com/anticlanker/anticlanker/internal/moderation"
	"github.com/anticlanker/anticlanker/internal/secret"
	"github.com/anticlanker/anticlanker/internal/server"
	"github.com/anticlanker/anticlanker/internal/server/middleware"
	"github.com/anticlanker/anticlanker/internal/service"
)

const banner = `
              _   _      _             _
  __ _ _ __ | |_(_) ___| | __ _ _ __ | | _____ _ __
 / _' | '_ \| __| |/ __| |/ _' | '_ \| |/ / _ \ '__|
| (_| | | | | |_| | (__| | (_| | | | |   <  __/ |
 \__,_|_| |_|\__|_|\___|_|\__,_|_| |_|_|\_\___|_|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the moderation server",
		Long:  "Start the HTTP server that receives the GroupMe callback, exposes the classifier API, and serves the admin console.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if viper.IsSet("server.port") {
		cfg.Server.Port = viper.GetInt("server.port")
	}
	if viper.IsSet("server.host") {
		cfg.Server.Host = viper.GetString("server.host")
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	ctx := context.Background()

	// 1. Open the credential store and verify every stored digest parses.
	store, err := openKeystore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.CheckIntegrity(ctx, secret.CheckDigest); err != nil {
		return fmt.Errorf("credential store integrity: %w", err)
	}
	logger.Info("credential store opened", "path", resolveDataDir())

	authSvc := service.NewAuthService(store)

	// 2. Admin endpoints stay locked until the operator bootstraps a
	// credential. The server still starts so the webhook keeps moderating.
	if _, err := store.GetAdminCredential(ctx); err != nil {
		logger.Warn("no admin credential provisioned - run: anticlanker admin init")
	}

	// 3. Classifier against the inference host, with few-shot examples.
	examples, err := classifier.LoadExamples(cfg.Model.TrainingFile)
	if err != nil {
		return fmt.Errorf("load training examples: %w", err)
	}
	mdlClient := classifier.NewClient(cfg.Model.Host, cfg.Model.Name)
	cls := classifier.New(mdlClient, examples)
	logger.Info("classifier initialized", "host", cfg.Model.Host, "model", cfg.Model.Name, "examples", len(examples))

	// 4. GroupMe client and the strike-based moderator.
	if cfg.GroupMe.AccessToken == "" || cfg.GroupMe.BotID == "" {
		logger.Warn("groupme credentials missing - webhook will classify but cannot delete or remove")
	}
	group := groupme.NewClient(cfg.GroupMe.BaseURL, cfg.GroupMe.AccessToken, cfg.GroupMe.BotID, cfg.GroupMe.GroupID)
	mod := moderation.New(cls, group, store, logger, cfg.GroupMe.BotID, cfg.Moderation.WarnStrikes, cfg.Moderation.Ignored)

	// 5. Build and start the HTTP server.
	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeoutDuration(),
		CORSOrigins:     cfg.Server.CORSOrigins,
		RatePerMinute:   cfg.Server.RatePerMinute,
		Auth:            middleware.Options{AllowQueryParams: cfg.Auth.AllowQueryParams},
		Version:         appVersion,
	}
	srv := server.New(srvCfg, authSvc, cls, mod, logger)

	fmt.Printf("→ anticlanker %s\n", appVersion)
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Webhook:    http://%s:%d/kill-da-clanker\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Admin UI:   http://%s:%d/admin_ui\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
