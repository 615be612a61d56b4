package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/ivy/config"
	"github.com/dyike/ivy/internal/events"
	"github.com/dyike/ivy/internal/logger"
	"github.com/dyike/ivy/internal/search"
)

const version = "0.1.0"

// runtime holds what the persistent flags resolve to.
type runtime struct {
	cfg        *config.Config
	configPath string
	manager    *config.Manager
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rt := &runtime{cfg: config.DefaultConfig()}

	rootCmd := &cobra.Command{
		Use:   "ivy",
		Short: "Swipe to discover stocks",
		Long: `ivy presents one stock at a time: like it to add it to your portfolio,
pass to see the next one. Recommendations are ranked by discovery score.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if path := rt.resolveConfigPath(); path != "" {
				if _, err := rt.openManager(path); err != nil {
					return err
				}
			}
			rt.cfg.Debug = rt.cfg.Debug || debug
			logger.Init(rt.cfg.Debug, os.Stderr)

			if err := rt.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return rt.cfg.EnsureDirectories()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				return NewInteractiveSession(ctx, app).Start()
			})
		},
	}

	rootCmd.AddCommand(newRecommendCmd(rt))
	rootCmd.AddCommand(newSwipeCmd(rt, "like", "Add a stock to your portfolio"))
	rootCmd.AddCommand(newSwipeCmd(rt, "dislike", "Pass on a stock"))
	rootCmd.AddCommand(newGenerateCmd(rt))
	rootCmd.AddCommand(newPortfolioCmd(rt))
	rootCmd.AddCommand(newSearchCmd(rt))
	rootCmd.AddCommand(newOnboardCmd(rt))
	rootCmd.AddCommand(newProfileCmd(rt))
	rootCmd.AddCommand(newAuthCmd(rt))
	rootCmd.AddCommand(newConfigCmd(rt))
	rootCmd.AddCommand(newConsumeCmd(rt))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "JSON config file (created from the environment if missing, default: the per-user file when it exists)")

	return rootCmd
}

// resolveConfigPath returns --config, else the per-user file if one exists.
// An empty result means settings come from the environment only.
func (rt *runtime) resolveConfigPath() string {
	if rt.configPath != "" {
		return rt.configPath
	}
	p, err := config.DefaultPath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// openManager loads path, seeding it from the current settings when it is
// missing, and makes its content the active config.
func (rt *runtime) openManager(path string) (*config.Manager, error) {
	m, err := config.NewManager(config.WithConfigPath(path), config.WithInitialConfig(rt.cfg))
	if err != nil {
		return nil, err
	}
	cfg := m.Get()
	cfg.Debug = cfg.Debug || rt.cfg.Debug
	rt.cfg = &cfg
	rt.manager = m
	return m, nil
}

// withApp opens the services for one command and closes them afterwards.
func withApp(cmd *cobra.Command, rt *runtime, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := NewApp(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func newRecommendCmd(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "List the current recommendations, best first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				if limit > 0 {
					app.Discovery.SetLimits(0, limit)
					if err := ignorePublish(app.Discovery.Refresh(ctx)); err != nil {
						return err
					}
				}
				DisplayRecommendations(app.Discovery.Recommendations())
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of recommendations (default from config)")
	return cmd
}

func newSwipeCmd(rt *runtime, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " SYMBOL",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				var err error
				if action == "like" {
					err = app.Discovery.Like(ctx, symbol)
				} else {
					err = app.Discovery.Dislike(ctx, symbol)
				}
				if err := ignorePublish(err); err != nil {
					return err
				}
				DisplaySuccess(fmt.Sprintf("%s %sd.", symbol, action))
				return nil
			})
		},
	}
}

func newGenerateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Add a batch of stocks not yet in the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				batch, err := app.Discovery.GenerateMore(ctx)
				if err := ignorePublish(err); err != nil {
					return err
				}
				if len(batch) == 0 {
					DisplayInfo("No more unique stocks available.")
					return nil
				}
				DisplaySuccess(fmt.Sprintf("Added %d new stocks.", len(batch)))
				DisplayRecommendations(batch)
				return nil
			})
		},
	}
}

func newPortfolioCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show liked stocks, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				liked, err := app.Discovery.Portfolio(ctx)
				if err != nil {
					return err
				}
				DisplayPortfolio(liked, time.Now())
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "remove SYMBOL",
		Short: "Remove a stock from the portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				if err := ignorePublish(app.Discovery.Unlike(ctx, symbol)); err != nil {
					return err
				}
				DisplaySuccess(symbol + " removed from portfolio.")
				return nil
			})
		},
	})
	return cmd
}

func newSearchCmd(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the discovery pool by symbol, company or sector",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				idx, err := app.SearchIndex(ctx)
				if err != nil {
					return err
				}
				defer idx.Close()

				hits, err := idx.Search(strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				DisplaySearchResults(hits)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	return cmd
}

func newOnboardCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Set up your investment profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				p, err := PromptForProfile(app.Profile.Profile())
				if err != nil {
					return err
				}
				if err := app.Profile.CompleteOnboarding(p); err != nil {
					return err
				}
				DisplayProfile(app.Profile.Profile(), true)
				return nil
			})
		},
	}
}

func newProfileCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Investment profile",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the investment profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				DisplayProfile(app.Profile.Profile(), app.Profile.HasCompletedOnboarding())
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore default preferences and clear onboarding",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				if err := app.Profile.Reset(); err != nil {
					return err
				}
				DisplaySuccess("Profile reset to defaults.")
				return nil
			})
		},
	})
	return cmd
}

func newAuthCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Account management",
	}

	// authed wraps commands that need a configured identity provider.
	authed := func(use, short string, fn func(ctx context.Context, app *App) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, rt, func(ctx context.Context, app *App) error {
					if !app.Auth.IsConfigured() {
						DisplaySetupRequired()
						return nil
					}
					return fn(ctx, app)
				})
			},
		}
	}

	cmd.AddCommand(authed("signup", "Create an account", func(ctx context.Context, app *App) error {
		form, err := PromptForSignUp()
		if err != nil {
			return err
		}
		if err := app.Auth.Register(ctx, form.Email, form.Password, form.DisplayName()); err != nil {
			return err
		}
		DisplaySuccess("Account created. Check your inbox to verify " + form.Email + ".")
		return nil
	}))
	cmd.AddCommand(authed("login", "Sign in", func(ctx context.Context, app *App) error {
		email, password, err := PromptForSignIn()
		if err != nil {
			return err
		}
		if err := app.Auth.Login(ctx, email, password); err != nil {
			return err
		}
		DisplaySuccess("Signed in as " + email)
		return nil
	}))
	cmd.AddCommand(authed("logout", "Sign out", func(ctx context.Context, app *App) error {
		if err := app.Auth.Logout(); err != nil {
			return err
		}
		DisplaySuccess("Signed out.")
		return nil
	}))
	cmd.AddCommand(authed("reset-password", "Send a password reset email", func(ctx context.Context, app *App) error {
		email, err := PromptForEmail()
		if err != nil {
			return err
		}
		if err := app.Auth.ResetPassword(ctx, email); err != nil {
			return err
		}
		DisplaySuccess("Password reset email sent to " + email)
		return nil
	}))
	cmd.AddCommand(authed("verify", "Resend the verification email", func(ctx context.Context, app *App) error {
		if err := app.Auth.SendEmailVerification(ctx); err != nil {
			return err
		}
		DisplaySuccess("Verification email sent.")
		return nil
	}))
	cmd.AddCommand(authed("rename", "Change your display name", func(ctx context.Context, app *App) error {
		current := ""
		if u := app.Auth.CurrentUser(); u != nil {
			current = u.DisplayName
		}
		name, err := PromptForDisplayName(current)
		if err != nil {
			return err
		}
		if err := app.Auth.UpdateDisplayName(ctx, name); err != nil {
			return err
		}
		DisplaySuccess("Display name updated.")
		return nil
	}))
	cmd.AddCommand(authed("delete", "Delete your account", func(ctx context.Context, app *App) error {
		ok, err := PromptForConfirmation("Delete your account permanently?")
		if err != nil || !ok {
			return err
		}
		if err := app.Auth.DeleteAccount(ctx); err != nil {
			return err
		}
		DisplaySuccess("Account deleted.")
		return nil
	}))
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, func(ctx context.Context, app *App) error {
				DisplayAccount(app.Auth.CurrentUser(), app.Auth.IsConfigured())
				return nil
			})
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ivy v%s\n", version)
		},
	}
}

func newConfigCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(rt)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(rt.cfg)
		},
	})
	cmd.AddCommand(newConfigSetCmd(rt))
	return cmd
}

// newConfigSetCmd writes settings to the config file. A running consume
// process watching the same file applies the discovery settings live.
func newConfigSetCmd(rt *runtime) *cobra.Command {
	var patch string
	cmd := &cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Change settings in the config file",
		Long: `Change settings in the config file named by --config, or in the
per-user config file (created on first use).

Keys: ` + strings.Join(config.Keys(), ", "),
		Example: `  ivy config set batch_size=8 recommend_limit=5
  ivy config set --json '{"jitter_min": 0.9, "jitter_max": 1.1}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setConfig(rt, args, patch); err != nil {
				return err
			}
			DisplaySuccess("Saved " + rt.manager.Path())
			showConfig(rt)
			return nil
		},
	}
	cmd.Flags().StringVar(&patch, "json", "", "JSON object merged onto the current settings")
	return cmd
}

// setConfig applies a JSON patch and then KEY=VALUE pairs through the
// config manager, opening the per-user file when no manager is active.
func setConfig(rt *runtime, pairs []string, patch string) error {
	if len(pairs) == 0 && strings.TrimSpace(patch) == "" {
		return errors.New("nothing to set: pass KEY=VALUE pairs or --json")
	}
	m := rt.manager
	if m == nil {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		if m, err = rt.openManager(path); err != nil {
			return err
		}
	}

	// The active config follows the file even when a later step fails.
	defer func() {
		cfg := m.Get()
		rt.cfg = &cfg
	}()

	if strings.TrimSpace(patch) != "" {
		if err := m.UpdateFromJSON([]byte(patch)); err != nil {
			return err
		}
	}
	if len(pairs) > 0 {
		if _, err := m.Set(pairs...); err != nil {
			return err
		}
	}
	log.Debug().Str("path", m.Path()).Strs("pairs", pairs).Msg("config updated")
	return nil
}

// newConsumeCmd applies swipe requests from Kafka until interrupted. When a
// config file is in use it is watched and discovery settings apply live.
func newConsumeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Apply swipe requests from the request topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rt.cfg.KafkaEnabled() {
				return errors.New("no Kafka brokers configured (set KAFKA_BROKERS)")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(cmd, rt, func(_ context.Context, app *App) error {
				if rt.manager != nil {
					err := rt.manager.Watch(ctx, app.ApplyConfig)
					if err != nil {
						return err
					}
				}

				consumer, err := events.NewConsumer(rt.cfg.KafkaBrokers, rt.cfg.KafkaConsumerGroup, rt.cfg.KafkaRequestTopic, app.Discovery)
				if err != nil {
					return err
				}
				defer consumer.Close()

				DisplayInfo(fmt.Sprintf("Consuming %s as %s. Press Ctrl+C to stop.", rt.cfg.KafkaRequestTopic, rt.cfg.KafkaConsumerGroup))
				if err := consumer.Start(ctx); err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				<-ctx.Done()
				log.Info().Msg("consumer stopping")
				return nil
			})
		},
	}
}

func showConfig(rt *runtime) {
	cfg := rt.cfg
	fmt.Println("📋 Current ivy Configuration:")
	fmt.Println("═══════════════════════════════════════")
	if rt.manager != nil {
		fmt.Printf("Config File:          %s\n", rt.manager.Path())
	}
	fmt.Printf("Data Directory:       %s\n", cfg.DataDir)
	fmt.Printf("Candidate Store:      %s\n", cfg.DBPath)
	fmt.Printf("Preferences Store:    %s\n", cfg.PrefsPath)
	fmt.Println()
	fmt.Printf("Batch Size:           %d\n", cfg.BatchSize)
	fmt.Printf("Recommend Limit:      %d\n", cfg.RecommendLimit)
	fmt.Printf("Price Jitter:         %.2f - %.2f\n", cfg.JitterMin, cfg.JitterMax)
	fmt.Printf("Debug Mode:           %t\n", cfg.Debug)
	fmt.Println()

	fmt.Println("🔌 Integrations:")
	fmt.Println("─────────────────────")
	if cfg.AuthConfigured() {
		fmt.Printf("Accounts:             ✅ Configured (%s)\n", cfg.AuthBaseURL)
	} else {
		fmt.Println("Accounts:             ❌ Not configured (demo mode)")
	}
	if cfg.KafkaEnabled() {
		fmt.Printf("Kafka:                ✅ %s\n", strings.Join(cfg.KafkaBrokers, ","))
		fmt.Printf("  Swipe Topic:        %s\n", cfg.KafkaSwipeTopic)
		fmt.Printf("  Ranking Topic:      %s\n", cfg.KafkaRecommendationTopic)
		fmt.Printf("  Request Topic:      %s\n", cfg.KafkaRequestTopic)
		fmt.Printf("  Consumer Group:     %s\n", cfg.KafkaConsumerGroup)
	} else {
		fmt.Println("Kafka:                ❌ Disabled (events are not published)")
	}
}

// validateConfig validates the configuration and reports optional integrations
func validateConfig(cfg *config.Config) error {
	fmt.Println("🔍 Validating ivy Configuration...")
	fmt.Println("═══════════════════════════════════════")

	fmt.Print("📁 Checking directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Println("❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Println("✅")

	fmt.Print("⚙️  Checking configuration values... ")
	if err := cfg.Validate(); err != nil {
		fmt.Println("❌")
		return err
	}
	fmt.Println("✅")

	fmt.Print("🔑 Checking integrations... ")
	var warnings []string
	if !cfg.AuthConfigured() {
		warnings = append(warnings, "Identity provider key not configured, accounts run in demo mode")
	}
	if !cfg.KafkaEnabled() {
		warnings = append(warnings, "No Kafka brokers configured, events are not published")
	}
	if len(warnings) > 0 {
		fmt.Println("⚠️")
		for _, warning := range warnings {
			fmt.Printf("  ⚠️  %s\n", warning)
		}
	} else {
		fmt.Println("✅")
	}

	fmt.Println()
	if len(warnings) == 0 {
		fmt.Println("✅ Configuration validation completed successfully!")
	} else {
		fmt.Printf("⚠️  Configuration validation completed with %d warnings.\n", len(warnings))
	}

	fmt.Println()
	fmt.Println("💡 Tips:")
	fmt.Println("  • Set IVY_AUTH_API_KEY to enable accounts")
	fmt.Println("  • Set KAFKA_BROKERS to publish swipe and recommendation events")
	fmt.Println("  • Run 'ivy' to start swiping")
	return nil
}
