package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"RoutineBuilder/internal/app"
	"RoutineBuilder/internal/catalog"
	"RoutineBuilder/internal/chatbot"
	"RoutineBuilder/internal/config"
	"RoutineBuilder/internal/server"
)

// flag name -> config key
var flagKeys = map[string]string{
	"config":        "config",
	"worker-url":    "worker_url",
	"products-path": "products_path",
	"db-path":       "db_path",
	"max-tokens":    "max_tokens",
	"session-id":    "session_id",
	"listen-addr":   "listen_addr",
	"log-dir":       "log_dir",
	"debug":         "debug",
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "routinebuilder",
		Short:         "Browse beauty products and build a personalized routine",
		Long:          "routinebuilder browses a product catalog, keeps a persistent selection and asks a remote advisor to turn it into a routine.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default is ./.routinebuilder.yaml or $HOME/.routinebuilder.yaml)")
	flags.String("worker-url", config.DefaultWorkerURL, "routine worker endpoint")
	flags.String("products-path", config.DefaultProductsPath, "product catalog file (.json, .yaml or .xlsx)")
	flags.String("db-path", config.DefaultDBPath, "SQLite database for the selection and sessions")
	flags.Int("max-tokens", config.DefaultMaxTokens, "max_tokens hint sent to the worker")
	flags.String("session-id", "", "load existing session by ID")
	flags.String("listen-addr", config.DefaultListenAddr, "HTTP listen address for serve")
	flags.String("log-dir", config.DefaultLogDir, "directory for logs, traces and metrics")
	flags.Bool("debug", false, "enable debug logging")

	for name, key := range flagKeys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "chat",
			Short: "Start the interactive routine builder",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChat(cmd, v)
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the catalog, selection and advisor over HTTP",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd, v)
			},
		},
		newProductsCmd(v),
	)

	return root
}

func runChat(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	bot := chatbot.New(a.Catalog, a.Selection, a.Advisor, a.Store, a.Logger, cmd.OutOrStdout())
	return bot.Run(cmd.Context(), cmd.InOrStdin())
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", cfg.ListenAddr)
	return server.New(a.Catalog, a.Selection, a.Advisor, a.Logger).Run(cmd.Context(), cfg.ListenAddr)
}

func newProductsCmd(v *viper.Viper) *cobra.Command {
	var criteria catalog.Criteria
	var images bool

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		Example: `  routinebuilder products
  routinebuilder products --category skincare --search serum`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			products, err := catalog.Load(cfg.ProductsPath)
			if err != nil {
				return err
			}
			if !criteria.IsEmpty() {
				products = catalog.Filter(products, criteria)
			}
			if len(products) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No products found.")
				return nil
			}
			return chatbot.WriteProducts(cmd.OutOrStdout(), products, nil, images)
		},
	}
	cmd.Flags().StringVar(&criteria.Category, "category", "", "only show this category")
	cmd.Flags().StringVar(&criteria.Search, "search", "", "filter by name, brand, category or description")
	cmd.Flags().BoolVar(&images, "images", false, "include the image URL column")
	return cmd
}
