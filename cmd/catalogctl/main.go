package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/pkg/kit"
)

var (
	filePath  string
	serverURL string
	token     string
	logLevel  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Manage a product catalog file or a running catalog service",
	Long: `catalogctl runs every catalog operation, including the ones the HTTP
service does not expose by default.

Without --server it edits the catalog file directly. With --server it talks
to a running service; writes then need --token (see "catalogctl token").`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = kit.NewLogger("catalogctl", logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&filePath, "file", envOr("CATALOG_FILE", "products.json"), "catalog file to operate on")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", os.Getenv("CATALOG_SERVER"), "base URL of a catalog service (overrides --file)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("CATALOG_TOKEN"), "admin bearer token for remote writes")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(listCmd, getCmd, addCmd, updateCmd, removeCmd, clearCmd, tokenCmd, hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore() catalog.Store {
	if serverURL != "" {
		c := catalog.NewClient(serverURL)
		c.Token = token
		return c
	}
	return catalog.NewFileStore(filePath, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
