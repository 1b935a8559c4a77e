package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"MiniCatalog/internal/auth"
	"MiniCatalog/internal/catalog"
)

var (
	listLimit int
	inputJSON string

	tokenUser string
	tokenPass string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the catalog, optionally only its first N records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := openStore().List(cmd.Context(), listLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), products)
	},
}

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		p, ok, err := openStore().Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("product %d: %w", id, catalog.ErrNotFound)
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var addCmd = &cobra.Command{
	Use:   "add --json '{...}'",
	Short: "Add a product; the id is assigned by the catalog",
	Example: `  catalogctl add --json '{"title":"Mouse","description":"Wireless","price":19.9,
    "thumbnail":"img/mouse.png","code":"MS-01","stock":30}'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := parseProduct(inputJSON)
		if err != nil {
			return err
		}
		p, err := openStore().Add(cmd.Context(), in)
		if err != nil {
			return explain(cmd, err)
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update ID --json '{...}'",
	Short: "Merge fields into an existing product; the id never changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		patch, err := parseProduct(inputJSON)
		if err != nil {
			return err
		}
		p, err := openStore().Update(cmd.Context(), id, patch)
		if err != nil {
			return explain(cmd, err)
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm", "delete"},
	Short:   "Delete one product",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return openStore().Remove(cmd.Context(), id)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every product",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore().Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All products deleted successfully.")
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange admin credentials for an access token (requires --server)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverURL == "" {
			return errors.New("--server is required")
		}
		tok, err := catalog.NewClient(serverURL).IssueToken(cmd.Context(), tokenUser, tokenPass)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password PASSWORD",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "print only the first N products (0 = all)")

	addCmd.Flags().StringVar(&inputJSON, "json", "", "product as a JSON object")
	_ = addCmd.MarkFlagRequired("json")
	updateCmd.Flags().StringVar(&inputJSON, "json", "", "fields to merge, as a JSON object")
	_ = updateCmd.MarkFlagRequired("json")

	tokenCmd.Flags().StringVar(&tokenUser, "username", "admin", "admin username")
	tokenCmd.Flags().StringVar(&tokenPass, "password", "", "admin password")
	_ = tokenCmd.MarkFlagRequired("password")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return id, nil
}

func parseProduct(raw string) (catalog.Product, error) {
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()

	var p catalog.Product
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("--json: %v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("--json: trailing content after the object")
	}
	if p == nil {
		return nil, errors.New("--json must be an object")
	}
	return p, nil
}

// explain prints each validation finding on its own line before returning.
func explain(cmd *cobra.Command, err error) error {
	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		for _, f := range ve.Findings {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f.Field, f.Problem)
		}
	}
	return err
}
