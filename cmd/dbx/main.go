package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"dbx-go/internal/app"
	"dbx-go/internal/config"
	"dbx-go/internal/dbx"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// envOr returns the environment variable value, or fallback when unset.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// loadConfig reads the config file, falling back to built-in defaults when no
// config file has been initialized yet.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.NewConfig(defaults["home_dir"], defaults["base_dir"]), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp loads the config and creates a DBXApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Export", "Verify").
func newApp(cmd *cobra.Command, operation string) (*app.DBXApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// A --location flag overrides the configured store with a local directory.
	if cmd.Flags().Lookup("location") != nil {
		if location, _ := cmd.Flags().GetString("location"); location != "" {
			cfg.Store = config.StoreConfig{Type: "filesystem", Location: location}
		}
	}

	a, err := app.NewDBXApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// target reads the common target flags, falling back to DBX_* env vars.
func target(cmd *cobra.Command) (environment, hostname, database, passphrase string) {
	environment, _ = cmd.Flags().GetString("environment")
	hostname, _ = cmd.Flags().GetString("host")
	database, _ = cmd.Flags().GetString("database")
	passphrase, _ = cmd.Flags().GetString("password")
	return
}

// addTargetFlags registers the flags shared by every command that talks to a
// database.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("environment", "E", envOr("DBX_ENVIRONMENT", dbx.DefaultEnvironment), "Deployment environment")
	cmd.Flags().StringP("host", "H", envOr("DBX_HOSTNAME", "localhost"), "Database host name")
	cmd.Flags().StringP("database", "D", envOr("DBX_DATABASE", "sample"), "Database name")
	cmd.Flags().StringP("password", "P", "", "Secret key passphrase (prompted when needed)")
}

func addSchemaFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("schema", "S", envOr("DBX_SCHEMA", "public"), "Schema name")
}

var rootCmd = &cobra.Command{
	Use:   "dbx",
	Short: "Encrypted database credentials and CSV table transfer",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["home_dir"], defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Secret Key:   %s\n", cfg.SecretKeyPath)
		fmt.Printf("Settings Dir: %s\n", cfg.SettingsDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("History Dir:  %s\n", cfg.History.DataDir)
		fmt.Printf("Store Type:   %s\n", cfg.Store.Type)
		switch cfg.Store.Type {
		case "filesystem":
			fmt.Printf("Store Path:   %s\n", cfg.Store.Location)
		case "s3":
			fmt.Printf("S3 Bucket:    %s\n", cfg.Store.S3Bucket)
		}
		return nil
	},
}

// credentials command
var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"creds"},
	Short:   "Manage encrypted database credentials",
}

var credentialsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Test the stored connection settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Verify")
		if err != nil {
			return err
		}
		defer a.Close()

		environment, hostname, database, passphrase := target(cmd)
		if err := a.VerifyCredentials(cmd.Context(), environment, hostname, database, passphrase); err != nil {
			return err
		}
		fmt.Printf("Connection to %s@%s (%s) verified\n", database, hostname, environment)
		return nil
	},
}

var credentialsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Enter and save connection settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ResetCredentials")
		if err != nil {
			return err
		}
		defer a.Close()

		environment, hostname, database, passphrase := target(cmd)
		s, err := a.ResetCredentials(cmd.Context(), environment, hostname, database, passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Saved settings for %s@%s (%s)\n", s.Database, s.Hostname, s.Environment)
		return nil
	},
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored connection settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		showPassword, _ := cmd.Flags().GetBool("show")

		a, err := newApp(cmd, "ShowCredentials")
		if err != nil {
			return err
		}
		defer a.Close()

		environment, hostname, database, passphrase := target(cmd)
		s, err := a.ShowCredentials(environment, hostname, database, passphrase)
		if err != nil {
			return err
		}

		password := "********"
		if showPassword {
			password = s.Password
		}
		fmt.Printf("Environment: %s\n", s.Environment)
		fmt.Printf("Hostname:    %s\n", s.Hostname)
		fmt.Printf("Port:        %s\n", s.Port)
		fmt.Printf("Database:    %s\n", s.Database)
		fmt.Printf("User:        %s\n", s.User)
		fmt.Printf("Password:    %s\n", password)
		fmt.Printf("SSL Mode:    %s\n", s.SSLMode)
		if s.SSLRootCert != "" {
			fmt.Printf("SSL Cert:    %s\n", s.SSLRootCert)
		}
		return nil
	},
}

var credentialsLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the secret key with a passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "LockKey")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, _ := cmd.Flags().GetString("password")
		err = a.LockKey(passphrase)
		if errors.Is(err, dbx.ErrKeyAlreadyLocked) {
			fmt.Println("Secret key is already locked.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println("Secret key locked.")
		return nil
	},
}

var credentialsUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the secret key",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "UnlockKey")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, _ := cmd.Flags().GetString("password")
		err = a.UnlockKey(passphrase)
		if errors.Is(err, dbx.ErrKeyAlreadyUnlocked) {
			fmt.Println("Secret key is already unlocked.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println("Secret key unlocked.")
		return nil
	},
}

// tables command
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables in the target schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, _ := cmd.Flags().GetString("schema")
		views, _ := cmd.Flags().GetBool("views")

		a, err := newApp(cmd, "Tables")
		if err != nil {
			return err
		}
		defer a.Close()

		environment, hostname, database, passphrase := target(cmd)
		tables, err := a.Tables(cmd.Context(), environment, hostname, database, schema, views, passphrase)
		if err != nil {
			return err
		}

		if len(tables) == 0 {
			fmt.Println("No tables found.")
			return nil
		}
		for _, t := range tables {
			fmt.Println(t)
		}
		return nil
	},
}

// transferOptions builds TransferOptions from a transfer command's flags.
func transferOptions(cmd *cobra.Command) dbx.TransferOptions {
	environment, hostname, database, _ := target(cmd)
	schema, _ := cmd.Flags().GetString("schema")
	table, _ := cmd.Flags().GetString("table")
	all, _ := cmd.Flags().GetBool("all")
	headers, _ := cmd.Flags().GetBool("headers")
	if noHeaders, _ := cmd.Flags().GetBool("no-headers"); noHeaders {
		headers = false
	}

	return dbx.TransferOptions{
		Environment: environment,
		Hostname:    hostname,
		Database:    database,
		Schema:      schema,
		Table:       table,
		AllTables:   all,
		Headers:     headers,
	}
}

func addTransferFlags(cmd *cobra.Command) {
	addTargetFlags(cmd)
	addSchemaFlag(cmd)
	cmd.Flags().StringP("table", "T", "", "Single table to transfer")
	cmd.Flags().BoolP("all", "A", false, "Transfer all tables in the schema")
	cmd.Flags().Bool("headers", true, "Include a CSV header row")
	cmd.Flags().Bool("no-headers", false, "Omit the CSV header row")
	cmd.Flags().StringP("location", "L", "", "Local directory overriding the configured store")
	cmd.MarkFlagsMutuallyExclusive("table", "all")
	cmd.MarkFlagsMutuallyExclusive("headers", "no-headers")
}

func printTransferResults(verb string, results []dbx.TableCount) {
	total := 0
	for _, r := range results {
		fmt.Printf("%-30s %8d rows\n", r.Table, r.Rows)
		total += r.Rows
	}
	fmt.Printf("%s %d table(s), %d row(s)\n", verb, len(results), total)
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tables to the CSV store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Export")
		if err != nil {
			return err
		}
		defer a.Close()

		_, _, _, passphrase := target(cmd)
		results, err := a.Export(cmd.Context(), transferOptions(cmd), passphrase)
		if err != nil {
			return err
		}
		printTransferResults("Exported", results)
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import tables from the CSV store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Import")
		if err != nil {
			return err
		}
		defer a.Close()

		_, _, _, passphrase := target(cmd)
		results, err := a.Import(cmd.Context(), transferOptions(cmd), passphrase)
		if err != nil {
			return err
		}
		printTransferResults("Imported", results)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded import/export runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if !r.FinishedAt.IsZero() {
				duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-8s  %s  %-8s  %6d rows  %-8s  %s\n",
				r.ID[:8],
				r.Operation,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				r.RowCount,
				duration,
				r.Parameters,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// credentials subcommands
	credentialsCmd.AddCommand(credentialsVerifyCmd)
	addTargetFlags(credentialsVerifyCmd)
	credentialsCmd.AddCommand(credentialsResetCmd)
	addTargetFlags(credentialsResetCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
	addTargetFlags(credentialsShowCmd)
	credentialsShowCmd.Flags().BoolP("show", "S", false, "Print the password in cleartext")
	credentialsCmd.AddCommand(credentialsLockCmd)
	credentialsLockCmd.Flags().StringP("password", "P", "", "Secret key passphrase (prompted when omitted)")
	credentialsCmd.AddCommand(credentialsUnlockCmd)
	credentialsUnlockCmd.Flags().StringP("password", "P", "", "Secret key passphrase (prompted when omitted)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(tablesCmd)
	addTargetFlags(tablesCmd)
	addSchemaFlag(tablesCmd)
	tablesCmd.Flags().Bool("views", false, "Include views")
	rootCmd.AddCommand(exportCmd)
	addTransferFlags(exportCmd)
	rootCmd.AddCommand(importCmd)
	addTransferFlags(importCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}
