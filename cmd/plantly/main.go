package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"plantly/internal/app"
	"plantly/internal/config"
	"plantly/internal/model"
	"plantly/internal/plantly"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file from the default location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a PlantlyApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddPlant", "WaterPlant").
func newApp(operation string, args []string) (*app.PlantlyApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewPlantlyApp(cfg, operation, strings.Join(args, " "), app.Options{
		Passphrase: app.PromptPassphrase(os.Stderr),
		Console:    os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// changeErr turns a persistence failure into a warning: the change was
// applied, it just may not survive a restart.
func changeErr(err error) error {
	var pe *plantly.PersistenceError
	if errors.As(err, &pe) {
		fmt.Fprintf(os.Stderr, "warning: change kept in memory only: %v\n", pe.Cause)
		return nil
	}
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// printPlant prints v with its timestamps in the configured timezone.
func printPlant(v model.PlantView) {
	fmt.Printf("ID:        %s\n", v.ID)
	fmt.Printf("Name:      %s\n", v.Name)
	fmt.Printf("Every:     %d day(s)\n", v.WateringFrequencyDays)
	fmt.Printf("Watered:   %s\n", v.LastWateredAt.Format("2006-01-02 15:04"))
	fmt.Printf("Due:       %s (%s)\n", v.DueAt.Format("2006-01-02 15:04"), describeDue(v.DaysUntilDue))
	fmt.Printf("Status:    %s\n", v.Status)
	if v.ImageURI != "" {
		fmt.Printf("Image:     %s\n", v.ImageURI)
	}
}

func describeDue(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days > 1:
		return fmt.Sprintf("in %d days", days)
	case days == -1:
		return "1 day late"
	default:
		return fmt.Sprintf("%d days late", -days)
	}
}

var rootCmd = &cobra.Command{
	Use:          "plantly",
	Short:        "Keep track of when your plants need water",
	SilenceUsage: true,
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
		timezone, _ := cmd.Flags().GetString("timezone")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if timezone != "" {
			cfg.Timezone = timezone
		}
		if _, err := cfg.Location(); err != nil {
			return err
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Timezone: %s\n", cfg.Timezone)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Timezone:   %s\n", cfg.Timezone)
		fmt.Printf("Storage:    %s\n", cfg.Storage.Type)
		switch cfg.Storage.Type {
		case "filesystem":
			fmt.Printf("  Root:     %s\n", cfg.Storage.FSVaultRoot)
		case "s3":
			fmt.Printf("  Bucket:   %s\n", cfg.Storage.S3Bucket)
			fmt.Printf("  Prefix:   %s\n", cfg.Storage.S3Prefix)
		case "sqlite":
			fmt.Printf("  Data Dir: %s\n", cfg.Storage.DataDir)
		}
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Images:     %s\n", cfg.Images.Dir)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage snapshot storage",
}

var configVaultInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Verify snapshot storage is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := app.ValidateStorage(cfg); err != nil {
			return fmt.Errorf("storage check failed: %w", err)
		}
		fmt.Printf("Storage %q (%s) is ready\n", cfg.Storage.Name, cfg.Storage.Type)
		return nil
	},
}

var configEncryptionCmd = &cobra.Command{
	Use:   "encryption",
	Short: "Manage snapshot encryption",
}

var configEncryptionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair and encrypt the current snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase, err := app.PromptNewPassphrase(os.Stderr)
		if err != nil {
			return err
		}
		if err := app.InitEncryption(cfg, passphrase); err != nil {
			return err
		}
		fmt.Printf("Keys written to %s and %s\n", cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)

		a, err := app.NewPlantlyApp(cfg, "InitEncryption", "", app.Options{
			Passphrase: func() (string, error) { return passphrase, nil },
			Console:    os.Stderr,
		})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		if err := a.Reseal(); err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
		fmt.Println("Snapshot encrypted")
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a plant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		every, _ := cmd.Flags().GetString("every")
		image, _ := cmd.Flags().GetString("image")

		a, err := newApp("AddPlant", args)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.AddPlant(args[0], every, image)
		if err := changeErr(err); err != nil {
			return fmt.Errorf("adding plant: %w", err)
		}

		fmt.Printf("Added %s (%s), water every %d day(s)\n", p.Name, shortID(p.ID), p.WateringFrequencyDays)
		return nil
	},
}

// water command
var waterCmd = &cobra.Command{
	Use:   "water ID",
	Short: "Record that a plant was watered now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("WaterPlant", args)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.WaterPlant(args[0])
		if err := changeErr(err); err != nil {
			return fmt.Errorf("watering plant: %w", err)
		}

		fmt.Printf("Watered %s\n", p.Name)
		return nil
	},
}

// rm command
var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a plant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemovePlant", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := changeErr(a.RemovePlant(args[0])); err != nil {
			return fmt.Errorf("removing plant: %w", err)
		}

		fmt.Println("Removed")
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a plant's watering schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowPlant", args)
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.ShowPlant(args[0])
		if err != nil {
			return err
		}
		printPlant(v)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List plants, most urgent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListPlants", args)
		if err != nil {
			return err
		}
		defer a.Close()

		views := a.ListPlants()
		if len(views) == 0 {
			fmt.Println("No plants yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tDUE\tDAYS")
		for _, v := range views {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
				shortID(v.ID),
				v.Name,
				v.Status,
				v.DueAt.Format("2006-01-02"),
				v.DaysUntilDue,
			)
		}
		return w.Flush()
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("timezone", "", "IANA timezone used for watering days (default: system zone)")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultInitCmd)
	configCmd.AddCommand(configEncryptionCmd)
	configEncryptionCmd.AddCommand(configEncryptionInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringP("every", "e", "", "Watering frequency in days")
	addCmd.Flags().StringP("image", "i", "", "Path to a photo of the plant")
	_ = addCmd.MarkFlagRequired("every")
	rootCmd.AddCommand(waterCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
}
