package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/arcprint/internal/loader"
	"github.com/kiesman99/arcprint/internal/logging"
	"github.com/kiesman99/arcprint/internal/printer"
)

const version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arcprint",
	Short: "Print map pages from ArcGIS Server and WMS export endpoints",
	Long: `arcprint turns a print job (page geometry plus a list of map layers) into
map server export requests, merging compatible layers into a single request,
and composites the returned images onto one PNG page.

Examples:
  # Print a job file
  arcprint print job.yaml -o map.png

  # Show the export requests a job would make
  arcprint urls job.yaml

  # Start HTTP server
  arcprint serve --port 8080`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.arcprint.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-file", "", "log to a rotated file instead of stderr")

	// HTTP options shared by every command that talks to map servers
	rootCmd.PersistentFlags().String("user-agent", loader.DefaultUserAgent, "HTTP User-Agent header")
	rootCmd.PersistentFlags().Duration("fetch-timeout", loader.DefaultTimeout, "timeout of one map server request")
	rootCmd.PersistentFlags().StringToString("header", nil, "extra HTTP header sent to map servers (key=value)")
	rootCmd.PersistentFlags().Int("concurrency", loader.DefaultConcurrency, "map server requests in flight per page")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("fetch.user-agent", rootCmd.PersistentFlags().Lookup("user-agent"))
	viper.BindPFlag("fetch.timeout", rootCmd.PersistentFlags().Lookup("fetch-timeout"))
	viper.BindPFlag("fetch.headers", rootCmd.PersistentFlags().Lookup("header"))
	viper.BindPFlag("fetch.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))

	viper.SetDefault("log.max-size-mb", 50)
	viper.SetDefault("log.max-backups", 3)
	viper.SetDefault("log.max-age-days", 28)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".arcprint" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".arcprint")
	}

	viper.SetEnvPrefix("ARCPRINT")
	viper.AutomaticEnv() // read in environment variables that match

	configErr := viper.ReadInConfig()

	logging.Init(logging.Options{
		File:       viper.GetString("log.file"),
		MaxSizeMB:  viper.GetInt("log.max-size-mb"),
		MaxBackups: viper.GetInt("log.max-backups"),
		MaxAgeDays: viper.GetInt("log.max-age-days"),
		Level:      viper.GetString("log.level"),
	})

	if configErr == nil {
		logging.Info("using config file", "path", viper.ConfigFileUsed())
	}
}

// newPrinter builds a printer from the fetch settings.
func newPrinter() *printer.Printer {
	return printer.New(loader.New(loader.Options{
		UserAgent:   viper.GetString("fetch.user-agent"),
		Timeout:     viper.GetDuration("fetch.timeout"),
		Headers:     viper.GetStringMapString("fetch.headers"),
		Concurrency: viper.GetInt("fetch.concurrency"),
	}))
}

func loadJob(path string) (*printer.Job, error) {
	job, err := printer.LoadJob(path)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	return job, nil
}

func fetchDeadline() time.Duration {
	return viper.GetDuration("fetch.timeout") * 4
}
