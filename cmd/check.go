package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sunbk201/mediagate/internal/config"
	"github.com/sunbk201/mediagate/internal/security"
)

var checkCmd = &cobra.Command{
	Use:   "check <vhost> <operation> <address>",
	Short: "Evaluate one admission attempt against the configured rules and exit",
	Args:  cobra.ExactArgs(3),
	RunE:  runCheck,
}

var checkConfigFile string

func init() {
	checkCmd.Flags().StringVarP(&checkConfigFile, "config", "c", "", "Config file path")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkConfigFile != "" {
		viper.SetConfigFile(checkConfigFile)
		if err := viper.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := config.BuildConfigFromViper()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	vhostName, operation, address := args[0], args[1], args[2]
	conn := security.ParseConnType(operation)

	v := cfg.Vhost(vhostName)
	if v == nil {
		fmt.Printf("permitted: no configuration for vhost %s\n", vhostName)
		return nil
	}

	sec := security.New(v.Security.Enabled)
	err = sec.Check(v.Security.RuleSet(), conn.Operation(), address)
	if err != nil {
		fmt.Printf("denied: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("permitted")
	return nil
}
