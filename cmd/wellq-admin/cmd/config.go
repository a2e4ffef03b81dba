package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config types

type Config struct {
	APIVersion     string         `yaml:"apiVersion"`
	Kind           string         `yaml:"kind"`
	CurrentContext string         `yaml:"current-context"`
	Contexts       []NamedContext `yaml:"contexts"`
}

type NamedContext struct {
	Name    string        `yaml:"name"`
	Context ContextDetail `yaml:"context"`
}

type ContextDetail struct {
	APIURL string `yaml:"api-url"`
}

// GetContext returns the named context or nil.
func (c *Config) GetContext(name string) *NamedContext {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			return &c.Contexts[i]
		}
	}
	return nil
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wellq")
}

func configPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func loadConfig() (*Config, error) {
	data, err := os.ReadFile(configPath())
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func saveConfig(cfg *Config) error {
	if err := os.MkdirAll(configDir(), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0o600)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configSetContextCmd = &cobra.Command{
	Use:   "set-context NAME",
	Short: "Create or update a named context",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetContext,
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context NAME",
	Short: "Switch the current context",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUseContext,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the CLI configuration",
	RunE:  runConfigView,
}

func init() {
	configSetContextCmd.Flags().String("api-url", "", "API base URL")
	_ = configSetContextCmd.MarkFlagRequired("api-url")

	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configViewCmd)
}

func runConfigSetContext(cmd *cobra.Command, args []string) error {
	name := args[0]
	apiURL, _ := cmd.Flags().GetString("api-url")

	cfg, err := loadConfig()
	if err != nil {
		cfg = &Config{APIVersion: "v1", Kind: "Config"}
	}

	if existing := cfg.GetContext(name); existing != nil {
		existing.Context.APIURL = apiURL
	} else {
		cfg.Contexts = append(cfg.Contexts, NamedContext{
			Name:    name,
			Context: ContextDetail{APIURL: apiURL},
		})
	}
	if cfg.CurrentContext == "" {
		cfg.CurrentContext = name
	}

	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("Context %q saved.\n", name)
	return nil
}

func runConfigUseContext(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("no configuration found, run 'wellq-admin config set-context' first")
	}
	if cfg.GetContext(name) == nil {
		return fmt.Errorf("context %q not found", name)
	}

	cfg.CurrentContext = name
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("Switched to context %q.\n", name)
	return nil
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("no configuration found")
	}
	printYAML(cfg)
	return nil
}
