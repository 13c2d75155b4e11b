package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bcl/mac-ctrl/command"
	"github.com/bcl/mac-ctrl/endpoint"
	"github.com/bcl/mac-ctrl/modules"
	"github.com/bcl/mac-ctrl/modules/applesmc"
	"github.com/bcl/mac-ctrl/modules/generic"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFilePath, "config", defaultConfigFilePath, "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "hardware model (detected from DMI when empty)")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model-path", modules.DefaultModelPath, "file holding the hardware model name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

const appName = "mac-ctrl"

var (
	defaultConfigFilePath = path.Join("/etc", fmt.Sprintf("%s.d", appName), "config.yaml")

	configFilePath string
	modelName      string
	modelPath      string
	verbose        bool
	rootCmd        = &cobra.Command{
		Use:           appName,
		Short:         "Query and adjust fans, backlights and temperatures of the local machine",
		Version:       "1.0.0",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

type Config struct {
	Model  string `validate:"omitempty,max=64"`
	Module map[string]interface{}
}

func parseYAMLFile(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()
	config := Config{}
	decoder := yaml.NewDecoder(file)
	err = decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error decoding YAML file %q: %w", filePath, err)
	}
	return &config, nil
}

// parseConfigFile loads the configuration. The default file is optional, a
// file given explicitly is not.
func parseConfigFile(filePath string, explicit bool) (*Config, error) {
	config, err := parseYAMLFile(filePath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML file %q: %w", filePath, err)
	}

	validate := validator.New()
	err = validate.Struct(config)
	if err != nil {
		return nil, fmt.Errorf("error during configuration validation: %w", err)
	}

	return config, nil
}

func internalModules() map[string]modules.Module {
	return map[string]modules.Module{
		"MacBookPro11,1": applesmc.New(applesmc.MacBookPro11),
		"MacBookPro11,2": applesmc.New(applesmc.MacBookPro11),
		"MacBookPro11,3": applesmc.New(applesmc.MacBookPro11),
		"MacBookAir6,1":  applesmc.New(applesmc.MacBookAir6),
		"MacBookAir6,2":  applesmc.New(applesmc.MacBookAir6),
		"MacBookPro5,5":  applesmc.New(applesmc.MacBookPro5),
		"generic":        generic.New(),
	}
}

func moduleNames() []string {
	table := internalModules()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveModel picks the model from the flag, then the config, then DMI.
func resolveModel(config *Config) (string, error) {
	if modelName != "" {
		return modelName, nil
	}
	if config.Model != "" {
		return config.Model, nil
	}
	return modules.DetectModel(modelPath)
}

func createModule(config *Config, model string, logger zerolog.Logger) (modules.Module, error) {
	module, ok := internalModules()[model]
	if !ok {
		return nil, fmt.Errorf("can't find the %q model among the internal modules (available models: %s)", model, strings.Join(moduleNames(), ", "))
	}

	err := module.Init(config.Module, logger)
	if err != nil {
		return nil, fmt.Errorf("error during module initialization: %w", err)
	}

	return module, nil
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.
		New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

type app struct {
	module      modules.Module
	logger      zerolog.Logger
	interpreter *command.Interpreter
}

// setup loads the configuration and the module of the running machine.
func setup(cmd *cobra.Command) (*app, error) {
	base := newLogger()
	logger := base.With().Str("scope", "cli").Logger()

	config, err := parseConfigFile(configFilePath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	model, err := resolveModel(config)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("model", model).Msg("Using hardware model")

	module, err := createModule(config, model, base)
	if err != nil {
		return nil, err
	}
	return &app{
		module:      module,
		logger:      logger,
		interpreter: command.New(base.With().Str("scope", "command").Logger()),
	}, nil
}

func init() {
	rootCmd.AddCommand(stateCmd, modelsCmd)
}

var (
	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Print every reading of the machine as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			jsonString, err := json.Marshal(modules.ReadState(a.module))
			if err != nil {
				return fmt.Errorf("error during JSON conversion: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(jsonString))
			return nil
		},
	}
	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "List the supported hardware models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range moduleNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		var parseErr *command.ParseError
		if errors.As(err, &parseErr) {
			fmt.Fprintln(os.Stderr, "Accepted forms: N, N%, N+, N-, N%+, N%-")
		}
		os.Exit(1)
	}
}

// unsupported turns ErrUnsupported into a warning so that the command exits 0.
func unsupported(logger zerolog.Logger, kind endpoint.Kind, err error) error {
	if endpoint.IsUnsupported(err) {
		logger.Warn().Str("endpoint", string(kind)).Msg("Not supported on this hardware")
		return nil
	}
	return err
}
