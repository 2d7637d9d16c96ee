package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cliConfig struct {
	modelsFile string
	driver     string
	verbose    bool

	model      string
	unitId     uint8
	counterId  int
	tcpAddress string
	rtuPort    string
	baudRate   uint
	preferred  string
	outputJSON bool
}

var config cliConfig

var rootCmd = &cobra.Command{
	Use:          "meterctl",
	Short:        "Inspect energy meter models and read meters over Modbus",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if config.modelsFile == "" {
			return nil
		}
		_, err := energy_counters.LoadModelsYAML(config.modelsFile)
		return err
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the known meter models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		renderModels(cmd.OutOrStdout(), energy_counters.Models())
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Collect one reading from a meter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkConfig(config); err != nil {
			return err
		}
		record, err := readOnce(config)
		if err != nil {
			return err
		}
		return renderRecord(cmd.OutOrStdout(), record, config.outputJSON)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versioninfo.Short())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&config.modelsFile, "models-file", "", "YAML file with extra register maps")
	rootCmd.PersistentFlags().StringVar(&config.driver, "driver", "simonvetter", "modbus driver (simonvetter or goburrow)")
	rootCmd.PersistentFlags().BoolVarP(&config.verbose, "verbose", "v", false, "log every register read")

	readCmd.Flags().StringVarP(&config.model, "model", "m", "", "meter model")
	readCmd.Flags().Uint8VarP(&config.unitId, "unit", "u", 1, "modbus unit id")
	readCmd.Flags().IntVar(&config.counterId, "counter", 1, "counter id written in the record")
	readCmd.Flags().StringVar(&config.tcpAddress, "tcp", "", "host[:port] of a Modbus TCP gateway")
	readCmd.Flags().StringVar(&config.rtuPort, "rtu", "", "serial device for Modbus RTU")
	readCmd.Flags().UintVar(&config.baudRate, "baud", 9600, "RTU baud rate")
	readCmd.Flags().StringVar(&config.preferred, "preferred", "", "transport tried first (tcp or rtu)")
	readCmd.Flags().BoolVar(&config.outputJSON, "json", false, "print the record as JSON")
	readCmd.MarkFlagRequired("model")

	rootCmd.AddCommand(modelsCmd, readCmd, versionCmd)
}

func checkConfig(config cliConfig) error {
	if config.tcpAddress == "" && config.rtuPort == "" {
		return errors.New("one of --tcp or --rtu is required")
	}
	if _, err := energy_counters.LookupModel(config.model); err != nil {
		return err
	}
	switch strings.ToLower(config.preferred) {
	case "", "tcp", "rtu":
	default:
		return fmt.Errorf("unknown preferred transport '%s'", config.preferred)
	}
	return nil
}

func connectionConfig(config cliConfig) (energy_counters.ConnectionConfiguration, error) {
	conn := energy_counters.ConnectionConfiguration{
		Preferred: energy_counters.Protocol(strings.ToLower(config.preferred)),
	}
	if config.tcpAddress != "" {
		host, port, found := strings.Cut(config.tcpAddress, ":")
		tcp := energy_counters.NewTCPConfiguration(host)
		if found {
			if _, err := fmt.Sscanf(port, "%d", &tcp.Port); err != nil {
				return conn, fmt.Errorf("invalid tcp port '%s'", port)
			}
		}
		conn.TCP = &tcp
	}
	if config.rtuPort != "" {
		rtu := energy_counters.NewRTUConfiguration(config.rtuPort, config.baudRate)
		conn.RTU = &rtu
	}
	return conn, conn.Validate()
}

func readOnce(config cliConfig) (*energy_counters.OutputRecord, error) {
	transport, err := energy_counters.TransportForDriver(config.driver)
	if err != nil {
		return nil, err
	}
	conn, err := connectionConfig(config)
	if err != nil {
		return nil, err
	}
	logger := zap.NewNop()
	if config.verbose {
		logger = zap.Must(zap.NewDevelopment())
	}
	defer logger.Sync()

	counter := energy_counters.CounterConfiguration{
		CounterId: config.counterId,
		UnitId:    config.unitId,
	}
	collector, err := energy_counters.CreateCollectorForModel(config.model, counter, conn, transport, logger, nil)
	if err != nil {
		return nil, err
	}
	if err := collector.Open(); err != nil {
		return nil, err
	}
	defer collector.Disconnect()
	return collector.Collect()
}
