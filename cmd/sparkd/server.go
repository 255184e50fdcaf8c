package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sparkpanel/sparkd/internal/adapters/rcon"
	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/log"
)

// Server commands act on the local engine directly, without a running daemon.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage a single game server",
}

var serverCreateCmd = &cobra.Command{
	Use:   "create -f FILE",
	Short: "Create and start a server from a YAML definition",
	Long: `Create and start a server from a YAML definition.

Example definition:

  id: survival
  image: itzg/minecraft-server:latest
  version: "1.20.4"
  type: PAPER
  port: 25565
  memoryLimitMb: 4096
  rconEnabled: true
  rconPort: 25575
  rconPassword: changeme`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read definition: %w", err)
		}
		var opts domain.CreateServerOptions
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return fmt.Errorf("failed to parse definition: %w", err)
		}

		c, err := coreFor(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		handle, err := c.runtime.CreateOrStart(cmd.Context(), opts)
		if err != nil {
			return err
		}
		switch {
		case handle.Created:
			fmt.Printf("✓ Server %s created (%s)\n", opts.ID, shortID(handle.ID))
		case handle.Started:
			fmt.Printf("✓ Server %s started (%s)\n", opts.ID, shortID(handle.ID))
		default:
			fmt.Printf("Server %s already running (%s)\n", opts.ID, shortID(handle.ID))
		}
		return nil
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop SERVER_ID",
	Short: "Stop a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := coreFor(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.runtime.Stop(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Server %s stopped\n", args[0])
		return nil
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:     "remove SERVER_ID",
	Aliases: []string{"rm"},
	Short:   "Stop and remove a server's container (data is kept)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := coreFor(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.runtime.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Server %s removed\n", args[0])
		return nil
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status SERVER_ID",
	Short: "Show a server's container state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := coreFor(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		status, err := c.runtime.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if status == nil {
			fmt.Printf("Server %s has no container\n", args[0])
			return nil
		}
		fmt.Printf("Server:    %s\n", status.ServerID)
		fmt.Printf("Container: %s (%s)\n", status.Name, shortID(status.InstanceID))
		fmt.Printf("Image:     %s\n", status.Image)
		fmt.Printf("State:     %s\n", status.State)
		if status.Running {
			fmt.Printf("Uptime:    %s\n", status.Uptime.Truncate(time.Second))
		}
		return nil
	},
}

var serverStatsCmd = &cobra.Command{
	Use:   "stats SERVER_ID",
	Short: "Print one resource sample as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := coreFor(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		sample, err := c.runtime.GetStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if sample == nil {
			return fmt.Errorf("server %s is not running", args[0])
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sample)
	},
}

var serverLogsCmd = &cobra.Command{
	Use:   "logs SERVER_ID",
	Short: "Follow a server's console output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := coreFor(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		stream, err := c.runtime.FollowLogs(cmd.Context(), args[0], func(line string) {
			fmt.Println(line)
		})
		if err != nil {
			return err
		}
		if stream == nil {
			return fmt.Errorf("server %s has no container", args[0])
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
			return stream.Close()
		case <-stream.Done():
			logger := log.WithServerID(args[0])
			logger.Debug().Msg("log stream ended")
			return stream.Err()
		}
	},
}

var serverCommandCmd = &cobra.Command{
	Use:   "command SERVER_ID COMMAND",
	Short: "Send one console command over RCON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("SPARKD_RCON_PASSWORD")
		}

		bridge := rcon.NewBridge(cfg.Console.Timeout, log.WithComponent("console"))
		reply, err := bridge.SendCommand(cmd.Context(), host, port, password, args[1])
		if err != nil {
			return err
		}
		if reply != "" {
			fmt.Println(reply)
		}
		return nil
	},
}

func init() {
	serverCreateCmd.Flags().StringP("file", "f", "", "Server definition file (YAML)")

	serverCommandCmd.Flags().String("host", rcon.DefaultHost, "RCON host")
	serverCommandCmd.Flags().Int("port", 25575, "RCON host port")
	serverCommandCmd.Flags().String("password", "", "RCON password (or SPARKD_RCON_PASSWORD)")

	serverCmd.AddCommand(serverCreateCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverRemoveCmd)
	serverCmd.AddCommand(serverStatusCmd)
	serverCmd.AddCommand(serverStatsCmd)
	serverCmd.AddCommand(serverLogsCmd)
	serverCmd.AddCommand(serverCommandCmd)
}

func coreFor(cmd *cobra.Command) (*core, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newCore(cfg)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
