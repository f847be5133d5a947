// Command omcli is the remote mobile device control CLI: it starts the
// broker server, starts the push relay, and sends commands to paired
// devices through the server's REST API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/P5ina/open-mobile-cli/cli"
	"github.com/P5ina/open-mobile-cli/relay"
	"github.com/P5ina/open-mobile-cli/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "omcli",
		Short:         "Remote mobile device control",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newRelayCmd(),
		newAlarmCmd(),
		newNotifyCmd(),
		newLocateCmd(),
		newStatusCmd(),
		newPairCmd(),
		newSleepCmd(),
		newWakeCmd(),
		newDevicesCmd(),
		newConfigCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	var port uint16
	var bind, logLevel string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the omcli broker server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Serve(port, bind, logLevel)
		},
	}
	cmd.Flags().Uint16Var(&port, "port", 7333, "port to listen on")
	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1", "address to bind")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func newRelayCmd() *cobra.Command {
	var port uint16
	var bind string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Start the standalone push relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return relay.Serve(port, bind)
		},
	}
	cmd.Flags().Uint16Var(&port, "port", 0, "port to listen on (default from config.toml [relay])")
	cmd.Flags().StringVar(&bind, "bind", "", "address to bind (default from config.toml [relay])")
	return cmd
}

func newAlarmCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "alarm", Short: "Alarm commands"}

	var sound, message, device string
	start := &cobra.Command{
		Use:   "start",
		Short: "Start alarm on device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.AlarmStart(sound, message, device)
		},
	}
	start.Flags().StringVar(&sound, "sound", "default", "sound: default, loud, hell")
	start.Flags().StringVar(&message, "message", "", "optional message to display")
	start.Flags().StringVar(&device, "device", "", "target device ID")

	var stopDevice string
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop alarm on device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.AlarmStop(stopDevice)
		},
	}
	stop.Flags().StringVar(&stopDevice, "device", "", "target device ID")

	cmd.AddCommand(start, stop)
	return cmd
}

func newNotifyCmd() *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "notify <message>",
		Short: "Send notification to device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Notify(args[0], priority)
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "normal", "priority: low, normal, critical")
	return cmd
}

func newLocateCmd() *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Get device location",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Locate(device)
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "target device ID")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Server and device status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ServerStatus()
		},
	}
}

func newPairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pair <code>",
		Short: "Pair a device using the 6-digit code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Pair(args[0])
		},
	}
}

func newSleepCmd() *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Activate sleep/standby mode (keeps screen on for alarm)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.SleepStart(device)
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "target device ID")
	return cmd
}

func newWakeCmd() *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "wake",
		Short: "Deactivate sleep mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.SleepStop(device)
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "target device ID")
	return cmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List paired devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListDevices()
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or update configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ShowConfig()
		},
	}
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value (keys: server, api_key, port, bind, apns.*)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.SetConfig(args[0], args[1])
		},
	}
	cmd.AddCommand(set)
	return cmd
}
