package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/spotify/player"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available playback devices",
	Long: `Lists the Spotify Connect devices scenes can start on. The active
device is marked; the configured kiosk.default_device is used when none is.`,
	RunE: runDevices,
}

var devicesTransferCmd = &cobra.Command{
	Use:   "transfer <name-or-id>",
	Short: "Move playback to a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesTransfer,
}

var devicesTransferPlay bool

func init() {
	devicesTransferCmd.Flags().BoolVar(&devicesTransferPlay, "play", false, "start playing after the transfer")
	devicesCmd.AddCommand(devicesTransferCmd)
	rootCmd.AddCommand(devicesCmd)
}

type deviceView struct {
	core.Device
	Default bool `json:"default"`
}

func runDevices(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := newClient(logger)
	if err != nil {
		return err
	}

	devices, err := player.New(c).GetDevices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}

	views := make([]deviceView, len(devices))
	for i, d := range devices {
		views[i] = deviceView{Device: d, Default: isDefaultDevice(d)}
	}

	if JSONOutput() {
		return printJSON(views)
	}
	if len(views) == 0 {
		fmt.Println("No devices found")
		return nil
	}

	for _, d := range views {
		printDevice(d)
	}
	return nil
}

func isDefaultDevice(d core.Device) bool {
	want := cfg.Kiosk.DefaultDevice
	return want != "" && (d.ID == want || strings.EqualFold(d.Name, want))
}

func printDevice(d deviceView) {
	marks := ""
	if d.IsActive {
		marks += " " + StatusIcon(true)
	}
	if d.Default {
		marks += " (default)"
	}

	if IsTerminal() {
		fmt.Printf("  %s %s%s\n", deviceIcon(d.Type), d.Name, marks)
	} else {
		fmt.Printf("%s%s\n", d.Name, marks)
	}

	if Verbose() {
		fmt.Printf("      ID: %s\n", d.ID)
		fmt.Printf("      Type: %s\n", d.Type)
		fmt.Printf("      Volume: %d%%\n", d.Volume)
	}
}

func deviceIcon(deviceType core.DeviceType) string {
	switch deviceType {
	case core.DeviceTypeComputer:
		return "💻"
	case core.DeviceTypePhone:
		return "📱"
	case core.DeviceTypeSpeaker:
		return "🔊"
	case core.DeviceTypeTV:
		return "📺"
	case core.DeviceTypeCar:
		return "🚗"
	default:
		return "🎧"
	}
}

func runDevicesTransfer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := newClient(logger)
	if err != nil {
		return err
	}
	p := player.New(c)

	devices, err := p.GetDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}

	var target *core.Device
	for i, d := range devices {
		if d.ID == args[0] || strings.EqualFold(d.Name, args[0]) {
			target = &devices[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s", nerrors.ErrDeviceNotFound, args[0])
	}

	if err := p.TransferPlayback(ctx, target.ID, devicesTransferPlay); err != nil {
		return nerrors.WithCode(nerrors.CodeTransferPlayback, err)
	}

	if JSONOutput() {
		return printJSON(map[string]string{"status": "transferred", "device": target.Name, "id": target.ID})
	}
	fmt.Printf("Playback moved to %s\n", target.Name)
	return nil
}
