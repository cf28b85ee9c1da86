package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any PortAudio backend operation and paired
// with a Terminate() call.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// paDevices returns all PortAudio devices. Tests replace it.
var paDevices = portaudio.Devices

// paDefaultInput returns the default input device. Tests replace it.
var paDefaultInput = portaudio.DefaultInputDevice

// inputDevices returns the PortAudio devices that can capture, in host
// order, as descriptors. The first entry is always the system default
// device with a nil identity.
func inputDevices() ([]DeviceDescriptor, error) {
	devices, err := paDevices()
	if err != nil {
		return nil, err
	}

	out := make([]DeviceDescriptor, 0, len(devices)+1)
	for _, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, DeviceDescriptor{Name: d.Name, Identity: d})
	}
	if len(out) == 0 {
		return out, nil
	}
	return append([]DeviceDescriptor{{Name: "Default input device"}}, out...), nil
}

// ListDevices prints the capture devices a backend offers, one per index
// as accepted by the --device flag. PortAudio devices also show channel
// count, default sample rate and latency ranges.
func ListDevices(w io.Writer, devices []DeviceDescriptor) {
	fmt.Fprintf(w, "\nAvailable Capture Devices\n\n")

	if len(devices) == 0 {
		fmt.Fprintln(w, "No capture devices found")
		return
	}

	for i, device := range devices {
		fmt.Fprintf(w, "[%d] %s\n", i, device.Name)
		info, ok := device.Identity.(*portaudio.DeviceInfo)
		if !ok || info == nil {
			continue
		}
		fmt.Fprintf(w, "    Input channels: %d\n", info.MaxInputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", info.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			info.DefaultLowInputLatency.Seconds()*1000,
			info.DefaultHighInputLatency.Seconds()*1000)
	}
	fmt.Fprintln(w)
}
