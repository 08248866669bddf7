// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Fatalf("Failed to terminate PortAudio: %v", err)
		}
	})
}

func mockDevices(t *testing.T, infos []*portaudio.DeviceInfo, err error) {
	t.Helper()
	orig := paDevicesFunc
	t.Cleanup(func() { paDevicesFunc = orig })
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return infos, err
	}
}

var fakeInfos = []*portaudio.DeviceInfo{
	{Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000},
	{Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 44100,
		DefaultLowOutputLatency: 5 * time.Millisecond, DefaultHighOutputLatency: 20 * time.Millisecond},
	{Name: "Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
}

func TestHostDevices(t *testing.T) {
	mockDevices(t, fakeInfos, nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(fakeInfos) {
		t.Fatalf("got %d devices, want %d", len(devices), len(fakeInfos))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name != fakeInfos[i].Name {
			t.Errorf("Device %d name: got %q, want %q", i, d.Name, fakeInfos[i].Name)
		}
	}
	if devices[1].LowOutputLatency != 5*time.Millisecond {
		t.Errorf("latency not copied: %v", devices[1].LowOutputLatency)
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	mockDevices(t, nil, fmt.Errorf("mock error"))

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
	if err := ListDevices(&bytes.Buffer{}); err == nil {
		t.Error("ListDevices should surface the error")
	}
}

func TestDeviceType(t *testing.T) {
	tests := []struct {
		in, out int
		want    string
	}{
		{2, 0, "Input"},
		{0, 2, "Output"},
		{2, 2, "Input/Output"},
		{0, 0, "Unavailable"},
	}
	for _, tt := range tests {
		d := Device{MaxInputChannels: tt.in, MaxOutputChannels: tt.out}
		if got := d.Type(); got != tt.want {
			t.Errorf("Type(%d in, %d out) = %q, want %q", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestOutputDevices(t *testing.T) {
	mockDevices(t, fakeInfos, nil)
	devices, _ := HostDevices()

	out := OutputDevices(devices)
	if len(out) != 2 {
		t.Fatalf("got %d output devices, want 2", len(out))
	}
	if out[0].ID != 1 || out[1].ID != 2 {
		t.Errorf("unexpected output devices: %+v", out)
	}
}

func TestListDevices(t *testing.T) {
	mockDevices(t, fakeInfos, nil)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices error: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"[0] Built-in Microphone (Input)",
		"[1] Built-in Output (Output)",
		"[2] Interface (Input/Output)",
		"Latency: Low=5.00ms, High=20.00ms",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("listing missing %q:\n%s", want, got)
		}
	}
}

func TestOutputDevice_Invalid(t *testing.T) {
	mockDevices(t, fakeInfos, nil)

	if _, err := OutputDevice(99); err == nil {
		t.Error("expected error for out of range device")
	}
	if _, err := OutputDevice(0); err == nil {
		t.Error("expected error for input-only device")
	}
	if dev, err := OutputDevice(1); err != nil || dev.Name != "Built-in Output" {
		t.Errorf("OutputDevice(1) = %v, %v", dev, err)
	}
}

func TestOutputDevice_Default(t *testing.T) {
	setupPortAudio(t)

	dev, err := OutputDevice(DefaultDeviceID)
	if err != nil {
		t.Skipf("No default output device: %v", err)
	}
	if dev.Name == "" {
		t.Error("Default output device has empty name")
	}
}
