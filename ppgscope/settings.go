package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/pulsecam/pkg/camera"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createEngineTab(state),
		createCameraTab(state),
		createTorchTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// createEngineTab creates the signal processing tab. Saving restarts the
// controller so the new parameters apply.
func createEngineTab(state *appState) *container.TabItem {
	e := &state.cfg.Engine

	bufferEntry := intEntry(e.BufferSize)
	sampleRateEntry := floatEntry(e.SampleRate, "%.1f")
	minBPMEntry := intEntry(e.MinBPM)
	maxBPMEntry := intEntry(e.MaxBPM)
	lowCutoffEntry := floatEntry(e.LowCutoff, "%.2f")
	highCutoffEntry := floatEntry(e.HighCutoff, "%.2f")
	windowEntry := intEntry(e.StabilizationWindow)
	qualityEntry := floatEntry(e.SignalQualityThreshold, "%.3f")
	stabilityEntry := intEntry(e.StabilityThreshold)
	stableCountEntry := intEntry(e.StableCountRequired)
	intervalEntry := intEntry(e.CalculationInterval)
	stepEntry := intEntry(e.SampleStep)
	roiEntry := floatEntry(e.ROIFraction, "%.2f")

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Buffer Size (samples)", Widget: bufferEntry},
			{Text: "Sample Rate (Hz)", Widget: sampleRateEntry},
			{Text: "Min BPM", Widget: minBPMEntry},
			{Text: "Max BPM", Widget: maxBPMEntry},
			{Text: "Low Cutoff (Hz)", Widget: lowCutoffEntry},
			{Text: "High Cutoff (Hz)", Widget: highCutoffEntry},
			{Text: "Stabilization Window (samples)", Widget: windowEntry},
			{Text: "Signal Quality Threshold", Widget: qualityEntry},
			{Text: "Stability Threshold (BPM)", Widget: stabilityEntry},
			{Text: "Stable Count Required", Widget: stableCountEntry},
			{Text: "Calculation Interval (frames)", Widget: intervalEntry},
			{Text: "Sample Step (pixels)", Widget: stepEntry},
			{Text: "ROI Fraction", Widget: roiEntry},
		},
		OnSubmit: func() {
			parseInt(bufferEntry, &e.BufferSize)
			parseFloat(sampleRateEntry, &e.SampleRate)
			parseInt(minBPMEntry, &e.MinBPM)
			parseInt(maxBPMEntry, &e.MaxBPM)
			parseFloat(lowCutoffEntry, &e.LowCutoff)
			parseFloat(highCutoffEntry, &e.HighCutoff)
			parseInt(windowEntry, &e.StabilizationWindow)
			parseFloat(qualityEntry, &e.SignalQualityThreshold)
			parseInt(stabilityEntry, &e.StabilityThreshold)
			parseInt(stableCountEntry, &e.StableCountRequired)
			parseInt(intervalEntry, &e.CalculationInterval)
			parseInt(stepEntry, &e.SampleStep)
			parseFloat(roiEntry, &e.ROIFraction)
			if saveConfig(state) {
				restartController(state)
			}
		},
	}

	return container.NewTabItem("Engine", container.NewVScroll(form))
}

// createCameraTab creates the camera tab. Changes apply to the next measurement.
func createCameraTab(state *appState) *container.TabItem {
	c := &state.cfg.Camera

	driverSelect := widget.NewSelect(camera.Drivers(), nil)
	driverSelect.SetSelected(c.Driver)

	facingSelect := widget.NewSelect([]string{camera.FacingEnvironment, camera.FacingUser}, nil)
	facingSelect.SetSelected(c.Facing)

	deviceEntry := intEntry(c.DeviceID)
	widthEntry := intEntry(c.Width)
	heightEntry := intEntry(c.Height)
	fpsEntry := intEntry(c.FPS)

	requireTorch := widget.NewCheck("", nil)
	requireTorch.SetChecked(c.RequireTorch)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Driver", Widget: driverSelect},
			{Text: "Device ID", Widget: deviceEntry},
			{Text: "Facing", Widget: facingSelect},
			{Text: "Width", Widget: widthEntry},
			{Text: "Height", Widget: heightEntry},
			{Text: "FPS", Widget: fpsEntry},
			{Text: "Require Torch", Widget: requireTorch},
		},
		OnSubmit: func() {
			if driverSelect.Selected != "" {
				c.Driver = driverSelect.Selected
			}
			if facingSelect.Selected != "" {
				c.Facing = facingSelect.Selected
			}
			parseInt(deviceEntry, &c.DeviceID)
			parseInt(widthEntry, &c.Width)
			parseInt(heightEntry, &c.Height)
			parseInt(fpsEntry, &c.FPS)
			c.RequireTorch = requireTorch.Checked
			saveConfig(state)
		},
	}

	return container.NewTabItem("Camera", form)
}

// createTorchTab creates the external illuminator tab.
func createTorchTab(state *appState) *container.TabItem {
	t := &state.cfg.Torch

	ports, err := camera.Ports()
	portOptions := []string{""}
	portMap := map[string]string{"": ""} // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	currentDisplay := ""
	found := t.Port == ""
	for _, opt := range portOptions {
		if portMap[opt] == t.Port {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found {
		portOptions = append(portOptions, t.Port)
		portMap[t.Port] = t.Port
		currentDisplay = t.Port
	}

	portSelect := widget.NewSelect(portOptions, nil)
	portSelect.SetSelected(currentDisplay)

	baudEntry := intEntry(t.BaudRate)
	ackEntry := widget.NewEntry()
	ackEntry.SetText(t.AckTimeout.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port (empty = none)", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
			{Text: "Ack Timeout", Widget: ackEntry},
		},
		OnSubmit: func() {
			t.Port = portMap[portSelect.Selected]
			parseInt(baudEntry, &t.BaudRate)
			if d, err := time.ParseDuration(ackEntry.Text); err == nil {
				t.AckTimeout = d
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Torch", form)
}

// createMockTab creates the simulated camera tab.
func createMockTab(state *appState) *container.TabItem {
	m := &state.cfg.Mock

	bpmEntry := floatEntry(m.BPM, "%.1f")
	amplitudeEntry := floatEntry(m.Amplitude, "%.2f")
	noiseEntry := floatEntry(m.Noise, "%.2f")
	baseEntry := floatEntry(m.Base, "%.1f")
	fpsEntry := intEntry(m.FPS)
	widthEntry := intEntry(m.Width)
	heightEntry := intEntry(m.Height)

	torchCheck := widget.NewCheck("", nil)
	torchCheck.SetChecked(m.Torch)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Pulse Rate (BPM)", Widget: bpmEntry},
			{Text: "Amplitude", Widget: amplitudeEntry},
			{Text: "Noise", Widget: noiseEntry},
			{Text: "Red Baseline", Widget: baseEntry},
			{Text: "FPS", Widget: fpsEntry},
			{Text: "Width", Widget: widthEntry},
			{Text: "Height", Widget: heightEntry},
			{Text: "Has Torch", Widget: torchCheck},
		},
		OnSubmit: func() {
			parseFloat(bpmEntry, &m.BPM)
			parseFloat(amplitudeEntry, &m.Amplitude)
			parseFloat(noiseEntry, &m.Noise)
			parseFloat(baseEntry, &m.Base)
			parseInt(fpsEntry, &m.FPS)
			parseInt(widthEntry, &m.Width)
			parseInt(heightEntry, &m.Height)
			m.Torch = torchCheck.Checked
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}

func intEntry(v int) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.Itoa(v))
	return e
}

func floatEntry(v float64, format string) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(fmt.Sprintf(format, v))
	return e
}

// parseInt stores the entry value in dst when it parses.
func parseInt(e *widget.Entry, dst *int) {
	if v, err := strconv.Atoi(e.Text); err == nil {
		*dst = v
	}
}

func parseFloat(e *widget.Entry, dst *float64) {
	if v, err := strconv.ParseFloat(e.Text, 64); err == nil {
		*dst = v
	}
}
