package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/pulsecam/pkg/config"
	"github.com/itohio/pulsecam/pkg/meter"
	"github.com/itohio/pulsecam/pkg/monitor"
	"github.com/itohio/pulsecam/pkg/scope"
	"github.com/sirupsen/logrus"
)

// startTimeout bounds camera acquisition.
const startTimeout = 10 * time.Second

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use the simulated camera")
		torchFlag  = flag.String("torch-port", "", "Serial port of the LED illuminator (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		logrus.WithError(err).Warn("invalid log level, keeping default")
	}
	if *mockFlag {
		cfg.Camera.Driver = "mock"
	}
	if *torchFlag != "" {
		cfg.Torch.Port = *torchFlag
	}

	application := app.NewWithID("com.itohio.pulsecam")

	window := application.NewWindow("Pulse Camera")
	window.Resize(fyne.NewSize(1000, 700))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		window:     window,
	}
	state.scopeWidget = scope.New(cfg.Engine.SampleRate, cfg.Engine.MaxBPM)
	state.controller = newController(state)

	toolbar := createToolbar(state)
	state.resultLabel = widget.NewLabel("")

	content := container.NewBorder(
		toolbar,
		state.resultLabel,
		nil,
		nil,
		state.scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		state.controller.Close()
	})
	window.ShowAndRun()
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	controller *monitor.Controller

	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	measureBtn  *widget.Button
	torchBtn    *widget.Button
	resultLabel *widget.Label
	torchOn     bool

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// newController wires the measurement callbacks to the UI.
func newController(state *appState) *monitor.Controller {
	const updateInterval = 33 * time.Millisecond // ~30 FPS

	return monitor.New(state.cfg, monitor.FactoryFromConfig(state.cfg),
		monitor.WithOnUpdate(func(d meter.SignalData) {
			state.updateMu.Lock()
			now := time.Now()
			if now.Sub(state.lastUpdateTime) < updateInterval {
				state.updateMu.Unlock()
				return
			}
			state.lastUpdateTime = now
			state.updateMu.Unlock()

			fyne.Do(func() {
				state.scopeWidget.UpdateData(d)
			})
		}),
		monitor.WithOnBPMDetected(func(bpm int) {
			fyne.Do(func() {
				state.resultLabel.SetText(fmt.Sprintf("Heart rate: %d BPM", bpm))
			})
		}),
		monitor.WithOnError(func(message string) {
			fyne.Do(func() {
				setMeasuring(state, false)
				dialog.ShowError(errors.New(message), state.window)
			})
		}),
	)
}

// createToolbar creates the toolbar with Measure, Check, Settings and Torch buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	measureBtn := widget.NewButtonWithIcon("Measure", theme.MediaPlayIcon(), func() {
		handleMeasure(state)
	})
	state.measureBtn = measureBtn

	checkBtn := widget.NewButtonWithIcon("", theme.InfoIcon(), func() {
		handleCheck(state)
	})

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	torchBtn := widget.NewButtonWithIcon("Torch", theme.VisibilityIcon(), func() {
		handleTorchToggle(state)
	})
	torchBtn.Disable()
	state.torchBtn = torchBtn

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(measureBtn, checkBtn, settingsBtn),
		container.NewHBox(torchBtn),
		nil,
	)
}

// handleMeasure starts or stops a measurement.
func handleMeasure(state *appState) {
	if state.controller.Running() {
		state.controller.Stop()
		setMeasuring(state, false)
		return
	}

	state.scopeWidget.Clear()
	state.resultLabel.SetText("Measuring...")
	state.measureBtn.Disable()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()

		err := state.controller.Start(ctx)
		lit := err == nil && state.controller.TorchOn()
		fyne.Do(func() {
			state.measureBtn.Enable()
			if err != nil {
				// The error callback already showed the message
				state.resultLabel.SetText("")
				return
			}
			setMeasuring(state, true)
			state.torchOn = lit
			updateTorchButton(state.torchBtn, lit)
		})
	}()
}

// handleCheck runs the capability check and shows the result.
func handleCheck(state *appState) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()

		d := state.controller.CheckCapabilities(ctx)
		fyne.Do(func() {
			if !d.IsSupported {
				dialog.ShowInformation("Not supported", d.UnsupportedReason, state.window)
				return
			}
			msg := "This device can measure your heart rate."
			if !d.HasAuxiliaryIllumination {
				msg += "\nNo flashlight was found, results may be unreliable."
			}
			dialog.ShowInformation("Supported", msg, state.window)
		})
	}()
}

// setMeasuring updates the toolbar for a running or idle session.
func setMeasuring(state *appState, running bool) {
	if running {
		state.measureBtn.SetText("Stop")
		state.measureBtn.SetIcon(theme.MediaStopIcon())
		state.torchBtn.Enable()
	} else {
		state.measureBtn.SetText("Measure")
		state.measureBtn.SetIcon(theme.MediaPlayIcon())
		state.torchOn = false
		state.torchBtn.Disable()
	}
	updateTorchButton(state.torchBtn, state.torchOn)
}

// restartController replaces the controller after engine settings change.
func restartController(state *appState) {
	wasRunning := state.controller.Running()
	state.controller.Close()
	setMeasuring(state, false)

	state.scopeWidget = scope.New(state.cfg.Engine.SampleRate, state.cfg.Engine.MaxBPM)
	state.window.SetContent(container.NewBorder(
		createToolbar(state),
		state.resultLabel,
		nil,
		nil,
		state.scopeWidget,
	))
	state.controller = newController(state)

	if wasRunning {
		handleMeasure(state)
	}
}

// saveConfig validates and persists the configuration.
func saveConfig(state *appState) bool {
	if err := state.cfg.Validate(); err != nil {
		dialog.ShowError(fmt.Errorf("invalid settings: %w", err), state.window)
		return false
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}
