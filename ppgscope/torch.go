package main

import (
	"fmt"

	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// handleTorchToggle switches the torch of the running session.
func handleTorchToggle(state *appState) {
	if !state.controller.Running() {
		return
	}

	if err := state.controller.SetTorch(!state.controller.TorchOn()); err != nil {
		dialog.ShowError(fmt.Errorf("failed to switch torch: %w", err), state.window)
	}

	state.torchOn = state.controller.TorchOn()
	updateTorchButton(state.torchBtn, state.torchOn)
}

// updateTorchButton updates the torch button's visual state.
func updateTorchButton(btn *widget.Button, isOn bool) {
	if isOn {
		btn.Importance = widget.HighImportance
	} else {
		btn.Importance = widget.MediumImportance
	}
	btn.Refresh()
}
