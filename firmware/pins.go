//go:build tinygo

package main

import "machine"

const (
	// LED driver (MOSFET gate), active high
	PIN_LED = machine.D7

	// Status LED mirrors the illuminator state
	PIN_STATUS = machine.LED

	// Serial configuration
	// Commands are "T0\n" and "T1\n", the reply echoes the applied state.
	UART_BAUD_RATE = 115200

	// Longest accepted command line
	MAX_LINE = 8
)
