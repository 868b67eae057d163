//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	uart = machine.UART0

	ledOn        bool
	serialBuffer [MAX_LINE]byte
	serialPos    int
	overflow     bool
)

func main() {
	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_STATUS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	setLED(false)

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	for {
		processSerial()
		time.Sleep(time.Millisecond)
	}
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos > 0 && !overflow {
				handleCommand(serialBuffer[:serialPos])
			}
			serialPos = 0
			overflow = false
			continue
		}

		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		} else {
			overflow = true
		}
	}
}

// handleCommand applies T0/T1 and answers with the resulting state.
// T? reports the state without changing it.
func handleCommand(cmd []byte) {
	if len(cmd) != 2 || cmd[0] != 'T' {
		return
	}

	switch cmd[1] {
	case '0':
		setLED(false)
	case '1':
		setLED(true)
	case '?':
	default:
		return
	}

	reply()
}

func setLED(on bool) {
	ledOn = on
	PIN_LED.Set(on)
	PIN_STATUS.Set(on)
}

func reply() {
	if ledOn {
		print("T1\n")
	} else {
		print("T0\n")
	}
}
