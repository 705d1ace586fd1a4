//go:build rp2040 || rp2350

package main

import (
	"machine"
)

// diagUART carries the binary anomaly frames. Text debug output stays on
// USB CDC so the two streams never interleave.
var diagUART = machine.UART0

// InitUSB initializes USB serial for debug text
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// InitDiagUART configures the frame link
func InitDiagUART(baud uint32) error {
	return diagUART.Configure(machine.UARTConfig{
		BaudRate: baud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
}

// usbPrintln writes a debug line to USB CDC
func usbPrintln(msg string) {
	machine.Serial.Write([]byte(msg))
	machine.Serial.Write([]byte("\r\n"))
}
