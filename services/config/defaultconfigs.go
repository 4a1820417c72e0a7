package config

// Embedded configuration, keyed by device ID (the value placed in the
// context under CtxDeviceKey).

// LPC2148 board: UART0 transmit queue on its default slot, the timers
// vectored, the watchdog and brown-out detector left on the default handler.
const cfgLPC2148 = `{
  "irq": {
    "default": "spurious",
    "fiq": "fiq",
    "plans": [
      {"channel": "timer0"},
      {"channel": "timer1"},
      {"channel": "eint0", "class": "FIQ"},
      {"channel": "wdt", "enabled": false},
      {"channel": "bod"}
    ]
  },
  "txq": [
    {"id": "uart0", "channel": "uart0", "priority": 3, "size": 128, "sink": "uart0", "depth": 16},
    {"id": "spi0", "channel": "spi0", "size": 64, "sink": "spi0"}
  ],
  "monitor": {
    "interval": 10,
    "rings": true
  }
}`

// Host simulation: everything goes to loopback FIFOs.
const cfgSim = `{
  "irq": {
    "default": "spurious",
    "plans": [
      {"channel": "timer0", "priority": 1}
    ]
  },
  "txq": [
    {"id": "uart0", "channel": "uart0", "priority": 3, "size": 64, "sink": "loopback", "depth": 16}
  ],
  "monitor": {
    "interval": 2,
    "all": false,
    "rings": true
  }
}`

// Raspberry Pi Pico: the channel numbers are those of the LPC map, the sinks
// are the RP2040 peripherals.
const cfgPico = `{
  "irq": {
    "default": "spurious",
    "fiq": "fiq",
    "plans": [
      {"channel": "timer0"},
      {"channel": "eint0", "class": "FIQ"}
    ]
  },
  "txq": [
    {"id": "uart0", "channel": "uart0", "priority": 3, "size": 256, "sink": "uart0", "baud": 115200},
    {"id": "spi0", "channel": "spi0", "size": 64, "sink": "spi0", "depth": 8},
    {"id": "i2c0", "channel": "i2c0", "size": 64, "sink": "i2c0", "addr": 66, "depth": 16}
  ],
  "monitor": {
    "interval": 30,
    "rings": true
  }
}`

var embeddedConfigs = map[string][]byte{
	"lpc2148": []byte(cfgLPC2148),
	"pico":    []byte(cfgPico),
	"sim":     []byte(cfgSim),
}
