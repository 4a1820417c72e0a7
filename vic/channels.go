package vic

import "alds-go/x/conv"

// Channel numbers of the LPC21xx/LPC22xx VIC.
const (
	ChWDT       Channel = 0
	ChDbgCommRX Channel = 2
	ChDbgCommTX Channel = 3
	ChTimer0    Channel = 4
	ChTimer1    Channel = 5
	ChUART0     Channel = 6
	ChUART1     Channel = 7
	ChPWM       Channel = 8
	ChI2C0      Channel = 9
	ChSPI0      Channel = 10
	ChSPI1      Channel = 11 // SSP
	ChPLL       Channel = 12
	ChRTC       Channel = 13
	ChEINT0     Channel = 14
	ChEINT1     Channel = 15
	ChEINT2     Channel = 16
	ChEINT3     Channel = 17
	ChADC0      Channel = 18
	ChI2C1      Channel = 19
	ChBOD       Channel = 20
	ChADC1      Channel = 21
	ChUSB       Channel = 22
	ChTimer2    Channel = 26
	ChTimer3    Channel = 27
)

// Board default priorities. Lower is served first; NonVectored sources go
// through the default handler.
const (
	PrioEINT0  Priority = 0
	PrioEINT1  Priority = 1
	PrioUSB    Priority = 1
	PrioEINT2  Priority = 2
	PrioUART0  Priority = 3
	PrioUART1  Priority = 4
	PrioTimer0 Priority = 5
	PrioTimer1 Priority = 6
	PrioTimer2 Priority = 7
	PrioTimer3 Priority = 8
	PrioPWM    Priority = 9
	PrioI2C0   Priority = 10
	PrioI2C1   Priority = 11
	PrioSPI0   Priority = 12
	PrioSPI1   Priority = 13
	PrioRTC    Priority = 14
	PrioADC0   Priority = 15

	PrioEINT3 = NonVectored
	PrioADC1  = NonVectored
	PrioWDT   = NonVectored
	PrioPLL   = NonVectored
	PrioBOD   = NonVectored
)

var channelNames = map[Channel]string{
	ChWDT: "wdt", ChDbgCommRX: "dbgcommrx", ChDbgCommTX: "dbgcommtx",
	ChTimer0: "timer0", ChTimer1: "timer1", ChUART0: "uart0", ChUART1: "uart1",
	ChPWM: "pwm", ChI2C0: "i2c0", ChSPI0: "spi0", ChSPI1: "spi1", ChPLL: "pll",
	ChRTC: "rtc", ChEINT0: "eint0", ChEINT1: "eint1", ChEINT2: "eint2",
	ChEINT3: "eint3", ChADC0: "adc0", ChI2C1: "i2c1", ChBOD: "bod",
	ChADC1: "adc1", ChUSB: "usb", ChTimer2: "timer2", ChTimer3: "timer3",
}

// ChannelName returns the peripheral name of ch, or "" if the channel is
// reserved.
func ChannelName(ch Channel) string { return channelNames[ch] }

// ChannelByName is the inverse of ChannelName.
func ChannelByName(name string) (Channel, bool) {
	for ch, n := range channelNames {
		if n == name {
			return ch, true
		}
	}
	return 0, false
}

// ParseChannel accepts a peripheral name or a channel number.
func ParseChannel(s string) (Channel, error) {
	if ch, ok := ChannelByName(s); ok {
		return ch, nil
	}
	n, ok := conv.ParseUint(s)
	if !ok || n >= NumChannels {
		return 0, ErrInvalidChannel
	}
	return Channel(n), nil
}

// DefaultPriority returns the board default slot of ch, NonVectored when it
// has none.
func DefaultPriority(ch Channel) Priority {
	if p, ok := defaultPriorities[ch]; ok {
		return p
	}
	return NonVectored
}

var defaultPriorities = map[Channel]Priority{
	ChEINT0: PrioEINT0, ChEINT1: PrioEINT1, ChUSB: PrioUSB, ChEINT2: PrioEINT2,
	ChUART0: PrioUART0, ChUART1: PrioUART1, ChTimer0: PrioTimer0,
	ChTimer1: PrioTimer1, ChTimer2: PrioTimer2, ChTimer3: PrioTimer3,
	ChPWM: PrioPWM, ChI2C0: PrioI2C0, ChI2C1: PrioI2C1, ChSPI0: PrioSPI0,
	ChSPI1: PrioSPI1, ChRTC: PrioRTC, ChADC0: PrioADC0,
}
