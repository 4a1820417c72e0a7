package main

import (
	"context"
	"time"

	"alds-go/bus"
	"alds-go/services/config"
	"alds-go/services/irq"
	"alds-go/services/monitor"
	"alds-go/services/transmit"
	"alds-go/vic"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(bootDelay)
	println("boot", deviceID)

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, deviceID)
	b := bus.NewBus(8)

	irqSvc := irq.New(vic.NewTable(nil, nil))
	if err := irqSvc.Start(ctx, b.NewConnection("irq")); err != nil {
		println("Error: irq:", err.Error())
		return
	}
	if err := transmit.New(irqSvc, sinkFactory).Start(ctx, b.NewConnection("txq")); err != nil {
		println("Error: txq:", err.Error())
		return
	}
	if err := monitor.New(console).Start(ctx, b.NewConnection("monitor")); err != nil {
		println("Error: monitor:", err.Error())
		return
	}
	// Config last so every service sees its retained config/<key> on subscribe
	// or as a live message.
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	greet(ctx, b.NewConnection("main"))
	select {}
}

// greet writes a banner through the first transmit queue once it exists.
func greet(ctx context.Context, conn *bus.Connection) {
	for i := 0; i < 50; i++ {
		rctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		_, err := conn.RequestWait(rctx, conn.NewMessage(bus.T("txq", bannerQueue, "write"),
			map[string]any{"data": "alds " + deviceID + "\r\n"}, false))
		cancel()
		if err == nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	println("Warn: no", bannerQueue, "queue for the banner")
}
