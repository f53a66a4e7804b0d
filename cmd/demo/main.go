// Command demo drives a traffic-light statechart on a ticker, demonstrating
// persistence, event publishing, and DOT visualization end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harelstate/statecraft"
	"github.com/harelstate/statecraft/internal/production"
)

func main() {
	b := statecraft.NewBuilder("traffic").WithInitial("red")
	b.State("red").On("TIMER", statecraft.To("green"))
	b.State("green").On("TIMER", statecraft.To("yellow"))
	b.State("yellow").On("TIMER", statecraft.To("red"))

	persister, err := production.NewJSONPersister("/tmp/statecraft-demo")
	if err != nil {
		panic(err)
	}

	publishCh := make(chan production.PublishedEvent, 100)
	publisher := production.NewChannelPublisher(publishCh)

	m, err := statecraft.New(b, nil,
		statecraft.WithPersister(persister),
		statecraft.WithEventPublisher(publisher),
	)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		panic(err)
	}
	defer m.Dispose()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	cycles := 0
	for {
		select {
		case <-ticker.C:
			if err := m.Send(ctx, "TIMER", nil); err != nil {
				fmt.Printf("send error: %v\n", err)
			}
			fmt.Printf("\n--- cycle %d ---\n", cycles+1)
			fmt.Println("active:", m.ActiveFull())
			fmt.Println(m.Visualize())
			select {
			case pub := <-publishCh:
				fmt.Printf("published: %s -> %s (%s)\n", pub.FromPath, pub.ToPath, pub.Event)
			default:
			}
			if err := m.Save(ctx); err != nil {
				fmt.Printf("save error: %v\n", err)
			}
			cycles++
			if cycles >= 12 {
				fmt.Println("demo complete after 12 cycles.")
				return
			}
		case <-sig:
			fmt.Println("\nshutting down gracefully...")
			return
		}
	}
}
