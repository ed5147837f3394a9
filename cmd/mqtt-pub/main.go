package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-io/mqttc"
	"github.com/golang-io/mqttc/transport"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	reg := prometheus.NewRegistry()
	c := mqttc.New(
		mqttc.WithServer("127.0.0.1"),
		mqttc.WithPort(1883),
		mqttc.WithClientID("mqttc-pub-example"),
		mqttc.WithKeepAlive(30*time.Second),
		mqttc.WithMetricsRegistry(reg),
		mqttc.WithOnDisconnected(func(err error) {
			log.Printf("disconnected: %v", err)
		}),
	)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return transport.ServeMetrics(ctx, "127.0.0.1:9090", reg)
	})

	group.Go(func() error {
		return c.Connect(ctx)
	})

	group.Go(func() error {
		defer cancel()
		ignore := make(chan os.Signal, 1)
		sign := make(chan os.Signal, 1)
		signal.Notify(ignore, syscall.SIGHUP)
		signal.Notify(sign, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-sign:
			return fmt.Errorf("got signal: %s", sig)
		}
	})

	group.Go(func() error {
		sub, err := c.Subscribe("a/b/+", 1)
		if err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg, ok := <-sub.Messages():
				if !ok {
					return nil
				}
				log.Printf("received %s: %s", msg.Topic, msg.Payload)
			}
		}
	})

	group.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				payload := []byte(time.Now().Format("2006-01-02 15:04:05"))
				if _, err := c.PublishMessage("a/b/c", 1, payload, false); err != nil {
					log.Printf("publish: %v", err)
				}
			}
		}
	})

	if err := group.Wait(); err != nil {
		log.Printf("exiting: %v", err)
		_ = c.Disconnect()
	}
}
