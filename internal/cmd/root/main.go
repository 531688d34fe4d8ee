package root

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"obdmeter/internal/broadcast"
	"obdmeter/internal/config"
	"obdmeter/internal/displayer"
	"obdmeter/internal/mqtt"
	"obdmeter/internal/obd"
	"obdmeter/internal/server"
	"obdmeter/internal/storage"
	"obdmeter/internal/transport"
	"obdmeter/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func Run(cmd *cobra.Command, args []string) error {
	c, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lister, dialer, err := Transport(c)
	if err != nil {
		return err
	}

	snapshots := broadcast.NewHub[obd.Snapshot]()
	statuses := broadcast.NewHub[transport.Status]()
	defer snapshots.Close()
	defer statuses.Close()

	session := transport.NewSession(lister, dialer, transport.Options{
		Marker:       c.Device.Marker,
		Backoff:      c.Poll.Backoff,
		InitCommands: c.Device.InitCommands,
		OnStatus:     statuses.Publish,
	})

	maxima := c.Calibration
	var recorder *storage.Recorder
	if c.StatePath != "" {
		store, err := storage.Open(c.StatePath)
		if err != nil {
			return err
		}
		defer store.Close()
		if maxima, err = store.Seed(c.Calibration); err != nil {
			return err
		}
		recorder = storage.NewRecorder(store, maxima)
		log.Info("loaded calibration", zap.Float64("maxTorque", maxima.Torque), zap.Float64("maxPower", maxima.Power))
	}

	poller := obd.NewPoller(session, obd.PublisherFunc(snapshots.Publish), obd.Config{
		Interval:   c.Poll.Interval,
		BufferSize: c.Poll.BufferSize,
		Maxima:     maxima,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(run(gctx, "session", session.Run))
	g.Go(run(gctx, "poller", poller.Run))

	if recorder != nil {
		g.Go(run(gctx, "state", func(ctx context.Context) error {
			return record(ctx, snapshots, recorder)
		}))
	}

	if c.MQTT.Broker != "" {
		client := mqtt.NewClient(c.MQTT)
		if err := client.Connect(); err != nil {
			cancel()
			g.Wait()
			return err
		}
		defer client.Disconnect()

		snaps, cancelSnaps := snapshots.Subscribe()
		sts, cancelSts := statuses.Subscribe()
		g.Go(run(gctx, "mqtt", func(ctx context.Context) error {
			defer cancelSnaps()
			defer cancelSts()
			client.Run(ctx, snaps, sts)
			return nil
		}))
	}

	if c.HTTPListen != "" {
		srv := server.New(c.HTTPListen, snapshots, statuses)
		g.Go(run(gctx, "http", srv.Run))
	}

	if c.NoTUI {
		g.Go(run(gctx, "headless", func(ctx context.Context) error {
			return logSnapshots(ctx, snapshots)
		}))
	} else {
		d := displayer.New(snapshots, statuses, cancel)
		g.Go(run(gctx, "tui", func(ctx context.Context) error {
			defer cancel()
			return d.Run(ctx)
		}))
	}

	return g.Wait()
}

func record(ctx context.Context, snapshots *broadcast.Hub[obd.Snapshot], r *storage.Recorder) error {
	snaps, cancel := snapshots.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-snaps:
			if !ok {
				return nil
			}
			if err := r.Observe(s); err != nil {
				log.Warn("failed to save calibration", zap.Error(err))
			}
		}
	}
}

func logSnapshots(ctx context.Context, snapshots *broadcast.Hub[obd.Snapshot]) error {
	snaps, cancel := snapshots.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-snaps:
			if !ok {
				return nil
			}
			log.Info("snapshot",
				zap.Uint64("cycle", s.Cycle),
				zap.String("device", s.Device),
				zap.Int("oilTemp", s.OilTemp),
				zap.Int("coolantTemp", s.CoolantTemp),
				zap.Int("engineLoad", s.EngineLoad),
				zap.Int("engineSpeed", s.EngineSpeed),
				zap.Float64("torque", s.Torque),
				zap.Float64("power", s.Power),
				zap.Float64("maxTorque", s.MaxTorque),
				zap.Float64("maxPower", s.MaxPower),
				zap.Any("missing", s.Missing),
			)
		}
	}
}

// run adapts a component to errgroup.Group.Go: it logs the component by name
// and treats cancellation as a clean stop.
func run(ctx context.Context, name string, fn func(context.Context) error) func() error {
	return func() error {
		err := fn(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			log.Debug("component stopped", zap.String("component", name))
			return nil
		}
		log.Error("component failed", zap.String("component", name), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
}
