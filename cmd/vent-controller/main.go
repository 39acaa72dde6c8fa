// Command vent-controller drives a multi-tap ventilation fan through relays,
// remembers its speed across power cuts and reports temperature and humidity
// to Home Assistant over MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/vent-controller/internal/config"
	"github.com/sweeney/vent-controller/internal/console"
	"github.com/sweeney/vent-controller/internal/control"
	"github.com/sweeney/vent-controller/internal/fan"
	"github.com/sweeney/vent-controller/internal/gpio"
	"github.com/sweeney/vent-controller/internal/mqtt"
	"github.com/sweeney/vent-controller/internal/nvm"
	"github.com/sweeney/vent-controller/internal/params"
	"github.com/sweeney/vent-controller/internal/sensor"
	"github.com/sweeney/vent-controller/internal/setpoint"
	"github.com/sweeney/vent-controller/internal/status"
	"github.com/sweeney/vent-controller/internal/web"
)

var version = "dev"

// Environment variables holding broker credentials.
const (
	envMQTTUsername = "MQTT_USERNAME"
	envMQTTPassword = "MQTT_PASSWORD"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults when empty)")
	envFile := flag.String("env-file", "/etc/vent-controller.env", "Env file with MQTT credentials (optional)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	printState := flag.Bool("print-state", false, "Print stored speed and parameters and exit")
	consoleMode := flag.Bool("console", false, "Start the interactive bench console")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	switch *httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = *httpAddr
	}

	if err := loadEnvFile(*envFile); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if *printState {
		err = printStoredState(os.Stdout, cfg)
	} else {
		err = run(cfg, *consoleMode)
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadEnvFile loads credentials into the environment. A missing file is
// ignored; variables already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// printStoredState reports what a boot would restore, working on a copy of
// the image so nothing is written.
func printStoredState(w io.Writer, cfg config.Config) error {
	store, err := nvm.OpenFile(cfg.NVM.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	image, err := nvm.CopyOf(store)
	if err != nil {
		return err
	}
	speed, err := setpoint.New(image).Load()
	if err != nil {
		return err
	}
	ps, err := params.Open(image)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "speed: %d%% (%s)\n", speed, fan.Discretize(speed))
	if ps.Recovered() {
		fmt.Fprintln(w, "params: CORRUPT, boot would restore defaults")
	} else {
		fmt.Fprintf(w, "params: %s\n", ps.State())
	}
	for i := params.Index(0); i < params.Count; i++ {
		fmt.Fprintf(w, "  %d %s = %d\n", i.Number(), i, ps.Get(i))
	}
	return nil
}

func openRelays(cfg config.GPIO) (gpio.Writer, error) {
	if cfg.Backend == config.BackendRpio {
		return gpio.NewRpioWriter(cfg.Pins)
	}
	return gpio.NewCdevWriter(cfg.Chip, cfg.Pins)
}

func run(cfg config.Config, consoleMode bool) error {
	relays, err := openRelays(cfg.GPIO)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer relays.Close()

	store, err := nvm.OpenFile(cfg.NVM.Path)
	if err != nil {
		return fmt.Errorf("init nvm: %w", err)
	}
	defer store.Close()

	ps, err := params.Open(store)
	if err != nil {
		return fmt.Errorf("init params: %w", err)
	}

	env := sensor.NewIIOSensor(cfg.Sensor.Dir)
	if err := env.Begin(); err != nil {
		// Polls keep failing and are skipped until the device appears.
		log.Printf("sensor: %v", err)
	}
	defer env.Close()

	ctrl := control.New(fan.NewDriver(relays), setpoint.New(store), ps, env)
	if err := ctrl.Boot(); err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		HTTPAddr:    cfg.HTTP.Addr,
		GPIOBackend: cfg.GPIO.Backend,
		NVMPath:     cfg.NVM.Path,
		SensorDir:   cfg.Sensor.Dir,
	})
	tracker.Update(deviceState(ctrl))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan control.Command, 16)

	host, err := mqtt.NewRealChannel(ctx, mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: os.Getenv(envMQTTUsername),
		Password: os.Getenv(envMQTTPassword),
		Topics: mqtt.Topics{
			Prefix:    cfg.MQTT.TopicPrefix,
			Discovery: cfg.MQTT.DiscoveryPrefix,
			DeviceID:  cfg.MQTT.DeviceID,
		},
		Device: mqtt.Device{
			Name:         cfg.MQTT.DeviceName,
			Manufacturer: "sweeney",
			Model:        "vent-controller",
			SWVersion:    version,
		},
		BufferSize: cfg.MQTT.BufferSize,
	}, cmds)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer host.Close()

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if consoleMode {
		con := console.New(cmds, tracker, os.Stdout)
		go func() {
			if err := con.Run(ctx, cancel); err != nil {
				log.Printf("console: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			select {
			case sigCh <- syscall.SIGINT:
			default:
			}
		}()
	}

	log.Printf("started: broker=%s prefix=%s gpio=%s nvm=%s speed=%d%%",
		cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, cfg.GPIO.Backend, cfg.NVM.Path, ctrl.Speed())

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	return runLoop(ctrl, host, host, tracker, time.Now, ticker.C, cmds, sigCh)
}

// runLoop owns ctrl. Every host command, console command and sensor poll is
// handled here one at a time; deferred work runs after each of them.
func runLoop(ctrl *control.Controller, host mqtt.HostChannel, conn mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, tick <-chan time.Time, cmds <-chan control.Command, sig <-chan os.Signal) error {
	// Announce the restored state; sensor channels follow their first poll.
	initial := []control.Channel{control.ChannelFan}
	for i := params.Index(0); i < params.Count; i++ {
		initial = append(initial, control.ParamChannel(i.Number()))
	}
	report(ctrl, host, initial)
	idle(ctrl, conn, tracker)

	startup := mqtt.SystemEvent{Timestamp: now(), Event: "STARTUP", Retained: true}
	if tracker != nil {
		startup.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", "")
	}
	if err := host.PublishSystem(startup); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			idle(ctrl, conn, tracker)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := host.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case cmd := <-cmds:
			log.Printf("command: %v", cmd)
			report(ctrl, host, ctrl.Handle(cmd))

		case <-tick:
			report(ctrl, host, ctrl.Tick(now()))
		}

		idle(ctrl, conn, tracker)
	}
}

func report(ctrl *control.Controller, host mqtt.HostChannel, chs []control.Channel) {
	for _, ch := range chs {
		v, ok := ctrl.Value(ch)
		if !ok {
			continue
		}
		if err := host.Report(ch, v); err != nil {
			log.Printf("report %s: %v", ch, err)
		}
	}
}

// idle runs deferred controller work and refreshes the status tracker.
func idle(ctrl *control.Controller, conn mqtt.ConnectionStatus, tracker *status.Tracker) {
	if err := ctrl.Idle(); err != nil {
		log.Printf("idle: %v", err)
	}
	if tracker == nil {
		return
	}
	tracker.Update(deviceState(ctrl))
	if conn != nil {
		tracker.SetMQTTConnected(conn.IsConnected())
	}
}

func deviceState(ctrl *control.Controller) status.Device {
	level := ctrl.Level()
	var relays []bool
	if row, ok := fan.Row(level); ok {
		for _, d := range row {
			relays = append(relays, d == gpio.Active)
		}
	}
	values := ctrl.Params()
	ps := make([]status.Param, 0, params.Count)
	for i := params.Index(0); i < params.Count; i++ {
		ps = append(ps, status.Param{Number: i.Number(), Name: i.String(), Value: values[i]})
	}
	return status.Device{
		Speed:       uint8(ctrl.Speed()),
		Level:       level.String(),
		Relays:      relays,
		Temperature: ctrl.Temperature(),
		Humidity:    ctrl.Humidity(),
		Params:      ps,
		ParamState:  ctrl.ParamState().String(),
		Recovered:   ctrl.ParamsRecovered(),
		Pending:     ctrl.ParamsPending(),
		Reports:     ctrl.ReportCounts(),
	}
}
