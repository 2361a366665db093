// Command fire-panel runs the fire alarm control panel: it scans the
// initiating and notification circuits, latches alarm and trouble
// conditions, drives the indicators and notification appliances, and
// publishes panel events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/fire-panel/internal/adc"
	"github.com/sweeney/fire-panel/internal/config"
	"github.com/sweeney/fire-panel/internal/controller"
	"github.com/sweeney/fire-panel/internal/gpio"
	"github.com/sweeney/fire-panel/internal/logic"
	"github.com/sweeney/fire-panel/internal/metrics"
	"github.com/sweeney/fire-panel/internal/mqtt"
	"github.com/sweeney/fire-panel/internal/status"
	"github.com/sweeney/fire-panel/internal/web"
)

// eventQueueSize bounds the events waiting for the broker.
const eventQueueSize = 64

type options struct {
	sim        bool
	printState bool
	wsBroker   string
}

func main() {
	configPath := flag.String("config", "", "Panel configuration file (empty for the reference panel)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address, \"off\" to disable (overrides config)")
	heartbeat := flag.Duration("heartbeat", 0, "Heartbeat interval, 0 to disable (overrides config)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from the broker, "off" disables)`)
	sim := flag.Bool("sim", false, "Simulate the analog front end and GPIO ports")
	printState := flag.Bool("print-state", false, "Print current inputs and channel readings and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
			if *httpAddr == "off" {
				cfg.HTTP.Addr = ""
			}
		case "heartbeat":
			cfg.MQTT.Heartbeat = *heartbeat
		case "ws-broker":
			cfg.HTTP.WSBroker = *wsBroker
		}
	})
	if cfg.HTTP.WSBroker == "" {
		cfg.HTTP.WSBroker = "=broker"
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	opts := options{
		sim:        *sim,
		printState: *printState,
		wsBroker:   resolveWSBroker(cfg.HTTP.WSBroker, cfg.MQTT.Broker),
	}

	err = run(cfg, opts)
	if errors.Is(err, controller.ErrReset) {
		log.Printf("restarting")
		err = restart()
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// hardware is the set of I/O boundaries the controller drives.
type hardware struct {
	converter adc.Converter
	inputs    gpio.InputPort
	outputs   gpio.OutputPort
	analog    string
}

func (h *hardware) Close() {
	if err := h.outputs.Close(); err != nil {
		log.Printf("close outputs: %v", err)
	}
	if err := h.inputs.Close(); err != nil {
		log.Printf("close inputs: %v", err)
	}
	if err := h.converter.Close(); err != nil {
		log.Printf("close adc: %v", err)
	}
}

func openHardware(cfg *config.Config, sim bool) (*hardware, error) {
	h := &hardware{analog: "simulated"}

	if sim || cfg.Analog.Endpoint == "" {
		h.converter = adc.NewFake(simNormal)
	} else {
		conv, err := adc.NewModbusConverter(cfg.Analog.ADC())
		if err != nil {
			return nil, fmt.Errorf("init adc: %w", err)
		}
		h.converter = conv
		h.analog = cfg.Analog.Endpoint
	}

	if sim {
		h.inputs = gpio.NewFakeInputs(gpio.Inputs{})
		h.outputs = &simOutputs{}
		return h, nil
	}

	port, err := gpio.NewRealPort(cfg.GPIO.Chip, cfg.GPIO.Pins)
	if err != nil {
		h.converter.Close()
		return nil, fmt.Errorf("init gpio: %w", err)
	}
	h.inputs = port
	h.outputs = port
	return h, nil
}

func run(cfg *config.Config, opts options) error {
	hw, err := openHardware(cfg, opts.sim)
	if err != nil {
		return err
	}
	defer hw.Close()

	if opts.printState {
		return printState(os.Stdout, hw.inputs, hw.converter, cfg.Panel.ChannelSpecs(), cfg.Panel.Classifier())
	}

	nacs, err := cfg.Panel.NACConfigs()
	if err != nil {
		return fmt.Errorf("nac config: %w", err)
	}

	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "firepanel_mqtt_buffered_messages",
			Help: "Messages held while the broker is unreachable.",
		}, func() float64 { return float64(publisher.Buffered()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "firepanel_mqtt_buffer_dropped_total",
			Help: "Messages evicted from the offline buffer.",
		}, func() float64 { return float64(publisher.Dropped()) }),
	)
	m := metrics.New(reg)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Panel.Poll.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
		WSBroker:    opts.wsBroker,
		PreAlarm:    cfg.Panel.PreAlarm,
		AlarmAt:     cfg.Panel.AlarmAt,
		Analog:      hw.analog,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	publishSystem(publisher, publisher, tracker, "STARTUP", "", time.Now())

	queue := mqtt.NewQueue(publisher, eventQueueSize)
	ctrl := controller.New(controller.Config{
		PreAlarm:   cfg.Panel.PreAlarm,
		NACs:       nacs,
		Channels:   cfg.Panel.ChannelSpecs(),
		Classifier: cfg.Panel.Classifier(),
		Settle:     cfg.Panel.Settle,
	}, controller.Deps{
		Converter: hw.converter,
		Inputs:    hw.inputs,
		Outputs:   hw.outputs,
		Notifier:  queue,
		Resetter: controller.ResetFunc(func() {
			publishSystem(publisher, publisher, tracker, "RESET", "RESET_BUTTON", time.Now())
		}),
		Tracker: tracker,
		Metrics: m,
	})

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: poll=%v pre_alarm=%v alarm_at=%#x analog=%s broker=%s heartbeat=%v",
		cfg.Panel.Poll, cfg.Panel.PreAlarm, cfg.Panel.AlarmAt, hw.analog, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	tick := time.NewTicker(time.Second / logic.TickRate)
	defer tick.Stop()
	refresh := time.NewTicker(time.Second)
	defer refresh.Stop()
	var heartbeat <-chan time.Time
	if cfg.MQTT.Heartbeat > 0 {
		hb := time.NewTicker(cfg.MQTT.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var reason string
	g.Go(func() error { return ctrl.Interrupts(gctx, tick.C) })
	g.Go(func() error { return ctrl.MainLoop(gctx, cfg.Panel.Poll) })
	g.Go(func() error { return queue.Run(gctx) })
	g.Go(func() error {
		reason = supervise(gctx, sigCh, heartbeat, refresh.C, publisher, publisher, tracker, time.Now)
		cancel()
		return nil
	})

	err = g.Wait()
	if errors.Is(err, controller.ErrReset) {
		return err
	}
	publishSystem(publisher, publisher, tracker, "SHUTDOWN", reason, time.Now())
	return err
}

// supervise publishes heartbeats and keeps the MQTT status current until a
// signal arrives or ctx ends. It returns the signal name, or "" if ctx
// ended first.
func supervise(ctx context.Context, sig <-chan os.Signal, heartbeat, refresh <-chan time.Time, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time) string {
	for {
		select {
		case <-ctx.Done():
			return ""

		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return signalName(s)

		case <-heartbeat:
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			c := snap.Counts
			log.Printf("heartbeat: uptime=%v pre_alarms=%d general_alarms=%d troubles=%d restores=%d",
				snap.Uptime().Truncate(time.Second), c.PreAlarms, c.GeneralAlarms, c.Troubles, c.Restores)
			publishSystem(publisher, mqttStatus, tracker, "HEARTBEAT", "", now())

		case <-refresh:
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}
}

// publishSystem publishes a system event carrying a full status snapshot.
// Heartbeats are not retained.
func publishSystem(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, event, reason string, t time.Time) {
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	snap := tracker.Snapshot()
	se := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := publisher.PublishSystem(se); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// printState reads the digital inputs and converts every configured
// channel once.
func printState(w io.Writer, in gpio.InputPort, conv adc.Converter, channels []logic.ChannelSpec, cls logic.Classifier) error {
	inputs, err := in.Read()
	if err != nil {
		return fmt.Errorf("read inputs: %w", err)
	}
	fmt.Fprintf(w, "reset=%s acknowledge=%s silence=%s function=%s ac_power=%s\n",
		pressed(inputs.Reset), pressed(inputs.Acknowledge), pressed(inputs.Silence), pressed(inputs.Function),
		acPower(inputs.ACPowerLoss))

	for _, ch := range channels {
		if err := conv.Start(ch.Input); err != nil {
			return fmt.Errorf("start input %d: %w", ch.Input, err)
		}
		var s adc.Sample
		select {
		case s = <-conv.Done():
		case <-time.After(time.Second):
			return fmt.Errorf("input %d: conversion timed out", ch.Input)
		}
		if s.Err != nil {
			fmt.Fprintf(w, "%s %d (input %d): error: %v\n", ch.Family, ch.Circuit+1, ch.Input, s.Err)
			continue
		}
		fmt.Fprintf(w, "%s %d (input %d): %#05x %s\n", ch.Family, ch.Circuit+1, ch.Input, s.Raw, className(cls.Classify(ch.Family, s.Raw)))
	}
	return nil
}

func pressed(on bool) string {
	if on {
		return "DOWN"
	}
	return "UP"
}

func acPower(lost bool) string {
	if lost {
		return "LOST"
	}
	return "OK"
}

func className(c logic.Class) string {
	switch {
	case c&logic.ClassAlarm != 0:
		return "ALARM"
	case c&logic.ClassTrouble != 0:
		return "TROUBLE"
	}
	return "NORMAL"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
