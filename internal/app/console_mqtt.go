package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/ringdrop/internal/config"
	"github.com/relabs-tech/ringdrop/internal/telemetry"
)

func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	trialToken := client.Subscribe(cfg.TopicTrial, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m telemetry.TrialMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("console: trial unmarshal error: %v", err)
			return
		}
		printTrial(os.Stdout, m)
	})
	trialToken.Wait()
	if trialToken.Error() != nil {
		return trialToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicTrial)

	summaryToken := client.Subscribe(cfg.TopicSummary, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m telemetry.SummaryMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("console: summary unmarshal error: %v", err)
			return
		}
		printSummary(os.Stdout, m)
	})
	summaryToken.Wait()
	if summaryToken.Error() != nil {
		return summaryToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSummary)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func printTrial(w io.Writer, m telemetry.TrialMessage) {
	fmt.Fprintf(w,
		"[TRIAL] %3d/%-3d trough=%s  temp=%s  hum=%s  %s\n",
		m.Run, m.Total, fmtPtr(m.Trough, "%7.2f°"), fmtPtr(m.Temp, "%5.1f°C"), fmtPtr(m.Hum, "%4.1f%%"), m.File,
	)
}

func printSummary(w io.Writer, m telemetry.SummaryMessage) {
	verdict := "OK"
	if !m.RangeOK {
		verdict = "FAIL"
	}
	fmt.Fprintf(w,
		"[RESULT] %s  mean=%s  range=%s (%s)  excluded=%d (%.1f%%)\n",
		m.Label, fmtPtr(m.OverallMean, "%.3f°"), fmtPtr(m.Range, "%.3f°"), verdict, len(m.Excluded), m.ExcludedPct,
	)
	for _, b := range m.Blocks {
		fmt.Fprintf(w, "         block %d runs %d-%d  center=%s  mean=%s  excluded=%v\n",
			b.Index+1, b.FirstRun, b.LastRun, fmtPtr(b.Center, "%.2f°"), fmtPtr(b.Mean, "%.2f°"), b.Excluded)
	}
}

func fmtPtr(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
