package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	StreamName         = "GONDI"
	subjectPrefix      = "gondi"
	jetstreamRetention = 6 * time.Hour
)

// NATS publishes events to gondi.<session>.<kind>. With JetStream available
// the events land in the GONDI stream; otherwise they go out as core NATS
// messages.
type NATS struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	log *zap.Logger
}

// Connect dials url and makes sure the GONDI stream exists. A server without
// JetStream is not an error.
func Connect(url string, log *zap.Logger) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("gondi"))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	n := &NATS{nc: nc, log: log}

	js, err := nc.JetStream()
	if err != nil {
		log.Warn("running without JetStream, events are not persisted", zap.Error(err))
		return n, nil
	}

	streamConfig := &nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   jetstreamRetention,
	}
	if _, err := js.StreamInfo(streamConfig.Name); err != nil {
		_, err = js.AddStream(streamConfig)
		if err != nil {
			log.Warn("create stream failed, events are not persisted", zap.String("stream", StreamName), zap.Error(err))
			return n, nil
		}
		log.Info("created stream", zap.String("stream", StreamName))
	} else if _, err := js.UpdateStream(streamConfig); err != nil {
		log.Warn("update stream failed", zap.String("stream", StreamName), zap.Error(err))
	}
	n.js = js
	return n, nil
}

func Subject(ev Event) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, ev.SessionID, ev.Kind)
}

func (n *NATS) Publish(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	subject := Subject(ev)
	if n.js != nil {
		if _, err := n.js.Publish(subject, data, nats.Context(ctx)); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
		return nil
	}
	return n.nc.Publish(subject, data)
}

func (n *NATS) Close() error {
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
		return err
	}
	return nil
}
