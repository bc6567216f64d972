// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package publish

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT publishes samples as JSON to <topic>/<sensor>.
type MQTT struct {
	client mqtt.Client
	topic  string
}

// DialMQTT connects to broker.
func DialMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return NewMQTT(client, topic), nil
}

// NewMQTT wraps a connected client.
func NewMQTT(client mqtt.Client, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

// Publish sends m. Samples are not retained.
func (p *MQTT) Publish(m *Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return p.send(p.topic+"/"+m.Sensor, false, payload)
}

// Info is the retained description of a sensor.
type Info struct {
	Sensor  string `json:"sensor"`
	Chip    string `json:"chip"`
	Version string `json:"version"`
}

// PublishInfo sends the retained description to <topic>/<sensor>/info.
func (p *MQTT) PublishInfo(i *Info) error {
	payload, err := json.Marshal(i)
	if err != nil {
		return err
	}
	return p.send(p.topic+"/"+i.Sensor+"/info", true, payload)
}

func (p *MQTT) send(topic string, retained bool, payload []byte) error {
	if token := p.client.Publish(topic, 0, retained, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTT) Close() error {
	p.client.Disconnect(250)
	return nil
}
