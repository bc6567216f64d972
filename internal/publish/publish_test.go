// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package publish

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"periph.io/x/conn/v3/physic"
)

var sample = tof.Sample{
	Time:        time.Second,
	Distance:    1044 * physic.MilliMetre,
	Status:      tof.StatusConfident,
	Confidence:  100,
	Objects:     1,
	AmbientRate: 5,
	Near:        1034 * physic.MilliMetre,
	Far:         1054 * physic.MilliMetre,
}

func TestNewMessage(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	got := NewMessage("left", &sample, now)
	want := Message{
		Sensor:      "left",
		Timestamp:   1700000000123,
		Millimetre:  1044,
		Status:      "confident",
		Confidence:  100,
		Objects:     1,
		AmbientRate: 5,
		NearMM:      1034,
		FarMM:       1054,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewMessage() (-want +got):\n%s", diff)
	}
}

type published struct {
	topic    string
	retained bool
	payload  string
}

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
func (t *fakeToken) Error() error { return t.err }

// fakeClient records publications. Calling any other method panics.
type fakeClient struct {
	mqtt.Client
	sent         []published
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic, retained, string(payload.([]byte))})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func TestMQTT(t *testing.T) {
	c := &fakeClient{}
	p := NewMQTT(c, "tof")
	m := NewMessage("left", &sample, time.UnixMilli(1))
	if err := p.Publish(&m); err != nil {
		t.Fatal(err)
	}
	if err := p.PublishInfo(&Info{Sensor: "left", Chip: "vi5300", Version: "resident"}); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	want := []published{
		{"tof/left", false, `{"sensor":"left","timestamp_ms":1,"distance_mm":1044,"status":"confident","confidence":100,"objects":1,"ambient_rate":5,"near_mm":1034,"far_mm":1054}`},
		{"tof/left/info", true, `{"sensor":"left","chip":"vi5300","version":"resident"}`},
	}
	if diff := cmp.Diff(want, c.sent, cmp.AllowUnexported(published{})); diff != "" {
		t.Errorf("published (-want +got):\n%s", diff)
	}
	if !c.disconnected {
		t.Error("Close() did not disconnect")
	}
}

func TestMQTTError(t *testing.T) {
	broker := errors.New("not connected")
	p := NewMQTT(&fakeClient{err: broker}, "tof")
	m := NewMessage("left", &sample, time.Now())
	if err := p.Publish(&m); !errors.Is(err, broker) {
		t.Errorf("Publish() = %v, want %v", err, broker)
	}
}

type failing struct {
	n      int
	closed bool
}

func (f *failing) Publish(*Message) error {
	f.n++
	return errors.New("failing")
}

func (f *failing) Close() error {
	f.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	a, b := &failing{}, &failing{}
	p := Multi{a, b}
	m := NewMessage("left", &sample, time.Now())
	if err := p.Publish(&m); err == nil {
		t.Error("Publish() succeeded")
	}
	if a.n != 1 || b.n != 1 {
		t.Errorf("published %d and %d times, want 1 each", a.n, b.n)
	}
	if err := p.Close(); err != nil || !a.closed || !b.closed {
		t.Errorf("Close() = %v, closed %t %t", err, a.closed, b.closed)
	}
}

func dial(t *testing.T, h *Hub, server *httptest.Server) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:]+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	deadline := time.Now().Add(5 * time.Second)
	for h.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return conn
}

func TestHub(t *testing.T) {
	h := NewHub(nil)
	server := httptest.NewServer(h)
	defer server.Close()
	conn := dial(t, h, server)

	m := NewMessage("right", &sample, time.UnixMilli(42))
	if err := h.Publish(&m); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("websocket message (-want +got):\n%s", diff)
	}

	resp, err := http.Get(server.URL + "/api/samples")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var latest []Message
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Message{m}, latest); diff != "" {
		t.Errorf("/api/samples (-want +got):\n%s", diff)
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub(nil)
	server := httptest.NewServer(h)
	defer server.Close()
	conn := dial(t, h, server)
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if h.Clients() != 0 {
		t.Errorf("Clients() = %d after Close", h.Clients())
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("ReadMessage() succeeded after Close")
	}
}
