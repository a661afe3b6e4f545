package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"stagehand/internal/logging"
	"stagehand/internal/services/youtube"
	"stagehand/internal/store"
	"stagehand/internal/testsupport"
)

func startTestDaemon(t *testing.T, client *testsupport.FakeBroadcastClient) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	dialer := &testsupport.FlakyDialer{}

	d, err := New(Deps{
		Config: cfg,
		Store:  st,
		Logger: logging.NewNop(),
		Client: client,
		Dialer: dialer.Dial,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func getBody(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func TestAPIStatusEndpoint(t *testing.T) {
	d := startTestDaemon(t, testsupport.NewFakeBroadcastClient())
	base := "http://" + d.api.addr()

	code, body := getBody(t, base+"/api/status")
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	var payload statusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !payload.Running || !payload.ClockRunning {
		t.Fatalf("unexpected status payload: %#v", payload)
	}
	if payload.Timezone != "America/New_York" {
		t.Fatalf("timezone = %q", payload.Timezone)
	}
}

func TestAPIBroadcastsAndActionsEndpoints(t *testing.T) {
	client := testsupport.NewFakeBroadcastClient()
	client.ScheduledFunc = func(ctx context.Context) ([]*youtube.Broadcast, error) {
		return []*youtube.Broadcast{
			{ID: "bc-1", Title: "Show", Status: youtube.StatusReady, ScheduledStart: time.Now().Add(time.Hour)},
		}, nil
	}
	d := startTestDaemon(t, client)
	base := "http://" + d.api.addr()

	testsupport.NewAction(t, d.store, "bc-1", store.ActionStart, time.Now().Add(time.Hour))

	code, body := getBody(t, base+"/api/broadcasts")
	if code != http.StatusOK || !strings.Contains(string(body), "bc-1") {
		t.Fatalf("broadcasts response %d: %s", code, body)
	}

	code, body = getBody(t, base+"/api/actions?broadcast=bc-1")
	if code != http.StatusOK || !strings.Contains(string(body), `"kind":"start"`) {
		t.Fatalf("actions response %d: %s", code, body)
	}
}

func TestAPIMetricsEndpoint(t *testing.T) {
	d := startTestDaemon(t, testsupport.NewFakeBroadcastClient())
	base := "http://" + d.api.addr()

	testsupport.NewAction(t, d.store, "bc-1", store.ActionEnd, time.Now().Add(time.Hour))
	d.registry.Schedule(store.Action{ID: "gauge-probe", BroadcastID: "bc-1", Kind: store.ActionEnd, At: time.Now().Add(time.Hour)})

	code, body := getBody(t, base+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("metrics code = %d", code)
	}
	if !strings.Contains(string(body), "stagehand_pending_actions") {
		t.Fatalf("metrics missing pending actions gauge: %s", body)
	}
}
