package webhook_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/agendabot/internal/datetime"
	"github.com/user/agendabot/internal/delivery"
	"github.com/user/agendabot/internal/dispatch"
	"github.com/user/agendabot/internal/gateway"
	"github.com/user/agendabot/internal/state"
	"github.com/user/agendabot/internal/types"
	"github.com/user/agendabot/internal/webhook"
	"github.com/user/agendabot/internal/whatsapp"
)

// cloudAPI records messages posted to a fake WhatsApp Cloud API.
type cloudAPI struct {
	mu     sync.Mutex
	bodies []string
}

func (c *cloudAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msg struct {
		To   string `json:"to"`
		Text struct {
			Body string `json:"body"`
		} `json:"text"`
	}
	json.NewDecoder(r.Body).Decode(&msg)
	c.mu.Lock()
	c.bodies = append(c.bodies, msg.To+"|"+msg.Text.Body)
	c.mu.Unlock()
	w.Write([]byte(`{}`))
}

func (c *cloudAPI) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.bodies) >= n {
			out := append([]string(nil), c.bodies...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d replies", n)
	return nil
}

func notification(from, text string) string {
	body, _ := json.Marshal(text)
	return fmt.Sprintf(`{"entry":[{"changes":[{"value":{"messages":[{"from":%q,"type":"text","text":{"body":%s}}]}}]}]}`, from, body)
}

func TestWhatsAppConversation(t *testing.T) {
	loc := time.FixedZone("UTC-05:00", -5*60*60)
	now := time.Date(2026, 10, 17, 7, 0, 0, 0, loc)

	api := &cloudAPI{}
	apiSrv := httptest.NewServer(api)
	defer apiSrv.Close()

	store := state.NewCalendarStore(filepath.Join(t.TempDir(), "calendar.ics"), loc)
	reg := delivery.NewRegistry()
	reg.Register(whatsapp.Channel+":", whatsapp.NewClient(apiSrv.URL, "1234", "token").Send)
	d := dispatch.New(store, reg, datetime.NewResolver(loc), dispatch.WithClock(func() time.Time { return now }))

	gw := gateway.New(func(ctx context.Context, msg types.Message) error {
		return d.Process(ctx, msg).Err
	})
	gw.Start(context.Background())
	defer gw.Stop()

	srv := httptest.NewServer(webhook.NewServer(gw.HandleInbound, func(ctx context.Context, msg types.Message) (string, error) {
		res := d.Handle(ctx, msg)
		return res.Reply, res.Err
	}))
	defer srv.Close()

	post := func(text string) {
		t.Helper()
		resp, err := http.Post(srv.URL+"/webhook/whatsapp", "application/json", strings.NewReader(notification("51955250357", text)))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%q: status %d", text, resp.StatusCode)
		}
	}

	post("reunión con Ana mañana a las 3pm")
	replies := api.waitFor(t, 1)
	if !strings.HasPrefix(replies[0], "51955250357|✅") || !strings.Contains(replies[0], "Reunión") {
		t.Fatalf("create reply = %q", replies[0])
	}

	post("qué tengo mañana")
	replies = api.waitFor(t, 2)
	if !strings.Contains(replies[1], "15:00") || !strings.Contains(replies[1], "*Total:* 1 citas") {
		t.Errorf("query reply = %q", replies[1])
	}

	post("eliminar reunión")
	replies = api.waitFor(t, 3)
	if !strings.Contains(replies[2], "eliminada") {
		t.Errorf("delete reply = %q", replies[2])
	}

	events, err := store.List(context.Background(), now, now.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("calendar still holds %+v", events)
	}

	// The ad-hoc endpoint answers in the HTTP response and sends nothing.
	resp, err := http.Post(srv.URL+"/webhook", "application/json",
		strings.NewReader(`{"sender":"http:test","text":"qué tengo hoy"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["response"] == "" {
		t.Error("empty ad-hoc response")
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(api.waitFor(t, 3)); n != 3 {
		t.Errorf("ad-hoc request produced an outbound send (%d total)", n)
	}
}
