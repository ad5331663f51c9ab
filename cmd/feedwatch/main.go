// Command feedwatch signs in and prints the realtime events the server
// pushes to that user over the websocket stream.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sociallink/internal/clientstate"
	"sociallink/internal/notifications"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	email := flag.String("email", "", "Sign-in email (omit to reuse the saved session)")
	password := flag.String("password", "password123", "Sign-in password")
	sessionPath := flag.String("session", "", "Session file (default: user config dir)")
	ping := flag.Duration("ping", 25*time.Second, "Ping interval")
	raw := flag.Bool("raw", false, "Print payloads without indentation")
	flag.Parse()

	path := *sessionPath
	if path == "" {
		p, err := clientstate.DefaultSessionPath()
		if err != nil {
			log.Fatalf("❌ session path: %v", err)
		}
		path = p
	}
	session, err := clientstate.NewSession(clientstate.FileSessionStore{Path: path})
	if err != nil {
		log.Fatalf("❌ load session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := clientstate.NewAPIClient(fmt.Sprintf("http://%s/api", *host), session)
	if *email != "" {
		if _, _, err := api.Login(ctx, *email, *password); err != nil {
			log.Fatalf("❌ Login failed: %v", err)
		}
	} else if !session.SignedIn() {
		log.Fatal("❌ no saved session; pass -email to sign in")
	}
	me, err := api.Me(ctx)
	if err != nil {
		log.Fatalf("❌ session rejected: %v", err)
	}
	log.Printf("✅ Watching events for %s (id %d)", me.Name, me.ID)

	backoff := time.Second
	for ctx.Err() == nil {
		start := time.Now()
		err := watch(ctx, *host, session.Token(), *ping, *raw)
		if ctx.Err() != nil {
			break
		}
		if time.Since(start) > time.Minute {
			backoff = time.Second
		}
		log.Printf("⚠️  stream closed: %v; reconnecting in %s", err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
	log.Println("🛑 Stopped")
}

func watch(ctx context.Context, host, token string, ping time.Duration, raw bool) error {
	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws"}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	c, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	done := make(chan error, 1)
	go func() {
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			printEvent(msg, raw)
		}
	}()

	ticker := time.NewTicker(ping)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case err := <-done:
			return err
		case <-ticker.C:
			if err := c.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
				return err
			}
		}
	}
}

func printEvent(msg []byte, raw bool) {
	var ev notifications.Event
	if err := json.Unmarshal(msg, &ev); err != nil || ev.Type == "" {
		log.Printf("? %s", msg)
		return
	}
	if ev.Type == "pong" {
		return
	}
	payload := []byte(ev.Payload)
	if !raw {
		var v any
		if json.Unmarshal(ev.Payload, &v) == nil {
			if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
				payload = pretty
			}
		}
	}
	log.Printf("%s %s\n%s", eventIcon(ev.Type), ev.Type, payload)
}

func eventIcon(t string) string {
	switch t {
	case notifications.EventFriendRequestReceived:
		return "👋"
	case notifications.EventFriendRequestAccepted:
		return "🤝"
	case notifications.EventCommentCreated:
		return "💬"
	case notifications.EventPostLiked:
		return "❤️"
	default:
		return "•"
	}
}
