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
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/streamchat/internal/core"
	"github.com/vovakirdan/streamchat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

type frame struct {
	Type         string          `json:"type"`
	Notification string          `json:"notification"`
	RequestUID   json.RawMessage `json:"requestUid"`
	Data         json.RawMessage `json:"data"`
	Err          json.RawMessage `json:"err"`
}

func run() error {
	lookup := flag.String("lookup", "http://localhost:8080", "lookup server address")
	host := flag.String("host", "localhost", "host the worker ports are reachable on")
	room := flag.String("room", "smoke", "room id")
	salt := flag.String("salt", "change-me", "join signature salt")
	user := flag.String("user", "tester", "broadcaster name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	port, err := lookupPort(ctx, *lookup, *room)
	if err != nil {
		return err
	}
	fmt.Printf("room %s is served on port %d\n", *room, port)

	wsURL := fmt.Sprintf("ws://%s:%d/?roomId=%s", *host, port, url.QueryEscape(*room))
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	join := core.JoinParams{
		ID:   core.Text(*user),
		Name: core.Text(*user),
		Role: core.RoleBroadcaster,
	}
	join.Sign(*salt)
	if err := send(ctx, conn, core.ActionJoin, 1, join); err != nil {
		return err
	}
	if err := send(ctx, conn, core.ActionSendMessage, 2, map[string]string{
		"type":    core.MessagePublic,
		"message": *text,
	}); err != nil {
		return err
	}

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received: type=%s", f.Type)
		if f.Notification != "" {
			fmt.Printf(" notification=%s", f.Notification)
		}
		if len(f.RequestUID) > 0 {
			fmt.Printf(" requestUid=%s", f.RequestUID)
		}
		fmt.Println()
		if len(f.Err) > 0 {
			return fmt.Errorf("error reply: %s", f.Err)
		}
		if len(f.Data) > 0 {
			fmt.Printf("  data: %s\n", f.Data)
		}

		if f.Notification == core.NotificationMessageDelivered {
			return nil
		}
	}
}

func lookupPort(ctx context.Context, base, room string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/create?roomId="+url.QueryEscape(room), nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("lookup: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Port  int    `json:"port"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode lookup: %w", err)
	}
	if body.Port == 0 {
		return 0, fmt.Errorf("lookup: status %d %s", resp.StatusCode, body.Error)
	}
	return body.Port, nil
}

func send(ctx context.Context, conn *websocket.Conn, action string, uid int, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", action, err)
	}
	frame := proto.Inbound{
		Action:     action,
		RequestUID: json.RawMessage(fmt.Sprint(uid)),
		Params:     raw,
	}
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		return fmt.Errorf("send %s: %w", action, err)
	}
	return nil
}
