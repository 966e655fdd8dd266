// Command loadgen exercises a running chatty server. It connects a batch of
// websocket subscribers to one chatroom, posts messages through the REST API,
// and reports how long fan-out took to reach every subscriber.
//
// Usage:
//
//	loadgen -url http://localhost:8000 -clients 50 -messages 20
//
// The target chatroom and user are created on the fly with a random suffix so
// repeated runs do not collide.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	baseURL  = flag.String("url", "http://localhost:8000", "Server base URL")
	clients  = flag.Int("clients", 10, "Number of websocket subscribers")
	messages = flag.Int("messages", 10, "Number of messages to post")
	timeout  = flag.Duration("timeout", 5*time.Second, "Per-message delivery timeout")
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags)

	userID, chatroomID, err := seed(*baseURL)
	if err != nil {
		log.Fatalf("seed fixtures: %v", err)
	}
	log.Printf("seeded user=%s chatroom=%s", userID, chatroomID)

	conns := make([]*websocket.Conn, 0, *clients)
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	wsURL := "ws" + strings.TrimPrefix(*baseURL, "http") + "/ws"
	for i := 0; i < *clients; i++ {
		conn, err := subscribe(wsURL, userID, chatroomID)
		if err != nil {
			log.Fatalf("subscriber %d: %v", i, err)
		}
		conns = append(conns, conn)
	}
	log.Printf("connected %d subscribers", len(conns))

	var latencies []time.Duration
	for i := 0; i < *messages; i++ {
		d, err := postAndAwait(conns, userID, chatroomID, i)
		if err != nil {
			log.Fatalf("message %d: %v", i, err)
		}
		latencies = append(latencies, d)
	}

	report(latencies, len(conns))
}

// seed creates a throwaway user and chatroom for this run.
func seed(base string) (userID, chatroomID string, err error) {
	suffix := strings.ReplaceAll(uuid.NewString()[:8], "-", "")

	userID, err = createEntity(base+"/users", map[string]string{
		"name":   "Load Generator",
		"handle": "loadgen_" + suffix,
	})
	if err != nil {
		return "", "", fmt.Errorf("create user: %w", err)
	}

	chatroomID, err = createEntity(base+"/chatrooms", map[string]string{
		"name": "loadgen_" + suffix,
	})
	if err != nil {
		return "", "", fmt.Errorf("create chatroom: %w", err)
	}
	return userID, chatroomID, nil
}

func createEntity(url string, body map[string]string) (string, error) {
	payload, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// subscribe dials the websocket endpoint, joins the chatroom, and waits for
// the joined confirmation.
func subscribe(wsURL, userID, chatroomID string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}

	join := fmt.Sprintf(`{"event":"join","data":{"user_id":%q,"chatroom_id":%q}}`, userID, chatroomID)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(join)); err != nil {
		conn.Close()
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(*timeout))
	var ack envelope
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read joined ack: %w", err)
	}
	if ack.Event != "joined" {
		conn.Close()
		return nil, fmt.Errorf("unexpected ack event %q", ack.Event)
	}
	return conn, nil
}

// postAndAwait posts one message and blocks until every subscriber has
// received the matching new_message event.
func postAndAwait(conns []*websocket.Conn, userID, chatroomID string, seq int) (time.Duration, error) {
	payload, _ := json.Marshal(map[string]any{
		"message_text": fmt.Sprintf("load message %d", seq),
		"user_id":      userID,
		"chatroom_id":  chatroomID,
	})

	start := time.Now()
	resp, err := http.Post(*baseURL+"/messages", "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("post status %d", resp.StatusCode)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(conns))
	for _, conn := range conns {
		wg.Add(1)
		go func(c *websocket.Conn) {
			defer wg.Done()
			c.SetReadDeadline(time.Now().Add(*timeout))
			var evt envelope
			if err := c.ReadJSON(&evt); err != nil {
				errs <- err
				return
			}
			if evt.Event != "new_message" {
				errs <- fmt.Errorf("unexpected event %q", evt.Event)
			}
		}(conn)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return 0, err
	}

	return time.Since(start), nil
}

func report(latencies []time.Duration, subscribers int) {
	if len(latencies) == 0 {
		fmt.Println("no messages delivered")
		os.Exit(1)
	}

	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	fmt.Printf("\n=== Fan-out results ===\n")
	fmt.Printf("subscribers: %d\n", subscribers)
	fmt.Printf("messages:    %d\n", len(latencies))
	fmt.Printf("min:         %s\n", sorted[0])
	fmt.Printf("p50:         %s\n", percentile(sorted, 50))
	fmt.Printf("p95:         %s\n", percentile(sorted, 95))
	fmt.Printf("max:         %s\n", sorted[len(sorted)-1])
}

// percentile expects a sorted slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * len(sorted) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
