package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendMulticastReceipts(t *testing.T) {
	var gotBatch []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBatch); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"status":"ok"},
			{"status":"error","message":"not registered","details":{"error":"DeviceNotRegistered"}},
			{"status":"error","message":"throttled","details":{"error":"MessageRateExceeded"}}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	tokens := []string{"tok-a", "tok-b", "tok-c"}
	receipts, err := client.SendMulticast(context.Background(), tokens, Message{
		Title: "Chat room is open!",
		Body:  "Han River chat room is open",
		Data:  map[string]string{"meetupId": "m1", "type": "chat_open"},
	})
	if err != nil {
		t.Fatalf("SendMulticast: %v", err)
	}

	if len(gotBatch) != 3 {
		t.Fatalf("expected one batched request with 3 entries, got %d", len(gotBatch))
	}
	if len(receipts) != 3 {
		t.Fatalf("expected 3 receipts, got %d", len(receipts))
	}
	if !receipts[0].OK || receipts[0].Token != "tok-a" {
		t.Errorf("first receipt = %+v", receipts[0])
	}
	if !receipts[1].PermanentFailure() {
		t.Errorf("DeviceNotRegistered should be a permanent failure: %+v", receipts[1])
	}
	if receipts[2].OK || receipts[2].PermanentFailure() {
		t.Errorf("rate limit is a transient failure: %+v", receipts[2])
	}
}

func TestSendMulticastEmptyTokens(t *testing.T) {
	client := NewClient("http://unused.invalid", time.Second)
	receipts, err := client.SendMulticast(context.Background(), nil, Message{Title: "x"})
	if err != nil || receipts != nil {
		t.Fatalf("empty token list should be a no-op, got %v, %v", receipts, err)
	}
}

func TestSendMulticastGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if _, err := client.SendMulticast(context.Background(), []string{"t"}, Message{}); err == nil {
		t.Fatal("expected error on non-200 gateway response")
	}
}
