package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/morezero/app2app-broker/internal/testutil"
)

func TestMsgHandler_RequestReply(t *testing.T) {
	nc, _ := testutil.StartNATS(t)
	disp, _ := newTestDispatcher()

	sub, err := nc.Subscribe("app2app.broker.test", disp.MsgHandler(context.Background(), 5*time.Second))
	if err != nil {
		t.Fatalf("%s - subscribe: %v", dispatchTestPrefix, err)
	}
	defer sub.Unsubscribe()

	msg, err := nc.Request("app2app.broker.test", []byte(`{"id":"h1","method":"health"}`), 5*time.Second)
	if err != nil {
		t.Fatalf("%s - request: %v", dispatchTestPrefix, err)
	}
	var resp BrokerResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("%s - decode: %v", dispatchTestPrefix, err)
	}
	if !resp.Ok || resp.ID != "h1" {
		t.Errorf("%s - unexpected response %+v", dispatchTestPrefix, resp)
	}

	msg, err = nc.Request("app2app.broker.test", []byte(`not json`), 5*time.Second)
	if err != nil {
		t.Fatalf("%s - request: %v", dispatchTestPrefix, err)
	}
	resp = BrokerResponse{}
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("%s - decode: %v", dispatchTestPrefix, err)
	}
	if resp.Ok || resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Errorf("%s - expected INVALID_REQUEST, got %+v", dispatchTestPrefix, resp.Error)
	}
}
