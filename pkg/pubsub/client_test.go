package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
)

func TestConfiguredSkipsBlankNames(t *testing.T) {
	c := &Client{cfg: config.PubSubConfig{
		NotificationTopic:        "tf-notification-events",
		NotificationSubscription: "  ",
		FulfillmentTopic:         " tf-fulfillment-events ",
	}}
	got := c.configured()
	if len(got) != 2 {
		t.Fatalf("expected two resources, got %+v", got)
	}
	if got[1].kind != kindTopic || got[1].name != "tf-fulfillment-events" {
		t.Fatalf("unexpected resource %+v", got[1])
	}
}

func TestResourceName(t *testing.T) {
	c := &Client{projectID: "tradeflow-dev"}
	cases := []struct {
		kind resourceKind
		in   string
		want string
	}{
		{kindSubscription, "notif-sub", "projects/tradeflow-dev/subscriptions/notif-sub"},
		{kindSubscription, "projects/other/subscriptions/x", "projects/other/subscriptions/x"},
		{kindTopic, "tf-fulfillment-events", "projects/tradeflow-dev/topics/tf-fulfillment-events"},
		// a subscription path is not a topic path
		{kindTopic, "projects/other/subscriptions/x", "projects/tradeflow-dev/topics/projects/other/subscriptions/x"},
		{kindTopic, " ", ""},
	}
	for _, tc := range cases {
		if got := c.resourceName(tc.kind, tc.in); got != tc.want {
			t.Fatalf("resourceName(%s, %q) = %q, want %q", tc.kind, tc.in, got, tc.want)
		}
	}
	if got := (&Client{}).resourceName(kindTopic, "t"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.Publisher("x") != nil || c.Subscription("x") != nil {
		t.Fatal("expected nil handles from nil client")
	}
	if err := c.Ping(context.Background()); err != errNotInitialized {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
}
