package worker

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/pagestreamhq/pagestream/protocol"
)

const webhookTimeout = 30 * time.Second

// NotifierClient delivers seeded_event envelopes to the notifier's internal
// webhook endpoints.
type NotifierClient struct {
	baseURL string
	client  *http.Client
}

// NewNotifierClient reads the notifier address from NOTIFIER_BASE_URL.
func NewNotifierClient() *NotifierClient {
	return NewCustomNotifierClient(os.Getenv("NOTIFIER_BASE_URL"))
}

func NewCustomNotifierClient(baseURL string) *NotifierClient {
	return &NotifierClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: webhookTimeout},
	}
}

func (n *NotifierClient) Notify(kind protocol.Kind, externalId string) error {
	envelope := protocol.WebhookEnvelope{
		Event: protocol.SeededEvent,
		Id:    externalId,
	}
	body, err := json.Marshal(&envelope)
	if err != nil {
		return err
	}

	res, err := n.client.Post(n.baseURL+"/api/v1"+kind.WebhookPath(), "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return errors.Errorf("webhook returned status %d", res.StatusCode)
	}
	return nil
}
