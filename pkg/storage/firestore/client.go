// Package firestore provides typed collection access on top of the raw
// Firestore client.
package firestore

import (
	"cloud.google.com/go/firestore"

	"github.com/runcoach/analysis/pkg/domain/trainingload"
)

type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// LoadStates is a top-level collection: load_states/{athlete_id}
func (c *Client) LoadStates() *Collection[trainingload.State] {
	return &Collection[trainingload.State]{
		Ref:           c.fs.Collection("load_states"),
		ToFirestore:   LoadStateToFirestore,
		FromFirestore: FirestoreToLoadState,
	}
}
