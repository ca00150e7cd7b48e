package firestore

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/runcoach/analysis/pkg/domain/trainingload"
)

// AthleteStateStore persists training-load state in Firestore. It
// implements trainingload.Store.
type AthleteStateStore struct {
	client *Client
}

func NewAthleteStateStore(client *Client) *AthleteStateStore {
	return &AthleteStateStore{client: client}
}

func (s *AthleteStateStore) Load(ctx context.Context, athleteID string) (*trainingload.State, error) {
	st, err := s.client.LoadStates().Doc(athleteID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return st, nil
}

func (s *AthleteStateStore) Save(ctx context.Context, athleteID string, state *trainingload.State) error {
	return s.client.LoadStates().Doc(athleteID).Set(ctx, state)
}
