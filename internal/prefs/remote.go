package prefs

import (
	"context"
	"fmt"

	"github.com/dgallion1/tocbar/internal/pathstore"
)

// RemoteStore keeps preferences in a pathstore service.
type RemoteStore struct {
	client *pathstore.Client
}

func NewRemoteStore(client *pathstore.Client) *RemoteStore {
	return &RemoteStore{client: client}
}

func (s *RemoteStore) Get(ctx context.Context, key string) (string, bool, error) {
	node, err := s.client.GetNode(ctx, key)
	if err != nil {
		return "", false, err
	}
	if node == nil {
		return "", false, nil
	}
	v, ok := node.Value.(string)
	if !ok {
		return "", false, fmt.Errorf("pref %s: expected string value, got %T", key, node.Value)
	}
	return v, true, nil
}

func (s *RemoteStore) Set(ctx context.Context, key, value string) error {
	return s.client.PutNode(ctx, key, pathstore.NodeRequest{
		Value:      value,
		MemoryType: "preference",
		Source:     "tocbar",
	})
}
