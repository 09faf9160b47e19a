package profile

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const profilesCollection = "userProfiles"

// FirestoreRepository stores profiles in the userProfiles collection, one
// document per identity.
type FirestoreRepository struct {
	client *firestore.Client
}

func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{client: client}
}

type profileDoc struct {
	Username  string `firestore:"username"`
	CreatedAt string `firestore:"createdAt"`
	UpdatedAt string `firestore:"updatedAt"`
}

func (r *FirestoreRepository) Get(ctx context.Context, identity string) (Profile, bool, error) {
	snap, err := r.client.Collection(profilesCollection).Doc(identity).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, fmt.Errorf("get profile %s: %w", identity, err)
	}

	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return Profile{}, false, fmt.Errorf("decode profile %s: %w", identity, err)
	}
	return Profile{
		Username:  doc.Username,
		CreatedAt: parseStamp(doc.CreatedAt),
		UpdatedAt: parseStamp(doc.UpdatedAt),
	}, true, nil
}

// Set merges so fields left zero keep their stored value.
func (r *FirestoreRepository) Set(ctx context.Context, identity string, p Profile) error {
	data := map[string]interface{}{}
	if p.Username != "" {
		data["username"] = p.Username
	}
	if !p.CreatedAt.IsZero() {
		data["createdAt"] = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		data["updatedAt"] = p.UpdatedAt.UTC().Format(time.RFC3339)
	}

	_, err := r.client.Collection(profilesCollection).Doc(identity).Set(ctx, data, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("set profile %s: %w", identity, err)
	}
	return nil
}

func parseStamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
