// Package firebase backs the document-store ports with Cloud Firestore,
// partitioned per identity under users/{uid}/transactions.
package firebase

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"khata/internal/core"
)

const (
	usersCollection        = "users"
	transactionsCollection = "transactions"
	profilesCollection     = "userProfiles"
)

// Client wraps a Firestore connection for the transaction and profile
// collections.
type Client struct {
	fs *firestore.Client
}

// NewClient initializes the Firebase app and opens Firestore. credentialsFile
// may be empty when ambient credentials are available.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*Client, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firestore: %w", err)
	}

	return &Client{fs: fs}, nil
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// Firestore exposes the underlying client for collaborators that share the
// connection (the profile service).
func (c *Client) Firestore() *firestore.Client {
	return c.fs
}

func (c *Client) transactions(identity string) *firestore.CollectionRef {
	return c.fs.Collection(usersCollection).Doc(identity).Collection(transactionsCollection)
}

// List returns the identity's full transaction set, newest date first.
func (c *Client) List(ctx context.Context, identity string) ([]core.Transaction, error) {
	docs, err := c.transactions(identity).
		OrderBy("date", firestore.Desc).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", identity, err)
	}

	txs := make([]core.Transaction, 0, len(docs))
	for _, doc := range docs {
		tx, err := decodeTransaction(doc)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed transaction document",
				"identity", identity, "doc_id", doc.Ref.ID, "error", err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Upsert writes one transaction with merge semantics: fields the write omits
// (creation stamps, edit history on a fresh client) keep their server-side
// values.
func (c *Client) Upsert(ctx context.Context, identity string, tx core.Transaction) error {
	data := encodeTransaction(tx)
	_, err := c.transactions(identity).Doc(tx.ID).Set(ctx, data, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("upsert transaction %s for %s: %w", tx.ID, identity, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, identity, id string) error {
	if _, err := c.transactions(identity).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete transaction %s for %s: %w", id, identity, err)
	}
	return nil
}

// Subscribe streams snapshot updates, pushing the full decoded list on every
// remote change. The returned function cancels the stream; no callback fires
// after it returns.
func (c *Client) Subscribe(identity string, fn func([]core.Transaction)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	query := c.transactions(identity).OrderBy("date", firestore.Desc)

	go func() {
		snaps := query.Snapshots(ctx)
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("Transaction subscription ended", "identity", identity, "error", err)
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				slog.Error("Failed to read subscription snapshot", "identity", identity, "error", err)
				continue
			}
			txs := make([]core.Transaction, 0, len(docs))
			for _, doc := range docs {
				tx, err := decodeTransaction(doc)
				if err != nil {
					slog.Warn("Skipping malformed transaction document",
						"identity", identity, "doc_id", doc.Ref.ID, "error", err)
					continue
				}
				txs = append(txs, tx)
			}
			if ctx.Err() != nil {
				return
			}
			fn(txs)
		}
	}()

	return cancel, nil
}
