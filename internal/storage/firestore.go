package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const DefaultCollection = "tasks"

type taskDoc struct {
	Text     string `firestore:"text"`
	Done     bool   `firestore:"done"`
	Priority string `firestore:"priority"`
}

func docFromTask(t Task) taskDoc {
	return taskDoc{Text: t.Text, Done: t.Done, Priority: t.Priority.String()}
}

// FirestoreStore keeps tasks as documents in a single Firestore collection.
type FirestoreStore struct {
	client *firestore.Client
	col    *firestore.CollectionRef
	log    *slog.Logger
}

// OpenFirestore authenticates with a service-account key file. An empty
// projectID is detected from the credentials.
func OpenFirestore(ctx context.Context, credentialsFile, projectID, collection string, logger *slog.Logger) (*FirestoreStore, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	if collection == "" {
		collection = DefaultCollection
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to firestore: %w", err)
	}
	return NewFirestore(client, collection, logger), nil
}

// NewFirestore wraps an existing client.
func NewFirestore(client *firestore.Client, collection string, logger *slog.Logger) *FirestoreStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FirestoreStore{
		client: client,
		col:    client.Collection(collection),
		log:    logger,
	}
}

func (s *FirestoreStore) LoadAll(ctx context.Context) ([]Task, error) {
	iter := s.col.Documents(ctx)
	defer iter.Stop()

	var tasks []Task
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loading tasks: %w", err)
		}
		var doc taskDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decoding task %s: %w", snap.Ref.ID, err)
		}
		tasks = append(tasks, Task{
			ID:       snap.Ref.ID,
			Text:     doc.Text,
			Done:     doc.Done,
			Priority: Priority(doc.Priority).Normalize(),
		})
	}
	s.log.Debug("loaded tasks", "count", len(tasks))
	return tasks, nil
}

func (s *FirestoreStore) Save(ctx context.Context, t *Task) error {
	ref := s.col.NewDoc()
	if t.ID != "" {
		ref = s.col.Doc(t.ID)
	}
	if _, err := ref.Set(ctx, docFromTask(*t)); err != nil {
		return fmt.Errorf("saving task %s: %w", ref.ID, err)
	}
	t.ID = ref.ID
	s.log.Debug("saved task", "id", t.ID)
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, t Task) error {
	if t.ID == "" {
		return nil
	}
	if _, err := s.col.Doc(t.ID).Delete(ctx); err != nil {
		return fmt.Errorf("deleting task %s: %w", t.ID, err)
	}
	s.log.Debug("deleted task", "id", t.ID)
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
