package store

import (
	"context"
	"errors"
	"testing"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/io/storage"
	"github.com/datarhei/settings/log"

	"github.com/stretchr/testify/require"
)

type brokenStorage struct {
	storage.Adapter
}

func (b *brokenStorage) Read(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (b *brokenStorage) Write(ctx context.Context, key string, data []byte) error {
	return errors.New("disk on fire")
}

func TestNewJSONRequiresStorage(t *testing.T) {
	_, err := NewJSON(Config{})
	require.Error(t, err)
}

func TestLoadEmpty(t *testing.T) {
	s, err := NewJSON(Config{Storage: storage.NewMemory()})
	require.NoError(t, err)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, document.New(), doc)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	s, err := NewJSON(Config{Storage: mem})
	require.NoError(t, err)

	doc := document.Document{
		document.General:  document.Data{"hotelName": "Hotel Sahara", "starRating": float64(4)},
		document.Language: document.Data{"defaultLanguage": "fr", "currency": "DZD"},
	}

	require.NoError(t, s.Save(ctx, doc))

	raw, err := mem.Read(ctx, DocumentKey)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"hotelName": "Hotel Sahara"`)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, doc.Equal(loaded))

	require.NoError(t, s.Clear(ctx))

	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, len(loaded))
}

func TestLoadCorruptDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	buffer := log.NewBufferWriter(log.Lwarn, 10)

	require.NoError(t, mem.Write(ctx, DocumentKey, []byte(`{"general": {"hotelName": `)))

	s, err := NewJSON(Config{Storage: mem, Logger: log.New("store").WithOutput(buffer)})
	require.NoError(t, err)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, len(doc))

	events := buffer.Events()
	require.Equal(t, 1, len(events))
	require.Equal(t, log.Lwarn, events[0].Level)
}

func TestLoadIgnoresUnknownSections(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	require.NoError(t, mem.Write(ctx, DocumentKey, []byte(`{"general": {"hotelName": "A"}, "billing": {}, "security": null}`)))

	s, err := NewJSON(Config{Storage: mem})
	require.NoError(t, err)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, document.Document{
		document.General:  document.Data{"hotelName": "A"},
		document.Security: document.Data{},
	}, doc)
}

func TestPersistenceErrors(t *testing.T) {
	ctx := context.Background()

	s, err := NewJSON(Config{Storage: &brokenStorage{Adapter: storage.NewMemory()}})
	require.NoError(t, err)

	_, err = s.Load(ctx)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "read", perr.Op)
	require.Equal(t, DocumentKey, perr.Key)

	err = s.Save(ctx, document.New())
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "write", perr.Op)
	require.EqualError(t, err, "failed to write 'hotelSettings': disk on fire")
}
