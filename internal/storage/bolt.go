package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/conorfennell/notetaker/internal/domain"
)

var (
	bucketNotes  = []byte("notes")
	bucketTitles = []byte("noteTitle")
	bucketMeta   = []byte("meta")
	keyVersion   = []byte("version")
)

type boltStore struct {
	db           *bolt.DB
	path         string
	uniqueTitles bool
}

func openBolt(ctx context.Context, opts Options) (*boltStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(opts.Dir, opts.Name+".bolt")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w: %v", path, ErrUnavailable, err)
	}
	s := &boltStore{db: db, path: path, uniqueTitles: opts.UniqueTitles}
	if err := s.migrate(opts.Version); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *boltStore) migrate(version int) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return storageErr("create meta bucket", err)
		}
		current := 0
		if raw := meta.Get(keyVersion); raw != nil {
			if current, err = strconv.Atoi(string(raw)); err != nil {
				return storageErr("read schema version", err)
			}
		}
		if current > version {
			return fmt.Errorf("database %s is at version %d, requested %d: %w", s.path, current, version, ErrVersion)
		}
		if current < version {
			if _, err := tx.CreateBucketIfNotExists(bucketNotes); err != nil {
				return storageErr("create notes bucket", err)
			}
			if err := meta.Put(keyVersion, []byte(strconv.Itoa(version))); err != nil {
				return storageErr("record schema version", err)
			}
		}
		if s.uniqueTitles {
			return rebuildTitleIndex(tx)
		}
		return nil
	})
	return boltErr("migrate", err)
}

// rebuildTitleIndex recreates the title -> id bucket from the notes bucket so
// records written while the mode was off are covered too.
func rebuildTitleIndex(tx *bolt.Tx) error {
	if tx.Bucket(bucketTitles) != nil {
		if err := tx.DeleteBucket(bucketTitles); err != nil {
			return storageErr("reset title index", err)
		}
	}
	idx, err := tx.CreateBucket(bucketTitles)
	if err != nil {
		return storageErr("create title index", err)
	}
	return tx.Bucket(bucketNotes).ForEach(func(k, v []byte) error {
		var n domain.Note
		if err := decodeNote(v, &n); err != nil {
			return err
		}
		if idx.Get([]byte(n.Title)) != nil {
			return fmt.Errorf("enable unique titles: title %q: %w", n.Title, ErrConstraint)
		}
		return idx.Put([]byte(n.Title), k)
	})
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

func (s *boltStore) Get(ctx context.Context, id int64) (domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return domain.Note{}, err
	}
	var n domain.Note
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketNotes).Get(itob(id))
		if raw == nil {
			return fmt.Errorf("note %d: %w", id, ErrNotFound)
		}
		return decodeNote(raw, &n)
	})
	if err != nil {
		return domain.Note{}, boltErr(fmt.Sprintf("get note %d", id), err)
	}
	return n, nil
}

func (s *boltStore) Add(ctx context.Context, note domain.Note) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		seq, err := b.NextSequence()
		if err != nil {
			return storageErr("allocate note id", err)
		}
		note.ID = int64(seq)
		if err := s.indexTitle(tx, note, nil); err != nil {
			return err
		}
		return putNote(b, note)
	})
	if err != nil {
		return 0, boltErr("add note", err)
	}
	return note.ID, nil
}

func (s *boltStore) Put(ctx context.Context, note domain.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if note.ID <= 0 {
		return fmt.Errorf("put note with id %d: %w", note.ID, ErrStorage)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		var previous *domain.Note
		if raw := b.Get(itob(note.ID)); raw != nil {
			var p domain.Note
			if err := decodeNote(raw, &p); err != nil {
				return err
			}
			previous = &p
		}
		if err := s.indexTitle(tx, note, previous); err != nil {
			return err
		}
		// Keep the sequence ahead of explicit ids so Add never hands one out twice.
		if uint64(note.ID) > b.Sequence() {
			if err := b.SetSequence(uint64(note.ID)); err != nil {
				return storageErr("advance note sequence", err)
			}
		}
		return putNote(b, note)
	})
	return boltErr(fmt.Sprintf("put note %d", note.ID), err)
}

func (s *boltStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		key := itob(id)
		raw := b.Get(key)
		if raw == nil {
			return nil
		}
		if s.uniqueTitles {
			var n domain.Note
			if err := decodeNote(raw, &n); err != nil {
				return err
			}
			idx := tx.Bucket(bucketTitles)
			if owner := idx.Get([]byte(n.Title)); owner != nil && btoi(owner) == id {
				if err := idx.Delete([]byte(n.Title)); err != nil {
					return storageErr(fmt.Sprintf("unindex note %d", id), err)
				}
			}
		}
		if err := b.Delete(key); err != nil {
			return storageErr(fmt.Sprintf("delete note %d", id), err)
		}
		return nil
	})
	return boltErr(fmt.Sprintf("delete note %d", id), err)
}

func (s *boltStore) Scan(ctx context.Context) iter.Seq2[domain.Note, error] {
	return pagedScan(ctx, s.page)
}

func (s *boltStore) page(_ context.Context, after int64, limit int) ([]domain.Note, error) {
	var notes []domain.Note
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketNotes).Cursor()
		for k, v := c.Seek(itob(after + 1)); k != nil && len(notes) < limit; k, v = c.Next() {
			var n domain.Note
			if err := decodeNote(v, &n); err != nil {
				return err
			}
			notes = append(notes, n)
		}
		return nil
	})
	if err != nil {
		return nil, boltErr("scan notes", err)
	}
	return notes, nil
}

func (s *boltStore) Drop(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return storageErr("close database", err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return storageErr("remove "+s.path, err)
	}
	return nil
}

// indexTitle claims note.Title for note.ID in title-keyed mode.
func (s *boltStore) indexTitle(tx *bolt.Tx, note domain.Note, previous *domain.Note) error {
	if !s.uniqueTitles {
		return nil
	}
	idx := tx.Bucket(bucketTitles)
	if owner := idx.Get([]byte(note.Title)); owner != nil && btoi(owner) != note.ID {
		return fmt.Errorf("title %q: %w", note.Title, ErrConstraint)
	}
	if previous != nil && previous.Title != note.Title {
		if err := idx.Delete([]byte(previous.Title)); err != nil {
			return storageErr("unindex previous title", err)
		}
	}
	if err := idx.Put([]byte(note.Title), itob(note.ID)); err != nil {
		return storageErr("index title", err)
	}
	return nil
}

// boltErr classifies errors bbolt returns outside a transaction body, such as
// ErrDatabaseNotOpen. Errors already carrying a storage sentinel pass through.
func boltErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrNotFound, ErrConstraint, ErrStorage, ErrVersion, ErrUnavailable} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return storageErr(op, err)
}

func putNote(b *bolt.Bucket, note domain.Note) error {
	raw, err := json.Marshal(note)
	if err != nil {
		return storageErr(fmt.Sprintf("encode note %d", note.ID), err)
	}
	if err := b.Put(itob(note.ID), raw); err != nil {
		return storageErr(fmt.Sprintf("write note %d", note.ID), err)
	}
	return nil
}

func decodeNote(raw []byte, n *domain.Note) error {
	if err := json.Unmarshal(raw, n); err != nil {
		return storageErr("decode note", err)
	}
	return nil
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
